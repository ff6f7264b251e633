package eventbus_test

import (
	"testing"
	"time"

	"github.com/colonyops/comb/internal/core/claims"
	"github.com/colonyops/comb/internal/core/eventbus"
	"github.com/colonyops/comb/internal/core/eventbus/testbus"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/mailbox"
	"github.com/colonyops/comb/internal/core/todo"
	"github.com/colonyops/comb/internal/core/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwarder_PublishesEveryNotification(t *testing.T) {
	tb := testbus.New(t)
	fwd := eventbus.NewForwarder(tb.EventBus)

	blocking := claims.Claim{Agent: "a", Pattern: "src/**", Exclusive: true}
	msg := mailbox.Message{ID: "m1", From: "a", To: "b", Subject: "hi"}
	item := workitem.Item{ID: "WI-2026-001", Status: workitem.StatusDoing}

	fwd.ClaimsChanged("a", []claims.Claim{blocking})
	fwd.ClaimRejected("b", "src/x.go", blocking)
	fwd.MessageReceived(msg)
	fwd.MessageArrived("b", msg)
	fwd.ItemChanged(item, workitem.ChangeMoved, workitem.StatusTodo)
	fwd.TodoAdded(todo.Todo{ID: "t1"})
	fwd.TodoUpdated(todo.Todo{ID: "t1"})
	fwd.TodoRemoved(todo.Todo{ID: "t1"})
	fwd.SpawnRequested(hooks.SpawnRequest{Hook: "spawn", AgentName: "reviewer"})
	fwd.MemoryUpdateRequested(hooks.MemoryUpdate{Hook: "mem", Content: "x"})
	fwd.HookExecuted(hooks.Result{Hook: "ok"})
	fwd.HookFailed(hooks.Result{Hook: "bad"})
	fwd.HooksReloaded(3)

	for _, e := range []eventbus.Event{
		eventbus.EventClaimsChanged,
		eventbus.EventClaimsConflict,
		eventbus.EventMessageReceived,
		eventbus.EventMessageArrived,
		eventbus.EventWorkItemChanged,
		eventbus.EventTodoAdded,
		eventbus.EventTodoUpdated,
		eventbus.EventTodoRemoved,
		eventbus.EventAgentSpawnRequested,
		eventbus.EventMemoryUpdateRequested,
		eventbus.EventHookExecuted,
		eventbus.EventHookFailed,
		eventbus.EventHooksReloaded,
	} {
		tb.AssertPublished(t, e)
	}

	moves := testbus.Payloads[eventbus.WorkItemChangedPayload](tb, eventbus.EventWorkItemChanged)
	require.Len(t, moves, 1)
	assert.Equal(t, workitem.StatusTodo, moves[0].From)
	assert.Equal(t, workitem.ChangeMoved, moves[0].Change)

	conflicts := testbus.Payloads[eventbus.ClaimsConflictPayload](tb, eventbus.EventClaimsConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "src/x.go", conflicts[0].Path)
	assert.Equal(t, "a", conflicts[0].Blocking.Agent)
}

func TestNotificationRouter(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNotificationRouter(tb.EventBus).Register()

	tb.PublishClaimsConflict(eventbus.ClaimsConflictPayload{
		Agent:    "b",
		Path:     "src/x.go",
		Blocking: claims.Claim{Agent: "a"},
	})

	require.True(t, tb.WaitFor(eventbus.EventNotificationPublished, time.Second))

	notes := testbus.Payloads[eventbus.NotificationPublishedPayload](tb, eventbus.EventNotificationPublished)
	require.Len(t, notes, 1)
	assert.Equal(t, eventbus.LevelWarning, notes[0].Level)
	assert.Equal(t, "b blocked on src/x.go by a", notes[0].Message)
}

func TestNotificationRouter_IgnoresNonMoves(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNotificationRouter(tb.EventBus).Register()

	tb.PublishWorkItemChanged(eventbus.WorkItemChangedPayload{
		Item:   workitem.Item{ID: "WI-2026-001"},
		Change: workitem.ChangeUpdated,
	})

	tb.AssertPublished(t, eventbus.EventWorkItemChanged)
	tb.AssertNotPublished(t, eventbus.EventNotificationPublished, 50*time.Millisecond)
}
