package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/comb/internal/core/claims"
	"github.com/colonyops/comb/internal/core/eventbus"
	"github.com/colonyops/comb/internal/core/eventbus/testbus"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/todo"
	"github.com/colonyops/comb/internal/core/workitem"
)

func TestRecorder_ObserveWorkItem(t *testing.T) {
	r := NewRecorder()

	r.ObserveWorkItem(workitem.ChangeCreated, "", workitem.StatusTodo)
	r.ObserveWorkItem(workitem.ChangeMoved, workitem.StatusTodo, workitem.StatusDoing)
	r.ObserveWorkItem(workitem.ChangeMoved, workitem.StatusTodo, workitem.StatusDoing)

	assert.InDelta(t, 1, testutil.ToFloat64(r.workItemChanges.WithLabelValues("created")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.workItemChanges.WithLabelValues("moved")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.workItemMoves.WithLabelValues("todo", "doing")), 0)
}

func TestRecorder_ObserveHook(t *testing.T) {
	r := NewRecorder()

	r.ObserveHook(hooks.Result{Hook: "notify", Status: hooks.StatusSuccess, Duration: 20 * time.Millisecond})
	r.ObserveHook(hooks.Result{Hook: "notify", Status: hooks.StatusFailure})

	assert.InDelta(t, 1, testutil.ToFloat64(r.hookRunsTotal.WithLabelValues("notify", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.hookRunsTotal.WithLabelValues("notify", "failure")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(r.hookDuration))
}

func TestRecorder_Subscribe(t *testing.T) {
	tb := testbus.New(t)
	r := NewRecorder()
	r.Subscribe(tb.EventBus)

	tb.PublishClaimsChanged(eventbus.ClaimsChangedPayload{Claims: make([]claims.Claim, 3)})
	tb.PublishClaimsConflict(eventbus.ClaimsConflictPayload{})
	tb.PublishTodoAdded(eventbus.TodoAddedPayload{Todo: todo.Todo{ID: "a"}})
	tb.PublishTodoAdded(eventbus.TodoAddedPayload{Todo: todo.Todo{ID: "b"}})
	tb.PublishTodoRemoved(eventbus.TodoRemovedPayload{Todo: todo.Todo{ID: "a"}})
	tb.PublishHooksReloaded(eventbus.HooksReloadedPayload{Count: 4})

	// Dispatch is asynchronous and HooksReloaded is published last.
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(r.hooksLoaded) == 4
	}, time.Second, 5*time.Millisecond)

	assert.InDelta(t, 3, testutil.ToFloat64(r.claimsLive), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.claimConflicts), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.todosActive), 0)
}

func TestRecorder_RegistryGathers(t *testing.T) {
	r := NewRecorder()
	r.ObserveClaims(2)

	families, err := r.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "comb_claims_live")
}
