package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/comb/internal/core/mailbox"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailbox struct {
	mu   sync.Mutex
	sent []mailbox.Message
	err  error
}

func (f *fakeMailbox) Send(_ context.Context, msg mailbox.Message) (mailbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return mailbox.Message{}, f.err
	}
	msg.ID = "msg-1"
	f.sent = append(f.sent, msg)
	return msg, nil
}

type fakeHuman struct {
	mu       sync.Mutex
	notified []Notification
	prompts  []Prompt
	respond  func(ctx context.Context, p Prompt) (Response, error)
}

func (f *fakeHuman) Notify(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, n)
	return nil
}

func (f *fakeHuman) Prompt(ctx context.Context, p Prompt) (Response, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	respond := f.respond
	f.mu.Unlock()
	return respond(ctx, p)
}

type fakeRunner struct {
	calls []string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, command, cwd string, wait bool) (CommandResult, error) {
	f.calls = append(f.calls, command+"|"+cwd)
	return CommandResult{Output: "ok\n"}, f.err
}

type fakeJournal struct {
	mu   sync.Mutex
	runs []Result
}

func (f *fakeJournal) Record(_ context.Context, r Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, r)
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	spawns   []SpawnRequest
	memory   []MemoryUpdate
	executed []Result
	failed   []Result
	reloads  []int
}

func (o *recordingObserver) SpawnRequested(r SpawnRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spawns = append(o.spawns, r)
}

func (o *recordingObserver) MemoryUpdateRequested(r MemoryUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.memory = append(o.memory, r)
}

func (o *recordingObserver) HookExecuted(r Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.executed = append(o.executed, r)
}

func (o *recordingObserver) HookFailed(r Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, r)
}

func (o *recordingObserver) HooksReloaded(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reloads = append(o.reloads, n)
}

type harness struct {
	engine  *Engine
	mailbox *fakeMailbox
	human   *fakeHuman
	runner  *fakeRunner
	journal *fakeJournal
	obs     *recordingObserver
}

func newHarness(t *testing.T, hooks ...Hook) *harness {
	t.Helper()
	h := &harness{
		mailbox: &fakeMailbox{},
		human: &fakeHuman{respond: func(context.Context, Prompt) (Response, error) {
			return Response{Approved: true}, nil
		}},
		runner:  &fakeRunner{},
		journal: &fakeJournal{},
		obs:     &recordingObserver{},
	}
	h.engine = NewEngine(zerolog.Nop(), Options{
		Loader:   Static(hooks),
		Mailbox:  h.mailbox,
		Human:    h.human,
		Runner:   h.runner,
		Journal:  h.journal,
		Observer: h.obs,
	})
	require.NoError(t, h.engine.Load(context.Background()))
	t.Cleanup(h.engine.Close)
	return h
}

func sendHook(name string, priority int, event EventType) Hook {
	return Hook{
		Name:     name,
		Priority: ptr(priority),
		Trigger:  Trigger{Type: event},
		Action:   Action{Type: ActionSendMessage, To: "orchestrator", Subject: name + " {{agent.name}}", Body: "{{agent.error}}"},
	}
}

func agentEvent(name, status string) EventContext {
	return EventContext{Agent: &AgentInfo{Name: name, Status: status, Error: "boom"}}
}

func TestEngine_LoadOrdersAndFilters(t *testing.T) {
	invalid := Hook{Name: "broken", Trigger: Trigger{Type: "nope"}, Action: Action{Type: ActionSpawnAgent, Role: "x"}}
	disabled := sendHook("disabled", 1, EventAgentError)
	disabled.Enabled = ptr(false)
	tieA := sendHook("tie-a", 50, EventAgentError)
	tieB := sendHook("tie-b", 50, EventAgentError)
	noPriority := sendHook("default", 0, EventAgentError)
	noPriority.Priority = nil

	h := newHarness(t, noPriority, tieA, invalid, disabled, sendHook("first", 10, EventAgentError), tieB)

	var names []string
	for _, hk := range h.engine.Hooks() {
		names = append(names, hk.Name)
	}
	assert.Equal(t, []string{"first", "tie-a", "tie-b", "default"}, names)
	assert.Equal(t, []int{4}, h.obs.reloads)
}

func TestEngine_TriggerRunsInPriorityOrder(t *testing.T) {
	h := newHarness(t,
		sendHook("late", 200, EventAgentError),
		sendHook("early", 1, EventAgentError),
		sendHook("other-event", 1, EventAgentFinished),
	)

	results := h.engine.Trigger(context.Background(), EventAgentError, agentEvent("coder-1", "error"))
	require.Len(t, results, 2)
	assert.Equal(t, "early", results[0].Hook)
	assert.Equal(t, "late", results[1].Hook)

	require.Len(t, h.mailbox.sent, 2)
	assert.Equal(t, "early coder-1", h.mailbox.sent[0].Subject)
	assert.Equal(t, "boom", h.mailbox.sent[0].Body)
	assert.Equal(t, "hook:early", h.mailbox.sent[0].From)
	assert.Len(t, h.journal.runs, 2)
	assert.Len(t, h.obs.executed, 2)
}

func TestEngine_ConditionEqualsIsExact(t *testing.T) {
	hook := sendHook("on-error", 1, EventAgentError)
	hook.Conditions = []Condition{{Variable: "agent.status", Operator: OpEquals, Value: "error"}}
	h := newHarness(t, hook)

	assert.Len(t, h.engine.Trigger(context.Background(), EventAgentError, agentEvent("a", "error")), 1)
	assert.Empty(t, h.engine.Trigger(context.Background(), EventAgentError, agentEvent("a", "Error")))
	assert.Empty(t, h.engine.Trigger(context.Background(), EventAgentError, agentEvent("a", "failed")))
}

func TestEngine_FailureIsIsolated(t *testing.T) {
	failing := Hook{Name: "fails", Priority: ptr(1), Trigger: Trigger{Type: EventBuildCompleted},
		Action: Action{Type: ActionRunCommand, Command: "make", Wait: true}}
	succeeding := Hook{Name: "spawns", Priority: ptr(2), Trigger: Trigger{Type: EventBuildCompleted},
		Action: Action{Type: ActionSpawnAgent, Role: "fixer", Task: "fix {{build.status}} build"}}

	h := newHarness(t, failing, succeeding)
	h.runner.err = errors.New("exit status 2")

	results := h.engine.Trigger(context.Background(), EventBuildCompleted, EventContext{Build: &BuildInfo{Status: "failed"}})
	require.Len(t, results, 2)

	assert.Equal(t, StatusFailure, results[0].Status)
	assert.Equal(t, "exit status 2", results[0].Error)
	assert.Equal(t, StatusSuccess, results[1].Status)

	require.Len(t, h.obs.failed, 1)
	require.Len(t, h.obs.spawns, 1)
	assert.Equal(t, "fix failed build", h.obs.spawns[0].Task)
	assert.Len(t, h.journal.runs, 2)
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, string, string, bool) (CommandResult, error) {
	panic("runner exploded")
}

func TestEngine_PanicIsRecovered(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(zerolog.Nop(), Options{
		Loader: Static([]Hook{
			{Name: "boom", Trigger: Trigger{Type: EventManual}, Action: Action{Type: ActionRunCommand, Command: "x"}},
			{Name: "after", Trigger: Trigger{Type: EventManual}, Action: Action{Type: ActionUpdateMemory, Content: "remember"}},
		}),
		Runner:   panicRunner{},
		Observer: obs,
	})
	require.NoError(t, e.Load(context.Background()))
	defer e.Close()

	results := e.Trigger(context.Background(), EventManual, EventContext{})
	require.Len(t, results, 2)
	assert.Equal(t, StatusFailure, results[0].Status)
	assert.Contains(t, results[0].Error, "runner exploded")
	assert.Equal(t, StatusSuccess, results[1].Status)
	require.Len(t, obs.memory, 1)
	assert.Equal(t, "remember", obs.memory[0].Content)
}

func TestEngine_SendMessageToHuman(t *testing.T) {
	hook := Hook{Name: "tell-human", Trigger: Trigger{Type: EventAgentFinished},
		Action: Action{Type: ActionSendMessage, To: "human", Subject: "{{agent.name}} done"}}
	h := newHarness(t, hook)

	results := h.engine.Trigger(context.Background(), EventAgentFinished, agentEvent("coder-1", "done"))
	require.Len(t, results, 1)
	assert.Equal(t, StatusSuccess, results[0].Status)

	require.Len(t, h.human.notified, 1)
	assert.Equal(t, "coder-1 done", h.human.notified[0].Subject)
	assert.Empty(t, h.mailbox.sent)
}

func TestEngine_PromptHuman(t *testing.T) {
	t.Run("response is mailed to the agent", func(t *testing.T) {
		hook := Hook{Name: "approve", Trigger: Trigger{Type: EventWorkItemMoved},
			Action: Action{Type: ActionPromptHuman, PromptType: PromptChoice, Message: "Merge {{workItem.id}}?", Choices: []string{"merge", "hold"}}}
		h := newHarness(t, hook)
		h.human.respond = func(_ context.Context, p Prompt) (Response, error) {
			return Response{Value: p.Choices[1]}, nil
		}

		ec := EventContext{
			Agent:    &AgentInfo{Name: "coder-1"},
			WorkItem: &WorkItemInfo{ID: "WI-2026-001", Status: "code-review"},
		}
		results := h.engine.Trigger(context.Background(), EventWorkItemMoved, ec)
		require.Len(t, results, 1)
		assert.Equal(t, "hold", results[0].Output)

		require.Len(t, h.human.prompts, 1)
		assert.Equal(t, "Merge WI-2026-001?", h.human.prompts[0].Message)

		require.Len(t, h.mailbox.sent, 1)
		msg := h.mailbox.sent[0]
		assert.Equal(t, "human", msg.From)
		assert.Equal(t, "coder-1", msg.To)
		assert.Equal(t, "hold", msg.Body)
	})

	t.Run("defaults recipient to orchestrator", func(t *testing.T) {
		hook := Hook{Name: "ok", Trigger: Trigger{Type: EventManual},
			Action: Action{Type: ActionPromptHuman, PromptType: PromptApproval, Message: "Continue?"}}
		h := newHarness(t, hook)

		h.engine.Trigger(context.Background(), EventManual, EventContext{})
		require.Len(t, h.mailbox.sent, 1)
		assert.Equal(t, "orchestrator", h.mailbox.sent[0].To)
		assert.Equal(t, "approved", h.mailbox.sent[0].Body)
	})

	t.Run("times out", func(t *testing.T) {
		hook := Hook{Name: "slow", Trigger: Trigger{Type: EventManual},
			Action: Action{Type: ActionPromptHuman, PromptType: PromptInput, Message: "Name?", Timeout: 20 * time.Millisecond}}
		h := newHarness(t, hook)
		h.human.respond = func(ctx context.Context, _ Prompt) (Response, error) {
			<-ctx.Done()
			return Response{}, ctx.Err()
		}

		results := h.engine.Trigger(context.Background(), EventManual, EventContext{})
		require.Len(t, results, 1)
		assert.Equal(t, StatusFailure, results[0].Status)
		assert.Contains(t, results[0].Error, "timed out")
		assert.Empty(t, h.mailbox.sent)
	})
}

func TestEngine_RunCommand(t *testing.T) {
	hook := Hook{Name: "lint", Trigger: Trigger{Type: EventFileSaved, PathPattern: `\.go$`},
		Action: Action{Type: ActionRunCommand, Command: "gofmt -l {{file.path}}", Cwd: "/repo", Wait: true}}
	h := newHarness(t, hook)

	results := h.engine.Trigger(context.Background(), EventFileSaved, EventContext{File: &FileInfo{Path: "main.go"}})
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Output)
	assert.Equal(t, []string{"gofmt -l main.go|/repo"}, h.runner.calls)

	assert.Empty(t, h.engine.Trigger(context.Background(), EventFileSaved, EventContext{File: &FileInfo{Path: "README.md"}}))
}

func TestEngine_MissingCollaborator(t *testing.T) {
	e := NewEngine(zerolog.Nop(), Options{Loader: Static([]Hook{sendHook("x", 1, EventManual)})})
	require.NoError(t, e.Load(context.Background()))
	defer e.Close()

	results := e.Trigger(context.Background(), EventManual, EventContext{})
	require.Len(t, results, 1)
	assert.Equal(t, ErrNoMailbox.Error(), results[0].Error)
}

func TestEngine_DispatchAndClose(t *testing.T) {
	h := newHarness(t, sendHook("async", 1, EventAgentFinished))

	h.engine.Dispatch(EventAgentFinished, agentEvent("coder-1", "done"))
	h.engine.Close()

	h.mailbox.mu.Lock()
	assert.Len(t, h.mailbox.sent, 1, "close waits for in-flight dispatches")
	h.mailbox.mu.Unlock()

	h.engine.Dispatch(EventAgentFinished, agentEvent("coder-1", "done"))
	h.engine.Close()

	h.mailbox.mu.Lock()
	defer h.mailbox.mu.Unlock()
	assert.Len(t, h.mailbox.sent, 1, "dispatch after close is dropped")
}

func TestEngine_WaitLetsDispatchesFinish(t *testing.T) {
	h := newHarness(t, Hook{
		Name:    "ask",
		Trigger: Trigger{Type: EventManual},
		Action:  Action{Type: ActionPromptHuman, PromptType: PromptApproval, Message: "ok?"},
	})
	release := make(chan struct{})
	h.human.respond = func(context.Context, Prompt) (Response, error) {
		<-release
		return Response{Approved: true}, nil
	}

	h.engine.Dispatch(EventManual, EventContext{})
	waited := make(chan struct{})
	go func() {
		h.engine.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("wait returned while a dispatch was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-waited

	h.mailbox.mu.Lock()
	defer h.mailbox.mu.Unlock()
	require.Len(t, h.mailbox.sent, 1)
	assert.Equal(t, "approved", h.mailbox.sent[0].Body)
}

func TestEngine_Reload(t *testing.T) {
	current := []Hook{sendHook("one", 1, EventManual)}
	e := NewEngine(zerolog.Nop(), Options{Loader: func(context.Context) ([]Hook, error) { return current, nil }})
	require.NoError(t, e.Load(context.Background()))
	defer e.Close()
	assert.Len(t, e.Hooks(), 1)

	current = append(current, sendHook("two", 2, EventManual))
	require.NoError(t, e.Reload(context.Background()))
	assert.Len(t, e.Hooks(), 2)

	failing := NewEngine(zerolog.Nop(), Options{Loader: func(context.Context) ([]Hook, error) { return nil, errors.New("bad yaml") }})
	defer failing.Close()
	require.Error(t, failing.Load(context.Background()))
}

func TestEngine_GlobalVars(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(zerolog.Nop(), Options{
		Loader: Static([]Hook{{
			Name:    "remember",
			Trigger: Trigger{Type: EventManual},
			Action:  Action{Type: ActionUpdateMemory, Content: "{{vars.team}}/{{agent.name}}"},
		}}),
		Observer: obs,
		Vars:     map[string]string{"vars.team": "platform", "agent.name": "global"},
	})
	require.NoError(t, e.Load(context.Background()))
	defer e.Close()

	e.Trigger(context.Background(), EventManual, EventContext{Agent: &AgentInfo{Name: "coder-1"}})
	e.Trigger(context.Background(), EventManual, EventContext{})

	require.Len(t, obs.memory, 2)
	assert.Equal(t, "platform/coder-1", obs.memory[0].Content)
	assert.Equal(t, "platform/global", obs.memory[1].Content)
}
