package hooks

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/colonyops/comb/internal/core/logging"
	"github.com/colonyops/comb/pkg/clock"
	"github.com/rs/zerolog"
)

// DefaultPromptTimeout bounds how long a promptHuman action waits.
const DefaultPromptTimeout = 5 * time.Minute

// Options wires the engine to its collaborators. Nil collaborators make the
// actions that need them fail with a descriptive error.
type Options struct {
	Loader        Loader
	Mailbox       Mailbox
	Human         HumanChannel
	Runner        CommandRunner
	Journal       Journal
	Observer      Observer
	Clock         clock.Clock
	PromptTimeout time.Duration
	// Vars are global variables visible to every hook. Event variables
	// take precedence.
	Vars map[string]string
}

// Engine matches events against the loaded hooks and runs their actions.
type Engine struct {
	loader        Loader
	mailbox       Mailbox
	human         HumanChannel
	runner        CommandRunner
	journal       Journal
	obs           Observer
	clock         clock.Clock
	promptTimeout time.Duration
	vars          map[string]string
	log           zerolog.Logger
	regex         regexCache

	mu    sync.RWMutex
	hooks []Hook

	dispatchMu sync.Mutex
	idle       *sync.Cond
	inflight   int
	closed     bool
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewEngine creates an Engine with no hooks loaded.
func NewEngine(log zerolog.Logger, opts Options) *Engine {
	if opts.Loader == nil {
		opts.Loader = Static(nil)
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.PromptTimeout <= 0 {
		opts.PromptTimeout = DefaultPromptTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		loader:        opts.Loader,
		mailbox:       opts.Mailbox,
		human:         opts.Human,
		runner:        opts.Runner,
		journal:       opts.Journal,
		obs:           opts.Observer,
		clock:         opts.Clock,
		promptTimeout: opts.PromptTimeout,
		vars:          opts.Vars,
		log:           log.With().Str("component", "hooks").Logger(),
		ctx:           ctx,
		cancel:        cancel,
	}
	e.idle = sync.NewCond(&e.dispatchMu)
	return e
}

// Load reads hooks from the loader, keeping the enabled ones ordered by
// ascending priority. Hooks with equal priority keep their configured order.
func (e *Engine) Load(ctx context.Context) error {
	all, err := e.loader(ctx)
	if err != nil {
		return fmt.Errorf("load hooks: %w", err)
	}

	enabled := make([]Hook, 0, len(all))
	for i, h := range all {
		if !h.IsEnabled() {
			continue
		}
		if err := h.Validate(fmt.Sprintf("hooks[%d]", i)); err != nil {
			e.log.Warn().Err(err).Str("hook", h.Name).Msg("skipping invalid hook")
			continue
		}
		enabled = append(enabled, h)
	}
	slices.SortStableFunc(enabled, func(a, b Hook) int {
		return a.EffectivePriority() - b.EffectivePriority()
	})

	e.mu.Lock()
	e.hooks = enabled
	e.mu.Unlock()

	e.log.Info().Int("loaded", len(enabled)).Int("configured", len(all)).Msg("hooks loaded")
	e.obs.HooksReloaded(len(enabled))
	return nil
}

// Reload is Load under another name for callers reacting to config edits.
func (e *Engine) Reload(ctx context.Context) error {
	return e.Load(ctx)
}

// Hooks returns the active hooks in execution order.
func (e *Engine) Hooks() []Hook {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.hooks)
}

// Matching returns the hooks that would run for event with ec.
func (e *Engine) Matching(event EventType, ec EventContext) []Hook {
	return e.matching(event, e.variables(event, ec))
}

func (e *Engine) variables(event EventType, ec EventContext) map[string]string {
	if ec.Timestamp.IsZero() {
		ec.Timestamp = e.clock.Now()
	}
	vars := ec.Variables(event)
	for k, v := range e.vars {
		if _, ok := vars[k]; !ok {
			vars[k] = v
		}
	}
	return vars
}

func (e *Engine) matching(event EventType, vars map[string]string) []Hook {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Hook
	for _, h := range e.hooks {
		if h.matches(event, vars, &e.regex) {
			out = append(out, h)
		}
	}
	return out
}

// Trigger runs every matching hook for event, one at a time in priority
// order, and returns their results. A failing hook is reported and the
// remaining hooks still run.
func (e *Engine) Trigger(ctx context.Context, event EventType, ec EventContext) []Result {
	vars := e.variables(event, ec)
	matched := e.matching(event, vars)
	if len(matched) == 0 {
		return nil
	}

	e.log.Debug().Str("event", string(event)).Int("hooks", len(matched)).Msg("triggering hooks")

	results := make([]Result, 0, len(matched))
	for _, h := range matched {
		results = append(results, e.execute(ctx, event, h, vars))
	}
	return results
}

func (e *Engine) execute(ctx context.Context, event EventType, h Hook, vars map[string]string) (res Result) {
	res = Result{
		Hook:      h.Name,
		Event:     event,
		Action:    h.Action.Type,
		Agent:     vars["agent.name"],
		StartedAt: e.clock.Now(),
	}
	if res.Agent != "" {
		ctx = logging.WithAgent(ctx, res.Agent)
	}
	if id := vars["workItem.id"]; id != "" {
		ctx = logging.WithWorkItem(ctx, id)
	}

	defer func() {
		if r := recover(); r != nil {
			res.Output = ""
			res.Error = fmt.Sprintf("panic: %v", r)
			e.log.Error().Str("hook", h.Name).Str("stack", string(debug.Stack())).Msg("hook panicked")
		}

		res.Duration = e.clock.Now().Sub(res.StartedAt)
		res.Status = StatusSuccess
		if res.Error != "" {
			res.Status = StatusFailure
		}
		e.finish(ctx, res)
	}()

	output, err := e.run(ctx, h, vars)
	res.Output = output
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (e *Engine) finish(ctx context.Context, res Result) {
	if e.journal != nil {
		if err := e.journal.Record(context.WithoutCancel(ctx), res); err != nil {
			e.log.Warn().Err(err).Str("hook", res.Hook).Msg("failed to journal hook run")
		}
	}

	if res.Status == StatusFailure {
		e.log.Error().
			Ctx(ctx).
			Str("hook", res.Hook).
			Str("event", string(res.Event)).
			Str("error", res.Error).
			Msg("hook failed")
		e.obs.HookFailed(res)
		return
	}

	e.log.Info().
		Ctx(ctx).
		Str("hook", res.Hook).
		Str("event", string(res.Event)).
		Dur("duration", res.Duration).
		Msg("hook executed")
	e.obs.HookExecuted(res)
}

// Dispatch runs Trigger in the background. Event producers use it so a slow
// hook never blocks them. Dispatches after Close are dropped.
func (e *Engine) Dispatch(event EventType, ec EventContext) {
	e.dispatchMu.Lock()
	if e.closed {
		e.dispatchMu.Unlock()
		e.log.Debug().Str("event", string(event)).Msg("engine closed, dropping event")
		return
	}
	e.inflight++
	e.wg.Add(1)
	e.dispatchMu.Unlock()

	go func() {
		defer e.wg.Done()
		defer func() {
			e.dispatchMu.Lock()
			e.inflight--
			if e.inflight == 0 {
				e.idle.Broadcast()
			}
			e.dispatchMu.Unlock()
		}()
		e.Trigger(e.ctx, event, ec)
	}()
}

// Wait blocks until no dispatch is in flight. Unlike Close it lets running
// hooks finish and keeps accepting new dispatches.
func (e *Engine) Wait() {
	e.dispatchMu.Lock()
	for e.inflight > 0 {
		e.idle.Wait()
	}
	e.dispatchMu.Unlock()
}

// Close cancels in-flight dispatches and waits for them to return.
func (e *Engine) Close() {
	e.dispatchMu.Lock()
	e.closed = true
	e.dispatchMu.Unlock()

	e.cancel()
	e.wg.Wait()
}
