package todo

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/comb/internal/core/errs"
	"github.com/colonyops/comb/pkg/clock"
	"github.com/colonyops/comb/pkg/randid"
	"github.com/rs/zerolog"
)

// DefaultRemovalDelay is how long a completed entry stays visible.
const DefaultRemovalDelay = 2 * time.Minute

// ErrClosed is returned by Sync after Close.
var ErrClosed = errors.New("todo reconciler closed")

// Options configures a Reconciler.
type Options struct {
	Clock        clock.Clock
	Observer     Observer
	RemovalDelay time.Duration
}

type entry struct {
	todo  Todo
	order int64
	timer clock.Timer
	gen   int
}

// Reconciler keeps the per-agent todo view in sync with reported snapshots.
type Reconciler struct {
	clock clock.Clock
	obs   Observer
	delay time.Duration
	log   zerolog.Logger

	mu     sync.Mutex
	agents map[string]map[string]*entry
	order  int64
	closed bool
}

// NewReconciler creates an empty Reconciler.
func NewReconciler(log zerolog.Logger, opts Options) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.RemovalDelay <= 0 {
		opts.RemovalDelay = DefaultRemovalDelay
	}
	return &Reconciler{
		clock:  opts.Clock,
		obs:    opts.Observer,
		delay:  opts.RemovalDelay,
		log:    log.With().Str("component", "todos").Logger(),
		agents: make(map[string]map[string]*entry),
	}
}

type notice struct {
	kind string
	todo Todo
}

// Sync reconciles agent's entries against list and returns the agent's
// resulting entries in list order. Entries are matched by content; entries
// missing from list are dropped unless a delayed removal is pending.
func (r *Reconciler) Sync(agent string, list []Input) ([]Todo, error) {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return nil, errs.Invalid("todo", "agent name is required")
	}

	inputs := make([]Input, 0, len(list))
	for _, in := range list {
		n, err := in.normalize()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, n)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}

	now := r.clock.Now().UTC()
	entries := r.agents[agent]
	if entries == nil {
		entries = make(map[string]*entry)
		r.agents[agent] = entries
	}

	var notices []notice
	seen := make(map[string]bool, len(inputs))

	for _, in := range inputs {
		seen[in.Content] = true

		e, ok := entries[in.Content]
		if !ok {
			r.order++
			e = &entry{
				order: r.order,
				todo: Todo{
					ID:         randid.Prefixed("todo", 8),
					Agent:      agent,
					Content:    in.Content,
					ActiveForm: in.ActiveForm,
					Status:     in.Status,
					StoryID:    in.StoryID,
					CreatedAt:  now,
				},
			}
			if in.Status == StatusCompleted {
				e.todo.CompletedAt = &now
				r.scheduleLocked(agent, e)
			}
			entries[in.Content] = e
			notices = append(notices, notice{"added", e.todo})
			continue
		}

		t := &e.todo
		if t.Status == in.Status && t.ActiveForm == in.ActiveForm && t.StoryID == in.StoryID {
			continue
		}

		t.Status = in.Status
		t.ActiveForm = in.ActiveForm
		t.StoryID = in.StoryID
		if in.Status == StatusCompleted {
			if t.CompletedAt == nil {
				t.CompletedAt = &now
			}
			r.scheduleLocked(agent, e)
		} else {
			cancelLocked(e)
		}
		notices = append(notices, notice{"updated", e.todo})
	}

	for content, e := range entries {
		if seen[content] || e.timer != nil {
			continue
		}
		delete(entries, content)
		notices = append(notices, notice{"removed", e.todo})
	}
	if len(entries) == 0 {
		delete(r.agents, agent)
	}

	out := make([]Todo, 0, len(inputs))
	for _, in := range inputs {
		if e, ok := entries[in.Content]; ok && !slices.ContainsFunc(out, func(t Todo) bool { return t.ID == e.todo.ID }) {
			out = append(out, e.todo)
		}
	}
	r.mu.Unlock()

	r.log.Debug().Str("agent", agent).Int("entries", len(out)).Int("changes", len(notices)).Msg("todos synced")
	r.notify(notices)
	return out, nil
}

// scheduleLocked arms the delayed removal of e unless one is already pending.
func (r *Reconciler) scheduleLocked(agent string, e *entry) {
	if e.timer != nil {
		return
	}
	e.gen++
	gen := e.gen
	e.timer = r.clock.AfterFunc(r.delay, func() { r.expire(agent, e, gen) })
}

func cancelLocked(e *entry) {
	if e.timer == nil {
		return
	}
	e.timer.Stop()
	e.timer = nil
	e.gen++
}

// expire runs when a removal timer fires. A timer that was cancelled or
// replaced after it started firing finds a different generation and exits.
func (r *Reconciler) expire(agent string, e *entry, gen int) {
	r.mu.Lock()
	entries := r.agents[agent]
	if r.closed || entries == nil || entries[e.todo.Content] != e || e.gen != gen {
		r.mu.Unlock()
		return
	}
	delete(entries, e.todo.Content)
	if len(entries) == 0 {
		delete(r.agents, agent)
	}
	e.timer = nil
	removed := e.todo
	r.mu.Unlock()

	r.log.Debug().Str("agent", agent).Str("id", removed.ID).Msg("completed todo removed")
	r.obs.TodoRemoved(removed)
}

// List returns agent's entries in creation order.
func (r *Reconciler) List(agent string) []Todo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sorted(r.agents[agent])
}

// ListAll returns every agent's entries keyed by agent name.
func (r *Reconciler) ListAll() map[string][]Todo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]Todo, len(r.agents))
	for agent, entries := range r.agents {
		out[agent] = sorted(entries)
	}
	return out
}

func sorted(entries map[string]*entry) []Todo {
	list := make([]*entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	slices.SortFunc(list, func(a, b *entry) int { return int(a.order - b.order) })

	out := make([]Todo, len(list))
	for i, e := range list {
		out[i] = e.todo
	}
	return out
}

// ClearAgent removes every entry of agent, cancelling pending removals.
func (r *Reconciler) ClearAgent(agent string) int {
	r.mu.Lock()
	notices := r.clearLocked(agent)
	r.mu.Unlock()

	r.notify(notices)
	return len(notices)
}

// ClearAll removes every entry of every agent.
func (r *Reconciler) ClearAll() int {
	r.mu.Lock()
	var notices []notice
	for agent := range r.agents {
		notices = append(notices, r.clearLocked(agent)...)
	}
	r.mu.Unlock()

	r.notify(notices)
	return len(notices)
}

func (r *Reconciler) clearLocked(agent string) []notice {
	entries := sorted(r.agents[agent])
	notices := make([]notice, 0, len(entries))
	for _, e := range r.agents[agent] {
		cancelLocked(e)
	}
	for _, t := range entries {
		notices = append(notices, notice{"removed", t})
	}
	delete(r.agents, agent)
	return notices
}

// Close cancels every pending removal and rejects further syncs. Entries are
// dropped without notifications.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entries := range r.agents {
		for _, e := range entries {
			cancelLocked(e)
		}
	}
	r.agents = make(map[string]map[string]*entry)
	r.closed = true
}

func (r *Reconciler) notify(notices []notice) {
	for _, n := range notices {
		switch n.kind {
		case "added":
			r.obs.TodoAdded(n.todo)
		case "updated":
			r.obs.TodoUpdated(n.todo)
		case "removed":
			r.obs.TodoRemoved(n.todo)
		}
	}
}
