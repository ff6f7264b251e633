package hive

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/colonyops/comb/internal/core/claims"
	"github.com/colonyops/comb/internal/core/errs"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/mailbox"
	"github.com/colonyops/comb/internal/core/todo"
	"github.com/colonyops/comb/internal/core/workitem"
	"github.com/colonyops/comb/internal/data/stores"
)

// Result is the outcome of one tool call. Text is always set and is what an
// agent reads; Data carries the structured value for JSON output.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(data any, format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...), Data: data}
}

func fail(err error) Result {
	return Result{Text: errs.Describe(err), IsError: true}
}

// Toolkit is the operation surface offered to agents. Every method converts
// failures into a textual Result instead of returning an error.
type Toolkit struct {
	claims    *claims.Registry
	mailbox   *mailbox.Mailbox
	workItems *workitem.Store
	todos     *todo.Reconciler
	hooks     *hooks.Engine
	journal   *stores.HookRunStore
}

// NewToolkit creates a Toolkit over the components of app.
func NewToolkit(app *App) *Toolkit {
	return &Toolkit{
		claims:    app.Claims,
		mailbox:   app.Mailbox,
		workItems: app.WorkItems,
		todos:     app.Todos,
		hooks:     app.Hooks,
		journal:   app.Journal,
	}
}

func lines[T any](header string, items []T, render func(T) string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, it := range items {
		b.WriteString("\n- ")
		b.WriteString(render(it))
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

//
// Claims
//

// ReserveClaims reserves every path for agent or none of them.
func (t *Toolkit) ReserveClaims(agent string, paths []string, exclusive bool, reason string, ttl time.Duration) Result {
	if strings.TrimSpace(agent) == "" {
		return fail(errs.Invalid("claim", "agent is required"))
	}
	if len(paths) == 0 {
		return fail(errs.Invalid("claim", "at least one path is required"))
	}

	added, err := t.claims.AddClaims(claims.Request{
		Agent:     agent,
		Paths:     paths,
		Exclusive: exclusive,
		Reason:    reason,
		TTL:       ttl,
	})
	if err != nil {
		return fail(err)
	}
	return ok(added, "%s", lines("Reserved "+plural(len(added), "claim")+":", added, claims.Claim.String))
}

// ReleaseClaims drops the claim on pattern, or every claim of agent when
// pattern is empty.
func (t *Toolkit) ReleaseClaims(agent, pattern string) Result {
	if pattern == "" {
		n := t.claims.ReleaseClaims(agent)
		return ok(n, "Released %s held by %s.", plural(n, "claim"), agent)
	}
	if !t.claims.ReleaseClaim(agent, pattern) {
		return fail(errs.NotFound("claim", agent+":"+pattern))
	}
	return ok(1, "Released %s held by %s.", pattern, agent)
}

// ListClaims returns the live claims of agent, or of every agent when agent
// is empty.
func (t *Toolkit) ListClaims(agent string) Result {
	var live []claims.Claim
	if agent == "" {
		live = t.claims.All()
	} else {
		live = t.claims.ForAgent(agent)
	}
	if len(live) == 0 {
		return ok(live, "No active claims.")
	}
	return ok(live, "%s", lines(plural(len(live), "active claim")+":", live, claims.Claim.String))
}

// CheckPath reports whether agent could claim path and who holds it now.
func (t *Toolkit) CheckPath(agent, path string, exclusive bool) Result {
	allowed, blocking := t.claims.CanClaim(agent, path, exclusive)
	holders := t.claims.ForPath(path)

	data := map[string]any{"path": path, "allowed": allowed, "claims": holders}
	if !allowed && blocking != nil {
		return ok(data, "%s is blocked by %s.", path, blocking.String())
	}
	if len(holders) == 0 {
		return ok(data, "%s is free.", path)
	}
	return ok(data, "%s", lines(path+" can be claimed; current holders:", holders, claims.Claim.String))
}

//
// Messages
//

// MessageBox selects which messages ListMessages returns.
type MessageBox string

const (
	BoxInbox   MessageBox = "inbox"
	BoxUnread  MessageBox = "unread"
	BoxArchive MessageBox = "archive"
	BoxSent    MessageBox = "sent"
)

func renderMessage(m mailbox.Message) string {
	flag := " "
	if !m.Read {
		flag = "*"
	}
	return fmt.Sprintf("%s %s %s from %s: %s", flag, m.ID, m.Timestamp.Format(time.RFC3339), m.From, m.Subject)
}

// SendMessage stores a new message.
func (t *Toolkit) SendMessage(ctx context.Context, from, to, subject, body string) Result {
	msg, err := t.mailbox.Send(ctx, mailbox.Message{From: from, To: to, Subject: subject, Body: body})
	if err != nil {
		return fail(err)
	}
	return ok(msg, "Sent message %s to %s.", msg.ID, msg.To)
}

// ListMessages lists one mailbox view of agent.
func (t *Toolkit) ListMessages(ctx context.Context, agent string, box MessageBox) Result {
	var (
		msgs []mailbox.Message
		err  error
	)
	switch box {
	case BoxInbox, "":
		box = BoxInbox
		msgs, err = t.mailbox.Inbox(ctx, agent)
	case BoxUnread:
		msgs, err = t.mailbox.Unread(ctx, agent)
	case BoxArchive:
		msgs, err = t.mailbox.Archived(ctx, agent)
	case BoxSent:
		msgs, err = t.mailbox.Sent(ctx, agent)
	default:
		err = errs.Invalid("mailbox", "unknown box %q", box)
	}
	if err != nil {
		return fail(err)
	}
	if len(msgs) == 0 {
		return ok(msgs, "No %s messages for %s.", box, agent)
	}
	return ok(msgs, "%s", lines(fmt.Sprintf("%s (%s):", plural(len(msgs), "message"), box), msgs, renderMessage))
}

// ReadMessage returns a message with its body.
func (t *Toolkit) ReadMessage(ctx context.Context, id string) Result {
	msg, err := t.mailbox.Get(ctx, id)
	if err != nil {
		return fail(err)
	}
	text := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\nDate: %s\n\n%s",
		msg.From, msg.To, msg.Subject, msg.Timestamp.Format(time.RFC3339), msg.Body)
	return ok(msg, "%s", strings.TrimRight(text, "\n"))
}

// MarkRead flags a message as read.
func (t *Toolkit) MarkRead(ctx context.Context, id string) Result {
	changed, err := t.mailbox.MarkRead(ctx, id)
	if err != nil {
		return fail(err)
	}
	if !changed {
		return fail(errs.NotFound("message", id))
	}
	return ok(id, "Marked %s as read.", id)
}

// ArchiveMessage moves a message to the archive.
func (t *Toolkit) ArchiveMessage(ctx context.Context, id string) Result {
	msg, err := t.mailbox.Archive(ctx, id)
	if err != nil {
		return fail(err)
	}
	return ok(msg, "Archived %s.", id)
}

// UnarchiveMessage moves a message back to the inbox.
func (t *Toolkit) UnarchiveMessage(ctx context.Context, id string) Result {
	msg, err := t.mailbox.Unarchive(ctx, id)
	if err != nil {
		return fail(err)
	}
	return ok(msg, "Restored %s to the inbox.", id)
}

// DeleteMessage removes a message permanently.
func (t *Toolkit) DeleteMessage(ctx context.Context, id string) Result {
	if err := t.mailbox.Delete(ctx, id); err != nil {
		return fail(err)
	}
	return ok(id, "Deleted %s.", id)
}

// ReplyMessage answers the sender of message id.
func (t *Toolkit) ReplyMessage(ctx context.Context, id, from, body string) Result {
	msg, err := t.mailbox.Reply(ctx, id, from, body)
	if err != nil {
		return fail(err)
	}
	return ok(msg, "Replied to %s with %s.", msg.To, msg.ID)
}

//
// Work items
//

// ListWorkItems lists the items matching f.
func (t *Toolkit) ListWorkItems(ctx context.Context, f workitem.Filter) Result {
	items, err := t.workItems.List(ctx, f)
	if err != nil {
		return fail(err)
	}
	if len(items) == 0 {
		return ok(items, "No work items.")
	}
	return ok(items, "%s", lines(plural(len(items), "work item")+":", items, workitem.Item.String))
}

// GetWorkItem returns one item with its body.
func (t *Toolkit) GetWorkItem(ctx context.Context, id string) Result {
	item, err := t.workItems.Get(ctx, id)
	if err != nil {
		return fail(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\npriority: %s, type: %s", item.String(), item.Priority, item.Type)
	if item.Assignee != "" {
		fmt.Fprintf(&b, ", assignee: %s", item.Assignee)
	}
	if item.Reviewer != "" {
		fmt.Fprintf(&b, ", reviewer: %s", item.Reviewer)
	}
	if len(item.Tags) > 0 {
		fmt.Fprintf(&b, "\ntags: %s", strings.Join(item.Tags, ", "))
	}
	if item.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(item.Body, "\n"))
	}
	return ok(item, "%s", b.String())
}

// CreateWorkItem adds a new item in todo.
func (t *Toolkit) CreateWorkItem(ctx context.Context, in workitem.CreateInput) Result {
	item, err := t.workItems.Create(ctx, in)
	if err != nil {
		return fail(err)
	}
	return ok(item, "Created %s.", item.String())
}

// MoveWorkItem changes the status of an item.
func (t *Toolkit) MoveWorkItem(ctx context.Context, id, status string) Result {
	to, err := workitem.ParseStatus(status)
	if err != nil {
		return fail(err)
	}
	item, err := t.workItems.Move(ctx, id, to)
	if err != nil {
		return fail(err)
	}
	return ok(item, "Moved %s.", item.String())
}

// AssignWorkItem sets the assignee and, when non-empty, the reviewer.
func (t *Toolkit) AssignWorkItem(ctx context.Context, id, assignee, reviewer string) Result {
	item, err := t.workItems.Assign(ctx, id, assignee, reviewer)
	if err != nil {
		return fail(err)
	}
	return ok(item, "Assigned %s to %s.", item.ID, item.Assignee)
}

// UnassignWorkItem clears the assignee.
func (t *Toolkit) UnassignWorkItem(ctx context.Context, id string) Result {
	item, err := t.workItems.Unassign(ctx, id)
	if err != nil {
		return fail(err)
	}
	return ok(item, "Unassigned %s.", item.ID)
}

// UpdateWorkItem merges fields into an item.
func (t *Toolkit) UpdateWorkItem(ctx context.Context, id string, in workitem.UpdateInput) Result {
	item, err := t.workItems.Update(ctx, id, in)
	if err != nil {
		return fail(err)
	}
	return ok(item, "Updated %s.", item.String())
}

// AnnotateWorkItem appends a note.
func (t *Toolkit) AnnotateWorkItem(ctx context.Context, id, author, text string) Result {
	item, err := t.workItems.AddNote(ctx, id, author, text)
	if err != nil {
		return fail(err)
	}
	return ok(item, "Added a note to %s.", item.ID)
}

// CancelWorkItem moves an item to cancelled, recording reason.
func (t *Toolkit) CancelWorkItem(ctx context.Context, id, reason string) Result {
	item, err := t.workItems.Cancel(ctx, id, reason)
	if err != nil {
		return fail(err)
	}
	return ok(item, "Cancelled %s.", item.ID)
}

// DeleteWorkItem removes an item file.
func (t *Toolkit) DeleteWorkItem(ctx context.Context, id string) Result {
	if err := t.workItems.Delete(ctx, id); err != nil {
		return fail(err)
	}
	return ok(id, "Deleted %s.", id)
}

//
// Todos
//

func renderTodo(td todo.Todo) string {
	mark := "[ ]"
	switch td.Status {
	case todo.StatusInProgress:
		mark = "[~]"
	case todo.StatusCompleted:
		mark = "[x]"
	}
	label := td.Content
	if td.Status == todo.StatusInProgress {
		label = td.ActiveForm
	}
	return mark + " " + label
}

// SyncTodos replaces the reported list of agent.
func (t *Toolkit) SyncTodos(agent string, list []todo.Input) Result {
	if strings.TrimSpace(agent) == "" {
		return fail(errs.Invalid("todo", "agent is required"))
	}
	todos, err := t.todos.Sync(agent, list)
	if err != nil {
		return fail(err)
	}
	return ok(todos, "%s", lines(fmt.Sprintf("%s for %s:", plural(len(todos), "todo"), agent), todos, renderTodo))
}

// ListTodos returns the todos of agent, or of every agent when agent is empty.
func (t *Toolkit) ListTodos(agent string) Result {
	if agent != "" {
		todos := t.todos.List(agent)
		if len(todos) == 0 {
			return ok(todos, "No todos for %s.", agent)
		}
		return ok(todos, "%s", lines(fmt.Sprintf("%s for %s:", plural(len(todos), "todo"), agent), todos, renderTodo))
	}

	all := t.todos.ListAll()
	if len(all) == 0 {
		return ok(all, "No todos.")
	}
	var b strings.Builder
	for _, name := range sortedKeys(all) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(lines(name+":", all[name], renderTodo))
	}
	return ok(all, "%s", b.String())
}

// ClearTodos drops the todos of agent, or of every agent when agent is empty.
func (t *Toolkit) ClearTodos(agent string) Result {
	if agent == "" {
		n := t.todos.ClearAll()
		return ok(n, "Cleared %s.", plural(n, "todo"))
	}
	n := t.todos.ClearAgent(agent)
	return ok(n, "Cleared %s for %s.", plural(n, "todo"), agent)
}

//
// Hooks
//

// ListHooks returns the enabled hooks in execution order.
func (t *Toolkit) ListHooks() Result {
	loaded := t.hooks.Hooks()
	if len(loaded) == 0 {
		return ok(loaded, "No hooks loaded.")
	}
	return ok(loaded, "%s", lines(plural(len(loaded), "hook")+":", loaded, func(h hooks.Hook) string {
		return fmt.Sprintf("%s (priority %d): %s -> %s", h.Name, h.EffectivePriority(), h.Trigger.Type, h.Action.Type)
	}))
}

// LoadHooks loads hooks from the configured source.
func (t *Toolkit) LoadHooks(ctx context.Context) Result {
	if err := t.hooks.Load(ctx); err != nil {
		return fail(err)
	}
	n := len(t.hooks.Hooks())
	return ok(n, "Loaded %s.", plural(n, "hook"))
}

// ReloadHooks re-reads hooks from the configured source.
func (t *Toolkit) ReloadHooks(ctx context.Context) Result {
	if err := t.hooks.Reload(ctx); err != nil {
		return fail(err)
	}
	n := len(t.hooks.Hooks())
	return ok(n, "Reloaded %s.", plural(n, "hook"))
}

// TriggerHooks runs the hooks matching event and waits for them.
func (t *Toolkit) TriggerHooks(ctx context.Context, event string, ec hooks.EventContext) Result {
	et := hooks.EventType(event)
	if !et.IsValid() {
		return fail(errs.Invalid("event", "unknown event type %q", event))
	}

	results := t.hooks.Trigger(ctx, et, ec)
	if len(results) == 0 {
		return ok(results, "No hooks matched %s.", event)
	}

	res := ok(results, "%s", lines(fmt.Sprintf("Ran %s for %s:", plural(len(results), "hook"), event), results, hooks.Result.String))
	for _, r := range results {
		if r.Status == hooks.StatusFailure {
			res.IsError = true
		}
	}
	return res
}

// HookHistory returns journaled hook runs, newest first.
func (t *Toolkit) HookHistory(ctx context.Context, f stores.HistoryFilter) Result {
	runs, err := t.journal.List(ctx, f)
	if err != nil {
		return fail(err)
	}
	if len(runs) == 0 {
		return ok(runs, "No hook runs recorded.")
	}
	return ok(runs, "%s", lines(plural(len(runs), "hook run")+":", runs, func(r stores.HookRun) string {
		return r.StartedAt.Format(time.RFC3339) + " " + r.Result.String()
	}))
}
