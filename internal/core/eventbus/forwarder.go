package eventbus

import (
	"github.com/colonyops/comb/internal/core/claims"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/mailbox"
	"github.com/colonyops/comb/internal/core/todo"
	"github.com/colonyops/comb/internal/core/workitem"
)

var (
	_ claims.Observer   = (*Forwarder)(nil)
	_ mailbox.Observer  = (*Forwarder)(nil)
	_ workitem.Observer = (*Forwarder)(nil)
	_ todo.Observer     = (*Forwarder)(nil)
	_ hooks.Observer    = (*Forwarder)(nil)
)

// Forwarder publishes component notifications onto the bus. One Forwarder
// can be handed to every component as its Observer.
type Forwarder struct {
	bus *EventBus
}

// NewForwarder returns a Forwarder that publishes onto bus.
func NewForwarder(bus *EventBus) *Forwarder {
	return &Forwarder{bus: bus}
}

func (f *Forwarder) ClaimsChanged(agent string, live []claims.Claim) {
	f.bus.PublishClaimsChanged(ClaimsChangedPayload{Agent: agent, Claims: live})
}

func (f *Forwarder) ClaimRejected(agent, path string, blocking claims.Claim) {
	f.bus.PublishClaimsConflict(ClaimsConflictPayload{Agent: agent, Path: path, Blocking: blocking})
}

func (f *Forwarder) MessageReceived(msg mailbox.Message) {
	f.bus.PublishMessageReceived(MessageReceivedPayload{Message: msg})
}

func (f *Forwarder) MessageArrived(recipient string, msg mailbox.Message) {
	f.bus.PublishMessageArrived(MessageArrivedPayload{Recipient: recipient, Message: msg})
}

func (f *Forwarder) ItemChanged(item workitem.Item, kind workitem.ChangeKind, from workitem.Status) {
	f.bus.PublishWorkItemChanged(WorkItemChangedPayload{Item: item, Change: kind, From: from})
}

func (f *Forwarder) TodoAdded(t todo.Todo) {
	f.bus.PublishTodoAdded(TodoAddedPayload{Todo: t})
}

func (f *Forwarder) TodoUpdated(t todo.Todo) {
	f.bus.PublishTodoUpdated(TodoUpdatedPayload{Todo: t})
}

func (f *Forwarder) TodoRemoved(t todo.Todo) {
	f.bus.PublishTodoRemoved(TodoRemovedPayload{Todo: t})
}

func (f *Forwarder) SpawnRequested(req hooks.SpawnRequest) {
	f.bus.PublishAgentSpawnRequested(AgentSpawnRequestedPayload{Request: req})
}

func (f *Forwarder) MemoryUpdateRequested(req hooks.MemoryUpdate) {
	f.bus.PublishMemoryUpdateRequested(MemoryUpdateRequestedPayload{Update: req})
}

func (f *Forwarder) HookExecuted(r hooks.Result) {
	f.bus.PublishHookExecuted(HookExecutedPayload{Result: r})
}

func (f *Forwarder) HookFailed(r hooks.Result) {
	f.bus.PublishHookFailed(HookFailedPayload{Result: r})
}

func (f *Forwarder) HooksReloaded(count int) {
	f.bus.PublishHooksReloaded(HooksReloadedPayload{Count: count})
}
