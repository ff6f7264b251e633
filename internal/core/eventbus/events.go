// Package eventbus provides a typed publish/subscribe event bus that carries
// coordination notifications between components and to external
// collaborators.
package eventbus

import (
	"github.com/colonyops/comb/internal/core/claims"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/mailbox"
	"github.com/colonyops/comb/internal/core/todo"
	"github.com/colonyops/comb/internal/core/workitem"
)

const (
	EventAgentSpawnRequested   Event = "agent.spawn-requested"
	EventClaimsChanged         Event = "claims.changed"
	EventClaimsConflict        Event = "claims.conflict"
	EventHookExecuted          Event = "hook.executed"
	EventHookFailed            Event = "hook.failed"
	EventHooksReloaded         Event = "hooks.reloaded"
	EventMemoryUpdateRequested Event = "memory.update-requested"
	EventMessageArrived        Event = "message.arrived"
	EventMessageReceived       Event = "message.received"
	EventNotificationPublished Event = "notification.published"
	EventTodoAdded             Event = "todo.added"
	EventTodoRemoved           Event = "todo.removed"
	EventTodoUpdated           Event = "todo.updated"
	EventWorkItemChanged       Event = "workitem.changed"
)

// Events maps every event to its payload type.
var Events = map[Event]any{
	// Keep list sorted A-Z
	EventAgentSpawnRequested:   AgentSpawnRequestedPayload{},
	EventClaimsChanged:         ClaimsChangedPayload{},
	EventClaimsConflict:        ClaimsConflictPayload{},
	EventHookExecuted:          HookExecutedPayload{},
	EventHookFailed:            HookFailedPayload{},
	EventHooksReloaded:         HooksReloadedPayload{},
	EventMemoryUpdateRequested: MemoryUpdateRequestedPayload{},
	EventMessageArrived:        MessageArrivedPayload{},
	EventMessageReceived:       MessageReceivedPayload{},
	EventNotificationPublished: NotificationPublishedPayload{},
	EventTodoAdded:             TodoAddedPayload{},
	EventTodoRemoved:           TodoRemovedPayload{},
	EventTodoUpdated:           TodoUpdatedPayload{},
	EventWorkItemChanged:       WorkItemChangedPayload{},
}

// ClaimsChangedPayload carries the live claim table after a mutation. Agent
// is empty when the change came from an expiry sweep.
type ClaimsChangedPayload struct {
	Agent  string
	Claims []claims.Claim
}

// ClaimsConflictPayload is emitted when a claim request is rejected.
type ClaimsConflictPayload struct {
	Agent    string
	Path     string
	Blocking claims.Claim
}

// MessageReceivedPayload is emitted for every stored message.
type MessageReceivedPayload struct {
	Message mailbox.Message
}

// MessageArrivedPayload is addressed to the recipient for delivery
// notifications.
type MessageArrivedPayload struct {
	Recipient string
	Message   mailbox.Message
}

// WorkItemChangedPayload is emitted after a work item is created, updated,
// moved or deleted. From is set for moves.
type WorkItemChangedPayload struct {
	Item   workitem.Item
	Change workitem.ChangeKind
	From   workitem.Status
}

type TodoAddedPayload struct {
	Todo todo.Todo
}

type TodoUpdatedPayload struct {
	Todo todo.Todo
}

type TodoRemovedPayload struct {
	Todo todo.Todo
}

// AgentSpawnRequestedPayload asks the agent runtime to start an agent.
type AgentSpawnRequestedPayload struct {
	Request hooks.SpawnRequest
}

// MemoryUpdateRequestedPayload asks the memory subsystem to record content.
type MemoryUpdateRequestedPayload struct {
	Update hooks.MemoryUpdate
}

type HookExecutedPayload struct {
	Result hooks.Result
}

type HookFailedPayload struct {
	Result hooks.Result
}

type HooksReloadedPayload struct {
	Count int
}

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// NotificationPublishedPayload is a user-facing summary of a domain event.
type NotificationPublishedPayload struct {
	Level   Level
	Message string
}
