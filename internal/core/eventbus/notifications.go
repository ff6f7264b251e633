package eventbus

import (
	"fmt"

	"github.com/colonyops/comb/internal/core/workitem"
)

// NotificationRouter maps domain events to user-facing notifications.
type NotificationRouter struct {
	bus *EventBus
}

// NewNotificationRouter constructs a router for event-to-notification mappings.
func NewNotificationRouter(bus *EventBus) *NotificationRouter {
	return &NotificationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeClaimsConflict(func(p ClaimsConflictPayload) {
		r.notifyf(LevelWarning, "%s blocked on %s by %s", p.Agent, p.Path, p.Blocking.Agent)
	})

	r.bus.SubscribeHookFailed(func(p HookFailedPayload) {
		r.notifyf(LevelError, "hook %q failed: %s", p.Result.Hook, p.Result.Error)
	})

	r.bus.SubscribeWorkItemChanged(func(p WorkItemChangedPayload) {
		if p.Change != workitem.ChangeMoved {
			return
		}
		r.notifyf(LevelInfo, "%s moved %s -> %s", p.Item.ID, p.From, p.Item.Status)
	})

	r.bus.SubscribeMessageArrived(func(p MessageArrivedPayload) {
		r.notifyf(LevelInfo, "message for %s from %s: %s", p.Recipient, p.Message.From, p.Message.Subject)
	})
}

func (r *NotificationRouter) notifyf(level Level, format string, args ...any) {
	p := NotificationPublishedPayload{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	}
	// Called on the dispatch goroutine; a blocking publish here could wait on
	// its own buffer.
	go r.bus.PublishNotificationPublished(p)
}
