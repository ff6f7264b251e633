package hive

import (
	"github.com/colonyops/comb/internal/core/eventbus"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/workitem"
)

// bridge turns domain events into hook triggers and surfaces notifications
// in the log. Subscribers run on the bus goroutine, so hooks are dispatched
// rather than triggered inline.
func (a *App) bridge() {
	a.Bus.SubscribeMessageReceived(func(p eventbus.MessageReceivedPayload) {
		msg := p.Message
		a.Hooks.Dispatch(hooks.EventMessageReceived, hooks.EventContext{
			Timestamp: msg.Timestamp,
			Agent:     &hooks.AgentInfo{Name: msg.To},
			Message: &hooks.MessageInfo{
				ID:      msg.ID,
				From:    msg.From,
				To:      msg.To,
				Subject: msg.Subject,
			},
		})
	})

	a.Bus.SubscribeWorkItemChanged(func(p eventbus.WorkItemChangedPayload) {
		if p.Change != workitem.ChangeMoved {
			return
		}
		ec := hooks.EventContext{
			WorkItem: &hooks.WorkItemInfo{
				ID:             p.Item.ID,
				Title:          p.Item.Title,
				Status:         string(p.Item.Status),
				PreviousStatus: string(p.From),
			},
		}
		if p.Item.Assignee != "" {
			ec.Agent = &hooks.AgentInfo{Name: p.Item.Assignee}
		}
		a.Hooks.Dispatch(hooks.EventWorkItemMoved, ec)
	})

	a.Bus.SubscribeNotificationPublished(func(p eventbus.NotificationPublishedPayload) {
		switch p.Level {
		case eventbus.LevelError:
			a.log.Error().Msg(p.Message)
		case eventbus.LevelWarning:
			a.log.Warn().Msg(p.Message)
		default:
			a.log.Info().Msg(p.Message)
		}
	})
}
