package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook copies agent and work_item from the event context onto log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if agent := GetAgent(ctx); agent != "" {
		e.Str("agent", agent)
	}

	if id := GetWorkItem(ctx); id != "" {
		e.Str("work_item", id)
	}
}
