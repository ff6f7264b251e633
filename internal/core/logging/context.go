package logging

import "context"

type contextKey string

const (
	agentKey    contextKey = "agent"
	workItemKey contextKey = "work_item"
)

// WithAgent adds the acting agent name to the context.
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentKey, agent)
}

// WithWorkItem adds a work item id to the context.
func WithWorkItem(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workItemKey, id)
}

// GetAgent retrieves the agent name from the context.
// Returns empty string if not present.
func GetAgent(ctx context.Context) string {
	if v, ok := ctx.Value(agentKey).(string); ok {
		return v
	}
	return ""
}

// GetWorkItem retrieves the work item id from the context.
// Returns empty string if not present.
func GetWorkItem(ctx context.Context) string {
	if v, ok := ctx.Value(workItemKey).(string); ok {
		return v
	}
	return ""
}
