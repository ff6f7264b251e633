package hooks

import (
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestHook_Defaults(t *testing.T) {
	h := Hook{Name: "x"}
	assert.True(t, h.IsEnabled())
	assert.Equal(t, DefaultPriority, h.EffectivePriority())

	h.Enabled = ptr(false)
	h.Priority = ptr(5)
	assert.False(t, h.IsEnabled())
	assert.Equal(t, 5, h.EffectivePriority())
}

func TestHook_Validate(t *testing.T) {
	valid := Hook{
		Name:    "notify",
		Trigger: Trigger{Type: EventAgentError, PathPattern: `\.go$`},
		Conditions: []Condition{
			{Variable: "agent.status", Operator: OpEquals, Value: "error"},
		},
		Action: Action{Type: ActionSendMessage, To: "orchestrator", Subject: "{{agent.name}} failed"},
	}
	require.NoError(t, valid.Validate("hooks[0]"))

	tests := []struct {
		name  string
		edit  func(h *Hook)
		field string
		msg   string
	}{
		{"missing name", func(h *Hook) { h.Name = "" }, "hooks[0].name", "name is required"},
		{"unknown trigger", func(h *Hook) { h.Trigger.Type = "deploy" }, "hooks[0].trigger.type", "unknown trigger type"},
		{"bad path regex", func(h *Hook) { h.Trigger.PathPattern = "(" }, "hooks[0].trigger.pathPattern", "invalid regex"},
		{"bad condition regex", func(h *Hook) {
			h.Conditions = []Condition{{Variable: "file.path", Operator: OpMatches, Value: "["}}
		}, "hooks[0].conditions[0].value", "invalid regex"},
		{"unknown action", func(h *Hook) { h.Action.Type = "email" }, "hooks[0].action.type", "unknown action type"},
		{"message without recipient", func(h *Hook) { h.Action.To = "" }, "hooks[0].action.to", "to is required"},
		{"choice without choices", func(h *Hook) {
			h.Action = Action{Type: ActionPromptHuman, PromptType: PromptChoice, Message: "pick"}
		}, "hooks[0].action.choices", "choices are required"},
		{"unknown prompt", func(h *Hook) {
			h.Action = Action{Type: ActionPromptHuman, PromptType: "vote", Message: "pick"}
		}, "hooks[0].action.promptType", "unknown prompt type"},
		{"command missing", func(h *Hook) { h.Action = Action{Type: ActionRunCommand} }, "hooks[0].action.command", "command is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := valid
			h.Conditions = append([]Condition(nil), valid.Conditions...)
			tt.edit(&h)

			err := h.Validate("hooks[0]")
			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
			assert.Contains(t, fieldErrs[0].Err.Error(), tt.msg)
		})
	}
}
