// Package hooks runs configured automation rules when lifecycle events occur.
// A hook pairs a trigger with optional conditions and a single action.
package hooks

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
)

// DefaultPriority is used when a hook does not set one. Lower runs first.
const DefaultPriority = 100

// EventType names a lifecycle event that can trigger hooks.
type EventType string

const (
	EventAgentStarted    EventType = "agentStarted"
	EventAgentFinished   EventType = "agentFinished"
	EventAgentError      EventType = "agentError"
	EventFileSaved       EventType = "fileSaved"
	EventFileCreated     EventType = "fileCreated"
	EventFileDeleted     EventType = "fileDeleted"
	EventBuildCompleted  EventType = "buildCompleted"
	EventTestCompleted   EventType = "testCompleted"
	EventMessageReceived EventType = "messageReceived"
	EventWorkItemMoved   EventType = "workItemMoved"
	EventManual          EventType = "manual"
)

// EventTypes returns every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventAgentStarted, EventAgentFinished, EventAgentError,
		EventFileSaved, EventFileCreated, EventFileDeleted,
		EventBuildCompleted, EventTestCompleted,
		EventMessageReceived, EventWorkItemMoved, EventManual,
	}
}

func (e EventType) IsValid() bool { return slices.Contains(EventTypes(), e) }

// Operator compares a context variable with a condition value.
type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
	OpExists   Operator = "exists"
)

// ActionType selects which action a hook performs.
type ActionType string

const (
	ActionSpawnAgent   ActionType = "spawnAgent"
	ActionSendMessage  ActionType = "sendMessage"
	ActionPromptHuman  ActionType = "promptHuman"
	ActionRunCommand   ActionType = "runCommand"
	ActionUpdateMemory ActionType = "updateMemory"
)

// PromptKind is the flavor of a promptHuman action.
type PromptKind string

const (
	PromptApproval PromptKind = "approval"
	PromptInput    PromptKind = "input"
	PromptChoice   PromptKind = "choice"
)

// Hook is one automation rule.
type Hook struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     *bool       `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Priority    *int        `yaml:"priority,omitempty" json:"priority,omitempty"`
	Trigger     Trigger     `yaml:"trigger" json:"trigger"`
	Conditions  []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Action      Action      `yaml:"action" json:"action"`
}

// IsEnabled reports whether the hook participates in matching. Hooks are
// enabled unless explicitly disabled.
func (h Hook) IsEnabled() bool { return h.Enabled == nil || *h.Enabled }

// EffectivePriority returns the configured priority or DefaultPriority.
func (h Hook) EffectivePriority() int {
	if h.Priority == nil {
		return DefaultPriority
	}
	return *h.Priority
}

// Trigger selects the events a hook reacts to.
type Trigger struct {
	Type EventType `yaml:"type" json:"type"`
	// Agent restricts the trigger to events whose agent.name equals it.
	Agent string `yaml:"agent,omitempty" json:"agent,omitempty"`
	// PathPattern is a regular expression tested against file.path.
	PathPattern string `yaml:"pathPattern,omitempty" json:"pathPattern,omitempty"`
}

// Condition is a predicate over the event variables.
type Condition struct {
	Variable string   `yaml:"variable" json:"variable"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    string   `yaml:"value,omitempty" json:"value,omitempty"`
}

// Action is a tagged union keyed by Type. Only the fields of the selected
// type are read; every string field supports {{variable}} interpolation.
type Action struct {
	Type ActionType `yaml:"type" json:"type"`

	// spawnAgent
	AgentName string `yaml:"agentName,omitempty" json:"agentName,omitempty"`
	Role      string `yaml:"role,omitempty" json:"role,omitempty"`
	Task      string `yaml:"task,omitempty" json:"task,omitempty"`
	WorkItem  string `yaml:"workItem,omitempty" json:"workItem,omitempty"`

	// sendMessage
	From    string `yaml:"from,omitempty" json:"from,omitempty"`
	To      string `yaml:"to,omitempty" json:"to,omitempty"`
	Subject string `yaml:"subject,omitempty" json:"subject,omitempty"`
	Body    string `yaml:"body,omitempty" json:"body,omitempty"`

	// promptHuman
	PromptType PromptKind    `yaml:"promptType,omitempty" json:"promptType,omitempty"`
	Message    string        `yaml:"message,omitempty" json:"message,omitempty"`
	Choices    []string      `yaml:"choices,omitempty" json:"choices,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// runCommand
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	Cwd     string `yaml:"cwd,omitempty" json:"cwd,omitempty"`
	Wait    bool   `yaml:"wait,omitempty" json:"wait,omitempty"`

	// updateMemory
	Scope   string `yaml:"scope,omitempty" json:"scope,omitempty"`
	Content string `yaml:"content,omitempty" json:"content,omitempty"`
}

// Validate checks a hook definition and reports every problem as a
// criterio field error rooted at field.
func (h Hook) Validate(field string) error {
	var errs criterio.FieldErrorsBuilder
	at := func(name string) string {
		if field == "" {
			return name
		}
		return field + "." + name
	}

	if strings.TrimSpace(h.Name) == "" {
		errs = errs.Append(at("name"), fmt.Errorf("name is required"))
	}

	if !h.Trigger.Type.IsValid() {
		errs = errs.Append(at("trigger.type"), fmt.Errorf("unknown trigger type %q", h.Trigger.Type))
	}
	if h.Trigger.PathPattern != "" {
		if _, err := regexp.Compile(h.Trigger.PathPattern); err != nil {
			errs = errs.Append(at("trigger.pathPattern"), fmt.Errorf("invalid regex %q: %w", h.Trigger.PathPattern, err))
		}
	}

	for i, c := range h.Conditions {
		prefix := at(fmt.Sprintf("conditions[%d]", i))
		if strings.TrimSpace(c.Variable) == "" {
			errs = errs.Append(prefix+".variable", fmt.Errorf("variable is required"))
		}
		if c.Operator == OpMatches {
			if _, err := regexp.Compile(c.Value); err != nil {
				errs = errs.Append(prefix+".value", fmt.Errorf("invalid regex %q: %w", c.Value, err))
			}
		}
	}

	a := h.Action
	required := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = errs.Append(at("action."+name), fmt.Errorf("%s is required for %s", name, a.Type))
		}
	}

	switch a.Type {
	case ActionSpawnAgent:
		if a.AgentName == "" && a.Role == "" {
			errs = errs.Append(at("action.agentName"), fmt.Errorf("agentName or role is required for %s", a.Type))
		}
	case ActionSendMessage:
		required("to", a.To)
		required("subject", a.Subject)
	case ActionPromptHuman:
		required("message", a.Message)
		switch a.PromptType {
		case PromptApproval, PromptInput:
		case PromptChoice:
			if len(a.Choices) == 0 {
				errs = errs.Append(at("action.choices"), fmt.Errorf("choices are required for a choice prompt"))
			}
		default:
			errs = errs.Append(at("action.promptType"), fmt.Errorf("unknown prompt type %q", a.PromptType))
		}
		if a.Timeout < 0 {
			errs = errs.Append(at("action.timeout"), fmt.Errorf("timeout must not be negative"))
		}
	case ActionRunCommand:
		required("command", a.Command)
	case ActionUpdateMemory:
		required("content", a.Content)
	default:
		errs = errs.Append(at("action.type"), fmt.Errorf("unknown action type %q", a.Type))
	}

	return errs.ToError()
}
