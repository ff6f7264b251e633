package hooks

import (
	"context"
	"strconv"
	"time"

	"github.com/colonyops/comb/internal/core/mailbox"
)

// Mailbox delivers sendMessage and promptHuman results.
type Mailbox interface {
	Send(ctx context.Context, msg mailbox.Message) (mailbox.Message, error)
}

// Notification is a message addressed to the human operator.
type Notification struct {
	Hook    string
	From    string
	Subject string
	Body    string
}

// Prompt asks the human operator for a decision or input.
type Prompt struct {
	Hook    string
	Agent   string
	Kind    PromptKind
	Message string
	Choices []string
}

// Response is the operator's answer to a Prompt.
type Response struct {
	Approved bool
	Value    string
}

// Text renders the response for delivery as a message body.
func (r Response) Text(kind PromptKind) string {
	if kind == PromptApproval {
		if r.Approved {
			return "approved"
		}
		return "rejected"
	}
	return r.Value
}

// HumanChannel reaches the human operator.
type HumanChannel interface {
	Notify(ctx context.Context, n Notification) error
	// Prompt blocks until the operator answers or ctx is done.
	Prompt(ctx context.Context, p Prompt) (Response, error)
}

// CommandResult is the outcome of a runCommand action.
type CommandResult struct {
	Output   string
	ExitCode int
}

// CommandRunner executes runCommand actions. When wait is false Run returns
// once the command has started.
type CommandRunner interface {
	Run(ctx context.Context, command, cwd string, wait bool) (CommandResult, error)
}

// SpawnRequest asks the agent runtime to start an agent.
type SpawnRequest struct {
	Hook      string `json:"hook"`
	AgentName string `json:"agentName,omitempty"`
	Role      string `json:"role,omitempty"`
	Task      string `json:"task,omitempty"`
	WorkItem  string `json:"workItem,omitempty"`
}

// MemoryUpdate asks the memory subsystem to record content.
type MemoryUpdate struct {
	Hook    string `json:"hook"`
	Agent   string `json:"agent,omitempty"`
	Scope   string `json:"scope,omitempty"`
	Content string `json:"content"`
}

// Status is the outcome of one hook execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result describes one hook execution.
type Result struct {
	Hook      string        `json:"hook"`
	Event     EventType     `json:"event"`
	Action    ActionType    `json:"action"`
	Agent     string        `json:"agent,omitempty"`
	Status    Status        `json:"status"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

func (r Result) String() string {
	s := r.Hook + " (" + string(r.Action) + "): " + string(r.Status)
	if r.Error != "" {
		s += ": " + r.Error
	} else if r.Output != "" {
		s += ": " + r.Output
	}
	return s + " in " + strconv.FormatInt(r.Duration.Milliseconds(), 10) + "ms"
}

// Journal records hook executions.
type Journal interface {
	Record(ctx context.Context, r Result) error
}

// Observer receives engine notifications.
type Observer interface {
	SpawnRequested(req SpawnRequest)
	MemoryUpdateRequested(req MemoryUpdate)
	HookExecuted(r Result)
	HookFailed(r Result)
	HooksReloaded(count int)
}

type nopObserver struct{}

func (nopObserver) SpawnRequested(SpawnRequest)        {}
func (nopObserver) MemoryUpdateRequested(MemoryUpdate) {}
func (nopObserver) HookExecuted(Result)                {}
func (nopObserver) HookFailed(Result)                  {}
func (nopObserver) HooksReloaded(int)                  {}

// Loader returns the configured hooks.
type Loader func(ctx context.Context) ([]Hook, error)

// Static returns a Loader that always yields hooks.
func Static(hooks []Hook) Loader {
	return func(context.Context) ([]Hook, error) { return hooks, nil }
}
