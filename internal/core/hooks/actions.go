package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/colonyops/comb/internal/core/mailbox"
)

// HumanRecipient routes sendMessage to the human channel instead of the
// mailbox.
const HumanRecipient = "human"

// OrchestratorAgent receives prompt responses when the event has no agent.
const OrchestratorAgent = "orchestrator"

var (
	ErrNoMailbox = errors.New("no mailbox configured")
	ErrNoHuman   = errors.New("no human channel configured")
	ErrNoRunner  = errors.New("no command runner configured")
)

// run performs h's action and returns a short description of the outcome.
func (e *Engine) run(ctx context.Context, h Hook, vars map[string]string) (string, error) {
	a := h.Action
	in := func(s string) string { return Interpolate(s, vars) }

	switch a.Type {
	case ActionSpawnAgent:
		req := SpawnRequest{
			Hook:      h.Name,
			AgentName: in(a.AgentName),
			Role:      in(a.Role),
			Task:      in(a.Task),
			WorkItem:  in(a.WorkItem),
		}
		e.obs.SpawnRequested(req)
		return "spawn requested for " + firstNonEmpty(req.AgentName, req.Role), nil

	case ActionSendMessage:
		return e.sendMessage(ctx, h, in)

	case ActionPromptHuman:
		return e.promptHuman(ctx, h, vars, in)

	case ActionRunCommand:
		if e.runner == nil {
			return "", ErrNoRunner
		}
		res, err := e.runner.Run(ctx, in(a.Command), in(a.Cwd), a.Wait)
		if err != nil {
			return strings.TrimSpace(res.Output), err
		}
		if !a.Wait {
			return "command started", nil
		}
		return strings.TrimSpace(res.Output), nil

	case ActionUpdateMemory:
		req := MemoryUpdate{
			Hook:    h.Name,
			Agent:   vars["agent.name"],
			Scope:   in(a.Scope),
			Content: in(a.Content),
		}
		e.obs.MemoryUpdateRequested(req)
		return "memory update requested", nil

	default:
		return "", fmt.Errorf("unknown action type %q", a.Type)
	}
}

func (e *Engine) sendMessage(ctx context.Context, h Hook, in func(string) string) (string, error) {
	a := h.Action
	to := in(a.To)
	from := in(a.From)
	if from == "" {
		from = "hook:" + h.Name
	}

	if to == HumanRecipient {
		if e.human == nil {
			return "", ErrNoHuman
		}
		err := e.human.Notify(ctx, Notification{
			Hook:    h.Name,
			From:    from,
			Subject: in(a.Subject),
			Body:    in(a.Body),
		})
		if err != nil {
			return "", fmt.Errorf("notify human: %w", err)
		}
		return "human notified", nil
	}

	if e.mailbox == nil {
		return "", ErrNoMailbox
	}
	msg, err := e.mailbox.Send(ctx, mailbox.Message{
		From:    from,
		To:      to,
		Subject: in(a.Subject),
		Body:    in(a.Body),
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return "message " + msg.ID + " sent to " + to, nil
}

func (e *Engine) promptHuman(ctx context.Context, h Hook, vars map[string]string, in func(string) string) (string, error) {
	if e.human == nil {
		return "", ErrNoHuman
	}
	a := h.Action

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = e.promptTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	choices := make([]string, len(a.Choices))
	for i, c := range a.Choices {
		choices[i] = in(c)
	}

	prompt := Prompt{
		Hook:    h.Name,
		Agent:   vars["agent.name"],
		Kind:    a.PromptType,
		Message: in(a.Message),
		Choices: choices,
	}
	resp, err := e.human.Prompt(pctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("prompt timed out after %s", timeout)
		}
		return "", fmt.Errorf("prompt human: %w", err)
	}

	answer := resp.Text(a.PromptType)
	if e.mailbox == nil {
		return answer, ErrNoMailbox
	}

	to := firstNonEmpty(prompt.Agent, OrchestratorAgent)
	_, err = e.mailbox.Send(ctx, mailbox.Message{
		From:    HumanRecipient,
		To:      to,
		Subject: fmt.Sprintf("Human %s: %s", a.PromptType, firstLine(prompt.Message)),
		Body:    answer,
	})
	if err != nil {
		return answer, fmt.Errorf("deliver response: %w", err)
	}
	return answer, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	const maxLen = 72
	if r := []rune(s); len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return s
}
