// Package human reaches the operator from hook actions: notifications are
// printed as banners and prompts are answered through interactive forms.
package human

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/styles"
)

// ErrNoTerminal is returned by Prompt when stdin is not attached to a terminal.
var ErrNoTerminal = errors.New("human: no interactive terminal")

// AskFunc collects an answer for p.
type AskFunc func(ctx context.Context, p hooks.Prompt) (hooks.Response, error)

// Options configures a Channel. Zero values select the process terminal.
type Options struct {
	Out         io.Writer
	Interactive func() bool
	Ask         AskFunc
}

// Channel implements hooks.HumanChannel for a local operator. Prompts are
// answered one at a time; notifications raised while a prompt is open are
// printed once it closes.
type Channel struct {
	out         *heldWriter
	sem         chan struct{}
	interactive func() bool
	ask         AskFunc
	log         zerolog.Logger
}

var _ hooks.HumanChannel = (*Channel)(nil)

// New creates a Channel.
func New(opts Options, log zerolog.Logger) *Channel {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	c := &Channel{
		out:         &heldWriter{w: opts.Out},
		sem:         make(chan struct{}, 1),
		interactive: opts.Interactive,
		ask:         opts.Ask,
		log:         log.With().Str("component", "human").Logger(),
	}
	if c.interactive == nil {
		c.interactive = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	}
	if c.ask == nil {
		c.ask = askForm
	}
	return c
}

// Notify prints n as a banner.
func (c *Channel) Notify(_ context.Context, n hooks.Notification) error {
	c.log.Debug().Str("hook", n.Hook).Str("from", n.From).Msg("notify")

	_, err := fmt.Fprintln(c.out, Banner(n))
	return err
}

// Prompt asks the operator and blocks until they answer or ctx is done.
func (c *Channel) Prompt(ctx context.Context, p hooks.Prompt) (hooks.Response, error) {
	if p.Kind == hooks.PromptChoice && len(p.Choices) == 0 {
		return hooks.Response{}, fmt.Errorf("human: choice prompt from hook %q has no choices", p.Hook)
	}
	if !c.interactive() {
		return hooks.Response{}, ErrNoTerminal
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return hooks.Response{}, ctx.Err()
	}
	defer func() { <-c.sem }()

	c.out.hold()
	defer func() {
		if err := c.out.release(); err != nil {
			c.log.Warn().Err(err).Msg("failed to print held notifications")
		}
	}()

	resp, err := c.ask(ctx, p)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return hooks.Response{}, fmt.Errorf("human: prompt from hook %q aborted: %w", p.Hook, err)
		}
		return hooks.Response{}, err
	}
	return resp, nil
}

// Banner renders n with the active theme.
func Banner(n hooks.Notification) string {
	title := styles.IconBell + " "
	if n.Subject != "" {
		title += n.Subject
	} else {
		title += "message from " + n.From
	}

	lines := []string{styles.BannerTitleStyle.Render(title)}
	if n.Body != "" {
		lines = append(lines, strings.TrimRight(n.Body, "\n"))
	}
	if n.Hook != "" || n.From != "" {
		lines = append(lines, styles.MutedStyle.Render(meta(n)))
	}
	return styles.BannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func meta(n hooks.Notification) string {
	var parts []string
	if n.From != "" {
		parts = append(parts, "from "+n.From)
	}
	if n.Hook != "" {
		parts = append(parts, "hook "+n.Hook)
	}
	return strings.Join(parts, " · ")
}

func askForm(ctx context.Context, p hooks.Prompt) (hooks.Response, error) {
	var resp hooks.Response
	form := buildForm(p, &resp)
	if err := form.RunWithContext(ctx); err != nil {
		return hooks.Response{}, err
	}
	return resp, nil
}

// buildForm returns the form for p, bound to resp.
func buildForm(p hooks.Prompt, resp *hooks.Response) *huh.Form {
	title := p.Message
	desc := "requested by " + p.Agent
	if p.Agent == "" {
		desc = "requested by hook " + p.Hook
	}

	var field huh.Field
	switch p.Kind {
	case hooks.PromptInput:
		field = huh.NewInput().
			Title(title).
			Description(desc).
			Value(&resp.Value)
	case hooks.PromptChoice:
		opts := huh.NewOptions(p.Choices...)
		field = huh.NewSelect[string]().
			Title(title).
			Description(desc).
			Options(opts...).
			Value(&resp.Value)
	default:
		field = huh.NewConfirm().
			Title(title).
			Description(desc).
			Affirmative("Approve").
			Negative("Reject").
			Value(&resp.Approved)
	}

	return huh.NewForm(huh.NewGroup(field))
}
