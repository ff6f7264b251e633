package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/styles"
	"github.com/colonyops/comb/internal/data/stores"
	"github.com/colonyops/comb/internal/hive"
	"github.com/colonyops/comb/pkg/iojson"
)

type HooksCmd struct {
	flags *Flags
	app   *hive.App

	// trigger flags
	agent   string
	file    string
	vars    []string
	context iojson.FileReader[hooks.EventContext]

	// history flags
	hook   string
	status string
	limit  int
}

// NewHooksCmd creates a new hooks command.
func NewHooksCmd(flags *Flags, app *hive.App) *HooksCmd {
	return &HooksCmd{flags: flags, app: app}
}

// Register adds the hooks command to the application.
func (cmd *HooksCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "hooks",
		Usage: "Inspect and trigger automation hooks",
		Description: `Hooks are configured under "hooks:" in the config file. Each hook pairs a
trigger with optional conditions and one action. Runs are journaled in
<data-dir>/comb.db.`,
		Commands: []*cli.Command{
			cmd.lsCmd(),
			cmd.triggerCmd(),
			cmd.historyCmd(),
		},
	})

	return app
}

func (cmd *HooksCmd) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List enabled hooks in execution order",
		UsageText: "comb hooks ls",
		Action: func(_ context.Context, c *cli.Command) error {
			return cmd.flags.render(c, cmd.app.Toolkit.ListHooks(), hookTable)
		},
	}
}

func (cmd *HooksCmd) triggerCmd() *cli.Command {
	return &cli.Command{
		Name:      "trigger",
		Usage:     "Fire an event and run the matching hooks",
		UsageText: "comb hooks trigger <event> [--agent <name>] [--file-path <path>] [--var key=value] [-f context.json]",
		Description: `Runs every hook matching <event> and waits for them to finish.

The event context can be given as JSON with -f (or on stdin) using the shape
{"agent": {"name": "coder-1", "status": "error"}, "file": {"path": "..."}}.
--agent, --file-path and --var are applied on top.

Events: agentStarted, agentFinished, agentError, fileSaved, fileCreated,
fileDeleted, buildCompleted, testCompleted, messageReceived, workItemMoved,
manual.

Examples:
  comb hooks trigger manual --agent coder-1
  comb hooks trigger fileSaved --file-path src/api/handler.go
  echo '{"build":{"status":"failed"}}' | comb hooks trigger buildCompleted`,
		Flags: []cli.Flag{
			cmd.context.Flag(),
			&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "agent.name for the event", Destination: &cmd.agent},
			&cli.StringFlag{Name: "file-path", Usage: "file.path for file events", Destination: &cmd.file},
			&cli.StringSliceFlag{Name: "var", Usage: "free-form variable key=value (repeatable)", Destination: &cmd.vars},
		},
		ShellComplete: func(ctx context.Context, c *cli.Command) {
			if completingFlag(c) {
				cli.DefaultCompleteWithFlags(ctx, c)
				return
			}
			for _, e := range hooks.EventTypes() {
				_, _ = fmt.Fprintln(c.Root().Writer, e)
			}
		},
		Action: cmd.runTrigger,
	}
}

func (cmd *HooksCmd) runTrigger(ctx context.Context, c *cli.Command) error {
	event, err := requireArg(c, "event type")
	if err != nil {
		return err
	}

	ec, _, err := cmd.context.ReadOptional()
	if err != nil {
		return err
	}
	if cmd.agent != "" {
		if ec.Agent == nil {
			ec.Agent = &hooks.AgentInfo{}
		}
		ec.Agent.Name = cmd.agent
	}
	if cmd.file != "" {
		if ec.File == nil {
			ec.File = &hooks.FileInfo{}
		}
		ec.File.Path = cmd.file
	}
	for _, kv := range cmd.vars {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid --var %q: expected key=value", kv)
		}
		if ec.Vars == nil {
			ec.Vars = make(map[string]string)
		}
		ec.Vars[k] = v
	}

	return cmd.flags.render(c, cmd.app.Toolkit.TriggerHooks(ctx, event, ec), nil)
}

func (cmd *HooksCmd) historyCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show journaled hook runs, newest first",
		UsageText: "comb hooks history [--hook <name>] [--status success|failure] [--limit N]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "hook", Usage: "only runs of this hook", Destination: &cmd.hook},
			&cli.StringFlag{Name: "status", Usage: "success or failure", Destination: &cmd.status},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "maximum number of runs", Value: 50, Destination: &cmd.limit},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			st := hooks.Status(cmd.status)
			if st != "" && st != hooks.StatusSuccess && st != hooks.StatusFailure {
				return fmt.Errorf("invalid --status %q: expected success or failure", cmd.status)
			}
			f := stores.HistoryFilter{Hook: cmd.hook, Status: st, Limit: cmd.limit}
			return cmd.flags.render(c, cmd.app.Toolkit.HookHistory(ctx, f), historyTable)
		},
	}
}

func hookTable(data any) ([]string, [][]string) {
	hs, _ := data.([]hooks.Hook)
	rows := make([][]string, 0, len(hs))
	for _, h := range hs {
		filter := h.Trigger.Agent
		if h.Trigger.PathPattern != "" {
			filter = h.Trigger.PathPattern
		}
		rows = append(rows, []string{
			h.Name,
			strconv.Itoa(h.EffectivePriority()),
			string(h.Trigger.Type),
			filter,
			strconv.Itoa(len(h.Conditions)),
			string(h.Action.Type),
		})
	}
	return []string{"Name", "Priority", "Trigger", "Filter", "Conditions", "Action"}, rows
}

func historyTable(data any) ([]string, [][]string) {
	runs, _ := data.([]stores.HookRun)
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		detail := r.Output
		if r.Error != "" {
			detail = r.Error
		}
		status := styles.SuccessStyle.Render(string(r.Status))
		if r.Status == hooks.StatusFailure {
			status = styles.ErrorStyle.Render(string(r.Status))
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Hook,
			string(r.Event),
			r.Agent,
			status,
			r.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	return []string{"Started", "Hook", "Event", "Agent", "Status", "Duration", "Detail"}, rows
}
