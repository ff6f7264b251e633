package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/comb/internal/core/styles"
	"github.com/colonyops/comb/internal/core/workitem"
	"github.com/colonyops/comb/internal/hive"
)

type ItemCmd struct {
	flags *Flags
	app   *hive.App

	title       string
	description string
	priority    string
	itemType    string
	assignee    string
	reviewer    string
	tags        []string
	estimate    float64
	featureRef  string
	criteria    []string

	status string
	tag    string
	author string
	reason string
}

// NewItemCmd creates a new item command.
func NewItemCmd(flags *Flags, app *hive.App) *ItemCmd {
	return &ItemCmd{flags: flags, app: app}
}

// Register adds the item command to the application.
func (cmd *ItemCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "item",
		Aliases: []string{"wi"},
		Usage:   "Manage kanban work items",
		Description: `Work items are markdown files under <data-dir>/workitems/<status>/.
The directory an item lives in is its status; moving an item moves its file.

Statuses: todo, doing, code-review, done, cancelled.`,
		Commands: []*cli.Command{
			cmd.createCmd(),
			cmd.lsCmd(),
			cmd.showCmd(),
			cmd.moveCmd(),
			cmd.assignCmd(),
			cmd.unassignCmd(),
			cmd.updateCmd(),
			cmd.noteCmd(),
			cmd.cancelCmd(),
			cmd.rmCmd(),
		},
	})

	return app
}

func (cmd *ItemCmd) fieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "description markdown", Destination: &cmd.description},
		&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "critical, high, medium or low", Destination: &cmd.priority},
		&cli.StringFlag{Name: "type", Usage: "story or task", Destination: &cmd.itemType},
		&cli.StringFlag{Name: "assignee", Usage: "assigned agent", Destination: &cmd.assignee},
		&cli.StringFlag{Name: "reviewer", Usage: "reviewing agent", Destination: &cmd.reviewer},
		&cli.StringSliceFlag{Name: "tag", Usage: "tag (repeatable)", Destination: &cmd.tags},
		&cli.FloatFlag{Name: "estimate", Usage: "estimated hours", Destination: &cmd.estimate},
		&cli.StringFlag{Name: "feature", Usage: "feature reference", Destination: &cmd.featureRef},
	}
}

func (cmd *ItemCmd) createCmd() *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "item title", Required: true, Destination: &cmd.title},
		&cli.StringSliceFlag{Name: "criteria", Usage: "acceptance criterion (repeatable)", Destination: &cmd.criteria},
	}, cmd.fieldFlags()...)

	return &cli.Command{
		Name:      "create",
		Usage:     "Create a work item in todo",
		UsageText: "comb item create --title <title> [options]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			in := workitem.CreateInput{
				Title:              cmd.title,
				Description:        cmd.description,
				Priority:           cmd.priority,
				Type:               cmd.itemType,
				Assignee:           cmd.assignee,
				Reviewer:           cmd.reviewer,
				Tags:               cmd.tags,
				FeatureRef:         cmd.featureRef,
				AcceptanceCriteria: cmd.criteria,
			}
			if c.IsSet("estimate") {
				in.EstimatedHours = &cmd.estimate
			}
			return cmd.flags.render(c, cmd.app.Toolkit.CreateWorkItem(ctx, in), nil)
		},
	}
}

func (cmd *ItemCmd) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List work items",
		UsageText: "comb item ls [--status <status>] [--assignee <agent>] [--tag <tag>]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "only items in status", Destination: &cmd.status},
			&cli.StringFlag{Name: "assignee", Usage: "only items assigned to agent", Destination: &cmd.assignee},
			&cli.StringFlag{Name: "tag", Usage: "only items with tag", Destination: &cmd.tag},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			f := workitem.Filter{Assignee: cmd.assignee, Tag: cmd.tag}
			if cmd.status != "" {
				st, err := workitem.ParseStatus(cmd.status)
				if err != nil {
					return err
				}
				f.Status = st
			}
			return cmd.flags.render(c, cmd.app.Toolkit.ListWorkItems(ctx, f), itemTable)
		},
	}
}

func (cmd *ItemCmd) showCmd() *cli.Command {
	return &cli.Command{
		Name:          "show",
		Usage:         "Show a work item",
		UsageText:     "comb item show <id>",
		ShellComplete: WorkItemIDCompleter(cmd.app),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireArg(c, "work item id")
			if err != nil {
				return err
			}
			return cmd.flags.render(c, cmd.app.Toolkit.GetWorkItem(ctx, id), nil)
		},
	}
}

func (cmd *ItemCmd) moveCmd() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Aliases:   []string{"mv"},
		Usage:     "Move a work item to another status",
		UsageText: "comb item move <id> <status>",
		ShellComplete: func(ctx context.Context, c *cli.Command) {
			if c.NArg() >= 1 {
				StatusCompleter(ctx, c)
				return
			}
			WorkItemIDCompleter(cmd.app)(ctx, c)
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() < 2 {
				return fmt.Errorf("work item id and status are required")
			}
			return cmd.flags.render(c, cmd.app.Toolkit.MoveWorkItem(ctx, c.Args().Get(0), c.Args().Get(1)), nil)
		},
	}
}

func (cmd *ItemCmd) assignCmd() *cli.Command {
	return &cli.Command{
		Name:          "assign",
		Usage:         "Assign a work item to an agent",
		UsageText:     "comb item assign <id> <agent> [--reviewer <agent>]",
		ShellComplete: WorkItemIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reviewer", Usage: "reviewing agent", Destination: &cmd.reviewer},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() < 2 {
				return fmt.Errorf("work item id and assignee are required")
			}
			return cmd.flags.render(c, cmd.app.Toolkit.AssignWorkItem(ctx, c.Args().Get(0), c.Args().Get(1), cmd.reviewer), nil)
		},
	}
}

func (cmd *ItemCmd) unassignCmd() *cli.Command {
	return &cli.Command{
		Name:          "unassign",
		Usage:         "Clear the assignee of a work item",
		UsageText:     "comb item unassign <id>",
		ShellComplete: WorkItemIDCompleter(cmd.app),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireArg(c, "work item id")
			if err != nil {
				return err
			}
			return cmd.flags.render(c, cmd.app.Toolkit.UnassignWorkItem(ctx, id), nil)
		},
	}
}

func (cmd *ItemCmd) updateCmd() *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "item title", Destination: &cmd.title},
	}, cmd.fieldFlags()...)

	return &cli.Command{
		Name:          "update",
		Usage:         "Update fields of a work item",
		UsageText:     "comb item update <id> [--title ...] [--priority ...] [--tag ...]",
		ShellComplete: WorkItemIDCompleter(cmd.app),
		Flags:         flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireArg(c, "work item id")
			if err != nil {
				return err
			}
			return cmd.flags.render(c, cmd.app.Toolkit.UpdateWorkItem(ctx, id, cmd.updateInput(c)), nil)
		},
	}
}

// updateInput includes only the flags the user set.
func (cmd *ItemCmd) updateInput(c *cli.Command) workitem.UpdateInput {
	var in workitem.UpdateInput
	str := func(name string, v *string) *string {
		if c.IsSet(name) {
			return v
		}
		return nil
	}
	in.Title = str("title", &cmd.title)
	in.Description = str("description", &cmd.description)
	in.Priority = str("priority", &cmd.priority)
	in.Type = str("type", &cmd.itemType)
	in.Assignee = str("assignee", &cmd.assignee)
	in.Reviewer = str("reviewer", &cmd.reviewer)
	in.FeatureRef = str("feature", &cmd.featureRef)
	if c.IsSet("tag") {
		in.Tags = &cmd.tags
	}
	if c.IsSet("estimate") {
		in.EstimatedHours = &cmd.estimate
	}
	return in
}

func (cmd *ItemCmd) noteCmd() *cli.Command {
	return &cli.Command{
		Name:          "note",
		Usage:         "Append a note to a work item",
		UsageText:     "comb item note -a <agent> <id> <text>",
		ShellComplete: WorkItemIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "agent",
				Aliases:     []string{"a"},
				Usage:       "note author",
				Sources:     cli.EnvVars("COMB_AGENT"),
				Value:       "human",
				Destination: &cmd.author,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() < 2 {
				return fmt.Errorf("work item id and note text are required")
			}
			text := strings.Join(c.Args().Slice()[1:], " ")
			return cmd.flags.render(c, cmd.app.Toolkit.AnnotateWorkItem(ctx, c.Args().Get(0), cmd.author, text), nil)
		},
	}
}

func (cmd *ItemCmd) cancelCmd() *cli.Command {
	return &cli.Command{
		Name:          "cancel",
		Usage:         "Cancel a work item",
		UsageText:     "comb item cancel <id> [--reason <text>]",
		ShellComplete: WorkItemIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reason", Aliases: []string{"r"}, Usage: "why the item is cancelled", Destination: &cmd.reason},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireArg(c, "work item id")
			if err != nil {
				return err
			}
			return cmd.flags.render(c, cmd.app.Toolkit.CancelWorkItem(ctx, id, cmd.reason), nil)
		},
	}
}

func (cmd *ItemCmd) rmCmd() *cli.Command {
	return &cli.Command{
		Name:          "rm",
		Usage:         "Delete a work item",
		UsageText:     "comb item rm <id>",
		ShellComplete: WorkItemIDCompleter(cmd.app),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireArg(c, "work item id")
			if err != nil {
				return err
			}
			return cmd.flags.render(c, cmd.app.Toolkit.DeleteWorkItem(ctx, id), nil)
		},
	}
}

func itemTable(data any) ([]string, [][]string) {
	items, _ := data.([]workitem.Item)
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			styles.IDStyle.Render(it.ID),
			styles.StatusStyle(string(it.Status)).Render(string(it.Status)),
			string(it.Priority),
			it.Assignee,
			it.Title,
		})
	}
	return []string{"ID", "Status", "Priority", "Assignee", "Title"}, rows
}
