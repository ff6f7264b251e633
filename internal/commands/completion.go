package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/comb/internal/core/workitem"
	"github.com/colonyops/comb/internal/hive"
)

// WorkItemIDCompleter returns a ShellCompleteFunc that suggests the ids of
// open work items as positional completions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func WorkItemIDCompleter(app *hive.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if completingFlag(cmd) {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return
		}

		items, err := app.WorkItems.List(ctx, workitem.Filter{})
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, it := range items {
			if it.Status.Terminal() {
				continue
			}
			_, _ = fmt.Fprintln(w, it.ID)
		}
	}
}

// StatusCompleter suggests work item statuses.
func StatusCompleter(ctx context.Context, cmd *cli.Command) {
	if completingFlag(cmd) {
		cli.DefaultCompleteWithFlags(ctx, cmd)
		return
	}
	for _, s := range workitem.Statuses() {
		_, _ = fmt.Fprintln(cmd.Root().Writer, s)
	}
}

func completingFlag(cmd *cli.Command) bool {
	args := cmd.Args()
	if !args.Present() {
		return false
	}
	last := args.Slice()[args.Len()-1]
	return len(last) > 0 && last[0] == '-'
}
