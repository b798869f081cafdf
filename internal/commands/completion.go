package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/planner"
)

// ChunkIDCompleter returns a ShellCompleteFunc that suggests the IDs of
// today's open chunks as positional completions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func ChunkIDCompleter(app *planner.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		// Delegate to default flag completion when typing a flag
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		today := app.Today()
		chunks, err := app.Chunks.List(ctx, chunk.ListFilter{
			Date:     &today,
			Statuses: []chunk.Status{chunk.StatusActive, chunk.StatusLocked},
		})
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, c := range chunks {
			_, _ = fmt.Fprintln(w, c.ID)
		}
	}
}
