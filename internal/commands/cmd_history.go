package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/planner"
)

type HistoryCmd struct {
	flags *Flags
	app   *planner.App

	limit int
	json  bool
}

// NewHistoryCmd creates a new history command.
func NewHistoryCmd(flags *Flags, app *planner.App) *HistoryCmd {
	return &HistoryCmd{flags: flags, app: app}
}

// Register adds the history command to the application.
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "List past plan runs",
		UsageText: "daybook history [--limit <n>] [--json]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "number of runs to show (0 for all)", Value: 20, Destination: &cmd.limit},
			&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.json},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.limit < 0 {
		return fmt.Errorf("--limit cannot be negative")
	}

	runs, err := cmd.app.History.List(ctx, cmd.limit)
	if err != nil {
		return fmt.Errorf("list plan runs: %w", err)
	}

	if cmd.json {
		return writeLines(c, runs)
	}

	printf(c, "%s", newRenderer(c, cmd.flags.Config).Runs(runs))
	return nil
}
