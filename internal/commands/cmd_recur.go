package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/planner"
)

type RecurCmd struct {
	flags *Flags
	app   *planner.App

	json bool
}

// NewRecurCmd creates a new recur command.
func NewRecurCmd(flags *Flags, app *planner.App) *RecurCmd {
	return &RecurCmd{flags: flags, app: app}
}

// Register adds the recur command to the application.
func (cmd *RecurCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "recur",
		Usage:     "Start the next occurrence of due recurring tasks",
		UsageText: "daybook recur [--json]",
		Description: `Resets every closed recurring task whose next occurrence has come due.
This also runs at startup unless recurrence.catch_up_on_start is false.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "output rolled over tasks as JSON lines", Destination: &cmd.json},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RecurCmd) run(ctx context.Context, c *cli.Command) error {
	rolled, err := cmd.app.Recurrence.CatchUp(ctx)
	if cmd.json {
		if werr := writeLines(c, rolled); werr != nil {
			return werr
		}
	} else {
		for _, t := range rolled {
			printf(c, "rolled over %d %s (occurrence %d)\n", t.ID, t.Title, t.RecurrenceCount)
		}
		if len(rolled) == 0 && err == nil {
			printf(c, "no recurring tasks due\n")
		}
	}
	return err
}
