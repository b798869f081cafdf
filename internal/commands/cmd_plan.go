package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/task"
	"github.com/colonyops/daybook/internal/planner"
)

type PlanCmd struct {
	flags *Flags
	app   *planner.App

	date      string
	json      bool
	timeLimit time.Duration
}

// NewPlanCmd creates a new plan command.
func NewPlanCmd(flags *Flags, app *planner.App) *PlanCmd {
	return &PlanCmd{flags: flags, app: app}
}

// Register adds the plan command to the application.
func (cmd *PlanCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "plan",
		Usage:     "Place outstanding work into the day's blocks",
		UsageText: "daybook plan [--date <date>] [--time-limit <duration>] [--json]",
		Description: `Splits each open task's remaining work into chunks and assigns them to
blocks, maximizing the total rating of the placements. Chunks placed by an
earlier run keep their blocks. Work that does not fit stays unplaced and
is carried to the next day that is planned.

Examples:
  daybook plan
  daybook plan --date tomorrow
  daybook plan --time-limit 10s --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "date",
				Aliases:     []string{"d"},
				Usage:       "scheduling date (YYYY-MM-DD, today, tomorrow, yesterday)",
				Destination: &cmd.date,
			},
			&cli.DurationFlag{
				Name:        "time-limit",
				Usage:       "solver time budget (overrides allocation.time_limit)",
				Destination: &cmd.timeLimit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.json,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *PlanCmd) run(ctx context.Context, c *cli.Command) error {
	date, err := parseDate(cmd.date, cmd.app.Today())
	if err != nil {
		return err
	}

	if c.IsSet("time-limit") {
		if cmd.timeLimit <= 0 {
			return fmt.Errorf("--time-limit must be positive")
		}
		cfg := *cmd.flags.Config
		cfg.Allocation.TimeLimit = cmd.timeLimit
		cmd.app.Schedule.Reconfigure(&cfg)
	}

	res, err := cmd.app.Schedule.Plan(ctx, date)
	if err != nil {
		return fmt.Errorf("plan %s: %w", date.Format(time.DateOnly), err)
	}

	if cmd.json {
		return writeJSON(c, res)
	}

	tasks, err := cmd.app.Tasks.List(ctx, task.ListFilter{})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	byID := make(map[int64]task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	printf(c, "%s", newRenderer(c, cmd.flags.Config).Plan(res.Schedule, res.Plan, byID))
	return nil
}
