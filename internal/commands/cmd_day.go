package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/eventbus"
	"github.com/colonyops/daybook/internal/planner"
	"github.com/colonyops/daybook/internal/render"
	"github.com/colonyops/daybook/pkg/iojson"
	"github.com/colonyops/daybook/pkg/utils"
)

// watchInterval bounds how stale a watched view gets when the only changes
// come from other daybook processes.
const watchInterval = time.Minute

type DayCmd struct {
	flags *Flags
	app   *planner.App

	date  string
	json  bool
	watch bool
}

// NewDayCmd creates a new day command.
func NewDayCmd(flags *Flags, app *planner.App) *DayCmd {
	return &DayCmd{flags: flags, app: app}
}

// Register adds the day command to the application.
func (cmd *DayCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "day",
		Usage:     "Show the block layout and chunks for a scheduling day",
		UsageText: "daybook day [--date <date>] [--json] [--watch]",
		Description: `Shows every block of the day, from the configured day start to the
same time the next morning, with the chunks placed in each block.

Examples:
  daybook day
  daybook day --date tomorrow
  daybook day --date 2025-01-06 --json
  daybook day --watch                # redraw when config.yaml changes`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "date",
				Aliases:     []string{"d"},
				Usage:       "scheduling date (YYYY-MM-DD, today, tomorrow, yesterday)",
				Destination: &cmd.date,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.json,
			},
			&cli.BoolFlag{
				Name:        "watch",
				Aliases:     []string{"w"},
				Usage:       "keep running and redraw on config changes",
				Destination: &cmd.watch,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *DayCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.watch && cmd.json {
		return fmt.Errorf("--watch cannot be combined with --json")
	}
	if cmd.watch {
		return cmd.runWatch(ctx, c)
	}
	return cmd.draw(ctx, c, c.Root().Writer)
}

func (cmd *DayCmd) draw(ctx context.Context, c *cli.Command, w io.Writer) error {
	date, err := parseDate(cmd.date, cmd.app.Today())
	if err != nil {
		return err
	}

	view, err := cmd.app.Schedule.Day(ctx, date)
	if err != nil {
		return fmt.Errorf("build day: %w", err)
	}

	if cmd.json {
		return iojson.WriteWith(w, c.Root().ErrWriter, view)
	}

	r := render.New(c.Root().Writer, cmd.flags.Config.Render.Color)
	r.HoursPerCount = cmd.flags.Config.Allocation.CountUnitHours
	_, err = io.WriteString(w, r.Day(view.Schedule, view.Chunks, view.Tasks))
	return err
}

func (cmd *DayCmd) runWatch(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only the newest config matters; the bus is the single sender.
	reloaded := make(chan *config.Config, 1)
	cmd.app.Bus.SubscribeConfigReloaded(func(p eventbus.ConfigReloadedPayload) {
		select {
		case <-reloaded:
		default:
		}
		reloaded <- p.Config
	})

	watcher, err := cmd.app.WatchConfig(cmd.flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	frame := &utils.FrameWriter{}
	for {
		if err := cmd.draw(ctx, c, frame); err != nil {
			log.Warn().Err(err).Msg("day: redraw failed")
			frame.Discard()
			_, _ = fmt.Fprintf(frame, "error: %v\n", err)
		}
		if err := frame.Flush(c.Root().Writer); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case cfg := <-reloaded:
			cmd.flags.Config = cfg
		case <-ticker.C:
		}
	}
}
