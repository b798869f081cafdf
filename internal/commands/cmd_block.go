package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/task"
	"github.com/colonyops/daybook/internal/planner"
)

// BlockCmd implements the daybook block command group.
type BlockCmd struct {
	flags *Flags
	app   *planner.App

	// add flags
	name           string
	start          string
	end            string
	unavailable    bool
	color          string
	weekdays       []string
	includeCats    []string
	ignoreCats     []string
	includeTaskIDs []string
	ignoreTaskIDs  []string
	buffer         float64

	// ls flags
	json bool
}

// NewBlockCmd creates a new block command.
func NewBlockCmd(flags *Flags, app *planner.App) *BlockCmd {
	return &BlockCmd{flags: flags, app: app}
}

// Register adds the block command to the application.
func (cmd *BlockCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "block",
		Usage: "Manage time blocks",
		Description: `Blocks divide the day into named time ranges. Gaps between blocks are
filled with "Free" blocks when a day is built.

Examples:
  daybook block add --name Work --start 09:00 --end 17:00 --weekdays mon-fri
  daybook block add --name Sleep --start 23:00 --end 07:00 --unavailable
  daybook block add --name Errands --start 17:00 --end 18:00 --include "errands/**"
  daybook block ls
  daybook block rm 3`,
		Commands: []*cli.Command{
			cmd.addCmd(),
			cmd.listCmd(),
			cmd.removeCmd(),
		},
	})

	return app
}

func (cmd *BlockCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Create a time block",
		UsageText: "daybook block add --name <name> --start <HH:MM> --end <HH:MM> [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "block name", Required: true, Destination: &cmd.name},
			&cli.StringFlag{Name: "start", Usage: "start time (HH:MM)", Required: true, Destination: &cmd.start},
			&cli.StringFlag{Name: "end", Usage: "end time (HH:MM); earlier than start crosses midnight", Required: true, Destination: &cmd.end},
			&cli.BoolFlag{Name: "unavailable", Usage: "never place work in this block", Destination: &cmd.unavailable},
			&cli.StringFlag{Name: "color", Usage: "block color as r,g,b (random if omitted)", Destination: &cmd.color},
			&cli.StringSliceFlag{Name: "weekdays", Usage: "days the block applies (mon,tue or mon-fri); default every day", Destination: &cmd.weekdays},
			&cli.StringSliceFlag{Name: "include", Usage: "only accept tasks in these category globs", Destination: &cmd.includeCats},
			&cli.StringSliceFlag{Name: "ignore", Usage: "reject tasks in these category globs", Destination: &cmd.ignoreCats},
			&cli.StringSliceFlag{Name: "include-task", Usage: "only accept these task ids", Destination: &cmd.includeTaskIDs},
			&cli.StringSliceFlag{Name: "ignore-task", Usage: "reject these task ids", Destination: &cmd.ignoreTaskIDs},
			&cli.FloatFlag{Name: "buffer", Usage: "fraction of the block held back from planning, in [0, 1)", Destination: &cmd.buffer},
		},
		Action: cmd.runAdd,
	}
}

func (cmd *BlockCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List time blocks",
		UsageText: "daybook block ls [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.json},
		},
		Action: cmd.runList,
	}
}

func (cmd *BlockCmd) removeCmd() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Delete a time block",
		UsageText: "daybook block rm <id>",
		Description: `Deletes a block. Chunks placed in it go back to the unplaced pool on the
next plan run.`,
		Action: cmd.runRemove,
	}
}

func (cmd *BlockCmd) runAdd(ctx context.Context, c *cli.Command) error {
	weekdays, err := parseWeekdays(splitList(cmd.weekdays))
	if err != nil {
		return err
	}
	includeTasks, err := parseIDs(cmd.includeTaskIDs, "task")
	if err != nil {
		return err
	}
	ignoreTasks, err := parseIDs(cmd.ignoreTaskIDs, "task")
	if err != nil {
		return err
	}

	params := day.BlockParams{
		Name:     cmd.name,
		Start:    cmd.start,
		End:      cmd.end,
		Weekdays: weekdays,
		Filter: day.Filter{
			IncludeCategories: splitList(cmd.includeCats),
			IgnoreCategories:  splitList(cmd.ignoreCats),
			IncludeTasks:      includeTasks,
			IgnoreTasks:       ignoreTasks,
		},
		BufferRatio: cmd.buffer,
	}
	if cmd.unavailable {
		params.Variant = day.VariantUnavailable
	}
	if cmd.color != "" {
		col, err := day.ParseColor(cmd.color)
		if err != nil {
			return err
		}
		params.Color = &col
	}

	b, err := cmd.app.Blocks.Create(ctx, params)
	if err != nil {
		return err
	}

	printf(c, "created block %d %s %s-%s\n", b.ID, b.Name, b.Start, b.End)
	return nil
}

func (cmd *BlockCmd) runList(ctx context.Context, c *cli.Command) error {
	blocks, err := cmd.app.Blocks.List(ctx)
	if err != nil {
		return fmt.Errorf("list blocks: %w", err)
	}

	if cmd.json {
		return writeLines(c, blocks)
	}

	printf(c, "%s", newRenderer(c, cmd.flags.Config).Blocks(blocks))
	return nil
}

func (cmd *BlockCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: daybook block rm <id>")
	}
	id, err := parseID(c.Args().First(), "block")
	if err != nil {
		return err
	}

	if err := cmd.app.Blocks.Delete(ctx, id); err != nil {
		return err
	}

	printf(c, "deleted block %d\n", id)
	return nil
}

// parseWeekdays accepts weekday names and inclusive ranges like "mon-fri".
func parseWeekdays(values []string) ([]time.Weekday, error) {
	var out []time.Weekday
	seen := make(map[time.Weekday]bool)
	add := func(wd time.Weekday) {
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}

	for _, v := range values {
		from, to, isRange := strings.Cut(v, "-")
		start, ok := task.ParseWeekday(from)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", from)
		}
		if !isRange {
			add(start)
			continue
		}

		end, ok := task.ParseWeekday(to)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", to)
		}
		for wd := start; ; wd = (wd + 1) % 7 {
			add(wd)
			if wd == end {
				break
			}
		}
	}
	return out, nil
}
