package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/task"
	"github.com/colonyops/daybook/internal/core/validate"
	"github.com/colonyops/daybook/internal/planner"
	"github.com/colonyops/daybook/internal/render"
)

// ChunkCmd implements the daybook chunk command group.
type ChunkCmd struct {
	flags *Flags
	app   *planner.App

	// list flags
	date   string
	taskID int
	json   bool
}

// NewChunkCmd creates a new chunk command.
func NewChunkCmd(flags *Flags, app *planner.App) *ChunkCmd {
	return &ChunkCmd{flags: flags, app: app}
}

// Register adds the chunk command to the application.
func (cmd *ChunkCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "chunk",
		Usage: "Work with the chunks planned for a day",
		Description: `Chunks are pieces of a task's outstanding work. Planning creates and places
them; these commands record what actually happened.

Examples:
  daybook chunk ls
  daybook chunk complete k3v9q2xa
  daybook chunk fail k3v9q2xa          # work returns to the task
  daybook chunk split k3v9q2xa 2 1     # two thirds and one third
  daybook chunk rm k3v9q2xa`,
		Commands: []*cli.Command{
			cmd.listCmd(),
			cmd.splitCmd(),
			cmd.statusCmd("complete", "Mark a chunk done and log its work on the task", cmd.runComplete),
			cmd.statusCmd("flag", "Mark a chunk as needing attention", cmd.runFlag),
			cmd.statusCmd("fail", "Mark a chunk as not done; its work is planned again", cmd.runFail),
			cmd.statusCmd("unlock", "Activate a locked chunk whose date has arrived", cmd.runUnlock),
			cmd.removeCmd(),
		},
	})

	return app
}

func (cmd *ChunkCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List chunks",
		UsageText: "daybook chunk ls [--date <date>] [--task <id>] [--json]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "scheduling date (default today)", Destination: &cmd.date},
			&cli.IntFlag{Name: "task", Usage: "only chunks of this task, on any date", Destination: &cmd.taskID},
			&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.json},
		},
		Action: cmd.runList,
	}
}

func (cmd *ChunkCmd) splitCmd() *cli.Command {
	return &cli.Command{
		Name:          "split",
		Usage:         "Split an auto chunk by ratios",
		UsageText:     "daybook chunk split <id> <ratio> [<ratio>...]",
		ShellComplete: ChunkIDCompleter(cmd.app),
		Description: `Splits an unplaced auto chunk into parts weighted by the ratios. Parts stay
within the task's chunk size limits and always add up to the original size.`,
		Action: cmd.runSplit,
	}
}

func (cmd *ChunkCmd) statusCmd(name, usage string, action cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:          name,
		Usage:         usage,
		UsageText:     fmt.Sprintf("daybook chunk %s <id>", name),
		ShellComplete: ChunkIDCompleter(cmd.app),
		Action:        action,
	}
}

func (cmd *ChunkCmd) removeCmd() *cli.Command {
	return &cli.Command{
		Name:          "remove",
		Aliases:       []string{"rm"},
		Usage:         "Delete a chunk",
		UsageText:     "daybook chunk rm <id>",
		ShellComplete: ChunkIDCompleter(cmd.app),
		Description: `Deletes a chunk. Removing a completed chunk takes its work back out of the
task's progress.`,
		Action: cmd.runRemove,
	}
}

func (cmd *ChunkCmd) runList(ctx context.Context, c *cli.Command) error {
	filter := chunk.ListFilter{TaskID: int64(cmd.taskID)}
	if cmd.taskID == 0 || c.IsSet("date") {
		date, err := parseDate(cmd.date, cmd.app.Today())
		if err != nil {
			return err
		}
		filter.Date = &date
	}

	chunks, err := cmd.app.Chunks.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	if cmd.json {
		return writeLines(c, chunks)
	}

	tasks, err := cmd.taskTitles(ctx, chunks)
	if err != nil {
		return err
	}
	printf(c, "%s", newRenderer(c, cmd.flags.Config).Chunks(chunks, tasks))
	return nil
}

func (cmd *ChunkCmd) taskTitles(ctx context.Context, chunks []chunk.Chunk) (map[int64]task.Task, error) {
	tasks := make(map[int64]task.Task)
	for _, ch := range chunks {
		if _, ok := tasks[ch.TaskID]; ok {
			continue
		}
		t, err := cmd.app.Tasks.Get(ctx, ch.TaskID)
		if err != nil {
			return nil, fmt.Errorf("load task %d: %w", ch.TaskID, err)
		}
		tasks[t.ID] = t
	}
	return tasks, nil
}

func (cmd *ChunkCmd) runSplit(ctx context.Context, c *cli.Command) error {
	args := c.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("usage: daybook chunk split <id> <ratio> [<ratio>...]")
	}

	ratios := make([]float64, len(args)-1)
	errs := []error{validate.ChunkIDField("id", args[0])}
	for i, raw := range args[1:] {
		errs = append(errs, criterio.Run(fmt.Sprintf("ratio[%d]", i), raw, func(s string) error {
			r, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("%q is not a number", s)
			}
			ratios[i] = r
			return nil
		}))
	}
	if err := criterio.ValidateStruct(errs...); err != nil {
		return err
	}

	parts, err := cmd.app.Chunks.Split(ctx, args[0], ratios)
	if err != nil {
		return err
	}

	for _, p := range parts {
		printf(c, "%s  %s\n", p.ID, render.Quantity(p.Size, p.Unit))
	}
	return nil
}

func (cmd *ChunkCmd) runComplete(ctx context.Context, c *cli.Command) error {
	id, err := chunkArg(c)
	if err != nil {
		return err
	}

	done, t, err := cmd.app.Chunks.Complete(ctx, id)
	if err != nil {
		return err
	}

	printf(c, "completed %s (%s); %s has %s left\n",
		done.ID, render.Quantity(done.Size, done.Unit), t.Title, render.Quantity(t.Remaining(), chunk.UnitOf(t)))
	return nil
}

func (cmd *ChunkCmd) runFlag(ctx context.Context, c *cli.Command) error {
	return cmd.runTransition(ctx, c, cmd.app.Chunks.Flag)
}

func (cmd *ChunkCmd) runFail(ctx context.Context, c *cli.Command) error {
	return cmd.runTransition(ctx, c, cmd.app.Chunks.Fail)
}

func (cmd *ChunkCmd) runUnlock(ctx context.Context, c *cli.Command) error {
	return cmd.runTransition(ctx, c, cmd.app.Chunks.Unlock)
}

func (cmd *ChunkCmd) runTransition(ctx context.Context, c *cli.Command, fn func(context.Context, string) (chunk.Chunk, error)) error {
	id, err := chunkArg(c)
	if err != nil {
		return err
	}

	ch, err := fn(ctx, id)
	if err != nil {
		return err
	}

	printf(c, "%s is now %s\n", ch.ID, ch.Status)
	return nil
}

func (cmd *ChunkCmd) runRemove(ctx context.Context, c *cli.Command) error {
	id, err := chunkArg(c)
	if err != nil {
		return err
	}

	if err := cmd.app.Chunks.Remove(ctx, id); err != nil {
		return err
	}

	printf(c, "deleted chunk %s\n", id)
	return nil
}

func chunkArg(c *cli.Command) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one chunk id")
	}
	id := c.Args().First()
	if err := validate.ChunkID(id); err != nil {
		return "", err
	}
	return id, nil
}
