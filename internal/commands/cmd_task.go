package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/task"
	"github.com/colonyops/daybook/internal/core/validate"
	"github.com/colonyops/daybook/internal/planner"
	"github.com/colonyops/daybook/pkg/iojson"
)

// TaskCmd implements the daybook task command group.
type TaskCmd struct {
	flags *Flags
	app   *planner.App

	// add and edit flags
	title      string
	priority   int
	estimate   float64
	count      float64
	categories []string
	recur      []string
	manual     bool
	minChunk   float64
	maxChunk   float64
	due        string

	// list flags
	all    bool
	status string
	json   bool

	importer iojson.FileReader[task.Task]
}

// NewTaskCmd creates a new task command.
func NewTaskCmd(flags *Flags, app *planner.App) *TaskCmd {
	return &TaskCmd{flags: flags, app: app}
}

// Register adds the task command to the application.
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "task",
		Usage: "Manage tasks",
		Description: `Tasks carry outstanding work, either in hours (--estimate) or in items
(--count). Planning splits that work into chunks and places them in blocks.

Examples:
  daybook task add -t "Write report" --estimate 4 --priority 3 --due 2025-01-10
  daybook task add -t "Pushups" --count 50 --recur 1 --category health
  daybook task add -t "Weekly review" --estimate 1 --recur mon --manual
  daybook task edit 4 --estimate 6
  daybook task ls --all
  daybook task import -f tasks.jsonl
  daybook task rm 4`,
		Commands: []*cli.Command{
			cmd.addCmd(),
			cmd.editCmd(),
			cmd.listCmd(),
			cmd.removeCmd(),
			cmd.importCmd(),
		},
	})

	return app
}

func (cmd *TaskCmd) workFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "priority", Aliases: []string{"p"}, Usage: fmt.Sprintf("priority 0..%d, higher is more important", task.MaxPriority), Destination: &cmd.priority},
		&cli.FloatFlag{Name: "estimate", Aliases: []string{"e"}, Usage: "estimated hours of work", Destination: &cmd.estimate},
		&cli.FloatFlag{Name: "count", Usage: "number of items to complete, for counted tasks", Destination: &cmd.count},
		&cli.StringSliceFlag{Name: "category", Usage: "category used by block filters (repeatable)", Destination: &cmd.categories},
		&cli.StringSliceFlag{Name: "recur", Usage: "repeat every N days (3) or on weekdays (mon,thu)", Destination: &cmd.recur},
		&cli.BoolFlag{Name: "manual", Usage: "never split the work across blocks", Destination: &cmd.manual},
		&cli.FloatFlag{Name: "min-chunk", Usage: "smallest piece the work may be split into", Destination: &cmd.minChunk},
		&cli.FloatFlag{Name: "max-chunk", Usage: "largest piece the work may be split into", Destination: &cmd.maxChunk},
		&cli.StringFlag{Name: "due", Usage: "due date (YYYY-MM-DD)", Destination: &cmd.due},
	}
}

func (cmd *TaskCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Create a task",
		UsageText: "daybook task add --title <title> (--estimate <hours> | --count <items>) [options]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "task title", Required: true, Destination: &cmd.title},
		}, cmd.workFlags()...),
		Action: cmd.runAdd,
	}
}

func (cmd *TaskCmd) editCmd() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change a task",
		UsageText: "daybook task edit <id> [options]",
		Description: `Updates only the flags given. Unplaced chunks of the task are dropped so
the next plan run works from the new numbers.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "task title", Destination: &cmd.title},
		}, cmd.workFlags()...),
		Action: cmd.runEdit,
	}
}

func (cmd *TaskCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List tasks",
		UsageText: "daybook task ls [--all] [--status <status>] [--json]",
		Description: `Lists open tasks by default. Use --all to include completed, failed and
skipped tasks, or --status to pick one status.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "include closed tasks", Destination: &cmd.all},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "filter by status (not_started, in_progress, completed, failed, skipped)", Destination: &cmd.status},
			&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.json},
		},
		Action: cmd.runList,
	}
}

func (cmd *TaskCmd) removeCmd() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Delete a task and its chunks",
		UsageText: "daybook task rm <id>",
		Action:    cmd.runRemove,
	}
}

func (cmd *TaskCmd) importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create tasks from JSON lines",
		UsageText: "daybook task import [-f <file>]",
		Description: `Reads one task per JSON value, in the format printed by "daybook task ls --json".
IDs and timestamps in the input are ignored.

Examples:
  daybook task import -f tasks.jsonl
  daybook task ls --json | daybook --data-dir /tmp/other task import`,
		Flags:  []cli.Flag{cmd.importer.Flag()},
		Action: cmd.runImport,
	}
}

func (cmd *TaskCmd) runAdd(ctx context.Context, c *cli.Command) error {
	t := task.Task{}
	if err := cmd.applyFlags(c, &t); err != nil {
		return err
	}

	if err := cmd.app.Tasks.Create(ctx, &t); err != nil {
		return err
	}

	printf(c, "created task %d %s\n", t.ID, t.Title)
	return nil
}

func (cmd *TaskCmd) runEdit(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: daybook task edit <id> [options]")
	}
	id, err := parseID(c.Args().First(), "task")
	if err != nil {
		return err
	}

	t, err := cmd.app.Tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := cmd.applyFlags(c, &t); err != nil {
		return err
	}

	if err := cmd.app.Tasks.Update(ctx, t); err != nil {
		return err
	}

	printf(c, "updated task %d %s\n", t.ID, t.Title)
	return nil
}

// applyFlags copies every flag the user set onto t.
func (cmd *TaskCmd) applyFlags(c *cli.Command, t *task.Task) error {
	if c.IsSet("title") {
		if err := validate.Title(cmd.title); err != nil {
			return err
		}
		t.Title = cmd.title
	}
	if c.IsSet("priority") {
		t.Priority = cmd.priority
	}
	if c.IsSet("estimate") {
		t.Estimate = cmd.estimate
	}
	if c.IsSet("count") {
		t.CountRequired = cmd.count
	}
	if c.IsSet("category") {
		t.Categories = splitList(cmd.categories)
	}
	if c.IsSet("recur") {
		r, err := task.ParseRecurrence(splitList(cmd.recur))
		if err != nil {
			return fmt.Errorf("invalid --recur: %w", err)
		}
		t.Recurrence = r
	}
	if c.IsSet("manual") {
		t.ChunkPreference = task.ChunkAuto
		if cmd.manual {
			t.ChunkPreference = task.ChunkManual
		}
	}
	if c.IsSet("min-chunk") {
		t.MinChunk = cmd.minChunk
	}
	if c.IsSet("max-chunk") {
		t.MaxChunk = cmd.maxChunk
	}
	if c.IsSet("due") {
		t.Due = nil
		if cmd.due != "" {
			due, err := parseDate(cmd.due, cmd.app.Today())
			if err != nil {
				return err
			}
			t.Due = &due
		}
	}

	if t.Estimate > 0 && t.CountRequired > 0 {
		return fmt.Errorf("a task is measured either in hours (--estimate) or in items (--count), not both")
	}
	return nil
}

func (cmd *TaskCmd) runList(ctx context.Context, c *cli.Command) error {
	filter := task.ListFilter{Open: !cmd.all}
	if cmd.status != "" {
		status := task.Status(cmd.status)
		if !status.IsValid() {
			return fmt.Errorf("invalid status %q: must be one of not_started, in_progress, completed, failed, skipped", cmd.status)
		}
		filter = task.ListFilter{Status: status}
	}

	tasks, err := cmd.app.Tasks.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if cmd.json {
		return writeLines(c, tasks)
	}

	printf(c, "%s", newRenderer(c, cmd.flags.Config).Tasks(tasks))
	return nil
}

func (cmd *TaskCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: daybook task rm <id>")
	}
	id, err := parseID(c.Args().First(), "task")
	if err != nil {
		return err
	}

	if err := cmd.app.Tasks.Delete(ctx, id); err != nil {
		return err
	}

	printf(c, "deleted task %d\n", id)
	return nil
}

func (cmd *TaskCmd) runImport(ctx context.Context, c *cli.Command) error {
	tasks, err := cmd.importer.ReadAll()
	if err != nil {
		return err
	}

	for i := range tasks {
		t := tasks[i]
		t.ID, t.CreatedAt = 0, time.Time{}
		if err := cmd.app.Tasks.Create(ctx, &t); err != nil {
			return fmt.Errorf("import task %d (%q): %w", i+1, t.Title, err)
		}
	}

	printf(c, "imported %d tasks\n", len(tasks))
	return nil
}
