package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/eventbus/testbus"
	"github.com/colonyops/daybook/internal/data/db"
	"github.com/colonyops/daybook/internal/data/stores"
	"github.com/colonyops/daybook/internal/planner"
	"github.com/colonyops/daybook/pkg/randid"
)

var monday09 = time.Date(2025, 1, 6, 9, 0, 0, 0, time.Local)

type harness struct {
	app   *planner.App
	flags *Flags
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Render.Color = config.ColorNever

	log := zerolog.Nop()
	deps := planner.Deps{
		Tasks:  stores.NewTaskStore(database, log),
		Blocks: stores.NewBlockStore(database, log),
		Chunks: stores.NewChunkStore(database, log),
		Runs:   stores.NewRunStore(database),
		Bus:    testbus.New(t).EventBus,
		IDs:    randid.New(1, 2),
		Colors: day.NewRandomColors(3),
		Now:    func() time.Time { return monday09 },
		Log:    log,
	}

	return &harness{
		app: planner.NewApp(deps, &cfg, database),
		flags: &Flags{
			ConfigPath: filepath.Join(dir, "config.yaml"),
			DataDir:    dir,
			Config:     &cfg,
		},
	}
}

// run executes one command line against a fresh command tree, so flag
// destinations never leak between invocations.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := &cli.Command{
		Name:           "daybook",
		Writer:         &out,
		ErrWriter:      &out,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	root = NewDayCmd(h.flags, h.app).Register(root)
	root = NewPlanCmd(h.flags, h.app).Register(root)
	root = NewBlockCmd(h.flags, h.app).Register(root)
	root = NewTaskCmd(h.flags, h.app).Register(root)
	root = NewChunkCmd(h.flags, h.app).Register(root)
	root = NewRecurCmd(h.flags, h.app).Register(root)
	root = NewHistoryCmd(h.flags, h.app).Register(root)
	root = NewConfigCmd(h.flags).Register(root)

	err := root.Run(context.Background(), append([]string{"daybook"}, args...))
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestCommands_PlanAndComplete(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "block", "add", "--name", "Work", "--start", "09:00", "--end", "12:00", "--weekdays", "mon-fri")
	assert.Contains(t, out, "created block 1 Work 09:00-12:00")

	out = h.mustRun(t, "task", "add", "-t", "Report", "--estimate", "2", "--priority", "3", "--due", "2025-01-10")
	assert.Contains(t, out, "created task 1 Report")

	out = h.mustRun(t, "plan")
	assert.Contains(t, out, "Plan for 2025-01-06")
	assert.Contains(t, out, "Report")

	out = h.mustRun(t, "day")
	assert.Contains(t, out, "Monday 2025-01-06")
	assert.Contains(t, out, "Work")

	out = h.mustRun(t, "chunk", "ls", "--json")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)

	var first chunk.Chunk
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, int64(1), first.TaskID)

	out = h.mustRun(t, "chunk", "complete", first.ID)
	assert.Contains(t, out, "completed "+first.ID)

	out = h.mustRun(t, "history")
	assert.Contains(t, out, "2025-01-06")
}

func TestCommands_TaskEditAndList(t *testing.T) {
	h := newHarness(t)

	h.mustRun(t, "task", "add", "-t", "Pushups", "--count", "50", "--recur", "mon,thu", "--category", "health")

	out := h.mustRun(t, "task", "edit", "1", "--count", "30", "--manual")
	assert.Contains(t, out, "updated task 1 Pushups")

	tk, err := h.app.Tasks.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, tk.CountRequired, 1e-9)
	assert.Equal(t, []string{"health"}, tk.Categories)
	assert.Equal(t, []time.Weekday{time.Monday, time.Thursday}, tk.Recurrence.Weekdays)

	out = h.mustRun(t, "task", "ls")
	assert.Contains(t, out, "30 items")

	_, err = h.run(t, "task", "add", "-t", "Both", "--estimate", "1", "--count", "2")
	assert.Error(t, err)

	_, err = h.run(t, "task", "ls", "--status", "bogus")
	assert.Error(t, err)

	h.mustRun(t, "task", "rm", "1")
	out = h.mustRun(t, "task", "ls", "--all")
	assert.Contains(t, out, "no tasks")
}

func TestCommands_ChunkArgumentValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "chunk", "complete", "NOT-AN-ID")
	assert.Error(t, err)

	_, err = h.run(t, "chunk", "split", "abc123", "two")
	assert.Error(t, err)

	_, err = h.run(t, "chunk", "fail", "abc123")
	assert.ErrorIs(t, err, chunk.ErrNotFound)
}

func TestCommands_ConfigInitAndValidate(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "config", "init")
	assert.Contains(t, out, "wrote "+h.flags.ConfigPath)

	_, err := h.run(t, "config", "init")
	assert.Error(t, err)

	out = h.mustRun(t, "config", "validate")
	assert.Contains(t, out, "configuration is valid")

	out = h.mustRun(t, "config", "validate", "--format", "json")
	assert.Contains(t, out, `"valid": true`)
}

func TestParseDate(t *testing.T) {
	today := time.Date(2025, 1, 6, 0, 0, 0, 0, time.Local)

	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{raw: "", want: today},
		{raw: "today", want: today},
		{raw: "Tomorrow", want: today.AddDate(0, 0, 1)},
		{raw: "yesterday", want: today.AddDate(0, 0, -1)},
		{raw: "2025-02-28", want: time.Date(2025, 2, 28, 0, 0, 0, 0, time.Local)},
		{raw: "28/02/2025", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseDate(tt.raw, today)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseWeekdays(t *testing.T) {
	got, err := parseWeekdays([]string{"mon-wed", "fri", "tue"})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Friday}, got)

	got, err = parseWeekdays([]string{"sat-mon"})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Saturday, time.Sunday, time.Monday}, got)

	_, err = parseWeekdays([]string{"someday"})
	assert.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	got, err := parseIDs([]string{"1,2", " 3 "}, "task")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got)

	_, err = parseIDs([]string{"0"}, "task")
	assert.Error(t, err)
}
