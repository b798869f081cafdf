package planner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/eventbus/testbus"
	"github.com/colonyops/daybook/internal/core/task"
	"github.com/colonyops/daybook/internal/data/db"
	"github.com/colonyops/daybook/internal/data/stores"
	"github.com/colonyops/daybook/pkg/randid"
)

// monday09 is the fixed "now" for planner tests.
var monday09 = time.Date(2025, 1, 6, 9, 0, 0, 0, time.Local)

func newTestApp(t *testing.T) (*App, *testbus.Bus) {
	t.Helper()

	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	log := zerolog.Nop()
	tb := testbus.New(t)

	deps := Deps{
		Tasks:  stores.NewTaskStore(database, log),
		Blocks: stores.NewBlockStore(database, log),
		Chunks: stores.NewChunkStore(database, log),
		Runs:   stores.NewRunStore(database),
		Bus:    tb.EventBus,
		IDs:    randid.New(1, 2),
		Colors: day.NewRandomColors(3),
		Now:    func() time.Time { return monday09 },
		Log:    log,
	}

	return NewApp(deps, &cfg, database), tb
}

func mustBlock(t *testing.T, app *App, name, start, end string, variant day.Variant) day.Block {
	t.Helper()
	b, err := app.Blocks.Create(context.Background(), day.BlockParams{
		Name:    name,
		Start:   start,
		End:     end,
		Variant: variant,
	})
	require.NoError(t, err)
	return b
}

func mustTask(t *testing.T, app *App, tk task.Task) task.Task {
	t.Helper()
	require.NoError(t, app.Tasks.Create(context.Background(), &tk))
	return tk
}

// onlyOneHourFree leaves 09:00-10:00 as the single block that can take work.
func onlyOneHourFree(t *testing.T, app *App) day.Block {
	t.Helper()
	mustBlock(t, app, "Night", "04:00", "09:00", day.VariantUnavailable)
	mustBlock(t, app, "Off", "10:00", "04:00", day.VariantUnavailable)
	return mustBlock(t, app, "Work", "09:00", "10:00", day.VariantUser)
}
