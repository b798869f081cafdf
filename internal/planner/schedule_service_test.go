package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daybook/internal/core/allocate"
	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/eventbus"
	"github.com/colonyops/daybook/internal/core/eventbus/testbus"
	"github.com/colonyops/daybook/internal/core/task"
)

func TestScheduleService_Day(t *testing.T) {
	ctx := context.Background()
	app, tb := newTestApp(t)

	work, err := app.Blocks.Create(ctx, day.BlockParams{
		Name:   "Work",
		Start:  "09:00",
		End:    "12:00",
		Filter: day.Filter{IncludeCategories: []string{"work/**"}},
	})
	require.NoError(t, err)

	report := mustTask(t, app, task.Task{Title: "Report", Estimate: 2, Categories: []string{"work/writing"}})
	gym := mustTask(t, app, task.Task{Title: "Gym", Estimate: 1, Categories: []string{"health"}})

	view, err := app.Schedule.Day(ctx, app.Today())
	require.NoError(t, err)
	require.NoError(t, view.Schedule.Validate())

	// filler, Work, filler
	require.Len(t, view.Schedule.Blocks, 3)
	assert.True(t, view.Schedule.Blocks[0].IsFiller())
	assert.Equal(t, work.ID, view.Schedule.Blocks[1].ID)
	assert.Equal(t, []int64{report.ID}, view.Schedule.Blocks[1].Tasks)
	assert.ElementsMatch(t, []int64{report.ID, gym.ID}, view.Schedule.Blocks[2].Tasks)
	assert.Len(t, view.Tasks, 2)

	tb.AssertPublished(t, eventbus.EventScheduleRebuilt)
}

func TestScheduleService_PlanPlacesEverythingThatFits(t *testing.T) {
	ctx := context.Background()
	app, tb := newTestApp(t)

	mustBlock(t, app, "Deep work", "09:00", "11:00", day.VariantUser)
	write := mustTask(t, app, task.Task{Title: "Write", Estimate: 3, Priority: 5})
	call := mustTask(t, app, task.Task{Title: "Call", Estimate: 0.5, ChunkPreference: task.ChunkManual})

	date := app.Today()
	res, err := app.Schedule.Plan(ctx, date)
	require.NoError(t, err)

	assert.Equal(t, allocate.StatusOptimal, res.Plan.Status)
	assert.Zero(t, res.Run.Unscheduled)
	assert.False(t, res.Run.Partial())
	require.NoError(t, res.Plan.Verify())

	chunks, err := app.Chunks.List(ctx, chunk.ListFilter{Date: &date})
	require.NoError(t, err)

	sizes := map[int64]float64{}
	for _, c := range chunks {
		assert.True(t, c.IsAssigned(), "chunk %s should be placed", c.ID)
		assert.Equal(t, chunk.VariantPlaced, c.Variant)
		sizes[c.TaskID] += c.Size
	}
	assert.InDelta(t, 3.0, sizes[write.ID], 1e-9)
	assert.InDelta(t, 0.5, sizes[call.ID], 1e-9)

	runs, err := app.History.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.Run.ID, runs[0].ID)

	tb.AssertPublished(t, eventbus.EventPlanFinished)
	tb.AssertPublished(t, eventbus.EventChunkPlaced)
	tb.AssertNotPublished(t, eventbus.EventChunkUnscheduled, 20*time.Millisecond)
}

func TestScheduleService_PlanSplitsWhatDoesNotFit(t *testing.T) {
	ctx := context.Background()
	app, tb := newTestApp(t)

	work := onlyOneHourFree(t, app)
	write := mustTask(t, app, task.Task{Title: "Write", Estimate: 3, Priority: 5})

	date := app.Today()
	res, err := app.Schedule.Plan(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Run.Unscheduled)
	assert.True(t, res.Run.Partial())
	assert.InDelta(t, 1.0, res.Plan.BlockLoad[work.ID], 1e-9)

	chunks, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: write.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	var placed, rest chunk.Chunk
	for _, c := range chunks {
		if c.IsAssigned() {
			placed = c
		} else {
			rest = c
		}
	}
	require.NotNil(t, placed.BlockID)
	assert.Equal(t, work.ID, *placed.BlockID)
	assert.InDelta(t, 1.0, placed.Size, 1e-9)
	assert.Equal(t, chunk.VariantAuto, rest.Variant)
	assert.InDelta(t, 2.0, rest.Size, 1e-9)

	require.True(t, tb.WaitFor(eventbus.EventChunkUnscheduled, time.Second))
	unscheduled := testbus.Payloads[eventbus.ChunkUnscheduledPayload](tb, eventbus.EventChunkUnscheduled)
	require.Len(t, unscheduled, 1)
	assert.Equal(t, rest.ID, unscheduled[0].Chunk.ID)

	t.Run("replanning keeps placements and adds no work", func(t *testing.T) {
		res, err := app.Schedule.Plan(ctx, date)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, res.Plan.BlockLoad[work.ID], 1e-9)

		again, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: write.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{placed.ID, rest.ID}, ids(again))
	})
}

func TestScheduleService_PlanCarriesUnplacedWorkForward(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)

	onlyOneHourFree(t, app)
	write := mustTask(t, app, task.Task{Title: "Write", Estimate: 3})

	yesterday := app.Today().AddDate(0, 0, -1)
	_, err := app.Schedule.Plan(ctx, yesterday)
	require.NoError(t, err)

	today := app.Today()
	_, err = app.Schedule.Plan(ctx, today)
	require.NoError(t, err)

	chunks, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: write.ID})
	require.NoError(t, err)

	var total float64
	for _, c := range chunks {
		total += c.Size
		if !c.IsAssigned() {
			assert.True(t, today.Equal(c.Date), "unplaced work should move to the planned date")
		}
	}
	assert.InDelta(t, 3.0, total, 1e-9)
}

func TestScheduleService_PlanReleasesUnfinishedChunksFromEarlierDays(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)

	work := onlyOneHourFree(t, app)
	call := mustTask(t, app, task.Task{Title: "Call", Estimate: 1})

	yesterday := app.Today().AddDate(0, 0, -1)
	_, err := app.Schedule.Plan(ctx, yesterday)
	require.NoError(t, err)

	before, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: call.ID})
	require.NoError(t, err)
	require.Len(t, before, 1)
	require.True(t, before[0].IsAssigned())
	require.True(t, yesterday.Equal(before[0].Date))

	today := app.Today()
	res, err := app.Schedule.Plan(ctx, today)
	require.NoError(t, err)

	after, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: call.ID})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.True(t, today.Equal(after[0].Date), "the chunk moves to the planned date")
	require.True(t, after[0].IsAssigned())
	assert.Equal(t, work.ID, *after[0].BlockID)

	pl, ok := res.Plan.Placement(before[0].ID)
	require.True(t, ok, "the released chunk is offered to the engine again")
	assert.True(t, pl.IsPlaced())
}

func TestScheduleService_Reconfigure(t *testing.T) {
	app, tb := newTestApp(t)

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Day.Start = "06:00"

	tb.PublishConfigReloaded(eventbus.ConfigReloadedPayload{Config: &cfg})
	require.Eventually(t, func() bool {
		return app.Schedule.DayStart() == day.MustClock("06:00")
	}, time.Second, 5*time.Millisecond)
}

func TestEngineOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := EngineOptions(&cfg)

	scorer, ok := opts.Scorer.(allocate.PriorityScorer)
	require.True(t, ok)
	assert.Equal(t, cfg.Allocation.PriorityWeights, scorer.Weights)
	assert.Equal(t, 1.0, scorer.HeadroomBonus)
	assert.Equal(t, 10, opts.Scale)

	cfg.Allocation.Scorer = config.ScorerFlat
	assert.IsType(t, allocate.FlatScorer{}, EngineOptions(&cfg).Scorer)
}

func TestPlaceChunk(t *testing.T) {
	ids := &seqIDs{}
	c := chunk.Chunk{ID: "c", TaskID: 1, Variant: chunk.VariantAuto, Unit: chunk.UnitTime, Size: 3, MinSize: 0.25, MaxSize: 3, Status: chunk.StatusActive}

	t.Run("whole chunk is assigned in place", func(t *testing.T) {
		parts, replaced, err := placeChunk(c, allocate.ChunkPlacement{
			ChunkID:     "c",
			Size:        3,
			Allocations: []allocate.Allocation{{BlockID: 7, Quantity: 3, Hours: 3}},
		}, ids)
		require.NoError(t, err)
		assert.False(t, replaced)
		require.Len(t, parts, 1)
		assert.Equal(t, "c", parts[0].ID)
		assert.Equal(t, chunk.VariantPlaced, parts[0].Variant)
	})

	t.Run("spread chunk is partitioned", func(t *testing.T) {
		parts, replaced, err := placeChunk(c, allocate.ChunkPlacement{
			ChunkID: "c",
			Size:    3,
			Allocations: []allocate.Allocation{
				{BlockID: 9, Quantity: 1, Hours: 1},
				{BlockID: 4, Quantity: 1.5, Hours: 1.5},
			},
			Unscheduled: 0.5,
		}, ids)
		require.NoError(t, err)
		assert.True(t, replaced)
		require.Len(t, parts, 3)

		assert.Equal(t, int64(4), *parts[0].BlockID)
		assert.InDelta(t, 1.5, parts[0].Size, 1e-9)
		assert.Equal(t, int64(9), *parts[1].BlockID)
		assert.False(t, parts[2].IsAssigned())
		assert.Equal(t, chunk.VariantAuto, parts[2].Variant)
		assert.InDelta(t, 0.5, parts[2].Size, 1e-9)
	})
}

func TestReservedHours(t *testing.T) {
	block := int64(5)
	placed := func(size float64, unit chunk.Unit, status chunk.Status) chunk.Chunk {
		c := chunk.Chunk{Size: size, Unit: unit, Status: status}
		c.Assign(block)
		return c
	}

	got := reservedHours([]chunk.Chunk{
		placed(1, chunk.UnitTime, chunk.StatusActive),
		placed(4, chunk.UnitCount, chunk.StatusCompleted),
		placed(2, chunk.UnitTime, chunk.StatusFailed),
		{Size: 3, Unit: chunk.UnitTime, Status: chunk.StatusActive},
	}, 0.5)

	assert.Equal(t, map[int64]float64{block: 3}, got)
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return string(rune('a' + s.n))
}

func ids(chunks []chunk.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}
