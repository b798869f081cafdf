package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/eventbus"
	"github.com/colonyops/daybook/internal/core/eventbus/testbus"
	"github.com/colonyops/daybook/internal/core/task"
)

// plannedChunks plans today with a single free hour and returns the placed
// chunk and the unplaced remainder of a three-hour task.
func plannedChunks(t *testing.T, app *App) (task.Task, chunk.Chunk, chunk.Chunk) {
	t.Helper()
	ctx := context.Background()

	onlyOneHourFree(t, app)
	tk := mustTask(t, app, task.Task{Title: "Write", Estimate: 3})

	_, err := app.Schedule.Plan(ctx, app.Today())
	require.NoError(t, err)

	chunks, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: tk.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	if chunks[0].IsAssigned() {
		return tk, chunks[0], chunks[1]
	}
	return tk, chunks[1], chunks[0]
}

func TestChunkService_Complete(t *testing.T) {
	ctx := context.Background()
	app, tb := newTestApp(t)
	tk, placed, _ := plannedChunks(t, app)

	done, updated, err := app.Chunks.Complete(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk.StatusCompleted, done.Status)
	assert.InDelta(t, 1.0, updated.Logged, 1e-9)
	assert.Equal(t, task.StatusInProgress, updated.Status)

	stored, err := app.Tasks.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, stored.Logged, 1e-9)

	tb.AssertPublished(t, eventbus.EventChunkCompleted)
	payloads := testbus.Payloads[eventbus.ChunkCompletedPayload](tb, eventbus.EventChunkCompleted)
	require.Len(t, payloads, 1)
	assert.Equal(t, placed.ID, payloads[0].Chunk.ID)

	_, _, err = app.Chunks.Complete(ctx, placed.ID)
	assert.ErrorIs(t, err, chunk.ErrInvalidTransition)
}

func TestChunkService_CompleteLastChunkClosesTask(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)
	tk, placed, rest := plannedChunks(t, app)

	_, _, err := app.Chunks.Complete(ctx, placed.ID)
	require.NoError(t, err)
	_, updated, err := app.Chunks.Complete(ctx, rest.ID)
	require.NoError(t, err)

	assert.Equal(t, task.StatusCompleted, updated.Status)
	require.NotNil(t, updated.Completed)
	assert.True(t, monday09.Equal(*updated.Completed))

	stored, err := app.Tasks.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
	assert.Zero(t, stored.Remaining())
}

func TestChunkService_RemoveCompletedRestoresProgress(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)
	tk, placed, _ := plannedChunks(t, app)

	_, _, err := app.Chunks.Complete(ctx, placed.ID)
	require.NoError(t, err)

	require.NoError(t, app.Chunks.Remove(ctx, placed.ID))

	stored, err := app.Tasks.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Logged)

	assert.ErrorIs(t, app.Chunks.Remove(ctx, placed.ID), chunk.ErrNotFound)
}

func TestChunkService_RemoveCompletedReopensTask(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)

	onlyOneHourFree(t, app)
	tk := mustTask(t, app, task.Task{Title: "Call", Estimate: 1})

	_, err := app.Schedule.Plan(ctx, app.Today())
	require.NoError(t, err)
	chunks, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: tk.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	_, done, err := app.Chunks.Complete(ctx, chunks[0].ID)
	require.NoError(t, err)
	require.Equal(t, task.StatusCompleted, done.Status)

	require.NoError(t, app.Chunks.Remove(ctx, chunks[0].ID))

	stored, err := app.Tasks.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, stored.Status)
	assert.Nil(t, stored.Completed)

	open, err := app.Tasks.List(ctx, task.ListFilter{Open: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, tk.ID, open[0].ID)

	_, err = app.Schedule.Plan(ctx, app.Today())
	require.NoError(t, err)
	chunks, err = app.Chunks.List(ctx, chunk.ListFilter{TaskID: tk.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 1, "the restored hour is planned again")
	assert.True(t, chunks[0].IsAssigned())
}

func TestChunkService_Split(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)
	tk, placed, rest := plannedChunks(t, app)

	parts, err := app.Chunks.Split(ctx, rest.ID, []float64{1, 1})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.InDelta(t, 1.0, parts[0].Size, 1e-9)
	assert.InDelta(t, 1.0, parts[1].Size, 1e-9)

	chunks, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: tk.ID})
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	assert.NotContains(t, ids(chunks), rest.ID)

	_, err = app.Chunks.Split(ctx, placed.ID, []float64{1, 1})
	assert.ErrorIs(t, err, chunk.ErrNotSplittable)

	_, err = app.Chunks.Split(ctx, parts[0].ID, []float64{-1, 2})
	assert.ErrorIs(t, err, chunk.ErrInvalidRatio)

	same, err := app.Chunks.Split(ctx, parts[0].ID, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{parts[0].ID}, ids(same))
}

func TestChunkService_FlagAndFail(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)
	_, placed, rest := plannedChunks(t, app)

	flagged, err := app.Chunks.Flag(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk.StatusFlagged, flagged.Status)

	failed, err := app.Chunks.Fail(ctx, rest.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk.StatusFailed, failed.Status)

	_, err = app.Chunks.Fail(ctx, placed.ID)
	assert.ErrorIs(t, err, chunk.ErrInvalidTransition)
}

func TestChunkService_FailedWorkIsReplanned(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)
	tk, _, rest := plannedChunks(t, app)

	_, err := app.Chunks.Fail(ctx, rest.ID)
	require.NoError(t, err)

	_, err = app.Schedule.Plan(ctx, app.Today())
	require.NoError(t, err)

	open, err := app.Chunks.List(ctx, chunk.ListFilter{
		TaskID:   tk.ID,
		Statuses: []chunk.Status{chunk.StatusActive},
	})
	require.NoError(t, err)

	var total float64
	for _, c := range open {
		total += c.Size
	}
	assert.InDelta(t, 3.0, total, 1e-9)
}

func TestChunkService_Unlock(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)

	onlyOneHourFree(t, app)
	tk := mustTask(t, app, task.Task{Title: "Later", Estimate: 1})

	tomorrow := app.Today().AddDate(0, 0, 1)
	_, err := app.Schedule.Plan(ctx, tomorrow)
	require.NoError(t, err)

	chunks, err := app.Chunks.List(ctx, chunk.ListFilter{TaskID: tk.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, chunk.StatusLocked, chunks[0].Status)
	assert.False(t, chunks[0].IsAssigned(), "locked chunks are not placed")

	_, err = app.Chunks.Unlock(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, chunk.ErrInvalidTransition)
}
