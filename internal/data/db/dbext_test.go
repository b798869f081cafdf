package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_RollsBackOnError(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.WithTx(ctx, func(q *Queries) error {
		if _, err := q.CreateTask(ctx, TaskParams{Title: "a", Status: "not_started", ChunkPreference: "auto"}, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	tasks, err := database.Queries().ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestDeleteTask_CascadesChunks(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	id, err := q.CreateTask(ctx, TaskParams{Title: "a", Status: "not_started", ChunkPreference: "auto"}, 1)
	require.NoError(t, err)

	require.NoError(t, q.UpsertChunk(ctx, UpsertChunkParams{
		ID: "c1", TaskID: id, Variant: "auto", Unit: "time", Size: 1,
		Date: "2025-01-06", Status: "active", CreatedAt: 1,
	}))

	n, err := q.DeleteTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = q.GetChunk(ctx, "c1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpsertChunk_ReplacesExisting(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	id, err := q.CreateTask(ctx, TaskParams{Title: "a", Status: "not_started", ChunkPreference: "auto"}, 1)
	require.NoError(t, err)

	params := UpsertChunkParams{
		ID: "c1", TaskID: id, Variant: "auto", Unit: "time", Size: 2,
		Date: "2025-01-06", Status: "active", CreatedAt: 1,
	}
	require.NoError(t, q.UpsertChunk(ctx, params))

	params.Status = "completed"
	params.BlockID = sql.NullInt64{Int64: 4, Valid: true}
	require.NoError(t, q.UpsertChunk(ctx, params))

	got, err := q.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, int64(4), got.BlockID.Int64)

	all, err := q.ListChunksByDate(ctx, "2025-01-06")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
