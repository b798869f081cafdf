package chunk

import (
	"testing"
	"time"

	"github.com/colonyops/daybook/internal/core/task"
	"github.com/colonyops/daybook/pkg/randid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusFlagged, true},
		{StatusActive, StatusFailed, true},
		{StatusActive, StatusLocked, true},
		{StatusLocked, StatusActive, true},
		{StatusLocked, StatusCompleted, false},
		{StatusCompleted, StatusActive, false},
		{StatusFlagged, StatusCompleted, false},
		{StatusFailed, StatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))

			_, err := Transition(Chunk{Status: tt.from}, tt.to)
			if tt.want {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	t.Run("timed task logs hours", func(t *testing.T) {
		tk := task.Task{ID: 1, Estimate: 3, Logged: 0.5, Status: task.StatusNotStarted}
		c := Chunk{ID: "a", TaskID: 1, Size: 1.5, Status: StatusActive}

		done, updated, err := Complete(c, tk)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, done.Status)
		assert.InDelta(t, 2.0, updated.Logged, 1e-9)
		assert.Equal(t, task.StatusInProgress, updated.Status)
	})

	t.Run("counted task logs items", func(t *testing.T) {
		tk := task.Task{ID: 1, CountRequired: 10, CountCompleted: 2}
		c := Chunk{ID: "a", TaskID: 1, Size: 3, Unit: UnitCount, Status: StatusActive}

		_, updated, err := Complete(c, tk)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, updated.CountCompleted, 1e-9)
	})

	t.Run("terminal chunk cannot complete twice", func(t *testing.T) {
		tk := task.Task{ID: 1, Estimate: 3}
		c := Chunk{ID: "a", TaskID: 1, Size: 1, Status: StatusCompleted}

		_, updated, err := Complete(c, tk)
		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.Zero(t, updated.Logged)
	})

	t.Run("locked chunk cannot complete", func(t *testing.T) {
		_, _, err := Complete(Chunk{ID: "a", TaskID: 1, Status: StatusLocked}, task.Task{ID: 1, Estimate: 1})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("wrong task", func(t *testing.T) {
		_, _, err := Complete(Chunk{ID: "a", TaskID: 2, Status: StatusActive}, task.Task{ID: 1})
		require.Error(t, err)
	})
}

func TestRemove(t *testing.T) {
	tk := task.Task{ID: 1, Estimate: 3, Logged: 2}

	completed := Chunk{ID: "a", TaskID: 1, Size: 1.5, Status: StatusCompleted}
	assert.InDelta(t, 0.5, Remove(completed, tk).Logged, 1e-9)

	active := Chunk{ID: "b", TaskID: 1, Size: 1.5, Status: StatusActive}
	assert.InDelta(t, 2.0, Remove(active, tk).Logged, 1e-9)
}

func TestRelease(t *testing.T) {
	yesterday := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 1, 8, 15, 30, 0, 0, time.UTC)

	placed := Chunk{ID: "a", TaskID: 1, Variant: VariantPlaced, Size: 1, Date: yesterday, Status: StatusActive}
	placed.Assign(7)

	tests := []struct {
		name string
		pref task.ChunkPreference
		want Variant
	}{
		{"auto task", "", VariantAuto},
		{"manual task", task.ChunkManual, VariantManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Release(placed, task.Task{ID: 1, ChunkPreference: tt.pref}, today)
			assert.False(t, got.IsAssigned())
			assert.Equal(t, tt.want, got.Variant)
			assert.Equal(t, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), got.Date)
			assert.InDelta(t, 1.0, got.Size, 1e-9)
		})
	}
	assert.True(t, placed.IsAssigned(), "the original is not modified")
}

func TestUnlock_ComparesCalendarDatesOnly(t *testing.T) {
	chunkDate := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	c := Chunk{ID: "a", Date: chunkDate, Status: StatusLocked}

	// 02:00 on the 9th is still the 8th's scheduling day with a 04:00
	// boundary, but locking only looks at the calendar date.
	got, err := Unlock(c, time.Date(2025, 1, 9, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)

	_, err = Unlock(c, time.Date(2025, 1, 8, 23, 59, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Unlock(Chunk{ID: "b", Status: StatusActive}, chunkDate)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRefreshLock(t *testing.T) {
	now := time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)

	got, changed := RefreshLock(Chunk{Date: tomorrow, Status: StatusActive}, now)
	assert.True(t, changed)
	assert.Equal(t, StatusLocked, got.Status)

	got, changed = RefreshLock(Chunk{Date: today, Status: StatusLocked}, now)
	assert.True(t, changed)
	assert.Equal(t, StatusActive, got.Status)

	got, changed = RefreshLock(Chunk{Date: tomorrow, Status: StatusCompleted}, now)
	assert.False(t, changed)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestDecompose(t *testing.T) {
	now := time.Date(2025, 1, 8, 10, 30, 0, 0, time.UTC)
	today := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	ids := randid.New(9, 9)

	t.Run("auto timed", func(t *testing.T) {
		tk := task.Task{ID: 4, Estimate: 3, Logged: 1, ChunkPreference: task.ChunkAuto}
		c := Decompose(tk, today, now, ids)

		assert.NotEmpty(t, c.ID)
		assert.Equal(t, int64(4), c.TaskID)
		assert.Equal(t, VariantAuto, c.Variant)
		assert.Equal(t, UnitTime, c.Unit)
		assert.InDelta(t, 2.0, c.Size, 1e-9)
		assert.InDelta(t, task.DefaultMinTimeChunk, c.MinSize, 1e-9)
		assert.InDelta(t, 2.0, c.MaxSize, 1e-9)
		assert.Equal(t, StatusActive, c.Status)
		assert.False(t, c.Recurring)
		assert.NoError(t, c.Validate())
	})

	t.Run("manual counted recurring", func(t *testing.T) {
		tk := task.Task{
			ID:              5,
			CountRequired:   6,
			ChunkPreference: task.ChunkManual,
			Recurrence:      task.Recurrence{Kind: task.RecurInterval, Every: 2},
		}
		c := Decompose(tk, today, now, ids)

		assert.Equal(t, VariantManual, c.Variant)
		assert.Equal(t, UnitCount, c.Unit)
		assert.InDelta(t, task.DefaultMinCountChunk, c.MinSize, 1e-9)
		assert.True(t, c.Recurring)
	})

	t.Run("future date is locked", func(t *testing.T) {
		c := Decompose(task.Task{ID: 6, Estimate: 1}, today.AddDate(0, 0, 1), now, ids)
		assert.Equal(t, StatusLocked, c.Status)
	})

	t.Run("decomposer defaults", func(t *testing.T) {
		d := Decomposer{IDs: ids, MinTime: 0.5, MinCount: 2}
		assert.InDelta(t, 0.5, d.Decompose(task.Task{Estimate: 3}, today, now).MinSize, 1e-9)
		assert.InDelta(t, 2.0, d.Decompose(task.Task{CountRequired: 3}, today, now).MinSize, 1e-9)
		assert.InDelta(t, 0.75, d.Decompose(task.Task{Estimate: 3, MinChunk: 0.75}, today, now).MinSize, 1e-9)
	})
}
