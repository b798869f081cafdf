package chunk

import (
	"fmt"
	"time"

	"github.com/colonyops/daybook/internal/core/task"
)

var transitions = map[Status][]Status{
	StatusActive: {StatusCompleted, StatusFlagged, StatusFailed, StatusLocked},
	StatusLocked: {StatusActive},
}

// CanTransition reports whether the lifecycle allows from -> to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition returns c moved to status to.
func Transition(c Chunk, to Status) (Chunk, error) {
	if !CanTransition(c.Status, to) {
		return c, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	return c, nil
}

// Unlock activates a locked chunk once its date has arrived. Dates are
// compared as calendar dates in now's location; the scheduling day boundary
// is not applied.
func Unlock(c Chunk, now time.Time) (Chunk, error) {
	if c.Status != StatusLocked {
		return c, fmt.Errorf("%w: chunk %s is %s, not locked", ErrInvalidTransition, c.ID, c.Status)
	}
	if isFuture(c.Date, now) {
		return c, fmt.Errorf("%w: chunk %s is dated %s", ErrInvalidTransition, c.ID, c.Date.Format(time.DateOnly))
	}
	c.Status = StatusActive
	return c, nil
}

// RefreshLock locks active chunks dated after now and unlocks locked chunks
// whose date has arrived. It reports whether the status changed.
func RefreshLock(c Chunk, now time.Time) (Chunk, bool) {
	future := isFuture(c.Date, now)
	switch {
	case c.Status == StatusLocked && !future:
		c.Status = StatusActive
		return c, true
	case c.Status == StatusActive && future:
		c.Status = StatusLocked
		return c, true
	default:
		return c, false
	}
}

func isFuture(date, now time.Time) bool {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location())
	return d.After(civil(now))
}

// Complete marks an active chunk completed and rolls its size into the
// task's logged total.
func Complete(c Chunk, t task.Task) (Chunk, task.Task, error) {
	if c.TaskID != t.ID {
		return c, t, fmt.Errorf("chunk %s belongs to task %d, not %d", c.ID, c.TaskID, t.ID)
	}
	done, err := Transition(c, StatusCompleted)
	if err != nil {
		return c, t, err
	}
	t.AddProgress(done.Size)
	return done, t, nil
}

// Remove returns t adjusted for deleting c: a completed chunk's size is
// subtracted back out of the logged total.
func Remove(c Chunk, t task.Task) task.Task {
	if c.Status == StatusCompleted && c.TaskID == t.ID {
		t.AddProgress(-c.Size)
	}
	return t
}

// Release takes a chunk out of its block so it can be planned again on date.
// A placed chunk goes back to the variant its task prefers.
func Release(c Chunk, t task.Task, date time.Time) Chunk {
	c.Unassign()
	if c.Variant == VariantPlaced {
		c.Variant = VariantAuto
		if t.ChunkPreference == task.ChunkManual {
			c.Variant = VariantManual
		}
	}
	c.Date = civil(date)
	return c
}
