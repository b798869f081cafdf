// Package recur advances recurring tasks to their next occurrence.
package recur

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/colonyops/daybook/internal/core/task"
	"github.com/rs/zerolog"
)

// occurredAt is the timestamp of the task's current occurrence: its due
// date, else its completion.
func occurredAt(t task.Task) (time.Time, bool) {
	switch {
	case t.Due != nil:
		return *t.Due, true
	case t.Completed != nil:
		return *t.Completed, true
	default:
		return time.Time{}, false
	}
}

// Eligible reports whether t should roll over at now: it recurs, its
// occurrence is closed, and the occurrence is not in the future. A closed
// task with neither a due date nor a completion time is treated as having
// occurred now.
func Eligible(t task.Task, now time.Time) bool {
	if t.Recurrence.IsZero() || !t.Status.IsClosed() {
		return false
	}
	at, ok := occurredAt(t)
	return !ok || !at.After(now)
}

// NextDue computes the due date of the occurrence after t's current one.
func NextDue(t task.Task, now time.Time) (time.Time, error) {
	switch t.Recurrence.Kind {
	case task.RecurInterval:
		if t.Recurrence.Every < 1 {
			return time.Time{}, fmt.Errorf("%w: interval %d", task.ErrInvalid, t.Recurrence.Every)
		}
		anchor, ok := occurredAt(t)
		if !ok {
			anchor = now
		}
		return anchor.AddDate(0, 0, t.Recurrence.Every), nil

	case task.RecurWeekdays:
		offset, ok := weekdayOffset(now.Weekday(), t.Recurrence.Weekdays)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: empty weekday set", task.ErrInvalid)
		}
		clock := now
		if t.Due != nil {
			clock = t.Due.In(now.Location())
		}
		return time.Date(now.Year(), now.Month(), now.Day()+offset,
			clock.Hour(), clock.Minute(), clock.Second(), 0, now.Location()), nil

	default:
		return time.Time{}, fmt.Errorf("%w: task %d does not recur", task.ErrInvalid, t.ID)
	}
}

// weekdayOffset is the smallest number of days, 0 through 6, from today to
// a weekday in set.
func weekdayOffset(today time.Weekday, set []time.Weekday) (int, bool) {
	for offset := range 7 {
		if slices.Contains(set, (today+time.Weekday(offset))%7) {
			return offset, true
		}
	}
	return 0, false
}

// Rollover resets t for its next occurrence. It returns false when t is not
// eligible at now.
func Rollover(t task.Task, now time.Time) (task.Task, bool, error) {
	if !Eligible(t, now) {
		return t, false, nil
	}

	next, err := NextDue(t, now)
	if err != nil {
		return t, false, err
	}

	t.Status = task.StatusNotStarted
	if t.IsTimed() {
		t.Logged = 0
	}
	if t.IsCounted() {
		t.CountCompleted = 0
	}
	t.RecurrenceCount++
	t.Due = &next
	t.Completed = nil
	t.UpdatedAt = now
	return t, true, nil
}

// Resolver rolls over every eligible recurring task in a store.
type Resolver struct {
	tasks task.Store
	log   zerolog.Logger
}

// NewResolver creates a Resolver over the task store.
func NewResolver(tasks task.Store, log zerolog.Logger) *Resolver {
	return &Resolver{
		tasks: tasks,
		log:   logging.Component(log, "recur"),
	}
}

// CatchUp rolls over every task eligible at now and persists each one on
// its own, so a failure leaves earlier rollovers in place. It returns the
// tasks that were rolled over.
func (r *Resolver) CatchUp(ctx context.Context, now time.Time) ([]task.Task, error) {
	candidates, err := r.tasks.List(ctx, task.ListFilter{Recurring: true})
	if err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}

	var rolled []task.Task
	for _, t := range candidates {
		if err := ctx.Err(); err != nil {
			return rolled, err
		}

		next, ok, err := Rollover(t, now)
		if err != nil {
			r.log.Warn().Err(err).Int64("task_id", t.ID).Msg("skipping malformed recurrence")
			continue
		}
		if !ok {
			continue
		}

		if err := r.tasks.Update(ctx, next); err != nil {
			return rolled, fmt.Errorf("roll over task %d: %w", t.ID, err)
		}

		r.log.Debug().
			Int64("task_id", next.ID).
			Int("occurrence", next.RecurrenceCount).
			Time("due", *next.Due).
			Msg("rolled over")
		rolled = append(rolled, next)
	}

	return rolled, nil
}
