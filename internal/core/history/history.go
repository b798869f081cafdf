// Package history defines the record kept for every allocation run.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("plan run not found")

// Run summarizes one allocation run for a scheduling date.
type Run struct {
	ID          string        `json:"id"`
	Date        time.Time     `json:"date"`
	Status      string        `json:"status"`
	Objective   float64       `json:"objective"`
	Scheduled   int           `json:"scheduled"`
	Unscheduled int           `json:"unscheduled"`
	Nodes       int           `json:"nodes"`
	Elapsed     time.Duration `json:"elapsed"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Partial returns true if some work did not fit or the solver stopped on a
// budget before proving its plan optimal.
func (r *Run) Partial() bool {
	return r.Unscheduled > 0 || r.Status != "optimal"
}

// Store persists allocation runs.
type Store interface {
	Record(ctx context.Context, r Run) error
	Get(ctx context.Context, id string) (Run, error)
	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]Run, error)
}
