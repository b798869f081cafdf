package chunk

import (
	"context"
	"time"

	"github.com/colonyops/daybook/internal/core/task"
)

// ListFilter narrows List results. Zero fields do not filter.
type ListFilter struct {
	TaskID   int64
	Date     *time.Time
	Statuses []Status
}

// TaskUpdate is one task's worth of chunk mutations, applied atomically so
// a task's totals never drift from its chunk list.
type TaskUpdate struct {
	Task   *task.Task // optional; written when set
	Save   []Chunk    // inserted or replaced by ID
	Delete []string   // chunk IDs to remove
}

// Store defines persistence for chunks.
type Store interface {
	// Get returns a chunk by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (Chunk, error)

	// List returns chunks matching the filter ordered by date, then creation.
	List(ctx context.Context, filter ListFilter) ([]Chunk, error)

	// Apply writes the update in a single transaction.
	Apply(ctx context.Context, u TaskUpdate) error
}
