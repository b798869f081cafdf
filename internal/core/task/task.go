// Package task defines the task records that the scheduler plans work for.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a task does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrInvalid is returned when a task fails validation.
	ErrInvalid = errors.New("invalid task")
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsClosed reports whether the occurrence is finished one way or another.
func (s Status) IsClosed() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// ChunkPreference controls how outstanding work is decomposed.
type ChunkPreference string

const (
	// ChunkManual keeps the outstanding work as one indivisible chunk.
	ChunkManual ChunkPreference = "manual"
	// ChunkAuto lets the scheduler split the work across blocks.
	ChunkAuto ChunkPreference = "auto"
)

// IsValid reports whether p is a known preference.
func (p ChunkPreference) IsValid() bool {
	return p == ChunkManual || p == ChunkAuto
}

// Default minimum chunk sizes.
const (
	DefaultMinTimeChunk  = 0.25 // hours
	DefaultMinCountChunk = 1.0
)

// MaxPriority is the highest priority level.
const MaxPriority = 5

// Task is a unit of work tracked either by time (Estimate/Logged, in hours)
// or by count (CountRequired/CountCompleted).
type Task struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Priority        int             `json:"priority"`
	Categories      []string        `json:"categories,omitempty"`
	Due             *time.Time      `json:"due,omitempty"`
	Completed       *time.Time      `json:"completed,omitempty"`
	Recurrence      Recurrence      `json:"recurrence"`
	RecurrenceCount int             `json:"recurrence_count"`
	Estimate        float64         `json:"estimate,omitempty"`
	Logged          float64         `json:"logged,omitempty"`
	CountRequired   float64         `json:"count_required,omitempty"`
	CountCompleted  float64         `json:"count_completed,omitempty"`
	ChunkPreference ChunkPreference `json:"chunk_preference"`
	MinChunk        float64         `json:"min_chunk,omitempty"` // 0 uses the default
	MaxChunk        float64         `json:"max_chunk,omitempty"` // 0 means the full remaining size
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsTimed reports whether work is measured in hours.
func (t Task) IsTimed() bool {
	return t.Estimate > 0
}

// IsCounted reports whether work is measured in completed units.
func (t Task) IsCounted() bool {
	return t.Estimate <= 0 && t.CountRequired > 0
}

// Remaining is the outstanding work in the task's unit, never negative.
func (t Task) Remaining() float64 {
	switch {
	case t.IsTimed():
		return max(t.Estimate-t.Logged, 0)
	case t.IsCounted():
		return max(t.CountRequired-t.CountCompleted, 0)
	default:
		return 0
	}
}

// MinChunkSize returns the smallest chunk the work may be split into.
func (t Task) MinChunkSize() float64 {
	if t.MinChunk > 0 {
		return t.MinChunk
	}
	if t.IsCounted() {
		return DefaultMinCountChunk
	}
	return DefaultMinTimeChunk
}

// MaxChunkSize returns the largest chunk, defaulting to the remaining work.
func (t Task) MaxChunkSize() float64 {
	if t.MaxChunk > 0 {
		return t.MaxChunk
	}
	return t.Remaining()
}

// AddProgress rolls completed work into the logged total. A negative amount
// removes progress, clamped at zero.
func (t *Task) AddProgress(amount float64) {
	switch {
	case t.IsTimed():
		t.Logged = max(t.Logged+amount, 0)
	case t.IsCounted():
		t.CountCompleted = max(t.CountCompleted+amount, 0)
	}
	if t.Status == StatusNotStarted && amount > 0 {
		t.Status = StatusInProgress
	}
}

// Validate checks the task's structural invariants.
func (t Task) Validate() error {
	switch {
	case t.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case t.Priority < 0 || t.Priority > MaxPriority:
		return fmt.Errorf("%w: priority must be in 0..%d", ErrInvalid, MaxPriority)
	case t.Estimate < 0 || t.Logged < 0 || t.CountRequired < 0 || t.CountCompleted < 0:
		return fmt.Errorf("%w: work sizes cannot be negative", ErrInvalid)
	case t.MinChunk < 0 || t.MaxChunk < 0:
		return fmt.Errorf("%w: chunk sizes cannot be negative", ErrInvalid)
	case t.MaxChunk > 0 && t.MinChunk > t.MaxChunk:
		return fmt.Errorf("%w: min_chunk exceeds max_chunk", ErrInvalid)
	case !t.Status.IsValid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, t.Status)
	case !t.ChunkPreference.IsValid():
		return fmt.Errorf("%w: unknown chunk preference %q", ErrInvalid, t.ChunkPreference)
	}
	return t.Recurrence.Validate()
}

// ApplyDefaults fills unset enum fields.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if t.ChunkPreference == "" {
		t.ChunkPreference = ChunkAuto
	}
}

// ListFilter controls which tasks are returned by List.
type ListFilter struct {
	Status    Status // empty means all statuses
	Recurring bool   // only tasks with a recurrence rule
	Open      bool   // only tasks not completed, failed, or skipped
}

// Store defines persistence for tasks.
type Store interface {
	// Create persists a new task and sets its ID and timestamps.
	Create(ctx context.Context, t *Task) error

	// Get returns a single task. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id int64) (Task, error)

	// List returns tasks matching the filter ordered by priority, then ID.
	List(ctx context.Context, filter ListFilter) ([]Task, error)

	// Update replaces a stored task. Returns ErrNotFound if it does not exist.
	Update(ctx context.Context, t Task) error

	// Delete removes a task and its chunks. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error
}
