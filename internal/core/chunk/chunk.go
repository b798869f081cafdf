// Package chunk models allocatable pieces of a task's outstanding work.
package chunk

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/colonyops/daybook/internal/core/task"
)

var (
	// ErrNotFound is returned when a chunk does not exist.
	ErrNotFound = errors.New("chunk not found")
	// ErrNotSplittable is returned when splitting a chunk that is not auto.
	ErrNotSplittable = errors.New("chunk is not splittable")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid chunk status transition")
	// ErrInvalidRatio is returned for negative or non-finite split ratios.
	ErrInvalidRatio = errors.New("invalid split ratio")
)

// Variant distinguishes indivisible, splittable, and already placed chunks.
type Variant string

const (
	VariantManual Variant = "manual"
	VariantAuto   Variant = "auto"
	VariantPlaced Variant = "placed"
)

// IsValid reports whether v is a known variant.
func (v Variant) IsValid() bool {
	return v == VariantManual || v == VariantAuto || v == VariantPlaced
}

// Unit is the measure a chunk's size is expressed in.
type Unit string

const (
	UnitTime  Unit = "time"  // hours
	UnitCount Unit = "count" // completed items
)

// IsValid reports whether u is a known unit.
func (u Unit) IsValid() bool {
	return u == UnitTime || u == UnitCount
}

// UnitOf returns the unit a task's work is measured in.
func UnitOf(t task.Task) Unit {
	if t.IsCounted() {
		return UnitCount
	}
	return UnitTime
}

// Status is the lifecycle state of a chunk.
type Status string

const (
	StatusActive    Status = "active"
	StatusLocked    Status = "locked"
	StatusCompleted Status = "completed"
	StatusFlagged   Status = "flagged"
	StatusFailed    Status = "failed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusLocked, StatusCompleted, StatusFlagged, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFlagged || s == StatusFailed
}

// Chunk is a piece of a task's outstanding work that the allocation engine
// places into time blocks.
type Chunk struct {
	ID        string            `json:"id"`
	TaskID    int64             `json:"task_id"`
	Variant   Variant           `json:"variant"`
	Unit      Unit              `json:"unit"`
	Size      float64           `json:"size"`
	MinSize   float64           `json:"min_size"`
	MaxSize   float64           `json:"max_size"`
	Ratings   map[int64]float64 `json:"ratings,omitempty"` // per-block rating overrides
	BlockID   *int64            `json:"block_id,omitempty"`
	Date      time.Time         `json:"date"`
	Recurring bool              `json:"recurring"`
	Status    Status            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// IsAssigned reports whether the chunk sits in a block.
func (c Chunk) IsAssigned() bool {
	return c.BlockID != nil
}

// Assign places the chunk into a block.
func (c *Chunk) Assign(blockID int64) {
	c.BlockID = &blockID
}

// Unassign clears the block placement.
func (c *Chunk) Unassign() {
	c.BlockID = nil
}

// Rating returns the per-block override for blockID, if any.
func (c Chunk) Rating(blockID int64) (float64, bool) {
	r, ok := c.Ratings[blockID]
	return r, ok
}

// Validate checks the chunk's structural invariants.
func (c Chunk) Validate() error {
	switch {
	case c.ID == "":
		return errors.New("chunk id is required")
	case !c.Variant.IsValid():
		return fmt.Errorf("unknown chunk variant %q", c.Variant)
	case !c.Unit.IsValid():
		return fmt.Errorf("unknown chunk unit %q", c.Unit)
	case !c.Status.IsValid():
		return fmt.Errorf("unknown chunk status %q", c.Status)
	case c.Size < 0:
		return fmt.Errorf("chunk size %g is negative", c.Size)
	case c.MinSize < 0 || (c.MaxSize > 0 && c.MinSize > c.MaxSize):
		return fmt.Errorf("chunk bounds [%g, %g] are inverted", c.MinSize, c.MaxSize)
	}
	return nil
}

// derive copies the inherited fields of c into a fresh unassigned chunk.
func (c Chunk) derive(id string, size float64) Chunk {
	status := StatusActive
	if c.Status == StatusLocked {
		status = StatusLocked
	}
	return Chunk{
		ID:        id,
		TaskID:    c.TaskID,
		Variant:   c.Variant,
		Unit:      c.Unit,
		Size:      size,
		MinSize:   c.MinSize,
		MaxSize:   c.MaxSize,
		Ratings:   maps.Clone(c.Ratings),
		Date:      c.Date,
		Recurring: c.Recurring,
		Status:    status,
		CreatedAt: c.CreatedAt,
	}
}

// IDSource produces fresh chunk identities.
type IDSource interface {
	NewID() string
}

// Decomposer turns a task's outstanding work into a chunk.
type Decomposer struct {
	IDs      IDSource
	MinTime  float64 // default min chunk for timed tasks, 0 uses task.DefaultMinTimeChunk
	MinCount float64 // default min chunk for counted tasks, 0 uses task.DefaultMinCountChunk
}

// Decompose builds the chunk for t's outstanding work on date. The chunk is
// locked when date falls on a later calendar day than now.
func (d Decomposer) Decompose(t task.Task, date, now time.Time) Chunk {
	unit := UnitOf(t)

	minSize := t.MinChunkSize()
	if t.MinChunk == 0 {
		switch {
		case unit == UnitTime && d.MinTime > 0:
			minSize = d.MinTime
		case unit == UnitCount && d.MinCount > 0:
			minSize = d.MinCount
		}
	}

	variant := VariantAuto
	if t.ChunkPreference == task.ChunkManual {
		variant = VariantManual
	}

	status := StatusActive
	if isFuture(date, now) {
		status = StatusLocked
	}

	return Chunk{
		ID:        d.IDs.NewID(),
		TaskID:    t.ID,
		Variant:   variant,
		Unit:      unit,
		Size:      t.Remaining(),
		MinSize:   minSize,
		MaxSize:   t.MaxChunkSize(),
		Date:      civil(date),
		Recurring: !t.Recurrence.IsZero(),
		Status:    status,
		CreatedAt: now,
	}
}

// Decompose is Decomposer.Decompose with task-level chunk defaults.
func Decompose(t task.Task, date, now time.Time, ids IDSource) Chunk {
	return Decomposer{IDs: ids}.Decompose(t, date, now)
}

// civil truncates t to midnight of its calendar date in its own location.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
