// Package eventbus provides a typed publish/subscribe event bus that carries
// schedule and task changes from the planner to whatever is presenting them.
package eventbus

import (
	"time"

	"github.com/colonyops/daybook/internal/core/allocate"
	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/task"
)

// Events defines all event types and their payload structs. Every entry has
// a matching Event constant and Publish/Subscribe pair in bus.go.
var Events = map[string]any{
	// Keep list sorted A-Z
	"chunk.completed":   ChunkCompletedPayload{},
	"chunk.placed":      ChunkPlacedPayload{},
	"chunk.unscheduled": ChunkUnscheduledPayload{},
	"config.reloaded":   ConfigReloadedPayload{},
	"plan.finished":     PlanFinishedPayload{},
	"schedule.rebuilt":  ScheduleRebuiltPayload{},
	"task.rolled-over":  TaskRolledOverPayload{},
}

// ChunkCompletedPayload is emitted when a chunk is completed and its size
// has been rolled into the parent task.
type ChunkCompletedPayload struct {
	Chunk chunk.Chunk
	Task  task.Task
}

// ChunkPlacedPayload is emitted for every chunk the allocator assigned to a
// block. Split chunks emit one event per piece.
type ChunkPlacedPayload struct {
	Chunk   chunk.Chunk
	BlockID int64
}

// ChunkUnscheduledPayload is emitted when some or all of a chunk did not fit
// anywhere on the day.
type ChunkUnscheduledPayload struct {
	Chunk  chunk.Chunk
	Amount float64
}

// ConfigReloadedPayload is emitted when configuration is reloaded.
type ConfigReloadedPayload struct {
	Config *config.Config
}

// PlanFinishedPayload is emitted once an allocation run has been persisted.
type PlanFinishedPayload struct {
	RunID string
	Date  time.Time
	Plan  allocate.Plan
}

// ScheduleRebuiltPayload is emitted when a day's block layout is rebuilt.
type ScheduleRebuiltPayload struct {
	Schedule day.Schedule
}

// TaskRolledOverPayload is emitted when a recurring task starts a new
// occurrence.
type TaskRolledOverPayload struct {
	Task task.Task
}
