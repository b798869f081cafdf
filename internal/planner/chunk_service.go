package planner

import (
	"context"
	"fmt"

	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/eventbus"
	"github.com/colonyops/daybook/internal/core/task"
)

// ChunkService applies user actions to chunks. Every action that touches
// a task's totals writes the chunk and the task in one transaction.
type ChunkService struct {
	chunks chunk.Store
	tasks  task.Store
	bus    *eventbus.EventBus
	deps   Deps
	log    zerolog.Logger
}

// NewChunkService creates a new ChunkService.
func NewChunkService(deps Deps) *ChunkService {
	return &ChunkService{
		chunks: deps.Chunks,
		tasks:  deps.Tasks,
		bus:    deps.Bus,
		deps:   deps,
		log:    logging.Component(deps.Log, "chunk-service"),
	}
}

// List returns chunks matching the filter.
func (s *ChunkService) List(ctx context.Context, filter chunk.ListFilter) ([]chunk.Chunk, error) {
	return s.chunks.List(ctx, filter)
}

// Split divides an unplaced auto chunk by ratios and replaces it with the
// parts.
func (s *ChunkService) Split(ctx context.Context, id string, ratios []float64) ([]chunk.Chunk, error) {
	c, err := s.chunks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: chunk %s is %s", chunk.ErrInvalidTransition, c.ID, c.Status)
	}

	parts, err := chunk.Split(c, ratios, s.deps.IDs)
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 && parts[0].ID == c.ID {
		return parts, nil
	}

	if err := s.chunks.Apply(ctx, chunk.TaskUpdate{Save: parts, Delete: []string{c.ID}}); err != nil {
		return nil, fmt.Errorf("split chunk: %w", err)
	}

	s.log.Debug().Str("chunk_id", c.ID).Int("parts", len(parts)).Msg("chunk split")
	return parts, nil
}

// Complete marks a chunk completed and adds its size to the task's
// progress. A task with no work left is marked completed, which makes a
// recurring task eligible for rollover.
func (s *ChunkService) Complete(ctx context.Context, id string) (chunk.Chunk, task.Task, error) {
	c, t, err := s.load(ctx, id)
	if err != nil {
		return chunk.Chunk{}, task.Task{}, err
	}

	done, t, err := chunk.Complete(c, t)
	if err != nil {
		return chunk.Chunk{}, task.Task{}, err
	}

	now := s.deps.now()
	if t.Remaining() <= chunk.Tolerance && !t.Status.IsClosed() {
		t.Status = task.StatusCompleted
		t.Completed = &now
	}
	t.UpdatedAt = now

	if err := s.chunks.Apply(ctx, chunk.TaskUpdate{Task: &t, Save: []chunk.Chunk{done}}); err != nil {
		return chunk.Chunk{}, task.Task{}, fmt.Errorf("complete chunk: %w", err)
	}

	s.bus.PublishChunkCompleted(eventbus.ChunkCompletedPayload{Chunk: done, Task: t})
	return done, t, nil
}

// Flag marks a chunk as needing attention.
func (s *ChunkService) Flag(ctx context.Context, id string) (chunk.Chunk, error) {
	return s.transition(ctx, id, chunk.StatusFlagged)
}

// Fail marks a chunk as not done. Its work returns to the task's
// outstanding total for the next plan run.
func (s *ChunkService) Fail(ctx context.Context, id string) (chunk.Chunk, error) {
	return s.transition(ctx, id, chunk.StatusFailed)
}

// Unlock activates a locked chunk whose date has arrived.
func (s *ChunkService) Unlock(ctx context.Context, id string) (chunk.Chunk, error) {
	c, err := s.chunks.Get(ctx, id)
	if err != nil {
		return chunk.Chunk{}, err
	}

	c, err = chunk.Unlock(c, s.deps.now())
	if err != nil {
		return chunk.Chunk{}, err
	}

	if err := s.chunks.Apply(ctx, chunk.TaskUpdate{Save: []chunk.Chunk{c}}); err != nil {
		return chunk.Chunk{}, fmt.Errorf("unlock chunk: %w", err)
	}
	return c, nil
}

// Remove deletes a chunk. Removing a completed chunk takes its size back
// out of the task's progress, and a task completed by that chunk opens
// again so the work is planned.
func (s *ChunkService) Remove(ctx context.Context, id string) error {
	c, t, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	u := chunk.TaskUpdate{Delete: []string{c.ID}}
	if c.Status == chunk.StatusCompleted {
		t = chunk.Remove(c, t)
		if t.Status == task.StatusCompleted && t.Remaining() > chunk.Tolerance {
			t.Status = task.StatusInProgress
			t.Completed = nil
		}
		t.UpdatedAt = s.deps.now()
		u.Task = &t
	}

	if err := s.chunks.Apply(ctx, u); err != nil {
		return fmt.Errorf("remove chunk: %w", err)
	}
	return nil
}

func (s *ChunkService) transition(ctx context.Context, id string, to chunk.Status) (chunk.Chunk, error) {
	c, err := s.chunks.Get(ctx, id)
	if err != nil {
		return chunk.Chunk{}, err
	}

	c, err = chunk.Transition(c, to)
	if err != nil {
		return chunk.Chunk{}, err
	}

	if err := s.chunks.Apply(ctx, chunk.TaskUpdate{Save: []chunk.Chunk{c}}); err != nil {
		return chunk.Chunk{}, fmt.Errorf("%s chunk: %w", to, err)
	}
	return c, nil
}

func (s *ChunkService) load(ctx context.Context, id string) (chunk.Chunk, task.Task, error) {
	c, err := s.chunks.Get(ctx, id)
	if err != nil {
		return chunk.Chunk{}, task.Task{}, err
	}
	t, err := s.tasks.Get(ctx, c.TaskID)
	if err != nil {
		return chunk.Chunk{}, task.Task{}, fmt.Errorf("load task %d: %w", c.TaskID, err)
	}
	return c, t, nil
}
