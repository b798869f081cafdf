package planner

import (
	"context"
	"fmt"

	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/task"
)

// TaskService manages tasks and keeps their chunks consistent.
type TaskService struct {
	tasks  task.Store
	chunks chunk.Store
	log    zerolog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(deps Deps) *TaskService {
	return &TaskService{
		tasks:  deps.Tasks,
		chunks: deps.Chunks,
		log:    logging.Component(deps.Log, "task-service"),
	}
}

// Create persists a new task.
func (s *TaskService) Create(ctx context.Context, t *task.Task) error {
	if err := s.tasks.Create(ctx, t); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	s.log.Debug().Int64("task_id", t.ID).Str("title", t.Title).Msg("task created")
	return nil
}

// Get returns a task by ID.
func (s *TaskService) Get(ctx context.Context, id int64) (task.Task, error) {
	return s.tasks.Get(ctx, id)
}

// List returns tasks matching the filter.
func (s *TaskService) List(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	return s.tasks.List(ctx, filter)
}

// Update replaces a task. Chunks that are not yet placed or finished are
// dropped so the next plan run decomposes the task's new remaining work.
func (s *TaskService) Update(ctx context.Context, t task.Task) error {
	existing, err := s.chunks.List(ctx, chunk.ListFilter{TaskID: t.ID})
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	u := chunk.TaskUpdate{Task: &t}
	for _, c := range existing {
		if !c.Status.IsTerminal() && !c.IsAssigned() {
			u.Delete = append(u.Delete, c.ID)
		}
	}

	if err := s.chunks.Apply(ctx, u); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete removes a task and all of its chunks.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.log.Debug().Int64("task_id", id).Msg("task deleted")
	return nil
}
