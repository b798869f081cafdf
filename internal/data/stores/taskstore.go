package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/task"
	"github.com/colonyops/daybook/internal/data/db"
)

// TaskStore implements task.Store using SQLite.
type TaskStore struct {
	db  *db.DB
	log zerolog.Logger
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(db *db.DB, log zerolog.Logger) *TaskStore {
	return &TaskStore{db: db, log: log}
}

// Create validates and persists a new task, setting its ID and timestamps.
func (s *TaskStore) Create(ctx context.Context, t *task.Task) error {
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	params, err := taskParams(*t)
	if err != nil {
		return err
	}

	id, err := s.db.Queries().CreateTask(ctx, params, t.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	t.ID = id
	return nil
}

// Get returns a task by ID. Returns task.ErrNotFound if not found.
func (s *TaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	row, err := s.db.Queries().GetTask(ctx, id)
	if IsNotFoundError(err) {
		return task.Task{}, task.ErrNotFound
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get task: %w", err)
	}
	return s.rowToTask(row), nil
}

// List returns tasks matching the filter, highest priority first.
func (s *TaskStore) List(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	var (
		rows []db.Task
		err  error
		q    = s.db.Queries()
	)

	switch {
	case filter.Status != "":
		rows, err = q.ListTasksByStatus(ctx, string(filter.Status))
	case filter.Recurring:
		rows, err = q.ListRecurringTasks(ctx)
	case filter.Open:
		rows, err = q.ListOpenTasks(ctx)
	default:
		rows, err = q.ListTasks(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		t := s.rowToTask(row)
		if !matchesFilter(t, filter) {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// matchesFilter re-checks the predicates the chosen query did not cover.
// A stored recurrence that failed to parse no longer counts as recurring.
func matchesFilter(t task.Task, f task.ListFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Recurring && t.Recurrence.IsZero() {
		return false
	}
	if f.Open && t.Status.IsClosed() {
		return false
	}
	return true
}

// Update replaces a stored task. Returns task.ErrNotFound if not found.
func (s *TaskStore) Update(ctx context.Context, t task.Task) error {
	return updateTask(ctx, s.db.Queries(), t)
}

// Delete removes a task and its chunks. Returns task.ErrNotFound if not found.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(q *db.Queries) error {
		if err := q.DeleteChunksByTask(ctx, id); err != nil {
			return fmt.Errorf("delete task chunks: %w", err)
		}
		n, err := q.DeleteTask(ctx, id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if n == 0 {
			return task.ErrNotFound
		}
		return nil
	})
}

func updateTask(ctx context.Context, q *db.Queries, t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}

	params, err := taskParams(t)
	if err != nil {
		return err
	}

	n, err := q.UpdateTask(ctx, t.ID, params)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

func taskParams(t task.Task) (db.TaskParams, error) {
	categories, err := marshalJSON(t.Categories)
	if err != nil {
		return db.TaskParams{}, fmt.Errorf("encode categories: %w", err)
	}

	recurrence, err := marshalJSON(t.Recurrence.Strings())
	if err != nil {
		return db.TaskParams{}, fmt.Errorf("encode recurrence: %w", err)
	}

	return db.TaskParams{
		Title:           t.Title,
		Priority:        int64(t.Priority),
		Categories:      categories,
		DueAt:           toNullTime(t.Due),
		CompletedAt:     toNullTime(t.Completed),
		Recurrence:      recurrence,
		RecurrenceCount: int64(t.RecurrenceCount),
		Estimate:        t.Estimate,
		Logged:          t.Logged,
		CountRequired:   t.CountRequired,
		CountCompleted:  t.CountCompleted,
		ChunkPreference: string(t.ChunkPreference),
		MinChunk:        t.MinChunk,
		MaxChunk:        t.MaxChunk,
		Status:          string(t.Status),
		UpdatedAt:       t.UpdatedAt.UnixNano(),
	}, nil
}

// rowToTask converts a db.Task to a task.Task. A malformed recurrence or
// category list is logged and replaced with its neutral value.
func (s *TaskStore) rowToTask(row db.Task) task.Task {
	log := s.log.With().Int64("task_id", row.ID).Logger()

	t := task.Task{
		ID:              row.ID,
		Title:           row.Title,
		Priority:        int(row.Priority),
		Due:             fromNullTime(row.DueAt),
		Completed:       fromNullTime(row.CompletedAt),
		RecurrenceCount: int(row.RecurrenceCount),
		Estimate:        row.Estimate,
		Logged:          row.Logged,
		CountRequired:   row.CountRequired,
		CountCompleted:  row.CountCompleted,
		ChunkPreference: task.ChunkPreference(row.ChunkPreference),
		MinChunk:        row.MinChunk,
		MaxChunk:        row.MaxChunk,
		Status:          task.Status(row.Status),
		CreatedAt:       time.Unix(0, row.CreatedAt),
		UpdatedAt:       time.Unix(0, row.UpdatedAt),
	}

	unmarshalJSON(log, "categories", row.Categories, &t.Categories)

	var raw []string
	unmarshalJSON(log, "recurrence", row.Recurrence, &raw)
	rec, err := task.ParseRecurrence(raw)
	if err != nil {
		log.Warn().Err(err).Msg("malformed stored recurrence, treating task as non-recurring")
	}
	t.Recurrence = rec

	return t
}
