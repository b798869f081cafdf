package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/daybook/internal/core/history"
	"github.com/colonyops/daybook/internal/data/db"
)

// RunStore implements history.Store using SQLite.
type RunStore struct {
	db *db.DB
}

var _ history.Store = (*RunStore)(nil)

// NewRunStore creates a new SQLite-backed plan run store.
func NewRunStore(db *db.DB) *RunStore {
	return &RunStore{db: db}
}

// Record persists a finished run.
func (s *RunStore) Record(ctx context.Context, r history.Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	err := s.db.Queries().CreatePlanRun(ctx, db.PlanRun{
		ID:          r.ID,
		Date:        formatDate(r.Date),
		Status:      r.Status,
		Objective:   r.Objective,
		Scheduled:   int64(r.Scheduled),
		Unscheduled: int64(r.Unscheduled),
		Nodes:       int64(r.Nodes),
		ElapsedNs:   int64(r.Elapsed),
		CreatedAt:   r.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("record plan run: %w", err)
	}
	return nil
}

// Get returns a run by ID. Returns history.ErrNotFound if not found.
func (s *RunStore) Get(ctx context.Context, id string) (history.Run, error) {
	row, err := s.db.Queries().GetPlanRun(ctx, id)
	if IsNotFoundError(err) {
		return history.Run{}, history.ErrNotFound
	}
	if err != nil {
		return history.Run{}, fmt.Errorf("get plan run: %w", err)
	}
	return rowToRun(row)
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *RunStore) List(ctx context.Context, limit int) ([]history.Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.Queries().ListPlanRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list plan runs: %w", err)
	}

	runs := make([]history.Run, 0, len(rows))
	for _, row := range rows {
		r, err := rowToRun(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

func rowToRun(row db.PlanRun) (history.Run, error) {
	date, err := parseDate(row.Date)
	if err != nil {
		return history.Run{}, fmt.Errorf("plan run %s: %w", row.ID, err)
	}

	return history.Run{
		ID:          row.ID,
		Date:        date,
		Status:      row.Status,
		Objective:   row.Objective,
		Scheduled:   int(row.Scheduled),
		Unscheduled: int(row.Unscheduled),
		Nodes:       int(row.Nodes),
		Elapsed:     time.Duration(row.ElapsedNs),
		CreatedAt:   time.Unix(0, row.CreatedAt),
	}, nil
}
