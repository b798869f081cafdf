package db

import "context"

const planRunColumns = `id, date, status, objective, scheduled, unscheduled, nodes, elapsed_ns, created_at`

func scanPlanRun(row interface{ Scan(...any) error }) (PlanRun, error) {
	var r PlanRun
	err := row.Scan(
		&r.ID,
		&r.Date,
		&r.Status,
		&r.Objective,
		&r.Scheduled,
		&r.Unscheduled,
		&r.Nodes,
		&r.ElapsedNs,
		&r.CreatedAt,
	)
	return r, err
}

const createPlanRun = `
INSERT INTO plan_runs (id, date, status, objective, scheduled, unscheduled, nodes, elapsed_ns, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreatePlanRun(ctx context.Context, arg PlanRun) error {
	_, err := q.db.ExecContext(ctx, createPlanRun,
		arg.ID,
		arg.Date,
		arg.Status,
		arg.Objective,
		arg.Scheduled,
		arg.Unscheduled,
		arg.Nodes,
		arg.ElapsedNs,
		arg.CreatedAt,
	)
	return err
}

const getPlanRun = `SELECT ` + planRunColumns + ` FROM plan_runs WHERE id = ?`

func (q *Queries) GetPlanRun(ctx context.Context, id string) (PlanRun, error) {
	return scanPlanRun(q.db.QueryRowContext(ctx, getPlanRun, id))
}

const listPlanRuns = `SELECT ` + planRunColumns + ` FROM plan_runs ORDER BY created_at DESC, id LIMIT ?`

func (q *Queries) ListPlanRuns(ctx context.Context, limit int64) ([]PlanRun, error) {
	rows, err := q.db.QueryContext(ctx, listPlanRuns, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []PlanRun
	for rows.Next() {
		r, err := scanPlanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
