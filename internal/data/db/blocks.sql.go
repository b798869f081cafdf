package db

import (
	"context"
	"database/sql"
)

const blockColumns = `id, name, start_min, end_min, variant, color, weekdays, filter, buffer_ratio, created_at, updated_at`

func scanBlock(row interface{ Scan(...any) error }) (Block, error) {
	var b Block
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.StartMin,
		&b.EndMin,
		&b.Variant,
		&b.Color,
		&b.Weekdays,
		&b.Filter,
		&b.BufferRatio,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

const createBlock = `
INSERT INTO blocks (name, start_min, end_min, variant, color, weekdays, filter, buffer_ratio, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateBlockParams struct {
	Name        string
	StartMin    int64
	EndMin      int64
	Variant     string
	Color       string
	Weekdays    sql.NullString
	Filter      sql.NullString
	BufferRatio float64
	CreatedAt   int64
	UpdatedAt   int64
}

func (q *Queries) CreateBlock(ctx context.Context, arg CreateBlockParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createBlock,
		arg.Name,
		arg.StartMin,
		arg.EndMin,
		arg.Variant,
		arg.Color,
		arg.Weekdays,
		arg.Filter,
		arg.BufferRatio,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getBlock = `SELECT ` + blockColumns + ` FROM blocks WHERE id = ?`

func (q *Queries) GetBlock(ctx context.Context, id int64) (Block, error) {
	return scanBlock(q.db.QueryRowContext(ctx, getBlock, id))
}

const listBlocks = `SELECT ` + blockColumns + ` FROM blocks ORDER BY start_min, id`

func (q *Queries) ListBlocks(ctx context.Context) ([]Block, error) {
	rows, err := q.db.QueryContext(ctx, listBlocks)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const updateBlock = `
UPDATE blocks
SET name = ?, start_min = ?, end_min = ?, variant = ?, color = ?, weekdays = ?, filter = ?, buffer_ratio = ?, updated_at = ?
WHERE id = ?`

type UpdateBlockParams struct {
	Name        string
	StartMin    int64
	EndMin      int64
	Variant     string
	Color       string
	Weekdays    sql.NullString
	Filter      sql.NullString
	BufferRatio float64
	UpdatedAt   int64
	ID          int64
}

func (q *Queries) UpdateBlock(ctx context.Context, arg UpdateBlockParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBlock,
		arg.Name,
		arg.StartMin,
		arg.EndMin,
		arg.Variant,
		arg.Color,
		arg.Weekdays,
		arg.Filter,
		arg.BufferRatio,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteBlock = `DELETE FROM blocks WHERE id = ?`

func (q *Queries) DeleteBlock(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBlock, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const unassignChunksFromBlock = `UPDATE chunks SET block_id = NULL WHERE block_id = ?`

func (q *Queries) UnassignChunksFromBlock(ctx context.Context, blockID int64) error {
	_, err := q.db.ExecContext(ctx, unassignChunksFromBlock, blockID)
	return err
}
