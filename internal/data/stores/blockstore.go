package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/data/db"
)

// BlockStore implements day.Store using SQLite.
type BlockStore struct {
	db  *db.DB
	log zerolog.Logger
}

var _ day.Store = (*BlockStore)(nil)

// NewBlockStore creates a new SQLite-backed block store.
func NewBlockStore(db *db.DB, log zerolog.Logger) *BlockStore {
	return &BlockStore{db: db, log: log}
}

// Create validates and persists a new block, setting its ID.
func (s *BlockStore) Create(ctx context.Context, b *day.Block) error {
	if err := b.Validate(); err != nil {
		return err
	}

	weekdays, filter, err := encodeBlockJSON(*b)
	if err != nil {
		return err
	}

	now := time.Now().UnixNano()
	id, err := s.db.Queries().CreateBlock(ctx, db.CreateBlockParams{
		Name:        b.Name,
		StartMin:    int64(b.Start),
		EndMin:      int64(b.End),
		Variant:     string(b.Variant),
		Color:       b.Color.String(),
		Weekdays:    weekdays,
		Filter:      filter,
		BufferRatio: b.BufferRatio,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("create block: %w", err)
	}

	b.ID = id
	return nil
}

// Get returns a block by ID. Returns day.ErrNotFound if not found.
func (s *BlockStore) Get(ctx context.Context, id int64) (day.Block, error) {
	row, err := s.db.Queries().GetBlock(ctx, id)
	if IsNotFoundError(err) {
		return day.Block{}, day.ErrNotFound
	}
	if err != nil {
		return day.Block{}, fmt.Errorf("get block: %w", err)
	}
	return s.rowToBlock(row), nil
}

// List returns all user and unavailable blocks ordered by start time.
func (s *BlockStore) List(ctx context.Context) ([]day.Block, error) {
	rows, err := s.db.Queries().ListBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	blocks := make([]day.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, s.rowToBlock(row))
	}
	return blocks, nil
}

// Update replaces a stored block. Returns day.ErrNotFound if not found.
func (s *BlockStore) Update(ctx context.Context, b day.Block) error {
	if err := b.Validate(); err != nil {
		return err
	}

	weekdays, filter, err := encodeBlockJSON(b)
	if err != nil {
		return err
	}

	n, err := s.db.Queries().UpdateBlock(ctx, db.UpdateBlockParams{
		Name:        b.Name,
		StartMin:    int64(b.Start),
		EndMin:      int64(b.End),
		Variant:     string(b.Variant),
		Color:       b.Color.String(),
		Weekdays:    weekdays,
		Filter:      filter,
		BufferRatio: b.BufferRatio,
		UpdatedAt:   time.Now().UnixNano(),
		ID:          b.ID,
	})
	if err != nil {
		return fmt.Errorf("update block: %w", err)
	}
	if n == 0 {
		return day.ErrNotFound
	}
	return nil
}

// Delete removes a block and unassigns any chunks placed in it.
// Returns day.ErrNotFound if not found.
func (s *BlockStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(q *db.Queries) error {
		n, err := q.DeleteBlock(ctx, id)
		if err != nil {
			return fmt.Errorf("delete block: %w", err)
		}
		if n == 0 {
			return day.ErrNotFound
		}
		if err := q.UnassignChunksFromBlock(ctx, id); err != nil {
			return fmt.Errorf("unassign chunks: %w", err)
		}
		return nil
	})
}

func encodeBlockJSON(b day.Block) (weekdays, filter sql.NullString, err error) {
	weekdays, err = marshalJSON(b.Weekdays)
	if err != nil {
		return weekdays, filter, fmt.Errorf("encode weekdays: %w", err)
	}
	if !b.Filter.IsZero() {
		filter, err = marshalJSON(b.Filter)
		if err != nil {
			return weekdays, filter, fmt.Errorf("encode filter: %w", err)
		}
	}
	return weekdays, filter, nil
}

// rowToBlock converts a db.Block to a day.Block. Malformed structured
// columns fall back to neutral values with a warning.
func (s *BlockStore) rowToBlock(row db.Block) day.Block {
	log := s.log.With().Int64("block_id", row.ID).Logger()

	b := day.Block{
		ID:          row.ID,
		Name:        row.Name,
		Start:       day.Clock(row.StartMin),
		End:         day.Clock(row.EndMin),
		Variant:     day.Variant(row.Variant),
		BufferRatio: row.BufferRatio,
	}

	color, err := day.ParseColor(row.Color)
	if err != nil {
		log.Warn().Err(err).Msg("malformed stored color, using filler color")
		color = day.FillerColor
	}
	b.Color = color

	unmarshalJSON(log, "weekdays", row.Weekdays, &b.Weekdays)
	unmarshalJSON(log, "filter", row.Filter, &b.Filter)
	return b
}
