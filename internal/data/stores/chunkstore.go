package stores

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/data/db"
)

// ChunkStore implements chunk.Store using SQLite.
type ChunkStore struct {
	db  *db.DB
	log zerolog.Logger
}

var _ chunk.Store = (*ChunkStore)(nil)

// NewChunkStore creates a new SQLite-backed chunk store.
func NewChunkStore(db *db.DB, log zerolog.Logger) *ChunkStore {
	return &ChunkStore{db: db, log: log}
}

// Get returns a chunk by ID. Returns chunk.ErrNotFound if not found.
func (s *ChunkStore) Get(ctx context.Context, id string) (chunk.Chunk, error) {
	row, err := s.db.Queries().GetChunk(ctx, id)
	if IsNotFoundError(err) {
		return chunk.Chunk{}, chunk.ErrNotFound
	}
	if err != nil {
		return chunk.Chunk{}, fmt.Errorf("get chunk: %w", err)
	}
	return s.rowToChunk(row)
}

// List returns chunks matching the filter ordered by date, then creation.
func (s *ChunkStore) List(ctx context.Context, filter chunk.ListFilter) ([]chunk.Chunk, error) {
	var (
		rows []db.Chunk
		err  error
		q    = s.db.Queries()
	)

	switch {
	case filter.TaskID != 0:
		rows, err = q.ListChunksByTask(ctx, filter.TaskID)
	case filter.Date != nil:
		rows, err = q.ListChunksByDate(ctx, formatDate(*filter.Date))
	default:
		rows, err = q.ListChunks(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	out := make([]chunk.Chunk, 0, len(rows))
	for _, row := range rows {
		c, err := s.rowToChunk(row)
		if err != nil {
			s.log.Warn().Err(err).Str("chunk_id", row.ID).Msg("skipping unreadable chunk")
			continue
		}
		if filter.Date != nil && formatDate(c.Date) != formatDate(*filter.Date) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, c.Status) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Apply writes the task and its chunk changes in one transaction.
func (s *ChunkStore) Apply(ctx context.Context, u chunk.TaskUpdate) error {
	for _, c := range u.Save {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
	}

	return s.db.WithTx(ctx, func(q *db.Queries) error {
		if u.Task != nil {
			if err := updateTask(ctx, q, *u.Task); err != nil {
				return err
			}
		}

		for _, id := range u.Delete {
			n, err := q.DeleteChunk(ctx, id)
			if err != nil {
				return fmt.Errorf("delete chunk %s: %w", id, err)
			}
			if n == 0 {
				return fmt.Errorf("delete chunk %s: %w", id, chunk.ErrNotFound)
			}
		}

		for _, c := range u.Save {
			params, err := chunkParams(c)
			if err != nil {
				return err
			}
			if err := q.UpsertChunk(ctx, params); err != nil {
				return fmt.Errorf("save chunk %s: %w", c.ID, err)
			}
		}

		return nil
	})
}

func chunkParams(c chunk.Chunk) (db.UpsertChunkParams, error) {
	ratings, err := marshalJSON(c.Ratings)
	if err != nil {
		return db.UpsertChunkParams{}, fmt.Errorf("encode ratings: %w", err)
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return db.UpsertChunkParams{
		ID:        c.ID,
		TaskID:    c.TaskID,
		Variant:   string(c.Variant),
		Unit:      string(c.Unit),
		Size:      c.Size,
		MinSize:   c.MinSize,
		MaxSize:   c.MaxSize,
		Ratings:   ratings,
		BlockID:   toNullInt(c.BlockID),
		Date:      formatDate(c.Date),
		Recurring: boolToInt(c.Recurring),
		Status:    string(c.Status),
		CreatedAt: createdAt.UnixNano(),
	}, nil
}

func (s *ChunkStore) rowToChunk(row db.Chunk) (chunk.Chunk, error) {
	date, err := parseDate(row.Date)
	if err != nil {
		return chunk.Chunk{}, err
	}

	c := chunk.Chunk{
		ID:        row.ID,
		TaskID:    row.TaskID,
		Variant:   chunk.Variant(row.Variant),
		Unit:      chunk.Unit(row.Unit),
		Size:      row.Size,
		MinSize:   row.MinSize,
		MaxSize:   row.MaxSize,
		BlockID:   fromNullInt(row.BlockID),
		Date:      date,
		Recurring: row.Recurring != 0,
		Status:    chunk.Status(row.Status),
		CreatedAt: time.Unix(0, row.CreatedAt),
	}

	unmarshalJSON(s.log.With().Str("chunk_id", row.ID).Logger(), "ratings", row.Ratings, &c.Ratings)
	return c, nil
}
