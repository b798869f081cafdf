package planner

import (
	"context"
	"fmt"

	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/day"
)

// BlockService manages user-defined time blocks.
type BlockService struct {
	blocks day.Store
	colors day.ColorSource
	log    zerolog.Logger
}

// NewBlockService creates a new BlockService.
func NewBlockService(deps Deps) *BlockService {
	return &BlockService{
		blocks: deps.Blocks,
		colors: deps.Colors,
		log:    logging.Component(deps.Log, "block-service"),
	}
}

// Create validates params and persists the block. Blocks without a color
// get one from the service's color source.
func (s *BlockService) Create(ctx context.Context, p day.BlockParams) (day.Block, error) {
	b, err := day.NewBlock(p, s.colors)
	if err != nil {
		return day.Block{}, err
	}
	if err := s.blocks.Create(ctx, &b); err != nil {
		return day.Block{}, fmt.Errorf("create block: %w", err)
	}

	s.log.Debug().
		Int64("block_id", b.ID).
		Str("name", b.Name).
		Str("range", b.Start.String()+"-"+b.End.String()).
		Msg("block created")
	return b, nil
}

// List returns every user block.
func (s *BlockService) List(ctx context.Context) ([]day.Block, error) {
	return s.blocks.List(ctx)
}

// Delete removes a block; chunks placed in it become unplaced.
func (s *BlockService) Delete(ctx context.Context, id int64) error {
	if err := s.blocks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}
