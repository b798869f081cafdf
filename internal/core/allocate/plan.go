package allocate

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/colonyops/daybook/internal/core/chunk"
)

// Status says whether a plan is proven optimal.
type Status string

const (
	StatusOptimal  Status = "optimal"
	StatusFeasible Status = "feasible"
)

// Allocation is part of a chunk placed into one block.
type Allocation struct {
	BlockID  int64   `json:"block_id"`
	Quantity float64 `json:"quantity"` // in the chunk's unit
	Hours    float64 `json:"hours"`    // block capacity consumed
}

// ChunkPlacement is the engine's decision for one chunk.
type ChunkPlacement struct {
	ChunkID     string        `json:"chunk_id"`
	TaskID      int64         `json:"task_id"`
	Variant     chunk.Variant `json:"variant"`
	Unit        chunk.Unit    `json:"unit"`
	Size        float64       `json:"size"`
	Allocations []Allocation  `json:"allocations,omitempty"`
	Unscheduled float64       `json:"unscheduled"`
}

// Scheduled is the quantity placed into blocks.
func (p ChunkPlacement) Scheduled() float64 {
	var sum float64
	for _, a := range p.Allocations {
		sum += a.Quantity
	}
	return sum
}

// IsPlaced reports whether any of the chunk landed in a block.
func (p ChunkPlacement) IsPlaced() bool {
	return len(p.Allocations) > 0
}

// Plan is the result of one allocation run.
type Plan struct {
	Status     Status            `json:"status"`
	Objective  float64           `json:"objective"`
	Placements []ChunkPlacement  `json:"placements"`
	BlockLoad  map[int64]float64 `json:"block_load"` // hours allocated per block by this plan
	Capacity   map[int64]float64 `json:"capacity"`   // hours available per block to this plan
	Scale      int               `json:"scale"`
	Nodes      int               `json:"nodes"`
	Elapsed    time.Duration     `json:"elapsed"`
}

// Placement returns the placement for chunkID.
func (p Plan) Placement(chunkID string) (ChunkPlacement, bool) {
	for _, pl := range p.Placements {
		if pl.ChunkID == chunkID {
			return pl, true
		}
	}
	return ChunkPlacement{}, false
}

// Totals returns the number of chunks with any placement and the number
// left entirely or partly unscheduled.
func (p Plan) Totals() (scheduled, unscheduled int) {
	for _, pl := range p.Placements {
		if pl.IsPlaced() {
			scheduled++
		}
		if pl.Unscheduled > 0 {
			unscheduled++
		}
	}
	return scheduled, unscheduled
}

const verifyTolerance = 1e-9

// Verify re-checks conservation and capacity on the plan.
func (p Plan) Verify() error {
	var errs []error
	load := map[int64]float64{}

	for _, pl := range p.Placements {
		if pl.Unscheduled < -verifyTolerance {
			errs = append(errs, fmt.Errorf("chunk %s: negative unscheduled %g", pl.ChunkID, pl.Unscheduled))
		}
		for _, a := range pl.Allocations {
			if a.Quantity <= 0 {
				errs = append(errs, fmt.Errorf("chunk %s: non-positive allocation %g in block %d", pl.ChunkID, a.Quantity, a.BlockID))
			}
			load[a.BlockID] += a.Hours
		}
		if total := pl.Scheduled() + pl.Unscheduled; !chunk.ApproxEqual(total, pl.Size) {
			errs = append(errs, fmt.Errorf("chunk %s: scheduled plus unscheduled is %g, size is %g", pl.ChunkID, total, pl.Size))
		}
		if pl.Variant == chunk.VariantManual {
			switch len(pl.Allocations) {
			case 0:
			case 1:
				if pl.Unscheduled > verifyTolerance {
					errs = append(errs, fmt.Errorf("chunk %s: manual chunk partly scheduled", pl.ChunkID))
				}
			default:
				errs = append(errs, fmt.Errorf("chunk %s: manual chunk split across %d blocks", pl.ChunkID, len(pl.Allocations)))
			}
		}
	}

	for id, hours := range load {
		capacity, ok := p.Capacity[id]
		if !ok {
			errs = append(errs, fmt.Errorf("block %d: allocated but not offered", id))
			continue
		}
		if hours > capacity+verifyTolerance*math.Max(1, capacity) {
			errs = append(errs, fmt.Errorf("block %d: load %g exceeds capacity %g", id, hours, capacity))
		}
		if reported := p.BlockLoad[id]; math.Abs(reported-hours) > verifyTolerance*math.Max(1, hours) {
			errs = append(errs, fmt.Errorf("block %d: reported load %g, allocations add to %g", id, reported, hours))
		}
	}

	return errors.Join(errs...)
}
