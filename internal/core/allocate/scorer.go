package allocate

import (
	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/task"
)

// Scorer rates one unit of a chunk's work placed in a block. Higher is
// better; negative ratings are treated as zero.
type Scorer interface {
	Score(c chunk.Chunk, t task.Task, b day.Block, capacity float64) float64
}

// DefaultPriorityWeights maps priority levels 0 through 5 to weights.
var DefaultPriorityWeights = []float64{1, 2, 3, 5, 8, 13}

// PriorityScorer rates work by its task's priority plus a bonus for blocks
// with room to spare relative to the chunk's size.
type PriorityScorer struct {
	Weights       []float64 // indexed by priority; nil uses DefaultPriorityWeights
	HeadroomBonus float64   // multiplier on capacity/size
	HeadroomCap   float64   // upper bound on capacity/size, 0 means no cap
	HoursPerCount float64   // converts count-unit sizes to hours for the headroom ratio
}

// NewPriorityScorer returns a PriorityScorer with the default weights.
func NewPriorityScorer() PriorityScorer {
	return PriorityScorer{
		Weights:       DefaultPriorityWeights,
		HeadroomBonus: 1,
		HeadroomCap:   2,
		HoursPerCount: DefaultCountUnitHours,
	}
}

func (s PriorityScorer) weight(priority int) float64 {
	w := s.Weights
	if w == nil {
		w = DefaultPriorityWeights
	}
	switch {
	case len(w) == 0:
		return 0
	case priority < 0:
		return w[0]
	case priority >= len(w):
		return w[len(w)-1]
	default:
		return w[priority]
	}
}

func (s PriorityScorer) Score(c chunk.Chunk, t task.Task, _ day.Block, capacity float64) float64 {
	size := c.Size
	if c.Unit == chunk.UnitCount {
		per := s.HoursPerCount
		if per <= 0 {
			per = DefaultCountUnitHours
		}
		size *= per
	}

	headroom := s.HeadroomCap
	if size > 0 {
		headroom = capacity / size
		if s.HeadroomCap > 0 {
			headroom = min(headroom, s.HeadroomCap)
		}
	}
	return s.weight(t.Priority) + s.HeadroomBonus*headroom
}

// FlatScorer rates every placement the same, so the engine only maximizes
// the amount of work scheduled.
type FlatScorer struct{}

func (FlatScorer) Score(chunk.Chunk, task.Task, day.Block, float64) float64 {
	return 1
}
