// Package allocate assigns chunks of task work to time blocks by solving a
// mixed-integer program: maximize the rated work placed, subject to block
// capacity, with explicit slack for whatever cannot be placed.
package allocate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/colonyops/daybook/internal/core/milp"
	"github.com/colonyops/daybook/internal/core/task"
	"github.com/rs/zerolog"
)

// ErrNoSolution is returned when the solver produced no plan at all.
var ErrNoSolution = errors.New("allocation found no solution")

// Defaults for Options.
const (
	DefaultScale          = 10
	DefaultTimeLimit      = 2 * time.Second
	DefaultNodeLimit      = 20000
	DefaultCountUnitHours = 0.5
)

// Options configure the engine.
type Options struct {
	Scale          int           // discretization steps per unit
	TimeLimit      time.Duration // solver wall-clock budget
	NodeLimit      int           // solver branch-and-bound node budget
	CountUnitHours float64       // block hours consumed by one count-unit item
	Scorer         Scorer
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.TimeLimit <= 0 {
		o.TimeLimit = DefaultTimeLimit
	}
	if o.NodeLimit <= 0 {
		o.NodeLimit = DefaultNodeLimit
	}
	if o.CountUnitHours <= 0 {
		o.CountUnitHours = DefaultCountUnitHours
	}
	if o.Scorer == nil {
		o.Scorer = NewPriorityScorer()
	}
	return o
}

// Input is one allocation problem.
type Input struct {
	Chunks   []chunk.Chunk
	Tasks    map[int64]task.Task // owning tasks, for priority and categories
	Blocks   []day.Block
	Reserved map[int64]float64 // hours already taken per block
}

// Engine runs allocations. It is safe for concurrent use but callers must
// serialize runs over the same chunks.
type Engine struct {
	opts Options
	log  zerolog.Logger
}

// New creates an Engine.
func New(opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		opts: opts.withDefaults(),
		log:  logging.Component(log, "allocate"),
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

type slot struct {
	block day.Block
	hours float64 // real hours available
	units float64 // hours available, scaled
}

type item struct {
	c       chunk.Chunk
	t       task.Task
	per     float64 // block hours per unit of size
	step    float64 // model units per unit of size
	weight  float64 // scaled block hours per model unit
	size    int     // size in model units
	minQty  int
	maxQty  int
	pairs   []int
	unsched milp.Var // manual: unscheduled flag; auto: remainder
}

type pair struct {
	item   int
	slot   int
	rating float64
	used   milp.Var
	qty    milp.Var // auto only
}

type problem struct {
	scale  float64
	items  []item
	slots  []slot
	pairs  []pair
	model  *milp.Model
	maxPen float64
}

// Allocate plans the chunks into the blocks. Chunks that are not active or
// are already placed are ignored. The engine never fails for lack of room:
// anything that does not fit is reported as unscheduled.
func (e *Engine) Allocate(ctx context.Context, in Input) (Plan, error) {
	start := time.Now()
	p := e.build(in)

	plan := Plan{
		Status:    StatusOptimal,
		BlockLoad: map[int64]float64{},
		Capacity:  map[int64]float64{},
		Scale:     e.opts.Scale,
	}
	for _, s := range p.slots {
		plan.Capacity[s.block.ID] = s.hours
	}

	values := e.greedy(p)
	if len(p.pairs) > 0 {
		log := e.log
		sol, err := milp.Solve(ctx, p.model, milp.Options{
			TimeLimit: e.opts.TimeLimit,
			NodeLimit: e.opts.NodeLimit,
			Hint:      values,
			Logger:    &log,
		})
		if err != nil {
			return Plan{}, fmt.Errorf("%w: %w", ErrNoSolution, err)
		}
		values = sol.Values
		plan.Nodes = sol.Nodes
		if sol.Status != milp.Optimal {
			plan.Status = StatusFeasible
		}
	}

	plan.Objective = p.model.Evaluate(values)
	plan.Placements = e.decode(p, values, plan.BlockLoad, plan.Capacity)
	plan.Elapsed = time.Since(start)

	scheduled, unscheduled := plan.Totals()
	e.log.Debug().Ctx(ctx).
		Int("chunks", len(p.items)).
		Int("blocks", len(p.slots)).
		Int("pairs", len(p.pairs)).
		Int("scheduled", scheduled).
		Int("unscheduled", unscheduled).
		Str("status", string(plan.Status)).
		Dur("elapsed", plan.Elapsed).
		Msg("allocation finished")

	return plan, nil
}

func (e *Engine) build(in Input) *problem {
	p := &problem{scale: float64(e.opts.Scale), model: milp.NewModel()}

	for _, b := range in.Blocks {
		if b.Variant == day.VariantUnavailable {
			continue
		}
		hours := b.Capacity() - in.Reserved[b.ID]
		units := math.Floor(hours*p.scale + 1e-9)
		if units <= 0 {
			continue
		}
		p.slots = append(p.slots, slot{block: b, hours: hours, units: units})
	}

	for _, c := range in.Chunks {
		if c.Status != chunk.StatusActive || c.Variant == chunk.VariantPlaced || c.IsAssigned() {
			e.log.Debug().Str("chunk_id", c.ID).Str("status", string(c.Status)).Msg("chunk not awaiting placement")
			continue
		}
		t, ok := in.Tasks[c.TaskID]
		if !ok {
			t = task.Task{ID: c.TaskID}
		}

		// Time is discretized at the engine scale, counts in whole items.
		it := item{c: c, t: t, per: 1, step: p.scale}
		if c.Unit == chunk.UnitCount {
			it.per = e.opts.CountUnitHours
			it.step = 1
		}
		it.weight = it.per * p.scale / it.step

		if c.Variant == chunk.VariantManual {
			it.size = int(math.Ceil(c.Size*it.step - 1e-9))
		} else {
			it.size = int(math.Floor(c.Size*it.step + 1e-9))
			maxSize := c.MaxSize
			if maxSize <= 0 {
				maxSize = c.Size
			}
			// Bounds round inward so no piece leaves [MinSize, MaxSize].
			it.minQty = min(max(int(math.Ceil(min(c.MinSize, c.Size)*it.step-1e-9)), 1), it.size)
			it.maxQty = min(int(math.Floor(maxSize*it.step+1e-9)), it.size)
			if it.maxQty < it.minQty {
				e.log.Debug().Str("chunk_id", c.ID).Msg("no piece size fits between min and max at this scale")
			}
		}
		p.items = append(p.items, it)
	}

	// Ratings first, so the penalty can be set above all of them.
	var maxRating float64
	for i := range p.items {
		it := &p.items[i]
		if it.size <= 0 || it.maxQty < it.minQty {
			continue
		}
		for j, s := range p.slots {
			if !s.block.Allows(it.t.ID, it.t.Categories) {
				continue
			}
			need := float64(it.minQty)
			if it.c.Variant == chunk.VariantManual {
				need = float64(it.size)
			}
			if need*it.weight > s.units+1e-9 {
				continue
			}

			rating, ok := it.c.Rating(s.block.ID)
			if !ok {
				rating = e.opts.Scorer.Score(it.c, it.t, s.block, s.hours)
			}
			rating = max(rating, 0)
			maxRating = max(maxRating, rating)

			it.pairs = append(it.pairs, len(p.pairs))
			p.pairs = append(p.pairs, pair{item: i, slot: j, rating: rating})
		}
	}
	p.maxPen = 2*maxRating + 1

	m := p.model
	load := make([][]milp.Term, len(p.slots))
	for i := range p.items {
		it := &p.items[i]
		size := float64(it.size)

		if it.c.Variant == chunk.VariantManual {
			it.unsched = m.NewBool("unscheduled:" + it.c.ID)
			m.SetObjective(milp.T(it.unsched, -p.maxPen*size*it.weight))
			row := []milp.Term{milp.T(it.unsched, 1)}
			for _, k := range it.pairs {
				pr := &p.pairs[k]
				pr.used = m.NewBool(fmt.Sprintf("used:%s@%d", it.c.ID, p.slots[pr.slot].block.ID))
				m.SetObjective(milp.T(pr.used, pr.rating*size*it.weight))
				row = append(row, milp.T(pr.used, 1))
				load[pr.slot] = append(load[pr.slot], milp.T(pr.used, size*it.weight))
			}
			m.AddConstraint("place:"+it.c.ID, row, milp.Equal, 1)
			continue
		}

		it.unsched = m.NewInt("remainder:"+it.c.ID, size)
		m.SetObjective(milp.T(it.unsched, -p.maxPen*it.weight))
		row := []milp.Term{milp.T(it.unsched, 1)}
		for _, k := range it.pairs {
			pr := &p.pairs[k]
			id := fmt.Sprintf("%s@%d", it.c.ID, p.slots[pr.slot].block.ID)
			pr.used = m.NewBool("used:" + id)
			pr.qty = m.NewInt("qty:"+id, size)
			m.SetObjective(milp.T(pr.qty, pr.rating*it.weight))
			m.AddConstraint("max:"+id, []milp.Term{milp.T(pr.qty, 1), milp.T(pr.used, -float64(it.maxQty))}, milp.LessEq, 0)
			m.AddConstraint("min:"+id, []milp.Term{milp.T(pr.qty, 1), milp.T(pr.used, -float64(it.minQty))}, milp.GreaterEq, 0)
			row = append(row, milp.T(pr.qty, 1))
			load[pr.slot] = append(load[pr.slot], milp.T(pr.qty, it.weight))
		}
		m.AddConstraint("conserve:"+it.c.ID, row, milp.Equal, size)
	}

	for j, terms := range load {
		if len(terms) > 0 {
			m.AddConstraint(fmt.Sprintf("capacity:%d", p.slots[j].block.ID), terms, milp.LessEq, p.slots[j].units)
		}
	}

	return p
}

// greedy builds a feasible starting point: chunks in order of their best
// rating take the best-rated blocks that still have room.
func (e *Engine) greedy(p *problem) []float64 {
	values := make([]float64, p.model.NumVars())
	free := make([]float64, len(p.slots))
	for j, s := range p.slots {
		free[j] = s.units
	}

	best := func(it item) float64 {
		var r float64
		for _, k := range it.pairs {
			r = max(r, p.pairs[k].rating)
		}
		return r
	}
	order := make([]int, len(p.items))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(best(p.items[b]), best(p.items[a]))
	})

	for _, i := range order {
		it := p.items[i]
		if it.size <= 0 {
			if it.c.Variant == chunk.VariantManual {
				values[it.unsched] = 1
			}
			continue
		}

		pairs := slices.Clone(it.pairs)
		slices.SortStableFunc(pairs, func(a, b int) int {
			return cmp.Compare(p.pairs[b].rating, p.pairs[a].rating)
		})

		if it.c.Variant == chunk.VariantManual {
			values[it.unsched] = 1
			need := float64(it.size) * it.weight
			for _, k := range pairs {
				pr := p.pairs[k]
				if free[pr.slot]+1e-9 >= need {
					free[pr.slot] -= need
					values[pr.used] = 1
					values[it.unsched] = 0
					break
				}
			}
			continue
		}

		remaining := it.size
		for _, k := range pairs {
			if remaining < it.minQty {
				break
			}
			pr := p.pairs[k]
			avail := int(math.Floor(free[pr.slot]/it.weight + 1e-9))
			take := min(remaining, it.maxQty, avail)
			if take < it.minQty {
				continue
			}
			free[pr.slot] -= float64(take) * it.weight
			values[pr.used] = 1
			values[pr.qty] = float64(take)
			remaining -= take
		}
		values[it.unsched] = float64(remaining)
	}

	return values
}

func (e *Engine) decode(p *problem, values []float64, blockLoad, capacity map[int64]float64) []ChunkPlacement {
	out := make([]ChunkPlacement, 0, len(p.items))
	used := make(map[int64]float64, len(p.slots))

	for _, it := range p.items {
		pl := ChunkPlacement{
			ChunkID: it.c.ID,
			TaskID:  it.c.TaskID,
			Variant: it.c.Variant,
			Unit:    it.c.Unit,
			Size:    it.c.Size,
		}

		for _, k := range it.pairs {
			pr := p.pairs[k]
			id := p.slots[pr.slot].block.ID
			var qty float64
			switch {
			case it.c.Variant == chunk.VariantManual && values[pr.used] > 0.5:
				qty = it.c.Size
			case it.c.Variant == chunk.VariantAuto:
				qty = math.Round(values[pr.qty]) / it.step
			}
			if qty <= 0 {
				continue
			}
			pl.Allocations = append(pl.Allocations, Allocation{BlockID: id, Quantity: qty, Hours: qty * it.per})
			used[id] += qty * it.per
		}

		pl.Unscheduled = max(it.c.Size-pl.Scheduled(), 0)

		// An auto chunk fully placed at the engine's resolution may still
		// have a sub-step tail; give it to an allocation with room left.
		if it.c.Variant == chunk.VariantAuto && pl.Unscheduled > 0 && pl.Unscheduled < 1/it.step {
			tail := pl.Unscheduled
			for i := len(pl.Allocations) - 1; i >= 0; i-- {
				a := &pl.Allocations[i]
				maxSize := it.c.MaxSize
				if maxSize <= 0 {
					maxSize = it.c.Size
				}
				if used[a.BlockID]+tail*it.per <= capacity[a.BlockID] && a.Quantity+tail <= maxSize+1e-9 {
					a.Quantity += tail
					a.Hours += tail * it.per
					used[a.BlockID] += tail * it.per
					pl.Unscheduled = 0
					break
				}
			}
		}

		out = append(out, pl)
	}

	for id, h := range used {
		blockLoad[id] = h
	}
	return out
}
