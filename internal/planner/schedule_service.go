package planner

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/allocate"
	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/eventbus"
	"github.com/colonyops/daybook/internal/core/history"
	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/colonyops/daybook/internal/core/task"
)

// DayView is a built schedule together with the chunks dated on it.
type DayView struct {
	Schedule day.Schedule
	Chunks   []chunk.Chunk
	Tasks    map[int64]task.Task
}

// PlanResult is the outcome of one allocation run.
type PlanResult struct {
	Run      history.Run
	Schedule day.Schedule
	Plan     allocate.Plan
}

// ScheduleService builds day schedules and runs allocations. Runs are
// serialized within the process; separate processes planning the same
// database must coordinate themselves.
type ScheduleService struct {
	deps Deps
	log  zerolog.Logger

	mu         sync.Mutex
	builder    *day.Builder
	engine     *allocate.Engine
	decomposer chunk.Decomposer
}

// NewScheduleService creates a ScheduleService configured from cfg.
func NewScheduleService(deps Deps, cfg *config.Config) *ScheduleService {
	s := &ScheduleService{
		deps: deps,
		log:  logging.Component(deps.Log, "schedule"),
	}
	s.configure(cfg)
	return s
}

// Reconfigure swaps in a new configuration. A run in progress finishes
// with the old one.
func (s *ScheduleService) Reconfigure(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configure(cfg)
	s.log.Info().
		Str("day_start", cfg.Day.Start).
		Str("scorer", cfg.Allocation.Scorer).
		Msg("schedule reconfigured")
}

func (s *ScheduleService) configure(cfg *config.Config) {
	s.builder = day.NewBuilder(s.deps.Blocks, cfg.Day.DayStart(), s.deps.Log)
	s.engine = allocate.New(EngineOptions(cfg), s.deps.Log)
	s.decomposer = chunk.Decomposer{
		IDs:      s.deps.IDs,
		MinTime:  cfg.Chunks.MinTime,
		MinCount: cfg.Chunks.MinCount,
	}
}

// DayStart returns the configured day boundary.
func (s *ScheduleService) DayStart() day.Clock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.DayStart()
}

// EngineOptions translates the allocation config into engine options.
func EngineOptions(cfg *config.Config) allocate.Options {
	a := cfg.Allocation
	opts := allocate.Options{
		Scale:          a.Scale,
		TimeLimit:      a.TimeLimit,
		NodeLimit:      a.NodeLimit,
		CountUnitHours: a.CountUnitHours,
	}

	switch a.Scorer {
	case config.ScorerFlat:
		opts.Scorer = allocate.FlatScorer{}
	default:
		scorer := allocate.NewPriorityScorer()
		if len(a.PriorityWeights) > 0 {
			scorer.Weights = a.PriorityWeights
		}
		if a.HeadroomBonus != nil {
			scorer.HeadroomBonus = *a.HeadroomBonus
		}
		scorer.HeadroomCap = a.HeadroomCap
		if a.CountUnitHours > 0 {
			scorer.HoursPerCount = a.CountUnitHours
		}
		opts.Scorer = scorer
	}

	return opts
}

// Day builds the schedule for date and loads the chunks dated on it.
func (s *ScheduleService) Day(ctx context.Context, date time.Time) (DayView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date = civil(date)
	ctx = logging.WithDate(ctx, date)

	sched, tasks, err := s.build(ctx, date)
	if err != nil {
		return DayView{}, err
	}

	chunks, err := s.deps.Chunks.List(ctx, chunk.ListFilter{Date: &date})
	if err != nil {
		return DayView{}, fmt.Errorf("list chunks: %w", err)
	}

	s.deps.Bus.PublishScheduleRebuilt(eventbus.ScheduleRebuiltPayload{Schedule: sched})
	return DayView{Schedule: sched, Chunks: chunks, Tasks: tasks}, nil
}

// build assembles the schedule and resolves which open tasks each block
// accepts.
func (s *ScheduleService) build(ctx context.Context, date time.Time) (day.Schedule, map[int64]task.Task, error) {
	sched, err := s.builder.Build(ctx, date)
	if err != nil {
		return day.Schedule{}, nil, fmt.Errorf("build schedule: %w", err)
	}

	open, err := s.deps.Tasks.List(ctx, task.ListFilter{Open: true})
	if err != nil {
		return day.Schedule{}, nil, fmt.Errorf("list open tasks: %w", err)
	}

	tasks := make(map[int64]task.Task, len(open))
	for _, t := range open {
		tasks[t.ID] = t
	}

	for i := range sched.Blocks {
		b := &sched.Blocks[i]
		b.Tasks = nil
		for _, t := range open {
			if b.Allows(t.ID, t.Categories) {
				b.Tasks = append(b.Tasks, t.ID)
			}
		}
	}

	return sched, tasks, nil
}

// Plan decomposes outstanding work into chunks dated on date, allocates
// them into the day's blocks, and persists the placements. Placed chunks
// from earlier runs keep their blocks and reduce those blocks' capacity.
func (s *ScheduleService) Plan(ctx context.Context, date time.Time) (PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.deps.now()
	date = civil(date)
	runID := uuid.NewString()
	ctx = logging.WithRunID(logging.WithDate(ctx, date), runID)

	sched, tasks, err := s.build(ctx, date)
	if err != nil {
		return PlanResult{}, err
	}

	if err := s.prepareChunks(ctx, date, now, tasks); err != nil {
		return PlanResult{}, err
	}

	chunks, err := s.deps.Chunks.List(ctx, chunk.ListFilter{Date: &date})
	if err != nil {
		return PlanResult{}, fmt.Errorf("list chunks: %w", err)
	}

	plan, err := s.engine.Allocate(ctx, allocate.Input{
		Chunks:   chunks,
		Tasks:    tasks,
		Blocks:   sched.Blocks,
		Reserved: reservedHours(chunks, s.engine.Options().CountUnitHours),
	})
	if err != nil {
		return PlanResult{}, fmt.Errorf("allocate: %w", err)
	}
	if err := plan.Verify(); err != nil {
		return PlanResult{}, fmt.Errorf("plan failed verification: %w", err)
	}

	if err := s.applyPlan(ctx, chunks, plan); err != nil {
		return PlanResult{}, err
	}

	scheduled, unscheduled := plan.Totals()
	run := history.Run{
		ID:          runID,
		Date:        date,
		Status:      string(plan.Status),
		Objective:   plan.Objective,
		Scheduled:   scheduled,
		Unscheduled: unscheduled,
		Nodes:       plan.Nodes,
		Elapsed:     plan.Elapsed,
		CreatedAt:   now,
	}
	if err := s.deps.Runs.Record(ctx, run); err != nil {
		return PlanResult{}, err
	}

	s.log.Info().Ctx(ctx).
		Str("status", run.Status).
		Int("scheduled", scheduled).
		Int("unscheduled", unscheduled).
		Dur("elapsed", run.Elapsed).
		Msg("plan finished")

	s.deps.Bus.PublishScheduleRebuilt(eventbus.ScheduleRebuiltPayload{Schedule: sched})
	s.deps.Bus.PublishPlanFinished(eventbus.PlanFinishedPayload{RunID: runID, Date: date, Plan: plan})

	return PlanResult{Run: run, Schedule: sched, Plan: plan}, nil
}

// prepareChunks brings each open task's chunks up to date before a run:
// lock states follow the calendar, chunks from earlier dates that were
// never finished are released from their blocks and move onto date, and
// work not yet covered by any chunk gets a new one.
func (s *ScheduleService) prepareChunks(ctx context.Context, date, now time.Time, tasks map[int64]task.Task) error {
	for _, id := range slices.Sorted(maps.Keys(tasks)) {
		t := tasks[id]

		existing, err := s.deps.Chunks.List(ctx, chunk.ListFilter{TaskID: t.ID})
		if err != nil {
			return fmt.Errorf("list chunks for task %d: %w", t.ID, err)
		}

		var (
			update  chunk.TaskUpdate
			pending float64
		)
		for _, c := range existing {
			if c.Status.IsTerminal() {
				continue
			}

			changed := false
			if c.IsAssigned() && c.Date.Before(date) {
				s.log.Debug().Ctx(ctx).
					Str("chunk_id", c.ID).
					Int64("block_id", *c.BlockID).
					Time("placed_on", c.Date).
					Msg("releasing unfinished chunk from an earlier day")
				c = chunk.Release(c, t, date)
				changed = true
			}
			if !c.IsAssigned() && c.Variant != chunk.VariantPlaced && c.Date.Before(date) {
				c.Date = date
				changed = true
			}
			if refreshed, ok := chunk.RefreshLock(c, now); ok {
				c = refreshed
				changed = true
			}
			if changed {
				update.Save = append(update.Save, c)
			}
			pending += c.Size
		}

		if residual := t.Remaining() - pending; residual > chunk.Tolerance*max(1, t.Remaining()) {
			c := s.decomposer.Decompose(t, date, now)
			c.Size = residual
			if t.MaxChunk == 0 || c.MaxSize > residual {
				c.MaxSize = residual
			}
			c.MinSize = min(c.MinSize, residual)
			update.Save = append(update.Save, c)
			s.log.Debug().Ctx(ctx).
				Int64("task_id", t.ID).
				Str("chunk_id", c.ID).
				Float64("size", c.Size).
				Msg("decomposed outstanding work")
		}

		if len(update.Save) == 0 {
			continue
		}
		if err := s.deps.Chunks.Apply(ctx, update); err != nil {
			return fmt.Errorf("save chunks for task %d: %w", t.ID, err)
		}
	}
	return nil
}

// applyPlan turns placements into stored chunks. A chunk placed whole is
// assigned in place; a chunk spread over blocks or partly unscheduled is
// partitioned into one placed chunk per block plus an unplaced remainder.
func (s *ScheduleService) applyPlan(ctx context.Context, chunks []chunk.Chunk, plan allocate.Plan) error {
	byID := make(map[string]chunk.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	updates := map[int64]*chunk.TaskUpdate{}
	var (
		placed      []eventbus.ChunkPlacedPayload
		unscheduled []eventbus.ChunkUnscheduledPayload
	)

	for _, pl := range plan.Placements {
		c, ok := byID[pl.ChunkID]
		if !ok {
			return fmt.Errorf("plan references unknown chunk %s", pl.ChunkID)
		}

		if !pl.IsPlaced() {
			if pl.Unscheduled > 0 {
				unscheduled = append(unscheduled, eventbus.ChunkUnscheduledPayload{Chunk: c, Amount: pl.Unscheduled})
			}
			continue
		}

		parts, replaced, err := placeChunk(c, pl, s.deps.IDs)
		if err != nil {
			return err
		}

		u, ok := updates[c.TaskID]
		if !ok {
			u = &chunk.TaskUpdate{}
			updates[c.TaskID] = u
		}
		if replaced {
			u.Delete = append(u.Delete, c.ID)
		}
		u.Save = append(u.Save, parts...)

		for _, p := range parts {
			if p.IsAssigned() {
				placed = append(placed, eventbus.ChunkPlacedPayload{Chunk: p, BlockID: *p.BlockID})
			} else {
				unscheduled = append(unscheduled, eventbus.ChunkUnscheduledPayload{Chunk: p, Amount: p.Size})
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(updates)) {
		if err := s.deps.Chunks.Apply(ctx, *updates[id]); err != nil {
			return fmt.Errorf("persist placements for task %d: %w", id, err)
		}
	}

	for _, p := range placed {
		s.deps.Bus.PublishChunkPlaced(p)
	}
	for _, p := range unscheduled {
		s.deps.Bus.PublishChunkUnscheduled(p)
	}
	return nil
}

// placeChunk returns the chunks that replace c under placement pl and
// whether c itself is replaced.
func placeChunk(c chunk.Chunk, pl allocate.ChunkPlacement, ids chunk.IDSource) ([]chunk.Chunk, bool, error) {
	allocs := slices.Clone(pl.Allocations)
	slices.SortFunc(allocs, func(a, b allocate.Allocation) int {
		return cmp.Compare(a.BlockID, b.BlockID)
	})

	sizes := make([]float64, 0, len(allocs)+1)
	for _, a := range allocs {
		sizes = append(sizes, a.Quantity)
	}
	if pl.Unscheduled > chunk.Tolerance*max(1, c.Size) {
		sizes = append(sizes, pl.Unscheduled)
	}

	if len(sizes) == 1 {
		c.Assign(allocs[0].BlockID)
		c.Variant = chunk.VariantPlaced
		return []chunk.Chunk{c}, false, nil
	}

	parts, err := chunk.Partition(c, sizes, ids)
	if err != nil {
		return nil, false, fmt.Errorf("partition chunk %s: %w", c.ID, err)
	}
	for i, a := range allocs {
		parts[i].Assign(a.BlockID)
		parts[i].Variant = chunk.VariantPlaced
	}
	return parts, true, nil
}

// reservedHours is the block time already claimed by chunks placed in
// earlier runs. Flagged and failed chunks give their time back.
func reservedHours(chunks []chunk.Chunk, countUnitHours float64) map[int64]float64 {
	out := map[int64]float64{}
	for _, c := range chunks {
		if !c.IsAssigned() || c.Status == chunk.StatusFlagged || c.Status == chunk.StatusFailed {
			continue
		}
		hours := c.Size
		if c.Unit == chunk.UnitCount {
			hours *= countUnitHours
		}
		out[*c.BlockID] += hours
	}
	return out
}

// civil truncates t to midnight of its calendar date.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
