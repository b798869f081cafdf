package day

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/rs/zerolog"
)

// FillerName is the display name of synthesized filler blocks.
const FillerName = "Free"

// Schedule is one scheduling day: blocks that cover [Start, End) exactly,
// in order, with no gaps or overlaps.
type Schedule struct {
	Date     time.Time // civil date, midnight in the schedule's location
	DayStart Clock
	Start    time.Time
	End      time.Time
	Blocks   []Block
}

// DateOf returns the scheduling date that instant t belongs to. Instants
// before the day start belong to the previous date.
func DateOf(t time.Time, dayStart Clock) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if ClockOf(t) < dayStart {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Window returns the absolute start and end of block i.
func (s Schedule) Window(i int) (time.Time, time.Time) {
	from, to := clippedSpan(s.Blocks[i], s.DayStart)
	return s.Start.Add(time.Duration(from) * time.Minute), s.Start.Add(time.Duration(to) * time.Minute)
}

// BlockAt returns the block containing instant t.
func (s Schedule) BlockAt(t time.Time) (Block, bool) {
	if t.Before(s.Start) || !t.Before(s.End) {
		return Block{}, false
	}
	for i, b := range s.Blocks {
		_, end := s.Window(i)
		if t.Before(end) {
			return b, true
		}
	}
	return Block{}, false
}

// Block returns the block with the given id.
func (s Schedule) Block(id int64) (Block, bool) {
	for _, b := range s.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// Validate checks that the blocks are sorted, contiguous, non-overlapping,
// and together span exactly 24h from the day start.
func (s Schedule) Validate() error {
	if len(s.Blocks) == 0 {
		return fmt.Errorf("schedule %s has no blocks", s.Date.Format(time.DateOnly))
	}
	if got := s.End.Sub(s.Start); got != 24*time.Hour {
		return fmt.Errorf("schedule window is %s, want 24h", got)
	}

	cursor := 0
	for i, b := range s.Blocks {
		from, to := clippedSpan(b, s.DayStart)
		if from != cursor {
			return fmt.Errorf("block %d (%s) starts at offset %d, want %d", i, b.Name, from, cursor)
		}
		if to <= from {
			return fmt.Errorf("block %d (%s) is empty", i, b.Name)
		}
		cursor = to
	}
	if cursor != MinutesPerDay {
		return fmt.Errorf("blocks end at offset %d, want %d", cursor, MinutesPerDay)
	}
	return nil
}

// Assemble builds the schedule for date from user blocks. Blocks that do not
// apply on date's weekday are skipped. Gaps are covered with fillers. An
// overlapping block is clipped to start where the previous one ended, and a
// block left empty by clipping is returned in dropped.
func Assemble(date time.Time, dayStart Clock, blocks []Block) (s Schedule, dropped []Block) {
	civil := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	start := time.Date(civil.Year(), civil.Month(), civil.Day(), dayStart.Hour(), dayStart.Minute(), 0, 0, civil.Location())

	s = Schedule{
		Date:     civil,
		DayStart: dayStart,
		Start:    start,
		End:      start.Add(24 * time.Hour),
	}

	applicable := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Variant == VariantFiller || !b.AppliesOn(civil) {
			continue
		}
		applicable = append(applicable, b)
	}

	slices.SortStableFunc(applicable, func(a, b Block) int {
		if c := Compare(a.Start, b.Start, dayStart); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	cursor := 0
	for _, b := range applicable {
		from, to := b.span(dayStart)
		to = min(to, MinutesPerDay)

		if to <= cursor {
			dropped = append(dropped, b)
			continue
		}
		if from < cursor {
			from = cursor
		}
		if from > cursor {
			s.Blocks = append(s.Blocks, filler(dayStart, cursor, from))
		}

		b.Start = dayStart.Add(time.Duration(from) * time.Minute)
		b.End = dayStart.Add(time.Duration(to) * time.Minute)
		s.Blocks = append(s.Blocks, b)
		cursor = to
	}

	if cursor < MinutesPerDay {
		s.Blocks = append(s.Blocks, filler(dayStart, cursor, MinutesPerDay))
	}

	return s, dropped
}

func filler(dayStart Clock, from, to int) Block {
	return Block{
		ID:      FillerID(from),
		Name:    FillerName,
		Start:   dayStart.Add(time.Duration(from) * time.Minute),
		End:     dayStart.Add(time.Duration(to) * time.Minute),
		Variant: VariantFiller,
		Color:   FillerColor,
	}
}

// clippedSpan is span limited to the scheduling day.
func clippedSpan(b Block, dayStart Clock) (int, int) {
	from, to := b.span(dayStart)
	return from, min(to, MinutesPerDay)
}

// Builder builds schedules from persisted user blocks.
type Builder struct {
	blocks   Lister
	dayStart Clock
	log      zerolog.Logger
}

// NewBuilder creates a Builder with the given day-start boundary.
func NewBuilder(blocks Lister, dayStart Clock, log zerolog.Logger) *Builder {
	return &Builder{
		blocks:   blocks,
		dayStart: dayStart,
		log:      logging.Component(log, "day-builder"),
	}
}

// DayStart returns the configured day-start boundary.
func (b *Builder) DayStart() Clock {
	return b.dayStart
}

// Build returns the gap-free schedule for date.
func (b *Builder) Build(ctx context.Context, date time.Time) (Schedule, error) {
	blocks, err := b.blocks.List(ctx)
	if err != nil {
		return Schedule{}, fmt.Errorf("list blocks: %w", err)
	}

	s, dropped := Assemble(date, b.dayStart, blocks)
	for _, d := range dropped {
		b.log.Warn().
			Int64("block_id", d.ID).
			Str("name", d.Name).
			Str("date", s.Date.Format(time.DateOnly)).
			Msg("block fully overlapped by an earlier block, skipping")
	}

	return s, nil
}

func formatRatio(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
