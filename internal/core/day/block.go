// Package day models a scheduling day as a contiguous sequence of time blocks
// beginning at a configurable day-start boundary rather than midnight.
package day

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Variant classifies a time block.
type Variant string

const (
	// VariantUser is a persisted, user-defined block.
	VariantUser Variant = "user"
	// VariantFiller is synthesized to cover gaps between user blocks.
	VariantFiller Variant = "filler"
	// VariantUnavailable is a user block that never receives work.
	VariantUnavailable Variant = "unavailable"
)

// IsValid reports whether v is a known variant.
func (v Variant) IsValid() bool {
	switch v {
	case VariantUser, VariantFiller, VariantUnavailable:
		return true
	default:
		return false
	}
}

// Filter selects which tasks a block accepts. Category patterns are
// doublestar globs ("work/**", "errands").
type Filter struct {
	IncludeCategories []string `json:"include_categories,omitempty"`
	IgnoreCategories  []string `json:"ignore_categories,omitempty"`
	IncludeTasks      []int64  `json:"include_tasks,omitempty"`
	IgnoreTasks       []int64  `json:"ignore_tasks,omitempty"`
}

// IsZero reports whether the filter accepts every task.
func (f Filter) IsZero() bool {
	return len(f.IncludeCategories) == 0 && len(f.IgnoreCategories) == 0 &&
		len(f.IncludeTasks) == 0 && len(f.IgnoreTasks) == 0
}

// Allows reports whether a task with the given id and categories may be
// placed in a block using this filter. Ignore rules win over include rules;
// with no include rules every task not ignored is allowed.
func (f Filter) Allows(taskID int64, categories []string) bool {
	if slices.Contains(f.IgnoreTasks, taskID) {
		return false
	}
	if matchAny(f.IgnoreCategories, categories) {
		return false
	}
	if len(f.IncludeCategories) == 0 && len(f.IncludeTasks) == 0 {
		return true
	}
	return slices.Contains(f.IncludeTasks, taskID) || matchAny(f.IncludeCategories, categories)
}

func matchAny(patterns, categories []string) bool {
	for _, p := range patterns {
		for _, c := range categories {
			if ok, err := doublestar.Match(strings.ToLower(p), strings.ToLower(c)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Block is a named interval of the day. A block whose End is earlier than
// its Start crosses midnight.
type Block struct {
	ID          int64
	Name        string
	Start       Clock
	End         Clock
	Variant     Variant
	Color       Color
	Weekdays    []time.Weekday // empty means every day
	Filter      Filter
	Tasks       []int64 // resolved task ids, filled by the planner
	BufferRatio float64 // fraction of the duration held back
}

// BlockParams are the inputs to NewBlock.
type BlockParams struct {
	ID          int64
	Name        string
	Start       string
	End         string
	Variant     Variant
	Color       *Color // nil picks a color from the ColorSource
	Weekdays    []time.Weekday
	Filter      Filter
	BufferRatio float64
}

// NewBlock validates params and builds a user or unavailable block.
func NewBlock(p BlockParams, colors ColorSource) (Block, error) {
	start, err := ParseClock(p.Start)
	if err != nil {
		return Block{}, err
	}
	end, err := ParseClock(p.End)
	if err != nil {
		return Block{}, err
	}

	variant := p.Variant
	if variant == "" {
		variant = VariantUser
	}

	b := Block{
		ID:          p.ID,
		Name:        strings.TrimSpace(p.Name),
		Start:       start,
		End:         end,
		Variant:     variant,
		Weekdays:    p.Weekdays,
		Filter:      p.Filter,
		BufferRatio: p.BufferRatio,
	}

	switch {
	case p.Color != nil:
		b.Color = *p.Color
	case variant == VariantUnavailable:
		b.Color = UnavailableColor
	case colors != nil:
		b.Color = colors.NextColor()
	}

	if err := b.Validate(); err != nil {
		return Block{}, err
	}
	return b, nil
}

// Validate checks a persisted block's structural invariants.
func (b Block) Validate() error {
	if !b.Variant.IsValid() {
		return &ValidationError{Field: "variant", Value: string(b.Variant), Reason: "unknown variant"}
	}
	if b.Variant == VariantFiller {
		return &ValidationError{Field: "variant", Value: string(b.Variant), Reason: "filler blocks cannot be stored"}
	}
	if b.Name == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if b.Start < 0 || b.Start >= MinutesPerDay || b.End < 0 || b.End >= MinutesPerDay {
		return &ValidationError{Field: "range", Value: b.Start.String() + "-" + b.End.String(), Reason: "clock out of range"}
	}
	if b.Start == b.End {
		return &ValidationError{Field: "range", Value: b.Start.String() + "-" + b.End.String(), Reason: "zero-length range"}
	}
	if b.BufferRatio < 0 || b.BufferRatio >= 1 {
		return &ValidationError{Field: "buffer_ratio", Value: formatRatio(b.BufferRatio), Reason: "must be in [0, 1)"}
	}
	for _, p := range append(slices.Clone(b.Filter.IncludeCategories), b.Filter.IgnoreCategories...) {
		if !doublestar.ValidatePattern(p) {
			return &ValidationError{Field: "filter", Value: p, Reason: "invalid category pattern"}
		}
	}
	return nil
}

// Duration is the block length. End before Start crosses midnight; a block
// with End equal to Start spans the whole cycle, which only fillers do.
func (b Block) Duration() time.Duration {
	m := mod(int(b.End)-int(b.Start), MinutesPerDay)
	if m == 0 {
		m = MinutesPerDay
	}
	return time.Duration(m) * time.Minute
}

// Capacity is the usable duration in hours after the buffer is held back.
func (b Block) Capacity() float64 {
	if b.Variant == VariantUnavailable {
		return 0
	}
	return b.Duration().Hours() * (1 - b.BufferRatio)
}

// AppliesOn reports whether the block is scheduled on date's weekday.
func (b Block) AppliesOn(date time.Time) bool {
	return len(b.Weekdays) == 0 || slices.Contains(b.Weekdays, date.Weekday())
}

// Allows reports whether the block can take work from the given task.
func (b Block) Allows(taskID int64, categories []string) bool {
	if b.Variant == VariantUnavailable {
		return false
	}
	return b.Filter.Allows(taskID, categories)
}

// IsFiller reports whether the block was synthesized.
func (b Block) IsFiller() bool {
	return b.Variant == VariantFiller
}

// span returns the block as [from, to) minute offsets from dayStart. The
// result may extend past MinutesPerDay for blocks crossing the day boundary.
func (b Block) span(dayStart Clock) (int, int) {
	from := b.Start.Offset(dayStart)
	return from, from + int(b.Duration()/time.Minute)
}

// FillerID is the stable identity of a filler starting offset minutes after
// the day start. Fillers are never persisted, but chunk assignments refer to
// them by this id, so it only changes when the surrounding user blocks do.
func FillerID(offset int) int64 {
	return -int64(offset) - 1
}

// Lister lists persisted user blocks.
type Lister interface {
	List(ctx context.Context) ([]Block, error)
}

// Store defines persistence for user-defined time blocks.
type Store interface {
	Lister

	// Create persists a new block and sets its ID.
	Create(ctx context.Context, b *Block) error

	// Get returns a block by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id int64) (Block, error)

	// Update replaces a stored block. Returns ErrNotFound if it does not exist.
	Update(ctx context.Context, b Block) error

	// Delete removes a block. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error
}
