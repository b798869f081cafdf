package render

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/task"
)

// Day renders a schedule with the chunks placed in each block. Chunks
// dated on the day but not placed are listed at the end.
func (r *Renderer) Day(s day.Schedule, chunks []chunk.Chunk, tasks map[int64]task.Task) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s  %s\n\n",
		r.header.Render(s.Date.Format("Monday 2006-01-02")),
		r.muted.Render("day starts "+s.DayStart.String()),
	)

	byBlock := map[int64][]chunk.Chunk{}
	var unplaced []chunk.Chunk
	for _, c := range chunks {
		if c.IsAssigned() {
			byBlock[*c.BlockID] = append(byBlock[*c.BlockID], c)
		} else {
			unplaced = append(unplaced, c)
		}
	}

	nameWidth := 0
	for _, b := range s.Blocks {
		nameWidth = max(nameWidth, len([]rune(blockName(b))))
	}

	for i, b := range s.Blocks {
		from, to := s.Window(i)
		placed := byBlock[b.ID]

		var used float64
		for _, c := range placed {
			used += r.hoursOf(c)
		}

		load := Hours(b.Capacity())
		if len(placed) > 0 {
			load = number(used) + "/" + load
		}
		if b.Variant == day.VariantUnavailable {
			load = "unavailable"
		}

		name := blockName(b)
		line := fmt.Sprintf("%s %s-%s  %s%s  %s",
			r.swatch(b),
			from.Format("15:04"), to.Format("15:04"),
			name, strings.Repeat(" ", nameWidth-len([]rune(name))),
			load,
		)
		if b.IsFiller() {
			line = r.muted.Render(line)
		}
		sb.WriteString(line + "\n")

		for _, c := range sortChunks(placed) {
			sb.WriteString(r.chunkLine(c, tasks))
		}
	}

	if len(unplaced) > 0 {
		sb.WriteString("\n" + r.header.Render("Not placed") + "\n")
		for _, c := range sortChunks(unplaced) {
			sb.WriteString(r.chunkLine(c, tasks))
		}
	}

	return sb.String()
}

func (r *Renderer) chunkLine(c chunk.Chunk, tasks map[int64]task.Task) string {
	return fmt.Sprintf("    %s  %s  %s  %s\n",
		r.muted.Render(c.ID),
		taskTitle(c.TaskID, tasks),
		Quantity(c.Size, c.Unit),
		r.status(c.Status),
	)
}

func blockName(b day.Block) string {
	if b.Name == "" {
		return day.FillerName
	}
	return b.Name
}

func taskTitle(id int64, tasks map[int64]task.Task) string {
	if t, ok := tasks[id]; ok {
		return t.Title
	}
	return fmt.Sprintf("task %d", id)
}

func (r *Renderer) hoursOf(c chunk.Chunk) float64 {
	if c.Unit == chunk.UnitCount {
		return c.Size * r.HoursPerCount
	}
	return c.Size
}

func sortChunks(chunks []chunk.Chunk) []chunk.Chunk {
	out := slices.Clone(chunks)
	slices.SortFunc(out, func(a, b chunk.Chunk) int {
		return cmp.Or(
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.TaskID, b.TaskID),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}
