package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/task"
)

// Blocks renders the user block list.
func (r *Renderer) Blocks(blocks []day.Block) string {
	if len(blocks) == 0 {
		return r.muted.Render("no blocks defined") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(r.header.Render(fmt.Sprintf("   %4s  %-11s  %-20s  %-11s  %s", "ID", "RANGE", "NAME", "CAPACITY", "DAYS")) + "\n")
	for _, b := range blocks {
		days := "every day"
		if len(b.Weekdays) > 0 {
			names := make([]string, len(b.Weekdays))
			for i, wd := range b.Weekdays {
				names[i] = wd.String()[:3]
			}
			days = strings.Join(names, ",")
		}

		capacity := Hours(b.Capacity())
		if b.Variant == day.VariantUnavailable {
			capacity = "unavailable"
		}

		fmt.Fprintf(&sb, "%s  %4d  %s-%s  %-20s  %-11s  %s\n",
			r.swatch(b), b.ID, b.Start, b.End, b.Name, capacity, r.muted.Render(days))
	}
	return sb.String()
}

// Tasks renders tasks with their outstanding work.
func (r *Renderer) Tasks(tasks []task.Task) string {
	if len(tasks) == 0 {
		return r.muted.Render("no tasks") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(r.header.Render(fmt.Sprintf("%4s  %3s  %-30s  %-12s  %-10s  %s", "ID", "PRI", "TITLE", "REMAINING", "DUE", "STATUS")) + "\n")
	for _, t := range tasks {
		due := "-"
		if t.Due != nil {
			due = t.Due.Format(time.DateOnly)
		}

		status := string(t.Status)
		if t.Status.IsClosed() {
			status = r.ok.Render(status)
		} else {
			status = r.muted.Render(status)
		}

		line := fmt.Sprintf("%4d  %3d  %-30s  %-12s  %-10s  %s",
			t.ID, t.Priority, t.Title, Quantity(t.Remaining(), chunk.UnitOf(t)), due, status)
		if !t.Recurrence.IsZero() {
			line += r.muted.Render("  repeats " + t.Recurrence.String())
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// Chunks renders a flat chunk list, oldest first.
func (r *Renderer) Chunks(chunks []chunk.Chunk, tasks map[int64]task.Task) string {
	if len(chunks) == 0 {
		return r.muted.Render("no chunks") + "\n"
	}

	var sb strings.Builder
	for _, c := range sortChunks(chunks) {
		where := "unplaced"
		if c.IsAssigned() {
			where = fmt.Sprintf("block %d", *c.BlockID)
		}
		fmt.Fprintf(&sb, "%s  %s  %s  %s  %s  %s\n",
			c.Date.Format(time.DateOnly),
			r.muted.Render(c.ID),
			taskTitle(c.TaskID, tasks),
			Quantity(c.Size, c.Unit),
			where,
			r.status(c.Status),
		)
	}
	return sb.String()
}
