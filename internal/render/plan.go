package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/daybook/internal/core/allocate"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/history"
	"github.com/colonyops/daybook/internal/core/task"
)

// Plan renders the placements of one allocation run.
func (r *Renderer) Plan(s day.Schedule, p allocate.Plan, tasks map[int64]task.Task) string {
	var sb strings.Builder

	scheduled, unscheduled := p.Totals()
	fmt.Fprintf(&sb, "%s  %s\n\n",
		r.header.Render("Plan for "+s.Date.Format(time.DateOnly)),
		r.muted.Render(fmt.Sprintf("%s, %d nodes, %s", p.Status, p.Nodes, p.Elapsed.Round(time.Millisecond))),
	)

	for _, pl := range p.Placements {
		fmt.Fprintf(&sb, "%s  %s\n", taskTitle(pl.TaskID, tasks), r.muted.Render(pl.ChunkID))
		for _, a := range pl.Allocations {
			name := fmt.Sprintf("block %d", a.BlockID)
			if b, ok := s.Block(a.BlockID); ok {
				name = blockName(b)
			}
			fmt.Fprintf(&sb, "    %s  %s\n", Quantity(a.Quantity, pl.Unit), name)
		}
		if pl.Unscheduled > 0 {
			fmt.Fprintf(&sb, "    %s\n", r.warn.Render(Quantity(pl.Unscheduled, pl.Unit)+" unscheduled"))
		}
	}

	summary := fmt.Sprintf("%d placed, %d with unscheduled work", scheduled, unscheduled)
	if unscheduled > 0 {
		summary = r.warn.Render(summary)
	} else {
		summary = r.ok.Render(summary)
	}
	if len(p.Placements) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(summary + "\n")

	return sb.String()
}

// Runs renders plan run history, newest first.
func (r *Renderer) Runs(runs []history.Run) string {
	if len(runs) == 0 {
		return r.muted.Render("no plan runs yet") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(r.header.Render(fmt.Sprintf("%-36s  %-10s  %-8s  %9s  %11s  %8s", "RUN", "DATE", "STATUS", "SCHEDULED", "UNSCHEDULED", "ELAPSED")) + "\n")
	for _, run := range runs {
		line := fmt.Sprintf("%-36s  %-10s  %-8s  %9d  %11d  %8s",
			run.ID,
			run.Date.Format(time.DateOnly),
			run.Status,
			run.Scheduled,
			run.Unscheduled,
			run.Elapsed.Round(time.Millisecond),
		)
		if run.Partial() {
			line = r.warn.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
