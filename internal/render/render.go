// Package render formats schedules, plans and run history for the
// terminal.
package render

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/colonyops/daybook/internal/core/allocate"
	"github.com/colonyops/daybook/internal/core/chunk"
	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/day"
)

// Renderer turns daybook values into text. Colors are used only when the
// configured mode and the output allow them.
type Renderer struct {
	// HoursPerCount converts counted items to block hours for load figures.
	HoursPerCount float64

	color bool
	lg    *lipgloss.Renderer

	header lipgloss.Style
	muted  lipgloss.Style
	warn   lipgloss.Style
	ok     lipgloss.Style
}

// New creates a Renderer for w. mode is one of config.ColorAuto,
// config.ColorAlways or config.ColorNever; auto colors only terminals.
func New(w io.Writer, mode string) *Renderer {
	color := false
	switch mode {
	case config.ColorAlways:
		color = true
	case config.ColorNever:
	default:
		if f, ok := w.(*os.File); ok {
			color = term.IsTerminal(int(f.Fd()))
		}
	}

	lg := lipgloss.NewRenderer(w)
	switch {
	case !color:
		lg.SetColorProfile(termenv.Ascii)
	case mode == config.ColorAlways:
		lg.SetColorProfile(termenv.TrueColor)
	}

	return &Renderer{
		HoursPerCount: allocate.DefaultCountUnitHours,

		color:  color,
		lg:     lg,
		header: lg.NewStyle().Bold(true),
		muted:  lg.NewStyle().Foreground(lipgloss.Color("244")),
		warn:   lg.NewStyle().Foreground(lipgloss.Color("214")),
		ok:     lg.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

// swatch is a small colored marker for a block; plain output uses the
// variant initial instead.
func (r *Renderer) swatch(b day.Block) string {
	if !r.color {
		switch b.Variant {
		case day.VariantFiller:
			return "·"
		case day.VariantUnavailable:
			return "x"
		default:
			return "■"
		}
	}
	return r.lg.NewStyle().Foreground(lipgloss.Color(b.Color.Hex())).Render("■")
}

func (r *Renderer) status(s chunk.Status) string {
	switch s {
	case chunk.StatusCompleted:
		return r.ok.Render(string(s))
	case chunk.StatusFlagged, chunk.StatusFailed:
		return r.warn.Render(string(s))
	default:
		return r.muted.Render(string(s))
	}
}

// Quantity formats a chunk size in its unit.
func Quantity(v float64, unit chunk.Unit) string {
	n := number(v)
	if unit == chunk.UnitCount {
		if n == "1" {
			return "1 item"
		}
		return n + " items"
	}
	return n + "h"
}

// Hours formats a duration given in hours.
func Hours(v float64) string {
	return number(v) + "h"
}

func number(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
