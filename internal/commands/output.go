package commands

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/render"
	"github.com/colonyops/daybook/pkg/iojson"
)

// newRenderer builds a renderer for the command's output stream.
func newRenderer(c *cli.Command, cfg *config.Config) *render.Renderer {
	r := render.New(c.Root().Writer, cfg.Render.Color)
	r.HoursPerCount = cfg.Allocation.CountUnitHours
	return r
}

// writeJSON writes obj as an indented JSON document to the command output.
func writeJSON(c *cli.Command, obj any) error {
	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, obj)
}

// writeLines writes one compact JSON line per item to the command output.
func writeLines[T any](c *cli.Command, items []T) error {
	return iojson.WriteLines(c.Root().Writer, items)
}

// printf writes formatted text to the command output.
func printf(c *cli.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(c.Root().Writer, format, args...)
}
