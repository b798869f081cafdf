package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/daybook/internal/core/config"
)

// Validation renders the result of config.ValidateDeep and Warnings.
func (r *Renderer) Validation(err error, warnings []config.ValidationWarning) string {
	var sb strings.Builder

	for _, w := range warnings {
		line := fmt.Sprintf("! %s: %s", w.Category, w.Message)
		if w.Item != "" {
			line += r.muted.Render(" (" + w.Item + ")")
		}
		sb.WriteString(r.warn.Render(line) + "\n")
	}

	if err == nil {
		sb.WriteString(r.ok.Render("✓ configuration is valid") + "\n")
		return sb.String()
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		sb.WriteString(r.warn.Render("✗ "+err.Error()) + "\n")
		return sb.String()
	}

	for _, fe := range fieldErrs {
		fmt.Fprintf(&sb, "%s %s: %v\n", r.warn.Render("✗"), fe.Field, fe.Err)
	}
	fmt.Fprintf(&sb, "\n%d error(s) found\n", len(fieldErrs))
	return sb.String()
}
