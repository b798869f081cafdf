// Package validate provides shared validation functions for command input.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
)

// Title validates a task or block title is non-empty after trimming whitespace.
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// TitleField returns a criterio validator for titles.
func TitleField(field, title string) error {
	return criterio.Run(field, title, Title)
}

// ChunkID validates a chunk identifier: lowercase letters and digits only.
func ChunkID(id string) error {
	if id == "" {
		return fmt.Errorf("chunk id is required")
	}
	for _, r := range id {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fmt.Errorf("chunk id %q may only contain lowercase letters and digits", id)
		}
	}
	return nil
}

// ChunkIDField returns a criterio validator for chunk identifiers.
func ChunkIDField(field, id string) error {
	return criterio.Run(field, id, ChunkID)
}

// Date validates an ISO calendar date (YYYY-MM-DD). Empty means today and
// is accepted.
func Date(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return nil
}

// DateField returns a criterio validator for dates.
func DateField(field, s string) error {
	return criterio.Run(field, s, Date)
}
