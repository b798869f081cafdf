package day

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a time block does not exist.
var ErrNotFound = errors.New("time block not found")

// ValidationError reports a malformed time value, range, or color. These
// indicate bad input or an upstream programming error and are returned to
// the caller rather than coerced.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
