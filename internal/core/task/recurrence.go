package task

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// RecurrenceKind selects how a task repeats.
type RecurrenceKind string

const (
	RecurNone     RecurrenceKind = ""
	RecurInterval RecurrenceKind = "interval"
	RecurWeekdays RecurrenceKind = "weekdays"
)

// Recurrence describes when a task comes back after it is closed.
type Recurrence struct {
	Kind     RecurrenceKind `json:"kind,omitempty"`
	Every    int            `json:"every,omitempty"`    // days, for RecurInterval
	Weekdays []time.Weekday `json:"weekdays,omitempty"` // for RecurWeekdays
}

// IsZero reports whether the task does not recur.
func (r Recurrence) IsZero() bool {
	return r.Kind == RecurNone
}

// Validate checks the recurrence for internal consistency.
func (r Recurrence) Validate() error {
	switch r.Kind {
	case RecurNone:
		return nil
	case RecurInterval:
		if r.Every < 1 {
			return fmt.Errorf("%w: recurrence interval must be at least 1 day", ErrInvalid)
		}
	case RecurWeekdays:
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("%w: weekday recurrence needs at least one weekday", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown recurrence kind %q", ErrInvalid, r.Kind)
	}
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekday accepts English weekday names or their three-letter prefix.
func ParseWeekday(s string) (time.Weekday, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if len(key) < 3 {
		return 0, false
	}
	wd, ok := weekdayNames[key[:3]]
	return wd, ok
}

// ParseRecurrence parses the list form used by the CLI and the database:
// ["3"] repeats every 3 days, ["Mon", "Wed"] repeats on those weekdays, and
// an empty list does not repeat. Malformed input yields a neutral
// Recurrence together with a *DataError so callers can log and continue.
func ParseRecurrence(raw []string) (Recurrence, error) {
	if len(raw) == 0 {
		return Recurrence{}, nil
	}

	if len(raw) == 1 {
		if n, err := strconv.Atoi(strings.TrimSpace(raw[0])); err == nil {
			if n < 1 {
				return Recurrence{}, &DataError{Field: "recurrence", Raw: strings.Join(raw, ","), Err: fmt.Errorf("interval must be positive")}
			}
			return Recurrence{Kind: RecurInterval, Every: n}, nil
		}
	}

	days := make([]time.Weekday, 0, len(raw))
	for _, s := range raw {
		wd, ok := ParseWeekday(s)
		if !ok {
			return Recurrence{}, &DataError{Field: "recurrence", Raw: strings.Join(raw, ","), Err: fmt.Errorf("unknown weekday %q", s)}
		}
		if !slices.Contains(days, wd) {
			days = append(days, wd)
		}
	}
	slices.Sort(days)

	return Recurrence{Kind: RecurWeekdays, Weekdays: days}, nil
}

// Strings is the inverse of ParseRecurrence.
func (r Recurrence) Strings() []string {
	switch r.Kind {
	case RecurInterval:
		return []string{strconv.Itoa(r.Every)}
	case RecurWeekdays:
		out := make([]string, len(r.Weekdays))
		for i, wd := range r.Weekdays {
			out[i] = wd.String()[:3]
		}
		return out
	default:
		return nil
	}
}

func (r Recurrence) String() string {
	switch r.Kind {
	case RecurInterval:
		return fmt.Sprintf("every %d days", r.Every)
	case RecurWeekdays:
		return "on " + strings.Join(r.Strings(), ",")
	default:
		return "never"
	}
}

// DataError reports a malformed structured field read from storage. The
// field falls back to a neutral value; callers log the error and continue.
type DataError struct {
	Field string
	Raw   string
	Err   error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("malformed %s %q: %v", e.Field, e.Raw, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}
