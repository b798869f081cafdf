package day

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of one scheduling cycle in minutes.
const MinutesPerDay = 24 * 60

// DefaultDayStart is the default boundary between two scheduling days.
var DefaultDayStart = Clock(4 * 60)

// Clock is a time of day with minute precision, stored as minutes since
// midnight in [0, MinutesPerDay).
type Clock int

// NewClock returns the clock for hour:minute.
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 {
		return 0, &ValidationError{Field: "clock", Value: fmt.Sprintf("%d:%02d", hour, minute), Reason: "hour must be in 0..23"}
	}
	if minute < 0 || minute > 59 {
		return 0, &ValidationError{Field: "clock", Value: fmt.Sprintf("%d:%02d", hour, minute), Reason: "minute must be in 0..59"}
	}
	return Clock(hour*60 + minute), nil
}

// ParseClock parses a 24h "HH:MM" value.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, &ValidationError{Field: "clock", Value: s, Reason: "expected HH:MM"}
	}

	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, &ValidationError{Field: "clock", Value: s, Reason: "hour is not a number"}
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, &ValidationError{Field: "clock", Value: s, Reason: "minute must be two digits"}
	}

	return NewClock(hour, minute)
}

// MustClock is ParseClock for constants and tests. It panics on bad input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Add moves the clock forward by d, wrapping around midnight.
func (c Clock) Add(d time.Duration) Clock {
	return Clock(mod(int(c)+int(d/time.Minute), MinutesPerDay))
}

// Offset returns the number of minutes from dayStart forward to c, in
// [0, MinutesPerDay). Clocks earlier than the boundary land at the end of
// the cycle.
func (c Clock) Offset(dayStart Clock) int {
	return mod(int(c)-int(dayStart), MinutesPerDay)
}

// Compare orders two clocks within the scheduling day that begins at
// dayStart. A clock earlier than the boundary belongs to the next cycle and
// sorts after every clock at or past the boundary.
func Compare(a, b, dayStart Clock) int {
	oa, ob := a.Offset(dayStart), b.Offset(dayStart)
	switch {
	case oa < ob:
		return -1
	case oa > ob:
		return 1
	default:
		return 0
	}
}

// MarshalText encodes the clock as HH:MM.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes HH:MM.
func (c *Clock) UnmarshalText(text []byte) error {
	v, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
