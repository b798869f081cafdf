package day

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
)

// Color is an RGB block color.
type Color struct {
	R, G, B uint8
}

// FillerColor is used for synthesized filler blocks.
var FillerColor = Color{R: 90, G: 90, B: 90}

// UnavailableColor is the default for unavailable blocks.
var UnavailableColor = Color{R: 60, G: 30, B: 30}

// ParseColor parses "r,g,b" (surrounding parentheses and spaces allowed).
// Anything other than exactly three integer components in 0..255 is a
// ValidationError.
func ParseColor(s string) (Color, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")

	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return Color{}, &ValidationError{Field: "color", Value: s, Reason: "expected 3 components"}
	}

	var rgb [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Color{}, &ValidationError{Field: "color", Value: s, Reason: fmt.Sprintf("component %d is not an integer", i)}
		}
		if n < 0 || n > 255 {
			return Color{}, &ValidationError{Field: "color", Value: s, Reason: fmt.Sprintf("component %d out of range 0..255", i)}
		}
		rgb[i] = uint8(n)
	}

	return Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// Hex returns the #rrggbb form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorSource supplies default colors for new blocks.
type ColorSource interface {
	NextColor() Color
}

// RandomColors is a seedable ColorSource. Colors are kept in the mid range
// so light and dark text both stay readable.
type RandomColors struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomColors returns a ColorSource seeded with seed.
func NewRandomColors(seed uint64) *RandomColors {
	return &RandomColors{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NextColor returns the next color in the sequence.
func (r *RandomColors) NextColor() Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Color{
		R: uint8(64 + r.rng.IntN(160)),
		G: uint8(64 + r.rng.IntN(160)),
		B: uint8(64 + r.rng.IntN(160)),
	}
}
