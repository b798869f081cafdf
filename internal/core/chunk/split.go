package chunk

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Tolerance is the relative error allowed when sizes are compared for
// conservation.
const Tolerance = 1e-9

// Split divides an auto chunk into sub-chunks weighted by ratios. A ratio sum
// that is not positive leaves the chunk as it is. Sub-chunk sizes are kept
// inside [MinSize, MaxSize] when the total allows it and always add up to
// the chunk's size. When the ratios ask for more parts than the total can
// fill at MinSize each, the parts with the smallest ratios are merged away.
func Split(c Chunk, ratios []float64, ids IDSource) ([]Chunk, error) {
	if c.Variant != VariantAuto {
		return nil, fmt.Errorf("%w: chunk %s is %s", ErrNotSplittable, c.ID, c.Variant)
	}

	var sum float64
	for _, r := range ratios {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: %g", ErrInvalidRatio, r)
		}
		sum += r
	}
	if sum <= 0 {
		return []Chunk{c}, nil
	}

	sizes := splitSizes(c.Size, ratios, c.MinSize, c.maxBound())
	out := make([]Chunk, len(sizes))
	for i, s := range sizes {
		out[i] = c.derive(ids.NewID(), s)
	}
	return out, nil
}

// Partition divides an auto chunk into sub-chunks of exactly the given
// sizes, which must be positive and add up to the chunk's size.
func Partition(c Chunk, sizes []float64, ids IDSource) ([]Chunk, error) {
	if c.Variant != VariantAuto {
		return nil, fmt.Errorf("%w: chunk %s is %s", ErrNotSplittable, c.ID, c.Variant)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: no sizes given", ErrInvalidRatio)
	}

	var sum float64
	for _, s := range sizes {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: size %g", ErrInvalidRatio, s)
		}
		sum += s
	}
	if !ApproxEqual(sum, c.Size) {
		return nil, fmt.Errorf("%w: sizes add up to %g, chunk %s has %g", ErrInvalidRatio, sum, c.ID, c.Size)
	}

	out := make([]Chunk, len(sizes))
	var acc float64
	for i, s := range sizes {
		if i == len(sizes)-1 {
			s = c.Size - acc
		}
		acc += s
		out[i] = c.derive(ids.NewID(), s)
	}
	return out, nil
}

// ApproxEqual compares two sizes within Tolerance relative to their scale.
func ApproxEqual(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance*max(1, math.Abs(a), math.Abs(b))
}

func (c Chunk) maxBound() float64 {
	if c.MaxSize > 0 {
		return c.MaxSize
	}
	return c.Size
}

func splitSizes(total float64, ratios []float64, lo, hi float64) []float64 {
	hi = max(hi, lo)
	if len(ratios) == 1 || total < lo {
		return []float64{total}
	}

	if float64(len(ratios))*lo > total*(1+Tolerance) {
		ratios = keepLargest(ratios, max(int(math.Floor(total/lo+Tolerance)), 1))
		if len(ratios) == 1 {
			return []float64{total}
		}
	}

	sizes := waterFill(total, ratios, lo, hi)
	if sizes == nil {
		sizes = clampRescale(total, ratios, lo, hi)
	}

	// Absorb float residue in the largest part.
	var sum float64
	big := 0
	for i, s := range sizes {
		sum += s
		if s > sizes[big] {
			big = i
		}
	}
	sizes[big] += total - sum
	return sizes
}

// keepLargest keeps the k ratios with the highest weight, in their
// original order.
func keepLargest(ratios []float64, k int) []float64 {
	idx := make([]int, len(ratios))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(ratios[b], ratios[a])
	})
	idx = idx[:k]
	slices.Sort(idx)

	out := make([]float64, k)
	for i, j := range idx {
		out[i] = ratios[j]
	}
	return out
}

// waterFill finds lambda such that the parts clamp(lambda*r, lo, hi) add up
// to total. It returns nil when the bounds make that impossible.
func waterFill(total float64, ratios []float64, lo, hi float64) []float64 {
	fill := func(lambda float64) float64 {
		var s float64
		for _, r := range ratios {
			s += min(max(lambda*r, lo), hi)
		}
		return s
	}

	rmin := math.Inf(1)
	for _, r := range ratios {
		if r > 0 {
			rmin = min(rmin, r)
		}
	}

	lower, upper := 0.0, hi/rmin
	if fill(upper) < total*(1-Tolerance) {
		return nil
	}
	for range 200 {
		mid := (lower + upper) / 2
		if fill(mid) < total {
			lower = mid
		} else {
			upper = mid
		}
	}

	out := make([]float64, len(ratios))
	for i, r := range ratios {
		out[i] = min(max(upper*r, lo), hi)
	}
	return out
}

// clampRescale is the proportional split clamped into [lo, hi] and then
// rescaled so the parts add up to total again. Parts may leave the bounds.
func clampRescale(total float64, ratios []float64, lo, hi float64) []float64 {
	var rsum float64
	for _, r := range ratios {
		rsum += r
	}

	out := make([]float64, len(ratios))
	var sum float64
	for i, r := range ratios {
		out[i] = min(max(total*r/rsum, lo), hi)
		sum += out[i]
	}
	if sum != 0 && sum != total {
		scale := total / sum
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}
