package chunk

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/colonyops/daybook/pkg/randid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func autoChunk(size, minSize, maxSize float64) Chunk {
	return Chunk{
		ID:      "parent",
		TaskID:  1,
		Variant: VariantAuto,
		Unit:    UnitTime,
		Size:    size,
		MinSize: minSize,
		MaxSize: maxSize,
		Status:  StatusActive,
	}
}

func sizesOf(chunks []Chunk) []float64 {
	out := make([]float64, len(chunks))
	for i, c := range chunks {
		out[i] = c.Size
	}
	return out
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		chunk  Chunk
		ratios []float64
		want   []float64
	}{
		{"proportional", autoChunk(3, 0.25, 3), []float64{1, 2}, []float64{1, 2}},
		{"single ratio keeps size", autoChunk(2.5, 0.25, 2.5), []float64{1}, []float64{2.5}},
		{"clamped to bounds", autoChunk(4, 1, 3), []float64{1, 9}, []float64{1, 3}},
		{"too many parts merge", autoChunk(1, 0.25, 1), []float64{1, 1, 1, 1, 1}, []float64{0.25, 0.25, 0.25, 0.25}},
		{"merge drops smallest ratio", autoChunk(1, 0.5, 1), []float64{1, 3, 2}, []float64{0.5, 0.5}},
		{"below min stays whole", autoChunk(0.1, 0.25, 0.1), []float64{1, 1}, []float64{0.1}},
		{"zero ratio gets min", autoChunk(2, 0.5, 2), []float64{0, 1}, []float64{0.5, 1.5}},
		{"unbounded max uses size", autoChunk(2, 0.25, 0), []float64{1, 1}, []float64{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.chunk, tt.ratios, randid.New(1, 2))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			assert.InDeltaSlice(t, tt.want, sizesOf(got), 1e-9)
		})
	}
}

func TestSplit_ZeroRatioSumIsNoop(t *testing.T) {
	c := autoChunk(2, 0.25, 2)
	got, err := Split(c, []float64{0, 0}, randid.New(1, 2))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c, got[0])

	got, err = Split(c, nil, randid.New(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []Chunk{c}, got)
}

func TestSplit_Errors(t *testing.T) {
	manual := autoChunk(2, 0.25, 2)
	manual.Variant = VariantManual
	_, err := Split(manual, []float64{1, 1}, randid.New(1, 2))
	require.ErrorIs(t, err, ErrNotSplittable)

	_, err = Split(autoChunk(2, 0.25, 2), []float64{1, -1}, randid.New(1, 2))
	require.ErrorIs(t, err, ErrInvalidRatio)
}

func TestSplit_Inheritance(t *testing.T) {
	date := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	parent := autoChunk(2, 0.25, 2)
	parent.Ratings = map[int64]float64{7: 3}
	parent.Date = date
	parent.Recurring = true
	parent.Assign(7)

	got, err := Split(parent, []float64{1, 1}, randid.New(1, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.NotEqual(t, got[0].ID, got[1].ID)
	for _, c := range got {
		assert.NotEqual(t, parent.ID, c.ID)
		assert.Equal(t, parent.TaskID, c.TaskID)
		assert.Equal(t, date, c.Date)
		assert.True(t, c.Recurring)
		assert.Equal(t, map[int64]float64{7: 3}, c.Ratings)
		assert.False(t, c.IsAssigned())
		assert.Equal(t, StatusActive, c.Status)
	}

	got[0].Ratings[7] = 99
	assert.InDelta(t, 3.0, parent.Ratings[7], 1e-9, "ratings must be copied, not shared")
}

func TestSplit_LockedParentStaysLocked(t *testing.T) {
	parent := autoChunk(2, 0.25, 2)
	parent.Status = StatusLocked

	got, err := Split(parent, []float64{1, 1}, randid.New(1, 2))
	require.NoError(t, err)
	for _, c := range got {
		assert.Equal(t, StatusLocked, c.Status)
	}
}

func TestSplit_RandomConservesSize(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	ids := randid.New(3, 5)

	for iter := range 500 {
		size := 0.1 + rng.Float64()*20
		lo := 0.1 + rng.Float64()*2
		hi := lo + rng.Float64()*size
		ratios := make([]float64, 1+rng.IntN(6))
		for i := range ratios {
			ratios[i] = 0.01 + rng.Float64()*5
		}

		got, err := Split(autoChunk(size, lo, hi), ratios, ids)
		require.NoError(t, err)
		require.NotEmpty(t, got)

		var sum float64
		for _, c := range got {
			sum += c.Size
		}
		assert.InDelta(t, size, sum, 1e-9*size, "iteration %d", iter)

		if size < lo || len(got) == 1 || float64(len(got))*hi < size {
			continue
		}
		for _, c := range got {
			assert.GreaterOrEqual(t, c.Size, lo-1e-9, "iteration %d", iter)
			assert.LessOrEqual(t, c.Size, hi+1e-9, "iteration %d", iter)
		}
	}
}

func TestPartition(t *testing.T) {
	ids := randid.New(1, 2)

	got, err := Partition(autoChunk(3, 0.25, 3), []float64{1, 2}, ids)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2}, sizesOf(got), 1e-12)

	_, err = Partition(autoChunk(3, 0.25, 3), []float64{1, 1}, ids)
	require.ErrorIs(t, err, ErrInvalidRatio)

	_, err = Partition(autoChunk(3, 0.25, 3), []float64{3, 0}, ids)
	require.ErrorIs(t, err, ErrInvalidRatio)

	manual := autoChunk(3, 0.25, 3)
	manual.Variant = VariantManual
	_, err = Partition(manual, []float64{3}, ids)
	require.ErrorIs(t, err, ErrNotSplittable)
}
