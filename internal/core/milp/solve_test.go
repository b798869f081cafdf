package milp

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knapsack: values 10, 13, 7, 8; weights 3, 4, 2, 3; capacity 7.
func knapsack() (*Model, []Var) {
	m := NewModel()
	values := []float64{10, 13, 7, 8}
	weights := []float64{3, 4, 2, 3}

	items := make([]Var, len(values))
	weightTerms := make([]Term, len(values))
	for i := range values {
		items[i] = m.NewBool("item")
		weightTerms[i] = T(items[i], weights[i])
		m.SetObjective(T(items[i], values[i]))
	}
	m.AddConstraint("capacity", weightTerms, LessEq, 7)
	return m, items
}

func TestSolve_BooleanKnapsack(t *testing.T) {
	m, items := knapsack()

	sol, err := Solve(context.Background(), m, Options{})
	require.NoError(t, err)
	assert.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 23.0, sol.Objective, 1e-6)
	assert.True(t, sol.Bool(items[0]))
	assert.True(t, sol.Bool(items[1]))
	assert.False(t, sol.Bool(items[2]))
	assert.False(t, sol.Bool(items[3]))
	assert.Greater(t, sol.Nodes, 0)
}

func TestSolve_IntegerProgram(t *testing.T) {
	// max 5a + 4b + 3c
	// 2a + 3b +  c <= 5
	// 4a +  b + 2c <= 11
	// 3a + 4b + 2c <= 8
	m := NewModel()
	a := m.NewInt("a", 10)
	b := m.NewInt("b", 10)
	c := m.NewInt("c", 10)
	m.SetObjective(T(a, 5), T(b, 4), T(c, 3))
	m.AddConstraint("r1", []Term{T(a, 2), T(b, 3), T(c, 1)}, LessEq, 5)
	m.AddConstraint("r2", []Term{T(a, 4), T(b, 1), T(c, 2)}, LessEq, 11)
	m.AddConstraint("r3", []Term{T(a, 3), T(b, 4), T(c, 2)}, LessEq, 8)

	sol, err := Solve(context.Background(), m, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 13.0, sol.Objective, 1e-6)
	assert.InDelta(t, 2.0, sol.Value(a), 1e-9)
	assert.InDelta(t, 0.0, sol.Value(b), 1e-9)
	assert.InDelta(t, 1.0, sol.Value(c), 1e-9)
}

func TestSolve_EqualityAndGreaterEq(t *testing.T) {
	t.Run("equality", func(t *testing.T) {
		m := NewModel()
		x := m.NewInt("x", 5)
		y := m.NewInt("y", 5)
		m.SetObjective(T(x, 1), T(y, 2))
		m.AddConstraint("sum", []Term{T(x, 1), T(y, 1)}, Equal, 3)

		sol, err := Solve(context.Background(), m, Options{})
		require.NoError(t, err)
		assert.InDelta(t, 6.0, sol.Objective, 1e-6)
		assert.InDelta(t, 3.0, sol.Value(y), 1e-9)
	})

	t.Run("greater or equal", func(t *testing.T) {
		m := NewModel()
		x := m.NewInt("x", 5)
		y := m.NewInt("y", 5)
		m.SetObjective(T(x, -1), T(y, -1))
		m.AddConstraint("cover", []Term{T(x, 1), T(y, 1)}, GreaterEq, 2.5)

		sol, err := Solve(context.Background(), m, Options{})
		require.NoError(t, err)
		assert.InDelta(t, -3.0, sol.Objective, 1e-6)
	})
}

func TestSolve_Infeasible(t *testing.T) {
	m := NewModel()
	x := m.NewBool("x")
	m.AddConstraint("impossible", []Term{T(x, 1)}, GreaterEq, 2)

	_, err := Solve(context.Background(), m, Options{})
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestSolve_NodeLimitKeepsHint(t *testing.T) {
	m, _ := knapsack()
	hint := []float64{1, 0, 1, 0} // value 17

	sol, err := Solve(context.Background(), m, Options{NodeLimit: 1, Hint: hint})
	require.NoError(t, err)
	assert.Equal(t, Feasible, sol.Status)
	assert.GreaterOrEqual(t, sol.Objective, 17.0)
	ok, why := m.Feasible(sol.Values, 1e-6)
	assert.True(t, ok, why)
}

func TestSolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, _ := knapsack()

	sol, err := Solve(ctx, m, Options{Hint: []float64{0, 0, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, Feasible, sol.Status)
	assert.InDelta(t, 8.0, sol.Objective, 1e-9)

	_, err = Solve(ctx, m, Options{})
	require.ErrorIs(t, err, ErrNoSolution)
}

func TestSolve_BadHintIgnored(t *testing.T) {
	m, _ := knapsack()

	sol, err := Solve(context.Background(), m, Options{Hint: []float64{1, 1, 1, 1}})
	require.NoError(t, err)
	assert.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 23.0, sol.Objective, 1e-6)
}

func TestModel_Feasible(t *testing.T) {
	m := NewModel()
	x := m.NewInt("x", 3)
	y := m.NewContinuous("y", 2)
	m.AddConstraint("sum", []Term{T(x, 1), T(y, 1)}, LessEq, 4)

	tests := []struct {
		name   string
		values []float64
		want   bool
	}{
		{"inside", []float64{2, 1.5}, true},
		{"fractional integer", []float64{1.5, 1}, false},
		{"above bound", []float64{4, 0}, false},
		{"negative", []float64{0, -1}, false},
		{"violates row", []float64{3, 2}, false},
		{"wrong length", []float64{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := m.Feasible(tt.values, 1e-9)
			assert.Equal(t, tt.want, ok)
		})
	}
	assert.Equal(t, "x", m.Name(x))
}

func TestSolve_ContinuousLP(t *testing.T) {
	// max 3x + 2y, x + y <= 4, x + 3y <= 6, x <= 3
	m := NewModel()
	x := m.NewContinuous("x", 3)
	y := m.NewContinuous("y", 10)
	m.SetObjective(T(x, 3), T(y, 2))
	m.AddConstraint("a", []Term{T(x, 1), T(y, 1)}, LessEq, 4)
	m.AddConstraint("b", []Term{T(x, 1), T(y, 3)}, LessEq, 6)

	sol, err := Solve(context.Background(), m, Options{})
	require.NoError(t, err)
	assert.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 11.0, sol.Objective, 1e-6)
	assert.InDelta(t, 3.0, sol.Value(x), 1e-6)
	assert.InDelta(t, 1.0, sol.Value(y), 1e-6)
}

func TestSolve_UnboundedVariableRejected(t *testing.T) {
	m := NewModel()
	m.NewContinuous("x", math.Inf(1))

	_, err := Solve(context.Background(), m, Options{})
	require.Error(t, err)
}

// assignment builds a generalized assignment problem: every item goes to at
// most one bin, bins have a weight capacity.
func assignment(rng *rand.Rand, items, bins int) (*Model, [][]Var, [][]float64, []float64, []float64) {
	m := NewModel()
	x := make([][]Var, items)
	value := make([][]float64, items)
	weight := make([]float64, items)
	capacity := make([]float64, bins)
	load := make([][]Term, bins)

	for k := range capacity {
		capacity[k] = float64(3 + rng.IntN(6))
	}
	for i := range items {
		weight[i] = float64(1 + rng.IntN(5))
		x[i] = make([]Var, bins)
		value[i] = make([]float64, bins)
		row := make([]Term, bins)
		for k := range bins {
			x[i][k] = m.NewBool("x")
			value[i][k] = float64(1 + rng.IntN(9))
			m.SetObjective(T(x[i][k], value[i][k]))
			row[k] = T(x[i][k], 1)
			load[k] = append(load[k], T(x[i][k], weight[i]))
		}
		m.AddConstraint("once", row, LessEq, 1)
	}
	for k := range bins {
		m.AddConstraint("capacity", load[k], LessEq, capacity[k])
	}
	return m, x, value, weight, capacity
}

func TestSolve_MatchesExhaustiveSearch(t *testing.T) {
	const items, bins = 4, 3

	for seed := range uint64(12) {
		rng := rand.New(rand.NewPCG(seed, 7))
		m, _, value, weight, capacity := assignment(rng, items, bins)

		// Every item picks a bin or none (choice == bins).
		best := 0.0
		choice := make([]int, items)
		var walk func(i int)
		walk = func(i int) {
			if i == items {
				used := make([]float64, bins)
				var total float64
				for it, k := range choice {
					if k == bins {
						continue
					}
					used[k] += weight[it]
					if used[k] > capacity[k] {
						return
					}
					total += value[it][k]
				}
				best = max(best, total)
				return
			}
			for k := range bins + 1 {
				choice[i] = k
				walk(i + 1)
			}
		}
		walk(0)

		sol, err := Solve(context.Background(), m, Options{})
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, Optimal, sol.Status, "seed %d", seed)
		assert.InDelta(t, best, sol.Objective, 1e-6, "seed %d", seed)
		ok, why := m.Feasible(sol.Values, 1e-6)
		assert.True(t, ok, why)
	}
}

func TestSolve_TimeLimitBoundsLargeSearch(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	m, _, _, _, _ := assignment(rng, 30, 12)
	limit := 100 * time.Millisecond

	start := time.Now()
	sol, err := Solve(context.Background(), m, Options{
		TimeLimit: limit,
		Hint:      make([]float64, m.NumVars()),
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, limit+500*time.Millisecond)
	assert.GreaterOrEqual(t, sol.Objective, 0.0)
	ok, why := m.Feasible(sol.Values, 1e-6)
	assert.True(t, ok, why)
}
