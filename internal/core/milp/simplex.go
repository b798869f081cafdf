package milp

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	primalTol = 1e-7
	dualTol   = 1e-9
	pivotTol  = 1e-9
	maxCond   = 1e12
	// iterations between budget checks
	checkEvery = 16
)

var (
	errBudget         = errors.New("budget exhausted")
	errDualInfeasible = errors.New("basis is not dual feasible")
)

// basis is a snapshot of a solved tableau: which variable is basic in every
// row and which non-basic variables sit at their upper bound.
type basis struct {
	head  []int
	upper []bool
}

// tableau is a dense bounded-variable simplex tableau over the rows
// A x + r = b, with one logical variable r per row. Variables 0..n-1 are the
// model's, n..n+m-1 the logicals. Bounds live on the variables, so they
// never add rows. Optimization runs the dual simplex, which keeps the
// reduced costs valid when a branch tightens a bound and lets a child node
// continue from its parent's basis.
type tableau struct {
	m, n int
	a    *mat.Dense // [A | I]
	b    []float64
	cost []float64 // minimization cost of every variable
	obj  []float64 // model objective, maximized

	lo, hi []float64 // current bounds of every variable

	t     *mat.Dense // B^-1 [A | I]
	d     []float64  // reduced costs
	x     []float64  // values of every variable
	head  []int      // basic variable of each row
	pos   []int      // row of a basic variable, -1 when non-basic
	upper []bool     // non-basic variable sits at its upper bound

	iters int
}

func newTableau(md *Model) (*tableau, error) {
	n, m := len(md.vars), len(md.cons)
	tb := &tableau{
		m:     m,
		n:     n,
		b:     make([]float64, m),
		cost:  make([]float64, n+m),
		obj:   md.objective,
		lo:    make([]float64, n+m),
		hi:    make([]float64, n+m),
		d:     make([]float64, n+m),
		x:     make([]float64, n+m),
		head:  make([]int, m),
		pos:   make([]int, n+m),
		upper: make([]bool, n+m),
	}

	for j, v := range md.vars {
		if math.IsInf(v.upper, 0) || math.IsNaN(v.upper) {
			return nil, fmt.Errorf("milp: variable %s has no finite upper bound", v.name)
		}
		tb.cost[j] = -md.objective[j]
		tb.hi[j] = v.upper
	}

	if m > 0 {
		tb.a = mat.NewDense(m, n+m, nil)
		for i, c := range md.cons {
			row := tb.a.RawRowView(i)
			for _, term := range c.Terms {
				row[term.Var] += term.Coef
			}
			row[n+i] = 1
			tb.b[i] = c.RHS

			switch c.Sense {
			case LessEq:
				tb.lo[n+i], tb.hi[n+i] = 0, math.Inf(1)
			case GreaterEq:
				tb.lo[n+i], tb.hi[n+i] = math.Inf(-1), 0
			case Equal:
				tb.lo[n+i], tb.hi[n+i] = 0, 0
			}
		}
	}
	return tb, nil
}

func (tb *tableau) setModelBounds(lo, hi []float64) error {
	for j := range tb.n {
		if hi[j] < lo[j]-primalTol {
			return errNodeInfeasible
		}
		tb.lo[j], tb.hi[j] = lo[j], hi[j]
	}
	return nil
}

// boundValue is where a non-basic variable sits.
func (tb *tableau) boundValue(j int) float64 {
	if tb.upper[j] && !math.IsInf(tb.hi[j], 1) {
		return tb.hi[j]
	}
	if math.IsInf(tb.lo[j], -1) {
		return tb.hi[j]
	}
	return tb.lo[j]
}

// coldStart loads the all-logical basis. Every model variable is boxed, so
// putting each one at the bound its cost prefers makes the basis dual
// feasible.
func (tb *tableau) coldStart(lo, hi []float64) error {
	if err := tb.setModelBounds(lo, hi); err != nil {
		return err
	}

	for j := range tb.pos {
		tb.pos[j] = -1
	}
	copy(tb.d, tb.cost)
	for j := range tb.n {
		tb.upper[j] = tb.cost[j] < 0
		tb.x[j] = tb.boundValue(j)
	}

	if tb.m == 0 {
		return nil
	}
	if tb.t == nil {
		tb.t = mat.NewDense(tb.m, tb.n+tb.m, nil)
	}
	tb.t.Copy(tb.a)

	for i := range tb.m {
		j := tb.n + i
		tb.head[i], tb.pos[j], tb.upper[j] = j, i, false
		row := tb.a.RawRowView(i)
		tb.x[j] = tb.b[i] - floats.Dot(row[:tb.n], tb.x[:tb.n])
	}
	return nil
}

// warmStart refactors the tableau for a stored basis under new bounds.
func (tb *tableau) warmStart(bs *basis, lo, hi []float64) error {
	if err := tb.setModelBounds(lo, hi); err != nil {
		return err
	}
	if tb.m == 0 {
		return tb.coldStart(lo, hi)
	}

	bm := mat.NewDense(tb.m, tb.m, nil)
	for i, j := range bs.head {
		for r := range tb.m {
			bm.Set(r, i, tb.a.At(r, j))
		}
	}
	var lu mat.LU
	lu.Factorize(bm)
	if lu.Cond() > maxCond {
		return fmt.Errorf("basis is ill-conditioned")
	}

	var t mat.Dense
	if err := lu.SolveTo(&t, false, tb.a); err != nil {
		return fmt.Errorf("refactor basis: %w", err)
	}
	tb.t = &t

	copy(tb.head, bs.head)
	copy(tb.upper, bs.upper)
	for j := range tb.pos {
		tb.pos[j] = -1
	}
	for i, j := range tb.head {
		tb.pos[j] = i
	}

	rhs := slices.Clone(tb.b)
	for j := range tb.x {
		if tb.pos[j] >= 0 {
			continue
		}
		tb.x[j] = tb.boundValue(j)
		if tb.x[j] == 0 {
			continue
		}
		for r := range tb.m {
			rhs[r] -= tb.a.At(r, j) * tb.x[j]
		}
	}
	var xb mat.VecDense
	if err := lu.SolveVecTo(&xb, false, mat.NewVecDense(tb.m, rhs)); err != nil {
		return fmt.Errorf("refactor basis: %w", err)
	}
	for i, j := range tb.head {
		tb.x[j] = xb.AtVec(i)
	}

	copy(tb.d, tb.cost)
	for i, j := range tb.head {
		if c := tb.cost[j]; c != 0 {
			floats.AddScaled(tb.d, -c, tb.t.RawRowView(i))
		}
	}
	for _, j := range tb.head {
		tb.d[j] = 0
	}
	return nil
}

// rebound moves the tableau from its current bounds to tighter ones
// without refactoring. Non-basic variables follow their bound and the basic
// values are updated to match.
func (tb *tableau) rebound(lo, hi []float64) error {
	for j := range tb.n {
		if hi[j] < lo[j]-primalTol {
			return errNodeInfeasible
		}
		if lo[j] == tb.lo[j] && hi[j] == tb.hi[j] {
			continue
		}
		tb.lo[j], tb.hi[j] = lo[j], hi[j]
		if tb.pos[j] >= 0 {
			continue
		}
		tb.shift(j, tb.boundValue(j))
	}
	return nil
}

// shift sets non-basic variable j to v and updates the basic values.
func (tb *tableau) shift(j int, v float64) {
	delta := v - tb.x[j]
	if delta == 0 {
		return
	}
	for i, h := range tb.head {
		if a := tb.t.At(i, j); a != 0 {
			tb.x[h] -= a * delta
		}
	}
	tb.x[j] = v
}

// makeDualFeasible moves boxed non-basic variables to the bound their
// reduced cost prefers.
func (tb *tableau) makeDualFeasible() error {
	for j := range tb.x {
		if tb.pos[j] >= 0 || tb.lo[j] == tb.hi[j] {
			continue
		}
		switch {
		case !tb.upper[j] && tb.d[j] < -dualTol:
			if math.IsInf(tb.hi[j], 1) {
				return errDualInfeasible
			}
			tb.upper[j] = true
		case tb.upper[j] && tb.d[j] > dualTol:
			if math.IsInf(tb.lo[j], -1) {
				return errDualInfeasible
			}
			tb.upper[j] = false
		default:
			continue
		}
		tb.shift(j, tb.boundValue(j))
	}
	return nil
}

// optimize runs dual simplex iterations until the basis is primal feasible.
// stop is polled between iterations.
func (tb *tableau) optimize(stop func() bool) error {
	if err := tb.makeDualFeasible(); err != nil {
		return err
	}

	limit := 50 * (tb.n + tb.m + 1)
	for it := 0; ; it++ {
		if it%checkEvery == 0 && stop() {
			return errBudget
		}
		if it > limit {
			return fmt.Errorf("simplex: no convergence after %d iterations", it)
		}

		p, worst := -1, primalTol
		for i, j := range tb.head {
			var inf float64
			switch {
			case tb.x[j] < tb.lo[j]:
				inf = tb.lo[j] - tb.x[j]
			case tb.x[j] > tb.hi[j]:
				inf = tb.x[j] - tb.hi[j]
			}
			if inf > worst {
				p, worst = i, inf
			}
		}
		if p < 0 {
			return nil
		}

		leaving := tb.head[p]
		toLower := tb.x[leaving] < tb.lo[leaving]
		row := tb.t.RawRowView(p)

		q, ratio, piv := -1, math.Inf(1), 0.0
		for j, a := range row {
			if tb.pos[j] >= 0 || tb.lo[j] == tb.hi[j] || math.Abs(a) < pivotTol {
				continue
			}
			// The leaving value changes by -a per unit of j.
			up := tb.upper[j]
			if toLower != ((!up && a < 0) || (up && a > 0)) {
				continue
			}
			r := math.Abs(tb.d[j]) / math.Abs(a)
			if r < ratio-dualTol || (r <= ratio+dualTol && math.Abs(a) > math.Abs(piv)) {
				q, ratio, piv = j, r, a
			}
		}
		if q < 0 {
			return errNodeInfeasible
		}

		target := tb.hi[leaving]
		if toLower {
			target = tb.lo[leaving]
		}
		tb.pivot(p, q, target)
		tb.upper[leaving] = !toLower
		tb.iters++
	}
}

// pivot brings q into the basis at row p; the leaving variable ends at
// target.
func (tb *tableau) pivot(p, q int, target float64) {
	leaving := tb.head[p]
	rowp := tb.t.RawRowView(p)
	a := rowp[q]

	delta := (tb.x[leaving] - target) / a
	for i, h := range tb.head {
		if c := tb.t.At(i, q); c != 0 {
			tb.x[h] -= c * delta
		}
	}
	tb.x[q] += delta
	tb.x[leaving] = target

	floats.Scale(1/a, rowp)
	rowp[q] = 1
	for i := range tb.m {
		if i == p {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, rowp)
			row[q] = 0
		}
	}
	if dq := tb.d[q]; dq != 0 {
		floats.AddScaled(tb.d, -dq, rowp)
	}
	tb.d[q] = 0

	tb.head[p] = q
	tb.pos[q] = p
	tb.pos[leaving] = -1
}

func (tb *tableau) snapshot() *basis {
	return &basis{head: slices.Clone(tb.head), upper: slices.Clone(tb.upper)}
}

// values returns the model variables.
func (tb *tableau) values() []float64 {
	return slices.Clone(tb.x[:tb.n])
}

func (tb *tableau) objective() float64 {
	return floats.Dot(tb.obj, tb.x[:tb.n])
}
