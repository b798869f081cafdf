package milp

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNoSolution is returned when the search ends without any feasible
	// point, either because the budget ran out or the relaxations failed.
	ErrNoSolution = errors.New("milp: no solution found")
	// ErrInfeasible is returned when the search proved no feasible point exists.
	ErrInfeasible = errors.New("milp: problem is infeasible")

	errNodeInfeasible = errors.New("node infeasible")
)

// Status describes how good a returned solution is known to be.
type Status int

const (
	// Optimal means the search tree was fully explored.
	Optimal Status = iota
	// Feasible means a budget or numeric failure cut the search short.
	Feasible
)

func (s Status) String() string {
	if s == Optimal {
		return "optimal"
	}
	return "feasible"
}

const defaultTolerance = 1e-6

// Options bound the search.
type Options struct {
	TimeLimit time.Duration // 0 means no limit
	NodeLimit int           // 0 means no limit
	Hint      []float64     // optional feasible starting point
	Tolerance float64       // integrality and feasibility tolerance
	Logger    *zerolog.Logger
}

// Solution is the best point found.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
	Elapsed   time.Duration
}

// Value returns the value of v.
func (s Solution) Value(v Var) float64 {
	return s.Values[v]
}

// Bool reports whether a 0/1 variable is set.
func (s Solution) Bool(v Var) bool {
	return s.Values[v] > 0.5
}

type node struct {
	lo, hi []float64
	parent *basis // basis of the parent's relaxation, nil at the root
}

// Solve maximizes the model by depth-first branch and bound. Each node's LP
// relaxation is solved by the dual simplex method, starting from its
// parent's optimal basis. The budget is checked inside the simplex as well
// as between nodes. When the context is cancelled or a budget runs out, the
// best point found so far is returned with status Feasible.
func Solve(ctx context.Context, m *Model, opts Options) (Solution, error) {
	start := time.Now()

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	tol := opts.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	var deadline time.Time
	if opts.TimeLimit > 0 {
		deadline = start.Add(opts.TimeLimit)
	}

	var (
		incumbent []float64
		incObj    = math.Inf(-1)
	)
	if opts.Hint != nil {
		if ok, why := m.Feasible(opts.Hint, tol); ok {
			incumbent = slices.Clone(opts.Hint)
			incObj = m.Evaluate(incumbent)
		} else {
			log.Debug().Str("violation", why).Msg("hint rejected")
		}
	}

	stop := func() bool {
		return ctx.Err() != nil || (!deadline.IsZero() && time.Now().After(deadline))
	}

	tab, err := newTableau(m)
	if err != nil {
		return Solution{}, err
	}

	root := node{lo: make([]float64, len(m.vars)), hi: make([]float64, len(m.vars))}
	for j, v := range m.vars {
		root.hi[j] = v.upper
	}

	stack := []node{root}
	complete := true
	nodes := 0
	// basis currently held by tab, so a child can continue from it in place
	var loaded *basis

search:
	for len(stack) > 0 {
		if stop() || (opts.NodeLimit > 0 && nodes >= opts.NodeLimit) {
			complete = false
			break
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		err := relax(tab, nd, loaded, stop)
		loaded = nil
		switch {
		case errors.Is(err, errNodeInfeasible):
			continue
		case errors.Is(err, errBudget):
			complete = false
			break search
		case err != nil:
			log.Debug().Err(err).Int("node", nodes).Msg("relaxation failed")
			complete = false
			continue
		}

		loaded = tab.snapshot()
		bound, x := tab.objective(), tab.values()
		if incumbent != nil && bound <= incObj+1e-9*math.Max(1, math.Abs(incObj)) {
			continue
		}

		j := branchVar(m, x, tol)
		if j < 0 {
			for k, v := range m.vars {
				if v.integer {
					x[k] = math.Round(x[k])
				}
			}
			if ok, why := m.Feasible(x, tol); !ok {
				log.Debug().Str("violation", why).Msg("rounded relaxation rejected")
				continue
			}
			if obj := m.Evaluate(x); obj > incObj {
				incumbent, incObj = x, obj
			}
			continue
		}

		down := node{lo: nd.lo, hi: slices.Clone(nd.hi), parent: loaded}
		down.hi[j] = math.Floor(x[j])
		up := node{lo: slices.Clone(nd.lo), hi: nd.hi, parent: loaded}
		up.lo[j] = math.Ceil(x[j])
		// Up is popped first.
		stack = append(stack, down, up)
	}

	elapsed := time.Since(start)
	if incumbent == nil {
		if complete {
			return Solution{}, ErrInfeasible
		}
		return Solution{}, ErrNoSolution
	}

	status := Feasible
	if complete {
		status = Optimal
	}
	log.Debug().
		Stringer("status", status).
		Float64("objective", incObj).
		Int("nodes", nodes).
		Dur("elapsed", elapsed).
		Msg("search finished")

	return Solution{
		Status:    status,
		Objective: incObj,
		Values:    incumbent,
		Nodes:     nodes,
		Elapsed:   elapsed,
	}, nil
}

// branchVar returns the integer variable furthest from integrality, or -1.
func branchVar(m *Model, x []float64, tol float64) int {
	best, bestDist := -1, tol
	for j, v := range m.vars {
		if !v.integer {
			continue
		}
		frac := x[j] - math.Floor(x[j])
		if d := math.Min(frac, 1-frac); d > bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// relax solves the node's LP relaxation in tab. A child of the node solved
// last continues from the tableau as it is; other children refactor their
// parent's basis, and the root or a failed refactor starts cold.
func relax(tab *tableau, nd node, loaded *basis, stop func() bool) error {
	var err error
	switch {
	case nd.parent == nil:
		err = tab.coldStart(nd.lo, nd.hi)
	case nd.parent == loaded:
		err = tab.rebound(nd.lo, nd.hi)
	default:
		err = tab.warmStart(nd.parent, nd.lo, nd.hi)
		if err != nil && !errors.Is(err, errNodeInfeasible) {
			err = tab.coldStart(nd.lo, nd.hi)
		}
	}
	if err != nil {
		return err
	}

	err = tab.optimize(stop)
	if errors.Is(err, errDualInfeasible) {
		if err = tab.coldStart(nd.lo, nd.hi); err != nil {
			return err
		}
		err = tab.optimize(stop)
	}
	return err
}
