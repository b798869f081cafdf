// Package milp solves small mixed-integer linear programs by branch and
// bound over LP relaxations.
package milp

import (
	"fmt"
	"math"
)

// Sense is the comparison a constraint enforces.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Var identifies a decision variable within its Model.
type Var int

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// T is shorthand for building a Term.
func T(v Var, coef float64) Term {
	return Term{Var: v, Coef: coef}
}

type variable struct {
	name    string
	upper   float64
	integer bool
}

// Constraint is a linear row: sum(terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a maximization problem over non-negative bounded variables.
type Model struct {
	vars      []variable
	cons      []Constraint
	objective []float64
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

func (m *Model) add(v variable) Var {
	m.vars = append(m.vars, v)
	m.objective = append(m.objective, 0)
	return Var(len(m.vars) - 1)
}

// NewBool adds a 0/1 variable.
func (m *Model) NewBool(name string) Var {
	return m.add(variable{name: name, upper: 1, integer: true})
}

// NewInt adds an integer variable in [0, upper].
func (m *Model) NewInt(name string, upper float64) Var {
	return m.add(variable{name: name, upper: math.Max(math.Floor(upper), 0), integer: true})
}

// NewContinuous adds a real variable in [0, upper].
func (m *Model) NewContinuous(name string, upper float64) Var {
	return m.add(variable{name: name, upper: math.Max(upper, 0)})
}

// AddConstraint appends the row sum(terms) sense rhs.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.cons = append(m.cons, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// SetObjective sets the coefficient of every listed variable; others keep
// their current coefficient. The model maximizes.
func (m *Model) SetObjective(terms ...Term) {
	for _, t := range terms {
		m.objective[t.Var] = t.Coef
	}
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.cons) }

// Name returns the name given to v.
func (m *Model) Name(v Var) string { return m.vars[v].name }

// Evaluate returns the objective value of values.
func (m *Model) Evaluate(values []float64) float64 {
	var sum float64
	for j, c := range m.objective {
		sum += c * values[j]
	}
	return sum
}

// Feasible reports whether values satisfy bounds, integrality, and every
// constraint within tol. It returns a description of the first violation.
func (m *Model) Feasible(values []float64, tol float64) (bool, string) {
	if len(values) != len(m.vars) {
		return false, fmt.Sprintf("have %d values for %d variables", len(values), len(m.vars))
	}
	for j, v := range m.vars {
		x := values[j]
		if x < -tol || x > v.upper+tol {
			return false, fmt.Sprintf("%s = %g outside [0, %g]", v.name, x, v.upper)
		}
		if v.integer && math.Abs(x-math.Round(x)) > tol {
			return false, fmt.Sprintf("%s = %g is not integral", v.name, x)
		}
	}
	for _, c := range m.cons {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * values[t.Var]
		}
		slack := tol * math.Max(1, math.Abs(c.RHS))
		var ok bool
		switch c.Sense {
		case LessEq:
			ok = lhs <= c.RHS+slack
		case GreaterEq:
			ok = lhs >= c.RHS-slack
		case Equal:
			ok = math.Abs(lhs-c.RHS) <= slack
		}
		if !ok {
			return false, fmt.Sprintf("constraint %s: %g %s %g", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return true, ""
}
