package rule

import (
	"fmt"
	"strings"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
)

// GroundRule is a rule template with all variables bound. The concrete
// kinds form a closed set: WeightedLogical, HardLogical and
// LinearConstraint.
type GroundRule interface {
	Atoms() []atom.GroundAtom
	String() string
}

// WeightedGroundRule contributes weight·incompatibility to the
// optimization objective.
type WeightedGroundRule interface {
	GroundRule
	Weight() float64
	Incompatibility() float64
}

// UnweightedGroundRule is a hard constraint whose infeasibility must be
// driven to zero.
type UnweightedGroundRule interface {
	GroundRule
	Infeasibility() float64
}

// WeightedGroundLogicalRule additionally exposes the clause's signed
// atom partitions after negation normalization.
type WeightedGroundLogicalRule interface {
	WeightedGroundRule
	PositiveAtoms() []atom.GroundAtom
	NegativeAtoms() []atom.GroundAtom
}

// clause holds the shared disjunctive structure of ground logical rules.
type clause struct {
	name string
	pos  []atom.GroundAtom
	neg  []atom.GroundAtom
}

func (c *clause) Atoms() []atom.GroundAtom {
	out := make([]atom.GroundAtom, 0, len(c.pos)+len(c.neg))
	out = append(out, c.pos...)
	out = append(out, c.neg...)
	return out
}

func (c *clause) PositiveAtoms() []atom.GroundAtom { return c.pos }
func (c *clause) NegativeAtoms() []atom.GroundAtom { return c.neg }

// literalSum is Σ literal values: v per positive atom, 1−v per negative.
func (c *clause) literalSum() float64 {
	sum := 0.0
	for _, a := range c.pos {
		sum += a.Value()
	}
	for _, a := range c.neg {
		sum += 1 - a.Value()
	}
	return sum
}

// hinge is the clause's distance to satisfaction, in [0,1].
func (c *clause) hinge() float64 {
	if s := c.literalSum(); s < 1 {
		return 1 - s
	}
	return 0
}

func (c *clause) text() string {
	parts := make([]string, 0, len(c.pos)+len(c.neg))
	for _, a := range c.pos {
		parts = append(parts, a.String())
	}
	for _, a := range c.neg {
		parts = append(parts, "!"+a.String())
	}
	return strings.Join(parts, " | ")
}

// WeightedLogical is a ground disjunctive clause with a soft weight.
type WeightedLogical struct {
	clause
	weight float64
}

// NewWeightedLogical builds a weighted ground clause from its signed
// atom partitions.
func NewWeightedLogical(name string, weight float64, pos, neg []atom.GroundAtom) *WeightedLogical {
	return &WeightedLogical{clause: clause{name: name, pos: pos, neg: neg}, weight: weight}
}

func (r *WeightedLogical) Weight() float64          { return r.weight }
func (r *WeightedLogical) Incompatibility() float64 { return r.hinge() }

func (r *WeightedLogical) String() string {
	return fmt.Sprintf("%g: %s [%s]", r.weight, r.text(), r.name)
}

// HardLogical is a ground disjunctive clause that must hold.
type HardLogical struct {
	clause
}

// NewHardLogical builds a hard ground clause from its signed atom
// partitions.
func NewHardLogical(name string, pos, neg []atom.GroundAtom) *HardLogical {
	return &HardLogical{clause: clause{name: name, pos: pos, neg: neg}}
}

func (r *HardLogical) Infeasibility() float64 { return r.hinge() }

func (r *HardLogical) String() string {
	return fmt.Sprintf("%s . [%s]", r.text(), r.name)
}

// Comparator relates a linear combination to its bound.
type Comparator int

const (
	Equal Comparator = iota
	LessEqual
	GreaterEqual
)

func (c Comparator) String() string {
	switch c {
	case Equal:
		return "="
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "?"
	}
}

// LinearConstraint is a hard linear constraint Σ coeffᵢ·valueᵢ CMP bound
// over ground atoms. Infeasibility is the violation magnitude.
type LinearConstraint struct {
	name   string
	coeffs []float64
	atoms  []atom.GroundAtom
	cmp    Comparator
	bound  float64
}

// NewLinearConstraint builds a ground linear constraint. coeffs and
// atoms must have equal length.
func NewLinearConstraint(name string, coeffs []float64, atoms []atom.GroundAtom, cmp Comparator, bound float64) *LinearConstraint {
	if len(coeffs) != len(atoms) {
		panic("rule: coefficient and atom counts differ")
	}
	return &LinearConstraint{name: name, coeffs: coeffs, atoms: atoms, cmp: cmp, bound: bound}
}

func (r *LinearConstraint) Atoms() []atom.GroundAtom { return r.atoms }

// Coefficients returns the per-atom coefficients, aligned with Atoms.
func (r *LinearConstraint) Coefficients() []float64 { return r.coeffs }

// Cmp returns the constraint's comparator.
func (r *LinearConstraint) Cmp() Comparator { return r.cmp }

// Bound returns the constraint's right-hand side.
func (r *LinearConstraint) Bound() float64 { return r.bound }

func (r *LinearConstraint) sum() float64 {
	s := 0.0
	for i, a := range r.atoms {
		s += r.coeffs[i] * a.Value()
	}
	return s
}

func (r *LinearConstraint) Infeasibility() float64 {
	s := r.sum()
	switch r.cmp {
	case LessEqual:
		if s > r.bound {
			return s - r.bound
		}
		return 0
	case GreaterEqual:
		if s < r.bound {
			return r.bound - s
		}
		return 0
	default:
		d := s - r.bound
		if d < 0 {
			return -d
		}
		return d
	}
}

func (r *LinearConstraint) String() string {
	parts := make([]string, len(r.atoms))
	for i, a := range r.atoms {
		parts[i] = fmt.Sprintf("%g*%s", r.coeffs[i], a.String())
	}
	return fmt.Sprintf("%s %s %g [%s]", strings.Join(parts, " + "), r.cmp, r.bound, r.name)
}
