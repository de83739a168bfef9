// Package reasoner finds the most-probable explanation: an assignment
// of [0,1] truth values to random-variable atoms minimizing the total
// weighted incompatibility subject to hard-constraint feasibility.
package reasoner

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
	"github.com/cognicore/softlogic/pkg/softlogic/term"
)

// Reasoner is the optimizer contract: deterministic for identical
// inputs and configuration, idempotent on a converged store, and
// monotonically non-increasing in the penalized objective across
// iterations. There is no cancellation signal; callers bound work with
// MaxIterations.
type Reasoner interface {
	Optimize(s *term.MemoryStore) error
}

// Config bounds and tunes an optimization run.
type Config struct {
	// MaxIterations caps full sweeps over the atoms.
	MaxIterations int
	// Tolerance stops the run once no atom moved more than this in a
	// full sweep.
	Tolerance float64
	// ConstraintPenalty multiplies hard-constraint infeasibility in the
	// working objective.
	ConstraintPenalty float64
}

// DefaultConfig returns the standard run limits.
func DefaultConfig() Config {
	return Config{
		MaxIterations:     500,
		Tolerance:         1e-6,
		ConstraintPenalty: 100,
	}
}

// CoordinateDescent minimizes the objective one atom at a time, solving
// each one-dimensional subproblem exactly. Every per-rule term is a
// hinge, so the local objective is piecewise linear and convex: its
// minimum lies at 0, 1 or a hinge breakpoint, and evaluating those
// candidates suffices. Exact per-coordinate minimization makes every
// sweep non-increasing.
type CoordinateDescent struct {
	cfg Config
}

// New creates a coordinate-descent reasoner.
func New(cfg Config) (*CoordinateDescent, error) {
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: MaxIterations must be positive", internalerr.ErrInvalidConfig)
	}
	if cfg.Tolerance < 0 {
		return nil, fmt.Errorf("%w: Tolerance must not be negative", internalerr.ErrInvalidConfig)
	}
	if cfg.ConstraintPenalty <= 0 {
		return nil, fmt.Errorf("%w: ConstraintPenalty must be positive", internalerr.ErrInvalidConfig)
	}
	return &CoordinateDescent{cfg: cfg}, nil
}

// Optimize implements Reasoner.
func (cd *CoordinateDescent) Optimize(s *term.MemoryStore) error {
	atoms := s.RandomVariableAtoms()

	for iter := 0; iter < cd.cfg.MaxIterations; iter++ {
		maxDelta := 0.0
		for _, rv := range atoms {
			moved, err := cd.minimizeAtom(s, rv)
			if err != nil {
				return err
			}
			if moved > maxDelta {
				maxDelta = moved
			}
		}
		if maxDelta <= cd.cfg.Tolerance {
			break
		}
	}
	return nil
}

// minimizeAtom solves the one-dimensional subproblem for rv exactly and
// returns how far the value moved.
func (cd *CoordinateDescent) minimizeAtom(s *term.MemoryStore, rv *atom.RandomVariable) (float64, error) {
	indices := s.RegisteredRules(rv)
	rules := make([]rule.GroundRule, 0, len(indices))
	for _, idx := range indices {
		r, err := s.Get(idx)
		if err != nil {
			return 0, err
		}
		rules = append(rules, r)
	}

	prior := rv.Value()
	priorVal := cd.localObjective(rules)
	candidates := cd.candidates(rv, prior, rules)

	best := prior
	bestVal := math.Inf(1)
	for _, c := range candidates {
		rv.SetValue(c)
		v := cd.localObjective(rules)
		if v < bestVal-1e-12 {
			bestVal = v
			best = c
		}
	}

	// Keep the current value when it is already optimal; otherwise take
	// the smallest minimizer. Both choices are deterministic and leave a
	// converged assignment untouched.
	if priorVal <= bestVal+1e-12 {
		best = prior
	}

	rv.SetValue(best)
	return math.Abs(best - prior), nil
}

// candidates collects 0, 1, the current value and every hinge
// breakpoint of the registered rules as a function of rv, deduplicated
// and sorted ascending.
func (cd *CoordinateDescent) candidates(rv *atom.RandomVariable, prior float64, rules []rule.GroundRule) []float64 {
	cands := []float64{0, 1, prior}
	for _, r := range rules {
		if bp, ok := breakpoint(r, rv); ok {
			cands = append(cands, bp)
		}
	}
	sort.Float64s(cands)

	out := cands[:1]
	for _, c := range cands[1:] {
		if c-out[len(out)-1] > 1e-12 {
			out = append(out, c)
		}
	}
	return out
}

// breakpoint returns the value of rv at which the rule's hinge kinks,
// when that value lies in [0,1].
func breakpoint(r rule.GroundRule, rv *atom.RandomVariable) (float64, bool) {
	var base, slope float64

	switch gr := r.(type) {
	case rule.WeightedGroundLogicalRule:
		base, slope = clauseLine(gr.PositiveAtoms(), gr.NegativeAtoms(), rv)
	case *rule.HardLogical:
		base, slope = clauseLine(gr.PositiveAtoms(), gr.NegativeAtoms(), rv)
	case *rule.LinearConstraint:
		coeffs := gr.Coefficients()
		for i, a := range gr.Atoms() {
			if a == atom.GroundAtom(rv) {
				slope += coeffs[i]
			} else {
				base += coeffs[i] * a.Value()
			}
		}
		if slope == 0 {
			return 0, false
		}
		bp := (gr.Bound() - base) / slope
		return bp, bp >= 0 && bp <= 1
	default:
		return 0, false
	}

	if slope == 0 {
		return 0, false
	}
	// Clause hinge kinks where the literal sum crosses 1.
	bp := (1 - base) / slope
	return bp, bp >= 0 && bp <= 1
}

// clauseLine expresses a clause's literal sum as base + slope·value(rv).
func clauseLine(pos, neg []atom.GroundAtom, rv *atom.RandomVariable) (base, slope float64) {
	for _, a := range pos {
		if a == atom.GroundAtom(rv) {
			slope++
		} else {
			base += a.Value()
		}
	}
	for _, a := range neg {
		if a == atom.GroundAtom(rv) {
			slope--
		} else {
			base += 1 - a.Value()
		}
	}
	return base, slope
}

// localObjective is the penalized objective restricted to the given
// rules: Σ weight·incompatibility + penalty·Σ infeasibility.
func (cd *CoordinateDescent) localObjective(rules []rule.GroundRule) float64 {
	total := 0.0
	for _, r := range rules {
		switch gr := r.(type) {
		case rule.WeightedGroundRule:
			total += gr.Weight() * gr.Incompatibility()
		case rule.UnweightedGroundRule:
			total += cd.cfg.ConstraintPenalty * gr.Infeasibility()
		}
	}
	return total
}
