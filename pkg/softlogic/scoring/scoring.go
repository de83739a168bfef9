// Package scoring provides pure aggregation functions over ground-rule
// collections: objective totals, rounding expectations and feasibility
// norms. Nothing here keeps state; the expectation functions mutate atom
// values only inside a set/score/restore window and leave every atom as
// they found it.
package scoring

import (
	"fmt"
	"math"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
)

// TotalWeightedIncompatibility sums weight·incompatibility over rules.
func TotalWeightedIncompatibility(rules []rule.WeightedGroundRule) float64 {
	total := 0.0
	for _, r := range rules {
		total += r.Incompatibility() * r.Weight()
	}
	return total
}

// TotalWeightedCompatibility sums weight·(1−incompatibility) over rules.
//
// WARNING: rules dropped during grounding because they were trivially
// satisfied are not in the collection and so do not count here, even
// though each would have contributed its full weight.
func TotalWeightedCompatibility(rules []rule.WeightedGroundRule) float64 {
	total := 0.0
	for _, r := range rules {
		total += (1 - r.Incompatibility()) * r.Weight()
	}
	return total
}

// ExpectedTotalWeightedIncompatibility computes the expected total
// weighted incompatibility when every random-variable atom is rounded
// independently to 1 with probability equal to its current value.
//
// Each rule's expectation enumerates all 2^k settings of its k distinct
// random-variable atoms, so this is O(2^k) per rule: a diagnostic for
// small k, not a hot path. k = 0 evaluates the single empty setting.
//
// WARNING: the result is meaningless if the atoms are subject to any
// hard constraints (independent rounding ignores them).
func ExpectedTotalWeightedIncompatibility(rules []rule.WeightedGroundRule) float64 {
	total := 0.0
	for _, r := range rules {
		total += expectedOverSettings(r, func(inc float64) float64 { return inc })
	}
	return total
}

// ExpectedTotalWeightedCompatibility is the compatibility-scored variant
// of ExpectedTotalWeightedIncompatibility. Both WARNINGs there apply,
// plus the trivially-satisfied exclusion noted on
// TotalWeightedCompatibility.
func ExpectedTotalWeightedCompatibility(rules []rule.WeightedGroundRule) float64 {
	total := 0.0
	for _, r := range rules {
		total += ExpectedWeightedCompatibility(r)
	}
	return total
}

// ExpectedWeightedCompatibility computes one rule's expected weighted
// compatibility under independent rounding (see
// ExpectedTotalWeightedIncompatibility for the enumeration and its
// caveats).
func ExpectedWeightedCompatibility(r rule.WeightedGroundRule) float64 {
	return expectedOverSettings(r, func(inc float64) float64 { return 1 - inc })
}

// expectedOverSettings enumerates every boolean setting of the rule's
// distinct random-variable atoms, scores the rule under each, weights by
// the setting's joint probability and multiplies by the rule weight.
// Atom values are restored before returning.
func expectedOverSettings(r rule.WeightedGroundRule, score func(incompatibility float64) float64) float64 {
	var rvs []*atom.RandomVariable
	seen := make(map[*atom.RandomVariable]bool)
	for _, a := range r.Atoms() {
		if rv, ok := a.(*atom.RandomVariable); ok && !seen[rv] {
			seen[rv] = true
			rvs = append(rvs, rv)
		}
	}

	saved := make([]float64, len(rvs))
	for i, rv := range rvs {
		saved[i] = rv.Value()
	}
	defer func() {
		for i, rv := range rvs {
			rv.SetValue(saved[i])
		}
	}()

	total := 0.0
	for mask := 0; mask < 1<<len(rvs); mask++ {
		prob := 1.0
		for j, rv := range rvs {
			if mask>>j&1 == 1 {
				rv.SetValue(1)
				prob *= saved[j]
			} else {
				rv.SetValue(0)
				prob *= 1 - saved[j]
			}
		}
		total += prob * score(r.Incompatibility())
	}
	return total * r.Weight()
}

// RoundingProbability maps a continuous truth value to the probability
// used when a rounded atom must itself be treated probabilistically:
// linear, 0 ↦ 0.25 and 1 ↦ 0.75.
func RoundingProbability(v float64) float64 {
	return 0.25 + 0.5*v
}

// ExpectedWeightedLogicalCompatibility computes, in closed form, the
// expected weighted compatibility of a ground disjunctive clause under
// RoundingProbability-based rounding of its random-variable atoms.
//
// The clause is compatible (value 1) if at least one random literal
// fires; otherwise compatibility falls back to the observed-only
// satisfaction degree, clamped to 1.
func ExpectedWeightedLogicalCompatibility(r rule.WeightedGroundLogicalRule) float64 {
	observedSum := 0.0
	allFail := 1.0

	for _, a := range r.PositiveAtoms() {
		if rv, ok := a.(*atom.RandomVariable); ok {
			allFail *= 1 - RoundingProbability(rv.Value())
		} else {
			observedSum += a.Value()
		}
	}
	for _, a := range r.NegativeAtoms() {
		if rv, ok := a.(*atom.RandomVariable); ok {
			allFail *= RoundingProbability(rv.Value())
		} else {
			observedSum += 1 - a.Value()
		}
	}
	if observedSum > 1 {
		observedSum = 1
	}

	atLeastOne := 1 - allFail
	return r.Weight() * (atLeastOne + (1-atLeastOne)*observedSum)
}

// ExpectedWeightedLogicalSatisfaction computes the weighted probability
// that a ground clause is not violated, treating each literal as an
// independent success: random-variable atoms succeed with
// RoundingProbability of their value, observed atoms with their raw
// value. Observed atoms must be hard; a value strictly between 0 and 1
// fails with internalerr.ErrSoftObservedValue.
func ExpectedWeightedLogicalSatisfaction(r rule.WeightedGroundLogicalRule) (float64, error) {
	allFail := 1.0

	for _, a := range r.PositiveAtoms() {
		p, err := literalSuccess(a, false)
		if err != nil {
			return 0, err
		}
		allFail *= 1 - p
	}
	for _, a := range r.NegativeAtoms() {
		p, err := literalSuccess(a, true)
		if err != nil {
			return 0, err
		}
		allFail *= 1 - p
	}
	return r.Weight() * (1 - allFail), nil
}

func literalSuccess(a atom.GroundAtom, negated bool) (float64, error) {
	var p float64
	if rv, ok := a.(*atom.RandomVariable); ok {
		p = RoundingProbability(rv.Value())
	} else {
		v := a.Value()
		if v > 0 && v < 1 {
			return 0, fmt.Errorf("%w: observed atom %s has value %g",
				internalerr.ErrSoftObservedValue, a.String(), v)
		}
		p = v
	}
	if negated {
		return 1 - p, nil
	}
	return p, nil
}

// InfeasibilityNorm is the Euclidean norm of the rules' infeasibilities.
func InfeasibilityNorm(rules []rule.UnweightedGroundRule) float64 {
	norm := 0.0
	for _, r := range rules {
		inf := r.Infeasibility()
		norm += inf * inf
	}
	return math.Sqrt(norm)
}
