// Package rounding converts a converged continuous assignment to {0,1}
// truth values and commits the result to the fact store.
package rounding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/facts"
	"github.com/cognicore/softlogic/pkg/softlogic/grounding"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
	"github.com/cognicore/softlogic/pkg/softlogic/scoring"
	"github.com/cognicore/softlogic/pkg/softlogic/term"
)

// Discretizer rounds the open predicates' random-variable atoms to
// {0,1} and commits each decided atom. A commit failure halts the
// remaining atoms of that predicate; atoms already committed stand
// (partial failure is visible, not atomic).
type Discretizer interface {
	Round(ctx context.Context, fs facts.Store, open []*predicate.Predicate) error
}

// Greedy is the scored rounding algorithm: it re-grounds for a fresh
// reverse index, biases every value into [0.25, 0.75], orders atoms by
// descending biased value, and for each atom trials both discrete
// values, scoring a trial as the summed expected weighted compatibility
// of the atom's registered ground rules.
//
// The trial of one atom reads the in-flight values of every atom
// sharing a ground rule with it, so trial windows must never overlap:
// Round processes atoms strictly sequentially and must not run
// concurrently with any other mutator of the same store.
type Greedy struct {
	templates []*rule.Template
}

// NewGreedy creates a greedy discretizer that re-grounds the given
// templates at the start of each Round call.
func NewGreedy(templates []*rule.Template) *Greedy {
	return &Greedy{templates: templates}
}

// Round implements Discretizer.
func (g *Greedy) Round(ctx context.Context, fs facts.Store, open []*predicate.Predicate) error {
	// The reverse index is only valid as of the last grounding pass;
	// reasoner iterations have mutated atom values since, so re-ground.
	store, err := grounding.Ground(ctx, g.templates, fs)
	if err != nil {
		return fmt.Errorf("re-ground before rounding: %w", err)
	}
	defer store.Close()

	var errs []error
	for _, p := range open {
		if err := g.roundPredicate(ctx, fs, store, p); err != nil {
			errs = append(errs, fmt.Errorf("round %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (g *Greedy) roundPredicate(ctx context.Context, fs facts.Store, store *term.MemoryStore, p *predicate.Predicate) error {
	all, err := fs.AllAtoms(ctx, p)
	if err != nil {
		return err
	}
	var rvs []*atom.RandomVariable
	for _, a := range all {
		if rv, ok := a.(*atom.RandomVariable); ok {
			rvs = append(rvs, rv)
		}
	}

	// Initialization bias: rescale [0,1] into [0.25,0.75] so no atom
	// starts the pass looking fully decided.
	for _, rv := range rvs {
		if err := rv.SetValue(scoring.RoundingProbability(rv.Value())); err != nil {
			return err
		}
	}

	// Descending by biased value; order among equal values is
	// deliberately unspecified.
	sort.SliceStable(rvs, func(i, j int) bool { return rvs[i].Value() > rvs[j].Value() })

	for _, rv := range rvs {
		prior := rv.Value()
		scoreZero, err := g.trial(store, rv, 0)
		if err != nil {
			return err
		}
		scoreOne, err := g.trial(store, rv, 1)
		if err != nil {
			return err
		}

		var chosen float64
		switch {
		case scoreOne > scoreZero:
			chosen = 1
		case scoreZero > scoreOne:
			chosen = 0
		case prior >= 0.5:
			// Tied trials: stay on the side of the pre-trial value, which
			// keeps an already-discrete assignment unchanged.
			chosen = 1
		default:
			chosen = 0
		}

		if err := rv.SetValue(chosen); err != nil {
			return err
		}
		if err := fs.Commit(ctx, rv); err != nil {
			return fmt.Errorf("commit %s: %w", rv.String(), err)
		}
	}
	return nil
}

// trial performs one set/score/restore window: set rv to value, sum the
// expected weighted compatibility of its registered rules, restore.
func (g *Greedy) trial(store *term.MemoryStore, rv *atom.RandomVariable, value float64) (float64, error) {
	prior := rv.Value()
	if err := rv.SetValue(value); err != nil {
		return 0, err
	}
	defer rv.SetValue(prior)

	score := 0.0
	for _, idx := range store.RegisteredRules(rv) {
		r, err := store.Get(idx)
		if err != nil {
			return 0, err
		}
		if w, ok := r.(rule.WeightedGroundRule); ok {
			score += scoring.ExpectedWeightedCompatibility(w)
		}
	}
	return score, nil
}

// Simple is the probabilistic rounding algorithm: one independent
// Bernoulli draw per atom with success probability equal to the atom's
// current value. No scoring, no reverse index.
type Simple struct {
	rng *rand.Rand
}

// NewSimple creates a probabilistic discretizer seeded for reproducible
// draws.
func NewSimple(seed int64) *Simple {
	return &Simple{rng: rand.New(rand.NewSource(seed))}
}

// Round implements Discretizer.
func (s *Simple) Round(ctx context.Context, fs facts.Store, open []*predicate.Predicate) error {
	var errs []error
	for _, p := range open {
		if err := s.roundPredicate(ctx, fs, p); err != nil {
			errs = append(errs, fmt.Errorf("round %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Simple) roundPredicate(ctx context.Context, fs facts.Store, p *predicate.Predicate) error {
	all, err := fs.AllAtoms(ctx, p)
	if err != nil {
		return err
	}
	for _, a := range all {
		rv, ok := a.(*atom.RandomVariable)
		if !ok {
			continue
		}
		v := 0.0
		if s.rng.Float64() < rv.Value() {
			v = 1
		}
		if err := rv.SetValue(v); err != nil {
			return err
		}
		if err := fs.Commit(ctx, rv); err != nil {
			return fmt.Errorf("commit %s: %w", rv.String(), err)
		}
	}
	return nil
}
