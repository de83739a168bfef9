// Package softlogic is a probabilistic soft-logic reasoning engine: it
// grounds weighted first-order rule templates against a fact store,
// solves the resulting continuous optimization problem for the most
// probable explanation, and optionally discretizes the solution back to
// boolean truth values.
package softlogic

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/facts"
	"github.com/cognicore/softlogic/pkg/softlogic/grounding"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
	"github.com/cognicore/softlogic/pkg/softlogic/reasoner"
	"github.com/cognicore/softlogic/pkg/softlogic/rounding"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
	"github.com/cognicore/softlogic/pkg/softlogic/scoring"
)

// Engine is the inference facade wiring a fact store, rule templates, a
// reasoner and an optional discretizer.
type Engine struct {
	store       facts.Store
	templates   []*rule.Template
	open        []*predicate.Predicate
	reasoner    reasoner.Reasoner
	discretizer rounding.Discretizer
	parallel    bool
	entropy     *ulid.MonotonicEntropy
}

// Options configures an Engine.
type Options struct {
	// Store supplies observed atoms and receives committed results.
	Store facts.Store
	// Templates are the model's rule templates.
	Templates []*rule.Template
	// Open lists the predicates whose atoms are inferred.
	Open []*predicate.Predicate
	// Reasoner defaults to coordinate descent with DefaultConfig.
	Reasoner reasoner.Reasoner
	// Discretizer is optional; nil leaves the solution continuous.
	Discretizer rounding.Discretizer
	// ParallelGrounding grounds independent templates concurrently.
	ParallelGrounding bool
}

// New creates an Engine with the given dependencies.
func New(opts Options) (*Engine, error) {
	r := opts.Reasoner
	if r == nil {
		var err error
		r, err = reasoner.New(reasoner.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}
	return &Engine{
		store:       opts.Store,
		templates:   opts.Templates,
		open:        opts.Open,
		reasoner:    r,
		discretizer: opts.Discretizer,
		parallel:    opts.ParallelGrounding,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close cleanly shuts down the engine's fact store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Result summarizes one inference session.
type Result struct {
	// SessionID tags the run.
	SessionID string
	// GroundRules is the size of the grounded problem.
	GroundRules int
	// Objective is the total weighted incompatibility after solving.
	Objective float64
	// Feasibility is the Euclidean infeasibility norm after solving.
	Feasibility float64
	// Values maps each open atom's text form to its final truth value.
	Values map[string]float64
}

// Infer runs the full pipeline: ground, solve, optionally discretize
// and commit, then report the open atoms' values.
func (e *Engine) Infer(ctx context.Context) (*Result, error) {
	store, err := grounding.GroundWithConfig(ctx, e.templates, e.store,
		grounding.Config{Parallel: e.parallel})
	if err != nil {
		return nil, fmt.Errorf("ground: %w", err)
	}
	defer store.Close()

	if err := e.reasoner.Optimize(store); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	res := &Result{
		SessionID:   ulid.MustNew(ulid.Now(), e.entropy).String(),
		GroundRules: store.Size(),
		Objective:   scoring.TotalWeightedIncompatibility(store.Weighted()),
		Feasibility: scoring.InfeasibilityNorm(store.Unweighted()),
	}

	if e.discretizer != nil {
		// The discretizer re-grounds as needed and commits as it decides.
		if err := e.discretizer.Round(ctx, e.store, e.open); err != nil {
			return nil, fmt.Errorf("round: %w", err)
		}
	}

	res.Values = make(map[string]float64)
	for _, p := range e.open {
		all, err := e.store.AllAtoms(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, a := range all {
			if _, ok := a.(*atom.RandomVariable); ok {
				res.Values[a.String()] = a.Value()
			}
		}
	}
	return res, nil
}

// CommitAll persists every open random-variable atom's current value,
// for callers that skipped discretization but want the continuous
// solution stored.
func (e *Engine) CommitAll(ctx context.Context) error {
	for _, p := range e.open {
		all, err := e.store.AllAtoms(ctx, p)
		if err != nil {
			return err
		}
		for _, a := range all {
			rv, ok := a.(*atom.RandomVariable)
			if !ok {
				continue
			}
			if err := e.store.Commit(ctx, rv); err != nil {
				return fmt.Errorf("commit %s: %w", rv.String(), err)
			}
		}
	}
	return nil
}
