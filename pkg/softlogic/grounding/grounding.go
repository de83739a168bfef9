// Package grounding instantiates rule templates against a fact store,
// producing the ground-rule store the reasoner and discretizer work on.
package grounding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/facts"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
	"github.com/cognicore/softlogic/pkg/softlogic/term"
)

// Config controls a grounding pass.
type Config struct {
	// Parallel grounds independent templates concurrently. Each template
	// fills its own buffer; buffers are appended to the store serially in
	// template order, so the result is identical to a serial pass.
	Parallel bool
}

// Ground runs a serial grounding pass over every template.
//
// Re-grounding is the only way to refresh the store's reverse index
// after atom values change; operations that need a current index (the
// greedy discretizer) call this again rather than patching the old one.
func Ground(ctx context.Context, templates []*rule.Template, fs facts.Store) (*term.MemoryStore, error) {
	return GroundWithConfig(ctx, templates, fs, Config{})
}

// GroundWithConfig runs a grounding pass with explicit configuration.
func GroundWithConfig(ctx context.Context, templates []*rule.Template, fs facts.Store, cfg Config) (*term.MemoryStore, error) {
	buffers := make([][]rule.GroundRule, len(templates))

	if cfg.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, tpl := range templates {
			i, tpl := i, tpl
			g.Go(func() error {
				rules, err := groundTemplate(gctx, tpl, fs)
				if err != nil {
					return err
				}
				buffers[i] = rules
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, tpl := range templates {
			rules, err := groundTemplate(ctx, tpl, fs)
			if err != nil {
				return nil, err
			}
			buffers[i] = rules
		}
	}

	total := 0
	for _, buf := range buffers {
		total += len(buf)
	}
	store := term.NewMemoryStoreSize(total)
	for _, buf := range buffers {
		for _, r := range buf {
			if _, err := store.Add(r); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}

// binding is one partial assignment of template variables, with the
// body atoms matched so far.
type binding struct {
	vars      map[atom.Variable]atom.Constant
	bodyAtoms []atom.GroundAtom
}

func groundTemplate(ctx context.Context, tpl *rule.Template, fs facts.Store) ([]rule.GroundRule, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	bindings := []*binding{{vars: make(map[atom.Variable]atom.Constant)}}
	for _, lit := range tpl.Body {
		candidates, err := fs.AllAtoms(ctx, lit.Predicate)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", tpl.String(), err)
		}

		var next []*binding
		for _, b := range bindings {
			for _, cand := range candidates {
				extended, ok := extend(lit, b.vars, cand)
				if !ok {
					continue
				}
				next = append(next, &binding{
					vars:      extended,
					bodyAtoms: appendAtom(b.bodyAtoms, cand),
				})
			}
		}
		bindings = next
		if len(bindings) == 0 {
			return nil, nil
		}
	}

	var out []rule.GroundRule
	for _, b := range bindings {
		gr, err := instantiate(ctx, tpl, b, fs)
		if err != nil {
			return nil, err
		}
		if gr != nil {
			out = append(out, gr)
		}
	}
	return out, nil
}

// extend matches a candidate atom against a body literal under the
// current variable assignment, returning the extended assignment.
func extend(lit rule.Literal, vars map[atom.Variable]atom.Constant, cand atom.GroundAtom) (map[atom.Variable]atom.Constant, bool) {
	args := cand.Arguments()
	if len(args) != len(lit.Terms) {
		return nil, false
	}

	extended := vars
	copied := false
	for i, t := range lit.Terms {
		switch term := t.(type) {
		case atom.Constant:
			if term.Value != args[i].Value {
				return nil, false
			}
		case atom.Variable:
			if bound, ok := extended[term]; ok {
				if bound.Value != args[i].Value {
					return nil, false
				}
				continue
			}
			if !copied {
				next := make(map[atom.Variable]atom.Constant, len(extended)+1)
				for k, v := range extended {
					next[k] = v
				}
				extended = next
				copied = true
			}
			extended[term] = args[i]
		}
	}
	return extended, true
}

func appendAtom(atoms []atom.GroundAtom, a atom.GroundAtom) []atom.GroundAtom {
	out := make([]atom.GroundAtom, 0, len(atoms)+1)
	out = append(out, atoms...)
	return append(out, a)
}

// instantiate builds the ground clause for one complete binding, or nil
// when the clause is trivially satisfied.
//
// Trivially satisfied ground rules are dropped here and therefore
// excluded from every aggregate the scoring package computes over the
// store; the compatibility-sum functions document this.
func instantiate(ctx context.Context, tpl *rule.Template, b *binding, fs facts.Store) (rule.GroundRule, error) {
	var pos, neg []atom.GroundAtom

	// Negation normalization: body₁ ∧ … ∧ bodyₖ → head becomes
	// ¬body₁ ∨ … ∨ ¬bodyₖ ∨ head.
	for i, lit := range tpl.Body {
		if lit.Negated {
			pos = append(pos, b.bodyAtoms[i])
		} else {
			neg = append(neg, b.bodyAtoms[i])
		}
	}
	for _, lit := range tpl.Head {
		args := make([]atom.Constant, len(lit.Terms))
		for i, t := range lit.Terms {
			switch term := t.(type) {
			case atom.Constant:
				args[i] = term
			case atom.Variable:
				args[i] = b.vars[term]
			}
		}
		a, err := fs.Atom(ctx, lit.Predicate, args)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", tpl.String(), err)
		}
		if lit.Negated {
			neg = append(neg, a)
		} else {
			pos = append(pos, a)
		}
	}

	observedSum := 0.0
	for _, a := range pos {
		if _, ok := a.(*atom.RandomVariable); !ok {
			observedSum += a.Value()
		}
	}
	for _, a := range neg {
		if _, ok := a.(*atom.RandomVariable); !ok {
			observedSum += 1 - a.Value()
		}
	}

	// Observed literals alone satisfy the clause: incompatibility is
	// identically zero whatever the unknowns take, so drop it. A fully
	// observed but violated clause stays; its constant contribution
	// counts toward the totals.
	if observedSum >= 1 {
		return nil, nil
	}

	name := tpl.Name
	if name == "" {
		name = tpl.String()
	}
	if tpl.Hard {
		return rule.NewHardLogical(name, pos, neg), nil
	}
	return rule.NewWeightedLogical(name, tpl.Weight, pos, neg), nil
}
