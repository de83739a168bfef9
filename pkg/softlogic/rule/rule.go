// Package rule defines weighted first-order rule templates and the
// concrete ground rules the grounding engine instantiates from them.
//
// Templates are conjunctive-body implications (body → head). After
// negation normalization a ground instance is a disjunctive clause whose
// incompatibility is the Łukasiewicz clause hinge
// max(0, 1 − Σ literal values), with a literal valued v for a positive
// atom and 1−v for a negated one.
package rule

import (
	"fmt"
	"strings"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
)

// Literal is one predicate application inside a template, possibly
// negated, with variables and/or constants as terms.
type Literal struct {
	Negated   bool
	Predicate *predicate.Predicate
	Terms     []atom.Term
}

func (l Literal) String() string {
	parts := make([]string, len(l.Terms))
	for i, t := range l.Terms {
		parts[i] = t.String()
	}
	s := l.Predicate.Name() + "(" + strings.Join(parts, ", ") + ")"
	if l.Negated {
		return "!" + s
	}
	return s
}

// Template is a weighted or hard rule template. Body literals are a
// conjunction; Head literals a disjunction. The grounded clause is
// ¬body₁ ∨ … ∨ ¬bodyₖ ∨ head₁ ∨ … ∨ headₘ.
type Template struct {
	Name   string
	Body   []Literal
	Head   []Literal
	Weight float64
	Hard   bool
}

func (t *Template) String() string {
	body := make([]string, len(t.Body))
	for i, l := range t.Body {
		body[i] = l.String()
	}
	head := make([]string, len(t.Head))
	for i, l := range t.Head {
		head[i] = l.String()
	}
	s := strings.Join(body, " & ") + " -> " + strings.Join(head, " | ")
	if t.Hard {
		return s + " ."
	}
	return fmt.Sprintf("%g: %s", t.Weight, s)
}

func (t *Template) label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.String()
}

// Validate fails fast on arity or type mismatches between the template's
// literals and their predicate signatures, and on head variables that
// never occur in the body (those could not be bound by grounding).
func (t *Template) Validate() error {
	if len(t.Head) == 0 && len(t.Body) == 0 {
		return fmt.Errorf("%w: rule %q has no literals", internalerr.ErrInvalidConfig, t.label())
	}
	if !t.Hard && t.Weight < 0 {
		return fmt.Errorf("%w: rule %q has negative weight %g",
			internalerr.ErrInvalidConfig, t.label(), t.Weight)
	}

	bound := make(map[atom.Variable]bool)
	for _, l := range t.Body {
		if err := t.checkLiteral(l); err != nil {
			return err
		}
		for _, term := range l.Terms {
			if v, ok := term.(atom.Variable); ok {
				bound[v] = true
			}
		}
	}
	for _, l := range t.Head {
		if err := t.checkLiteral(l); err != nil {
			return err
		}
		for _, term := range l.Terms {
			if v, ok := term.(atom.Variable); ok && !bound[v] {
				return fmt.Errorf("%w: rule %q head variable %s does not occur in the body",
					internalerr.ErrInvalidConfig, t.label(), v)
			}
		}
	}
	return nil
}

func (t *Template) checkLiteral(l Literal) error {
	if len(l.Terms) != l.Predicate.Arity() {
		return fmt.Errorf("%w: rule %q applies %s to %d terms, want %d",
			internalerr.ErrArityMismatch, t.label(), l.Predicate.Name(), len(l.Terms), l.Predicate.Arity())
	}
	for i, term := range l.Terms {
		if c, ok := term.(atom.Constant); ok && c.Type != l.Predicate.ArgType(i) {
			return fmt.Errorf("%w: rule %q passes %s value %q to %s argument %d (%s)",
				internalerr.ErrTypeMismatch, t.label(), c.Type, c.Value, l.Predicate.Name(), i, l.Predicate.ArgType(i))
		}
	}
	return nil
}
