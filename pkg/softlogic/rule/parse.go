package rule

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
)

// ParseLiteral parses "Pred(X, bob)" with an optional "!" negation
// prefix. Identifiers starting with an upper-case letter are variables;
// everything else is a constant typed by the predicate's signature. The
// predicate is resolved through reg.
func ParseLiteral(reg *predicate.Registry, s string) (Literal, error) {
	text := strings.TrimSpace(s)
	var lit Literal
	if strings.HasPrefix(text, "!") {
		lit.Negated = true
		text = strings.TrimSpace(text[1:])
	}

	open := strings.Index(text, "(")
	if open == -1 {
		return Literal{}, fmt.Errorf("missing '(' in literal %q", s)
	}
	if !strings.HasSuffix(text, ")") {
		return Literal{}, fmt.Errorf("missing ')' in literal %q", s)
	}

	p, err := reg.Lookup(text[:open])
	if err != nil {
		return Literal{}, fmt.Errorf("literal %q: %w", s, err)
	}
	lit.Predicate = p

	args := strings.TrimSpace(text[open+1 : len(text)-1])
	if args == "" {
		return Literal{}, fmt.Errorf("literal %q has no arguments", s)
	}
	for i, raw := range strings.Split(args, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			return Literal{}, fmt.Errorf("literal %q has an empty argument", s)
		}
		if isVariable(name) {
			lit.Terms = append(lit.Terms, atom.Variable(name))
			continue
		}
		if i >= p.Arity() {
			// Arity checked by Template.Validate; just stop typing args.
			lit.Terms = append(lit.Terms, atom.Str(name))
			continue
		}
		c, err := atom.ParseConstant(p.ArgType(i), name)
		if err != nil {
			return Literal{}, fmt.Errorf("literal %q argument %d: %w", s, i, err)
		}
		lit.Terms = append(lit.Terms, c)
	}
	return lit, nil
}

// ParseGroundAtomText parses "Pred(alice, bob)" into a predicate and its
// constant arguments, rejecting variables. Used for fact files.
func ParseGroundAtomText(reg *predicate.Registry, s string) (*predicate.Predicate, []atom.Constant, error) {
	lit, err := ParseLiteral(reg, s)
	if err != nil {
		return nil, nil, err
	}
	if lit.Negated {
		return nil, nil, fmt.Errorf("fact %q must not be negated", s)
	}
	args := make([]atom.Constant, len(lit.Terms))
	for i, term := range lit.Terms {
		c, ok := term.(atom.Constant)
		if !ok {
			return nil, nil, fmt.Errorf("fact %q contains variable %s", s, term)
		}
		args[i] = c
	}
	if err := atom.CheckArgs(lit.Predicate, args); err != nil {
		return nil, nil, fmt.Errorf("fact %q: %w", s, err)
	}
	return lit.Predicate, args, nil
}

func isVariable(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}
