package rule

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
)

func testRegistry(t *testing.T) (*predicate.Registry, *predicate.Predicate, *predicate.Predicate) {
	t.Helper()
	reg := predicate.NewRegistry()
	p, err := reg.Register("P", []predicate.ArgType{predicate.TypeString})
	if err != nil {
		t.Fatalf("register P: %v", err)
	}
	q, err := reg.Register("Q", []predicate.ArgType{predicate.TypeString})
	if err != nil {
		t.Fatalf("register Q: %v", err)
	}
	return reg, p, q
}

func observed(t *testing.T, p *predicate.Predicate, arg string, v float64) atom.GroundAtom {
	t.Helper()
	a, err := atom.NewObserved(p, []atom.Constant{atom.Str(arg)}, v)
	if err != nil {
		t.Fatalf("observed %s(%s): %v", p.Name(), arg, err)
	}
	return a
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWeightedLogicalIncompatibility(t *testing.T) {
	_, p, q := testRegistry(t)

	// Clause Q(a) ∨ ¬P(a) with Q(a)=0.3, P(a)=0.4:
	// literal sum 0.3 + (1−0.4) = 0.9, hinge 0.1.
	r := NewWeightedLogical("r", 2,
		[]atom.GroundAtom{observed(t, q, "a", 0.3)},
		[]atom.GroundAtom{observed(t, p, "a", 0.4)})

	if got := r.Incompatibility(); !near(got, 0.1) {
		t.Errorf("incompatibility = %g, want 0.1", got)
	}
	if r.Weight() != 2 {
		t.Errorf("weight = %g, want 2", r.Weight())
	}
	if got := len(r.Atoms()); got != 2 {
		t.Errorf("atoms = %d, want 2", got)
	}
}

func TestWeightedLogicalSatisfiedClause(t *testing.T) {
	_, p, q := testRegistry(t)

	r := NewWeightedLogical("r", 1,
		[]atom.GroundAtom{observed(t, q, "a", 0.8)},
		[]atom.GroundAtom{observed(t, p, "a", 0.5)})

	// Literal sum 0.8 + 0.5 = 1.3 ≥ 1.
	if got := r.Incompatibility(); got != 0 {
		t.Errorf("incompatibility = %g, want 0", got)
	}
}

func TestHardLogicalInfeasibility(t *testing.T) {
	_, _, q := testRegistry(t)

	r := NewHardLogical("c", []atom.GroundAtom{observed(t, q, "a", 0.25)}, nil)
	if got := r.Infeasibility(); !near(got, 0.75) {
		t.Errorf("infeasibility = %g, want 0.75", got)
	}
}

func TestLinearConstraint(t *testing.T) {
	_, p, q := testRegistry(t)
	atoms := []atom.GroundAtom{observed(t, p, "a", 0.5), observed(t, q, "a", 0.5)}
	coeffs := []float64{1, 1}

	cases := []struct {
		cmp   Comparator
		bound float64
		want  float64
	}{
		{Equal, 1, 0},
		{Equal, 0.6, 0.4},
		{LessEqual, 0.75, 0.25},
		{LessEqual, 2, 0},
		{GreaterEqual, 1.5, 0.5},
		{GreaterEqual, 0.5, 0},
	}
	for _, c := range cases {
		r := NewLinearConstraint("sum", coeffs, atoms, c.cmp, c.bound)
		if got := r.Infeasibility(); !near(got, c.want) {
			t.Errorf("%s %g: infeasibility = %g, want %g", c.cmp, c.bound, got, c.want)
		}
	}
}

func TestTemplateValidate(t *testing.T) {
	_, p, q := testRegistry(t)

	good := &Template{
		Name:   "p-implies-q",
		Weight: 1,
		Body:   []Literal{{Predicate: p, Terms: []atom.Term{atom.Variable("X")}}},
		Head:   []Literal{{Predicate: q, Terms: []atom.Term{atom.Variable("X")}}},
	}
	if err := good.Validate(); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}
}

func TestTemplateValidateArityMismatch(t *testing.T) {
	_, p, q := testRegistry(t)

	bad := &Template{
		Name:   "bad-arity",
		Weight: 1,
		Body:   []Literal{{Predicate: p, Terms: []atom.Term{atom.Variable("X"), atom.Variable("Y")}}},
		Head:   []Literal{{Predicate: q, Terms: []atom.Term{atom.Variable("X")}}},
	}
	err := bad.Validate()
	if !errors.Is(err, internalerr.ErrArityMismatch) {
		t.Fatalf("got %v, want ErrArityMismatch", err)
	}
	if !strings.Contains(err.Error(), "bad-arity") {
		t.Errorf("error should name the rule: %v", err)
	}
}

func TestTemplateValidateConstantType(t *testing.T) {
	reg := predicate.NewRegistry()
	age, err := reg.Register("Age", []predicate.ArgType{predicate.TypeString, predicate.TypeInteger})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	bad := &Template{
		Weight: 1,
		Body:   []Literal{{Predicate: age, Terms: []atom.Term{atom.Variable("X"), atom.Str("old")}}},
		Head:   []Literal{{Predicate: age, Terms: []atom.Term{atom.Variable("X"), atom.Int(30)}}},
	}
	if err := bad.Validate(); !errors.Is(err, internalerr.ErrTypeMismatch) {
		t.Errorf("got %v, want ErrTypeMismatch", err)
	}
}

func TestTemplateValidateUnboundHeadVariable(t *testing.T) {
	_, p, q := testRegistry(t)

	bad := &Template{
		Weight: 1,
		Body:   []Literal{{Predicate: p, Terms: []atom.Term{atom.Variable("X")}}},
		Head:   []Literal{{Predicate: q, Terms: []atom.Term{atom.Variable("Z")}}},
	}
	if err := bad.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestTemplateValidateNegativeWeight(t *testing.T) {
	_, p, q := testRegistry(t)

	bad := &Template{
		Weight: -1,
		Body:   []Literal{{Predicate: p, Terms: []atom.Term{atom.Variable("X")}}},
		Head:   []Literal{{Predicate: q, Terms: []atom.Term{atom.Variable("X")}}},
	}
	if err := bad.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestParseLiteral(t *testing.T) {
	reg, p, _ := testRegistry(t)

	lit, err := ParseLiteral(reg, "!P(X)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !lit.Negated {
		t.Error("negation lost")
	}
	if lit.Predicate != p {
		t.Error("wrong predicate")
	}
	if _, ok := lit.Terms[0].(atom.Variable); !ok {
		t.Errorf("X should parse as a variable, got %T", lit.Terms[0])
	}

	lit, err = ParseLiteral(reg, "P(bob)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, ok := lit.Terms[0].(atom.Constant)
	if !ok {
		t.Fatalf("bob should parse as a constant, got %T", lit.Terms[0])
	}
	if c.Value != "bob" {
		t.Errorf("constant = %q, want bob", c.Value)
	}
}

func TestParseLiteralErrors(t *testing.T) {
	reg, _, _ := testRegistry(t)

	if _, err := ParseLiteral(reg, "P X"); err == nil {
		t.Error("missing parenthesis should fail")
	}
	if _, err := ParseLiteral(reg, "Nope(X)"); !errors.Is(err, internalerr.ErrUnknownPredicate) {
		t.Errorf("got %v, want ErrUnknownPredicate", err)
	}
}

func TestParseGroundAtomText(t *testing.T) {
	reg, p, _ := testRegistry(t)

	got, args, err := ParseGroundAtomText(reg, "P(alice)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != p {
		t.Error("wrong predicate")
	}
	if len(args) != 1 || args[0].Value != "alice" {
		t.Errorf("args = %v", args)
	}

	if _, _, err := ParseGroundAtomText(reg, "P(X)"); err == nil {
		t.Error("variables must be rejected in facts")
	}
	if _, _, err := ParseGroundAtomText(reg, "!P(alice)"); err == nil {
		t.Error("negated facts must be rejected")
	}
}

func TestTemplateString(t *testing.T) {
	_, p, q := testRegistry(t)

	tpl := &Template{
		Weight: 2.5,
		Body:   []Literal{{Predicate: p, Terms: []atom.Term{atom.Variable("X")}}},
		Head:   []Literal{{Predicate: q, Terms: []atom.Term{atom.Variable("X")}}},
	}
	if got := tpl.String(); got != "2.5: P(X) -> Q(X)" {
		t.Errorf("String = %q", got)
	}

	tpl.Hard = true
	if got := tpl.String(); got != "P(X) -> Q(X) ." {
		t.Errorf("hard String = %q", got)
	}
}
