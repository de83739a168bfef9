package atom

import (
	"errors"
	"testing"

	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
)

func testPredicate(t *testing.T) *predicate.Predicate {
	t.Helper()
	reg := predicate.NewRegistry()
	p, err := reg.Register("Knows", []predicate.ArgType{predicate.TypeString, predicate.TypeString})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return p
}

func TestObserved(t *testing.T) {
	p := testPredicate(t)

	obs, err := NewObserved(p, []Constant{Str("alice"), Str("bob")}, 0.4)
	if err != nil {
		t.Fatalf("new observed: %v", err)
	}
	if obs.Value() != 0.4 {
		t.Errorf("value = %g, want 0.4", obs.Value())
	}
	if obs.Hard() {
		t.Error("0.4 should be soft")
	}
	if obs.String() != "KNOWS(alice, bob)" {
		t.Errorf("String = %q", obs.String())
	}

	hard, err := NewObserved(p, []Constant{Str("a"), Str("b")}, 1)
	if err != nil {
		t.Fatalf("new observed: %v", err)
	}
	if !hard.Hard() {
		t.Error("1.0 should be hard")
	}
}

func TestObservedRejectsBadInput(t *testing.T) {
	p := testPredicate(t)

	if _, err := NewObserved(p, []Constant{Str("only")}, 1); !errors.Is(err, internalerr.ErrArityMismatch) {
		t.Errorf("arity: got %v, want ErrArityMismatch", err)
	}
	if _, err := NewObserved(p, []Constant{Str("a"), Int(3)}, 1); !errors.Is(err, internalerr.ErrTypeMismatch) {
		t.Errorf("type: got %v, want ErrTypeMismatch", err)
	}
	if _, err := NewObserved(p, []Constant{Str("a"), Str("b")}, 1.5); !errors.Is(err, internalerr.ErrInvalidValue) {
		t.Errorf("value: got %v, want ErrInvalidValue", err)
	}
}

func TestRandomVariableSetValue(t *testing.T) {
	p := testPredicate(t)

	rv, err := NewRandomVariable(p, []Constant{Str("a"), Str("b")})
	if err != nil {
		t.Fatalf("new random variable: %v", err)
	}
	if rv.Value() != 0 {
		t.Errorf("initial value = %g, want 0", rv.Value())
	}
	if err := rv.SetValue(0.7); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if rv.Value() != 0.7 {
		t.Errorf("value = %g, want 0.7", rv.Value())
	}
	if err := rv.SetValue(-0.1); !errors.Is(err, internalerr.ErrInvalidValue) {
		t.Errorf("out of range: got %v, want ErrInvalidValue", err)
	}
}

func TestParseConstant(t *testing.T) {
	if _, err := ParseConstant(predicate.TypeInteger, "12"); err != nil {
		t.Errorf("valid integer: %v", err)
	}
	if _, err := ParseConstant(predicate.TypeInteger, "twelve"); !errors.Is(err, internalerr.ErrTypeMismatch) {
		t.Errorf("bad integer: got %v, want ErrTypeMismatch", err)
	}
	if _, err := ParseConstant(predicate.TypeDouble, "0.5"); err != nil {
		t.Errorf("valid double: %v", err)
	}
}

func TestKeyDistinguishesAtoms(t *testing.T) {
	p := testPredicate(t)

	k1 := Key(p, []Constant{Str("a"), Str("b")})
	k2 := Key(p, []Constant{Str("a"), Str("c")})
	if k1 == k2 {
		t.Error("different arguments must map to different keys")
	}
	if k1 != Key(p, []Constant{Str("a"), Str("b")}) {
		t.Error("identical atoms must map to the same key")
	}
}
