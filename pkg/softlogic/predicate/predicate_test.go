package predicate

import (
	"errors"
	"testing"

	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
)

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	p, err := reg.Register("Knows", []ArgType{TypeString, TypeString})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Name() != "KNOWS" {
		t.Errorf("name not normalized: got %q", p.Name())
	}
	if p.Arity() != 2 {
		t.Errorf("arity = %d, want 2", p.Arity())
	}

	got, err := reg.Lookup("knows")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != p {
		t.Error("lookup returned a different instance")
	}
}

func TestRegisterSameSignatureReturnsExisting(t *testing.T) {
	reg := NewRegistry()

	first, err := reg.Register("Likes", []ArgType{TypeString})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := reg.Register("LIKES", []ArgType{TypeString})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if first != second {
		t.Error("same signature should return the identical instance")
	}
}

func TestRegisterConflictingSignature(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Register("Age", []ArgType{TypeString, TypeInteger}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := reg.Register("Age", []ArgType{TypeString})
	if !errors.Is(err, internalerr.ErrDuplicatePredicate) {
		t.Errorf("conflicting signature: got %v, want ErrDuplicatePredicate", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup("Missing")
	if !errors.Is(err, internalerr.ErrUnknownPredicate) {
		t.Errorf("got %v, want ErrUnknownPredicate", err)
	}
}

func TestArgumentNames(t *testing.T) {
	reg := NewRegistry()

	p, err := reg.Register("Worked", []ArgType{TypeString, TypeString}, "person", "company")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.ArgName(1) != "company" {
		t.Errorf("ArgName(1) = %q, want company", p.ArgName(1))
	}

	_, err = reg.Register("Broken", []ArgType{TypeString}, "a", "b")
	if !errors.Is(err, internalerr.ErrArityMismatch) {
		t.Errorf("argument name count mismatch: got %v, want ErrArityMismatch", err)
	}
}

func TestReset(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Register("Temp", []ArgType{TypeString}); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Reset()
	if _, err := reg.Lookup("Temp"); !errors.Is(err, internalerr.ErrUnknownPredicate) {
		t.Errorf("after reset: got %v, want ErrUnknownPredicate", err)
	}
}

func TestParseArgType(t *testing.T) {
	cases := map[string]ArgType{
		"string":  TypeString,
		"int":     TypeInteger,
		"Integer": TypeInteger,
		"float":   TypeDouble,
		"double":  TypeDouble,
	}
	for in, want := range cases {
		got, err := ParseArgType(in)
		if err != nil {
			t.Errorf("ParseArgType(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseArgType(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseArgType("blob"); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("unknown type: got %v, want ErrInvalidConfig", err)
	}
}
