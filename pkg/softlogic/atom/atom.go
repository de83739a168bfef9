package atom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
)

// Term is either a bound Constant or a free Variable. Variables exist
// only inside rule templates; ground atoms carry constants exclusively.
type Term interface {
	isTerm()
	String() string
}

// Variable is a free variable name in a rule template.
type Variable string

func (Variable) isTerm()          {}
func (v Variable) String() string { return string(v) }

// Constant is a typed bound value.
type Constant struct {
	Type  predicate.ArgType
	Value string
}

func (Constant) isTerm()          {}
func (c Constant) String() string { return c.Value }

// Str builds a string constant.
func Str(v string) Constant { return Constant{Type: predicate.TypeString, Value: v} }

// Int builds an integer constant.
func Int(v int64) Constant {
	return Constant{Type: predicate.TypeInteger, Value: strconv.FormatInt(v, 10)}
}

// Double builds a floating-point constant.
func Double(v float64) Constant {
	return Constant{Type: predicate.TypeDouble, Value: strconv.FormatFloat(v, 'g', -1, 64)}
}

// ParseConstant parses a textual value into a constant of the given type.
func ParseConstant(t predicate.ArgType, v string) (Constant, error) {
	switch t {
	case predicate.TypeInteger:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return Constant{}, fmt.Errorf("%w: %q is not an integer", internalerr.ErrTypeMismatch, v)
		}
	case predicate.TypeDouble:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return Constant{}, fmt.Errorf("%w: %q is not a number", internalerr.ErrTypeMismatch, v)
		}
	}
	return Constant{Type: t, Value: v}, nil
}

// GroundAtom is a predicate applied to bound constants, carrying a truth
// value in [0,1]. The two concrete kinds are Observed and RandomVariable.
type GroundAtom interface {
	Predicate() *predicate.Predicate
	Arguments() []Constant
	Value() float64
	String() string
}

// CheckArgs verifies that args match the predicate's arity and types.
func CheckArgs(p *predicate.Predicate, args []Constant) error {
	if len(args) != p.Arity() {
		return fmt.Errorf("%w: %s applied to %d arguments, want %d",
			internalerr.ErrArityMismatch, p.Name(), len(args), p.Arity())
	}
	for i, a := range args {
		if a.Type != p.ArgType(i) {
			return fmt.Errorf("%w: %s argument %d is %s, want %s",
				internalerr.ErrTypeMismatch, p.Name(), i, a.Type, p.ArgType(i))
		}
	}
	return nil
}

// Key returns the canonical map key for a ground atom's identity.
func Key(p *predicate.Predicate, args []Constant) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, p.Name())
	for _, a := range args {
		parts = append(parts, a.Value)
	}
	return strings.Join(parts, "\x1f")
}

func format(p *predicate.Predicate, args []Constant) string {
	vals := make([]string, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	return p.Name() + "(" + strings.Join(vals, ", ") + ")"
}

// Observed is a ground atom whose truth value is fixed by the fact store.
type Observed struct {
	pred  *predicate.Predicate
	args  []Constant
	value float64
}

// NewObserved builds an observed atom after validating args and value.
func NewObserved(p *predicate.Predicate, args []Constant, value float64) (*Observed, error) {
	if err := CheckArgs(p, args); err != nil {
		return nil, err
	}
	if value < 0 || value > 1 {
		return nil, fmt.Errorf("%w: %g outside [0,1] for %s",
			internalerr.ErrInvalidValue, value, format(p, args))
	}
	return &Observed{pred: p, args: append([]Constant(nil), args...), value: value}, nil
}

func (o *Observed) Predicate() *predicate.Predicate { return o.pred }
func (o *Observed) Arguments() []Constant           { return o.args }
func (o *Observed) Value() float64                  { return o.value }
func (o *Observed) String() string                  { return format(o.pred, o.args) }

// Hard reports whether the observed value is exactly 0 or 1.
func (o *Observed) Hard() bool { return o.value == 0 || o.value == 1 }

// RandomVariable is a ground atom whose truth value is unknown and
// mutated by inference and rounding. It is owned by the inference
// process while open and persisted on explicit commit.
type RandomVariable struct {
	pred  *predicate.Predicate
	args  []Constant
	value float64
}

// NewRandomVariable builds a random-variable atom with value 0.
func NewRandomVariable(p *predicate.Predicate, args []Constant) (*RandomVariable, error) {
	if err := CheckArgs(p, args); err != nil {
		return nil, err
	}
	return &RandomVariable{pred: p, args: append([]Constant(nil), args...)}, nil
}

func (rv *RandomVariable) Predicate() *predicate.Predicate { return rv.pred }
func (rv *RandomVariable) Arguments() []Constant           { return rv.args }
func (rv *RandomVariable) Value() float64                  { return rv.value }
func (rv *RandomVariable) String() string                  { return format(rv.pred, rv.args) }

// SetValue assigns a truth value in [0,1].
func (rv *RandomVariable) SetValue(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %g outside [0,1] for %s",
			internalerr.ErrInvalidValue, v, rv.String())
	}
	rv.value = v
	return nil
}
