package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

type fixture struct {
	p *predicate.Predicate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := predicate.NewRegistry()
	p, err := reg.Register("P", []predicate.ArgType{predicate.TypeString})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return &fixture{p: p}
}

func (f *fixture) observed(t *testing.T, arg string, v float64) atom.GroundAtom {
	t.Helper()
	a, err := atom.NewObserved(f.p, []atom.Constant{atom.Str(arg)}, v)
	if err != nil {
		t.Fatalf("observed: %v", err)
	}
	return a
}

func (f *fixture) variable(t *testing.T, arg string, v float64) *atom.RandomVariable {
	t.Helper()
	rv, err := atom.NewRandomVariable(f.p, []atom.Constant{atom.Str(arg)})
	if err != nil {
		t.Fatalf("random variable: %v", err)
	}
	if err := rv.SetValue(v); err != nil {
		t.Fatalf("set value: %v", err)
	}
	return rv
}

func TestIncompatibilityCompatibilitySumToWeight(t *testing.T) {
	f := newFixture(t)

	rules := []rule.WeightedGroundRule{
		rule.NewWeightedLogical("r1", 2, []atom.GroundAtom{f.observed(t, "a", 0.3)}, nil),
		rule.NewWeightedLogical("r2", 5, []atom.GroundAtom{f.observed(t, "b", 0.9)}, []atom.GroundAtom{f.observed(t, "c", 0.7)}),
		rule.NewWeightedLogical("r3", 1.5, nil, []atom.GroundAtom{f.observed(t, "d", 1)}),
	}

	inc := TotalWeightedIncompatibility(rules)
	comp := TotalWeightedCompatibility(rules)
	if !near(inc+comp, 8.5) {
		t.Errorf("inc + comp = %g, want total weight 8.5", inc+comp)
	}
}

func TestExpectedWithNoRandomVariables(t *testing.T) {
	f := newFixture(t)

	// With only observed atoms the expectation is the deterministic score.
	r := rule.NewWeightedLogical("r", 3, []atom.GroundAtom{f.observed(t, "a", 0.4)}, nil)
	rules := []rule.WeightedGroundRule{r}

	if got, want := ExpectedTotalWeightedIncompatibility(rules), 3*0.6; !near(got, want) {
		t.Errorf("expected incompatibility = %g, want %g", got, want)
	}
	if got, want := ExpectedTotalWeightedCompatibility(rules), 3*0.4; !near(got, want) {
		t.Errorf("expected compatibility = %g, want %g", got, want)
	}
}

func TestExpectedEnumeratesSettings(t *testing.T) {
	f := newFixture(t)

	// Single random variable at 0.6: the clause is satisfied when the
	// atom rounds to 1 (probability 0.6) and violated otherwise.
	rv := f.variable(t, "x", 0.6)
	r := rule.NewWeightedLogical("r", 2, []atom.GroundAtom{rv}, nil)
	rules := []rule.WeightedGroundRule{r}

	if got, want := ExpectedTotalWeightedIncompatibility(rules), 2*0.4; !near(got, want) {
		t.Errorf("expected incompatibility = %g, want %g", got, want)
	}
	if got, want := ExpectedWeightedCompatibility(r), 2*0.6; !near(got, want) {
		t.Errorf("expected compatibility = %g, want %g", got, want)
	}
}

func TestExpectedTwoVariableClause(t *testing.T) {
	f := newFixture(t)

	// Clause X ∨ Y with X=0.5, Y=0.2 violated only when both round to
	// zero: expected incompatibility 0.5·0.8 = 0.4.
	x := f.variable(t, "x", 0.5)
	y := f.variable(t, "y", 0.2)
	r := rule.NewWeightedLogical("r", 1, []atom.GroundAtom{x, y}, nil)

	if got := ExpectedTotalWeightedIncompatibility([]rule.WeightedGroundRule{r}); !near(got, 0.4) {
		t.Errorf("expected incompatibility = %g, want 0.4", got)
	}
}

func TestExpectedRestoresValues(t *testing.T) {
	f := newFixture(t)

	rv := f.variable(t, "x", 0.37)
	r := rule.NewWeightedLogical("r", 1, []atom.GroundAtom{rv}, nil)
	ExpectedWeightedCompatibility(r)

	if rv.Value() != 0.37 {
		t.Errorf("value = %g after scoring, want 0.37 restored", rv.Value())
	}
}

func TestRoundingProbability(t *testing.T) {
	if got := RoundingProbability(0); got != 0.25 {
		t.Errorf("RoundingProbability(0) = %g, want 0.25", got)
	}
	if got := RoundingProbability(1); got != 0.75 {
		t.Errorf("RoundingProbability(1) = %g, want 0.75", got)
	}
	if got := RoundingProbability(0.5); got != 0.5 {
		t.Errorf("RoundingProbability(0.5) = %g, want 0.5", got)
	}
}

func TestExpectedWeightedLogicalCompatibility(t *testing.T) {
	f := newFixture(t)

	// pos: rv at 0.5 (rp 0.5) and an observed 0.2; neg: rv at 0.4
	// (rp 0.45). allFail = 0.5·0.45 = 0.225, observedSum = 0.2, so
	// 2·(0.775 + 0.225·0.2) = 1.64.
	r := rule.NewWeightedLogical("r", 2,
		[]atom.GroundAtom{f.variable(t, "x", 0.5), f.observed(t, "a", 0.2)},
		[]atom.GroundAtom{f.variable(t, "y", 0.4)})

	if got := ExpectedWeightedLogicalCompatibility(r); !near(got, 1.64) {
		t.Errorf("expected logical compatibility = %g, want 1.64", got)
	}
}

func TestExpectedWeightedLogicalCompatibilityObservedClamp(t *testing.T) {
	f := newFixture(t)

	// Observed contributions above 1 clamp, so the result never exceeds
	// the rule weight.
	r := rule.NewWeightedLogical("r", 3,
		[]atom.GroundAtom{f.observed(t, "a", 0.8), f.observed(t, "b", 0.9)},
		nil)

	if got := ExpectedWeightedLogicalCompatibility(r); !near(got, 3) {
		t.Errorf("expected logical compatibility = %g, want 3", got)
	}
}

func TestExpectedWeightedLogicalSatisfaction(t *testing.T) {
	f := newFixture(t)

	// pos: rv at 1 (success 0.75) and a hard-false observed (success 0).
	// Failure of both is 0.25, so satisfaction is 2·0.75 = 1.5.
	r := rule.NewWeightedLogical("r", 2,
		[]atom.GroundAtom{f.variable(t, "x", 1), f.observed(t, "a", 0)},
		nil)

	got, err := ExpectedWeightedLogicalSatisfaction(r)
	if err != nil {
		t.Fatalf("satisfaction: %v", err)
	}
	if !near(got, 1.5) {
		t.Errorf("satisfaction = %g, want 1.5", got)
	}
}

func TestExpectedWeightedLogicalSatisfactionRejectsSoftObserved(t *testing.T) {
	f := newFixture(t)

	r := rule.NewWeightedLogical("r", 1,
		[]atom.GroundAtom{f.observed(t, "a", 0.5)}, nil)

	_, err := ExpectedWeightedLogicalSatisfaction(r)
	if !errors.Is(err, internalerr.ErrSoftObservedValue) {
		t.Errorf("got %v, want ErrSoftObservedValue", err)
	}
}

func TestInfeasibilityNorm(t *testing.T) {
	f := newFixture(t)
	zero := f.observed(t, "z", 0)

	// Violations 3 and 4 give a Euclidean norm of 5.
	rules := []rule.UnweightedGroundRule{
		rule.NewLinearConstraint("c1", []float64{1}, []atom.GroundAtom{zero}, rule.Equal, 3),
		rule.NewLinearConstraint("c2", []float64{1}, []atom.GroundAtom{zero}, rule.GreaterEqual, 4),
	}
	if got := InfeasibilityNorm(rules); !near(got, 5) {
		t.Errorf("norm = %g, want 5", got)
	}

	if got := InfeasibilityNorm(nil); got != 0 {
		t.Errorf("empty norm = %g, want 0", got)
	}
}
