// Package term holds the working optimization problem: an append-only
// indexed collection of ground rules plus a reverse index from each
// random-variable atom to the rules that reference it.
package term

import (
	"fmt"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
)

const defaultInitialSize = 1000

// MemoryStore is the in-memory ground-rule store. Add and Get are O(1).
// The reverse index is a byproduct of grounding: it is valid only as of
// the last grounding pass, never patched incrementally — callers that
// need a fresh index re-ground first.
//
// The store is not internally synchronized; grounding, solving and
// rounding must not run concurrently against one instance.
type MemoryStore struct {
	rules  []rule.GroundRule
	index  map[*atom.RandomVariable][]int
	atoms  []*atom.RandomVariable
	closed bool
}

// NewMemoryStore creates a store with the default capacity hint.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreSize(defaultInitialSize)
}

// NewMemoryStoreSize creates a store pre-allocated for n rules. The hint
// has no functional effect.
func NewMemoryStoreSize(n int) *MemoryStore {
	if n < 0 {
		n = 0
	}
	return &MemoryStore{
		rules: make([]rule.GroundRule, 0, n),
		index: make(map[*atom.RandomVariable][]int),
	}
}

// Add appends a ground rule and registers its random-variable atoms in
// the reverse index, returning the rule's index.
func (s *MemoryStore) Add(r rule.GroundRule) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("add ground rule: %w", internalerr.ErrStoreClosed)
	}

	idx := len(s.rules)
	s.rules = append(s.rules, r)

	seen := make(map[*atom.RandomVariable]bool)
	for _, a := range r.Atoms() {
		rv, ok := a.(*atom.RandomVariable)
		if !ok || seen[rv] {
			continue
		}
		seen[rv] = true
		if _, known := s.index[rv]; !known {
			s.atoms = append(s.atoms, rv)
		}
		s.index[rv] = append(s.index[rv], idx)
	}
	return idx, nil
}

// Get returns the ground rule at index.
func (s *MemoryStore) Get(index int) (rule.GroundRule, error) {
	if s.closed {
		return nil, fmt.Errorf("get ground rule %d: %w", index, internalerr.ErrStoreClosed)
	}
	if index < 0 || index >= len(s.rules) {
		return nil, fmt.Errorf("%w: ground rule %d of %d", internalerr.ErrIndexOutOfRange, index, len(s.rules))
	}
	return s.rules[index], nil
}

// Size returns the number of stored ground rules. After Close the
// result carries no contract.
func (s *MemoryStore) Size() int { return len(s.rules) }

// Close releases all entries; any further Add or Get fails with
// internalerr.ErrStoreClosed.
func (s *MemoryStore) Close() {
	s.rules = nil
	s.index = nil
	s.atoms = nil
	s.closed = true
}

// RegisteredRules returns the indices of the ground rules referencing
// rv, in append order, as of the last grounding pass.
func (s *MemoryStore) RegisteredRules(rv *atom.RandomVariable) []int {
	return s.index[rv]
}

// RandomVariableAtoms returns every referenced random-variable atom in
// first-registration order.
func (s *MemoryStore) RandomVariableAtoms() []*atom.RandomVariable {
	return s.atoms
}

// Weighted returns the weighted ground rules in store order.
func (s *MemoryStore) Weighted() []rule.WeightedGroundRule {
	var out []rule.WeightedGroundRule
	for _, r := range s.rules {
		if w, ok := r.(rule.WeightedGroundRule); ok {
			out = append(out, w)
		}
	}
	return out
}

// Unweighted returns the hard-constraint ground rules in store order.
func (s *MemoryStore) Unweighted() []rule.UnweightedGroundRule {
	var out []rule.UnweightedGroundRule
	for _, r := range s.rules {
		if u, ok := r.(rule.UnweightedGroundRule); ok {
			out = append(out, u)
		}
	}
	return out
}
