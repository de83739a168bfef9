// Package memstore is an in-memory facts.Store, the canonical test
// double and the backing store for fully in-process inference runs.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
)

// Store is a mutex-guarded in-memory implementation of facts.Store.
type Store struct {
	mu     sync.RWMutex
	open   map[*predicate.Predicate]bool
	atoms  map[string]atom.GroundAtom
	byPred map[*predicate.Predicate][]atom.GroundAtom

	committed map[string]float64
	closed    bool
}

// New creates an empty store. Atoms of the listed open predicates are
// materialized as random variables on first reference; every other
// predicate is closed-world observed.
func New(open ...*predicate.Predicate) *Store {
	s := &Store{
		open:      make(map[*predicate.Predicate]bool, len(open)),
		atoms:     make(map[string]atom.GroundAtom),
		byPred:    make(map[*predicate.Predicate][]atom.GroundAtom),
		committed: make(map[string]float64),
	}
	for _, p := range open {
		s.open[p] = true
	}
	return s
}

// Observe records an observed fact with the given truth value.
func (s *Store) Observe(p *predicate.Predicate, args []atom.Constant, value float64) error {
	obs, err := atom.NewObserved(p, args, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("observe %s: %w", obs.String(), internalerr.ErrAlreadyClosed)
	}
	key := atom.Key(p, args)
	if _, ok := s.atoms[key]; ok {
		return fmt.Errorf("%w: fact %s observed twice", internalerr.ErrInvalidValue, obs.String())
	}
	s.atoms[key] = obs
	s.byPred[p] = append(s.byPred[p], obs)
	return nil
}

// Atom implements facts.Store.
func (s *Store) Atom(ctx context.Context, p *predicate.Predicate, args []atom.Constant) (atom.GroundAtom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("atom %s: %w", atom.Key(p, args), internalerr.ErrAlreadyClosed)
	}

	key := atom.Key(p, args)
	if a, ok := s.atoms[key]; ok {
		return a, nil
	}

	var (
		a   atom.GroundAtom
		err error
	)
	if s.open[p] {
		a, err = atom.NewRandomVariable(p, args)
	} else {
		a, err = atom.NewObserved(p, args, 0)
	}
	if err != nil {
		return nil, err
	}
	s.atoms[key] = a
	s.byPred[p] = append(s.byPred[p], a)
	return a, nil
}

// AllAtoms implements facts.Store, returning atoms in insertion order.
func (s *Store) AllAtoms(ctx context.Context, p *predicate.Predicate) ([]atom.GroundAtom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("all atoms of %s: %w", p.Name(), internalerr.ErrAlreadyClosed)
	}
	return append([]atom.GroundAtom(nil), s.byPred[p]...), nil
}

// Commit implements facts.Store. The committed value is retrievable via
// Committed even after the in-flight atom mutates again.
func (s *Store) Commit(ctx context.Context, a atom.GroundAtom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("commit %s: %w", a.String(), internalerr.ErrAlreadyClosed)
	}
	s.committed[atom.Key(a.Predicate(), a.Arguments())] = a.Value()
	return nil
}

// Committed returns the last committed value for (p, args).
func (s *Store) Committed(p *predicate.Predicate, args []atom.Constant) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.committed[atom.Key(p, args)]
	return v, ok
}

// Close implements facts.Store. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
