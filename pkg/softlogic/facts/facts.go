// Package facts defines the fact store the inference core reads atoms
// from and commits results to. Implementations live in the memstore and
// sqlite subpackages.
package facts

import (
	"context"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
)

// Store exposes ground atoms partitioned into observed facts and open
// (writable) random variables.
//
// Atom returns the canonical atom instance for (p, args). For an open
// predicate an unseen atom is created as a random variable on first
// reference; for a closed predicate it resolves to an observed atom
// with value 0 (closed-world default).
//
// Commit persists an atom's current value. After Close it fails with
// internalerr.ErrAlreadyClosed, a recoverable condition callers should
// log rather than propagate as fatal. Close itself is lenient: closing
// an already-closed store is reported as a no-op, not an error.
type Store interface {
	Atom(ctx context.Context, p *predicate.Predicate, args []atom.Constant) (atom.GroundAtom, error)
	AllAtoms(ctx context.Context, p *predicate.Predicate) ([]atom.GroundAtom, error)
	Commit(ctx context.Context, a atom.GroundAtom) error
	Close() error
}
