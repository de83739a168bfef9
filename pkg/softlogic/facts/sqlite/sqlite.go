// Package sqlite is a SQLite-backed facts.Store. Each predicate maps to
// its own table whose columns are generated from the predicate's
// argument types, plus a truth value and an observed/open partition
// flag. Committed random-variable values are upserted in place.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/cognicore/softlogic/pkg/softlogic/atom"
	"github.com/cognicore/softlogic/pkg/softlogic/facts"
	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
)

// Store implements facts.Store on a SQLite database. Atom identity is
// maintained through an in-memory cache loaded at open time; the
// database is only touched again on Commit.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	open   map[*predicate.Predicate]bool
	atoms  map[string]atom.GroundAtom
	byPred map[*predicate.Predicate][]atom.GroundAtom
	closed bool
}

var _ facts.Store = (*Store)(nil)

// Open opens (creating if necessary) the database at path, ensures a
// table per predicate and loads every stored atom. Atoms of the listed
// open predicates become random variables seeded with their stored
// truth value; all other rows load as observed atoms.
func Open(ctx context.Context, path string, preds []*predicate.Predicate, open ...*predicate.Predicate) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL for concurrent readers during long inference runs.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := EnsureSchema(ctx, db, preds); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:     db,
		open:   make(map[*predicate.Predicate]bool, len(open)),
		atoms:  make(map[string]atom.GroundAtom),
		byPred: make(map[*predicate.Predicate][]atom.GroundAtom),
	}
	for _, p := range open {
		s.open[p] = true
	}

	for _, p := range preds {
		if err := s.loadPredicate(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("load %s: %w", p.Name(), err)
		}
	}
	return s, nil
}

// EnsureSchema creates the per-predicate tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB, preds []*predicate.Predicate) error {
	for _, p := range preds {
		if _, err := db.ExecContext(ctx, createTableSQL(p)); err != nil {
			return fmt.Errorf("create table for %s: %w", p.Name(), err)
		}
	}
	return nil
}

// tableName maps a predicate to its table.
func tableName(p *predicate.Predicate) string {
	return "atoms_" + strings.ToLower(p.Name())
}

// typeName maps a predicate argument type to a SQLite column type.
func typeName(t predicate.ArgType) string {
	switch t {
	case predicate.TypeInteger:
		return "INTEGER"
	case predicate.TypeDouble:
		return "REAL"
	default:
		return "TEXT"
	}
}

// columnNames returns the argument column names, preferring declared
// argument names over positional ones.
func columnNames(p *predicate.Predicate) []string {
	cols := make([]string, p.Arity())
	for i := range cols {
		if name := p.ArgName(i); name != "" {
			cols[i] = strings.ToLower(name)
		} else {
			cols[i] = fmt.Sprintf("arg%d", i)
		}
	}
	return cols
}

func createTableSQL(p *predicate.Predicate) string {
	cols := columnNames(p)
	defs := make([]string, 0, p.Arity()+2)
	for i, col := range cols {
		defs = append(defs, fmt.Sprintf("%s %s NOT NULL", col, typeName(p.ArgType(i))))
	}
	defs = append(defs, "truth REAL NOT NULL", "observed INTEGER NOT NULL")
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY(%s))",
		tableName(p), strings.Join(defs, ", "), strings.Join(cols, ", "))
	return finalizeCreateTable(stmt)
}

// finalizeCreateTable applies dialect-level finishing touches to a
// generated CREATE TABLE statement.
func finalizeCreateTable(stmt string) string {
	return stmt + " WITHOUT ROWID"
}

func upsertSQL(p *predicate.Predicate) string {
	cols := columnNames(p)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+2), ", ")
	return fmt.Sprintf(`INSERT INTO %s (%s, truth, observed) VALUES (%s)
ON CONFLICT(%s) DO UPDATE SET truth=excluded.truth, observed=excluded.observed`,
		tableName(p), strings.Join(cols, ", "), placeholders, strings.Join(cols, ", "))
}

func argValues(p *predicate.Predicate, args []atom.Constant) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		switch p.ArgType(i) {
		case predicate.TypeInteger:
			n, err := strconv.ParseInt(a.Value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", internalerr.ErrTypeMismatch, a.Value)
			}
			out[i] = n
		case predicate.TypeDouble:
			f, err := strconv.ParseFloat(a.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", internalerr.ErrTypeMismatch, a.Value)
			}
			out[i] = f
		default:
			out[i] = a.Value
		}
	}
	return out, nil
}

func scannedConstant(t predicate.ArgType, v any) atom.Constant {
	switch val := v.(type) {
	case int64:
		return atom.Constant{Type: t, Value: strconv.FormatInt(val, 10)}
	case float64:
		return atom.Constant{Type: t, Value: strconv.FormatFloat(val, 'g', -1, 64)}
	case []byte:
		return atom.Constant{Type: t, Value: string(val)}
	default:
		return atom.Constant{Type: t, Value: fmt.Sprint(val)}
	}
}

func (s *Store) loadPredicate(ctx context.Context, p *predicate.Predicate) error {
	cols := columnNames(p)
	query := fmt.Sprintf("SELECT %s, truth, observed FROM %s ORDER BY %s",
		strings.Join(cols, ", "), tableName(p), strings.Join(cols, ", "))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		raw := make([]any, p.Arity())
		ptrs := make([]any, 0, p.Arity()+2)
		for i := range raw {
			ptrs = append(ptrs, &raw[i])
		}
		var truth float64
		var observed int64
		ptrs = append(ptrs, &truth, &observed)
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}

		args := make([]atom.Constant, p.Arity())
		for i := range raw {
			args[i] = scannedConstant(p.ArgType(i), raw[i])
		}

		var a atom.GroundAtom
		if observed == 1 || !s.open[p] {
			obs, err := atom.NewObserved(p, args, truth)
			if err != nil {
				return err
			}
			a = obs
		} else {
			rv, err := atom.NewRandomVariable(p, args)
			if err != nil {
				return err
			}
			if err := rv.SetValue(truth); err != nil {
				return err
			}
			a = rv
		}
		s.atoms[atom.Key(p, args)] = a
		s.byPred[p] = append(s.byPred[p], a)
	}
	return rows.Err()
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

// AllAtoms implements facts.Store.
func (s *Store) AllAtoms(ctx context.Context, p *predicate.Predicate) ([]atom.GroundAtom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("all atoms of %s: %w", p.Name(), internalerr.ErrAlreadyClosed)
	}
	return append([]atom.GroundAtom(nil), s.byPred[p]...), nil
}

// Observe inserts an observed fact, both in the database and the cache.
func (s *Store) Observe(ctx context.Context, p *predicate.Predicate, args []atom.Constant, value float64) error {
	obs, err := atom.NewObserved(p, args, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("observe %s: %w", obs.String(), internalerr.ErrAlreadyClosed)
	}
	if err := s.upsert(ctx, p, args, value, 1); err != nil {
		return err
	}
	key := atom.Key(p, args)
	if _, ok := s.atoms[key]; !ok {
		s.atoms[key] = obs
		s.byPred[p] = append(s.byPred[p], obs)
	}
	return nil
}

// Commit implements facts.Store, upserting the atom's current value.
func (s *Store) Commit(ctx context.Context, a atom.GroundAtom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("commit %s: %w", a.String(), internalerr.ErrAlreadyClosed)
	}
	observed := int64(1)
	if _, ok := a.(*atom.RandomVariable); ok {
		observed = 0
	}
	return s.upsert(ctx, a.Predicate(), a.Arguments(), a.Value(), observed)
}

func (s *Store) upsert(ctx context.Context, p *predicate.Predicate, args []atom.Constant, truth float64, observed int64) error {
	vals, err := argValues(p, args)
	if err != nil {
		return err
	}
	vals = append(vals, truth, observed)
	_, err = s.db.ExecContext(ctx, upsertSQL(p), vals...)
	return err
}

// Close implements facts.Store. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
