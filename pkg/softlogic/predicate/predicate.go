package predicate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
)

// ArgType is the declared type of a predicate argument position.
type ArgType int

const (
	TypeString ArgType = iota
	TypeInteger
	TypeDouble
)

// String returns the config-file spelling of the type.
func (t ArgType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "int"
	case TypeDouble:
		return "float"
	default:
		return fmt.Sprintf("ArgType(%d)", int(t))
	}
}

// ParseArgType parses the config-file spelling of an argument type.
func ParseArgType(s string) (ArgType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return TypeString, nil
	case "int", "integer":
		return TypeInteger, nil
	case "float", "double":
		return TypeDouble, nil
	default:
		return 0, fmt.Errorf("%w: unknown argument type %q", internalerr.ErrInvalidConfig, s)
	}
}

// Predicate is a relation schema: a case-normalized name plus an ordered
// list of argument types and optional argument names.
//
// Predicates are identity-unique: the Registry is the only constructor
// path and never hands out two instances for the same name, so equality
// is pointer equality.
type Predicate struct {
	name     string
	types    []ArgType
	argNames []string
}

// Name returns the case-normalized predicate name.
func (p *Predicate) Name() string { return p.name }

// Arity returns the number of arguments the predicate relates.
func (p *Predicate) Arity() int { return len(p.types) }

// ArgType returns the declared type of the given argument position.
func (p *Predicate) ArgType(pos int) ArgType { return p.types[pos] }

// ArgName returns the declared name of the given argument position, or
// "" if argument names were not registered.
func (p *Predicate) ArgName(pos int) string {
	if p.argNames == nil {
		return ""
	}
	return p.argNames[pos]
}

func (p *Predicate) String() string {
	parts := make([]string, len(p.types))
	for i := range p.types {
		if p.argNames != nil {
			parts[i] = p.argNames[i]
		} else {
			parts[i] = p.types[i].String()
		}
	}
	return p.name + "(" + strings.Join(parts, ", ") + ")"
}

func (p *Predicate) sameSignature(types []ArgType, argNames []string) bool {
	if len(types) != len(p.types) {
		return false
	}
	for i := range types {
		if types[i] != p.types[i] {
			return false
		}
	}
	if len(argNames) == 0 {
		return true
	}
	if p.argNames == nil {
		return false
	}
	for i := range argNames {
		if argNames[i] != p.argNames[i] {
			return false
		}
	}
	return true
}

// Registry owns every Predicate instance for one model. Registering the
// same name with the same signature returns the existing instance;
// registering it with a different signature fails.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Predicate
}

// NewRegistry creates an empty predicate registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Predicate)}
}

// Register creates (or returns) the Predicate for name. Optional argNames
// must match the arity when given.
func (r *Registry) Register(name string, types []ArgType, argNames ...string) (*Predicate, error) {
	norm := Normalize(name)
	if norm == "" {
		return nil, fmt.Errorf("%w: empty predicate name", internalerr.ErrInvalidConfig)
	}
	if len(argNames) > 0 && len(argNames) != len(types) {
		return nil, fmt.Errorf("%w: predicate %s declares %d argument names for %d arguments",
			internalerr.ErrArityMismatch, norm, len(argNames), len(types))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[norm]; ok {
		if existing.sameSignature(types, argNames) {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %s already registered with a different signature",
			internalerr.ErrDuplicatePredicate, norm)
	}

	p := &Predicate{name: norm, types: append([]ArgType(nil), types...)}
	if len(argNames) > 0 {
		p.argNames = append([]string(nil), argNames...)
	}
	r.byName[norm] = p
	return p, nil
}

// Lookup returns the Predicate registered under name.
func (r *Registry) Lookup(name string) (*Predicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.byName[Normalize(name)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownPredicate, Normalize(name))
}

// All returns every registered predicate in name order.
func (r *Registry) All() []*Predicate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Predicate, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Reset drops every registration. Existing Predicate pointers stay valid
// but lose their identity guarantee; intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]*Predicate)
}

// Normalize returns the canonical (upper-case) form of a predicate name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
