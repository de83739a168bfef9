package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrDuplicatePredicate = errors.New("duplicate predicate")
	ErrUnknownPredicate   = errors.New("unknown predicate")
	ErrArityMismatch      = errors.New("arity mismatch")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrStoreClosed        = errors.New("store closed")
	ErrSoftObservedValue  = errors.New("unsupported soft observed value")
	ErrAlreadyClosed      = errors.New("already closed")
	ErrInvalidValue       = errors.New("invalid truth value")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
