package store

import "errors"

// Sentinel errors shared by every backend.
var (
	// ErrConflict reports a commit that lost an optimistic race. Backends
	// retry it internally; callers only see it wrapped in ErrTooManyAttempts.
	ErrConflict        = errors.New("transaction conflict")
	ErrTooManyAttempts = errors.New("transaction retry limit reached")
	ErrReadAfterWrite  = errors.New("reads must precede writes in a transaction")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrInvalidPath     = errors.New("invalid document path")
	ErrClosed          = errors.New("store closed")
)
