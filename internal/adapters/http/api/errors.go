package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrBackpressure     = errors.New("backpressure")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotReady         = errors.New("service not ready")

	errMissingAfter = errors.New("missing after")
)

// WrapKind tags err with kind, keeping both in the chain.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
