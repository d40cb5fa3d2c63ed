package repository

import "errors"

// Sentinel kinds for backend construction.
var (
	ErrMissingURL     = errors.New("connection url is required")
	ErrMissingProject = errors.New("firestore project is required")
)
