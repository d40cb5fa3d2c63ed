package service

import "errors"

// Validation errors. Process reports them as error/invalid_data outcomes.
var (
	ErrInvalidWinner       = errors.New("invalid overall winner")
	ErrDuplicatePlayer     = errors.New("duplicate player")
	ErrInvalidMatchData    = errors.New("invalid match data")
	ErrInvalidPlayerRecord = errors.New("invalid player record")
)

// Ingest errors.
var (
	ErrQueueFull  = errors.New("queue full")
	ErrNotStarted = errors.New("service not started")
	ErrStopped    = errors.New("service stopped")
)
