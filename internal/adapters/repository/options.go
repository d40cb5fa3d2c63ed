// Package repository provides the document-store backends.
package repository

import (
	"time"

	"github.com/okian/weaklink/pkg/logger"
)

const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = 5 * time.Millisecond
	defaultRedisPrefix = "weaklink:"
)

// Option configures a store backend.
type Option func(*options)

type options struct {
	maxAttempts  int
	retryDelay   time.Duration
	keyPrefix    string
	log          logger.Logger
	beforeCommit func(attempt int)
}

func newOptions(backend string, opts []Option) options {
	o := options{
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		keyPrefix:   defaultRedisPrefix,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.Named("store").With(logger.String("backend", backend))
	return o
}

// WithMaxAttempts bounds how often a conflicting transaction is retried.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay between attempts. It grows linearly.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithBeforeCommit installs a hook the memory store calls after the callback
// returns and before the commit is validated.
func WithBeforeCommit(fn func(attempt int)) Option {
	return func(o *options) {
		o.beforeCommit = fn
	}
}
