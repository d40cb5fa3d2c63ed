package worker

import (
	"time"

	"github.com/okian/weaklink/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRedelivery re-enqueues failed notifications up to maxRedeliveries
// times, waiting attempt*backoff before each.
func WithRedelivery(r Requeuer, maxRedeliveries int, backoff time.Duration) Option {
	return func(w *InMemoryWorker) {
		w.requeue = r
		if maxRedeliveries >= 0 {
			w.maxRedeliveries = maxRedeliveries
		}
		if backoff >= 0 {
			w.backoff = backoff
		}
	}
}

// WithForgetter releases abandoned delivery ids.
func WithForgetter(f Forgetter) Option {
	return func(w *InMemoryWorker) {
		w.forget = f
	}
}
