// Package worker runs match notifications through the rating coordinator.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/weaklink/internal/domain/model"
	"github.com/okian/weaklink/pkg/logger"
	"github.com/okian/weaklink/pkg/metrics"
)

const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Notification abstracts what workers read off the queue.
type Notification = model.Notification

// Processor applies a match notification.
type Processor interface {
	ProcessMatchUpdate(ctx context.Context, matchID string, before, after model.Document) (model.Outcome, error)
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Notification
}

// Requeuer puts a notification back for another attempt.
type Requeuer interface {
	Enqueue(ctx context.Context, n Notification) bool
}

// Forgetter releases a delivery id so the sender may deliver it again.
type Forgetter interface {
	Unrecord(ctx context.Context, id string)
}

// Worker processes notifications until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker processes notifications from a Queue.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string

	requeue         Requeuer
	forget          Forgetter
	maxRedeliveries int
	backoff         time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes notifications until the queue closes, ctx ends or Shutdown
// is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			w.processNotification(ctx, n)
		}
	}
}

// Shutdown stops the worker after its current notification.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processNotification(ctx context.Context, n Notification) { //nolint:gocritic // hugeParam: passed by value for channel semantics
	metrics.RecordQueueDequeue()
	log := w.logger.With(
		logger.String("matchID", n.MatchID),
		logger.String("deliveryID", n.DeliveryID),
		logger.Int("attempt", n.Attempt),
	)

	out, err := w.processor.ProcessMatchUpdate(ctx, n.MatchID, n.Before, n.After)
	if err != nil {
		w.redeliver(ctx, log, n, err)
		return
	}
	log.Debug(ctx, "notification processed",
		logger.String("status", string(out.Status)),
		logger.String("reason", string(out.Reason)),
	)
}

// redeliver re-enqueues n after a linear backoff, or abandons it once the
// redelivery budget is spent.
func (w *InMemoryWorker) redeliver(ctx context.Context, log logger.Logger, n Notification, cause error) { //nolint:gocritic // hugeParam
	if w.requeue == nil || n.Attempt >= w.maxRedeliveries {
		w.abandon(ctx, log, n, cause)
		return
	}

	next := n
	next.Attempt++
	delay := time.Duration(next.Attempt) * w.backoff
	log.Warn(ctx, "transient failure, redelivering",
		logger.Duration("delay", delay),
		logger.Error(cause),
	)
	metrics.RecordRedelivery()

	time.AfterFunc(delay, func() {
		if !w.requeue.Enqueue(context.WithoutCancel(ctx), next) {
			w.abandon(ctx, log, next, fmt.Errorf("requeue rejected: %w", cause))
		}
	})
}

func (w *InMemoryWorker) abandon(ctx context.Context, log logger.Logger, n Notification, cause error) { //nolint:gocritic // hugeParam
	metrics.RecordDeliveryFailed()
	log.Error(ctx, "giving up on notification", logger.Error(cause))
	if w.forget != nil && n.DeliveryID != "" {
		w.forget.Unrecord(context.WithoutCancel(ctx), n.DeliveryID)
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing queue and processor. opts are
// applied to every worker.
func NewPool(workerCount int, queue Queue, processor Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Nop(),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, processor, wopts...)
	}
	probe := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(probe)
	}
	p.logger = probe.logger.Named("worker-pool")
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Stop signals every worker and waits briefly for each.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateWorkerCount(0)
}

// Shutdown closes the queue and lets workers drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("workerID", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		p.Stop()
		return fmt.Errorf("worker pool: %w", shutdownCtx.Err())
	}
	return nil
}
