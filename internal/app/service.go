// Package service wires the rating coordinator to the delivery pipeline and
// exposes the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/weaklink/internal/adapters/mq/queue"
	"github.com/okian/weaklink/internal/adapters/mq/worker"
	"github.com/okian/weaklink/internal/adapters/repository"
	"github.com/okian/weaklink/internal/domain/dedupe"
	"github.com/okian/weaklink/internal/domain/model"
	"github.com/okian/weaklink/internal/domain/rating"
	"github.com/okian/weaklink/internal/domain/store"
	"github.com/okian/weaklink/pkg/logger"
	"github.com/okian/weaklink/pkg/metrics"
)

// IngestResult reports what happened to a submitted notification.
type IngestResult string

// Ingest results.
const (
	IngestAccepted  IngestResult = "accepted"
	IngestDuplicate IngestResult = "duplicate"
)

// Service owns the store, coordinator, deduper, queue and workers.
type Service struct {
	mu sync.RWMutex

	store       store.Store
	coordinator *Coordinator
	deduper     dedupe.Deduper
	queue       *queue.InMemoryQueue
	workers     *worker.Pool

	workerCount       int
	queueSize         int
	dedupeSize        int
	maxRedeliveries   int
	redeliveryBackoff time.Duration
	coordinatorOpts   []CoordinatorOption

	started bool
	stopped bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the document store. Defaults to an in-memory store.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued notifications.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many delivery ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRedelivery configures retries of notifications that hit store errors.
func WithRedelivery(maxRedeliveries int, backoff time.Duration) Option {
	return func(s *Service) {
		if maxRedeliveries >= 0 {
			s.maxRedeliveries = maxRedeliveries
		}
		if backoff >= 0 {
			s.redeliveryBackoff = backoff
		}
	}
}

// WithCoordinatorOptions passes options to the coordinator.
func WithCoordinatorOptions(opts ...CoordinatorOption) Option {
	return func(s *Service) {
		s.coordinatorOpts = append(s.coordinatorOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Call Start before submitting notifications.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         10_000,
		dedupeSize:        100_000,
		maxRedeliveries:   5,
		redeliveryBackoff: 200 * time.Millisecond,
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithLogger(s.logger))
	}
	copts := append([]CoordinatorOption{WithCoordinatorLogger(s.logger)}, s.coordinatorOpts...)
	s.coordinator = NewCoordinator(s.store, copts...)
	return s
}

// Start creates the pipeline and starts the workers. It returns ErrStopped
// once Stop has been called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workers = worker.NewPool(s.workerCount, s.queue, s,
		worker.WithLogger(s.logger),
		worker.WithRedelivery(s.queue, s.maxRedeliveries, s.redeliveryBackoff),
		worker.WithForgetter(s.deduper),
	)
	s.workers.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the queue, stops the workers and closes the store. A stopped
// Service cannot be started again.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	if !s.started {
		return s.store.Close()
	}
	s.logger.Info(ctx, "stopping rating service")

	err := s.workers.Shutdown(ctx)
	s.started = false
	if cerr := s.store.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	s.logger.Info(ctx, "rating service stopped")
	return err
}

// ProcessMatchUpdate applies one match notification synchronously.
func (s *Service) ProcessMatchUpdate(ctx context.Context, matchID string, before, after model.Document) (model.Outcome, error) {
	return s.coordinator.Process(ctx, matchID, before, after)
}

// Submit deduplicates n by delivery id and queues it for the workers. An
// empty delivery id is replaced by a random one.
func (s *Service) Submit(ctx context.Context, n model.Notification) (IngestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return "", ErrStopped
	}
	if !s.started {
		return "", ErrNotStarted
	}

	if n.DeliveryID == "" {
		n.DeliveryID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, n.DeliveryID) {
		metrics.RecordIngestDuplicate()
		s.logger.Debug(ctx, "duplicate delivery", logger.String("deliveryID", n.DeliveryID))
		return IngestDuplicate, nil
	}
	if !s.queue.Enqueue(ctx, n) {
		s.deduper.Unrecord(ctx, n.DeliveryID)
		return "", ErrQueueFull
	}
	return IngestAccepted, nil
}

// Player returns the rating view of a player, with defaults for players
// that have never been rated.
func (s *Service) Player(ctx context.Context, playerID string) (model.PlayerView, error) {
	view := model.PlayerView{
		PlayerID:  playerID,
		EloRating: rating.DefaultRating,
		EloPeak:   rating.DefaultRating,
	}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, ok, err := tx.Get(ctx, store.Doc(model.CollectionUsers, playerID))
		if err != nil || !ok {
			return err
		}
		if r, ok := model.Float(doc[model.FieldEloRating]); ok {
			view.EloRating = r
			view.EloPeak = r
		}
		if p, ok := model.Float(doc[model.FieldEloPeak]); ok {
			view.EloPeak = p
		}
		if n, ok := model.Int(doc[model.FieldEloGamesPlayed]); ok {
			view.GamesPlayed = n
		}
		if n, ok := model.Int(doc[model.FieldCurrentStreak]); ok {
			view.CurrentStreak = n
		}
		if t, ok := model.Time(doc[model.FieldEloPeakDate]); ok {
			view.EloPeakDate = &t
		}
		if t, ok := model.Time(doc[model.FieldEloLastUpdated]); ok {
			view.LastUpdated = &t
		}
		return nil
	})
	if err != nil {
		return model.PlayerView{}, err
	}
	return view, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
		stats["seenDeliveries"] = s.deduper.Size()
	}
	return stats
}
