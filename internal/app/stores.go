package service

import (
	"context"
	"fmt"

	"github.com/okian/weaklink/internal/adapters/repository"
	"github.com/okian/weaklink/internal/config"
	"github.com/okian/weaklink/internal/domain/store"
	"github.com/okian/weaklink/pkg/logger"
)

// OpenStore builds the document store selected by cfg.Store.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	opts := []repository.Option{
		repository.WithMaxAttempts(cfg.TxMaxAttempts),
		repository.WithLogger(log),
	}
	switch cfg.Store {
	case config.StoreMemory:
		return repository.NewMemoryStore(opts...), nil
	case config.StorePostgres:
		return repository.NewPostgresStore(ctx, cfg.DatabaseURL, opts...)
	case config.StoreRedis:
		return repository.NewRedisStore(ctx, cfg.RedisURL, opts...)
	case config.StoreFirestore:
		return repository.NewFirestoreStore(ctx, cfg.FirestoreProject, opts...)
	}
	return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
}
