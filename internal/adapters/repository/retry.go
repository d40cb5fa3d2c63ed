package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/weaklink/internal/domain/store"
	"github.com/okian/weaklink/pkg/logger"
	"github.com/okian/weaklink/pkg/metrics"
)

// runAttempts re-runs attempt while it fails with store.ErrConflict.
func runAttempts(ctx context.Context, backend string, o options, attempt func(ctx context.Context, n int) error) error {
	var last error
	for n := 1; n <= o.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		metrics.RecordTxAttempt(backend)

		err := attempt(ctx, n)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		last = err
		metrics.RecordTxConflict(backend)
		o.log.Debug(ctx, "transaction conflict, retrying", logger.Int("attempt", n), logger.Error(err))

		if n < o.maxAttempts && o.retryDelay > 0 {
			t := time.NewTimer(time.Duration(n) * o.retryDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	metrics.RecordTxFailure(backend)
	return fmt.Errorf("%w: %s after %d attempts: %w", store.ErrTooManyAttempts, backend, o.maxAttempts, last)
}
