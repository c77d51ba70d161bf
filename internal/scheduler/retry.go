package scheduler

import (
	"context"
	"errors"
	"time"
)

// withRetry runs fn inside store transactions until it succeeds, fails
// with a non-retryable error, or the attempt budget is exhausted.
// Only ErrTxConflict (deadlock / lock wait timeout, mapped by the
// repository) triggers a retry; the backoff doubles per attempt so two
// operators hammering the same deal back off each other instead of
// livelocking.  When the budget runs out the caller gets
// ErrConcurrencyConflict and may retry the whole request.
func (s *Service) withRetry(ctx context.Context, fn func(tx Tx) error) error {
	backoff := s.retryBackoff
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.store.WithinTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrTxConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return ErrConcurrencyConflict
}
