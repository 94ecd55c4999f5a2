package store

import (
	"context"
	"log/slog"
	"time"

	"shelfwatch/app/product"
	"shelfwatch/app/source"
)

// RetryingStore decorates a StateStore with bounded, backed-off
// retries at the write boundary. Reads pass through. Exhausted retries
// surface the last StoreError to the caller; the write is never
// silently dropped. The inner store's idempotency keys make the
// re-issued appends safe.
type RetryingStore struct {
	inner    StateStore
	attempts int
	backoff  time.Duration
}

func WithRetry(inner StateStore, attempts int, backoff time.Duration) *RetryingStore {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &RetryingStore{inner: inner, attempts: attempts, backoff: backoff}
}

func (r *RetryingStore) ReadLast(itemID string) (*product.Snapshot, error) {
	return r.inner.ReadLast(itemID)
}

func (r *RetryingStore) AppendSnapshot(ctx context.Context, snap product.Snapshot, changed bool) (bool, error) {
	var written bool
	err := r.retry(ctx, "append_snapshot", snap.ItemID, func() error {
		var err error
		written, err = r.inner.AppendSnapshot(ctx, snap, changed)
		return err
	})
	return written, err
}

func (r *RetryingStore) AppendLog(entry LogEntry) error {
	return r.retry(context.Background(), "append_log", entry.ItemID, func() error {
		return r.inner.AppendLog(entry)
	})
}

func (r *RetryingStore) ListSources() ([]source.Config, error) {
	return r.inner.ListSources()
}

func (r *RetryingStore) Close() error {
	return r.inner.Close()
}

func (r *RetryingStore) retry(ctx context.Context, op, itemID string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == r.attempts {
			break
		}

		sleep := r.backoff * (1 << uint(attempt-1))
		slog.Warn("Store write failed, retrying", "op", op, "item", itemID, "attempt", attempt, "retry_in", sleep.String(), "error", lastErr)

		select {
		case <-ctx.Done():
			return &StoreError{Op: op, Err: ctx.Err()}
		case <-time.After(sleep):
		}
	}
	return lastErr
}
