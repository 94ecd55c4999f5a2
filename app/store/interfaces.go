package store

import (
	"context"
	"fmt"
	"time"

	"shelfwatch/app/product"
	"shelfwatch/app/source"
)

// LogEntry is one row of the append-only audit trail.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	ItemID    string
	Message   string
}

// StateStore is the row-oriented record store consumed by the core. The
// backing store (a spreadsheet-like service, or the local sqlite store)
// offers no transactions, so every write must be idempotent under
// retry: a snapshot append carries a deterministic idempotency key and
// re-submitting an identical append is a no-op.
type StateStore interface {
	// ReadLast returns the snapshot with the greatest fetched_at for
	// the item, or nil when the item has never been recorded.
	ReadLast(itemID string) (*product.Snapshot, error)

	// AppendSnapshot persists a snapshot row and reports whether a row
	// was written. When the store was opened with write-on-change-only,
	// unchanged snapshots are skipped; duplicate idempotency keys are
	// always skipped.
	AppendSnapshot(ctx context.Context, snap product.Snapshot, changed bool) (bool, error)

	// AppendLog appends an audit trail row.
	AppendLog(entry LogEntry) error

	// ListSources reads the tracked-item configurations from the
	// store's Inputs rows.
	ListSources() ([]source.Config, error)

	Close() error
}

// StoreError signals a write conflict, quota exhaustion or an
// unreachable backing store. Losing a snapshot write breaks the
// change-detection baseline, so exhausted retries surface to the run
// instead of being dropped.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
