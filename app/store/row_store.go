package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shelfwatch/app/product"
	"shelfwatch/app/source"
)

// RowStore implements StateStore on the local sqlite row store. Its
// tables mirror the spreadsheet tabs of the external record store
// (Inputs, Snapshots, Logs) one to one, so the same core logic drives
// either backing.
type RowStore struct {
	db                *DB
	writeOnChangeOnly bool
}

func NewRowStore(db *DB, writeOnChangeOnly bool) *RowStore {
	return &RowStore{db: db, writeOnChangeOnly: writeOnChangeOnly}
}

func (s *RowStore) ReadLast(itemID string) (*product.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT item_id, title, price, currency, availability, url, source, content_hash, fetched_at
		FROM snapshots
		WHERE item_id = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`, itemID)

	var snap product.Snapshot
	var price string
	var availability string
	err := row.Scan(&snap.ItemID, &snap.Title, &price, &snap.Currency,
		&availability, &snap.URL, &snap.Source, &snap.ContentHash, &snap.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "read_last", Err: err}
	}

	snap.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, &StoreError{Op: "read_last", Err: fmt.Errorf("corrupt price %q for %s: %w", price, itemID, err)}
	}
	snap.Availability = product.Availability(availability)
	snap.FetchedAt = snap.FetchedAt.UTC()

	return &snap, nil
}

func (s *RowStore) AppendSnapshot(ctx context.Context, snap product.Snapshot, changed bool) (bool, error) {
	if s.writeOnChangeOnly && !changed {
		return false, nil
	}

	// The unique idempotency key makes retried appends no-ops: an
	// ambiguous failure (store acknowledged, connection dropped) is
	// safe to re-issue.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, idempotency_key, item_id, title, price, currency,
		                       availability, url, source, content_hash, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, uuid.NewString(), snap.IdempotencyKey(), snap.ItemID, snap.Title,
		snap.Price.String(), snap.Currency, string(snap.Availability),
		snap.URL, snap.Source, snap.ContentHash, snap.FetchedAt.UTC())
	if err != nil {
		return false, &StoreError{Op: "append_snapshot", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, &StoreError{Op: "append_snapshot", Err: err}
	}
	return n > 0, nil
}

func (s *RowStore) AppendLog(entry LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO logs (id, timestamp, level, item_id, message)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), entry.Timestamp.UTC(), entry.Level, entry.ItemID, entry.Message)
	if err != nil {
		return &StoreError{Op: "append_log", Err: err}
	}
	return nil
}

func (s *RowStore) ListSources() ([]source.Config, error) {
	rows, err := s.db.Query(`
		SELECT item_id, url, adapter_id, proxy, user_agent, enabled
		FROM inputs
		ORDER BY item_id
	`)
	if err != nil {
		return nil, &StoreError{Op: "list_sources", Err: err}
	}
	defer rows.Close()

	var configs []source.Config
	for rows.Next() {
		var cfg source.Config
		if err := rows.Scan(&cfg.ItemID, &cfg.URL, &cfg.AdapterID, &cfg.Proxy, &cfg.UserAgent, &cfg.Enabled); err != nil {
			return nil, &StoreError{Op: "list_sources", Err: err}
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list_sources", Err: err}
	}

	return configs, nil
}

// UpsertSource registers or updates an Inputs row; used to seed the
// local store and by tests.
func (s *RowStore) UpsertSource(cfg source.Config) error {
	if err := source.Validate(&cfg); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO inputs (item_id, url, adapter_id, proxy, user_agent, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			url = excluded.url,
			adapter_id = excluded.adapter_id,
			proxy = excluded.proxy,
			user_agent = excluded.user_agent,
			enabled = excluded.enabled
	`, cfg.ItemID, cfg.URL, cfg.AdapterID, cfg.Proxy, cfg.UserAgent, cfg.Enabled)
	if err != nil {
		return &StoreError{Op: "upsert_source", Err: err}
	}
	return nil
}

// SnapshotCount reports the number of persisted snapshot rows,
// optionally scoped to one item. Consumed by the stats endpoint.
func (s *RowStore) SnapshotCount(itemID string) (int, error) {
	var count int
	var err error
	if itemID == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&count)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM snapshots WHERE item_id = ?`, itemID).Scan(&count)
	}
	if err != nil {
		return 0, &StoreError{Op: "snapshot_count", Err: err}
	}
	return count, nil
}

// LogCount reports the number of audit trail rows.
func (s *RowStore) LogCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM logs`).Scan(&count); err != nil {
		return 0, &StoreError{Op: "log_count", Err: err}
	}
	return count, nil
}

func (s *RowStore) Close() error {
	return s.db.Close()
}
