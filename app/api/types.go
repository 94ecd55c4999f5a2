package api

import (
	"shelfwatch/app/source"
	"shelfwatch/app/store"
)

// StatsStore is the slice of the row store the status endpoints need.
type StatsStore interface {
	ListSources() ([]source.Config, error)
	SnapshotCount(itemID string) (int, error)
	LogCount() (int, error)
}

var _ StatsStore = (*store.RowStore)(nil)

// Pinger verifies the storage backend is reachable.
type Pinger interface {
	Ping() error
}

type itemResultResponse struct {
	ItemID   string `json:"item_id"`
	Kind     string `json:"kind,omitempty"`
	Written  bool   `json:"written"`
	Skipped  bool   `json:"skipped"`
	Degraded bool   `json:"degraded"`
	Error    string `json:"error,omitempty"`
}

type reportResponse struct {
	RunID      string               `json:"run_id"`
	StartedAt  string               `json:"started_at"`
	FinishedAt string               `json:"finished_at"`
	Duration   string               `json:"duration"`
	Total      int                  `json:"total"`
	Processed  int                  `json:"processed"`
	Changed    int                  `json:"changed"`
	Skipped    int                  `json:"skipped"`
	Degraded   int                  `json:"degraded"`
	Partial    bool                 `json:"partial"`

	SnapshotsWritten        int `json:"snapshots_written"`
	NotificationsSent       int `json:"notifications_sent"`
	NotificationsSuppressed int `json:"notifications_suppressed"`
	NotificationsFailed     int `json:"notifications_failed"`

	Items []itemResultResponse `json:"items"`
}
