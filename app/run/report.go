package run

import (
	"time"

	"shelfwatch/app/notify"
	"shelfwatch/app/product"
)

// ItemResult is the outcome of processing a single tracked item.
// Skipped means the item produced no decision this run (fetch, parse or
// configuration failure). Degraded means a decision was made but the
// snapshot write failed after retries.
type ItemResult struct {
	ItemID   string
	Kind     product.ChangeKind
	Written  bool
	Dispatch notify.DispatchResult
	Skipped  bool
	Degraded bool
	Err      error
}

// Report summarizes one run over a set of sources. Partial is set
// when the run deadline expired before every source was processed.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Total     int
	Processed int
	Changed   int
	Skipped   int
	Degraded  int
	Partial   bool

	SnapshotsWritten        int
	NotificationsSent       int
	NotificationsSuppressed int
	NotificationsFailed     int

	Results []ItemResult
}

func (r *Report) add(res ItemResult) {
	r.Results = append(r.Results, res)
	r.Processed++

	if res.Written {
		r.SnapshotsWritten++
	}
	r.NotificationsSent += res.Dispatch.Sent
	r.NotificationsFailed += res.Dispatch.Failed
	if res.Dispatch.Suppressed {
		r.NotificationsSuppressed++
	}

	if res.Skipped {
		r.Skipped++
		return
	}
	if res.Degraded {
		r.Degraded++
	}
	switch res.Kind {
	case product.NewItem, product.PriceChanged, product.AvailabilityChanged:
		r.Changed++
	}
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
