package run

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelfwatch/app/adapter"
	"shelfwatch/app/digest"
	"shelfwatch/app/notify"
	"shelfwatch/app/product"
	"shelfwatch/app/source"
	"shelfwatch/app/store"
)

// Options carries the knobs a Runner needs beyond its collaborators.
type Options struct {
	WorkerCount int
	RunTimeout  time.Duration
	Clock       func() time.Time
}

// Runner executes the per-item pipeline over a set of sources: resolve
// the adapter, fetch, parse, compare against the last persisted
// snapshot, persist, notify and feed the digest. Failures are item
// scoped; one broken source never stops the others.
type Runner struct {
	registry       *adapter.Registry
	detector       *product.Detector
	store          store.StateStore
	locks          *store.ItemLocks
	dispatcher     *notify.Dispatcher
	channels       []notify.Channel
	digestChannels []notify.Channel
	accumulator    *digest.Accumulator
	digestSchedule *digest.Scheduler

	workerCount int
	runTimeout  time.Duration
	clock       func() time.Time

	mu         sync.Mutex
	lastReport *Report
}

func NewRunner(registry *adapter.Registry, detector *product.Detector, stateStore store.StateStore,
	dispatcher *notify.Dispatcher, channels []notify.Channel, digestChannels []notify.Channel,
	accumulator *digest.Accumulator, digestSchedule *digest.Scheduler, opts Options) *Runner {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Runner{
		registry:       registry,
		detector:       detector,
		store:          stateStore,
		locks:          store.NewItemLocks(),
		dispatcher:     dispatcher,
		channels:       channels,
		digestChannels: digestChannels,
		accumulator:    accumulator,
		digestSchedule: digestSchedule,
		workerCount:    opts.WorkerCount,
		runTimeout:     opts.RunTimeout,
		clock:          opts.Clock,
	}
}

// RunOnce processes every source once using the worker pool. The run
// is bounded by the configured wall-clock timeout: items finished
// before the deadline are reported, the rest leave the report marked
// partial.
func (r *Runner) RunOnce(ctx context.Context, sources []source.Config) *Report {
	report := &Report{RunID: uuid.NewString(), StartedAt: r.clock(), Total: len(sources)}
	if len(sources) == 0 {
		report.FinishedAt = r.clock()
		r.mu.Lock()
		r.lastReport = report
		r.mu.Unlock()
		return report
	}

	runCtx := ctx
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	jobs := make(chan source.Config)
	results := make(chan ItemResult)

	var wg sync.WaitGroup
	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				results <- r.processItem(runCtx, src)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, src := range sources {
			select {
			case <-runCtx.Done():
				return
			default:
			}
			select {
			case jobs <- src:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		report.add(res)
	}

	report.FinishedAt = r.clock()
	report.Partial = report.Processed < report.Total

	r.mu.Lock()
	r.lastReport = report
	r.mu.Unlock()

	slog.Info("Run completed",
		"run_id", report.RunID,
		"total", report.Total,
		"processed", report.Processed,
		"changed", report.Changed,
		"skipped", report.Skipped,
		"degraded", report.Degraded,
		"partial", report.Partial,
		"duration", report.Duration().String())

	return report
}

func (r *Runner) processItem(ctx context.Context, src source.Config) ItemResult {
	unlock := r.locks.Lock(src.ItemID)
	defer unlock()

	res := ItemResult{ItemID: src.ItemID}

	a, err := r.registry.Resolve(src)
	if err != nil {
		res.Skipped = true
		res.Err = err
		r.logItem("error", src.ItemID, fmt.Sprintf("adapter resolution failed: %s", err))
		return res
	}

	raw, err := a.Fetch(ctx, src)
	if err != nil {
		res.Kind = product.FetchFailed
		res.Skipped = true
		res.Err = err
		slog.Warn("Fetch failed, item skipped", "item", src.ItemID, "url", src.URL, "error", err)
		r.logItem("error", src.ItemID, fmt.Sprintf("fetch failed: %s", err))
		r.accumulator.Add(product.Decision{
			Kind: product.FetchFailed, ItemID: src.ItemID, Reason: err.Error(), At: r.clock(),
		})
		return res
	}

	snap, err := a.Parse(raw)
	if err != nil {
		res.Kind = product.ParseFailed
		res.Skipped = true
		res.Err = err
		slog.Warn("Parse failed, item skipped", "item", src.ItemID, "url", src.URL, "error", err)
		r.logItem("error", src.ItemID, fmt.Sprintf("parse failed: %s", err))
		r.accumulator.Add(product.Decision{
			Kind: product.ParseFailed, ItemID: src.ItemID, Reason: err.Error(), At: r.clock(),
		})
		return res
	}

	prev, err := r.store.ReadLast(src.ItemID)
	if err != nil {
		res.Skipped = true
		res.Err = err
		slog.Error("Failed to read last snapshot, item skipped", "item", src.ItemID, "error", err)
		r.logItem("error", src.ItemID, fmt.Sprintf("read failed: %s", err))
		return res
	}

	decision := r.detector.Compare(prev, *snap)
	res.Kind = decision.Kind

	// A currency flip is a data-quality anomaly, not a new baseline:
	// persisting it would make the next fetch compare anomaly against
	// anomaly and report no change.
	if decision.Kind == product.ParseFailed {
		res.Skipped = true
		slog.Warn("Currency anomaly, item skipped", "item", src.ItemID, "reason", decision.Reason)
		r.logItem("error", src.ItemID, decision.Summary())
		r.accumulator.Add(decision)
		return res
	}

	// A decision reached before the run deadline still commits, even
	// when the deadline expires mid-write.
	written, err := r.store.AppendSnapshot(context.WithoutCancel(ctx), *snap, decision.IsChange())
	if err != nil {
		res.Degraded = true
		res.Err = err
		slog.Error("Snapshot write failed, continuing degraded", "item", src.ItemID, "error", err)
	}
	res.Written = written

	if decision.IsChange() {
		res.Dispatch = r.dispatcher.Dispatch(ctx, decision, r.channels)
	}
	r.accumulator.Add(decision)

	r.logItem("info", src.ItemID, decision.Summary())

	slog.Debug("Item processed",
		"item", src.ItemID,
		"kind", string(decision.Kind),
		"written", written,
		"sent", res.Dispatch.Sent,
		"suppressed", res.Dispatch.Suppressed)

	return res
}

// RunDigest flushes the digest window when the daily schedule says one
// is due and returns the flushed summary, or nil when no flush was
// due. An empty window is flushed silently so the next window still
// starts at the right boundary.
func (r *Runner) RunDigest(ctx context.Context) *digest.Summary {
	if r.digestSchedule == nil || !r.digestSchedule.Due() {
		return nil
	}

	summary := r.accumulator.Drain(r.clock())
	if summary.TotalEvents() == 0 {
		slog.Info("Digest window empty, nothing to send")
		return &summary
	}

	msg := notify.FormatDigest(summary)
	result := r.dispatcher.DispatchDigest(ctx, msg, r.digestChannels)

	slog.Info("Digest dispatched",
		"events", summary.TotalEvents(),
		"window_start", summary.WindowStart.Format(time.RFC3339),
		"window_end", summary.WindowEnd.Format(time.RFC3339),
		"sent", result.Sent,
		"failed", result.Failed)

	return &summary
}

// LastReport returns the report of the most recent run, or nil before
// the first run completes.
func (r *Runner) LastReport() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastReport
}

func (r *Runner) logItem(level, itemID, message string) {
	entry := store.LogEntry{
		Timestamp: r.clock(),
		Level:     level,
		ItemID:    itemID,
		Message:   message,
	}
	if err := r.store.AppendLog(entry); err != nil {
		slog.Warn("Failed to append log row", "item", itemID, "error", err)
	}
}
