package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shelfwatch/app/product"
)

// Clock abstracts time for cool-down accounting; tests inject a fake.
type Clock func() time.Time

// DispatchResult summarizes one dispatch: how many channels received
// the message, whether the event was suppressed by the cool-down, and
// how many channels failed after exhausting retries.
type DispatchResult struct {
	Sent       int
	Suppressed bool
	Failed     int
}

type dedupeKey struct {
	ItemID string
	Kind   product.ChangeKind
}

// Dispatcher routes change decisions to notification channels. The same
// (item, change kind) pair fires at most once per cool-down window, so
// flapping availability cannot produce an alert storm. Transient send
// failures are retried with exponential backoff; exhaustion degrades to
// a logged failure and never aborts processing of other items.
type Dispatcher struct {
	cooldown time.Duration
	attempts int
	backoff  time.Duration
	clock    Clock

	mu       sync.Mutex
	lastSent map[dedupeKey]time.Time
}

func NewDispatcher(cooldown time.Duration, attempts int, backoff time.Duration, clock Clock) *Dispatcher {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		cooldown: cooldown,
		attempts: attempts,
		backoff:  backoff,
		clock:    clock,
		lastSent: make(map[dedupeKey]time.Time),
	}
}

// Dispatch delivers a change decision to every configured channel.
// NoChange never dispatches. A successful delivery on any channel
// updates the dedupe record once: one record per logical event, not
// per channel.
func (d *Dispatcher) Dispatch(ctx context.Context, decision product.Decision, channels []Channel) DispatchResult {
	if decision.Kind == product.NoChange || len(channels) == 0 {
		return DispatchResult{}
	}

	key := dedupeKey{ItemID: decision.ItemID, Kind: decision.Kind}
	now := d.clock()

	d.mu.Lock()
	if last, ok := d.lastSent[key]; ok && now.Sub(last) < d.cooldown {
		d.mu.Unlock()
		slog.Debug("Notification suppressed by cool-down", "item", decision.ItemID, "kind", string(decision.Kind))
		return DispatchResult{Suppressed: true}
	}
	d.mu.Unlock()

	msg := FormatDecision(decision)
	result := d.send(ctx, msg, channels)

	if result.Sent > 0 {
		d.mu.Lock()
		d.lastSent[key] = now
		d.mu.Unlock()
	}

	return result
}

// DispatchDigest delivers a pre-rendered digest message to the digest
// channel set. Digests are already rate-limited by their schedule, so
// no cool-down applies.
func (d *Dispatcher) DispatchDigest(ctx context.Context, msg Message, channels []Channel) DispatchResult {
	if len(channels) == 0 {
		return DispatchResult{}
	}
	return d.send(ctx, msg, channels)
}

func (d *Dispatcher) send(ctx context.Context, msg Message, channels []Channel) DispatchResult {
	var result DispatchResult
	for _, ch := range channels {
		if err := d.sendWithRetry(ctx, ch, msg); err != nil {
			slog.Error("Notification failed after retries", "channel", ch.Name(), "error", err)
			result.Failed++
			continue
		}
		result.Sent++
	}
	return result
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, ch Channel, msg Message) error {
	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		err := ch.Send(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == d.attempts {
			break
		}

		sleep := d.backoff * (1 << uint(attempt-1))
		slog.Warn("Notification send failed, retrying", "channel", ch.Name(), "attempt", attempt, "retry_in", sleep.String(), "error", lastErr)

		select {
		case <-ctx.Done():
			return &NotifyError{Channel: ch.Name(), Err: ctx.Err()}
		case <-time.After(sleep):
		}
	}
	return lastErr
}
