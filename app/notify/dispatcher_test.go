package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"shelfwatch/app/product"
)

type recordingChannel struct {
	name     string
	failures int
	calls    int
	messages []Message
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, msg Message) error {
	c.calls++
	if c.calls <= c.failures {
		return &NotifyError{Channel: c.name, Err: errors.New("send failed")}
	}
	c.messages = append(c.messages, msg)
	return nil
}

func testDecision(kind product.ChangeKind, itemID string) product.Decision {
	return product.Decision{
		Kind:    kind,
		ItemID:  itemID,
		Current: &product.Snapshot{ItemID: itemID, Title: "Test Item", URL: "https://shop.example/item"},
		Reason:  "test",
		At:      time.Now(),
	}
}

func TestDispatcherSendsToAllChannels(t *testing.T) {
	d := NewDispatcher(time.Hour, 1, time.Millisecond, nil)
	ch1 := &recordingChannel{name: "telegram"}
	ch2 := &recordingChannel{name: "email"}

	result := d.Dispatch(context.Background(), testDecision(product.NewItem, "item-1"), []Channel{ch1, ch2})

	if result.Sent != 2 {
		t.Errorf("Expected 2 sends, got: %d", result.Sent)
	}
	if len(ch1.messages) != 1 || len(ch2.messages) != 1 {
		t.Errorf("Expected each channel to receive one message, got: %d and %d", len(ch1.messages), len(ch2.messages))
	}
}

func TestDispatcherNoChangeNeverDispatches(t *testing.T) {
	d := NewDispatcher(time.Hour, 1, time.Millisecond, nil)
	ch := &recordingChannel{name: "telegram"}

	result := d.Dispatch(context.Background(), testDecision(product.NoChange, "item-1"), []Channel{ch})

	if result.Sent != 0 || result.Suppressed {
		t.Errorf("Expected no dispatch for NoChange, got: %+v", result)
	}
	if ch.calls != 0 {
		t.Errorf("Expected no channel calls, got: %d", ch.calls)
	}
}

func TestDispatcherCoolDownSuppressesDuplicate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	d := NewDispatcher(time.Hour, 1, time.Millisecond, clock)
	ch := &recordingChannel{name: "telegram"}

	first := d.Dispatch(context.Background(), testDecision(product.PriceChanged, "item-1"), []Channel{ch})
	if first.Sent != 1 {
		t.Fatalf("Expected first dispatch to send, got: %+v", first)
	}

	now = now.Add(30 * time.Minute)
	second := d.Dispatch(context.Background(), testDecision(product.PriceChanged, "item-1"), []Channel{ch})
	if !second.Suppressed {
		t.Errorf("Expected second dispatch within cool-down to be suppressed, got: %+v", second)
	}
	if ch.calls != 1 {
		t.Errorf("Expected 1 channel call, got: %d", ch.calls)
	}
}

func TestDispatcherCoolDownScopedToItemAndKind(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	d := NewDispatcher(time.Hour, 1, time.Millisecond, clock)
	ch := &recordingChannel{name: "telegram"}

	d.Dispatch(context.Background(), testDecision(product.PriceChanged, "item-1"), []Channel{ch})

	otherKind := d.Dispatch(context.Background(), testDecision(product.AvailabilityChanged, "item-1"), []Channel{ch})
	if otherKind.Suppressed {
		t.Error("Expected a different change kind to bypass the cool-down")
	}

	otherItem := d.Dispatch(context.Background(), testDecision(product.PriceChanged, "item-2"), []Channel{ch})
	if otherItem.Suppressed {
		t.Error("Expected a different item to bypass the cool-down")
	}
}

func TestDispatcherCoolDownElapses(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	d := NewDispatcher(time.Hour, 1, time.Millisecond, clock)
	ch := &recordingChannel{name: "telegram"}

	d.Dispatch(context.Background(), testDecision(product.PriceChanged, "item-1"), []Channel{ch})

	now = now.Add(61 * time.Minute)
	result := d.Dispatch(context.Background(), testDecision(product.PriceChanged, "item-1"), []Channel{ch})
	if result.Sent != 1 {
		t.Errorf("Expected dispatch after cool-down elapsed, got: %+v", result)
	}
	if ch.calls != 2 {
		t.Errorf("Expected 2 channel calls, got: %d", ch.calls)
	}
}

func TestDispatcherRetriesTransientFailure(t *testing.T) {
	d := NewDispatcher(time.Hour, 3, time.Millisecond, nil)
	ch := &recordingChannel{name: "telegram", failures: 2}

	result := d.Dispatch(context.Background(), testDecision(product.NewItem, "item-1"), []Channel{ch})

	if result.Sent != 1 {
		t.Errorf("Expected send to recover on retry, got: %+v", result)
	}
	if ch.calls != 3 {
		t.Errorf("Expected 3 attempts, got: %d", ch.calls)
	}
}

func TestDispatcherRetryExhaustionDegrades(t *testing.T) {
	d := NewDispatcher(time.Hour, 2, time.Millisecond, nil)
	failing := &recordingChannel{name: "telegram", failures: 10}
	healthy := &recordingChannel{name: "email"}

	result := d.Dispatch(context.Background(), testDecision(product.NewItem, "item-1"), []Channel{failing, healthy})

	if result.Failed != 1 {
		t.Errorf("Expected 1 failed channel, got: %d", result.Failed)
	}
	if result.Sent != 1 {
		t.Errorf("Expected healthy channel still to receive the message, got: %d", result.Sent)
	}
	if failing.calls != 2 {
		t.Errorf("Expected 2 attempts before exhaustion, got: %d", failing.calls)
	}
}

func TestDispatcherFailedSendLeavesNoDedupeRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	d := NewDispatcher(time.Hour, 1, time.Millisecond, clock)
	ch := &recordingChannel{name: "telegram", failures: 1}

	first := d.Dispatch(context.Background(), testDecision(product.NewItem, "item-1"), []Channel{ch})
	if first.Failed != 1 {
		t.Fatalf("Expected first dispatch to fail, got: %+v", first)
	}

	second := d.Dispatch(context.Background(), testDecision(product.NewItem, "item-1"), []Channel{ch})
	if second.Sent != 1 {
		t.Errorf("Expected retry of a never-delivered event to send, got: %+v", second)
	}
}

func TestDispatchDigestSkipsCoolDown(t *testing.T) {
	d := NewDispatcher(time.Hour, 1, time.Millisecond, nil)
	ch := &recordingChannel{name: "email"}
	msg := Message{Subject: "Daily digest", Text: "2 events"}

	for i := 0; i < 2; i++ {
		result := d.DispatchDigest(context.Background(), msg, []Channel{ch})
		if result.Sent != 1 {
			t.Errorf("Expected digest send %d to succeed, got: %+v", i+1, result)
		}
	}
	if ch.calls != 2 {
		t.Errorf("Expected 2 digest sends, got: %d", ch.calls)
	}
}
