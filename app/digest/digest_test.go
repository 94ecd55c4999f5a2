package digest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shelfwatch/app/product"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Failed to parse decimal %q: %v", s, err)
	}
	return d
}

func priceChange(t *testing.T, itemID, title, from, to string) product.Decision {
	t.Helper()

	priceFrom := mustDecimal(t, from)
	priceTo := mustDecimal(t, to)
	return product.Decision{
		Kind:       product.PriceChanged,
		ItemID:     itemID,
		Current:    &product.Snapshot{ItemID: itemID, Title: title, Price: priceTo},
		PriceFrom:  priceFrom,
		PriceTo:    priceTo,
		PriceDelta: priceTo.Sub(priceFrom),
	}
}

func TestAccumulatorCountsByKind(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	acc := NewAccumulator(start)

	acc.Add(priceChange(t, "item-1", "Widget", "10.00", "8.00"))
	acc.Add(priceChange(t, "item-2", "Gadget", "20.00", "25.00"))
	acc.Add(product.Decision{Kind: product.NewItem, ItemID: "item-3"})
	acc.Add(product.Decision{Kind: product.AvailabilityChanged, ItemID: "item-1"})
	acc.Add(product.Decision{Kind: product.FetchFailed, ItemID: "item-5", Reason: "timeout"})
	acc.Add(product.Decision{Kind: product.ParseFailed, ItemID: "item-6", Reason: "currency mismatch"})
	acc.Add(product.Decision{Kind: product.NoChange, ItemID: "item-4"})

	end := start.Add(24 * time.Hour)
	summary := acc.Drain(end)

	if summary.CountsByKind[product.PriceChanged] != 2 {
		t.Errorf("Expected 2 price changes, got: %d", summary.CountsByKind[product.PriceChanged])
	}
	if summary.CountsByKind[product.NewItem] != 1 {
		t.Errorf("Expected 1 new item, got: %d", summary.CountsByKind[product.NewItem])
	}
	if summary.CountsByKind[product.AvailabilityChanged] != 1 {
		t.Errorf("Expected 1 availability change, got: %d", summary.CountsByKind[product.AvailabilityChanged])
	}
	if summary.CountsByKind[product.FetchFailed] != 1 {
		t.Errorf("Expected 1 fetch failure, got: %d", summary.CountsByKind[product.FetchFailed])
	}
	if summary.CountsByKind[product.ParseFailed] != 1 {
		t.Errorf("Expected 1 parse failure, got: %d", summary.CountsByKind[product.ParseFailed])
	}
	if _, ok := summary.CountsByKind[product.NoChange]; ok {
		t.Error("Expected NoChange decisions to be excluded from digest")
	}
	if summary.TotalEvents() != 6 {
		t.Errorf("Expected 6 total events, got: %d", summary.TotalEvents())
	}
	if !summary.WindowStart.Equal(start) || !summary.WindowEnd.Equal(end) {
		t.Errorf("Expected window [%v, %v], got: [%v, %v]", start, end, summary.WindowStart, summary.WindowEnd)
	}
}

func TestAccumulatorTopMoversRankedByAbsoluteDelta(t *testing.T) {
	acc := NewAccumulator(time.Now())

	acc.Add(priceChange(t, "small", "Small move", "10.00", "10.50"))
	acc.Add(priceChange(t, "big-drop", "Big drop", "100.00", "60.00"))
	acc.Add(priceChange(t, "big-rise", "Big rise", "50.00", "80.00"))

	summary := acc.Drain(time.Now())

	if len(summary.TopMovers) != 3 {
		t.Fatalf("Expected 3 top movers, got: %d", len(summary.TopMovers))
	}
	if summary.TopMovers[0].ItemID != "big-drop" {
		t.Errorf("Expected big-drop ranked first, got: %s", summary.TopMovers[0].ItemID)
	}
	if summary.TopMovers[1].ItemID != "big-rise" {
		t.Errorf("Expected big-rise ranked second, got: %s", summary.TopMovers[1].ItemID)
	}
	if !summary.TopMovers[0].PriceDelta.Equal(mustDecimal(t, "-40")) {
		t.Errorf("Expected delta -40, got: %s", summary.TopMovers[0].PriceDelta.String())
	}
}

func TestAccumulatorTopMoversLimited(t *testing.T) {
	acc := NewAccumulator(time.Now())

	for i := 0; i < 10; i++ {
		from := fmt.Sprintf("%d.00", 100+i)
		to := fmt.Sprintf("%d.00", 100+i*2)
		acc.Add(priceChange(t, fmt.Sprintf("item-%d", i), "Item", from, to))
	}

	summary := acc.Drain(time.Now())

	if len(summary.TopMovers) != topMoversLimit {
		t.Errorf("Expected %d top movers, got: %d", topMoversLimit, len(summary.TopMovers))
	}
}

func TestAccumulatorDrainResetsWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	acc := NewAccumulator(start)
	acc.Add(product.Decision{Kind: product.NewItem, ItemID: "item-1"})

	firstEnd := start.Add(24 * time.Hour)
	first := acc.Drain(firstEnd)
	if first.TotalEvents() != 1 {
		t.Fatalf("Expected 1 event in first window, got: %d", first.TotalEvents())
	}

	second := acc.Drain(firstEnd.Add(24 * time.Hour))
	if second.TotalEvents() != 0 {
		t.Errorf("Expected empty second window, got: %d events", second.TotalEvents())
	}
	if !second.WindowStart.Equal(firstEnd) {
		t.Errorf("Expected second window to start at %v, got: %v", firstEnd, second.WindowStart)
	}
}

func TestAccumulatorConcurrentAdd(t *testing.T) {
	acc := NewAccumulator(time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			acc.Add(product.Decision{Kind: product.NewItem, ItemID: fmt.Sprintf("item-%d", n)})
		}(i)
	}
	wg.Wait()

	if acc.Len() != 50 {
		t.Errorf("Expected 50 pending events, got: %d", acc.Len())
	}
}

func TestSchedulerDueAtScheduledTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)
	clock := func() time.Time { return now }

	s, err := NewScheduler("09:00", clock)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	if s.Due() {
		t.Error("Expected not due before scheduled time")
	}

	now = time.Date(2026, 3, 1, 9, 0, 1, 0, time.Local)
	if !s.Due() {
		t.Error("Expected due at scheduled time")
	}

	now = time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)
	if s.Due() {
		t.Error("Expected not due again within the same day")
	}

	now = time.Date(2026, 3, 2, 9, 0, 1, 0, time.Local)
	if !s.Due() {
		t.Error("Expected due again the next day")
	}
}

func TestSchedulerSingleCatchUpAfterDowntime(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)
	clock := func() time.Time { return now }

	s, err := NewScheduler("09:00", clock)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	// Three days pass without a single check.
	now = time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)

	if !s.Due() {
		t.Fatal("Expected a catch-up flush after downtime")
	}
	if s.Due() {
		t.Error("Expected exactly one catch-up flush, got a second")
	}

	next := s.NextRun()
	want := time.Date(2026, 3, 5, 9, 0, 0, 0, time.Local)
	if !next.Equal(want) {
		t.Errorf("Expected next run %v, got: %v", want, next)
	}
}

func TestSchedulerRejectsInvalidTime(t *testing.T) {
	if _, err := NewScheduler("not-a-time", time.Now); err == nil {
		t.Error("Expected error for invalid digest time")
	}
}
