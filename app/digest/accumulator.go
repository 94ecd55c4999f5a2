package digest

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shelfwatch/app/product"
)

const topMoversLimit = 5

// Mover is a digest line item for a price change, ranked by the
// absolute size of the move.
type Mover struct {
	ItemID     string
	Title      string
	PriceFrom  decimal.Decimal
	PriceTo    decimal.Decimal
	PriceDelta decimal.Decimal
}

// Summary is an aggregated view of all change events recorded during
// one digest window.
type Summary struct {
	WindowStart  time.Time
	WindowEnd    time.Time
	CountsByKind map[product.ChangeKind]int
	TopMovers    []Mover
}

func (s Summary) TotalEvents() int {
	total := 0
	for _, n := range s.CountsByKind {
		total += n
	}
	return total
}

// Accumulator collects change decisions between digest flushes. Adding
// events and draining the window are mutually exclusive, so a flush
// observes a consistent snapshot and a concurrent Add lands in the
// next window.
type Accumulator struct {
	mu          sync.Mutex
	windowStart time.Time
	events      []product.Decision
}

func NewAccumulator(windowStart time.Time) *Accumulator {
	return &Accumulator{windowStart: windowStart}
}

// Add records a decision for the current window. Every event kind
// counts, including fetch and parse failures, so the digest reflects
// data-quality problems as well as changes. Only NoChange is ignored.
func (a *Accumulator) Add(decision product.Decision) {
	if decision.Kind == product.NoChange || decision.Kind == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = append(a.events, decision)
}

// Len reports the number of events pending in the current window.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.events)
}

// Drain closes the current window at windowEnd, returns its summary
// and starts a fresh window. The summary is built from a copy, so the
// caller can use it without holding the lock.
func (a *Accumulator) Drain(windowEnd time.Time) Summary {
	a.mu.Lock()
	events := a.events
	windowStart := a.windowStart
	a.events = nil
	a.windowStart = windowEnd
	a.mu.Unlock()

	return summarize(windowStart, windowEnd, events)
}

func summarize(windowStart, windowEnd time.Time, events []product.Decision) Summary {
	summary := Summary{
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		CountsByKind: make(map[product.ChangeKind]int),
	}

	var movers []Mover
	for _, e := range events {
		summary.CountsByKind[e.Kind]++

		if e.Kind != product.PriceChanged {
			continue
		}
		title := e.ItemID
		if e.Current != nil && e.Current.Title != "" {
			title = e.Current.Title
		}
		movers = append(movers, Mover{
			ItemID:     e.ItemID,
			Title:      title,
			PriceFrom:  e.PriceFrom,
			PriceTo:    e.PriceTo,
			PriceDelta: e.PriceDelta,
		})
	}

	sort.Slice(movers, func(i, j int) bool {
		return movers[i].PriceDelta.Abs().GreaterThan(movers[j].PriceDelta.Abs())
	})
	if len(movers) > topMoversLimit {
		movers = movers[:topMoversLimit]
	}
	summary.TopMovers = movers

	return summary
}
