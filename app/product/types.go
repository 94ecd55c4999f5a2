package product

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Availability is the normalized stock state of a tracked item.
type Availability string

const (
	InStock    Availability = "in_stock"
	OutOfStock Availability = "out_of_stock"
	Unknown    Availability = "unknown"
)

// NormalizeAvailability maps raw availability markers scraped from a
// product page onto the canonical enum. Sites phrase stock state in
// wildly different ways, so matching is substring-based and lenient.
func NormalizeAvailability(raw string) Availability {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Unknown
	}

	outMarkers := []string{"out of stock", "unavailable", "sold out", "currently not available"}
	for _, m := range outMarkers {
		if strings.Contains(s, m) {
			return OutOfStock
		}
	}

	inMarkers := []string{"in stock", "available", "add to cart", "buy now"}
	for _, m := range inMarkers {
		if strings.Contains(s, m) {
			return InStock
		}
	}

	return Unknown
}

// Snapshot is an immutable, timestamped record of one item's price and
// availability, produced by a successful fetch+parse cycle.
type Snapshot struct {
	ItemID       string
	Title        string
	Price        decimal.Decimal
	Currency     string
	Availability Availability
	URL          string
	Source       string // adapter id that produced this snapshot
	FetchedAt    time.Time
	ContentHash  string
}

// GenerateContentHash computes a deterministic hash over the identity
// fields of a snapshot. Two fetches that parse to the same price,
// availability and title hash identically regardless of fetch time.
func (s Snapshot) GenerateContentHash() string {
	content := fmt.Sprintf("%s|%s|%s|%s|%s",
		s.ItemID, s.Title, s.Price.String(), s.Currency, s.Availability)
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// IdempotencyKey derives the retry-safe identifier for a snapshot
// write. Re-issuing an append with the same key is a no-op at the
// store layer.
func (s Snapshot) IdempotencyKey() string {
	return fmt.Sprintf("%s|%d|%s", s.ItemID, s.FetchedAt.UTC().UnixNano(), s.ContentHash)
}

// ChangeKind classifies how a fresh snapshot relates to the prior one.
type ChangeKind string

const (
	NoChange            ChangeKind = "no_change"
	NewItem             ChangeKind = "new_item"
	PriceChanged        ChangeKind = "price_changed"
	AvailabilityChanged ChangeKind = "availability_changed"
	FetchFailed         ChangeKind = "fetch_failed"
	ParseFailed         ChangeKind = "parse_failed"
)

// Decision is the outcome of comparing a fresh snapshot against the
// most recent prior snapshot for the same item. Decisions drive
// persistence, notifications and digests; they are never persisted
// directly.
type Decision struct {
	Kind   ChangeKind
	ItemID string

	// Current is set for every decision derived from a successful
	// parse; Previous is nil for NewItem.
	Current  *Snapshot
	Previous *Snapshot

	// Price transition, populated for PriceChanged. Delta is signed
	// (negative on a price drop).
	PriceFrom  decimal.Decimal
	PriceTo    decimal.Decimal
	PriceDelta decimal.Decimal

	// Availability transition, populated for AvailabilityChanged.
	AvailabilityFrom Availability
	AvailabilityTo   Availability

	// Reason carries the failure description for FetchFailed,
	// ParseFailed and currency-anomaly decisions.
	Reason string

	At time.Time
}

// IsChange reports whether the decision represents a material change
// worth persisting and notifying about.
func (d Decision) IsChange() bool {
	switch d.Kind {
	case NewItem, PriceChanged, AvailabilityChanged:
		return true
	}
	return false
}

// Summary renders a short human-readable description used in log rows
// and notification bodies.
func (d Decision) Summary() string {
	switch d.Kind {
	case NoChange:
		return "No changes"
	case NewItem:
		return fmt.Sprintf("Initial snapshot: price=%s %s, availability=%s",
			d.Current.Price.String(), d.Current.Currency, d.Current.Availability)
	case PriceChanged:
		return fmt.Sprintf("price: %s -> %s (%s %s)",
			d.PriceFrom.String(), d.PriceTo.String(), d.PriceDelta.String(), d.Current.Currency)
	case AvailabilityChanged:
		return fmt.Sprintf("availability: %s -> %s", d.AvailabilityFrom, d.AvailabilityTo)
	case FetchFailed:
		return fmt.Sprintf("fetch failed: %s", d.Reason)
	case ParseFailed:
		return fmt.Sprintf("parse failed: %s", d.Reason)
	}
	return string(d.Kind)
}
