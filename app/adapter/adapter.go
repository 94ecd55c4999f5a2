package adapter

import (
	"context"
	"fmt"
	"time"

	"shelfwatch/app/product"
	"shelfwatch/app/source"
)

// RawPage is the unparsed result of one fetch. Parse must be
// deterministic given identical raw content.
type RawPage struct {
	ItemID     string
	URL        string
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// Adapter is the per-site capability: fetch a product page and parse
// it into a canonical snapshot. Adapters are stateless and
// side-effect-free except for the network call itself. New sites are
// supported by registering a new adapter under a stable id, not by
// modifying the core.
type Adapter interface {
	ID() string
	Fetch(ctx context.Context, src source.Config) (*RawPage, error)
	Parse(raw *RawPage) (*product.Snapshot, error)
}

// FetchError signals network, timeout or blocked conditions. It is
// item-scoped and retryable.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError signals structural drift in the source page: the markers
// an adapter relies on (price, availability) are missing or malformed.
type ParseError struct {
	ItemID string
	URL    string
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %s", e.ItemID, e.URL, e.Msg)
}

// buildSnapshot assembles the canonical snapshot from the raw fields a
// site parser extracted. A missing price marker is a ParseError; a
// missing availability marker degrades to the unknown state, since
// several site layouts omit it for in-catalogue items.
func buildSnapshot(adapterID string, raw *RawPage, title, priceRaw, availRaw string) (*product.Snapshot, error) {
	if title == "" {
		return nil, &ParseError{ItemID: raw.ItemID, URL: raw.URL, Msg: "title marker not found"}
	}
	if priceRaw == "" {
		return nil, &ParseError{ItemID: raw.ItemID, URL: raw.URL, Msg: "price marker not found"}
	}

	price, currency, err := ParsePrice(priceRaw)
	if err != nil {
		return nil, &ParseError{ItemID: raw.ItemID, URL: raw.URL, Msg: err.Error()}
	}

	snap := product.Snapshot{
		ItemID:       raw.ItemID,
		Title:        title,
		Price:        price,
		Currency:     currency,
		Availability: product.NormalizeAvailability(availRaw),
		URL:          raw.URL,
		Source:       adapterID,
		FetchedAt:    raw.FetchedAt,
	}
	snap.ContentHash = snap.GenerateContentHash()
	return &snap, nil
}
