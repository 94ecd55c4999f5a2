package product

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Detector compares snapshots and classifies the result. MinDelta is
// the minimum significant price difference: smaller moves are treated
// as noise (currency formatting drift, floating-point artifacts in
// the source page) and reported as NoChange.
type Detector struct {
	MinDelta decimal.Decimal
}

func NewDetector(minDelta decimal.Decimal) *Detector {
	return &Detector{MinDelta: minDelta}
}

// Compare evaluates a fresh snapshot against the most recent prior one
// for the same item. prev is nil when the item has never been seen.
// Neither snapshot is mutated.
//
// Rule order: no previous snapshot wins first, then availability
// transitions (independent of price), then significant price moves.
func (d *Detector) Compare(prev *Snapshot, curr Snapshot) Decision {
	if prev == nil {
		return Decision{
			Kind:    NewItem,
			ItemID:  curr.ItemID,
			Current: &curr,
			At:      curr.FetchedAt,
		}
	}

	if curr.Availability != prev.Availability {
		return Decision{
			Kind:             AvailabilityChanged,
			ItemID:           curr.ItemID,
			Current:          &curr,
			Previous:         prev,
			AvailabilityFrom: prev.Availability,
			AvailabilityTo:   curr.Availability,
			At:               curr.FetchedAt,
		}
	}

	// Comparing prices across currencies is meaningless; a currency
	// flip for the same item signals schema drift in the source page.
	if curr.Currency != prev.Currency {
		return Decision{
			Kind:     ParseFailed,
			ItemID:   curr.ItemID,
			Current:  &curr,
			Previous: prev,
			Reason:   fmt.Sprintf("currency mismatch: %s -> %s", prev.Currency, curr.Currency),
			At:       curr.FetchedAt,
		}
	}

	delta := curr.Price.Sub(prev.Price)
	if delta.Abs().GreaterThan(d.MinDelta) {
		return Decision{
			Kind:       PriceChanged,
			ItemID:     curr.ItemID,
			Current:    &curr,
			Previous:   prev,
			PriceFrom:  prev.Price,
			PriceTo:    curr.Price,
			PriceDelta: delta,
			At:         curr.FetchedAt,
		}
	}

	return Decision{
		Kind:     NoChange,
		ItemID:   curr.ItemID,
		Current:  &curr,
		Previous: prev,
		At:       curr.FetchedAt,
	}
}
