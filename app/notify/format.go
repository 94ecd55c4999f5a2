package notify

import (
	"fmt"
	"strings"

	"shelfwatch/app/digest"
	"shelfwatch/app/product"
)

// FormatDecision renders a change decision as a notification message.
func FormatDecision(d product.Decision) Message {
	title := d.ItemID
	url := ""
	if d.Current != nil {
		if d.Current.Title != "" {
			title = d.Current.Title
		}
		url = d.Current.URL
	}

	var subject, lead string
	switch d.Kind {
	case product.NewItem:
		subject = fmt.Sprintf("Now tracking: %s", title)
		lead = "Started tracking:"
	case product.PriceChanged:
		direction := "increased"
		if d.PriceDelta.IsNegative() {
			direction = "dropped"
		}
		subject = fmt.Sprintf("Price %s: %s", direction, title)
		lead = "Price change for:"
	case product.AvailabilityChanged:
		subject = fmt.Sprintf("Stock change: %s", title)
		lead = "Stock change for:"
	default:
		subject = fmt.Sprintf("Update: %s", title)
		lead = "Update for:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n%s", lead, title, d.Summary())
	if url != "" {
		fmt.Fprintf(&b, "\n%s", url)
	}

	return Message{Subject: subject, Text: b.String()}
}

// FormatDigest renders a digest summary as a notification message.
func FormatDigest(s digest.Summary) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily digest %s - %s\n",
		s.WindowStart.Format("2006-01-02 15:04"), s.WindowEnd.Format("2006-01-02 15:04"))

	if s.TotalEvents() == 0 {
		b.WriteString("No changes observed in this window.")
		return Message{Subject: "Daily digest: no changes", Text: b.String()}
	}

	for _, kind := range []product.ChangeKind{
		product.NewItem, product.PriceChanged, product.AvailabilityChanged,
		product.FetchFailed, product.ParseFailed,
	} {
		if count := s.CountsByKind[kind]; count > 0 {
			fmt.Fprintf(&b, "%s: %d\n", kind, count)
		}
	}

	if len(s.TopMovers) > 0 {
		b.WriteString("Top movers:\n")
		for _, m := range s.TopMovers {
			fmt.Fprintf(&b, "- %s: %s -> %s (%s)\n", m.Title, m.PriceFrom.String(), m.PriceTo.String(), m.PriceDelta.String())
		}
	}

	subject := fmt.Sprintf("Daily digest: %d change(s)", s.TotalEvents())
	return Message{Subject: subject, Text: strings.TrimRight(b.String(), "\n")}
}
