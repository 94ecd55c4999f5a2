package adapter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"$":  "USD",
	"£":  "GBP",
	"€":  "EUR",
	"¥":  "JPY",
	"₹":  "INR",
	"C$": "CAD",
	"A$": "AUD",
}

var reISOCurrency = regexp.MustCompile(`\b(USD|GBP|EUR|JPY|CAD|AUD|INR|CHF|SEK|PLN)\b`)
// Grouped amounts ("1,299.00") must be tried before plain runs of
// digits: Go regexp alternation is leftmost-first, not longest.
var reAmount = regexp.MustCompile(`\d{1,3}(?:[.,\s]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`)

// ParsePrice extracts a decimal amount and an ISO currency code from a
// raw price string as scraped from a page, e.g. "£51.77", "$1,299.00",
// "EUR 12,34" or "US $24.99". The currency defaults to USD when no
// marker is present, matching the bare "$" ambiguity on most sites.
func ParsePrice(raw string) (decimal.Decimal, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, "", fmt.Errorf("empty price string")
	}

	currency := ""
	if m := reISOCurrency.FindString(s); m != "" {
		currency = m
	} else {
		for sym, code := range currencySymbols {
			if strings.Contains(s, sym) {
				// Prefer the longer symbol so "C$" wins over "$".
				if currency == "" || len(sym) > 1 {
					currency = code
				}
			}
		}
	}
	if currency == "" {
		currency = "USD"
	}

	amount := reAmount.FindString(s)
	if amount == "" {
		return decimal.Zero, "", fmt.Errorf("no numeric amount in price %q", raw)
	}

	normalized := normalizeAmount(amount)
	price, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("unparseable price amount %q: %w", amount, err)
	}

	return price, currency, nil
}

// normalizeAmount converts locale-formatted amounts to a plain decimal
// string: "1,299.00" and "1.299,00" both become "1299.00".
func normalizeAmount(s string) string {
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma == -1 && lastDot == -1:
		return s
	case lastComma > lastDot:
		// Comma is the decimal separator; dots (if any) group thousands.
		s = strings.ReplaceAll(s, ".", "")
		if digits := len(s) - strings.LastIndex(s, ",") - 1; digits == 3 {
			// "1,299" style grouping with no decimal part.
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.ReplaceAll(s, ",", ".")
	default:
		// Dot is the decimal separator; commas group thousands.
		s = strings.ReplaceAll(s, ",", "")
		return s
	}
}
