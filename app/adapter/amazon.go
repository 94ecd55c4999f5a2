package adapter

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"

	"shelfwatch/app/product"
	"shelfwatch/app/source"
)

// Amazon parses Amazon product pages. Amazon rotates between several
// price block layouts, so the parser walks a candidate selector list
// in preference order.
type Amazon struct {
	fetcher *Fetcher
}

func NewAmazon(fetcher *Fetcher) *Amazon {
	return &Amazon{fetcher: fetcher}
}

func (a *Amazon) ID() string { return "amazon" }

func (a *Amazon) Fetch(ctx context.Context, src source.Config) (*RawPage, error) {
	return a.fetcher.Fetch(ctx, src)
}

func (a *Amazon) Parse(raw *RawPage) (*product.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, &ParseError{ItemID: raw.ItemID, URL: raw.URL, Msg: "invalid HTML: " + err.Error()}
	}

	title := firstText(doc, "#productTitle", "span#title")
	if title == "" {
		// Generic fallback: the document title is better than failing
		// the item outright on a layout change.
		title = textOf(doc.Find("title").First())
	}

	price := firstText(doc,
		"#corePrice_desktop .a-offscreen",
		"#corePrice_feature_div .a-offscreen",
		"#apex_desktop .a-offscreen",
		".a-price .a-offscreen",
	)

	availability := firstText(doc,
		"#availability .a-color-success",
		"#availability .a-color-state",
		"#availability span",
	)

	return buildSnapshot(a.ID(), raw, title, price, availability)
}
