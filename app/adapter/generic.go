package adapter

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"

	"shelfwatch/app/product"
	"shelfwatch/app/source"
)

// Generic is the catch-all adapter for sites without a dedicated
// parser. It relies on common microdata/meta conventions and falls
// back to the document title; availability is usually unknowable.
type Generic struct {
	fetcher *Fetcher
}

func NewGeneric(fetcher *Fetcher) *Generic {
	return &Generic{fetcher: fetcher}
}

func (a *Generic) ID() string { return "generic" }

func (a *Generic) Fetch(ctx context.Context, src source.Config) (*RawPage, error) {
	return a.fetcher.Fetch(ctx, src)
}

func (a *Generic) Parse(raw *RawPage) (*product.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, &ParseError{ItemID: raw.ItemID, URL: raw.URL, Msg: "invalid HTML: " + err.Error()}
	}

	title := firstText(doc, "h1[itemprop='name']", "h1")
	if title == "" {
		title = textOf(doc.Find("title").First())
	}

	price := firstText(doc,
		"[itemprop='price']",
		".price",
		".product-price",
		"#price",
	)
	if price == "" {
		if sel := doc.Find("meta[itemprop='price'], meta[property='product:price:amount']").First(); sel.Length() > 0 {
			price, _ = sel.Attr("content")
		}
	}

	availability := firstText(doc, "[itemprop='availability']", ".availability", ".stock")

	return buildSnapshot(a.ID(), raw, title, price, availability)
}
