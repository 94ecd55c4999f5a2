package adapter

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shelfwatch/app/product"
	"shelfwatch/app/source"
)

// Ebay parses eBay listing pages, covering both the legacy and the
// current item layout.
type Ebay struct {
	fetcher *Fetcher
}

func NewEbay(fetcher *Fetcher) *Ebay {
	return &Ebay{fetcher: fetcher}
}

func (a *Ebay) ID() string { return "ebay" }

func (a *Ebay) Fetch(ctx context.Context, src source.Config) (*RawPage, error) {
	return a.fetcher.Fetch(ctx, src)
}

func (a *Ebay) Parse(raw *RawPage) (*product.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, &ParseError{ItemID: raw.ItemID, URL: raw.URL, Msg: "invalid HTML: " + err.Error()}
	}

	// Legacy layout prefixes the title with boilerplate.
	title := textOf(doc.Find("#itemTitle").First())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Details about"))
	if title == "" {
		title = firstText(doc,
			"h1.x-item-title__mainTitle span.ux-textspans",
			"h1[itemprop='name']",
			"h1.ux-textspans",
		)
	}
	if title == "" {
		title = textOf(doc.Find("title").First())
	}

	price := firstText(doc, "#mm-saleDscPrc", "#prcIsum", ".x-price-primary .ux-textspans")
	if price == "" {
		// itemprop=price often carries the amount in a content attribute.
		if sel := doc.Find("span[itemprop='price']").First(); sel.Length() > 0 {
			if content, ok := sel.Attr("content"); ok && content != "" {
				price = content
			} else {
				price = textOf(sel)
			}
		}
	}

	availability := firstText(doc,
		"#qtySubTxt",
		".d-quantity__availability",
		".x-quantity__availability .ux-textspans",
		"[data-testid='x-buybox-availability'] .ux-textspans",
	)

	return buildSnapshot(a.ID(), raw, title, price, availability)
}
