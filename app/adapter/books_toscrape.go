package adapter

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shelfwatch/app/product"
	"shelfwatch/app/source"
)

// BooksToScrape parses product pages of books.toscrape.com, the stable
// scraping training site. Useful as a deterministic smoke target.
type BooksToScrape struct {
	fetcher *Fetcher
}

func NewBooksToScrape(fetcher *Fetcher) *BooksToScrape {
	return &BooksToScrape{fetcher: fetcher}
}

func (a *BooksToScrape) ID() string { return "books_toscrape" }

func (a *BooksToScrape) Fetch(ctx context.Context, src source.Config) (*RawPage, error) {
	return a.fetcher.Fetch(ctx, src)
}

func (a *BooksToScrape) Parse(raw *RawPage) (*product.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, &ParseError{ItemID: raw.ItemID, URL: raw.URL, Msg: "invalid HTML: " + err.Error()}
	}

	title := textOf(doc.Find(".product_main h1").First())
	price := textOf(doc.Find(".product_main .price_color").First())
	availability := textOf(doc.Find(".product_main .availability").First())

	return buildSnapshot(a.ID(), raw, title, price, availability)
}

// textOf returns the trimmed text of a selection, empty when the
// selection matched nothing.
func textOf(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// firstText returns the first non-empty trimmed text across a list of
// candidate selectors, matching how site layouts drift over time.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if txt := textOf(doc.Find(sel).First()); txt != "" {
			return txt
		}
	}
	return ""
}
