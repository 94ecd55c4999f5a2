package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"shelfwatch/app/source"
)

// FetcherOptions tune the shared HTTP fetcher. Zero values fall back
// to conservative defaults.
type FetcherOptions struct {
	UserAgent  string
	Timeout    time.Duration
	RetryCount int
	Backoff    time.Duration
	// PerHostRPS bounds the request rate against any single target
	// domain so a large source list cannot hammer one site.
	PerHostRPS float64
}

// Fetcher performs polite, retrying HTTP GETs for all site adapters.
// Proxy overrides get a dedicated client; per-host limiters smooth the
// request rate regardless of worker count.
type Fetcher struct {
	opts    FetcherOptions
	client  *http.Client
	proxyMu sync.Mutex
	proxied map[string]*http.Client

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 700 * time.Millisecond
	}
	if opts.PerHostRPS <= 0 {
		opts.PerHostRPS = 1
	}
	return &Fetcher{
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		proxied:  make(map[string]*http.Client),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch performs a GET with bounded retries and exponential backoff.
// 5xx and 429 responses are treated as transient; other non-200
// statuses fail immediately. All failure modes surface as FetchError.
func (f *Fetcher) Fetch(ctx context.Context, src source.Config) (*RawPage, error) {
	client, err := f.getClient(src.Proxy)
	if err != nil {
		return nil, &FetchError{URL: src.URL, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= f.opts.RetryCount; attempt++ {
		if err := f.waitHost(ctx, src.URL); err != nil {
			return nil, &FetchError{URL: src.URL, Err: err}
		}

		page, retryable, err := f.fetchOnce(ctx, client, src)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !retryable || attempt == f.opts.RetryCount {
			break
		}

		sleep := f.opts.Backoff * (1 << uint(attempt-1))
		slog.Warn("Fetch attempt failed", "item", src.ItemID, "attempt", attempt, "retry_in", sleep.String(), "error", err)

		select {
		case <-ctx.Done():
			return nil, &FetchError{URL: src.URL, Err: ctx.Err()}
		case <-time.After(sleep):
		}
	}

	return nil, &FetchError{URL: src.URL, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, client *http.Client, src source.Config) (*RawPage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	ua := src.UserAgent
	if ua == "" {
		ua = f.opts.UserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("server error: %d %s", resp.StatusCode, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	body = decodeBody(body, resp.Header.Get("Content-Type"))

	return &RawPage{
		ItemID:     src.ItemID,
		URL:        src.URL,
		Body:       body,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now().UTC(),
	}, false, nil
}

func (f *Fetcher) getClient(proxy string) (*http.Client, error) {
	if proxy == "" {
		return f.client, nil
	}

	f.proxyMu.Lock()
	defer f.proxyMu.Unlock()

	if c, ok := f.proxied[proxy]; ok {
		return c, nil
	}

	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("malformed proxy url: %w", err)
	}
	c := &http.Client{
		Timeout:   f.opts.Timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}
	f.proxied[proxy] = c
	return c, nil
}

func (f *Fetcher) waitHost(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}

	f.limMu.Lock()
	lim, ok := f.limiters[u.Hostname()]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.opts.PerHostRPS), 1)
		f.limiters[u.Hostname()] = lim
	}
	f.limMu.Unlock()

	return lim.Wait(ctx)
}

var reMetaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-zA-Z0-9_-]+)`)

// decodeBody converts the page to UTF-8 when the server declared a
// non-UTF-8 charset, or declared none and the page carries a meta
// charset. Some servers default to ISO-8859-1 while serving UTF-8,
// which produces artifacts in scraped prices; an undecodable charset
// leaves the body untouched.
func decodeBody(body []byte, contentType string) []byte {
	name := ""
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			name = strings.ToLower(params["charset"])
		}
	}

	if name == "" || name == "iso-8859-1" || name == "latin-1" || name == "us-ascii" {
		head := body
		if len(head) > 1024 {
			head = head[:1024]
		}
		if m := reMetaCharset.FindSubmatch(head); m != nil {
			name = strings.ToLower(string(m[1]))
		}
	}

	if name == "" || name == "utf-8" || name == "utf8" {
		return body
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return body
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return body
	}
	if !bytes.Equal(decoded, body) {
		slog.Debug("Adjusted page encoding", "charset", name)
	}
	return decoded
}
