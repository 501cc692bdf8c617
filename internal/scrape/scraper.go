// Package scrape fetches merchant sites for scanning: single pages through
// a fallback chain of scrapers, and small same-host crawls that prioritise
// policy pages.
package scrape

import "context"

// Link is an anchor found on a page, resolved to an absolute URL.
type Link struct {
	URL  string
	Text string
}

// Page is one fetched page reduced to readable text.
type Page struct {
	URL        string
	Title      string
	Text       string
	Links      []Link
	StatusCode int
	Source     string // "local_http", "jina"
}

// Fetcher fetches a single URL.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (*Page, error)
}

// Scraper is a Fetcher that can sit in a Chain.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
	Supports(url string) bool
}
