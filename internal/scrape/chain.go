package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries scrapers in order and returns the first success.
type Chain struct {
	matcher  *PathMatcher
	scrapers []Scraper
}

// NewChain builds a Chain. A nil matcher uses DefaultExcludes.
func NewChain(matcher *PathMatcher, scrapers ...Scraper) *Chain {
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	return &Chain{matcher: matcher, scrapers: scrapers}
}

var _ Scraper = (*Chain)(nil)

// Name implements Scraper.
func (c *Chain) Name() string { return "chain" }

// Supports reports whether targetURL is not excluded and some scraper in the
// chain accepts it.
func (c *Chain) Supports(targetURL string) bool {
	if c.matcher.IsExcluded(targetURL) {
		return false
	}
	for _, s := range c.scrapers {
		if s.Supports(targetURL) {
			return true
		}
	}
	return false
}

// Matcher returns the chain's exclusion rules.
func (c *Chain) Matcher() *PathMatcher { return c.matcher }

// Scrape fetches targetURL with the first scraper that succeeds.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	if c.matcher.IsExcluded(targetURL) {
		return nil, eris.Errorf("scrape: url excluded: %s", targetURL)
	}
	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		page, err := s.Scrape(ctx, targetURL)
		if err == nil && page != nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "scrape: cancelled")
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no scraper for url: %s", targetURL)
}
