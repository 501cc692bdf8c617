package scrape

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Crawl is the outcome of crawling one site.
type Crawl struct {
	StartURL string
	Pages    []Page
	Failed   []string
	Policies map[PolicyKind]string
	Started  time.Time
	Duration time.Duration
}

// Page returns the crawled page for u, or nil.
func (c *Crawl) Page(u string) *Page {
	for i := range c.Pages {
		if c.Pages[i].URL == u {
			return &c.Pages[i]
		}
	}
	return nil
}

// Crawler fetches a start page and then a bounded set of same-host links,
// policy pages first.
type Crawler struct {
	scraper     Fetcher
	matcher     *PathMatcher
	maxPages    int
	concurrency int
}

// NewCrawler builds a Crawler. maxPages includes the start page.
func NewCrawler(s Fetcher, matcher *PathMatcher, maxPages, concurrency int) *Crawler {
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	if maxPages <= 0 {
		maxPages = 10
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Crawler{scraper: s, matcher: matcher, maxPages: maxPages, concurrency: concurrency}
}

// Crawl fetches startURL and up to maxPages-1 linked pages. Only a failure
// on the start page is an error.
func (c *Crawler) Crawl(ctx context.Context, startURL string) (*Crawl, error) {
	started := time.Now()
	u, err := url.Parse(startURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("scrape: invalid start url %q", startURL)
	}

	first, err := c.scraper.Scrape(ctx, startURL)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch %s", startURL)
	}

	out := &Crawl{
		StartURL: startURL,
		Pages:    []Page{*first},
		Policies: FindPolicies(u.Hostname(), first.Links),
		Started:  started,
	}

	queue := c.plan(u.Hostname(), first)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, target := range queue {
		g.Go(func() error {
			page, err := c.scraper.Scrape(gctx, target)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Debug("scrape: crawl page failed", zap.String("url", target), zap.Error(err))
				out.Failed = append(out.Failed, target)
				return nil
			}
			out.Pages = append(out.Pages, *page)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "scrape: crawl cancelled")
	}
	out.Duration = time.Since(started)
	zap.L().Info("scrape: crawl complete",
		zap.String("url", startURL),
		zap.Int("pages", len(out.Pages)),
		zap.Int("failed", len(out.Failed)),
		zap.Duration("duration", out.Duration),
	)
	return out, nil
}

// plan picks the follow-up URLs: policy links in PolicyKinds order, then the
// remaining same-host links in page order.
func (c *Crawler) plan(host string, first *Page) []string {
	budget := c.maxPages - 1
	if budget <= 0 {
		return nil
	}
	seen := map[string]bool{first.URL: true}
	var queue []string
	add := func(u string) {
		if len(queue) >= budget || seen[u] || c.matcher.IsExcluded(u) || !SameHost(host, u) {
			return
		}
		seen[u] = true
		queue = append(queue, u)
	}

	policies := FindPolicies(host, first.Links)
	for _, kind := range PolicyKinds {
		if u, ok := policies[kind]; ok {
			add(u)
		}
	}
	for _, l := range first.Links {
		add(l.URL)
	}
	return queue
}
