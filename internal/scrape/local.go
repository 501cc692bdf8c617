package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const localMaxBody = 1 << 20

// LocalScraper fetches HTML directly and reduces it to text with goquery.
// Blocked or empty pages return an error so a Chain can fall through.
type LocalScraper struct {
	client    *http.Client
	userAgent string
}

// NewLocalScraper creates a LocalScraper. A nil client gets a 15s default.
func NewLocalScraper(client *http.Client) *LocalScraper {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &LocalScraper{client: client, userAgent: "Mozilla/5.0 (compatible; AgentConsoleScanner/1.0)"}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches targetURL and extracts its title, text and links.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, localMaxBody))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}
	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	page, err := ParseHTML(resp.Request.URL, body)
	if err != nil {
		return nil, err
	}
	if len(page.Text) < 50 {
		return nil, eris.New("local_http: empty page")
	}
	page.StatusCode = resp.StatusCode
	page.Source = l.Name()
	return page, nil
}

// ParseHTML extracts the title, readable text and absolute links from an
// HTML document located at base.
func ParseHTML(base *url.URL, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse html")
	}

	page := &Page{
		URL:   base.String(),
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		key := abs.String()
		if seen[key] {
			return
		}
		seen[key] = true
		page.Links = append(page.Links, Link{URL: key, Text: collapse(a.Text())})
	})

	doc.Find("script, style, noscript, template, svg, iframe").Remove()
	page.Text = collapse(doc.Find("body").Text())
	if page.Text == "" {
		page.Text = collapse(doc.Text())
	}
	return page, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
