package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawler_PolicyPagesFirst(t *testing.T) {
	t.Parallel()
	home := &Page{URL: "https://a.example", Links: []Link{
		{URL: "https://a.example/shop"},
		{URL: "https://a.example/blog/news"},
		{URL: "https://b.example/elsewhere"},
		{URL: "https://a.example/gallery"},
		{URL: "https://a.example/refund-policy"},
		{URL: "https://a.example/privacy"},
	}}
	fs := &fakeScraper{name: "fake", pages: map[string]*Page{
		"https://a.example":               home,
		"https://a.example/privacy":       {URL: "https://a.example/privacy"},
		"https://a.example/refund-policy": {URL: "https://a.example/refund-policy"},
	}}

	c := NewCrawler(fs, nil, 3, 1)
	got, err := c.Crawl(context.Background(), "https://a.example")
	require.NoError(t, err)
	require.Len(t, got.Pages, 3)
	assert.Equal(t, "https://a.example", got.Pages[0].URL)
	assert.Equal(t, "https://a.example/privacy", got.Pages[1].URL)
	assert.Equal(t, "https://a.example/refund-policy", got.Pages[2].URL)
	assert.Empty(t, got.Failed)
	assert.Equal(t, "https://a.example/privacy", got.Policies[PolicyPrivacy])
	assert.Equal(t, "https://a.example/refund-policy", got.Policies[PolicyRefund])
	assert.NotNil(t, got.Page("https://a.example/privacy"))
	assert.Nil(t, got.Page("https://a.example/shop"))
}

func TestCrawler_RecordsFailures(t *testing.T) {
	t.Parallel()
	fs := &fakeScraper{name: "fake", pages: map[string]*Page{
		"https://a.example": {URL: "https://a.example", Links: []Link{{URL: "https://a.example/contact"}}},
	}}
	got, err := NewCrawler(fs, nil, 5, 2).Crawl(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Len(t, got.Pages, 1)
	assert.Equal(t, []string{"https://a.example/contact"}, got.Failed)
}

func TestCrawler_StartFailure(t *testing.T) {
	t.Parallel()
	fs := &fakeScraper{name: "fake", err: errors.New("dns")}
	_, err := NewCrawler(fs, nil, 5, 2).Crawl(context.Background(), "https://a.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape: fetch https://a.example")

	_, err = NewCrawler(fs, nil, 5, 2).Crawl(context.Background(), "not a url")
	require.Error(t, err)
}

func TestCrawler_LocalEndToEnd(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(shopHTML))
	})
	mux.HandleFunc("/policies/privacy-policy", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Privacy Policy</h1><p>We never sell your personal data to anyone at all.</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	chain := NewChain(nil, NewLocalScraper(srv.Client()))
	got, err := NewCrawler(chain, chain.Matcher(), 10, 2).Crawl(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	require.NotNil(t, got.Page(srv.URL+"/policies/privacy-policy"))
	assert.Contains(t, got.Failed, srv.URL+"/pages/returns")
	assert.Contains(t, got.Policies, PolicyRefund)
}
