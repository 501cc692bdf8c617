package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	name     string
	pages    map[string]*Page
	err      error
	disabled bool
	calls    int
}

func (f *fakeScraper) Name() string           { return f.name }
func (f *fakeScraper) Supports(_ string) bool { return !f.disabled }
func (f *fakeScraper) Scrape(_ context.Context, u string) (*Page, error) {
	f.calls++
	if p, ok := f.pages[u]; ok {
		cp := *p
		return &cp, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, errors.New(f.name + ": not found")
}

func TestChain_FallsThrough(t *testing.T) {
	t.Parallel()
	first := &fakeScraper{name: "local", err: errors.New("blocked")}
	second := &fakeScraper{name: "jina", pages: map[string]*Page{"https://a.example": {URL: "https://a.example", Source: "jina"}}}

	page, err := NewChain(nil, first, second).Scrape(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "jina", page.Source)
	assert.Equal(t, 1, first.calls)
}

func TestChain_SkipsUnsupported(t *testing.T) {
	t.Parallel()
	off := &fakeScraper{name: "jina", disabled: true}
	_, err := NewChain(nil, off).Scrape(context.Background(), "https://a.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scraper")
	assert.Zero(t, off.calls)
}

func TestChain_AllFail(t *testing.T) {
	t.Parallel()
	_, err := NewChain(nil, &fakeScraper{name: "a", err: errors.New("boom")}).Scrape(context.Background(), "https://a.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all scrapers failed")
}

func TestChain_Excluded(t *testing.T) {
	t.Parallel()
	s := &fakeScraper{name: "a"}
	_, err := NewChain(nil, s).Scrape(context.Background(), "https://a.example/blog/post")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "excluded")
	assert.Zero(t, s.calls)
}

func TestChain_Supports(t *testing.T) {
	t.Parallel()
	c := NewChain(nil, &fakeScraper{name: "off", disabled: true}, &fakeScraper{name: "on"})
	assert.Equal(t, "chain", c.Name())
	assert.True(t, c.Supports("https://a.example"))
	assert.False(t, c.Supports("https://a.example/blog/post"))
	assert.False(t, NewChain(nil, &fakeScraper{name: "off", disabled: true}).Supports("https://a.example"))
}

func TestChain_Nested(t *testing.T) {
	t.Parallel()
	inner := NewChain(nil, &fakeScraper{name: "jina", pages: map[string]*Page{"https://a.example": {URL: "https://a.example", Source: "jina"}}})
	page, err := NewChain(nil, &fakeScraper{name: "local", err: errors.New("blocked")}, inner).Scrape(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "jina", page.Source)
}
