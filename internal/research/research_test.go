package research

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/report"
	"github.com/sells-group/agent-console/internal/scrape"
	"github.com/sells-group/agent-console/pkg/anthropic"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func groceryCrawl() *scrape.Crawl {
	return &scrape.Crawl{
		StartURL: "https://acme.example",
		Pages: []scrape.Page{
			{URL: "https://acme.example", Title: "Acme Grocers | Home",
				Text: "Fresh groceries and produce delivered daily. Call (555) 123-4567. We also stock cook books."},
			{URL: "https://acme.example/privacy", Title: "Privacy", Text: "We never sell personal data."},
			{URL: "https://acme.example/contact", Title: "Contact", Text: "Email hello@acme.example or call 555-987-6543."},
		},
		Failed: []string{"https://acme.example/refunds"},
		Policies: map[scrape.PolicyKind]string{
			scrape.PolicyPrivacy: "https://acme.example/privacy",
			scrape.PolicyRefund:  "https://acme.example/refunds",
			scrape.PolicyContact: "https://acme.example/contact",
		},
		Duration: 1234567 * time.Microsecond,
	}
}

type fakeCrawler struct {
	crawl *scrape.Crawl
	err   error
	got   string
}

func (f *fakeCrawler) Crawl(_ context.Context, u string) (*scrape.Crawl, error) {
	f.got = u
	return f.crawl, f.err
}

type fakeLLM struct {
	resp *anthropic.Response
	err  error
	req  anthropic.Request
}

func (f *fakeLLM) Complete(_ context.Context, req anthropic.Request) (*anthropic.Response, error) {
	f.req = req
	return f.resp, f.err
}

func TestDraft_GroceryStore(t *testing.T) {
	t.Parallel()
	s := Draft(groceryCrawl(), fixedNow)

	assert.Equal(t, "5411", s.Mcc.Primary.Code)
	assert.InDelta(t, 0.6, s.Mcc.Primary.Confidence, 0.001)
	require.Len(t, s.Mcc.Secondary, 1)
	assert.Equal(t, "5942", s.Mcc.Secondary[0].Code)

	assert.Equal(t, "Acme Grocers", s.Business.LegalName)
	assert.Equal(t, "hello@acme.example", s.Business.Email)
	assert.Equal(t, "555-987-6543", s.Business.Phone)

	assert.True(t, s.Policies["privacy_policy"].Present)
	assert.Equal(t, "We never sell personal data.", s.Policies["privacy_policy"].Summary)
	assert.True(t, s.Policies["refund_policy"].Present)
	assert.Empty(t, s.Policies["refund_policy"].Summary)
	assert.False(t, s.Policies["terms_of_service"].Present)

	// terms (high) and shipping (medium) are missing.
	assert.Equal(t, 20, s.Compliance.Score)
	assert.Equal(t, "low", s.Compliance.RiskLevel)
	assert.Equal(t, "needs_review", s.Compliance.Status)
	assert.Len(t, s.Compliance.Recommendations, 2)

	assert.Equal(t, 3, s.Crawl.PagesCrawled)
	assert.Equal(t, 1, s.Crawl.PagesFailed)
	assert.Equal(t, "1.235s", s.Crawl.Duration)
	assert.Equal(t, "2026-03-04T05:06:07Z", s.Status.CompletedAt)
	assert.Empty(t, s.Risk.Flags)
}

func TestDraft_ContentRisk(t *testing.T) {
	t.Parallel()
	c := groceryCrawl()
	c.Pages[0].Text += " Now selling CBD gummies and vape pens."
	s := Draft(c, fixedNow)

	assert.Equal(t, []string{"cbd", "vape"}, s.Risk.Prohibited)
	require.Len(t, s.Risk.Flags, 2)
	assert.Equal(t, "https://acme.example", s.Risk.Flags[0].URL)
	assert.Equal(t, 45, s.Risk.Score)
	assert.Equal(t, "medium", s.Risk.RiskLevel)
	assert.Equal(t, 42, s.Compliance.Score)
	assert.Equal(t, "medium", s.Compliance.RiskLevel)
}

func TestDraft_FallbackMcc(t *testing.T) {
	t.Parallel()
	s := Draft(&scrape.Crawl{StartURL: "https://x.example", Pages: []scrape.Page{{URL: "https://x.example", Text: "Welcome"}}}, fixedNow)
	assert.Equal(t, "5999", s.Mcc.Primary.Code)
	assert.Equal(t, 55, s.Compliance.Score)
	assert.Equal(t, "needs_review", s.Compliance.Status)
	assert.Equal(t, "Welcome", s.Business.LegalName+s.Business.Description)
}

func TestScan_WithoutLLMRendersRichReport(t *testing.T) {
	t.Parallel()
	fc := &fakeCrawler{crawl: groceryCrawl()}
	s := NewScanner(fc)
	s.now = func() time.Time { return fixedNow }

	out, err := s.Scan(context.Background(), model.Task{ID: "t1", Input: model.TaskInput{Topic: " acme.example "}})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example", fc.got)

	doc := report.Analyze(report.Parse(out))
	require.Equal(t, report.LayoutRich, doc.Layout)
	assert.Equal(t, "5411", doc.PrimaryMccCode())
	assert.Equal(t, "https://acme.example", doc.Scan.BaseURL)
	assert.Empty(t, doc.Scan.Malformed)
}

func TestScan_WithLLM(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{resp: &anthropic.Response{
		StopReason: "end_turn",
		Text:       "```json\n{\"comprehensive_site_scan\":{\"base_url\":\"https://acme.example\"}}\n```",
	}}
	s := NewScanner(&fakeCrawler{crawl: groceryCrawl()}, WithLLM(llm, "claude-sonnet-4-5-20250929", 2048))

	out, err := s.Scan(context.Background(), model.Task{ID: "t2", Input: model.TaskInput{Topic: "https://acme.example"}})
	require.NoError(t, err)
	assert.Contains(t, out, "comprehensive_site_scan")

	assert.Equal(t, "claude-sonnet-4-5-20250929", llm.req.Model)
	assert.Equal(t, int64(2048), llm.req.MaxTokens)
	assert.NotEmpty(t, llm.req.System)
	assert.Contains(t, llm.req.Prompt, "=== https://acme.example/contact (Contact) ===")
	assert.Contains(t, llm.req.Prompt, "Draft scan:")
}

func TestScan_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := NewScanner(&fakeCrawler{}).Scan(ctx, model.Task{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no topic")

	_, err = NewScanner(&fakeCrawler{err: errors.New("dns failure")}).Scan(ctx, model.Task{Input: model.TaskInput{Topic: "acme.example"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research: crawl")

	llm := &fakeLLM{err: errors.New("overloaded")}
	_, err = NewScanner(&fakeCrawler{crawl: groceryCrawl()}, WithLLM(llm, "m", 10)).Scan(ctx, model.Task{Input: model.TaskInput{Topic: "acme.example"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research: generate report")

	empty := &fakeLLM{resp: &anthropic.Response{}}
	_, err = NewScanner(&fakeCrawler{crawl: groceryCrawl()}, WithLLM(empty, "m", 10)).Scan(ctx, model.Task{Input: model.TaskInput{Topic: "acme.example"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text")
}

func TestTargetURL(t *testing.T) {
	t.Parallel()
	got, err := TargetURL(model.TaskInput{Topic: "shop.example/store"})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/store", got)

	got, err = TargetURL(model.TaskInput{Topic: "coffee shops", Filters: map[string]string{"url": "http://beans.example"}})
	require.NoError(t, err)
	assert.Equal(t, "http://beans.example", got)

	_, err = TargetURL(model.TaskInput{Topic: "ftp://files.example"})
	assert.Error(t, err)
}
