// Package research runs a site scan for a market research task: crawl the
// merchant site, draft a report from the crawl, and have Claude refine it.
package research

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/resilience"
	"github.com/sells-group/agent-console/internal/scrape"
	"github.com/sells-group/agent-console/pkg/anthropic"
)

// Crawler fetches a site for scanning.
type Crawler interface {
	Crawl(ctx context.Context, startURL string) (*scrape.Crawl, error)
}

// Scanner produces site-scan reports.
type Scanner struct {
	crawler   Crawler
	llm       anthropic.Client
	model     string
	maxTokens int64
	breaker   *resilience.Breaker
	now       func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLLM has the scanner refine its draft with Claude. A nil client keeps
// the crawl-only draft.
func WithLLM(c anthropic.Client, model string, maxTokens int64) Option {
	return func(s *Scanner) {
		s.llm = c
		s.model = model
		s.maxTokens = maxTokens
	}
}

// NewScanner builds a Scanner around crawler.
func NewScanner(crawler Crawler, opts ...Option) *Scanner {
	s := &Scanner{
		crawler:   crawler,
		maxTokens: 4096,
		breaker:   resilience.NewBreaker(resilience.BreakerConfig{Name: "anthropic", Threshold: 3, Cooldown: 2 * time.Minute}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TargetURL resolves the site a task asks about: the "url" filter when set,
// otherwise the topic. Bare domains get an https scheme.
func TargetURL(in model.TaskInput) (string, error) {
	raw := strings.TrimSpace(in.Filters["url"])
	if raw == "" {
		raw = strings.TrimSpace(in.Topic)
	}
	if raw == "" {
		return "", eris.New("research: task has no topic")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", eris.Errorf("research: topic %q is not a site url", in.Topic)
	}
	return u.String(), nil
}

// Scan crawls the task's site and returns the report text stored as the
// task's response.
func (s *Scanner) Scan(ctx context.Context, task model.Task) (string, error) {
	target, err := TargetURL(task.Input)
	if err != nil {
		return "", err
	}

	crawl, err := s.crawler.Crawl(ctx, target)
	if err != nil {
		return "", eris.Wrap(err, "research: crawl")
	}

	draft := Draft(crawl, s.now())
	draftJSON, err := json.MarshalIndent(Envelope{Scan: draft}, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "research: marshal draft")
	}
	if s.llm == nil {
		return string(draftJSON), nil
	}

	req := anthropic.Request{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    systemPrompt,
		Prompt:    userPrompt(crawl, draftJSON),
	}
	resp, err := resilience.Call(ctx, s.breaker, func(ctx context.Context) (*anthropic.Response, error) {
		return resilience.Retry(ctx, resilience.Policy{Name: "anthropic.complete", Attempts: 2}, func(ctx context.Context) (*anthropic.Response, error) {
			return s.llm.Complete(ctx, req)
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "research: generate report")
	}
	resp.Usage.Log(s.model, task.ID)

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", eris.New("research: model returned no text")
	}
	if resp.Truncated() {
		zap.L().Warn("research: report truncated at max tokens",
			zap.String("task_id", task.ID),
			zap.Int64("max_tokens", s.maxTokens),
		)
	}
	return text, nil
}
