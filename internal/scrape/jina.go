package scrape

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-console/internal/resilience"
	"github.com/sells-group/agent-console/pkg/jina"
)

// JinaAdapter reads pages through Jina Reader. Transient failures are
// retried; repeated failures open a breaker so the chain skips Jina for a
// cooldown.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.Breaker
	retry   resilience.Policy
}

// NewJinaAdapter wraps client. Three consecutive failures open the breaker
// for a minute.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{Name: "jina", Threshold: 3, Cooldown: time.Minute}),
		retry:   resilience.Policy{Name: "jina.read", Attempts: 2, Base: time.Second, Jitter: 0.25},
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports is false while the breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.State() != resilience.Open
}

// Scrape reads targetURL and rejects challenge pages.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	return resilience.Call(ctx, j.breaker, func(ctx context.Context) (*Page, error) {
		resp, err := resilience.Retry(ctx, j.retry, func(ctx context.Context) (*jina.ReadResponse, error) {
			resp, err := j.client.Read(ctx, targetURL)
			var se *jina.StatusError
			if errors.As(err, &se) && resilience.TransientStatus(se.StatusCode) {
				return nil, resilience.Transient(err, se.StatusCode)
			}
			return resp, err
		})
		if err != nil {
			return nil, eris.Wrap(err, "jina: read")
		}
		if needsFallback(resp) {
			return nil, eris.New("jina: response needs fallback")
		}
		u := resp.Data.URL
		if u == "" {
			u = targetURL
		}
		return &Page{
			URL:        u,
			Title:      resp.Data.Title,
			Text:       strings.TrimSpace(resp.Data.Content),
			StatusCode: 200,
			Source:     j.Name(),
		}, nil
	})
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// needsFallback reports whether a Reader response is empty or a short
// challenge page.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil || (resp.Code != 0 && resp.Code != 200) {
		return true
	}
	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < 100 {
		return true
	}
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
