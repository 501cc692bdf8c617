// Package compliance provides a client for the compliance backend: the MCC
// reference list, MCC finalization and the site preview proxy.
package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-console/internal/model"
)

// ProxyPath is the backend route that fetches a site for iframe preview.
const ProxyPath = "/api/monitoring/proxy"

// Client defines the compliance backend operations.
type Client interface {
	// ListMccs returns the MCC reference list, optionally only active codes.
	ListMccs(ctx context.Context, activeOnly bool) ([]model.MccRecord, error)
	// FinalizeMcc records the operator's final MCC for a task.
	FinalizeMcc(ctx context.Context, taskID string, d model.MccDecision) (*model.MccDecision, error)
	// ProxyURL returns the preview proxy URL for target.
	ProxyURL(target string) string
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("compliance: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("compliance: unexpected status %d: %s", e.StatusCode, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to a copy, so a
// client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

const defaultTimeout = 15 * time.Second

type httpClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a compliance backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *httpClient) ListMccs(ctx context.Context, activeOnly bool) ([]model.MccRecord, error) {
	path := "/api/mccs"
	if activeOnly {
		path += "?active=true"
	}
	var list []model.MccRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, eris.Wrap(err, "compliance: list mccs")
	}
	return list, nil
}

func (c *httpClient) FinalizeMcc(ctx context.Context, taskID string, d model.MccDecision) (*model.MccDecision, error) {
	d.TaskID = ""
	var saved model.MccDecision
	path := "/api/tasks/" + url.PathEscape(taskID) + "/mcc"
	if err := c.do(ctx, http.MethodPost, path, d, &saved); err != nil {
		return nil, eris.Wrapf(err, "compliance: finalize mcc for task %s", taskID)
	}
	if saved.TaskID == "" {
		saved.TaskID = taskID
	}
	return &saved, nil
}

func (c *httpClient) ProxyURL(target string) string {
	return ProxyURL(c.baseURL, target)
}

// ProxyURL builds the preview proxy URL for target under base.
func ProxyURL(base, target string) string {
	return strings.TrimRight(base, "/") + ProxyPath + "?url=" + url.QueryEscape(target)
}

func (c *httpClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
