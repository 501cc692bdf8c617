// Package agentapi provides a client for the agent backend: agent roster,
// paginated task listing and task submission.
package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-console/internal/model"
)

// Client defines the agent backend operations.
type Client interface {
	// ListAgents returns every agent the backend knows about.
	ListAgents(ctx context.Context) ([]model.Agent, error)
	// FindAgent returns the agent of the given type.
	FindAgent(ctx context.Context, t model.AgentType) (*model.Agent, error)
	// ListTasks returns one page of an agent's tasks.
	ListTasks(ctx context.Context, agentID string, limit, offset int) (*model.TaskPage, error)
	// GetTask fetches a single task by ID.
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// Execute submits a new task to the agent of the given type.
	Execute(ctx context.Context, t model.AgentType, req model.ExecuteRequest) (*model.Task, error)
}

// ErrAgentNotFound is returned by FindAgent when no agent has the requested type.
var ErrAgentNotFound = eris.New("agentapi: agent not found")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("agentapi: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("agentapi: unexpected status %d: %s", e.StatusCode, e.Message)
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

// NewClient creates an agent backend client rooted at baseURL.
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

func (c *httpClient) ListAgents(ctx context.Context) ([]model.Agent, error) {
	var agents []model.Agent
	if err := c.do(ctx, http.MethodGet, "/api/agents", nil, nil, &agents); err != nil {
		return nil, eris.Wrap(err, "agentapi: list agents")
	}
	return agents, nil
}

func (c *httpClient) FindAgent(ctx context.Context, t model.AgentType) (*model.Agent, error) {
	agents, err := c.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	a := model.FindAgent(agents, t)
	if a == nil {
		return nil, eris.Wrapf(ErrAgentNotFound, "type %s", t)
	}
	return a, nil
}

func (c *httpClient) ListTasks(ctx context.Context, agentID string, limit, offset int) (*model.TaskPage, error) {
	q := url.Values{}
	if agentID != "" {
		q.Set("agentId", agentID)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page model.TaskPage
	if err := c.do(ctx, http.MethodGet, "/api/tasks", q, nil, &page); err != nil {
		return nil, eris.Wrap(err, "agentapi: list tasks")
	}
	return &page, nil
}

func (c *httpClient) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &task); err != nil {
		return nil, eris.Wrapf(err, "agentapi: get task %s", id)
	}
	return &task, nil
}

func (c *httpClient) Execute(ctx context.Context, t model.AgentType, req model.ExecuteRequest) (*model.Task, error) {
	var task model.Task
	path := "/api/agents/" + url.PathEscape(string(t)) + "/execute"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &task); err != nil {
		return nil, eris.Wrapf(err, "agentapi: execute %s", t)
	}
	return &task, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
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
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

// errorMessage extracts the backend's {"error": "..."} message, falling back
// to the trimmed body.
func errorMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(body))
}
