// Package anthropic wraps the Anthropic Messages API for single-turn
// report writing: one cached system prompt, one user prompt, text back.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// StopMaxTokens is the stop reason for output cut off at the token limit.
const StopMaxTokens = "max_tokens"

// Client writes one completion per call.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn completion request. The system prompt is sent
// with an ephemeral cache marker so repeated scans reuse it.
type Request struct {
	Model     string
	MaxTokens int64
	System    string
	Prompt    string
}

// Response is the joined text of a completion.
type Response struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      Usage
}

// Truncated reports whether the model stopped at the token limit.
func (r *Response) Truncated() bool {
	return r != nil && r.StopReason == StopMaxTokens
}

// Usage is the token accounting of one completion.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

type price struct{ in, out float64 }

// USD per million tokens.
var prices = map[string]price{
	"claude-haiku-4-5-20251001":  {in: 1, out: 5},
	"claude-sonnet-4-5-20250929": {in: 3, out: 15},
	"claude-opus-4-1-20250805":   {in: 15, out: 75},
}

// Cost estimates the USD cost of u on model. Cache writes bill at 1.25x
// input and cache reads at 0.1x. Unknown models cost 0.
func (u Usage) Cost(model string) float64 {
	p, ok := prices[model]
	if !ok {
		return 0
	}
	in := float64(u.Input) + 1.25*float64(u.CacheWrite) + 0.1*float64(u.CacheRead)
	return (in*p.in + float64(u.Output)*p.out) / 1e6
}

// Log records u against a task at info level.
func (u Usage) Log(model, taskID string) {
	zap.L().Info("anthropic: usage",
		zap.String("model", model),
		zap.String("task_id", taskID),
		zap.Int64("input_tokens", u.Input),
		zap.Int64("output_tokens", u.Output),
		zap.Int64("cache_write_tokens", u.CacheWrite),
		zap.Int64("cache_read_tokens", u.CacheRead),
		zap.Float64("estimated_cost_usd", u.Cost(model)),
	)
}

// Option configures the SDK client.
type Option = option.RequestOption

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) Option { return option.WithBaseURL(url) }

// WithMaxRetries sets the SDK's own retry count.
func WithMaxRetries(n int) Option { return option.WithMaxRetries(n) }

type sdkClient struct {
	messages sdk.MessageService
}

// NewClient returns a Client backed by anthropic-sdk-go.
func NewClient(apiKey string, opts ...Option) Client {
	c := sdk.NewClient(append([]Option{option.WithAPIKey(apiKey)}, opts...)...)
	return &sdkClient{messages: c.Messages}
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (*Response, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{
			Text:         req.System,
			CacheControl: sdk.NewCacheControlEphemeralParam(),
		}}
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: complete")
	}
	return toResponse(msg), nil
}

func toResponse(msg *sdk.Message) *Response {
	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	return &Response{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text.String(),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			Input:      msg.Usage.InputTokens,
			Output:     msg.Usage.OutputTokens,
			CacheWrite: msg.Usage.CacheCreationInputTokens,
			CacheRead:  msg.Usage.CacheReadInputTokens,
		},
	}
}
