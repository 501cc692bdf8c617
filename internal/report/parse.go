// Package report turns the loosely structured output of a market research
// task into a typed site-scan document and per-tab views of it.
package report

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sells-group/agent-console/internal/model"
)

// Kind classifies what Parse recovered from a task output.
type Kind int

const (
	// KindText means no JSON could be recovered; Text holds the input verbatim.
	KindText Kind = iota
	// KindObject means a JSON object was recovered into Object.
	KindObject
	// KindValue means valid JSON that is not an object (array, number, ...).
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindValue:
		return "value"
	default:
		return "text"
	}
}

// Payload is the result of a best-effort parse. Parse never fails; malformed
// output degrades to KindText.
type Payload struct {
	Kind   Kind
	Object map[string]any
	Value  any
	// JSON is the recovered JSON document for KindObject and KindValue.
	JSON []byte
	// Text is the original input, kept for every kind.
	Text string
}

// Pretty returns an indented rendering of the payload for raw display.
func (p Payload) Pretty() string {
	if p.Kind == KindText {
		return p.Text
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, p.JSON, "", "  "); err != nil {
		return string(p.JSON)
	}
	return buf.String()
}

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \\t]*\\r?\\n?(.*?)```")

// ParseOutput parses the response text of a task output.
func ParseOutput(out model.TaskOutput) Payload {
	return Parse(out.Response())
}

// Parse extracts a JSON payload from text that may be a bare JSON document,
// a markdown-fenced JSON block, JSON embedded in prose, or plain text.
//
// Order: strip code fences, parse the whole remainder, then parse the span
// from the first '{' to the last '}', then give up and keep the text.
func Parse(text string) Payload {
	p, ok := parse(text, true)
	if !ok {
		return Payload{Kind: KindText, Text: text}
	}
	return p
}

func parse(text string, unwrap bool) (Payload, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Payload{}, false
	}

	candidates := []string{trimmed}
	if body := stripFences(trimmed); body != "" && body != trimmed {
		candidates = append([]string{body}, candidates...)
	}

	for _, c := range candidates {
		if p, ok := decode(text, c, unwrap); ok {
			return p, true
		}
	}

	for _, c := range candidates {
		start := strings.Index(c, "{")
		end := strings.LastIndex(c, "}")
		if start < 0 || end <= start {
			continue
		}
		if p, ok := decode(text, c[start:end+1], unwrap); ok && p.Kind == KindObject {
			return p, true
		}
	}
	return Payload{}, false
}

func decode(original, candidate string, unwrap bool) (Payload, bool) {
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return Payload{}, false
	}

	switch val := v.(type) {
	case map[string]any:
		return Payload{Kind: KindObject, Object: val, Value: val, JSON: []byte(candidate), Text: original}, true
	case string:
		// Double-encoded output: a JSON string whose content is itself JSON.
		if unwrap {
			if inner, ok := parse(val, false); ok {
				inner.Text = original
				return inner, true
			}
		}
	}
	return Payload{Kind: KindValue, Value: v, JSON: []byte(candidate), Text: original}, true
}

// stripFences returns the content of the first markdown code fence in text,
// or text unchanged when there is none. An unterminated opening fence is
// dropped.
func stripFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
	}
	return strings.TrimSpace(text)
}
