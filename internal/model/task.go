package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// TaskStatus represents the lifecycle state of a backend task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// ActionSiteScan is the action the Market Research page submits.
const ActionSiteScan = "site_scan"

// Terminal reports whether the backend will no longer mutate a task in this state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskInput is the payload a task was submitted with.
type TaskInput struct {
	Topic   string            `json:"topic"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Task is a unit of agent work created by the backend on job submission.
type Task struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agentId,omitempty"`
	Action    string     `json:"action"`
	Status    TaskStatus `json:"status"`
	Input     TaskInput  `json:"input"`
	Output    TaskOutput `json:"output,omitzero"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TaskPage is one page of a paginated task listing.
type TaskPage struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
}

// ExecuteRequest is the body of a task submission.
type ExecuteRequest struct {
	Action string    `json:"action"`
	Input  TaskInput `json:"input"`
}

// TaskOutput holds a task's output, which the backend emits either as a
// JSON string or as a JSON object. The raw bytes are kept as received.
type TaskOutput struct {
	raw json.RawMessage
}

// NewTextOutput wraps plain text as a task output.
func NewTextOutput(text string) TaskOutput {
	b, _ := json.Marshal(text)
	return TaskOutput{raw: b}
}

// NewResponseOutput wraps text as an object output {"response": text}.
func NewResponseOutput(response string) TaskOutput {
	b, _ := json.Marshal(map[string]string{"response": response})
	return TaskOutput{raw: b}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *TaskOutput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		o.raw = nil
		return nil
	}
	o.raw = append(o.raw[:0], trimmed...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o TaskOutput) MarshalJSON() ([]byte, error) {
	if len(o.raw) == 0 {
		return []byte("null"), nil
	}
	return o.raw, nil
}

// IsZero reports whether the task has no output.
func (o TaskOutput) IsZero() bool { return len(o.raw) == 0 }

// Raw returns the output exactly as received.
func (o TaskOutput) Raw() json.RawMessage { return o.raw }

// Response returns the text the report viewer should parse: the "response"
// member of an object output (stringified if it is not a string), the string
// itself for a string output, or the raw JSON otherwise.
func (o TaskOutput) Response() string {
	if len(o.raw) == 0 {
		return ""
	}
	switch o.raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(o.raw, &s); err == nil {
			return s
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(o.raw, &obj); err == nil {
			resp, ok := obj["response"]
			if !ok {
				return string(o.raw)
			}
			var s string
			if err := json.Unmarshal(resp, &s); err == nil {
				return s
			}
			return string(resp)
		}
	}
	return string(o.raw)
}
