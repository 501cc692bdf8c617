package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskOutput_Response(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "string", raw: `"plain text"`, want: "plain text"},
		{name: "response string", raw: `{"response":"{\"a\":1}"}`, want: `{"a":1}`},
		{name: "response object", raw: `{"response":{"a":1}}`, want: `{"a":1}`},
		{name: "object without response", raw: `{"comprehensive_site_scan":{}}`, want: `{"comprehensive_site_scan":{}}`},
		{name: "array", raw: `[1,2]`, want: `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var task struct {
				Output TaskOutput `json:"output"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"output":`+tt.raw+`}`), &task))
			assert.Equal(t, tt.want, task.Output.Response())
		})
	}
}

func TestTaskOutput_Null(t *testing.T) {
	t.Parallel()
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t-1","output":null}`), &task))
	assert.True(t, task.Output.IsZero())
	assert.Empty(t, task.Output.Response())

	b, err := json.Marshal(task)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"output"`)
}

func TestTaskOutput_Constructors(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello", NewTextOutput("hello").Response())
	assert.JSONEq(t, `{"response":"hi"}`, string(NewResponseOutput("hi").Raw()))
	assert.Equal(t, "hi", NewResponseOutput("hi").Response())
}

func TestTaskStatus_Terminal(t *testing.T) {
	t.Parallel()
	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusProcessing.Terminal())
	assert.True(t, TaskStatusCompleted.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
}

func TestFindAgentAndMcc(t *testing.T) {
	t.Parallel()
	agents := []Agent{{ID: "a1", Type: AgentTypeHR}, {ID: "a2", Type: AgentTypeMarketResearch}}
	require.NotNil(t, FindAgent(agents, AgentTypeMarketResearch))
	assert.Equal(t, "a2", FindAgent(agents, AgentTypeMarketResearch).ID)
	assert.Nil(t, FindAgent(agents, AgentTypeLegal))

	mccs := []MccRecord{{Code: "5411"}, {Code: "5812"}}
	assert.Equal(t, "5812", FindMcc(mccs, "5812").Code)
	assert.Nil(t, FindMcc(mccs, "0000"))
}
