package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-console/internal/model"
)

const scanJSON = `{"mcc_codes":{"primary_mcc":{"mcc_code":"5812","description":"Eating places"}},"crawl_summary":{"pages_crawled":12}}`

func mustDecode(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestParse_ValidJSONVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"bare", scanJSON},
		{"json fence", "```json\n" + scanJSON + "\n```"},
		{"plain fence", "```\n" + scanJSON + "\n```"},
		{"fence with prose", "Here is the scan:\n\n```json\n" + scanJSON + "\n```\nLet me know."},
		{"surrounding whitespace", "\n\n  " + scanJSON + "  \n"},
		{"unterminated fence", "```json\n" + scanJSON},
	}

	want := mustDecode(t, scanJSON)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Parse(tt.input)
			require.Equal(t, KindObject, p.Kind)
			assert.Equal(t, want, p.Object)
			assert.Equal(t, tt.input, p.Text)
		})
	}
}

func TestParse_EmbeddedObjectInProse(t *testing.T) {
	t.Parallel()

	p := Parse("Analysis complete. Result: " + scanJSON + " (end of report)")
	require.Equal(t, KindObject, p.Kind)
	assert.Equal(t, mustDecode(t, scanJSON), p.Object)
}

func TestParse_PlainTextIsVerbatim(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"The site could not be reached.",
		"Partial output {not json at all",
		"  leading and trailing spaces  ",
		"{broken: json}",
		"",
	}
	for _, in := range inputs {
		p := Parse(in)
		assert.Equal(t, KindText, p.Kind, in)
		assert.Equal(t, in, p.Text)
		assert.Equal(t, in, p.Pretty())
	}
}

func TestParse_NonObjectJSON(t *testing.T) {
	t.Parallel()

	p := Parse(`[1, 2, 3]`)
	assert.Equal(t, KindValue, p.Kind)
	assert.Equal(t, "[\n  1,\n  2,\n  3\n]", p.Pretty())
}

func TestParse_DoubleEncodedJSON(t *testing.T) {
	t.Parallel()

	encoded, err := json.Marshal(scanJSON)
	require.NoError(t, err)

	p := Parse(string(encoded))
	require.Equal(t, KindObject, p.Kind)
	assert.Equal(t, mustDecode(t, scanJSON), p.Object)
}

func TestParse_BacktickInsideJSONString(t *testing.T) {
	t.Parallel()

	in := `{"note":"use ` + "```" + `code` + "```" + ` blocks"}`
	p := Parse(in)
	require.Equal(t, KindObject, p.Kind)
	assert.Equal(t, "use ```code``` blocks", p.Object["note"])
}

func TestParseOutput_ObjectAndStringOutputs(t *testing.T) {
	t.Parallel()

	var obj model.Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","output":{"response":"`+"```json\\n{\\\"a\\\":1}\\n```"+`"}}`), &obj))
	p := ParseOutput(obj.Output)
	require.Equal(t, KindObject, p.Kind)
	assert.Equal(t, map[string]any{"a": float64(1)}, p.Object)

	var str model.Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t2","output":"no structured data"}`), &str))
	p = ParseOutput(str.Output)
	assert.Equal(t, KindText, p.Kind)
	assert.Equal(t, "no structured data", p.Text)
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```{\"a\":1}```"))
	assert.Equal(t, "no fences", stripFences("no fences"))
}
