package dashboard

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/report"
	"github.com/sells-group/agent-console/pkg/compliance"
)

const scanJSON = `{"comprehensive_site_scan":{"base_url":"https://shop.example",` +
	`"mcc_codes":{"primary_mcc":{"mcc_code":"5812","description":"Restaurants","confidence":0.9}}}}`

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func post(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func taskPage(total, n int) model.TaskPage {
	p := model.TaskPage{Total: total}
	for i := range n {
		p.Tasks = append(p.Tasks, model.Task{
			ID:     fmt.Sprintf("t-%d", i),
			Action: model.ActionSiteScan,
			Status: model.TaskStatusCompleted,
			Input:  model.TaskInput{Topic: fmt.Sprintf("site-%d.example", i)},
		})
	}
	return p
}

func reportAgents() *fakeAgents {
	return &fakeAgents{tasks: map[string]*model.Task{
		"t-rich": {ID: "t-rich", Action: model.ActionSiteScan, Status: model.TaskStatusCompleted,
			Input: model.TaskInput{Topic: "shop.example"}, Output: model.NewTextOutput(scanJSON)},
		"t-text": {ID: "t-text", Action: model.ActionSiteScan, Status: model.TaskStatusCompleted,
			Input: model.TaskInput{Topic: "notes"}, Output: model.NewTextOutput("plain words, no json")},
	}}
}

func reportDoc(text string) report.Document {
	return report.Analyze(report.Parse(text))
}

func grocery() *fakeCompliance {
	return &fakeCompliance{mccs: []model.MccRecord{{Code: "5411", Description: "Grocery Stores", Active: true}}}
}

func TestServer_HealthAndIndex(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAgents{}, &fakeCompliance{})

	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/agents/market-research"`)
	assert.Contains(t, rec.Body.String(), "Legal")
}

func TestServer_StaticAgentTab(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAgents{}, &fakeCompliance{})

	rec := get(t, s, "/agents/hr?tab=skills")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<a href="/agents/hr?tab=skills" class="active">Skills</a>`)
	assert.Contains(t, body, "Resume screening")

	assert.Equal(t, http.StatusNotFound, get(t, s, "/agents/nope").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/nowhere").Code)
}

func TestServer_MarketResearchPagination(t *testing.T) {
	t.Parallel()
	agents := &fakeAgents{page: taskPage(45, 10)}
	s := newTestServer(t, agents, &fakeCompliance{})

	rec := get(t, s, "/agents/market-research?page=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, agents.limit)
	assert.Equal(t, 20, agents.offset)

	body := rec.Body.String()
	assert.Contains(t, body, "Showing 21-30 of 45")
	assert.Contains(t, body, `href="?page=2">Previous`)
	assert.Contains(t, body, `href="?page=4">Next`)
	assert.Contains(t, body, `href="/tasks/t-0/report"`)
}

func TestServer_MarketResearchEdges(t *testing.T) {
	t.Parallel()
	agents := &fakeAgents{page: taskPage(5, 5)}
	s := newTestServer(t, agents, &fakeCompliance{})

	body := get(t, s, "/agents/market-research?page=junk").Body.String()
	assert.Equal(t, 0, agents.offset)
	assert.Contains(t, body, `<span class="muted">Previous</span>`)
	assert.Contains(t, body, `<span class="muted">Next</span>`)
}

func TestServer_MarketResearchFailedTask(t *testing.T) {
	t.Parallel()
	agents := &fakeAgents{page: model.TaskPage{Total: 1, Tasks: []model.Task{{
		ID: "t-bad", Action: model.ActionSiteScan, Status: model.TaskStatusFailed,
		Input: model.TaskInput{Topic: "down.example"}, Error: "crawl timed out",
	}}}}
	s := newTestServer(t, agents, &fakeCompliance{})

	body := get(t, s, "/agents/market-research").Body.String()
	assert.Contains(t, body, `<div class="error">crawl timed out</div>`)
	assert.NotContains(t, body, `href="/tasks/t-bad/report"`)
}

func TestServer_MarketResearchLoadError(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAgents{listErr: eris.New("connection refused")}, &fakeCompliance{})

	rec := get(t, s, "/agents/market-research")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `role="alert">Failed to load tasks: connection refused`)
	assert.NotContains(t, body, "Task history")
	assert.NotContains(t, body, "New site scan")
}

func TestServer_CreateTask(t *testing.T) {
	t.Parallel()
	agents := &fakeAgents{}
	s := newTestServer(t, agents, &fakeCompliance{})

	rec := post(t, s, "/agents/market-research/tasks", url.Values{
		"topic":   {"  shop.example "},
		"filters": {"region=us\nurl=https://shop.example"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/agents/market-research?created=t-new", rec.Header().Get("Location"))

	require.Len(t, agents.executed, 1)
	assert.Equal(t, model.ActionSiteScan, agents.executed[0].Action)
	assert.Equal(t, "shop.example", agents.executed[0].Input.Topic)
	assert.Equal(t, map[string]string{"region": "us", "url": "https://shop.example"}, agents.executed[0].Input.Filters)

	body := get(t, s, "/agents/market-research?created=t-new").Body.String()
	assert.Contains(t, body, "Task t-new submitted.")
}

func TestServer_CreateTaskErrors(t *testing.T) {
	t.Parallel()
	agents := &fakeAgents{}
	s := newTestServer(t, agents, &fakeCompliance{})

	rec := post(t, s, "/agents/market-research/tasks", url.Values{"topic": {"  "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Topic is required.")

	rec = post(t, s, "/agents/market-research/tasks", url.Values{"topic": {"a.example"}, "filters": {"oops"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Filters must be key=value")
	assert.Empty(t, agents.executed)

	rec = post(t, s, "/agents/hr/tasks", url.Values{"topic": {"x"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	failing := newTestServer(t, &fakeAgents{execErr: eris.New("backend down")}, &fakeCompliance{})
	rec = post(t, failing, "/agents/market-research/tasks", url.Values{"topic": {"a.example"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to create task: backend down")
	assert.Contains(t, rec.Body.String(), `value="a.example"`)
}

func TestServer_Export(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAgents{page: taskPage(3, 3)}, &fakeCompliance{})

	rec := get(t, s, "/agents/market-research/export.xlsx?page=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "market-research-tasks-page-1.xlsx")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")

	failing := newTestServer(t, &fakeAgents{listErr: eris.New("down")}, &fakeCompliance{})
	assert.Equal(t, http.StatusBadGateway, get(t, failing, "/agents/market-research/export.xlsx").Code)
}

func TestServer_ReportRich(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, reportAgents(), grocery())

	rec := get(t, s, "/tasks/t-rich/report?tab=mcc")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<a href="/tasks/t-rich/report?tab=mcc" class="active">MCC</a>`)
	assert.Contains(t, body, "<th>Code</th><td>5812</td>")
	assert.Contains(t, body, "/api/monitoring/proxy?url=https%3A%2F%2Fshop.example")
	assert.Contains(t, body, `href="https://shop.example"`)

	// The suggested primary is pre-selected even though the reference list lacks it.
	assert.Contains(t, body, `<option value="5812" selected>`)
	assert.Contains(t, body, `<option value="5411">5411 - Grocery Stores</option>`)
	assert.Contains(t, body, `<div id="mcc-override" hidden>`)
}

func TestServer_ReportText(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, reportAgents(), grocery())

	rec := get(t, s, "/tasks/t-text/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<pre>plain words, no json</pre>")
}

func TestServer_ReportErrors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, reportAgents(), grocery())

	rec := get(t, s, "/tasks/missing/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load task")

	noMccs := newTestServer(t, reportAgents(), &fakeCompliance{listErr: eris.New("compliance offline")})
	rec = get(t, noMccs, "/tasks/t-rich/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load MCC list: compliance offline")
	assert.Contains(t, rec.Body.String(), `<option value="5812" selected>`)
	assert.Contains(t, rec.Body.String(), `<button type="submit" id="mcc-save">`)
	assert.NotContains(t, rec.Body.String(), `id="mcc-save" disabled`)
}

func TestServer_FinalizeMcc(t *testing.T) {
	t.Parallel()

	t.Run("accepts suggestion", func(t *testing.T) {
		t.Parallel()
		comp := grocery()
		s := newTestServer(t, reportAgents(), comp)

		rec := post(t, s, "/tasks/t-rich/mcc", url.Values{"mcc_code": {"5812"}, "tab": {"mcc"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "MCC 5812 saved")
		require.Len(t, comp.decisions, 1)
		assert.Equal(t, model.MccDecision{
			TaskID: "t-rich", MccCode: "5812", Source: model.MccSourceSystem, SelectedBy: "alice",
		}, comp.decisions[0])
	})

	t.Run("override needs reason", func(t *testing.T) {
		t.Parallel()
		comp := grocery()
		s := newTestServer(t, reportAgents(), comp)

		rec := post(t, s, "/tasks/t-rich/mcc", url.Values{"mcc_code": {"5411"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Enter a reason for overriding the suggested MCC.")
		assert.Contains(t, body, `<div id="mcc-override">`)
		assert.Contains(t, body, `id="mcc-save" disabled`)
		assert.Empty(t, comp.decisions)

		rec = post(t, s, "/tasks/t-rich/mcc", url.Values{"mcc_code": {"5411"}, "override_reason": {"Sells groceries"}})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, comp.decisions, 1)
		assert.Equal(t, model.MccSourceOverride, comp.decisions[0].Source)
		assert.Equal(t, "Sells groceries", comp.decisions[0].OverrideReason)
	})

	t.Run("no selection", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, reportAgents(), grocery())
		rec := post(t, s, "/tasks/t-text/mcc", url.Values{})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Select an MCC before saving.")
	})

	t.Run("backend rejects", func(t *testing.T) {
		t.Parallel()
		comp := grocery()
		comp.finalizeErr = &compliance.StatusError{StatusCode: 400, Message: "unknown MCC code 5812"}
		s := newTestServer(t, reportAgents(), comp)

		rec := post(t, s, "/tasks/t-rich/mcc", url.Values{"mcc_code": {"5812"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Failed to save MCC: compliance: unexpected status 400: unknown MCC code 5812")
	})
}

func TestServer_Preview(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAgents{}, &fakeCompliance{})

	rec := get(t, s, "/preview?url="+url.QueryEscape("https://a.example/page"))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "http://compliance.test/api/monitoring/proxy?url=https%3A%2F%2Fa.example%2Fpage")
	assert.Contains(t, body, "Open a.example in a new tab")

	rec = get(t, s, "/preview?url=ftp://files.example")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No previewable URL")
}

func TestPreviewTarget(t *testing.T) {
	t.Parallel()
	task := &model.Task{Input: model.TaskInput{Topic: "shop.example"}}
	assert.Equal(t, "https://shop.example", previewTarget(reportDoc(""), task))

	task.Input.Filters = map[string]string{"url": "http://filtered.example/a"}
	assert.Equal(t, "http://filtered.example/a", previewTarget(reportDoc(""), task))

	assert.Equal(t, "https://shop.example", previewTarget(reportDoc(scanJSON), task))
	assert.Empty(t, previewTarget(reportDoc(""), &model.Task{}))
}
