// Package history builds the task history table shown on agent pages.
package history

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/agent-console/internal/model"
)

// ErrorPreviewRunes is how much of a failed task's error the table shows.
const ErrorPreviewRunes = 80

// Row is one line of the task history table.
type Row struct {
	ID          string
	Action      string
	Topic       string
	Filters     string
	Status      model.TaskStatus
	StatusLabel string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// ErrorPreview is set only for failed tasks.
	ErrorPreview string
	// ShowReport is true only for completed tasks.
	ShowReport bool
	InProgress bool
}

// FromTask builds the table row for a task. A failed task shows its error,
// truncated, and never the report link.
func FromTask(t model.Task) Row {
	r := Row{
		ID:          t.ID,
		Action:      t.Action,
		Topic:       t.Input.Topic,
		Filters:     formatFilters(t.Input.Filters),
		Status:      t.Status,
		StatusLabel: cases.Title(language.English).String(string(t.Status)),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	switch t.Status {
	case model.TaskStatusFailed:
		msg := strings.TrimSpace(t.Error)
		if msg == "" {
			msg = "Unknown error"
		}
		r.ErrorPreview = Truncate(msg, ErrorPreviewRunes)
	case model.TaskStatusCompleted:
		r.ShowReport = true
	default:
		r.InProgress = true
	}
	return r
}

// FromTasks builds rows for a page of tasks, preserving order.
func FromTasks(tasks []model.Task) []Row {
	rows := make([]Row, len(tasks))
	for i, t := range tasks {
		rows[i] = FromTask(t)
	}
	return rows
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}

func formatFilters(f map[string]string) string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return strings.Join(parts, ", ")
}
