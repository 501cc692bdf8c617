package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/agent-console/internal/history"
	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/pager"
	"github.com/sells-group/agent-console/internal/report"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and submit Market Research tasks",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("client")
	},
}

// -- tasks list --

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of task history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		page, _ := cmd.Flags().GetInt("page")
		rows, p, err := fetchPage(cmd, page)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "No tasks found.")
			return nil
		}
		formatTaskRows(os.Stdout, rows, p)
		return nil
	},
}

// -- tasks report --

var tasksReportCmd = &cobra.Command{
	Use:   "report <task-id>",
	Short: "Print a task's report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := newAgentClient().GetTask(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "tasks report")
		}
		tab, _ := cmd.Flags().GetString("tab")
		formatReport(os.Stdout, task, report.FromTask(*task).View(report.ParseTab(tab)))
		return nil
	},
}

// -- tasks execute --

var tasksExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Submit a site scan",
	RunE: func(cmd *cobra.Command, _ []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		pairs, _ := cmd.Flags().GetStringArray("filter")

		topic = strings.TrimSpace(topic)
		if topic == "" {
			return eris.New("tasks execute: --topic is required")
		}
		filters, err := model.ParseFilters(pairs)
		if err != nil {
			return eris.Wrap(err, "tasks execute")
		}

		task, err := newAgentClient().Execute(cmd.Context(), model.AgentTypeMarketResearch, model.ExecuteRequest{
			Action: model.ActionSiteScan,
			Input:  model.TaskInput{Topic: topic, Filters: filters},
		})
		if err != nil {
			return eris.Wrap(err, "tasks execute")
		}
		fmt.Fprintf(os.Stdout, "Submitted task %s (%s)\n", task.ID, task.Status)
		return nil
	},
}

// -- tasks export --

var tasksExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one page of task history to an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		page, _ := cmd.Flags().GetInt("page")
		out, _ := cmd.Flags().GetString("out")

		rows, p, err := fetchPage(cmd, page)
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "tasks export: create %s", out)
		}
		if err := history.ExportXLSX(f, rows); err != nil {
			_ = f.Close()
			return eris.Wrap(err, "tasks export")
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "tasks export: close %s", out)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d tasks (page %d of %d) to %s\n", len(rows), p.Page, p.Pages(), out)
		return nil
	},
}

func fetchPage(cmd *cobra.Command, page int) ([]history.Row, pager.Pager, error) {
	ctx := cmd.Context()
	client := newAgentClient()

	p := pager.New(page, cfg.Dashboard.PageSize, 0)
	agent, err := client.FindAgent(ctx, model.AgentTypeMarketResearch)
	if err != nil {
		return nil, p, eris.Wrap(err, "tasks: find agent")
	}
	tp, err := client.ListTasks(ctx, agent.ID, p.Limit, p.Offset())
	if err != nil {
		return nil, p, eris.Wrap(err, "tasks: list")
	}
	return history.FromTasks(tp.Tasks), p.WithTotal(tp.Total), nil
}

func formatTaskRows(w io.Writer, rows []history.Row, p pager.Pager) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOPIC\tSTATUS\tCREATED\tNOTE")
	for _, r := range rows {
		note := ""
		switch {
		case r.ErrorPreview != "":
			note = r.ErrorPreview
		case r.ShowReport:
			note = "report ready"
		case r.InProgress:
			note = "in progress"
		}
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, history.Truncate(r.Topic, 40), r.StatusLabel, created, note)
	}
	tw.Flush() //nolint:errcheck

	first, last := p.Range()
	fmt.Fprintf(w, "\nShowing %d-%d of %d (page %d of %d)\n", first, last, p.Total, p.Page, p.Pages())
}

func formatReport(w io.Writer, task *model.Task, v report.View) {
	fmt.Fprintf(w, "Task:   %s\n", task.ID)
	fmt.Fprintf(w, "Topic:  %s\n", task.Input.Topic)
	fmt.Fprintf(w, "Status: %s\n", task.Status)
	if task.Error != "" {
		fmt.Fprintf(w, "Error:  %s\n", task.Error)
	}
	fmt.Fprintln(w)

	switch v.Layout {
	case report.LayoutRich:
		names := make([]string, 0, len(v.Tabs))
		for _, t := range v.Tabs {
			label := string(t)
			if t == v.Active {
				label = "[" + label + "]"
			}
			names = append(names, label)
		}
		fmt.Fprintf(w, "Tabs: %s\n\n", strings.Join(names, " "))
		if v.Tab != nil {
			fmt.Fprintf(w, "== %s ==\n", v.Tab.Title)
			formatSections(w, v.Tab.Sections)
		}
	case report.LayoutLegacy:
		formatSections(w, v.Legacy)
	default:
		fmt.Fprintln(w, v.Raw)
	}
}

func formatSections(w io.Writer, sections []report.Section) {
	for _, s := range sections {
		fmt.Fprintf(w, "\n%s\n", s.Title)
		if s.Placeholder != "" {
			fmt.Fprintf(w, "  %s\n", s.Placeholder)
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, r := range s.Rows {
			fmt.Fprintf(tw, "  %s:\t%s\n", r.Label, r.Value)
		}
		tw.Flush() //nolint:errcheck
		for _, item := range s.Items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
		if len(s.Diff) > 0 {
			fmt.Fprintf(w, "  %s\n", formatDiff(s.Diff))
		}
	}
}

// formatDiff marks insertions {+like this+} and deletions [-like this-].
func formatDiff(segs []report.DiffSegment) string {
	var b strings.Builder
	for _, s := range segs {
		switch s.Op {
		case report.DiffInsert:
			b.WriteString("{+" + s.Text + "+}")
		case report.DiffDelete:
			b.WriteString("[-" + s.Text + "-]")
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func init() {
	tasksListCmd.Flags().Int("page", 1, "page number (1-based)")
	tasksReportCmd.Flags().String("tab", string(report.TabCompliance), "report tab to print")
	tasksExecuteCmd.Flags().String("topic", "", "site or domain to scan")
	tasksExecuteCmd.Flags().StringArray("filter", nil, "task filter as key=value (repeatable)")
	tasksExportCmd.Flags().Int("page", 1, "page number (1-based)")
	tasksExportCmd.Flags().String("out", "tasks.xlsx", "output workbook path")

	tasksCmd.AddCommand(tasksListCmd, tasksReportCmd, tasksExecuteCmd, tasksExportCmd)
	rootCmd.AddCommand(tasksCmd)
}
