package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/agent-console/internal/mccflow"
	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/report"
)

var mccCmd = &cobra.Command{
	Use:   "mcc",
	Short: "Browse MCC codes and finalize a task's MCC",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("client")
	},
}

// -- mcc list --

var mccListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the MCC reference codes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		all, _ := cmd.Flags().GetBool("all")
		mccs, err := newComplianceClient().ListMccs(cmd.Context(), !all)
		if err != nil {
			return eris.Wrap(err, "mcc list")
		}
		if len(mccs) == 0 {
			fmt.Fprintln(os.Stderr, "No MCC codes found.")
			return nil
		}
		formatMccs(os.Stdout, mccs)
		return nil
	},
}

// -- mcc finalize --

var mccFinalizeCmd = &cobra.Command{
	Use:   "finalize <task-id>",
	Short: "Record the final MCC for a task",
	Long:  "Accepts the scan's suggested primary MCC or overrides it. An override requires --reason.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		code, _ := cmd.Flags().GetString("code")
		reason, _ := cmd.Flags().GetString("reason")
		by, _ := cmd.Flags().GetString("by")
		if by == "" {
			by = cfg.Dashboard.Operator
		}

		task, err := newAgentClient().GetTask(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "mcc finalize")
		}

		wf := mccflow.New(report.FromTask(*task).PrimaryMccCode(), nil)
		if code != "" {
			wf.Select(code)
		}
		wf.SetReason(reason)

		if _, err := wf.Submit(ctx, newComplianceClient(), task.ID, by); err != nil {
			if wf.Message != "" {
				return eris.Wrap(err, wf.Message)
			}
			return err
		}
		fmt.Fprintf(os.Stdout, "%s (%s)\n", wf.Message, wf.Source())
		return nil
	},
}

func formatMccs(w io.Writer, mccs []model.MccRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tDESCRIPTION\tCATEGORY\tACTIVE")
	for _, m := range mccs {
		active := "yes"
		if !m.Active {
			active = "no"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Code, m.Description, m.Category, active)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	mccListCmd.Flags().Bool("all", false, "include inactive codes")
	mccFinalizeCmd.Flags().String("code", "", "final MCC (default: the suggested primary)")
	mccFinalizeCmd.Flags().String("reason", "", "override reason, required when --code differs from the suggestion")
	mccFinalizeCmd.Flags().String("by", "", "operator recorded as selected_by (default from config)")

	mccCmd.AddCommand(mccListCmd, mccFinalizeCmd)
	rootCmd.AddCommand(mccCmd)
}
