package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/agent-console/internal/catalog"
	"github.com/sells-group/agent-console/internal/dashboard"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent console",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx := cmd.Context()

		cat, err := catalog.Load()
		if err != nil {
			return err
		}

		hub := dashboard.NewHub()
		defer hub.Close()

		console, err := dashboard.NewServer(dashboard.Config{
			PageSize:  cfg.Dashboard.PageSize,
			Operator:  cfg.Dashboard.Operator,
			ProxyBase: cfg.API.ComplianceBaseURL,
		}, newAgentClient(), newComplianceClient(), cat, hub)
		if err != nil {
			return err
		}

		return listen(ctx, "console", cfg.Server.Port, console)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
