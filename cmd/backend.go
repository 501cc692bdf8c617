package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/agent-console/internal/backend"
	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/preview"
	"github.com/sells-group/agent-console/internal/research"
	"github.com/sells-group/agent-console/internal/scrape"
	"github.com/sells-group/agent-console/pkg/anthropic"
	"github.com/sells-group/agent-console/pkg/jina"
)

const crawlConcurrency = 4

var backendPort int

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Start the reference agent backend and its scan worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backendPort != 0 {
			cfg.Backend.Port = backendPort
		}
		if err := cfg.Validate("backend"); err != nil {
			return err
		}

		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		worker := backend.NewWorker(st, cfg.Worker.PollInterval())
		worker.Handle(model.AgentTypeMarketResearch, newScanner())

		burst := max(int(cfg.Preview.RatePerSec), 1)
		proxy := preview.NewProxy(preview.WithRate(cfg.Preview.RatePerSec, burst))
		srv := backend.NewServer(st, proxy)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return worker.Run(gctx) })
		g.Go(func() error { return listen(gctx, "backend", cfg.Backend.Port, srv) })
		return g.Wait()
	},
}

// newScanner wires the site-scan pipeline: local HTTP first, Jina Reader
// as the fallback, and Claude for the final report when a key is set.
func newScanner() *research.Scanner {
	chain := scrape.NewChain(nil,
		scrape.NewLocalScraper(nil),
		scrape.NewJinaAdapter(jina.NewClient(cfg.Jina.Key)),
	)
	crawler := scrape.NewCrawler(chain, chain.Matcher(), cfg.Worker.MaxPages, crawlConcurrency)

	var opts []research.Option
	if cfg.Anthropic.Key != "" {
		opts = append(opts, research.WithLLM(
			anthropic.NewClient(cfg.Anthropic.Key),
			cfg.Anthropic.Model,
			cfg.Anthropic.MaxTokens,
		))
	} else {
		zap.L().Warn("anthropic.key not set, reports are crawl-only drafts")
	}
	return research.NewScanner(crawler, opts...)
}

func init() {
	backendCmd.Flags().IntVar(&backendPort, "port", 0, "backend port (default from config)")
	rootCmd.AddCommand(backendCmd)
}
