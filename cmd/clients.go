package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-console/internal/store"
	"github.com/sells-group/agent-console/pkg/agentapi"
	"github.com/sells-group/agent-console/pkg/compliance"
)

func newAgentClient() agentapi.Client {
	return agentapi.NewClient(cfg.API.AgentsBaseURL, agentapi.WithTimeout(cfg.API.Timeout()))
}

func newComplianceClient() compliance.Client {
	return compliance.NewClient(cfg.API.ComplianceBaseURL, compliance.WithTimeout(cfg.API.Timeout()))
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "agent-console.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
