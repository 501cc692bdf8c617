package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Backend   BackendConfig   `yaml:"backend" mapstructure:"backend"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Worker    WorkerConfig    `yaml:"worker" mapstructure:"worker"`
	Preview   PreviewConfig   `yaml:"preview" mapstructure:"preview"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the console HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BackendConfig configures the reference backend HTTP server.
type BackendConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// APIConfig locates the backends the console talks to.
type APIConfig struct {
	AgentsBaseURL     string `yaml:"agents_base_url" mapstructure:"agents_base_url"`
	ComplianceBaseURL string `yaml:"compliance_base_url" mapstructure:"compliance_base_url"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the API request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// DashboardConfig configures console pages.
type DashboardConfig struct {
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
	Operator string `yaml:"operator" mapstructure:"operator"`
}

// StoreConfig configures the backend task store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// WorkerConfig configures the backend task worker.
type WorkerConfig struct {
	PollIntervalSecs int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	MaxPages         int `yaml:"max_pages" mapstructure:"max_pages"`
}

// PollInterval returns the worker polling interval.
func (c WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// PreviewConfig configures the site preview proxy.
type PreviewConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig configures the report model.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig configures the Jina Reader fallback scraper. An empty key
// sends anonymous, rate-limited requests.
type JinaConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("backend.port", 3001)
	v.SetDefault("api.agents_base_url", "http://localhost:3001")
	v.SetDefault("api.compliance_base_url", "http://localhost:3001")
	v.SetDefault("api.timeout_secs", 15)
	v.SetDefault("dashboard.page_size", 10)
	v.SetDefault("dashboard.operator", "operator")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "agent-console.db")
	v.SetDefault("worker.poll_interval_secs", 5)
	v.SetDefault("worker.max_pages", 10)
	v.SetDefault("preview.rate_per_sec", 5)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("jina.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Dashboard.PageSize < 1 || c.Dashboard.PageSize > 100 {
			errs = append(errs, "dashboard.page_size must be between 1 and 100")
		}
		if c.API.AgentsBaseURL == "" {
			errs = append(errs, "api.agents_base_url is required")
		}
		if c.API.ComplianceBaseURL == "" {
			errs = append(errs, "api.compliance_base_url is required")
		}
	case "backend":
		if c.Backend.Port <= 0 {
			errs = append(errs, "backend.port must be > 0")
		}
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Worker.PollIntervalSecs <= 0 {
			errs = append(errs, "worker.poll_interval_secs must be > 0")
		}
	case "client":
		if c.API.AgentsBaseURL == "" {
			errs = append(errs, "api.agents_base_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
