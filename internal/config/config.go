package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":3000"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// PostgresURL is the control-plane database holding tenant container
	// records, not a tenant database.
	PostgresURL string `env:"POSTGRES_URL,required"`

	// TenantDBPassword is injected into every tenant database container and
	// into the application's connection string.
	TenantDBPassword string `env:"TENANT_DB_PASSWORD,required"`
	// TenantDBURLTemplate is expanded with (password, host, database).
	TenantDBURLTemplate string `env:"TENANT_DB_URL_TEMPLATE" envDefault:"postgresql://postgres:%s@%s/%s"`

	BuildContextDir string `env:"BUILD_CONTEXT_DIR" envDefault:"."`
	// BuildRepoURL, when set, builds the tenant image from a git clone
	// instead of BuildContextDir.
	BuildRepoURL  string `env:"BUILD_REPO_URL"`
	Dockerfile    string `env:"DOCKERFILE" envDefault:"Dockerfile"`
	PostgresImage string `env:"POSTGRES_IMAGE" envDefault:"postgres:latest"`

	ProjectPrefix string `env:"PROJECT_PREFIX" envDefault:"cyber"`
	BasePort      int    `env:"BASE_PORT" envDefault:"5000"`
	AppPort       int    `env:"APP_PORT" envDefault:"5000"`
	DBPort        int    `env:"DB_PORT" envDefault:"5432"`

	PortScanStart    int `env:"PORT_SCAN_START" envDefault:"5000"`
	PortScanAttempts int `env:"PORT_SCAN_ATTEMPTS" envDefault:"100"`

	RestartPolicy string `env:"RESTART_POLICY" envDefault:"unless-stopped"`
	NetworkDriver string `env:"NETWORK_DRIVER" envDefault:"bridge"`

	StopTimeout       time.Duration `env:"STOP_TIMEOUT" envDefault:"10s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SlogLevel maps the configured level string to a slog level, defaulting to
// info for unknown values.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
