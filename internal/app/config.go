package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	RateLimitPerMin   int           `envconfig:"RATE_LIMIT_PER_MIN" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	ReportCacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"24h"`

	PolicyFile       string `envconfig:"POLICY_FILE"`
	RoleHeader       string `envconfig:"ROLE_HEADER" default:"X-Auth-Role"`
	StrictGovernance bool   `envconfig:"STRICT_GOVERNANCE" default:"false"`

	GovernanceAuditCron string `envconfig:"GOVERNANCE_AUDIT_CRON" default:"@every 1h"`
	WorkerMetricsAddr   string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.RoleHeader == "" {
		return nil, errors.New("role header must be provided")
	}
	if cfg.RateLimitPerMin <= 0 {
		return nil, errors.New("rate limit must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
