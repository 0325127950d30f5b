package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "X-Auth-Role", cfg.RoleHeader)
	require.Equal(t, 24*time.Hour, cfg.ReportCacheTTL)
	require.Equal(t, "@every 1h", cfg.GovernanceAuditCron)
	require.False(t, cfg.StrictGovernance)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("POLICY_FILE", "/etc/govern/policy.yaml")
	t.Setenv("ROLE_HEADER", "X-Forwarded-Role")
	t.Setenv("STRICT_GOVERNANCE", "true")
	t.Setenv("REPORT_CACHE_TTL", "90m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "/etc/govern/policy.yaml", cfg.PolicyFile)
	require.Equal(t, "X-Forwarded-Role", cfg.RoleHeader)
	require.True(t, cfg.StrictGovernance)
	require.Equal(t, 90*time.Minute, cfg.ReportCacheTTL)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsMalformedDuration(t *testing.T) {
	t.Setenv("REPORT_CACHE_TTL", "soon")
	_, err := LoadConfig()
	require.Error(t, err)
}
