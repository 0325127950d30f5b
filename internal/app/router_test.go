package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buildtrust/govern/internal/observability"
	"github.com/buildtrust/govern/internal/plans"
	"github.com/buildtrust/govern/internal/rbac"
	"github.com/buildtrust/govern/jobs"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{AppEnv: "test", RateLimitPerMin: 1000, RoleHeader: "X-Auth-Role"}

	engine, err := rbac.DefaultPolicy().Build()
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	mw := rbac.Middleware{
		Authorizer: engine.Authorizer,
		Resolver:   rbac.HeaderResolver(cfg.RoleHeader),
		Logger:     logger,
		Recorder:   metrics,
	}
	handler := rbac.NewHandler(logger, rbac.NewService(engine, nil, logger), plans.Default(), mw)

	return NewRouter(RouterParams{
		Logger:      logger,
		Config:      cfg,
		RBACHandler: handler,
		JobHandler:  jobs.NewHandler(nil, logger),
		Metrics:     metrics,
	})
}

func get(router http.Handler, path, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if role != "" {
		req.Header.Set("X-Auth-Role", role)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthz(t *testing.T) {
	rr := get(newTestRouter(t), "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestRouterAdminGate(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusOK, get(router, "/admin/hub", "admin").Code)
	require.Equal(t, http.StatusForbidden, get(router, "/admin/hub", "donor").Code)
	require.Equal(t, http.StatusOK, get(router, "/admin/jobs/health", "admin").Code)
	require.Equal(t, http.StatusForbidden, get(router, "/admin/jobs/health", "viewer").Code)
	require.Equal(t, http.StatusNoContent, get(router, "/authz/check?path=/projects/3", "viewer").Code)
}

func TestRouterMetricsRecordDecisions(t *testing.T) {
	router := newTestRouter(t)
	get(router, "/admin/hub", "donor")

	rr := get(router, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.True(t, strings.Contains(body, `govern_authz_decisions_total{check="route",outcome="deny",reason="not_granted"} 1`), body)
	require.Contains(t, body, "govern_http_requests_total")
}
