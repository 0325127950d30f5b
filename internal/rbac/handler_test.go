package rbac

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/buildtrust/govern/internal/plans"
	"github.com/buildtrust/govern/internal/shared"
)

func newTestRouter(t *testing.T, engine *Engine) http.Handler {
	t.Helper()
	return newTestRouterWithService(t, NewService(engine, nil, slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func newTestRouterWithService(t *testing.T, service *Service) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := service.Engine()
	mw := Middleware{
		Authorizer: engine.Authorizer,
		Resolver:   HeaderResolver(roleHeader),
		Logger:     logger,
	}
	h := NewHandler(logger, service, plans.Default(), mw)
	r := chi.NewRouter()
	r.Route("/admin", h.MountRoutes)
	r.Route("/authz", h.MountForwardAuth)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		req.Header.Set(roleHeader, role)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHubAccess(t *testing.T) {
	router := newTestRouter(t, defaultEngine(t))

	rr := doRequest(t, router, http.MethodGet, "/admin/hub", "donor", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/admin/hub", "", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/admin/hub", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var hub hubResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hub))
	require.Equal(t, RoleAdmin, hub.Role)
	require.Equal(t, PolicyVersion, hub.PolicyVersion)
	require.Contains(t, hub.CanCreateRoles, RoleDonor)
	require.NotContains(t, hub.CanCreateRoles, RoleSuperAdmin)
	require.NotContains(t, hub.CanCreateRoles, RoleAdmin)
	require.Equal(t, ModuleUsers, hub.Modules[0].Module)
	require.Equal(t, "Users", hub.Modules[0].DisplayName)
}

func TestListPermissions(t *testing.T) {
	engine := defaultEngine(t)
	router := newTestRouter(t, engine)

	rr := doRequest(t, router, http.MethodGet, "/admin/permissions", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var all struct {
		Permissions []PermissionDefinition `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	require.Len(t, all.Permissions, engine.Catalog.Len())

	rr = doRequest(t, router, http.MethodGet, "/admin/permissions?module=zoning", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var zoning struct {
		Permissions []PermissionDefinition `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &zoning))
	require.Len(t, zoning.Permissions, 3)

	rr = doRequest(t, router, http.MethodGet, "/admin/permissions?module=payroll", "admin", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestRolePermissionsEndpoint(t *testing.T) {
	router := newTestRouter(t, defaultEngine(t))

	rr := doRequest(t, router, http.MethodGet, "/admin/roles/donor/permissions", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Role        Role         `json:"role"`
		Permissions []Permission `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, RoleDonor, body.Role)
	require.NotContains(t, body.Permissions, Permission(shared.PermReportsExport))

	rr = doRequest(t, router, http.MethodGet, "/admin/roles/ghost/permissions", "admin", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/admin/roles", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"code":"viewer"`)
}

func TestAuthorizeDryRun(t *testing.T) {
	router := newTestRouter(t, defaultEngine(t))

	cases := []struct {
		name    string
		body    any
		status  int
		allowed bool
		reason  Reason
	}{
		{name: "permission granted", body: map[string]string{"role": "admin", "permission": shared.PermUsersManage}, status: http.StatusOK, allowed: true, reason: ReasonGranted},
		{name: "route denied", body: map[string]string{"role": "donor", "route": "/admin/hub"}, status: http.StatusOK, reason: ReasonNotGranted},
		{name: "unknown role", body: map[string]string{"role": "ghost", "permission": shared.PermUsersManage}, status: http.StatusOK, reason: ReasonUnknownRole},
		{name: "unknown permission", body: map[string]string{"role": "admin", "permission": "launch_rockets"}, status: http.StatusBadRequest},
		{name: "both targets", body: map[string]string{"role": "admin", "permission": shared.PermUsersManage, "route": "/admin"}, status: http.StatusBadRequest},
		{name: "unknown field", body: map[string]string{"role": "admin", "actor": "x"}, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodPost, "/admin/authorize", "admin", tc.body)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			if tc.status != http.StatusOK {
				return
			}
			var d Decision
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
			require.Equal(t, tc.allowed, d.Allowed)
			require.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestGovernanceReportEndpoint(t *testing.T) {
	router := newTestRouter(t, defaultEngine(t))

	rr := doRequest(t, router, http.MethodGet, "/admin/governance/report?strict=true", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rec AuditRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	require.True(t, rec.Report.OK())
	require.NotEmpty(t, rec.RunID)

	policy, err := ParsePolicy([]byte(samplePolicy))
	require.NoError(t, err)
	policy.Roles = append(policy.Roles, RoleSpec{Code: "admin", Rank: 90, Grants: []string{"manage_roles", "view_projects", "ghost"}})
	policy.Permissions = append(policy.Permissions, PermissionSpec{ID: "manage_roles", Module: "roles"})
	policy.Routes = append(policy.Routes, RouteSpec{Pattern: "/admin", AnyOf: []string{"manage_roles"}})
	engine, err := policy.Build()
	require.NoError(t, err)
	broken := newTestRouter(t, engine)

	rr = doRequest(t, broken, http.MethodGet, "/admin/governance/report", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, broken, http.MethodGet, "/admin/governance/report?strict=true", "admin", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestLatestGovernanceReportEndpoint(t *testing.T) {
	service, cache := newTestService(t)
	router := newTestRouterWithService(t, service)

	rr := doRequest(t, router, http.MethodGet, "/admin/governance/report?latest=true", "admin", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	_, err := service.RefreshAudit(context.Background(), "cron-1")
	require.NoError(t, err)

	rr = doRequest(t, router, http.MethodGet, "/admin/governance/report?latest=true", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "true", rr.Header().Get("X-Policy-Current"))
	var rec AuditRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	require.Equal(t, "cron-1", rec.RunID)

	stale := rec
	stale.RunID = "cron-0"
	stale.Fingerprint = "older-revision"
	require.NoError(t, cache.Store(context.Background(), stale))
	rr = doRequest(t, router, http.MethodGet, "/admin/governance/report?latest=true", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "false", rr.Header().Get("X-Policy-Current"))
}

func TestGovernanceReportRequiresManageRoles(t *testing.T) {
	router := newTestRouter(t, defaultEngine(t))
	rr := doRequest(t, router, http.MethodGet, "/admin/governance/report", "governance_officer", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestExportPolicyEndpoint(t *testing.T) {
	engine := defaultEngine(t)
	router := newTestRouter(t, engine)

	rr := doRequest(t, router, http.MethodGet, "/admin/policy", "super_admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "yaml")
	require.Equal(t, engine.Fingerprint, rr.Header().Get("X-Policy-Fingerprint"))

	parsed, err := ParsePolicy(rr.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, PolicyVersion, parsed.Version)
}

func TestPlansEndpoint(t *testing.T) {
	router := newTestRouter(t, defaultEngine(t))

	rr := doRequest(t, router, http.MethodGet, "/admin/plans?role=contractor", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Plans []plans.Plan    `json:"plans"`
		Tiers []plans.APITier `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Plans, 2)
	require.Len(t, body.Tiers, 3)

	rr = doRequest(t, router, http.MethodGet, "/admin/plans?role=stranger", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `"plans":[]`))
}

func TestForwardAuth(t *testing.T) {
	router := newTestRouter(t, defaultEngine(t))

	req := httptest.NewRequest(http.MethodGet, "/authz/check", nil)
	req.Header.Set(roleHeader, "inspector")
	req.Header.Set("X-Forwarded-Uri", "/inspections/reports/12?draft=1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, string(ReasonGranted), rr.Header().Get("X-Authz-Reason"))

	rr = doRequest(t, router, http.MethodGet, "/authz/check?path=/zoning/7/decision", "inspector", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, string(ReasonNotGranted), rr.Header().Get("X-Authz-Reason"))

	rr = doRequest(t, router, http.MethodGet, "/authz/check?path=/projects", "", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, string(ReasonUnknownRole), rr.Header().Get("X-Authz-Reason"))

	rr = doRequest(t, router, http.MethodGet, "/authz/check", "inspector", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestForwardAuthNormalizesForwardedPath(t *testing.T) {
	router := newTestRouter(t, defaultEngine(t))

	cases := []struct {
		uri    string
		status int
		reason Reason
	}{
		{uri: "/projects/12", status: http.StatusNoContent, reason: ReasonGranted},
		{uri: "/projects/12/?tab=docs#top", status: http.StatusNoContent, reason: ReasonGranted},
		{uri: "/healthz/%2e%2e/admin/hub", status: http.StatusForbidden, reason: ReasonNotGranted},
		{uri: "/projects/%2E%2E/admin/hub", status: http.StatusForbidden, reason: ReasonNotGranted},
		{uri: "/healthz/..%2fadmin/hub", status: http.StatusForbidden, reason: ReasonNoMatchingRule},
		{uri: "//admin", status: http.StatusForbidden, reason: ReasonNotGranted},
		{uri: "/ADMIN", status: http.StatusForbidden, reason: ReasonNoMatchingRule},
		{uri: "/admin/", status: http.StatusForbidden, reason: ReasonNotGranted},
		{uri: "/healthz?next=/admin", status: http.StatusNoContent, reason: ReasonPublic},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/authz/check", nil)
		req.Header.Set(roleHeader, "donor")
		req.Header.Set("X-Forwarded-Uri", tc.uri)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, tc.status, rr.Code, tc.uri)
		require.Equal(t, string(tc.reason), rr.Header().Get("X-Authz-Reason"), tc.uri)
	}
}
