package rbac

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/buildtrust/govern/internal/plans"
	"github.com/buildtrust/govern/internal/platform/httpx"
	"github.com/buildtrust/govern/internal/shared"
)

// Handler exposes the governance tables and decisions over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	plans     *plans.Catalog
	rbac      Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, planCatalog *plans.Catalog, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, plans: planCatalog, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers the admin hub routes. Every route is gated by the
// route table first.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireRoute())
	r.Get("/hub", h.hub)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(Permission(shared.PermRolesView)))
		r.Get("/permissions", h.listPermissions)
		r.Get("/roles", h.listRoles)
		r.Get("/roles/{role}/permissions", h.rolePermissions)
		r.Post("/authorize", h.authorize)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(PermManageRoles))
		r.Get("/governance/report", h.governanceReport)
		r.Get("/policy", h.exportPolicy)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(Permission(shared.PermBillingView)))
		r.Get("/plans", h.listPlans)
	})
}

// MountForwardAuth registers the gateway check endpoint. It answers 204 when
// the caller's role may reach the path in the X-Forwarded-Uri header or the
// path query parameter, 403 otherwise.
func (h *Handler) MountForwardAuth(r chi.Router) {
	r.Get("/check", h.forwardAuth)
}

type moduleSummary struct {
	Module      Module       `json:"module"`
	DisplayName string       `json:"display_name"`
	Permissions []Permission `json:"permissions"`
}

type hubResponse struct {
	Role           Role            `json:"role"`
	Modules        []moduleSummary `json:"modules"`
	CanCreateRoles []Role          `json:"can_create_roles"`
	PolicyVersion  string          `json:"policy_version"`
}

func (h *Handler) hub(w http.ResponseWriter, r *http.Request) {
	role, ok := h.rbac.currentRole(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	authz := h.service.Authorizer()
	held, err := authz.PermissionsFor(role)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrForbidden, err))
		return
	}
	heldSet := make(permissionSet, len(held))
	for _, p := range held {
		heldSet[p] = struct{}{}
	}
	resp := hubResponse{
		Role:           role,
		Modules:        []moduleSummary{},
		CanCreateRoles: []Role{},
		PolicyVersion:  h.service.Engine().Version,
	}
	for _, m := range authz.Catalog().Modules() {
		summary := moduleSummary{Module: m, DisplayName: m.DisplayName(), Permissions: []Permission{}}
		for _, def := range authz.Catalog().ByModule(m) {
			if heldSet.has(def.ID) {
				summary.Permissions = append(summary.Permissions, def.ID)
			}
		}
		if len(summary.Permissions) > 0 {
			resp.Modules = append(resp.Modules, summary)
		}
	}
	for _, target := range authz.Registry().Codes() {
		if authz.CanCreateRole(role, target) {
			resp.CanCreateRoles = append(resp.CanCreateRoles, target)
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	catalog := h.service.Authorizer().Catalog()
	if module := strings.TrimSpace(r.URL.Query().Get("module")); module != "" {
		if !Module(module).Valid() {
			httpx.RespondError(w, fmt.Errorf("%w: unknown module %q", httpx.ErrValidation, module))
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"permissions": catalog.ByModule(Module(module))})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": catalog.ListPermissions()})
}

type roleSummary struct {
	Code        Role         `json:"code"`
	Rank        int          `json:"rank"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	authz := h.service.Authorizer()
	roles := authz.Registry().Roles()
	out := make([]roleSummary, 0, len(roles))
	for _, def := range roles {
		perms, _ := authz.PermissionsFor(def.Code)
		out = append(out, roleSummary{Code: def.Code, Rank: def.Rank, Description: def.Description, Permissions: perms})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	perms, err := h.service.Authorizer().PermissionsFor(role)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
			return
		}
		h.logger.Error("rbac role permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "permissions": perms})
}

type authorizeRequest struct {
	Role       string `json:"role" validate:"required"`
	Permission string `json:"permission,omitempty" validate:"required_without=Route,excluded_with=Route"`
	Route      string `json:"route,omitempty"`
}

// authorize is a dry run: it reports the decision for an arbitrary role
// without acting as that role.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	authz := h.service.Authorizer()
	var (
		decision Decision
		err      error
	)
	if req.Route != "" {
		decision, err = authz.AuthorizeRoute(Role(req.Role), req.Route)
	} else {
		decision, err = authz.Check(Role(req.Role), Permission(req.Permission))
	}
	if err != nil && !errors.Is(err, ErrUnknownRole) {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}

func (h *Handler) governanceReport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("latest") == "true" {
		h.latestReport(w, r)
		return
	}
	rec, err := h.service.Audit(r.Context())
	if err != nil {
		h.logger.Error("governance report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusOK
	if r.URL.Query().Get("strict") == "true" && !rec.Report.OK() {
		status = http.StatusConflict
	}
	httpx.JSON(w, status, rec)
}

func (h *Handler) latestReport(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.LatestAudit(r.Context())
	if errors.Is(err, ErrReportNotCached) {
		httpx.RespondError(w, fmt.Errorf("%w: no governance audit stored yet", httpx.ErrNotFound))
		return
	}
	if err != nil {
		h.logger.Error("latest governance report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("X-Policy-Current", strconv.FormatBool(rec.Fingerprint == h.service.Engine().Fingerprint))
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"plans": []plans.Plan{}, "tiers": []plans.APITier{}})
		return
	}
	list := h.plans.Plans()
	if role := strings.TrimSpace(r.URL.Query().Get("role")); role != "" {
		list = h.plans.PlansFor(role)
	}
	if list == nil {
		list = []plans.Plan{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"plans": list, "tiers": h.plans.Tiers()})
}

func (h *Handler) forwardAuth(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.Header.Get("X-Forwarded-Uri"))
	if target == "" {
		target = strings.TrimSpace(r.URL.Query().Get("path"))
	}
	if target == "" {
		httpx.RespondError(w, fmt.Errorf("%w: path required", httpx.ErrValidation))
		return
	}
	role, ok := h.rbac.currentRole(r)
	if !ok {
		h.rbac.record("forward_auth", false, ReasonUnknownRole)
		w.Header().Set("X-Authz-Reason", string(ReasonUnknownRole))
		forbidden(w)
		return
	}
	decision, err := h.service.Authorizer().AuthorizeRoute(role, target)
	if err != nil {
		h.logger.Warn("forward auth", slog.String("role", string(role)), slog.Any("error", err))
	}
	h.rbac.record("forward_auth", decision.Allowed, decision.Reason)
	w.Header().Set("X-Authz-Reason", string(decision.Reason))
	if !decision.Allowed {
		forbidden(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exportPolicy(w http.ResponseWriter, r *http.Request) {
	raw, err := EncodePolicy(h.service.Engine().Policy)
	if err != nil {
		h.logger.Error("export policy", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	contentType := mime.TypeByExtension(".yaml")
	if contentType == "" {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Policy-Fingerprint", h.service.Engine().Fingerprint)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
