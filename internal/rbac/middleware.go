package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/buildtrust/govern/internal/shared"
)

// RoleResolver extracts the caller's role from a request. Authentication
// happens upstream; resolvers only read its result.
type RoleResolver interface {
	ResolveRole(r *http.Request) (Role, bool)
}

// RoleResolverFunc adapts a function to RoleResolver.
type RoleResolverFunc func(r *http.Request) (Role, bool)

// ResolveRole implements RoleResolver.
func (f RoleResolverFunc) ResolveRole(r *http.Request) (Role, bool) {
	return f(r)
}

// HeaderResolver reads the role from a header set by a trusted gateway.
func HeaderResolver(header string) RoleResolver {
	return RoleResolverFunc(func(r *http.Request) (Role, bool) {
		raw := strings.TrimSpace(strings.ToLower(r.Header.Get(header)))
		if raw == "" {
			return "", false
		}
		return Role(raw), true
	})
}

// ContextResolver reads the role stored with shared.ContextWithRole.
func ContextResolver() RoleResolver {
	return RoleResolverFunc(func(r *http.Request) (Role, bool) {
		raw := strings.TrimSpace(shared.RoleFromContext(r.Context()))
		if raw == "" {
			return "", false
		}
		return Role(raw), true
	})
}

// ChainResolvers returns the first role any resolver yields.
func ChainResolvers(resolvers ...RoleResolver) RoleResolver {
	return RoleResolverFunc(func(r *http.Request) (Role, bool) {
		for _, res := range resolvers {
			if res == nil {
				continue
			}
			if role, ok := res.ResolveRole(r); ok {
				return role, true
			}
		}
		return "", false
	})
}

// DecisionRecorder observes authorization outcomes, e.g. for metrics.
type DecisionRecorder interface {
	ObserveDecision(check string, allowed bool, reason string)
}

// Middleware wires RBAC authorization helpers for HTTP handlers. Any missing
// or unknown role is answered with 403.
type Middleware struct {
	Authorizer *Authorizer
	Resolver   RoleResolver
	Logger     *slog.Logger
	Recorder   DecisionRecorder
}

// RequireAny ensures the current role has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard("require_any", func(role Role) (bool, Reason) {
		return m.evaluate(role, normalized, false)
	})
}

// RequireAll ensures the current role has all required permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard("require_all", func(role Role) (bool, Reason) {
		return m.evaluate(role, normalized, true)
	})
}

// RequireRoute authorizes the request path against the route table.
func (m Middleware) RequireRoute() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := m.currentRole(r)
			if !ok {
				m.record("route", false, ReasonUnknownRole)
				forbidden(w)
				return
			}
			decision, err := m.Authorizer.AuthorizeRoute(role, r.URL.EscapedPath())
			if err != nil && m.Logger != nil {
				m.Logger.Warn("rbac require route", slog.String("role", string(role)), slog.Any("error", err))
			}
			m.record("route", decision.Allowed, decision.Reason)
			if err != nil || !decision.Allowed {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithRole(r.Context(), string(role))))
		})
	}
}

func (m Middleware) guard(check string, allow func(Role) (bool, Reason)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := m.currentRole(r)
			if !ok {
				m.record(check, false, ReasonUnknownRole)
				forbidden(w)
				return
			}
			allowed, reason := allow(role)
			m.record(check, allowed, reason)
			if !allowed {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithRole(r.Context(), string(role))))
		})
	}
}

// evaluate denies when nothing is required; an empty guard is a wiring mistake.
func (m Middleware) evaluate(role Role, required []Permission, all bool) (bool, Reason) {
	if len(required) == 0 {
		return false, ReasonNoMatchingRule
	}
	if !m.Authorizer.registry.Known(role) {
		if m.Logger != nil {
			m.Logger.Warn("rbac unknown role", slog.String("role", string(role)))
		}
		return false, ReasonUnknownRole
	}
	reason := ReasonNotGranted
	for _, p := range required {
		decision, err := m.Authorizer.Check(role, p)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("rbac check", slog.String("permission", string(p)), slog.Any("error", err))
			}
			return false, decision.Reason
		}
		switch {
		case decision.Allowed && !all:
			return true, ReasonGranted
		case !decision.Allowed && all:
			return false, decision.Reason
		case !decision.Allowed:
			reason = decision.Reason
		}
	}
	if all {
		return true, ReasonGranted
	}
	return false, reason
}

func (m Middleware) currentRole(r *http.Request) (Role, bool) {
	if m.Authorizer == nil || m.Resolver == nil {
		return "", false
	}
	return m.Resolver.ResolveRole(r)
}

func (m Middleware) record(check string, allowed bool, reason Reason) {
	if m.Recorder != nil {
		m.Recorder.ObserveDecision(check, allowed, string(reason))
	}
}

func forbidden(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func normalizePermissions(perms []Permission) []Permission {
	unique := make(map[Permission]struct{}, len(perms))
	normalized := make([]Permission, 0, len(perms))
	for _, p := range perms {
		p = Permission(strings.TrimSpace(strings.ToLower(string(p))))
		if p == "" {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
