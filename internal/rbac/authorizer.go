package rbac

import (
	"errors"
	"sort"
	"strings"
)

type permissionSet map[Permission]struct{}

func (s permissionSet) has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s permissionSet) sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Authorizer answers access questions over an immutable catalog, registry and
// route table. All methods are pure and safe for concurrent use.
type Authorizer struct {
	catalog   *Catalog
	registry  *Registry
	routes    *routeTable
	effective map[Role]permissionSet
}

// effectiveSets resolves each role's grants against the catalog. Grants
// outside the catalog are dropped and explicit denies always win.
func effectiveSets(catalog *Catalog, registry *Registry) map[Role]permissionSet {
	out := make(map[Role]permissionSet, len(registry.order))
	for _, code := range registry.order {
		def := registry.roles[code]
		denied := make(permissionSet, len(def.Denies))
		for _, p := range def.Denies {
			denied[p] = struct{}{}
		}
		set := make(permissionSet, len(def.Grants))
		for _, p := range def.Grants {
			if !catalog.Contains(p) || denied.has(p) {
				continue
			}
			set[p] = struct{}{}
		}
		out[code] = set
	}
	return out
}

// NewAuthorizer validates the route table and precomputes effective
// permission sets.
func NewAuthorizer(catalog *Catalog, registry *Registry, routes []RouteRule) (*Authorizer, error) {
	if catalog == nil || registry == nil {
		return nil, errors.New("rbac: catalog and registry required")
	}
	table, err := newRouteTable(catalog, routes)
	if err != nil {
		return nil, err
	}
	return &Authorizer{
		catalog:   catalog,
		registry:  registry,
		routes:    table,
		effective: effectiveSets(catalog, registry),
	}, nil
}

// Catalog exposes the permission catalog.
func (a *Authorizer) Catalog() *Catalog { return a.catalog }

// Registry exposes the role registry.
func (a *Authorizer) Registry() *Registry { return a.registry }

// Routes returns the configured route rules.
func (a *Authorizer) Routes() []RouteRule { return a.routes.list() }

// HasPermission reports whether role effectively holds perm. Unknown roles and
// permissions are errors, never a silent false.
func (a *Authorizer) HasPermission(role Role, perm Permission) (bool, error) {
	set, ok := a.effective[role]
	if !ok {
		return false, &UnknownRoleError{Role: role}
	}
	if !a.catalog.Contains(perm) {
		return false, &UnknownPermissionError{Permission: perm}
	}
	return set.has(perm), nil
}

// Allowed is HasPermission collapsed to default-deny.
func (a *Authorizer) Allowed(role Role, perm Permission) bool {
	ok, err := a.HasPermission(role, perm)
	return err == nil && ok
}

// PermissionsFor returns the effective, sorted permissions of role.
func (a *Authorizer) PermissionsFor(role Role) ([]Permission, error) {
	set, ok := a.effective[role]
	if !ok {
		return nil, &UnknownRoleError{Role: role}
	}
	return set.sorted(), nil
}

// Check explains whether role may use perm.
func (a *Authorizer) Check(role Role, perm Permission) (Decision, error) {
	subject := string(perm)
	set, ok := a.effective[role]
	if !ok {
		return deny(role, subject, ReasonUnknownRole), &UnknownRoleError{Role: role}
	}
	if !a.catalog.Contains(perm) {
		return deny(role, subject, ReasonNotGranted), &UnknownPermissionError{Permission: perm}
	}
	if set.has(perm) {
		return Decision{Allowed: true, Role: role, Subject: subject, Reason: ReasonGranted}, nil
	}
	if a.explicitlyDenied(role, perm) {
		return deny(role, subject, ReasonDenied), nil
	}
	return deny(role, subject, ReasonNotGranted), nil
}

// AuthorizeRoute decides whether role may reach route. The most specific rule
// applies; routes without a rule are denied.
func (a *Authorizer) AuthorizeRoute(role Role, route string) (Decision, error) {
	subject, valid := normalizeRoute(route)
	if !valid {
		subject = strings.TrimSpace(route)
	}
	set, ok := a.effective[role]
	if !ok {
		return deny(role, subject, ReasonUnknownRole), &UnknownRoleError{Role: role}
	}
	if !valid {
		return deny(role, subject, ReasonNoMatchingRule), nil
	}
	rule, ok := a.routes.match(subject)
	if !ok {
		return deny(role, subject, ReasonNoMatchingRule), nil
	}
	if rule.Public {
		return Decision{Allowed: true, Role: role, Subject: subject, Reason: ReasonPublic, Rule: rule.Pattern}, nil
	}
	for _, p := range rule.AnyOf {
		if set.has(p) {
			return Decision{Allowed: true, Role: role, Subject: subject, Reason: ReasonGranted, Rule: rule.Pattern}, nil
		}
	}
	reason := ReasonNotGranted
	for _, p := range rule.AnyOf {
		if a.explicitlyDenied(role, p) {
			reason = ReasonDenied
			break
		}
	}
	d := deny(role, subject, reason)
	d.Rule = rule.Pattern
	return d, nil
}

// CanAccessRoute is AuthorizeRoute collapsed to default-deny.
func (a *Authorizer) CanAccessRoute(role Role, route string) bool {
	d, err := a.AuthorizeRoute(role, route)
	return err == nil && d.Allowed
}

// CanCreateRole reports whether actor may create or assign target. The actor
// must hold manage_roles, strictly outrank target and already hold every
// permission target would receive. The relation is irreflexive.
func (a *Authorizer) CanCreateRole(actor, target Role) bool {
	actorSet, ok := a.effective[actor]
	if !ok {
		return false
	}
	targetSet, ok := a.effective[target]
	if !ok {
		return false
	}
	if !actorSet.has(PermManageRoles) {
		return false
	}
	actorRank, _ := a.registry.Rank(actor)
	targetRank, _ := a.registry.Rank(target)
	if actorRank <= targetRank {
		return false
	}
	for p := range targetSet {
		if !actorSet.has(p) {
			return false
		}
	}
	return true
}

func (a *Authorizer) explicitlyDenied(role Role, perm Permission) bool {
	def := a.registry.roles[role]
	for _, p := range def.Denies {
		if p == perm {
			return true
		}
	}
	return false
}
