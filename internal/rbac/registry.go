package rbac

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the closed set of roles with their raw permission assignments.
// Assignments are kept verbatim so the Checker can audit them.
type Registry struct {
	roles map[Role]RoleDefinition
	order []Role
}

// NewRegistry validates role definitions and builds a Registry.
func NewRegistry(defs ...RoleDefinition) (*Registry, error) {
	r := &Registry{
		roles: make(map[Role]RoleDefinition, len(defs)),
		order: make([]Role, 0, len(defs)),
	}
	for _, def := range defs {
		code := Role(strings.TrimSpace(string(def.Code)))
		if code == "" {
			return nil, fmt.Errorf("%w: role code required", ErrInvalidDefinition)
		}
		if def.Rank <= 0 {
			return nil, fmt.Errorf("%w: role %s must have a positive rank", ErrInvalidDefinition, code)
		}
		if _, exists := r.roles[code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRole, code)
		}
		def.Code = code
		def.Grants = append([]Permission(nil), def.Grants...)
		def.Denies = append([]Permission(nil), def.Denies...)
		r.roles[code] = def
		r.order = append(r.order, code)
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
	return r, nil
}

// lookup is safe on a nil Registry, which holds no roles.
func (r *Registry) lookup(role Role) (RoleDefinition, bool) {
	if r == nil {
		return RoleDefinition{}, false
	}
	def, ok := r.roles[role]
	return def, ok
}

// Known reports whether role is part of the registry.
func (r *Registry) Known(role Role) bool {
	_, ok := r.lookup(role)
	return ok
}

// Definition returns a copy of the role definition.
func (r *Registry) Definition(role Role) (RoleDefinition, error) {
	def, ok := r.lookup(role)
	if !ok {
		return RoleDefinition{}, &UnknownRoleError{Role: role}
	}
	def.Grants = append([]Permission(nil), def.Grants...)
	def.Denies = append([]Permission(nil), def.Denies...)
	return def, nil
}

// PermissionsFor returns the deduplicated, sorted permissions granted to role.
// Explicit denies are not subtracted here; see Authorizer.PermissionsFor.
func (r *Registry) PermissionsFor(role Role) ([]Permission, error) {
	def, ok := r.lookup(role)
	if !ok {
		return nil, &UnknownRoleError{Role: role}
	}
	return dedupe(def.Grants), nil
}

// Rank returns the seniority of role.
func (r *Registry) Rank(role Role) (int, error) {
	def, ok := r.lookup(role)
	if !ok {
		return 0, &UnknownRoleError{Role: role}
	}
	return def.Rank, nil
}

// Roles returns every role definition sorted by code.
func (r *Registry) Roles() []RoleDefinition {
	if r == nil {
		return []RoleDefinition{}
	}
	out := make([]RoleDefinition, 0, len(r.order))
	for _, code := range r.order {
		def, _ := r.Definition(code)
		out = append(out, def)
	}
	return out
}

// Codes returns every role code sorted.
func (r *Registry) Codes() []Role {
	if r == nil {
		return nil
	}
	return append([]Role(nil), r.order...)
}

func dedupe(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
