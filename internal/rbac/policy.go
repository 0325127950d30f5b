package rbac

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Policy is the serialisable form of the governance tables. It is the input
// of Build and the format of policy files.
type Policy struct {
	Version     string           `yaml:"version" json:"version" validate:"required"`
	Permissions []PermissionSpec `yaml:"permissions" json:"permissions" validate:"required,min=1,dive"`
	Roles       []RoleSpec       `yaml:"roles" json:"roles" validate:"required,min=1,dive"`
	Routes      []RouteSpec      `yaml:"routes" json:"routes" validate:"dive"`
	Scenarios   []ScenarioSpec   `yaml:"scenarios" json:"scenarios" validate:"dive"`
}

// PermissionSpec declares a catalog entry.
type PermissionSpec struct {
	ID          string   `yaml:"id" json:"id" validate:"required"`
	Module      string   `yaml:"module" json:"module" validate:"required"`
	Description string   `yaml:"description" json:"description"`
	Requires    []string `yaml:"requires,omitempty" json:"requires,omitempty"`
}

// RoleSpec declares a role and its assignment.
type RoleSpec struct {
	Code        string   `yaml:"code" json:"code" validate:"required"`
	Rank        int      `yaml:"rank" json:"rank" validate:"required,gt=0"`
	Description string   `yaml:"description" json:"description"`
	Grants      []string `yaml:"grants" json:"grants"`
	Denies      []string `yaml:"denies,omitempty" json:"denies,omitempty"`
}

// RouteSpec declares a route rule.
type RouteSpec struct {
	Pattern string   `yaml:"pattern" json:"pattern" validate:"required,startswith=/"`
	AnyOf   []string `yaml:"any_of,omitempty" json:"any_of,omitempty" validate:"required_without=Public"`
	Public  bool     `yaml:"public,omitempty" json:"public,omitempty"`
}

// ScenarioSpec declares a deployment scenario.
type ScenarioSpec struct {
	Name       string `yaml:"name" json:"name" validate:"required"`
	Role       string `yaml:"role" json:"role" validate:"required"`
	Permission string `yaml:"permission,omitempty" json:"permission,omitempty" validate:"required_without=Route,excluded_with=Route"`
	Route      string `yaml:"route,omitempty" json:"route,omitempty"`
	Expect     bool   `yaml:"expect" json:"expect"`
}

// Engine bundles the immutable tables built from a Policy.
type Engine struct {
	Policy      Policy
	Version     string
	Catalog     *Catalog
	Registry    *Registry
	Authorizer  *Authorizer
	Scenarios   []Scenario
	Fingerprint string
}

// Build validates the policy tables and constructs an Engine.
func (p Policy) Build() (*Engine, error) {
	defs := make([]PermissionDefinition, 0, len(p.Permissions))
	for _, spec := range p.Permissions {
		defs = append(defs, PermissionDefinition{
			ID:          Permission(spec.ID),
			Module:      Module(spec.Module),
			Description: spec.Description,
			Requires:    toPermissions(spec.Requires),
		})
	}
	catalog, err := NewCatalog(defs...)
	if err != nil {
		return nil, fmt.Errorf("rbac: build catalog: %w", err)
	}

	roles := make([]RoleDefinition, 0, len(p.Roles))
	for _, spec := range p.Roles {
		roles = append(roles, RoleDefinition{
			Code:        Role(spec.Code),
			Rank:        spec.Rank,
			Description: spec.Description,
			Grants:      toPermissions(spec.Grants),
			Denies:      toPermissions(spec.Denies),
		})
	}
	registry, err := NewRegistry(roles...)
	if err != nil {
		return nil, fmt.Errorf("rbac: build registry: %w", err)
	}

	rules := make([]RouteRule, 0, len(p.Routes))
	for _, spec := range p.Routes {
		rules = append(rules, RouteRule{Pattern: spec.Pattern, AnyOf: toPermissions(spec.AnyOf), Public: spec.Public})
	}
	authorizer, err := NewAuthorizer(catalog, registry, rules)
	if err != nil {
		return nil, fmt.Errorf("rbac: build authorizer: %w", err)
	}

	scenarios := make([]Scenario, 0, len(p.Scenarios))
	for _, spec := range p.Scenarios {
		scenarios = append(scenarios, Scenario{
			Name:       spec.Name,
			Role:       Role(spec.Role),
			Permission: Permission(spec.Permission),
			Route:      spec.Route,
			Expect:     spec.Expect,
		})
	}

	fingerprint, err := p.Fingerprint()
	if err != nil {
		return nil, err
	}
	return &Engine{
		Policy:      p,
		Version:     p.Version,
		Catalog:     catalog,
		Registry:    registry,
		Authorizer:  authorizer,
		Scenarios:   scenarios,
		Fingerprint: fingerprint,
	}, nil
}

// Fingerprint identifies a policy revision by the blake2b-256 digest of its
// JSON encoding.
func (p Policy) Fingerprint() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("rbac: encode policy: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Checker returns a Checker over the engine tables including its scenarios.
func (e *Engine) Checker() *Checker {
	return NewChecker(e.Catalog, e.Registry, WithScenarios(e.Authorizer, e.Scenarios))
}

// Audit runs the governance checker.
func (e *Engine) Audit() Report {
	return e.Checker().Check()
}

func toPermissions(ids []string) []Permission {
	if len(ids) == 0 {
		return nil
	}
	out := make([]Permission, 0, len(ids))
	for _, id := range ids {
		out = append(out, Permission(id))
	}
	return out
}
