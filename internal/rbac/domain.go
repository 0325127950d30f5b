package rbac

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role identifies a class of platform user. Roles form a closed catalog
// validated when a Registry is constructed.
type Role string

// Known roles shipped with the platform.
const (
	RoleSuperAdmin        Role = "super_admin"
	RoleAdmin             Role = "admin"
	RoleGovernanceOfficer Role = "governance_officer"
	RoleProjectManager    Role = "project_manager"
	RoleInspector         Role = "inspector"
	RoleZoningOfficer     Role = "zoning_officer"
	RoleFreightOperator   Role = "freight_operator"
	RoleSupplier          Role = "supplier"
	RoleInsurer           Role = "insurer"
	RoleContractor        Role = "contractor"
	RoleDonor             Role = "donor"
	RoleViewer            Role = "viewer"
)

// Module groups permissions by platform area.
type Module string

// Platform modules.
const (
	ModuleUsers       Module = "users"
	ModuleRoles       Module = "roles"
	ModuleGovernance  Module = "governance"
	ModuleProjects    Module = "projects"
	ModuleInspections Module = "inspections"
	ModuleFreight     Module = "freight"
	ModuleMaterials   Module = "materials"
	ModuleZoning      Module = "zoning"
	ModuleDonors      Module = "donors"
	ModuleInsurance   Module = "insurance"
	ModuleBilling     Module = "billing"
	ModuleReports     Module = "reports"
	ModuleAPI         Module = "api"
)

// Modules returns every known module in declaration order.
func Modules() []Module {
	return []Module{
		ModuleUsers,
		ModuleRoles,
		ModuleGovernance,
		ModuleProjects,
		ModuleInspections,
		ModuleFreight,
		ModuleMaterials,
		ModuleZoning,
		ModuleDonors,
		ModuleInsurance,
		ModuleBilling,
		ModuleReports,
		ModuleAPI,
	}
}

// Valid reports whether m is one of the platform modules.
func (m Module) Valid() bool {
	for _, known := range Modules() {
		if m == known {
			return true
		}
	}
	return false
}

var titleCaser = cases.Title(language.English)

// DisplayName renders the module for humans, e.g. "Inspections".
func (m Module) DisplayName() string {
	if m == ModuleAPI {
		return "API"
	}
	return titleCaser.String(string(m))
}

// Permission identifies an allowed action on a module, e.g. "manage_users".
type Permission string

// PermissionDefinition describes a catalog entry.
type PermissionDefinition struct {
	ID          Permission   `json:"id"`
	Module      Module       `json:"module"`
	Description string       `json:"description"`
	Requires    []Permission `json:"requires,omitempty"`
}

// RoleDefinition describes a role and its assignment.
type RoleDefinition struct {
	Code        Role         `json:"code"`
	Rank        int          `json:"rank"`
	Description string       `json:"description"`
	Grants      []Permission `json:"grants"`
	Denies      []Permission `json:"denies,omitempty"`
}

// RouteRule gates a route prefix behind any of the listed permissions.
type RouteRule struct {
	Pattern string       `json:"pattern"`
	AnyOf   []Permission `json:"any_of,omitempty"`
	Public  bool         `json:"public,omitempty"`
}

// Reason explains an authorization decision.
type Reason string

// Decision reasons.
const (
	ReasonGranted        Reason = "granted"
	ReasonDenied         Reason = "denied"
	ReasonNotGranted     Reason = "not_granted"
	ReasonNoMatchingRule Reason = "no_matching_rule"
	ReasonUnknownRole    Reason = "unknown_role"
	ReasonPublic         Reason = "public"
)

// Decision is the structured outcome of an authorization query.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Role    Role   `json:"role"`
	Subject string `json:"subject"`
	Reason  Reason `json:"reason"`
	Rule    string `json:"rule,omitempty"`
}

func deny(role Role, subject string, reason Reason) Decision {
	return Decision{Allowed: false, Role: role, Subject: subject, Reason: reason}
}
