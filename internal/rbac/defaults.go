package rbac

import (
	"github.com/buildtrust/govern/internal/shared"
)

// PolicyVersion tags the shipped policy.
const PolicyVersion = "2026.10"

// PermManageRoles gates role creation and assignment.
const PermManageRoles = Permission(shared.PermRolesManage)

// DefaultPolicy returns the governance tables shipped with the platform.
func DefaultPolicy() Policy {
	return Policy{
		Version:     PolicyVersion,
		Permissions: defaultPermissions(),
		Roles:       defaultRoles(),
		Routes:      defaultRoutes(),
		Scenarios:   defaultScenarios(),
	}
}

func defaultPermissions() []PermissionSpec {
	perm := func(id string, module Module, description string, requires ...string) PermissionSpec {
		return PermissionSpec{ID: id, Module: string(module), Description: description, Requires: requires}
	}
	return []PermissionSpec{
		perm(shared.PermUsersView, ModuleUsers, "List and inspect platform users"),
		perm(shared.PermUsersManage, ModuleUsers, "Invite, suspend and edit users", shared.PermUsersView),
		perm(shared.PermRolesView, ModuleRoles, "List roles and their permissions"),
		perm(shared.PermRolesManage, ModuleRoles, "Create roles and assign them to users", shared.PermRolesView, shared.PermUsersView),

		perm(shared.PermGovernanceView, ModuleGovernance, "Browse tenders and terms of reference"),
		perm(shared.PermTendersManage, ModuleGovernance, "Draft and edit tenders", shared.PermGovernanceView),
		perm(shared.PermTendersApprove, ModuleGovernance, "Approve tender awards", shared.PermGovernanceView),
		perm(shared.PermTORPublish, ModuleGovernance, "Publish terms of reference", shared.PermTendersManage),

		perm(shared.PermProjectsView, ModuleProjects, "Browse construction projects"),
		perm(shared.PermProjectsEdit, ModuleProjects, "Edit project plans and milestones", shared.PermProjectsView),
		perm(shared.PermProjectsApprove, ModuleProjects, "Approve project milestones", shared.PermProjectsView),

		perm(shared.PermInspectionsView, ModuleInspections, "Browse site inspections"),
		perm(shared.PermInspectionsPlan, ModuleInspections, "Schedule site inspections", shared.PermInspectionsView),
		perm(shared.PermInspectionsReport, ModuleInspections, "File inspection reports", shared.PermInspectionsView),

		perm(shared.PermFreightView, ModuleFreight, "Track freight movements"),
		perm(shared.PermShipmentsManage, ModuleFreight, "Book and update shipments", shared.PermFreightView),
		perm(shared.PermFreightDocsIssue, ModuleFreight, "Issue waybills and customs documents", shared.PermShipmentsManage),

		perm(shared.PermMaterialsView, ModuleMaterials, "Browse the materials register"),
		perm(shared.PermMaterialsManage, ModuleMaterials, "Maintain material listings", shared.PermMaterialsView),
		perm(shared.PermMaterialsCertify, ModuleMaterials, "Certify material test results", shared.PermMaterialsView),

		perm(shared.PermZoningView, ModuleZoning, "Browse zoning applications"),
		perm(shared.PermZoningReview, ModuleZoning, "Review zoning applications", shared.PermZoningView),
		perm(shared.PermZoningApprove, ModuleZoning, "Issue zoning decisions", shared.PermZoningReview),

		perm(shared.PermDonorsView, ModuleDonors, "Browse the donor portal"),
		perm(shared.PermPledgesManage, ModuleDonors, "Record and reconcile pledges", shared.PermDonorsView),
		perm(shared.PermDonorReportsView, ModuleDonors, "Read donor impact reports", shared.PermDonorsView),

		perm(shared.PermPoliciesView, ModuleInsurance, "Browse insurance policies"),
		perm(shared.PermClaimsManage, ModuleInsurance, "Lodge and update claims", shared.PermPoliciesView),
		perm(shared.PermClaimsApprove, ModuleInsurance, "Approve claim settlements", shared.PermClaimsManage),

		perm(shared.PermBillingView, ModuleBilling, "View plans and invoices"),
		perm(shared.PermBillingManage, ModuleBilling, "Change plans and API tiers", shared.PermBillingView),

		perm(shared.PermReportsView, ModuleReports, "Read platform reports"),
		perm(shared.PermReportsExport, ModuleReports, "Export reports", shared.PermReportsView),

		perm(shared.PermAPIUse, ModuleAPI, "Call the public API"),
		perm(shared.PermAPIKeysManage, ModuleAPI, "Issue and revoke API keys", shared.PermAPIUse),
	}
}

func allPermissionIDs() []string {
	var out []string
	out = append(out, shared.CoreScopes()...)
	out = append(out, shared.ConstructionScopes()...)
	out = append(out, shared.LogisticsScopes()...)
	out = append(out, shared.PortalScopes()...)
	return out
}

func without(perms []string, drop ...string) []string {
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := skip[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func defaultRoles() []RoleSpec {
	all := allPermissionIDs()
	return []RoleSpec{
		{
			Code:        string(RoleSuperAdmin),
			Rank:        100,
			Description: "Platform owner",
			Grants:      all,
		},
		{
			Code:        string(RoleAdmin),
			Rank:        90,
			Description: "Tenant administrator",
			Grants:      without(all, shared.PermBillingManage),
		},
		{
			Code:        string(RoleGovernanceOfficer),
			Rank:        70,
			Description: "Runs tenders and publishes terms of reference",
			Grants: []string{
				shared.PermGovernanceView, shared.PermTendersManage, shared.PermTendersApprove, shared.PermTORPublish,
				shared.PermProjectsView, shared.PermProjectsApprove,
				shared.PermInspectionsView, shared.PermZoningView,
				shared.PermReportsView, shared.PermReportsExport,
			},
		},
		{
			Code:        string(RoleProjectManager),
			Rank:        60,
			Description: "Plans and tracks construction projects",
			Grants: []string{
				shared.PermGovernanceView, shared.PermProjectsView, shared.PermProjectsEdit,
				shared.PermInspectionsView, shared.PermInspectionsPlan,
				shared.PermMaterialsView, shared.PermReportsView,
			},
		},
		{
			Code:        string(RoleInspector),
			Rank:        50,
			Description: "Performs site inspections",
			Grants: []string{
				shared.PermProjectsView, shared.PermInspectionsView, shared.PermInspectionsReport,
				shared.PermMaterialsView, shared.PermMaterialsCertify,
			},
		},
		{
			Code:        string(RoleZoningOfficer),
			Rank:        50,
			Description: "Reviews and decides zoning applications",
			Grants: []string{
				shared.PermZoningView, shared.PermZoningReview, shared.PermZoningApprove, shared.PermProjectsView,
			},
		},
		{
			Code:        string(RoleFreightOperator),
			Rank:        40,
			Description: "Moves materials to site",
			Grants: []string{
				shared.PermFreightView, shared.PermShipmentsManage, shared.PermFreightDocsIssue,
				shared.PermMaterialsView, shared.PermAPIUse,
			},
		},
		{
			Code:        string(RoleSupplier),
			Rank:        40,
			Description: "Lists and supplies materials",
			Grants: []string{
				shared.PermMaterialsView, shared.PermMaterialsManage, shared.PermFreightView, shared.PermAPIUse,
			},
		},
		{
			Code:        string(RoleInsurer),
			Rank:        30,
			Description: "Underwrites projects and settles claims",
			Grants: []string{
				shared.PermPoliciesView, shared.PermClaimsManage, shared.PermClaimsApprove,
				shared.PermProjectsView, shared.PermAPIUse,
			},
		},
		{
			Code:        string(RoleContractor),
			Rank:        30,
			Description: "Delivers project work",
			Grants: []string{
				shared.PermProjectsView, shared.PermInspectionsView, shared.PermMaterialsView,
			},
		},
		{
			Code:        string(RoleDonor),
			Rank:        20,
			Description: "Funds projects through the donor portal",
			Grants: []string{
				shared.PermDonorsView, shared.PermDonorReportsView, shared.PermProjectsView,
			},
			Denies: []string{shared.PermReportsExport},
		},
		{
			Code:        string(RoleViewer),
			Rank:        10,
			Description: "Read-only observer",
			Grants:      []string{shared.PermProjectsView, shared.PermReportsView},
		},
	}
}

func defaultRoutes() []RouteSpec {
	route := func(pattern string, anyOf ...string) RouteSpec {
		return RouteSpec{Pattern: pattern, AnyOf: anyOf}
	}
	return []RouteSpec{
		{Pattern: "/healthz", Public: true},
		route("/admin", shared.PermUsersManage, shared.PermRolesManage),
		route("/admin/billing", shared.PermBillingManage),
		route("/governance", shared.PermGovernanceView),
		route("/governance/tenders", shared.PermTendersManage, shared.PermTendersApprove),
		route("/governance/tor", shared.PermTORPublish),
		route("/projects", shared.PermProjectsView),
		route("/projects/*/edit", shared.PermProjectsEdit),
		route("/projects/*/approve", shared.PermProjectsApprove),
		route("/inspections", shared.PermInspectionsView),
		route("/inspections/schedule", shared.PermInspectionsPlan),
		route("/inspections/reports", shared.PermInspectionsReport),
		route("/zoning", shared.PermZoningView),
		route("/zoning/*/review", shared.PermZoningReview),
		route("/zoning/*/decision", shared.PermZoningApprove),
		route("/freight", shared.PermFreightView),
		route("/freight/shipments", shared.PermShipmentsManage),
		route("/freight/documents", shared.PermFreightDocsIssue),
		route("/materials", shared.PermMaterialsView),
		route("/materials/listings", shared.PermMaterialsManage),
		route("/materials/certifications", shared.PermMaterialsCertify),
		route("/donors", shared.PermDonorsView),
		route("/donors/pledges", shared.PermPledgesManage),
		route("/donors/reports", shared.PermDonorReportsView),
		route("/insurance", shared.PermPoliciesView),
		route("/insurance/claims", shared.PermClaimsManage),
		route("/insurance/claims/*/approve", shared.PermClaimsApprove),
		route("/billing", shared.PermBillingView),
		route("/reports", shared.PermReportsView),
		route("/reports/export", shared.PermReportsExport),
		route("/api", shared.PermAPIUse),
		route("/api/keys", shared.PermAPIKeysManage),
	}
}

func defaultScenarios() []ScenarioSpec {
	return []ScenarioSpec{
		{Name: "admin manages users", Role: string(RoleAdmin), Permission: shared.PermUsersManage, Expect: true},
		{Name: "donor cannot manage users", Role: string(RoleDonor), Permission: shared.PermUsersManage, Expect: false},
		{Name: "donor kept out of admin hub", Role: string(RoleDonor), Route: "/admin/hub", Expect: false},
		{Name: "donor cannot export reports", Role: string(RoleDonor), Permission: shared.PermReportsExport, Expect: false},
		{Name: "inspector files reports", Role: string(RoleInspector), Route: "/inspections/reports", Expect: true},
		{Name: "freight operator issues documents", Role: string(RoleFreightOperator), Route: "/freight/documents", Expect: true},
		{Name: "zoning officer cannot run tenders", Role: string(RoleZoningOfficer), Route: "/governance/tenders", Expect: false},
		{Name: "admin cannot change billing plans", Role: string(RoleAdmin), Route: "/admin/billing", Expect: false},
		{Name: "governance officer publishes TOR", Role: string(RoleGovernanceOfficer), Route: "/governance/tor/2026-04", Expect: true},
	}
}
