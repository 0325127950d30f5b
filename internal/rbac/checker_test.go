package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyHasNoViolations(t *testing.T) {
	engine := defaultEngine(t)
	report := engine.Audit()
	require.True(t, report.OK(), "violations: %v", report.Violations)
	require.Zero(t, report.Count(ViolationDanglingPermission))
	require.Equal(t, len(engine.Registry.Codes()), report.RolesChecked)
	require.Equal(t, engine.Catalog.Len(), report.PermissionsChecked)
	require.Equal(t, len(engine.Scenarios), report.ScenariosChecked)
	require.NotNil(t, report.Violations)
}

func brokenTables(t *testing.T) (*Catalog, *Registry) {
	t.Helper()
	catalog, err := NewCatalog(
		PermissionDefinition{ID: "view_projects", Module: ModuleProjects},
		PermissionDefinition{ID: "approve_projects", Module: ModuleProjects, Requires: []Permission{"view_projects"}},
		PermissionDefinition{ID: "manage_roles", Module: ModuleRoles},
		PermissionDefinition{ID: "review_zoning", Module: ModuleZoning, Requires: []Permission{"approve_zoning"}},
		PermissionDefinition{ID: "approve_zoning", Module: ModuleZoning, Requires: []Permission{"review_zoning"}},
		PermissionDefinition{ID: "issue_waybills", Module: ModuleFreight, Requires: []Permission{"track_freight"}},
	)
	require.NoError(t, err)
	registry, err := NewRegistry(
		RoleDefinition{
			Code:   "manager",
			Rank:   50,
			Grants: []Permission{"manage_roles", "view_projects", "view_projects", "teleport"},
		},
		RoleDefinition{
			Code:   "approver",
			Rank:   20,
			Grants: []Permission{"approve_projects", "view_projects"},
			Denies: []Permission{"view_projects"},
		},
	)
	require.NoError(t, err)
	return catalog, registry
}

func TestCheckerReportsEveryKind(t *testing.T) {
	catalog, registry := brokenTables(t)
	a, err := NewAuthorizer(catalog, registry, nil)
	require.NoError(t, err)
	checker := NewChecker(catalog, registry, WithScenarios(a, []Scenario{
		{Name: "approver approves", Role: "approver", Permission: "approve_projects", Expect: false},
	}))

	report := checker.Check()
	require.False(t, report.OK())

	byKind := report.ByKind()
	require.Equal(t, []Violation{{
		Kind: ViolationDanglingPermission, Role: "manager", Permission: "teleport",
		Detail: "grant references a permission outside the catalog",
	}}, byKind[ViolationDanglingPermission])
	require.Equal(t, []Violation{{
		Kind: ViolationDuplicateAssignment, Role: "manager", Permission: "view_projects",
		Detail: "grant listed 2 times",
	}}, byKind[ViolationDuplicateAssignment])
	require.Equal(t, []Violation{{
		Kind: ViolationContradictoryAssignment, Role: "approver", Permission: "view_projects",
		Detail: "permission is both granted and denied",
	}}, byKind[ViolationContradictoryAssignment])
	require.Equal(t, []Violation{{
		Kind: ViolationMissingPrerequisite, Role: "approver", Permission: "approve_projects",
		Detail: "requires view_projects",
	}}, byKind[ViolationMissingPrerequisite])
	require.Equal(t, []Violation{{
		Kind: ViolationDanglingPrerequisite, Permission: "issue_waybills",
		Detail: "requires unknown permission track_freight",
	}}, byKind[ViolationDanglingPrerequisite])

	cycles := byKind[ViolationPrerequisiteCycle]
	require.Len(t, cycles, 2)
	require.Equal(t, Permission("approve_zoning"), cycles[0].Permission)
	require.Equal(t, Permission("review_zoning"), cycles[1].Permission)

	inversions := byKind[ViolationSeniorityInversion]
	require.Len(t, inversions, 1)
	require.Equal(t, Role("manager"), inversions[0].Role)
	require.Equal(t, Permission("approve_projects"), inversions[0].Permission)

	mismatches := byKind[ViolationScenarioMismatch]
	require.Len(t, mismatches, 1)
	require.Contains(t, mismatches[0].Detail, `scenario "approver approves" expected allowed=false, got allowed=true`)
}

func TestCheckerIsIdempotent(t *testing.T) {
	catalog, registry := brokenTables(t)
	checker := NewChecker(catalog, registry)

	first := checker.Check()
	second := checker.Check()
	require.Equal(t, first, second)
	require.NotEmpty(t, first.Violations)
}

func TestCheckerDoesNotMutateRegistry(t *testing.T) {
	catalog, registry := brokenTables(t)
	before := registry.Roles()
	NewChecker(catalog, registry).Check()
	require.Equal(t, before, registry.Roles())
}

func TestCheckerViolationsSorted(t *testing.T) {
	catalog, registry := brokenTables(t)
	report := NewChecker(catalog, registry).Check()
	for i := 1; i < len(report.Violations); i++ {
		prev, cur := report.Violations[i-1], report.Violations[i]
		require.LessOrEqual(t, string(prev.Kind), string(cur.Kind))
	}
}

func TestCheckerDeniedDanglingPermission(t *testing.T) {
	catalog, err := NewCatalog(PermissionDefinition{ID: "view_projects", Module: ModuleProjects})
	require.NoError(t, err)
	registry, err := NewRegistry(RoleDefinition{
		Code: "viewer", Rank: 1,
		Grants: []Permission{"view_projects"},
		Denies: []Permission{"view_projcts"},
	})
	require.NoError(t, err)

	report := NewChecker(catalog, registry).Check()
	require.Equal(t, 1, report.Count(ViolationDanglingPermission))
	require.Equal(t, "deny references a permission outside the catalog", report.Violations[0].Detail)
}

func TestViolationString(t *testing.T) {
	v := Violation{Kind: ViolationMissingPrerequisite, Role: "approver", Permission: "approve_projects", Detail: "requires view_projects"}
	require.Equal(t, "MissingPrerequisite role=approver permission=approve_projects: requires view_projects", v.String())
	require.Len(t, ViolationKinds(), 8)
}

func TestCheckerTreatsNilTablesAsEmpty(t *testing.T) {
	report := NewChecker(nil, nil).Check()
	require.True(t, report.OK())
	require.Zero(t, report.RolesChecked)
	require.Zero(t, report.PermissionsChecked)

	registry, err := NewRegistry(RoleDefinition{Code: "viewer", Rank: 10, Grants: []Permission{"view_projects"}})
	require.NoError(t, err)
	report = NewChecker(nil, registry).Check()
	require.Equal(t, 1, report.Count(ViolationDanglingPermission))
	require.Equal(t, 1, report.RolesChecked)
}
