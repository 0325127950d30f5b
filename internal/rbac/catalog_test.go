package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog(
		PermissionDefinition{ID: "view_users", Module: ModuleUsers},
		PermissionDefinition{ID: "view_users", Module: ModuleUsers},
	)
	require.ErrorIs(t, err, ErrDuplicatePermission)
}

func TestNewCatalogValidatesDefinitions(t *testing.T) {
	_, err := NewCatalog(PermissionDefinition{ID: " ", Module: ModuleUsers})
	require.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = NewCatalog(PermissionDefinition{ID: "fly", Module: "aviation"})
	require.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestCatalogListPermissionsSortedCopy(t *testing.T) {
	catalog, err := NewCatalog(
		PermissionDefinition{ID: "manage_users", Module: ModuleUsers, Requires: []Permission{"view_users"}},
		PermissionDefinition{ID: "view_users", Module: ModuleUsers},
		PermissionDefinition{ID: "use_api", Module: ModuleAPI},
	)
	require.NoError(t, err)

	list := catalog.ListPermissions()
	require.Len(t, list, 3)
	require.Equal(t, Permission("manage_users"), list[0].ID)
	require.Equal(t, Permission("use_api"), list[1].ID)
	require.Equal(t, Permission("view_users"), list[2].ID)

	list[0].Requires[0] = "tampered"
	def, err := catalog.Lookup("manage_users")
	require.NoError(t, err)
	require.Equal(t, []Permission{"view_users"}, def.Requires)
}

func TestCatalogLookupUnknown(t *testing.T) {
	catalog, err := NewCatalog(PermissionDefinition{ID: "view_users", Module: ModuleUsers})
	require.NoError(t, err)

	_, err = catalog.Lookup("launch_rockets")
	require.ErrorIs(t, err, ErrUnknownPermission)
	var unknown *UnknownPermissionError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, Permission("launch_rockets"), unknown.Permission)
	require.False(t, catalog.Contains("launch_rockets"))

	var nilCatalog *Catalog
	require.False(t, nilCatalog.Contains("view_users"))
}

func TestCatalogModules(t *testing.T) {
	catalog, err := NewCatalog(
		PermissionDefinition{ID: "use_api", Module: ModuleAPI},
		PermissionDefinition{ID: "view_users", Module: ModuleUsers},
		PermissionDefinition{ID: "manage_users", Module: ModuleUsers},
	)
	require.NoError(t, err)

	require.Equal(t, []Module{ModuleUsers, ModuleAPI}, catalog.Modules())
	byModule := catalog.ByModule(ModuleUsers)
	require.Len(t, byModule, 2)
	require.Equal(t, Permission("manage_users"), byModule[0].ID)
	require.Empty(t, catalog.ByModule(ModuleZoning))
}

func TestDefaultCatalogCoversEveryModule(t *testing.T) {
	engine := defaultEngine(t)
	require.Equal(t, Modules(), engine.Catalog.Modules())
	for _, def := range engine.Catalog.ListPermissions() {
		require.NotEmpty(t, def.Description, "permission %s", def.ID)
	}
}

func TestModuleDisplayName(t *testing.T) {
	require.Equal(t, "Inspections", ModuleInspections.DisplayName())
	require.Equal(t, "API", ModuleAPI.DisplayName())
	require.True(t, ModuleDonors.Valid())
	require.False(t, Module("payroll").Valid())
}
