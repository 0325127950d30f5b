package shared

// Core platform permissions.
const (
	PermUsersView   = "view_users"
	PermUsersManage = "manage_users"

	PermRolesView   = "view_roles"
	PermRolesManage = "manage_roles"

	PermBillingView   = "view_billing"
	PermBillingManage = "manage_billing"

	PermReportsView   = "view_reports"
	PermReportsExport = "export_reports"

	PermAPIUse        = "use_api"
	PermAPIKeysManage = "manage_api_keys"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersManage,
		PermRolesView,
		PermRolesManage,
		PermBillingView,
		PermBillingManage,
		PermReportsView,
		PermReportsExport,
		PermAPIUse,
		PermAPIKeysManage,
	}
}
