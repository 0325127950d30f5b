package shared

// Freight and materials permissions.
const (
	PermFreightView      = "view_freight"
	PermShipmentsManage  = "manage_shipments"
	PermFreightDocsIssue = "issue_freight_documents"
	PermMaterialsView    = "view_materials"
	PermMaterialsManage  = "manage_materials"
	PermMaterialsCertify = "certify_materials"
)

// LogisticsScopes lists all permissions related to freight and materials.
func LogisticsScopes() []string {
	return []string{
		PermFreightView,
		PermShipmentsManage,
		PermFreightDocsIssue,
		PermMaterialsView,
		PermMaterialsManage,
		PermMaterialsCertify,
	}
}
