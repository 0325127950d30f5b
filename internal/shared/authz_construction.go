package shared

// Construction governance permissions declared for RBAC.
const (
	PermGovernanceView    = "view_governance"
	PermTendersManage     = "manage_tenders"
	PermTendersApprove    = "approve_tenders"
	PermTORPublish        = "publish_tor"
	PermProjectsView      = "view_projects"
	PermProjectsEdit      = "edit_projects"
	PermProjectsApprove   = "approve_projects"
	PermInspectionsView   = "view_inspections"
	PermInspectionsPlan   = "schedule_inspections"
	PermInspectionsReport = "file_inspection_reports"
	PermZoningView        = "view_zoning"
	PermZoningReview      = "review_zoning"
	PermZoningApprove     = "approve_zoning"
)

// ConstructionScopes lists all permissions related to governance, projects,
// inspections and zoning.
func ConstructionScopes() []string {
	return []string{
		PermGovernanceView,
		PermTendersManage,
		PermTendersApprove,
		PermTORPublish,
		PermProjectsView,
		PermProjectsEdit,
		PermProjectsApprove,
		PermInspectionsView,
		PermInspectionsPlan,
		PermInspectionsReport,
		PermZoningView,
		PermZoningReview,
		PermZoningApprove,
	}
}
