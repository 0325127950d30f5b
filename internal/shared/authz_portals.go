package shared

// Donor and insurance portal permissions.
const (
	PermDonorsView       = "view_donors"
	PermPledgesManage    = "manage_pledges"
	PermDonorReportsView = "view_donor_reports"
	PermPoliciesView     = "view_policies"
	PermClaimsManage     = "manage_claims"
	PermClaimsApprove    = "approve_claims"
)

// PortalScopes lists all permissions exposed through the donor and insurance portals.
func PortalScopes() []string {
	return []string{
		PermDonorsView,
		PermPledgesManage,
		PermDonorReportsView,
		PermPoliciesView,
		PermClaimsManage,
		PermClaimsApprove,
	}
}
