package models

// Form option lists for the shutdown event. The presentation layer renders
// these read-only; they are not validated against on write.
var (
	UnitOptions = []string{
		"GCU-1", "GCU-2", "GPU-1", "GPU-2", "HDPE-1", "HDPE-2",
		"LLDPE-1", "LLDPE-2", "PP-1", "PP-2", "LPG", "SPHERE",
		"YARD", "FLAKER-1", "BOG", "IOP",
	}

	EquipmentTypes = []string{"Pipeline", "Vessel", "Exchanger", "Steam Trap", "Tank"}

	InspectionStatusOptions = []string{
		"Scaffolding Prepared", "Manhole Opened", "NDT in Progress",
		"Insulation Removed", "Manhole Box-up", "Completed",
	}

	FinalStatusOptions = []string{"Not Started", "In Progress", "Completed"}
)

// User record fields beyond the shared audit stamps.
const (
	FieldUsername   = "username"
	FieldApproved   = "approved"
	FieldApprovedBy = "approved_by"
	FieldRole       = "role"
)

// User roles.
const (
	RoleAdmin     = "admin"
	RoleInspector = "inspector"
	RoleViewer    = "viewer"
)

// DefaultAdminUsername is the administrative bootstrap user that must exist
// after every initialization.
const DefaultAdminUsername = "shivam.jha"
