package model

// Permission codes checked by this service's own routes. The full
// catalog lives with the operator console.
const (
	PermissionStaffAdmin = "staff.admin"
)
