package models

// Role names carried in access tokens
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	Username  string
	Roles     []string
	IPAddress string
	UserAgent string
}

// SystemActor is used for scheduled work
var SystemActor = Actor{Username: "system", Roles: []string{RoleAdmin}, UserAgent: "cron"}

// HasRole reports whether the actor holds role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor is an admin
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// IsManager reports whether the actor may manage other employees
func (a Actor) IsManager() bool {
	return a.HasRole(RoleManager) || a.HasRole(RoleAdmin)
}

// CanActFor reports whether the actor may act on employeeID's records.
// Technicians may only act for themselves.
func (a Actor) CanActFor(employeeID string) bool {
	return a.IsManager() || a.Username == employeeID
}
