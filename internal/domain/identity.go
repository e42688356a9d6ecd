package domain

type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleOrganizer Role = "organizer"
)

// Identity is the authenticated caller as established by the auth
// collaborator. It is passed by value into the core; no lookups happen here.
type Identity struct {
	UserID string
	Role   Role
}
