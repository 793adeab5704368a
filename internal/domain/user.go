package domain

import "time"

// Role enumerates the access levels an account can hold.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may see restricted comments and resolve tickets.
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdmin
}

// User is the domain model for accounts. Moderators and admins are regular
// users with an elevated role; their skills list feeds triage assignment.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Skills       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
