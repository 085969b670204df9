package models

import "time"

// UserRole is the closed set of dashboard roles.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Capability names an action a role may perform.
type Capability string

const (
	CapManageAssignments  Capability = "assignments:manage"
	CapGradeSubmissions   Capability = "submissions:grade"
	CapViewAllSubmissions Capability = "submissions:view_all"
	CapSubmitWork         Capability = "submissions:submit"
)

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleAdmin: {
		CapManageAssignments:  {},
		CapGradeSubmissions:   {},
		CapViewAllSubmissions: {},
		CapSubmitWork:         {},
	},
	RoleTeacher: {
		CapManageAssignments:  {},
		CapGradeSubmissions:   {},
		CapViewAllSubmissions: {},
		CapSubmitWork:         {},
	},
	RoleStudent: {
		CapSubmitWork: {},
	},
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role carries the capability. Unknown roles carry nothing.
func (r UserRole) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// IsStudent is true for callers whose views are restricted to their own submissions.
func (r UserRole) IsStudent() bool {
	return r == RoleStudent
}

// User represents an account allowed to sign in to the dashboard.
type User struct {
	ID           string    `db:"id" bson:"-" json:"id"`
	Email        string    `db:"email" bson:"email" json:"email"`
	PasswordHash string    `db:"password_hash" bson:"passwordHash" json:"-"`
	FullName     string    `db:"full_name" bson:"fullName" json:"full_name"`
	Role         UserRole  `db:"role" bson:"role" json:"role"`
	Active       bool      `db:"active" bson:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" bson:"updatedAt" json:"updated_at"`
}
