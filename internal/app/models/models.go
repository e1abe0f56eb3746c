package models

// RoleType defines the user role type
type RoleType string

const (
	RoleMember       RoleType = "MEMBER"
	RolePractitioner RoleType = "PRACTITIONER"
	RoleOps          RoleType = "OPS"
)

// Valid reports whether r is a known role
func (r RoleType) Valid() bool {
	switch r {
	case RoleMember, RolePractitioner, RoleOps:
		return true
	}
	return false
}

// SelfRegistrable reports whether users may sign up with this role
func (r RoleType) SelfRegistrable() bool {
	return r == RoleMember || r == RolePractitioner
}
