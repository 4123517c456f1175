package domain

// Role is a user's access level. Roles are totally ordered: admin > manager > user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

var roleRank = map[Role]int{
	RoleUser:    1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank is the ordinal of the role, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRank[r]
}

// ParseRole maps a raw value to a Role, falling back to the lowest privilege.
func ParseRole(s string) Role {
	if r := Role(s); r.IsValid() {
		return r
	}
	return RoleUser
}

// HasPermission reports whether actual grants at least the privileges of required.
func HasPermission(actual, required Role) bool {
	if !actual.IsValid() || !required.IsValid() {
		return false
	}
	return actual.Rank() >= required.Rank()
}
