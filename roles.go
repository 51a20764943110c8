package identity

// AccountRole is the account's global role. The set is closed: roles are
// assigned at creation and only mutable by out-of-band administrative action.
type AccountRole string

const (
	// RoleUser is the default role assigned at registration
	RoleUser AccountRole = "user"
	// RoleAdmin can suspend other accounts and search the directory
	RoleAdmin AccountRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r AccountRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether this role grants administrative access
func (r AccountRole) IsAdmin() bool {
	return r == RoleAdmin
}

// IsAtLeast checks if this role meets the minimum required level
func (r AccountRole) IsAtLeast(minRole AccountRole) bool {
	roleHierarchy := map[AccountRole]int{
		RoleUser:  0,
		RoleAdmin: 1,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []AccountRole {
	return []AccountRole{RoleUser, RoleAdmin}
}

// ParseRole safely parses a string into an AccountRole
func ParseRole(roleStr string) (AccountRole, bool) {
	role := AccountRole(roleStr)
	return role, role.IsValid()
}
