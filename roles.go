package auth

// UserRole is the persisted account role. The platform knows exactly two:
// candidates looking for placements and recruiters running searches.
type UserRole string

const (
	RoleCandidate UserRole = "candidate"
	RoleRecruiter UserRole = "recruiter"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCandidate, RoleRecruiter:
		return true
	default:
		return false
	}
}

// CanPostSearches reports whether this role may create and manage searches
func (r UserRole) CanPostSearches() bool {
	return r == RoleRecruiter
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleCandidate,
		RoleRecruiter,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// NormalizeRole coerces a requested role to one the platform accepts.
// Anything that is not explicitly a recruiter becomes a candidate; the
// caller never gets an error for an unknown role.
func NormalizeRole(roleStr string) UserRole {
	switch UserRole(roleStr) {
	case RoleRecruiter:
		return RoleRecruiter
	default:
		return RoleCandidate
	}
}
