package models

type UserRole string

const (
	RolePatient      UserRole = "patient"
	RolePsychologist UserRole = "psychologist"
	RoleAdmin        UserRole = "admin"
)

// roleTier orders roles for RequireRole checks; higher tiers subsume lower.
var roleTier = map[UserRole]int{
	RolePatient:      1,
	RolePsychologist: 2,
	RoleAdmin:        3,
}

func IsValidRole(role UserRole) bool {
	_, ok := roleTier[role]
	return ok
}

// HasAtLeast reports whether any of the roles meets the required tier.
func HasAtLeast(roles []UserRole, required UserRole) bool {
	need, ok := roleTier[required]
	if !ok {
		return false
	}
	for _, role := range roles {
		if roleTier[role] >= need {
			return true
		}
	}
	return false
}

// NormalizeRoles drops unknown entries and duplicates.
func NormalizeRoles(roles []UserRole) []UserRole {
	seen := make(map[UserRole]struct{}, len(roles))
	normalized := make([]UserRole, 0, len(roles))
	for _, role := range roles {
		if !IsValidRole(role) {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	return normalized
}

// EnsureDefaultRole guarantees at least the patient role.
func EnsureDefaultRole(roles []UserRole) []UserRole {
	if len(roles) == 0 {
		return []UserRole{RolePatient}
	}
	return roles
}
