package auth

// Package auth contains domain-level types for the console session core.
// It is pure and free of framework/adapter concerns.

// Role represents the console's authorization level.
// Keep string form for easy persistence and wire transport.
// Exactly one role is active once resolution completes; never empty afterwards.
type Role string

const (
	RoleSuperAdmin  Role = "SuperAdmin"
	RoleClientAdmin Role = "ClientAdmin"
	RoleUserAdmin   Role = "UserAdmin"
)

// RoleFromTokenName maps a role name carried in token claims to a Role.
// Token role names are 1:1 with our role constants.
func RoleFromTokenName(name string) (Role, bool) {
	switch name {
	case "SuperAdmin":
		return RoleSuperAdmin, true
	case "ClientAdmin":
		return RoleClientAdmin, true
	case "UserAdmin":
		return RoleUserAdmin, true
	default:
		return "", false
	}
}

// RoleFromProfileValue maps the backend profile's role field to a Role.
// The backend uses lowerCamel wire values; "user" maps to UserAdmin.
func RoleFromProfileValue(value string) (Role, bool) {
	switch value {
	case "superAdmin":
		return RoleSuperAdmin, true
	case "clientAdmin":
		return RoleClientAdmin, true
	case "user":
		return RoleUserAdmin, true
	default:
		return "", false
	}
}
