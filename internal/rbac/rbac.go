package rbac

type Role string
type Action string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

const (
	ActionRead         Action = "read"
	ActionWrite        Action = "write"
	ActionManageAdmins Action = "manage_admins"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return action == ActionRead || action == ActionWrite
	default:
		return false
	}
}

// Valid reports whether the role is one this system knows.
func Valid(role Role) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}
