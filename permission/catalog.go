package permission

// Built-in role names.
const (
	RoleViewer     = "ROLE_VIEWER"
	RoleEditor     = "ROLE_EDITOR"
	RoleAdmin      = "ROLE_ADMIN"
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
)

type permissionDef struct {
	resource, action, description string
}

var defaultPermissions = []permissionDef{
	{"users", "read", "View operator accounts"},
	{"users", "write", "Create and edit operator accounts"},
	{"users", "delete", "Delete operator accounts"},
	{"users", "manage", "Full control over operator accounts"},
	{"roles", "read", "View roles and permissions"},
	{"roles", "manage", "Assign and remove roles"},
	{"sessions", "read", "View active sessions"},
	{"sessions", "revoke", "Revoke sessions of other accounts"},
	{"audit", "read", "Read the security audit log"},
	{"system", "config", "Change system configuration"},
	{"system", "logs", "Read system logs"},
	{"system", "monitor", "View health and metrics"},
	{"system", "backup", "Run and restore backups"},
	{"content", "read", "Read managed content"},
	{"content", "write", "Create and edit content"},
	{"content", "delete", "Delete content"},
	{"content", "review", "Review submitted content"},
	{"content", "moderate", "Moderate published content"},
	{"content", "publish", "Publish content"},
}

type roleDef struct {
	name, description string
	permissions       []string
}

var defaultRoles = []roleDef{
	{RoleViewer, "Read-only access", []string{"CONTENT_READ"}},
	{RoleEditor, "Content editing", []string{
		"CONTENT_READ", "CONTENT_WRITE", "CONTENT_DELETE", "CONTENT_REVIEW",
	}},
	{RoleAdmin, "Day-to-day administration", []string{
		"USERS_READ", "USERS_WRITE", "ROLES_READ", "SESSIONS_READ", "SESSIONS_REVOKE", "AUDIT_READ",
		"CONTENT_READ", "CONTENT_WRITE", "CONTENT_DELETE", "CONTENT_REVIEW", "CONTENT_MODERATE", "CONTENT_PUBLISH",
		"SYSTEM_MONITOR", "SYSTEM_LOGS",
	}},
}

// DefaultCatalog returns frozen registries holding the built-in permission
// set and the four built-in roles. ROLE_SUPER_ADMIN is granted every
// registered permission.
func DefaultCatalog() (*Registry, *RoleManager, error) {
	reg := NewRegistry()
	for _, d := range defaultPermissions {
		if _, err := reg.Register(d.resource, d.action, d.description); err != nil {
			return nil, nil, err
		}
	}
	reg.Freeze()

	roles := NewRoleManager(reg)
	for _, d := range defaultRoles {
		if _, err := roles.RegisterRole(d.name, d.description, d.permissions...); err != nil {
			return nil, nil, err
		}
	}
	all := make([]string, 0, reg.Count())
	for _, p := range reg.Permissions() {
		all = append(all, p.Name)
	}
	if _, err := roles.RegisterRole(RoleSuperAdmin, "Unrestricted access", all...); err != nil {
		return nil, nil, err
	}
	roles.Freeze()

	return reg, roles, nil
}
