package permission

import "testing"

func TestEvaluatorAllowed(t *testing.T) {
	editor := NewPrincipal("u-1", "ed@example.com", "Ed", []string{"ROLE_EDITOR"}, []string{"content_write", "CONTENT_READ"})
	generic := NewPrincipal("u-2", "g@example.com", "", nil, []string{"READ"})
	anonymous := Principal{}

	cases := []struct {
		name string
		p    Principal
		req  Requirement
		want bool
	}{
		{"exact", editor, Need("content", "write"), true},
		{"lowercase input", editor, Need("Content", "read"), true},
		{"missing", editor, Need("content", "delete"), false},
		{"bare name", editor, Named("content_read"), true},
		{"generic action", generic, Need("audit", "read"), true},
		{"generic does not cover write", generic, Need("audit", "write"), false},
		{"self read", editor, Need("user", "read").On("u-1"), true},
		{"self write plural", editor, Need("users", "WRITE").On("u-1"), true},
		{"self delete denied", editor, Need("users", "delete").On("u-1"), false},
		{"other account", editor, Need("users", "read").On("u-9"), false},
		{"self without target", editor, Need("users", "read"), false},
		{"self on other resource", editor, Need("sessions", "read").On("u-1"), false},
		{"anonymous", anonymous, Need("content", "read"), false},
		{"empty action", editor, Requirement{Resource: "content"}, false},
	}

	var ev Evaluator
	for _, tc := range cases {
		if got := ev.Allowed(tc.p, tc.req); got != tc.want {
			t.Fatalf("%s: Allowed(%s)=%v, want %v", tc.name, tc.req, got, tc.want)
		}
	}
}

func TestPrincipalRoleHelpers(t *testing.T) {
	p := NewPrincipal("u-1", "", "", []string{"ROLE_ADMIN", " role_viewer "}, []string{"USERS_READ", "AUDIT_READ"})

	if !p.HasRole("ADMIN") || !p.HasRole("ROLE_ADMIN") || !p.HasRole("viewer") {
		t.Fatal("expected prefix-insensitive role match")
	}
	if p.HasRole("EDITOR") || p.HasAnyRole("EDITOR", "SUPER_ADMIN") {
		t.Fatal("unexpected role match")
	}
	if !p.HasAnyRole("EDITOR", "VIEWER") {
		t.Fatal("expected HasAnyRole match")
	}
	if !p.HasAnyPermission("x", "audit_read") || p.HasAnyPermission("x", "y") {
		t.Fatal("unexpected HasAnyPermission result")
	}
	if !p.HasAllPermissions("USERS_READ", "AUDIT_READ") || p.HasAllPermissions("USERS_READ", "USERS_WRITE") {
		t.Fatal("unexpected HasAllPermissions result")
	}
	if p.HasAllPermissions() {
		t.Fatal("empty HasAllPermissions must not be satisfied")
	}
	if got := p.Roles.Names(); len(got) != 2 || got[0] != "ROLE_ADMIN" || got[1] != "ROLE_VIEWER" {
		t.Fatalf("unexpected role names: %v", got)
	}
}

func TestDefaultCatalog(t *testing.T) {
	reg, roles, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !reg.Frozen() {
		t.Fatal("expected frozen registry")
	}
	if _, err := reg.Register("x", "y", ""); err == nil {
		t.Fatal("expected register on frozen registry to fail")
	}
	if roles.Count() != 4 {
		t.Fatalf("expected 4 roles, got %d", roles.Count())
	}

	super, ok := roles.Role(RoleSuperAdmin)
	if !ok || len(super.Permissions) != reg.Count() {
		t.Fatalf("super admin must hold every permission: %d of %d", len(super.Permissions), reg.Count())
	}
	viewer, _ := roles.Role(RoleViewer)
	if names := viewer.PermissionNames(); len(names) != 1 || names[0] != "CONTENT_READ" {
		t.Fatalf("unexpected viewer permissions: %v", names)
	}
	if _, err := roles.RegisterRole("ROLE_LATE", ""); err == nil {
		t.Fatal("expected frozen role manager")
	}
}

func TestRoleManagerRejectsUnknownPermission(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Register("content", "read", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.Register("content", "read", ""); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if _, err := reg.Register("Content-X", "read", ""); err == nil {
		t.Fatal("expected invalid resource error")
	}

	rm := NewRoleManager(reg)
	if _, err := rm.RegisterRole("ROLE_X", "", "CONTENT_WRITE"); err == nil {
		t.Fatal("expected unknown permission error")
	}
	if _, err := rm.RegisterRole("reader", "", "CONTENT_READ"); err == nil {
		t.Fatal("expected invalid role name error")
	}
	role, err := rm.RegisterRole("ROLE_READER", "", "CONTENT_READ")
	if err != nil || !role.Active {
		t.Fatalf("unexpected role %+v err=%v", role, err)
	}
}
