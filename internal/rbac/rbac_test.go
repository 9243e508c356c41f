package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleSuperAdmin, ActionRead, true},
		{RoleSuperAdmin, ActionWrite, true},
		{RoleSuperAdmin, ActionManageAdmins, true},
		{RoleAdmin, ActionRead, true},
		{RoleAdmin, ActionWrite, true},
		{RoleAdmin, ActionManageAdmins, false},
		{Role("viewer"), ActionRead, false},
		{Role(""), ActionWrite, false},
	}
	for _, c := range cases {
		if got := Can(c.role, c.action); got != c.want {
			t.Errorf("Can(%q, %q) = %v, want %v", c.role, c.action, got, c.want)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid(RoleAdmin) || !Valid(RoleSuperAdmin) {
		t.Error("expected known roles to be valid")
	}
	if Valid(Role("editor")) {
		t.Error("expected unknown role to be invalid")
	}
}
