package auth

import "testing"

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if !role.Valid() {
			t.Fatalf("unexpected role %s", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestCan(t *testing.T) {
	tests := []struct {
		role Role
		perm string
		want bool
	}{
		{RoleAdmin, PermPayrollManage, true},
		{RoleAdmin, PermAttendanceCheckIn, false},
		{RoleEmployee, PermPayrollRead, true},
		{RoleEmployee, PermPayrollManage, false},
		{RoleEmployee, PermLeaveApprove, false},
		{RoleEmployee, PermAttendanceCheckIn, true},
		{Role("root"), PermDashboardRead, false},
	}
	for _, tc := range tests {
		if got := Can(tc.role, tc.perm); got != tc.want {
			t.Fatalf("Can(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}
