package auth

const (
	PermDashboardRead      = "dashboard.read"
	PermAnnouncementsWrite = "dashboard.announcements.write"
	PermAnalyticsRead      = "dashboard.analytics.read"
	PermPayrollRead        = "payroll.read"
	PermPayrollManage      = "payroll.manage"
	PermAttendanceRead     = "attendance.read"
	PermAttendanceManage   = "attendance.manage"
	PermAttendanceCheckIn  = "attendance.checkin"
	PermLeaveApprove       = "leave.approve"
	PermActivityRead       = "activity.read"
	PermActivityExport     = "activity.export"
)

var DefaultPermissions = []string{
	PermDashboardRead,
	PermAnnouncementsWrite,
	PermAnalyticsRead,
	PermPayrollRead,
	PermPayrollManage,
	PermAttendanceRead,
	PermAttendanceManage,
	PermAttendanceCheckIn,
	PermLeaveApprove,
	PermActivityRead,
	PermActivityExport,
}

var RolePermissions = map[Role][]string{
	RoleEmployee: {
		PermDashboardRead,
		PermPayrollRead,
		PermAttendanceRead,
		PermAttendanceCheckIn,
		PermActivityRead,
	},
	RoleAdmin: {
		PermDashboardRead,
		PermAnnouncementsWrite,
		PermAnalyticsRead,
		PermPayrollRead,
		PermPayrollManage,
		PermAttendanceRead,
		PermAttendanceManage,
		PermLeaveApprove,
		PermActivityRead,
		PermActivityExport,
	},
}

func Can(role Role, perm string) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
