package rbac

var (
	admins    = []Role{SuperAdmin, InstitutionalAdmin}
	managers  = []Role{SuperAdmin, InstitutionalAdmin, DepartmentAdmin}
	everybody = AllRoles
)

var defaultRoutes = []Route{
	{Path: "/dashboard/admin", Label: "Admin Dashboard", Roles: admins, Nav: true},
	{Path: "/dashboard/department", Label: "Department Dashboard", Roles: []Role{DepartmentAdmin}, Nav: true},
	{Path: "/dashboard/mentor", Label: "Mentor Dashboard", Roles: []Role{Mentor}, Nav: true},
	{Path: "/dashboard/student", Label: "Student Dashboard", Roles: []Role{Student}, Nav: true},
	{Path: "/institutions", Label: "Institutions", Roles: []Role{SuperAdmin}, Nav: true},
	{Path: "/departments", Label: "Departments", Roles: admins, Nav: true},
	{Path: "/users", Label: "Users", Roles: managers, Nav: true},
	{Path: "/mentors", Label: "Mentors", Roles: managers, Nav: true},
	{Path: "/students", Label: "Students", Roles: []Role{SuperAdmin, InstitutionalAdmin, DepartmentAdmin, Mentor}, Nav: true},
	{Path: "/assignments", Label: "Assignments", Roles: managers, Nav: true},
	{Path: "/sessions", Label: "Sessions", Roles: everybody, Nav: true},
	{Path: "/goals", Label: "Goals", Roles: everybody, Nav: true},
	{Path: "/feedback", Label: "Feedback", Roles: everybody, Nav: true},
	{Path: "/notifications", Label: "Notifications", Roles: everybody, Nav: true},
	{Path: "/audit-logs", Label: "Audit Logs", Roles: admins, Nav: true},
	{Path: "/reports", Label: "Reports", Roles: managers, Nav: true},
	{Path: "/settings", Label: "Settings", Roles: []Role{SuperAdmin}, Nav: true},
	{Path: "/profile", Label: "Profile", Roles: everybody, Nav: true},
}

var defaultCapabilities = map[Capability][]Role{
	CapManageInstitutions: {SuperAdmin},
	CapManageDepartments:  admins,
	CapViewUsers:          managers,
	CapCreateUser:         managers,
	CapChangeRoles:        admins,
	CapDeactivateUser:     managers,
	CapCreateMentor:       managers,
	CapCreateStudent:      managers,
	CapViewStudents:       {SuperAdmin, InstitutionalAdmin, DepartmentAdmin, Mentor},
	CapManageAssignments:  managers,
	CapScheduleSessions:   {SuperAdmin, InstitutionalAdmin, DepartmentAdmin, Mentor},
	CapManageGoals:        {Mentor, Student},
	CapGiveFeedback:       {Mentor, Student},
	CapViewAuditLogs:      admins,
	CapViewReports:        managers,
	CapManageSettings:     {SuperAdmin},
	CapViewOwnProfile:     everybody,
}

// Default is the portal's permission table, validated at package init.
var Default = MustNew(defaultRoutes, defaultCapabilities)

func Match(path string) (Route, bool) { return Default.Match(path) }

func AllowedRoutes(role Role) []Route { return Default.AllowedRoutes(role) }

func HasCapability(role Role, c Capability) bool { return Default.HasCapability(role, c) }
