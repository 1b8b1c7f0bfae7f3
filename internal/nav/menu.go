package nav

import (
	"strings"

	"github.com/selams/selams-web/internal/models"
)

const (
	IconDashboard     = "layout-dashboard"
	IconBookOpen      = "book-open"
	IconGraduationCap = "graduation-cap"
	IconCalendar      = "calendar"
	IconSettings      = "settings"
)

var studentMenu = []models.MenuEntry{
	{Label: "Dashboard", Path: "/student/dashboard", Icon: IconDashboard},
	{Label: "My Courses", Path: "/student/courses", Icon: IconBookOpen},
	{Label: "Calendar", Path: "/student/calendar", Icon: IconCalendar},
	{Label: "Settings", Path: "/settings", Icon: IconSettings},
}

var teacherMenu = []models.MenuEntry{
	{Label: "Dashboard", Path: "/teacher/dashboard", Icon: IconDashboard},
	{Label: "My Courses", Path: "/teacher/courses", Icon: IconGraduationCap},
	{Label: "Calendar", Path: "/teacher/calendar", Icon: IconCalendar},
	{Label: "Settings", Path: "/settings", Icon: IconSettings},
}

// MenuFor returns the sidebar entries for role. Only teachers get the
// teacher set; students, admins and any unknown or empty role get the
// student set. The result is a fresh copy.
func MenuFor(role models.Role) []models.MenuEntry {
	var src []models.MenuEntry
	switch role {
	case models.RoleTeacher:
		src = teacherMenu
	case models.RoleStudent, models.RoleAdmin:
		src = studentMenu
	default:
		src = studentMenu
	}
	out := make([]models.MenuEntry, len(src))
	copy(out, src)
	return out
}

// HomePath is the dashboard a role lands on after sign-in.
func HomePath(role models.Role) string {
	return MenuFor(role)[0].Path
}

// Active marks the entry whose path is a prefix of the request path.
func Active(entries []models.MenuEntry, path string) []models.MenuEntry {
	for i := range entries {
		p := entries[i].Path
		entries[i].Active = path == p || strings.HasPrefix(path, p+"/")
	}
	return entries
}
