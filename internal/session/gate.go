package session

import "hackattend/internal/model"

// Page paths.
const (
	LoginPath     = "/login"
	AdminPath     = "/admin"
	DashboardPath = "/dashboard"
)

// Decision is the outcome of checking a snapshot against a page's required role.
type Decision int

const (
	// Allow lets the request through.
	Allow Decision = iota
	// Absent means there is no signed-in user: send them to login.
	Absent
	// Mismatch means the user holds the wrong role: clear the stale session and
	// send them to login.
	Mismatch
)

// Check decides whether u may open a page that requires role.
func Check(u *model.User, role model.Role) Decision {
	if u == nil {
		return Absent
	}
	if u.Role != role {
		return Mismatch
	}
	return Allow
}

// Landing is the dashboard a signed-in user of role is sent to.
func Landing(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return AdminPath
	case model.RoleStudent:
		return DashboardPath
	}
	return LoginPath
}
