package auth

import "portal/internal/model"

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	SignupPath       = "/signup"
)

// Decide is the route guard contract: no identity goes to the login page,
// a role outside allowed goes to the unauthorized page. An empty allow-list
// admits any signed-in user.
func Decide(identity *model.Identity, allowed []model.Role) (ok bool, redirect string) {
	if identity == nil {
		return false, LoginPath
	}
	if len(allowed) == 0 {
		return true, ""
	}
	for _, r := range allowed {
		if identity.Role == r {
			return true, ""
		}
	}
	return false, UnauthorizedPath
}

// HomePath is the dashboard a role lands on after login.
func HomePath(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return "/admin"
	case model.RoleFaculty:
		return "/faculty"
	case model.RoleStudent:
		return "/student"
	}
	return LoginPath
}
