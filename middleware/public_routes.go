package middleware

import (
	"strings"
)

var publicRoutes = []string{
	"/",
	"/health",
	"/api/auth/login",
	"/api/auth/register",
}

// IsPublicRoute reports whether path skips authentication. /api/auth/me is the one protected auth route.
func IsPublicRoute(path string) bool {
	for _, route := range publicRoutes {
		if path == route {
			return true
		}
	}
	return strings.HasPrefix(path, "/api/auth/") && path != "/api/auth/me"
}
