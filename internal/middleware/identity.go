package middleware

import "github.com/labstack/echo/v4"

// SessionID returns the caller's session id, or "" on unauthenticated
// routes.
func SessionID(c echo.Context) string {
	s, _ := c.Get(CtxSessionID).(string)
	return s
}

// IsAdmin reports whether the caller's token carries the admin role.
func IsAdmin(c echo.Context) bool {
	r, _ := c.Get(CtxRole).(string)
	return r == RoleAdmin
}

// rateSubject identifies the caller for rate limiting.
func rateSubject(c echo.Context) string {
	if s := SessionID(c); s != "" {
		return s
	}
	return "anon"
}
