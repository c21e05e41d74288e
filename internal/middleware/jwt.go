package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Roles carried in the token's "role" claim.
const (
	RoleParticipant = "PARTICIPANT"
	RoleAdmin       = "ADMIN"
)

// Context keys set by JWTAuth.
const (
	CtxSessionID = "session_id"
	CtxRole      = "role"
)

// JWTAuth validates an HS256 bearer token and stores its subject (the
// session id) and role claim in the echo context.
//
// EventSource cannot send headers, so stream routes may pass the token as
// the access_token query parameter instead.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Take the token from the Authorization header, or from the
			// query string on stream routes.  No token means 401.
			raw := bearer(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "missing bearer token"})
			}

			// Only HS256 tokens signed with our secret are accepted;
			// WithValidMethods rejects "none" and asymmetric algorithms
			// before the key func runs.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "invalid claims"})
			}
			// The subject is the session id every service call is made
			// as.  A token without one cannot act for anybody.
			sub, _ := claims["sub"].(string)
			if sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "token has no subject"})
			}
			// Tokens minted without a role are ordinary participants.
			role, _ := claims["role"].(string)
			if role == "" {
				role = RoleParticipant
			}

			// Handlers read these back through SessionID and IsAdmin.
			c.Set(CtxSessionID, sub)
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}

// bearer extracts the raw token.  The query parameter is honoured only on
// paths ending in /stream so tokens do not end up in ordinary access logs.
func bearer(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if strings.HasSuffix(c.Path(), "/stream") {
		return c.QueryParam("access_token")
	}
	return ""
}
