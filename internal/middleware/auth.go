package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/skarpov/webauth/internal/models"
	"github.com/skarpov/webauth/internal/service"
	"github.com/skarpov/webauth/internal/tokens"
)

// SessionCookie is the fallback location for the access token when no
// Authorization header is present.
const SessionCookie = "session"

const userContextKey = "current_user"

// AuthGate runs the per-request authorization chain: extract bearer token,
// decode, require an access-type token, load the user, optionally check a
// role. Pure read path, no side effects.
type AuthGate struct {
	Codec *tokens.Codec
	Users service.UserRepository
}

func NewAuthGate(codec *tokens.Codec, users service.UserRepository) *AuthGate {
	return &AuthGate{Codec: codec, Users: users}
}

// ExtractBearer prefers the Authorization header; a present header with a
// non-bearer scheme is rejected rather than falling through to the cookie.
func ExtractBearer(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
}

func (g *AuthGate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, err := ExtractBearer(c)
		if err != nil {
			return err
		}

		claims, err := g.Codec.Decode(tokenStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
		if claims.Type != tokens.TypeAccess {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		user, err := g.Users.FindByUsername(c.Request().Context(), claims.Subject)
		if err != nil {
			// Covers users deleted after token issuance.
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireRole layers a role check on top of RequireAuth; it must run after
// it in the chain.
func (g *AuthGate) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			if !user.Roles.Contains(role) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing required role: "+role)
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}
