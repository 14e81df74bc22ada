package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skarpov/webauth/internal/logging"
	"github.com/skarpov/webauth/internal/middleware"
	"github.com/skarpov/webauth/internal/service"
	"github.com/skarpov/webauth/internal/validation"
)

// RefreshHeader lets API clients pass the refresh token without cookies.
const RefreshHeader = "X-Refresh-Token"

type AuthHTTP struct {
	Svc           *service.AuthService
	RefreshTTL    time.Duration
	SecureCookies bool
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username" form:"username"`
		Email    string `json:"email"    form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	view, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrValidation):
			l.Warn("register_failed", "status", 400, "reason", "validation")
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserExists):
			l.Warn("register_failed", "status", 400, "reason", "user_exists")
			return echo.NewHTTPError(http.StatusBadRequest, "Username or email already registered")
		default:
			l.Error("register_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusCreated, view)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			l.Warn("login_failed", "status", 401)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		l.Error("login_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// The refresh token travels only in the cookie, never in the body.
	c.SetCookie(createCookie(RefreshCookie, res.RefreshToken, h.RefreshTTL, h.SecureCookies))

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
	})
}

// Logout requires a valid access token; the subject comes from the
// authenticated identity, not from the refresh cookie.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	if err := h.Svc.Logout(ctx, user.Username); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	c.SetCookie(deleteCookie(RefreshCookie, h.SecureCookies))
	l.Info("logout_success", "username", user.Username)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	refreshToken := c.Request().Header.Get(RefreshHeader)
	if refreshToken == "" {
		cookie, err := c.Cookie(RefreshCookie)
		if err != nil || cookie.Value == "" {
			l.Warn("refresh_failed", "status", 401, "reason", "missing_token")
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
		refreshToken = cookie.Value
	}

	accessToken, _, err := h.Svc.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			l.Warn("refresh_failed", "status", 401)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	})
}
