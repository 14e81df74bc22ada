package httpserver

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skarpov/webauth/internal/metrics"
	"github.com/skarpov/webauth/internal/middleware"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	AdminHandler *AdminHTTP
	Gate         *middleware.AuthGate
	Metrics      *metrics.Metrics
	PoolStats    func() (sql.DBStats, error)
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics.Handler(d.PoolStats))
	}

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout, d.Gate.RequireAuth)

	admin := e.Group("/admin", d.Gate.RequireAuth, d.Gate.RequireRole("admin"))
	admin.GET("/database/pool_stats", d.AdminHandler.PoolStats)
	admin.GET("/database/health_check", d.AdminHandler.HealthCheck)
}
