package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/skarpov/webauth/pkg/db"
)

// AdminHTTP exposes database pool diagnostics behind the admin role gate.
type AdminHTTP struct {
	DB *gorm.DB
}

func (h *AdminHTTP) PoolStats(c echo.Context) error {
	stats, err := db.Stats(h.DB)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	})
}

func (h *AdminHTTP) HealthCheck(c echo.Context) error {
	if err := db.HealthCheck(c.Request().Context(), h.DB); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
