package router

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/adapter/api/handler"
	"portfoliochat/internal/infrastructure/metrics"
)

func SetupHealthRouter(e *echo.Echo, healthHandler *handler.HealthHandler) {
	e.GET("/health", healthHandler.CheckHealth)
	e.GET("/metrics", metrics.Handler())
}
