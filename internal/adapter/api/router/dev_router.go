package router

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler) {
	dev := e.Group("/v1/dev")
	dev.POST("/token", devTokenHandler.GenerateUserToken)
}
