package router

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/adapter/api/handler"
	"portfoliochat/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, userHandler *handler.UserHandler, authMiddleware *middleware.AuthMiddleware) {
	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("", userHandler.ListUsers)
	users.GET("/search", userHandler.SearchUsers)
}
