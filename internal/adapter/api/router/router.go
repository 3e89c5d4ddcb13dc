package router

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/adapter/api/handler"
	"portfoliochat/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, wsHandler *handler.WebSocketHandler, healthHandler *handler.HealthHandler) {
	SetupHealthRouter(e, healthHandler)
	SetupChatRouter(e, handler.GetChatHandler(), authMiddleware)
	SetupUserRouter(e, handler.GetUserHandler(), authMiddleware)
	SetupWebSocketRouter(e, wsHandler)

	if devTokenHandler := handler.GetDevTokenHandler(); devTokenHandler != nil {
		SetupDevRouter(e, devTokenHandler)
	}
}
