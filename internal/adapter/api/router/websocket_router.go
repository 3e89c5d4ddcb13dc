package router

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/adapter/api/handler"
)

// SetupWebSocketRouter registers the live session endpoint. The handshake
// carries the ID token in ?token= since browsers cannot set headers on it.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/v1/ws", wsHandler.HandleWebSocket)
}
