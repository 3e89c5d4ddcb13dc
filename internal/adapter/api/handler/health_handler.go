package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	ws "portfoliochat/internal/infrastructure/websocket"
)

type HealthHandler struct {
	wsManager *ws.Manager
	storeName string
}

func NewHealthHandler(wsManager *ws.Manager, storeName string) *HealthHandler {
	return &HealthHandler{
		wsManager: wsManager,
		storeName: storeName,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	users, connections := h.wsManager.Stats()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"store":          h.storeName,
		"online_users":   users,
		"ws_connections": connections,
		"time":           time.Now().Format(time.RFC3339),
	})
}
