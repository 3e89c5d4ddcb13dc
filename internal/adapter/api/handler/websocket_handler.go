package handler

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/adapter/api/middleware"
	ws "portfoliochat/internal/infrastructure/websocket"
	"portfoliochat/internal/usecase"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
	"portfoliochat/pkg/response"
)

// WebSocketHandler upgrades authenticated requests into live chat sessions.
// Sessions run on baseCtx because the request context ends with the upgrade.
type WebSocketHandler struct {
	baseCtx        context.Context
	wsManager      *ws.Manager
	authMiddleware *middleware.AuthMiddleware
	chatUseCase    *usecase.ChatUseCase
	typingIdle     time.Duration
	upgrader       gorillaws.Upgrader
}

func NewWebSocketHandler(
	baseCtx context.Context,
	wsManager *ws.Manager,
	authMiddleware *middleware.AuthMiddleware,
	chatUseCase *usecase.ChatUseCase,
	typingIdle time.Duration,
	allowedOrigins []string,
) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &WebSocketHandler{
		baseCtx:        baseCtx,
		wsManager:      wsManager,
		authMiddleware: authMiddleware,
		chatUseCase:    chatUseCase,
		typingIdle:     typingIdle,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return response.Error(c, errors.Unauthorized("Token is required", nil))
	}
	userID, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed for %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(userID, conn)
	session := usecase.NewSession(h.chatUseCase, userID, client, h.typingIdle)
	client.Attach(session)

	select {
	case h.wsManager.Register <- client:
	case <-h.baseCtx.Done():
		conn.Close()
		return nil
	}

	go client.WritePump()
	if err := session.Start(h.baseCtx); err != nil {
		logger.Error("Failed to start chat session for %s: %v", userID, err)
		client.Close()
	}
	go client.ReadPump(h.baseCtx, h.wsManager)

	return nil
}
