package router

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/adapter/api/handler"
	"portfoliochat/internal/adapter/api/middleware"
)

// SetupChatRouter sets up the conversation and message routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.GET("/general", chatHandler.GetGeneralChat)
	conversations.POST("/dm", chatHandler.CreateDMConversation)
	conversations.GET("/:id", chatHandler.GetConversation)
	conversations.DELETE("/:id", chatHandler.DeleteConversation)
	conversations.PUT("/:id/read", chatHandler.MarkAsRead)

	conversations.GET("/:id/messages", chatHandler.GetMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage)
	conversations.PUT("/:id/messages/:messageId", chatHandler.EditMessage)
	conversations.DELETE("/:id/messages/:messageId", chatHandler.DeleteMessage)
	conversations.POST("/:id/messages/:messageId/report", chatHandler.ReportMessage)
}
