package handler

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/usecase"
	"portfoliochat/pkg/response"
	"portfoliochat/pkg/utils"
)

// maxQueryLimit caps list sizes at the transport; use cases clamp further.
const maxQueryLimit = 100

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createDMRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}

type messageTextRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type reportMessageRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type conversationResponse struct {
	*entity.Conversation
	HasMessages bool `json:"has_messages"`
}

type sendMessageResponse struct {
	MessageID string `json:"message_id"`
}

func uid(c echo.Context) string {
	id, _ := c.Get("uid").(string)
	return id
}

// GetGeneralChat returns the broadcast room, creating it on first access.
func (h *ChatHandler) GetGeneralChat(c echo.Context) error {
	conv, err := h.chatUseCase.GetGeneralChat(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

func (h *ChatHandler) CreateDMConversation(c echo.Context) error {
	var req createDMRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.chatUseCase.CreateDMConversation(c.Request().Context(), uid(c), req.RecipientID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, conv)
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	conv, hasMessages, err := h.chatUseCase.GetConversation(c.Request().Context(), c.Param("id"), uid(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conversationResponse{Conversation: conv, HasMessages: hasMessages})
}

func (h *ChatHandler) DeleteConversation(c echo.Context) error {
	if err := h.chatUseCase.DeleteConversation(c.Request().Context(), c.Param("id"), uid(c)); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Conversation deleted"})
}

func (h *ChatHandler) MarkAsRead(c echo.Context) error {
	if err := h.chatUseCase.MarkAsRead(c.Request().Context(), c.Param("id"), uid(c)); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Conversation marked as read"})
}

func (h *ChatHandler) GetMessages(c echo.Context) error {
	msgs, err := h.chatUseCase.RecentMessages(c.Request().Context(), c.Param("id"), uid(c), utils.GetLimitParam(c, maxQueryLimit))
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, msgs, len(msgs))
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req messageTextRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	id, err := h.chatUseCase.SendMessageToConversation(c.Request().Context(), c.Param("id"), uid(c), req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, sendMessageResponse{MessageID: id})
}

func (h *ChatHandler) EditMessage(c echo.Context) error {
	var req messageTextRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	err := h.chatUseCase.EditMessage(c.Request().Context(), c.Param("id"), c.Param("messageId"), uid(c), req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Message updated"})
}

func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	if err := h.chatUseCase.DeleteMessage(c.Request().Context(), c.Param("id"), c.Param("messageId"), uid(c)); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Message deleted"})
}

func (h *ChatHandler) ReportMessage(c echo.Context) error {
	var req reportMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	report, err := h.chatUseCase.ReportMessage(c.Request().Context(), c.Param("id"), c.Param("messageId"), uid(c), req.Reason)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, report)
}
