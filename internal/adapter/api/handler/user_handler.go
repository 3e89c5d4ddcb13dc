package handler

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/usecase"
	"portfoliochat/pkg/response"
	"portfoliochat/pkg/utils"
)

// UserHandler serves the read-only user directory used to start chats.
type UserHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewUserHandler(chatUseCase *usecase.ChatUseCase) *UserHandler {
	return &UserHandler{
		chatUseCase: chatUseCase,
	}
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.chatUseCase.ListUsers(c.Request().Context(), uid(c), utils.GetLimitParam(c, maxQueryLimit))
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, users, len(users))
}

func (h *UserHandler) SearchUsers(c echo.Context) error {
	users, err := h.chatUseCase.SearchForUsers(c.Request().Context(), c.QueryParam("q"), uid(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, users, len(users))
}
