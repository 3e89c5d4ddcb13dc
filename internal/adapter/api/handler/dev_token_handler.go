package handler

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/domain/repository"
	"portfoliochat/internal/infrastructure/firebase"
	"portfoliochat/pkg/response"
)

// DevTokenHandler hands out bearer tokens for seeded users. It is only
// routed when the memory store is active.
type DevTokenHandler struct {
	userRepo repository.UserRepository
}

var devTokenHandler *DevTokenHandler

type devTokenRequest struct {
	UID string `json:"uid" validate:"required"`
}

func NewDevTokenHandler(userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		userRepo: userRepo,
	}
}

func SetupDevTokenHandler(userRepo repository.UserRepository) {
	devTokenHandler = NewDevTokenHandler(userRepo)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

// GenerateUserToken returns a token for an existing user in the directory.
func (h *DevTokenHandler) GenerateUserToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userRepo.GetByID(c.Request().Context(), req.UID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": firebase.DevToken(user.UID),
		"user":  user,
	})
}
