package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "portfoliochat/pkg/errors"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

func List(c echo.Context, items interface{}, count int) error {
	return Success(c, ListResponse{Items: items, Count: count})
}

func Error(c echo.Context, err error) error {
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return handleValidationError(c, validationErr)
	}

	if appErr, ok := apperrors.As(err); ok {
		return fail(c, appErr.Status, appErr.Code, appErr.Message)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return fail(c, httpErr.Code, apperrors.CodeBadRequest, fmt.Sprint(httpErr.Message))
	}

	c.Logger().Errorf("unhandled error: %v", err)
	return fail(c, http.StatusInternalServerError, apperrors.CodeInternal, "An unexpected error occurred")
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Response{
		Success:   false,
		Timestamp: now(),
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

func handleValidationError(c echo.Context, validationErr validator.ValidationErrors) error {
	message := "Invalid input data"
	if len(validationErr) > 0 {
		err := validationErr[0]
		field := strings.ToLower(err.Field())
		param := err.Param()

		switch err.Tag() {
		case "required":
			message = field + " is required"
		case "min":
			message = field + " must be at least " + param
		case "max":
			message = field + " must be at most " + param
		case "oneof":
			message = field + " must be one of: " + param
		default:
			message = field + " is invalid"
		}
	}
	return fail(c, http.StatusBadRequest, apperrors.CodeValidation, message)
}
