package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeNotFound          = "NOT_FOUND"
	CodeTooManyRequests   = "TOO_MANY_REQUESTS"
	CodeSendFailed        = "SEND_FAILED"
	CodeWriteFailed       = "WRITE_FAILED"
	CodeSubscriptionError = "SUBSCRIPTION_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Validation is returned before any store call is issued.
func Validation(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func PermissionDenied(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func TooManyRequests(message string, err error) *AppError {
	return &AppError{
		Code:    CodeTooManyRequests,
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     err,
	}
}

// SendFailed covers any partial or failed write of a new message. Sends are
// never retried here: a retry could post the message twice.
func SendFailed(err error) *AppError {
	return &AppError{
		Code:    CodeSendFailed,
		Message: "Message not sent",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func WriteFailed(message string, err error) *AppError {
	return &AppError{
		Code:    CodeWriteFailed,
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// SubscriptionError is only ever logged; listeners degrade to their last snapshot.
func SubscriptionError(label string, err error) *AppError {
	return &AppError{
		Code:    CodeSubscriptionError,
		Message: fmt.Sprintf("subscription %s failed", label),
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the AppError code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// As unwraps err to its AppError, if it carries one.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
