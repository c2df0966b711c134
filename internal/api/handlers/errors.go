package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
)

// Error codes as constants for consistent error responses across handlers
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeValidationError = "VALIDATION_ERROR"
	ErrCodeInvalidID       = "INVALID_ID"
	ErrCodeInvalidAmount   = "INVALID_AMOUNT"

	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUserNotFound   = "USER_NOT_FOUND"
	ErrCodeUserExists     = "USER_EXISTS"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeAlreadySettled = "ALREADY_SETTLED"

	ErrCodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Error messages as constants for consistency
const (
	MsgInvalidRequest     = "Invalid request payload"
	MsgUserNotFound       = "User not found"
	MsgInvalidCredentials = "Invalid email or password"
	MsgInternalError      = "Internal server error"
)

// SendBadRequest sends a 400 Bad Request error
func SendBadRequest(c *gin.Context, code, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: det,
	})
}

// SendUnauthorized sends a 401 Unauthorized error
func SendUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, entities.ErrorResponse{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}

// SendNotFound sends a 404 Not Found error
func SendNotFound(c *gin.Context, code, message string) {
	c.JSON(http.StatusNotFound, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendConflict sends a 409 Conflict error
func SendConflict(c *gin.Context, code, message string) {
	c.JSON(http.StatusConflict, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendInternalError sends a 500 Internal Server Error
func SendInternalError(c *gin.Context, code, message string) {
	c.JSON(http.StatusInternalServerError, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendServiceUnavailable sends a 503 Service Unavailable error
func SendServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, entities.ErrorResponse{
		Code:    ErrCodeServiceUnavailable,
		Message: message,
	})
}

// SendSuccess sends a 200 OK response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a 201 Created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendDomainError maps a domain error to the appropriate HTTP response.
func SendDomainError(c *gin.Context, err error) {
	switch {
	case domainerrors.IsInvalidInput(err):
		SendBadRequest(c, ErrCodeValidationError, err.Error())
	case domainerrors.IsInsufficientFunds(err):
		SendBadRequest(c, ErrCodeInsufficientFunds, err.Error())
	case domainerrors.IsAlreadyExists(err):
		SendBadRequest(c, ErrCodeUserExists, err.Error())
	case domainerrors.IsNotFound(err):
		SendNotFound(c, ErrCodeNotFound, err.Error())
	case domainerrors.IsAlreadySettled(err):
		SendConflict(c, ErrCodeAlreadySettled, err.Error())
	case domainerrors.IsConflict(err):
		SendConflict(c, ErrCodeConflict, err.Error())
	case domainerrors.IsUnauthorized(err):
		SendUnauthorized(c, err.Error())
	case domainerrors.IsBackendUnavailable(err):
		SendServiceUnavailable(c, "Service temporarily unavailable")
	default:
		SendInternalError(c, ErrCodeInternalError, MsgInternalError)
	}
}
