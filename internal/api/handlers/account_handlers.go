package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/pkg/logger"
)

// AccountService is the account operations surface used by HTTP handlers.
type AccountService interface {
	Register(ctx context.Context, req *entities.RegisterRequest) (*entities.Account, error)
	Login(ctx context.Context, req *entities.LoginRequest) (*entities.LoginResponse, error)
	GetProfile(ctx context.Context, contact string) (*entities.Profile, error)
}

// AccountHandlers handles registration, login and profile reads.
type AccountHandlers struct {
	service AccountService
	logger  *logger.Logger
}

// NewAccountHandlers creates new account handlers
func NewAccountHandlers(service AccountService, logger *logger.Logger) *AccountHandlers {
	return &AccountHandlers{
		service: service,
		logger:  logger,
	}
}

// Register handles POST /api/register
func (h *AccountHandlers) Register(c *gin.Context) {
	var req entities.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	account, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		if domainerrors.IsAlreadyExists(err) {
			SendBadRequest(c, ErrCodeUserExists, "An account with this email already exists")
			return
		}
		SendDomainError(c, err)
		return
	}

	SendCreated(c, gin.H{
		"message":      "Registration successful",
		"email":        account.Contact,
		"referralCode": account.ReferralCode,
	})
}

// Login handles POST /api/login
func (h *AccountHandlers) Login(c *gin.Context) {
	var req entities.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		// Credential failures come back as 400, which is what the dashboard
		// client expects.
		if domainerrors.IsUnauthorized(err) {
			SendBadRequest(c, ErrCodeInvalidCredentials, MsgInvalidCredentials)
			return
		}
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, resp)
}

// GetUser handles GET /api/user/:email and GET /api/profile/:email
func (h *AccountHandlers) GetUser(c *gin.Context) {
	contact := c.Param("email")
	if contact == "" {
		SendBadRequest(c, ErrCodeValidationError, "email is required")
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), contact)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, profile)
}
