package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/royal-empire/club_service/internal/domain/entities"
	"github.com/royal-empire/club_service/pkg/logger"
)

// ReferralService is the referral reporting surface used by HTTP handlers.
type ReferralService interface {
	Report(ctx context.Context, contact string) (*entities.ReferralReport, error)
}

// ReferralHandlers serves the downline report.
type ReferralHandlers struct {
	service ReferralService
	logger  *logger.Logger
}

// NewReferralHandlers creates new referral handlers
func NewReferralHandlers(service ReferralService, logger *logger.Logger) *ReferralHandlers {
	return &ReferralHandlers{
		service: service,
		logger:  logger,
	}
}

// Report handles GET /api/referrals/:email
func (h *ReferralHandlers) Report(c *gin.Context) {
	contact := c.Param("email")
	if contact == "" {
		SendBadRequest(c, ErrCodeValidationError, "email is required")
		return
	}

	report, err := h.service.Report(c.Request.Context(), contact)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, report)
}
