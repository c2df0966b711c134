package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/royal-empire/club_service/internal/domain/entities"
	"github.com/royal-empire/club_service/pkg/logger"
)

// PackageService is the package-purchase surface used by HTTP handlers.
type PackageService interface {
	PurchasePackage(ctx context.Context, contact string, amount decimal.Decimal, packageName string) (*entities.Account, error)
}

// PackageHandlers handles investment package purchases.
type PackageHandlers struct {
	service PackageService
	logger  *logger.Logger
}

// NewPackageHandlers creates new package handlers
func NewPackageHandlers(service PackageService, logger *logger.Logger) *PackageHandlers {
	return &PackageHandlers{
		service: service,
		logger:  logger,
	}
}

// Buy handles POST /api/packages/buy
func (h *PackageHandlers) Buy(c *gin.Context) {
	var req entities.PurchasePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	account, err := h.service.PurchasePackage(c.Request.Context(), req.Email, req.Amount, req.PackageName)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, entities.PurchasePackageResponse{
		Message:         "Package purchased successfully",
		Balance:         account.Balance,
		TotalInvestment: account.TotalInvestment,
		TotalEarning:    account.TotalEarning,
	})
}
