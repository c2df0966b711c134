package handlers

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/internal/domain/repositories"
	"github.com/royal-empire/club_service/internal/infrastructure/storage"
	"github.com/royal-empire/club_service/pkg/logger"
	"github.com/royal-empire/club_service/pkg/retry"
)

// LedgerService is the money-movement surface used by HTTP handlers.
type LedgerService interface {
	RequestDeposit(ctx context.Context, contact string, amount decimal.Decimal, method, proofURL string) (uuid.UUID, error)
	RequestWithdrawal(ctx context.Context, contact string, amount decimal.Decimal, method string) (uuid.UUID, error)
}

// LifecycleService is the administrative transaction-control surface.
type LifecycleService interface {
	Reschedule(ctx context.Context, id uuid.UUID, at time.Time) error
	CompleteNow(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
}

// TransactionHandlers handles transaction submission, history, and admin
// overrides.
type TransactionHandlers struct {
	ledger      LedgerService
	lifecycle   LifecycleService
	accountRepo repositories.AccountRepository
	txRepo      repositories.TransactionRepository
	proofStore  storage.ProofStore
	retrier     *retry.Retrier
	logger      *logger.Logger
}

// storageRetryPolicy keeps proof-store retries short enough for an
// interactive upload before the outage is surfaced to the client.
func storageRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:     2,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     200 * time.Millisecond,
		Multiplier:     2.0,
	}
}

// NewTransactionHandlers creates new transaction handlers
func NewTransactionHandlers(
	ledger LedgerService,
	lifecycle LifecycleService,
	accountRepo repositories.AccountRepository,
	txRepo repositories.TransactionRepository,
	proofStore storage.ProofStore,
	logger *logger.Logger,
) *TransactionHandlers {
	return &TransactionHandlers{
		ledger:      ledger,
		lifecycle:   lifecycle,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		proofStore:  proofStore,
		retrier:     retry.NewRetrier(storageRetryPolicy(), "storage", logger.Zap()),
		logger:      logger,
	}
}

// Submit handles POST /api/transactions. Deposits arrive as multipart forms
// carrying a payment screenshot; withdrawals are plain form fields.
func (h *TransactionHandlers) Submit(c *gin.Context) {
	var req entities.SubmitTransactionRequest
	if err := c.ShouldBind(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidAmount, "amount must be a decimal number")
		return
	}

	method := req.Method
	if req.UserNumber != "" {
		method = method + " " + req.UserNumber
	}

	var txID uuid.UUID
	switch entities.TransactionKind(req.Type) {
	case entities.TransactionKindDeposit:
		proofURL, err := h.saveProof(c)
		if err != nil {
			SendDomainError(c, err)
			return
		}
		txID, err = h.ledger.RequestDeposit(c.Request.Context(), req.Email, amount, method, proofURL)
		if err != nil {
			SendDomainError(c, err)
			return
		}

	case entities.TransactionKindWithdraw:
		txID, err = h.ledger.RequestWithdrawal(c.Request.Context(), req.Email, amount, method)
		if err != nil {
			SendDomainError(c, err)
			return
		}

	default:
		SendBadRequest(c, ErrCodeValidationError, "type must be deposit or withdraw")
		return
	}

	SendCreated(c, entities.SubmitTransactionResponse{
		Message:       "Transaction submitted and pending verification",
		TransactionID: txID,
	})
}

// History handles GET /api/transactions/:email
func (h *TransactionHandlers) History(c *gin.Context) {
	contact := entities.NormalizeContact(c.Param("email"))

	account, err := h.accountRepo.GetByContact(c.Request.Context(), contact)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			SendSuccess(c, gin.H{"transactions": []*entities.Transaction{}})
			return
		}
		SendDomainError(c, err)
		return
	}

	limit, offset := paginationParams(c)
	txs, err := h.txRepo.ListByAccount(c.Request.Context(), account.ID, limit, offset)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	if txs == nil {
		txs = []*entities.Transaction{}
	}

	SendSuccess(c, gin.H{"transactions": txs})
}

// Complete handles POST /api/admin/transactions/:id/complete
func (h *TransactionHandlers) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "invalid transaction id")
		return
	}

	if err := h.lifecycle.CompleteNow(c.Request.Context(), id); err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, entities.MessageResponse{Message: "Transaction completed"})
}

// Reschedule handles POST /api/admin/transactions/:id/reschedule. The body
// carries a settle_after timestamp; the transaction must still be Pending.
func (h *TransactionHandlers) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "invalid transaction id")
		return
	}

	var req entities.RescheduleTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	if err := h.lifecycle.Reschedule(c.Request.Context(), id, req.SettleAfter); err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, entities.MessageResponse{Message: "Transaction rescheduled"})
}

// Cancel handles POST /api/admin/transactions/:id/cancel
func (h *TransactionHandlers) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "invalid transaction id")
		return
	}

	if err := h.lifecycle.Cancel(c.Request.Context(), id); err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, entities.MessageResponse{Message: "Transaction cancelled"})
}

func (h *TransactionHandlers) saveProof(c *gin.Context) (string, error) {
	file, err := c.FormFile("screenshot")
	if err != nil {
		return "", domainerrors.ValidationError("screenshot", "deposit proof screenshot is required")
	}

	src, err := file.Open()
	if err != nil {
		return "", domainerrors.ValidationError("screenshot", "could not read uploaded file")
	}
	defer src.Close()

	// A flaky blob store gets a few replays; exhaustion comes back as a
	// backend outage, not a client error.
	var url string
	err = h.retrier.Do(c.Request.Context(), func() error {
		if _, serr := src.Seek(0, io.SeekStart); serr != nil {
			return serr
		}
		var serr error
		url, serr = h.proofStore.Save(c.Request.Context(), file.Filename, src)
		return serr
	})
	if err != nil {
		return "", err
	}

	return url, nil
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v, ok := intQuery(c, "limit"); ok && v > 0 && v <= 200 {
		limit = v
	}
	if v, ok := intQuery(c, "offset"); ok && v >= 0 {
		offset = v
	}
	return limit, offset
}

func intQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
