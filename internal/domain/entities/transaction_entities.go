package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the kind of wallet transaction
type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdraw   TransactionKind = "withdraw"
	TransactionKindInvestment TransactionKind = "investment"
)

// Validate checks if the transaction kind is valid
func (k TransactionKind) Validate() error {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdraw, TransactionKindInvestment:
		return nil
	default:
		return fmt.Errorf("invalid transaction kind: %s", k)
	}
}

// TransactionStatus represents the settlement state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusCompleted TransactionStatus = "Completed"
	TransactionStatusFailed    TransactionStatus = "Failed"
)

// IsTerminal returns true once a transaction can no longer change state
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction belongs to exactly one account. Status moves Pending -> terminal
// exactly once; balances are only touched by that transition.
type Transaction struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	AccountID   uuid.UUID         `db:"account_id" json:"-"`
	Kind        TransactionKind   `db:"kind" json:"type"`
	Amount      decimal.Decimal   `db:"amount" json:"amount"`
	Method      string            `db:"method" json:"method"`
	Status      TransactionStatus `db:"status" json:"status"`
	ProofURL    *string           `db:"proof_url" json:"screenshotUrl,omitempty"`
	SettleAfter *time.Time        `db:"settle_after" json:"-"`
	SettledAt   *time.Time        `db:"settled_at" json:"settledAt,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
}

// SubmitTransactionRequest is the multipart/form payload for POST /api/transactions.
type SubmitTransactionRequest struct {
	Email      string `form:"email" binding:"required"`
	Type       string `form:"type" binding:"required"`
	Method     string `form:"method" binding:"required"`
	UserNumber string `form:"userNumber"`
	Amount     string `form:"amount" binding:"required"`
}

// SubmitTransactionResponse acknowledges a queued transaction.
type SubmitTransactionResponse struct {
	Message       string    `json:"message"`
	TransactionID uuid.UUID `json:"transactionId"`
}

// RescheduleTransactionRequest moves a Pending transaction's settlement time.
type RescheduleTransactionRequest struct {
	SettleAfter time.Time `json:"settleAfter" binding:"required"`
}

// PurchasePackageRequest is the payload for POST /api/packages/buy.
type PurchasePackageRequest struct {
	Email       string          `json:"email" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PackageName string          `json:"packageName"`
}

// PurchasePackageResponse reports the post-purchase balances.
type PurchasePackageResponse struct {
	Message         string          `json:"message"`
	Balance         decimal.Decimal `json:"balance"`
	TotalInvestment decimal.Decimal `json:"totalInvestment"`
	TotalEarning    decimal.Decimal `json:"totalEarning"`
}
