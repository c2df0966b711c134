package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/royal-empire/club_service/internal/domain/entities"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	Create(ctx context.Context, account *entities.Account) error
	GetByContact(ctx context.Context, contact string) (*entities.Account, error)
	GetByReferralCode(ctx context.Context, code string) (*entities.Account, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	ListContactsReferredBy(ctx context.Context, contacts []string) ([]string, error)
}

// TransactionRepository defines the interface for transaction persistence
// outside of settlement units.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entities.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	SetSettleAfter(ctx context.Context, id uuid.UUID, at time.Time) error
	DueIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.Transaction, error)
}

// InvestmentRepository defines the read interface for package investments
type InvestmentRepository interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.Investment, error)
}

// BalanceDeltas is the set of additive balance mutations applied in one
// write. Zero-valued fields leave their column untouched.
type BalanceDeltas struct {
	Balance         decimal.Decimal
	TotalInvestment decimal.Decimal
	TotalEarning    decimal.Decimal
	ReferralEarning decimal.Decimal
}

// LedgerTxOps are the persistence operations available inside one atomic
// settlement unit. Row locks taken through these calls are held until the
// unit commits or rolls back.
type LedgerTxOps interface {
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	MarkTransactionTerminal(ctx context.Context, id uuid.UUID, status entities.TransactionStatus) error
	CreateTransaction(ctx context.Context, tx *entities.Transaction) error

	GetAccountByID(ctx context.Context, id uuid.UUID) (*entities.Account, error)
	GetAccountForUpdate(ctx context.Context, contact string) (*entities.Account, error)
	ApplyBalanceDeltas(ctx context.Context, contact string, deltas BalanceDeltas) error

	CreateInvestment(ctx context.Context, inv *entities.Investment) error
	ClaimDueInvestments(ctx context.Context, now time.Time, limit int) ([]*entities.Investment, error)
	AdvanceInvestmentSchedule(ctx context.Context, id uuid.UUID, accruedAt, next time.Time) error
}

// LedgerStore runs atomic units against the backing store. Mutation failures
// inside fn roll the whole unit back, leaving no partial balance updates.
type LedgerStore interface {
	WithinTransaction(ctx context.Context, fn func(ops LedgerTxOps) error) error
}
