package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainrepos "github.com/royal-empire/club_service/internal/domain/repositories"
	"github.com/royal-empire/club_service/internal/infrastructure/database"
)

// PostgresLedgerStore implements repositories.LedgerStore on top of a single
// database transaction per unit. Every row lock taken inside a unit is held
// until commit, which is what serializes concurrent settlements on the same
// account.
type PostgresLedgerStore struct {
	db           *sqlx.DB
	accounts     *AccountRepository
	transactions *TransactionRepository
	investments  *InvestmentRepository
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewPostgresLedgerStore creates a new ledger store. queryTimeout bounds each
// transactional unit; zero disables the deadline.
func NewPostgresLedgerStore(
	db *sqlx.DB,
	accounts *AccountRepository,
	transactions *TransactionRepository,
	investments *InvestmentRepository,
	queryTimeout time.Duration,
	logger *zap.Logger,
) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		investments:  investments,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// WithinTransaction runs fn inside one database transaction. A unit that
// exceeds the query timeout is aborted and rolled back rather than holding
// its row locks indefinitely.
func (s *PostgresLedgerStore) WithinTransaction(ctx context.Context, fn func(ops domainrepos.LedgerTxOps) error) error {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	return database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&ledgerTxOps{store: s, tx: tx})
	})
}

// ledgerTxOps scopes repository calls to one open transaction.
type ledgerTxOps struct {
	store *PostgresLedgerStore
	tx    *sqlx.Tx
}

func (o *ledgerTxOps) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	return o.store.transactions.GetForUpdate(ctx, o.tx, id)
}

func (o *ledgerTxOps) MarkTransactionTerminal(ctx context.Context, id uuid.UUID, status entities.TransactionStatus) error {
	return o.store.transactions.MarkTerminal(ctx, o.tx, id, status)
}

func (o *ledgerTxOps) CreateTransaction(ctx context.Context, tx *entities.Transaction) error {
	return o.store.transactions.CreateTx(ctx, o.tx, tx)
}

func (o *ledgerTxOps) GetAccountByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return o.store.accounts.GetByIDTx(ctx, o.tx, id)
}

func (o *ledgerTxOps) GetAccountForUpdate(ctx context.Context, contact string) (*entities.Account, error) {
	return o.store.accounts.GetForUpdate(ctx, o.tx, contact)
}

func (o *ledgerTxOps) ApplyBalanceDeltas(ctx context.Context, contact string, deltas domainrepos.BalanceDeltas) error {
	return o.store.accounts.ApplyDeltas(ctx, o.tx, contact, deltas)
}

func (o *ledgerTxOps) CreateInvestment(ctx context.Context, inv *entities.Investment) error {
	return o.store.investments.CreateTx(ctx, o.tx, inv)
}

func (o *ledgerTxOps) ClaimDueInvestments(ctx context.Context, now time.Time, limit int) ([]*entities.Investment, error) {
	return o.store.investments.ClaimDue(ctx, o.tx, now, limit)
}

func (o *ledgerTxOps) AdvanceInvestmentSchedule(ctx context.Context, id uuid.UUID, accruedAt, next time.Time) error {
	return o.store.investments.AdvanceSchedule(ctx, o.tx, id, accruedAt, next)
}
