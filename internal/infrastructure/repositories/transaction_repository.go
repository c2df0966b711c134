package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
)

// TransactionRepository implements transaction persistence using PostgreSQL.
type TransactionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sqlx.DB, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

const transactionColumns = `id, account_id, kind, amount, method, status,
	proof_url, settle_after, settled_at, created_at`

// Create inserts a new transaction row.
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, account_id, kind, amount, method, status,
			proof_url, settle_after, settled_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Kind,
		tx.Amount,
		tx.Method,
		tx.Status,
		tx.ProofURL,
		tx.SettleAfter,
		tx.SettledAt,
		tx.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", zap.Error(err), zap.String("transaction_id", tx.ID.String()))
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// CreateTx inserts a new transaction row inside dbTx.
func (r *TransactionRepository) CreateTx(ctx context.Context, dbTx *sqlx.Tx, tx *entities.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, account_id, kind, amount, method, status,
			proof_url, settle_after, settled_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := dbTx.ExecContext(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Kind,
		tx.Amount,
		tx.Method,
		tx.Status,
		tx.ProofURL,
		tx.SettleAfter,
		tx.SettledAt,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by id.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	var tx entities.Transaction
	if err := sqlx.GetContext(ctx, r.db, &tx, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NotFoundError("transaction")
		}
		r.logger.Error("Failed to get transaction", zap.Error(err), zap.String("transaction_id", id.String()))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

// GetForUpdate locks a transaction row inside dbTx and returns it.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, dbTx *sqlx.Tx, id uuid.UUID) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	var tx entities.Transaction
	if err := sqlx.GetContext(ctx, dbTx, &tx, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NotFoundError("transaction")
		}
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}

	return &tx, nil
}

// MarkTerminal moves a Pending transaction to a terminal status inside dbTx.
// The status predicate makes the transition at-most-once: zero rows affected
// means some other settlement got there first.
func (r *TransactionRepository) MarkTerminal(ctx context.Context, dbTx *sqlx.Tx, id uuid.UUID, status entities.TransactionStatus) error {
	if !status.IsTerminal() {
		return domainerrors.ValidationError("status", "terminal status required")
	}

	query := `
		UPDATE transactions
		SET status = $2, settled_at = $3
		WHERE id = $1 AND status = 'Pending'`

	res, err := dbTx.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark transaction terminal: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.AlreadySettledError(id.String())
	}

	return nil
}

// SetSettleAfter reschedules a still-Pending transaction.
func (r *TransactionRepository) SetSettleAfter(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE transactions SET settle_after = $2 WHERE id = $1 AND status = 'Pending'`

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to set settle_after: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.AlreadySettledError(id.String())
	}

	return nil
}

// DueIDs returns ids of Pending transactions whose settle_after has passed,
// ordered so settlements for one account run in creation order.
func (r *TransactionRepository) DueIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM transactions
		WHERE status = 'Pending' AND settle_after IS NOT NULL AND settle_after <= $1
		ORDER BY account_id, created_at
		LIMIT $2`

	var ids []uuid.UUID
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, now, limit); err != nil {
		r.logger.Error("Failed to list due transactions", zap.Error(err))
		return nil, fmt.Errorf("failed to list due transactions: %w", err)
	}

	return ids, nil
}

// ListByAccount returns an account's transaction history, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var txs []*entities.Transaction
	if err := sqlx.SelectContext(ctx, r.db, &txs, query, accountID, limit, offset); err != nil {
		r.logger.Error("Failed to list transactions", zap.Error(err), zap.String("account_id", accountID.String()))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txs, nil
}
