package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	domainrepos "github.com/royal-empire/club_service/internal/domain/repositories"
)

// AccountRepository implements account persistence using PostgreSQL.
type AccountRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sqlx.DB, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `id, contact, username, password_hash, country, balance,
	total_investment, total_earning, referral_earning, referral_code,
	referred_by, created_at, updated_at`

// Create inserts a new account. A duplicate contact or referral code maps to
// an already-exists domain error.
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) error {
	query := `
		INSERT INTO accounts (
			id, contact, username, password_hash, country, balance,
			total_investment, total_earning, referral_earning, referral_code,
			referred_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Contact,
		account.Username,
		account.PasswordHash,
		account.Country,
		account.Balance,
		account.TotalInvestment,
		account.TotalEarning,
		account.ReferralEarning,
		account.ReferralCode,
		account.ReferredBy,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domainerrors.AlreadyExistsError("account")
		}
		r.logger.Error("Failed to create account", zap.Error(err), zap.String("contact", account.Contact))
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.logger.Debug("Account created", zap.String("account_id", account.ID.String()))
	return nil
}

// GetByContact retrieves an account by its canonical contact identifier.
func (r *AccountRepository) GetByContact(ctx context.Context, contact string) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE contact = $1`

	var account entities.Account
	if err := sqlx.GetContext(ctx, r.db, &account, query, contact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NotFoundError("account")
		}
		r.logger.Error("Failed to get account by contact", zap.Error(err), zap.String("contact", contact))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetByReferralCode retrieves the account owning a referral code.
func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`

	var account entities.Account
	if err := sqlx.GetContext(ctx, r.db, &account, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NotFoundError("account")
		}
		r.logger.Error("Failed to get account by referral code", zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetForUpdate locks an account row inside tx and returns it. Callers that
// lock two accounts must lock them in ascending contact order.
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, contact string) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE contact = $1 FOR UPDATE`

	var account entities.Account
	if err := sqlx.GetContext(ctx, tx, &account, query, contact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NotFoundError("account")
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	return &account, nil
}

// GetByIDTx reads an account by id inside tx, without taking a lock.
func (r *AccountRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	var account entities.Account
	if err := sqlx.GetContext(ctx, tx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NotFoundError("account")
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// ApplyDeltas adds the deltas to an account's balances inside tx. The
// balance >= 0 check constraint backs up the service-level guard.
func (r *AccountRepository) ApplyDeltas(ctx context.Context, tx *sqlx.Tx, contact string, d domainrepos.BalanceDeltas) error {
	query := `
		UPDATE accounts SET
			balance = balance + $2,
			total_investment = total_investment + $3,
			total_earning = total_earning + $4,
			referral_earning = referral_earning + $5,
			updated_at = $6
		WHERE contact = $1`

	res, err := tx.ExecContext(ctx, query,
		contact,
		d.Balance,
		d.TotalInvestment,
		d.TotalEarning,
		d.ReferralEarning,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to apply balance deltas: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.NotFoundError("account")
	}

	return nil
}

// ListContactsReferredBy returns the contacts of accounts directly referred
// by any of the given contacts. Used for the level-by-level downline report.
func (r *AccountRepository) ListContactsReferredBy(ctx context.Context, contacts []string) ([]string, error) {
	if len(contacts) == 0 {
		return nil, nil
	}

	query := `SELECT contact FROM accounts WHERE referred_by = ANY($1) ORDER BY contact`

	var result []string
	if err := sqlx.SelectContext(ctx, r.db, &result, query, pq.Array(contacts)); err != nil {
		r.logger.Error("Failed to list referred contacts", zap.Error(err))
		return nil, fmt.Errorf("failed to list referred contacts: %w", err)
	}

	return result, nil
}

// ReferralCodeExists reports whether a referral code is already taken.
func (r *AccountRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE referral_code = $1)`
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}
	return exists, nil
}
