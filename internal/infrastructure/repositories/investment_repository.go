package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
)

// InvestmentRepository implements package-investment persistence using
// PostgreSQL. The next_accrual_at column is the durable profit schedule.
type InvestmentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewInvestmentRepository creates a new investment repository
func NewInvestmentRepository(db *sqlx.DB, logger *zap.Logger) *InvestmentRepository {
	return &InvestmentRepository{
		db:     db,
		logger: logger,
	}
}

const investmentColumns = `id, account_id, package_name, amount, daily_profit,
	status, last_accrual_at, next_accrual_at, created_at`

// CreateTx inserts an investment row inside dbTx, as part of a package
// purchase.
func (r *InvestmentRepository) CreateTx(ctx context.Context, dbTx *sqlx.Tx, inv *entities.Investment) error {
	query := `
		INSERT INTO investments (
			id, account_id, package_name, amount, daily_profit,
			status, last_accrual_at, next_accrual_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := dbTx.ExecContext(ctx, query,
		inv.ID,
		inv.AccountID,
		inv.PackageName,
		inv.Amount,
		inv.DailyProfit,
		inv.Status,
		inv.LastAccrualAt,
		inv.NextAccrualAt,
		inv.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create investment", zap.Error(err), zap.String("investment_id", inv.ID.String()))
		return fmt.Errorf("failed to create investment: %w", err)
	}

	return nil
}

// ClaimDue locks and returns active investments whose accrual is due.
// SKIP LOCKED lets concurrent sweeps (or replicas) partition the work instead
// of double-paying.
func (r *InvestmentRepository) ClaimDue(ctx context.Context, dbTx *sqlx.Tx, now time.Time, limit int) ([]*entities.Investment, error) {
	query := `
		SELECT ` + investmentColumns + ` FROM investments
		WHERE status = 'active' AND next_accrual_at <= $1
		ORDER BY next_accrual_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	var invs []*entities.Investment
	if err := sqlx.SelectContext(ctx, dbTx, &invs, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to claim due investments: %w", err)
	}

	return invs, nil
}

// AdvanceSchedule records an accrual and moves the schedule forward inside
// dbTx.
func (r *InvestmentRepository) AdvanceSchedule(ctx context.Context, dbTx *sqlx.Tx, id uuid.UUID, accruedAt, next time.Time) error {
	query := `
		UPDATE investments
		SET last_accrual_at = $2, next_accrual_at = $3
		WHERE id = $1`

	if _, err := dbTx.ExecContext(ctx, query, id, accruedAt, next); err != nil {
		return fmt.Errorf("failed to advance accrual schedule: %w", err)
	}

	return nil
}

// ListByAccount returns an account's investments, newest first.
func (r *InvestmentRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.Investment, error) {
	query := `
		SELECT ` + investmentColumns + ` FROM investments
		WHERE account_id = $1
		ORDER BY created_at DESC`

	var invs []*entities.Investment
	if err := sqlx.SelectContext(ctx, r.db, &invs, query, accountID); err != nil {
		r.logger.Error("Failed to list investments", zap.Error(err), zap.String("account_id", accountID.String()))
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}

	return invs, nil
}
