// Package lifecycle exposes administrative control over Pending
// transactions: rescheduling, immediate completion, and cancellation.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/internal/domain/repositories"
)

// Settler finalizes a Pending transaction's balance effect exactly once.
type Settler interface {
	Settle(ctx context.Context, id uuid.UUID) error
}

// Service drives Pending transactions to their terminal state.
type Service struct {
	store   repositories.LedgerStore
	txRepo  repositories.TransactionRepository
	settler Settler
	logger  *zap.Logger
}

// NewService creates a new lifecycle service.
func NewService(store repositories.LedgerStore, txRepo repositories.TransactionRepository, settler Settler, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		txRepo:  txRepo,
		settler: settler,
		logger:  logger,
	}
}

// Reschedule moves a Pending transaction's settlement time. Terminal
// transactions cannot be rescheduled.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := s.txRepo.SetSettleAfter(ctx, id, at); err != nil {
		return err
	}

	s.logger.Info("Transaction rescheduled",
		zap.String("transaction_id", id.String()),
		zap.Time("settle_after", at))

	return nil
}

// CompleteNow settles a Pending transaction immediately, skipping the
// verification window. Idempotence comes from the settlement itself.
func (s *Service) CompleteNow(ctx context.Context, id uuid.UUID) error {
	if err := s.settler.Settle(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Transaction completed by operator", zap.String("transaction_id", id.String()))
	return nil
}

// Cancel fails a Pending transaction without any balance effect. Pending
// rows never touched balances, so cancellation is a pure status flip.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithinTransaction(ctx, func(ops repositories.LedgerTxOps) error {
		tx, err := ops.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if tx.Status.IsTerminal() {
			return domainerrors.AlreadySettledError(id.String())
		}
		return ops.MarkTransactionTerminal(ctx, id, entities.TransactionStatusFailed)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Transaction cancelled by operator", zap.String("transaction_id", id.String()))
	return nil
}
