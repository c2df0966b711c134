// Package ledger owns every balance mutation in the system. Deposits and
// withdrawals are appended as Pending reservations and only touch balances at
// settlement; package purchases settle synchronously. All mutations for one
// operation run inside a single store transaction, and accounts are locked in
// ascending contact order when an operation spans two of them.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/internal/domain/repositories"
)

// ProfileCache invalidates cached profile views after a balance change.
type ProfileCache interface {
	InvalidateProfile(ctx context.Context, contact string)
}

// Config carries the tunable rates and windows of the ledger engine.
type Config struct {
	// ReferralBonusRate is the fraction of a settled deposit credited to the
	// direct referrer. Deposits only.
	ReferralBonusRate decimal.Decimal
	// DailyProfitRate is the fraction of a package amount accrued per period.
	DailyProfitRate decimal.Decimal
	// AccrualPeriod is a day in production, shorter in tests.
	AccrualPeriod time.Duration
	// VerificationDelay is how long deposits/withdrawals stay Pending before
	// the settlement worker picks them up.
	VerificationDelay time.Duration
}

// Service is the ledger engine.
type Service struct {
	store        repositories.LedgerStore
	accountRepo  repositories.AccountRepository
	txRepo       repositories.TransactionRepository
	profileCache ProfileCache
	cfg          Config
	logger       *zap.Logger
}

// NewService creates a new ledger service. profileCache may be nil.
func NewService(
	store repositories.LedgerStore,
	accountRepo repositories.AccountRepository,
	txRepo repositories.TransactionRepository,
	profileCache ProfileCache,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:        store,
		accountRepo:  accountRepo,
		txRepo:       txRepo,
		profileCache: profileCache,
		cfg:          cfg,
		logger:       logger,
	}
}

// RequestDeposit appends a Pending deposit. Balance is untouched until
// settlement. Proof is mandatory for deposits.
func (s *Service) RequestDeposit(ctx context.Context, contact string, amount decimal.Decimal, method, proofURL string) (uuid.UUID, error) {
	if !amount.IsPositive() {
		return uuid.Nil, domainerrors.ValidationError("amount", "amount must be positive")
	}
	if proofURL == "" {
		return uuid.Nil, domainerrors.ValidationError("screenshot", "deposit proof is required")
	}

	return s.appendPending(ctx, contact, entities.TransactionKindDeposit, amount, method, &proofURL)
}

// RequestWithdrawal appends a Pending withdrawal. Sufficient balance is NOT
// checked here: a Pending withdrawal is a reservation verified at settlement
// time, when the balance may have changed.
func (s *Service) RequestWithdrawal(ctx context.Context, contact string, amount decimal.Decimal, method string) (uuid.UUID, error) {
	if !amount.IsPositive() {
		return uuid.Nil, domainerrors.ValidationError("amount", "amount must be positive")
	}

	return s.appendPending(ctx, contact, entities.TransactionKindWithdraw, amount, method, nil)
}

func (s *Service) appendPending(ctx context.Context, contact string, kind entities.TransactionKind, amount decimal.Decimal, method string, proofURL *string) (uuid.UUID, error) {
	contact = entities.NormalizeContact(contact)

	account, err := s.accountRepo.GetByContact(ctx, contact)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now().UTC()
	settleAfter := now.Add(s.cfg.VerificationDelay)
	tx := &entities.Transaction{
		ID:          uuid.New(),
		AccountID:   account.ID,
		Kind:        kind,
		Amount:      amount,
		Method:      method,
		Status:      entities.TransactionStatusPending,
		ProofURL:    proofURL,
		SettleAfter: &settleAfter,
		CreatedAt:   now,
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("Transaction queued",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("contact", contact),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.String()))

	return tx.ID, nil
}

// Settle finalizes a Pending transaction's effect on balances, exactly once.
// Deposits credit the owner and pay the referral bonus; withdrawals re-check
// funds and either debit or fail the transaction. A second call on the same
// id returns an already-settled conflict with no balance effect.
func (s *Service) Settle(ctx context.Context, id uuid.UUID) error {
	var touched []string

	err := s.store.WithinTransaction(ctx, func(ops repositories.LedgerTxOps) error {
		tx, err := ops.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if tx.Status.IsTerminal() {
			return domainerrors.AlreadySettledError(id.String())
		}

		owner, err := ops.GetAccountByID(ctx, tx.AccountID)
		if err != nil {
			return err
		}

		switch tx.Kind {
		case entities.TransactionKindDeposit:
			touched, err = s.settleDeposit(ctx, ops, tx, owner)
		case entities.TransactionKindWithdraw:
			touched, err = s.settleWithdrawal(ctx, ops, tx, owner)
		default:
			// Investment transactions are recorded terminal at purchase time;
			// a Pending one is corrupt state.
			return domainerrors.ConflictError("transaction", "kind does not settle asynchronously")
		}
		return err
	})
	if err != nil {
		return err
	}

	s.invalidateProfiles(ctx, touched)
	return nil
}

func (s *Service) settleDeposit(ctx context.Context, ops repositories.LedgerTxOps, tx *entities.Transaction, owner *entities.Account) ([]string, error) {
	referrerContact := ""
	if owner.ReferredBy != nil && *owner.ReferredBy != owner.Contact {
		referrerContact = *owner.ReferredBy
	}

	// Lock in ascending contact order so a concurrent settlement touching the
	// same pair cannot deadlock us.
	contacts := []string{owner.Contact}
	if referrerContact != "" {
		contacts = append(contacts, referrerContact)
		sort.Strings(contacts)
	}

	referrerExists := false
	for _, contact := range contacts {
		if _, err := ops.GetAccountForUpdate(ctx, contact); err != nil {
			if contact == referrerContact && domainerrors.IsNotFound(err) {
				// Referrer deleted since registration: deposit still settles,
				// bonus is skipped.
				continue
			}
			return nil, err
		}
		if contact == referrerContact {
			referrerExists = true
		}
	}

	if err := ops.ApplyBalanceDeltas(ctx, owner.Contact, repositories.BalanceDeltas{
		Balance:      tx.Amount,
		TotalEarning: tx.Amount,
	}); err != nil {
		return nil, err
	}

	touched := []string{owner.Contact}
	if referrerExists {
		bonus := tx.Amount.Mul(s.cfg.ReferralBonusRate)
		if err := ops.ApplyBalanceDeltas(ctx, referrerContact, repositories.BalanceDeltas{
			Balance:         bonus,
			ReferralEarning: bonus,
		}); err != nil {
			return nil, err
		}
		touched = append(touched, referrerContact)

		s.logger.Info("Referral bonus credited",
			zap.String("referrer", referrerContact),
			zap.String("referred", owner.Contact),
			zap.String("bonus", bonus.String()))
	}

	if err := ops.MarkTransactionTerminal(ctx, tx.ID, entities.TransactionStatusCompleted); err != nil {
		return nil, err
	}

	s.logger.Info("Deposit settled",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("contact", owner.Contact),
		zap.String("amount", tx.Amount.String()))

	return touched, nil
}

func (s *Service) settleWithdrawal(ctx context.Context, ops repositories.LedgerTxOps, tx *entities.Transaction, owner *entities.Account) ([]string, error) {
	account, err := ops.GetAccountForUpdate(ctx, owner.Contact)
	if err != nil {
		return nil, err
	}

	// Balance is checked now, not at request time. Not enough funds settles
	// the transaction to Failed rather than silently skipping it.
	if account.Balance.LessThan(tx.Amount) {
		if err := ops.MarkTransactionTerminal(ctx, tx.ID, entities.TransactionStatusFailed); err != nil {
			return nil, err
		}

		s.logger.Warn("Withdrawal failed at settlement",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("contact", owner.Contact),
			zap.String("balance", account.Balance.String()),
			zap.String("amount", tx.Amount.String()))

		return nil, nil
	}

	if err := ops.ApplyBalanceDeltas(ctx, owner.Contact, repositories.BalanceDeltas{
		Balance: tx.Amount.Neg(),
	}); err != nil {
		return nil, err
	}

	if err := ops.MarkTransactionTerminal(ctx, tx.ID, entities.TransactionStatusCompleted); err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal settled",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("contact", owner.Contact),
		zap.String("amount", tx.Amount.String()))

	return []string{owner.Contact}, nil
}

// PurchasePackage atomically debits the balance, records the investment
// transaction as immediately Completed, and registers the recurring
// daily-profit obligation. The schedule lives in the database, so it survives
// restarts.
func (s *Service) PurchasePackage(ctx context.Context, contact string, amount decimal.Decimal, packageName string) (*entities.Account, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.ValidationError("amount", "amount must be positive")
	}

	contact = entities.NormalizeContact(contact)
	var updated *entities.Account

	err := s.store.WithinTransaction(ctx, func(ops repositories.LedgerTxOps) error {
		account, err := ops.GetAccountForUpdate(ctx, contact)
		if err != nil {
			return err
		}

		if account.Balance.LessThan(amount) {
			return domainerrors.InsufficientFundsError(account.Balance.String(), amount.String())
		}

		if err := ops.ApplyBalanceDeltas(ctx, contact, repositories.BalanceDeltas{
			Balance:         amount.Neg(),
			TotalInvestment: amount,
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		settledAt := now
		method := packageName
		if method == "" {
			method = "Package Purchase"
		}

		// Purchases settle synchronously: the transaction is born terminal.
		if err := ops.CreateTransaction(ctx, &entities.Transaction{
			ID:        uuid.New(),
			AccountID: account.ID,
			Kind:      entities.TransactionKindInvestment,
			Amount:    amount,
			Method:    method,
			Status:    entities.TransactionStatusCompleted,
			SettledAt: &settledAt,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if err := ops.CreateInvestment(ctx, &entities.Investment{
			ID:            uuid.New(),
			AccountID:     account.ID,
			PackageName:   packageName,
			Amount:        amount,
			DailyProfit:   amount.Mul(s.cfg.DailyProfitRate),
			Status:        entities.InvestmentStatusActive,
			NextAccrualAt: now.Add(s.cfg.AccrualPeriod),
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		snapshot := *account
		snapshot.Balance = account.Balance.Sub(amount)
		snapshot.TotalInvestment = account.TotalInvestment.Add(amount)
		updated = &snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProfiles(ctx, []string{contact})

	s.logger.Info("Package purchased",
		zap.String("contact", contact),
		zap.String("package", packageName),
		zap.String("amount", amount.String()))

	return updated, nil
}

// AccrueDueProfits pays every due profit period on active investments, at
// most batchSize investments per call. It is driven by the durable
// next_accrual_at schedule and is safe to re-run: each claim advances the
// schedule in the same transaction as the credit.
func (s *Service) AccrueDueProfits(ctx context.Context, now time.Time, batchSize int) (int, error) {
	accrued := 0
	var touched []string

	err := s.store.WithinTransaction(ctx, func(ops repositories.LedgerTxOps) error {
		investments, err := ops.ClaimDueInvestments(ctx, now, batchSize)
		if err != nil {
			return err
		}

		type dueInvestment struct {
			inv   *entities.Investment
			owner *entities.Account
		}
		due := make([]dueInvestment, 0, len(investments))
		for _, inv := range investments {
			account, err := ops.GetAccountByID(ctx, inv.AccountID)
			if err != nil {
				if domainerrors.IsNotFound(err) {
					// Account removed by administrative repair; obligation dies
					// with it.
					continue
				}
				return err
			}
			due = append(due, dueInvestment{inv: inv, owner: account})
		}

		// Lock accounts in ascending contact order, the same order
		// settlements use, so a sweep cannot deadlock a concurrent
		// settlement on the same accounts.
		sort.SliceStable(due, func(i, j int) bool {
			return due[i].owner.Contact < due[j].owner.Contact
		})

		for _, d := range due {
			if _, err := ops.GetAccountForUpdate(ctx, d.owner.Contact); err != nil {
				return err
			}

			// Pay one credit per elapsed period, so downtime never swallows
			// an accrual.
			periods := int64(0)
			next := d.inv.NextAccrualAt
			for !next.After(now) {
				periods++
				next = next.Add(s.cfg.AccrualPeriod)
			}

			payout := d.inv.DailyProfit.Mul(decimal.NewFromInt(periods))
			if err := ops.ApplyBalanceDeltas(ctx, d.owner.Contact, repositories.BalanceDeltas{
				Balance:      payout,
				TotalEarning: payout,
			}); err != nil {
				return err
			}

			if err := ops.AdvanceInvestmentSchedule(ctx, d.inv.ID, now, next); err != nil {
				return err
			}

			touched = append(touched, d.owner.Contact)
			accrued++

			s.logger.Info("Daily profit accrued",
				zap.String("investment_id", d.inv.ID.String()),
				zap.String("contact", d.owner.Contact),
				zap.Int64("periods", periods),
				zap.String("payout", payout.String()))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidateProfiles(ctx, touched)
	return accrued, nil
}

func (s *Service) invalidateProfiles(ctx context.Context, contacts []string) {
	if s.profileCache == nil {
		return
	}
	for _, contact := range contacts {
		s.profileCache.InvalidateProfile(ctx, contact)
	}
}
