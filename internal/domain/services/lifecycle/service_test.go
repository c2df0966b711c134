package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/internal/domain/repositories"
)

// mockTxStore implements the transaction repository and LedgerStore surfaces
// the lifecycle service touches.
type mockTxStore struct {
	txs map[uuid.UUID]*entities.Transaction
}

func newMockTxStore() *mockTxStore {
	return &mockTxStore{txs: make(map[uuid.UUID]*entities.Transaction)}
}

func (m *mockTxStore) addPending() uuid.UUID {
	id := uuid.New()
	m.txs[id] = &entities.Transaction{
		ID:     id,
		Kind:   entities.TransactionKindDeposit,
		Status: entities.TransactionStatusPending,
	}
	return id
}

func (m *mockTxStore) Create(ctx context.Context, tx *entities.Transaction) error {
	m.txs[tx.ID] = tx
	return nil
}

func (m *mockTxStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	if tx, ok := m.txs[id]; ok {
		return tx, nil
	}
	return nil, domainerrors.NotFoundError("transaction")
}

func (m *mockTxStore) SetSettleAfter(ctx context.Context, id uuid.UUID, at time.Time) error {
	tx, ok := m.txs[id]
	if !ok || tx.Status != entities.TransactionStatusPending {
		return domainerrors.AlreadySettledError(id.String())
	}
	tx.SettleAfter = &at
	return nil
}

func (m *mockTxStore) DueIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

func (m *mockTxStore) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.Transaction, error) {
	return nil, nil
}

func (m *mockTxStore) WithinTransaction(ctx context.Context, fn func(ops repositories.LedgerTxOps) error) error {
	return fn(m)
}

// LedgerTxOps

func (m *mockTxStore) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	return m.GetByID(ctx, id)
}

func (m *mockTxStore) MarkTransactionTerminal(ctx context.Context, id uuid.UUID, status entities.TransactionStatus) error {
	tx, ok := m.txs[id]
	if !ok {
		return domainerrors.NotFoundError("transaction")
	}
	if tx.Status != entities.TransactionStatusPending {
		return domainerrors.AlreadySettledError(id.String())
	}
	tx.Status = status
	return nil
}

func (m *mockTxStore) CreateTransaction(ctx context.Context, tx *entities.Transaction) error {
	return m.Create(ctx, tx)
}

func (m *mockTxStore) GetAccountByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return nil, domainerrors.NotFoundError("account")
}

func (m *mockTxStore) GetAccountForUpdate(ctx context.Context, contact string) (*entities.Account, error) {
	return nil, domainerrors.NotFoundError("account")
}

func (m *mockTxStore) ApplyBalanceDeltas(ctx context.Context, contact string, deltas repositories.BalanceDeltas) error {
	return nil
}

func (m *mockTxStore) CreateInvestment(ctx context.Context, inv *entities.Investment) error {
	return nil
}

func (m *mockTxStore) ClaimDueInvestments(ctx context.Context, now time.Time, limit int) ([]*entities.Investment, error) {
	return nil, nil
}

func (m *mockTxStore) AdvanceInvestmentSchedule(ctx context.Context, id uuid.UUID, accruedAt, next time.Time) error {
	return nil
}

// recordingSettler records settle calls.
type recordingSettler struct {
	calls []uuid.UUID
	err   error
}

func (r *recordingSettler) Settle(ctx context.Context, id uuid.UUID) error {
	r.calls = append(r.calls, id)
	return r.err
}

func TestCompleteNowDelegatesToSettler(t *testing.T) {
	store := newMockTxStore()
	id := store.addPending()
	settler := &recordingSettler{}

	svc := NewService(store, store, settler, zap.NewNop())

	require.NoError(t, svc.CompleteNow(context.Background(), id))
	require.Len(t, settler.calls, 1)
	assert.Equal(t, id, settler.calls[0])
}

func TestCancelFailsPendingTransaction(t *testing.T) {
	store := newMockTxStore()
	id := store.addPending()

	svc := NewService(store, store, &recordingSettler{}, zap.NewNop())

	require.NoError(t, svc.Cancel(context.Background(), id))
	assert.Equal(t, entities.TransactionStatusFailed, store.txs[id].Status)

	// A second cancel is a conflict, not a double transition.
	err := svc.Cancel(context.Background(), id)
	assert.True(t, domainerrors.IsAlreadySettled(err))
}

func TestRescheduleMovesSettleAfter(t *testing.T) {
	store := newMockTxStore()
	id := store.addPending()

	svc := NewService(store, store, &recordingSettler{}, zap.NewNop())

	at := time.Now().UTC().Add(time.Hour)
	require.NoError(t, svc.Reschedule(context.Background(), id, at))
	require.NotNil(t, store.txs[id].SettleAfter)
	assert.True(t, store.txs[id].SettleAfter.Equal(at))
}

func TestRescheduleTerminalTransactionRejected(t *testing.T) {
	store := newMockTxStore()
	id := store.addPending()
	store.txs[id].Status = entities.TransactionStatusCompleted

	svc := NewService(store, store, &recordingSettler{}, zap.NewNop())

	err := svc.Reschedule(context.Background(), id, time.Now().UTC())
	assert.True(t, domainerrors.IsAlreadySettled(err))
}
