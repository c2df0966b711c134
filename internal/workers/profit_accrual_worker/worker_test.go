package profit_accrual_worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type mockAccruer struct {
	batches []int
	calls   int
	err     error
}

func (m *mockAccruer) AccrueDueProfits(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.calls >= len(m.batches) {
		return 0, nil
	}
	n := m.batches[m.calls]
	m.calls++
	return n, nil
}

func TestSweepDrainsBacklog(t *testing.T) {
	// Two full batches then a partial one: the sweep keeps going until the
	// partial batch signals the backlog is empty.
	accruer := &mockAccruer{batches: []int{100, 100, 40}}

	w := NewWorker(accruer, &Config{CronSpec: "@every 1m", BatchSize: 100}, zap.NewNop())
	w.RunOnce(context.Background())

	assert.Equal(t, 3, accruer.calls)
}

func TestSweepStopsWhenNothingDue(t *testing.T) {
	accruer := &mockAccruer{}

	w := NewWorker(accruer, nil, zap.NewNop())
	w.RunOnce(context.Background())

	assert.Equal(t, 0, accruer.calls)
}

func TestSweepStopsOnError(t *testing.T) {
	accruer := &mockAccruer{err: errors.New("db down")}

	w := NewWorker(accruer, nil, zap.NewNop())
	w.RunOnce(context.Background())

	assert.Equal(t, 0, accruer.calls)
}
