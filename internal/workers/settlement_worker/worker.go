package settlement_worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/internal/domain/repositories"
	"github.com/royal-empire/club_service/pkg/retry"
)

// Settler finalizes one Pending transaction exactly once.
type Settler interface {
	Settle(ctx context.Context, id uuid.UUID) error
}

// Worker drives Pending deposits and withdrawals to their terminal state once
// their verification window has passed. The schedule lives in the database,
// so transactions queued before a restart are still picked up afterwards.
type Worker struct {
	txRepo       repositories.TransactionRepository
	settler      Settler
	pollInterval time.Duration
	batchSize    int
	retrier      *retry.Retrier
	logger       *zap.Logger
	stopCh       chan struct{}
}

// Config holds worker configuration
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxRetries bounds replays of a transient settlement failure before it
	// is surfaced as a backend outage. Zero keeps the default policy.
	MaxRetries int
}

// DefaultConfig returns default worker configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 2 * time.Second,
		BatchSize:    50,
	}
}

// NewWorker creates a new settlement worker
func NewWorker(txRepo repositories.TransactionRepository, settler Settler, config *Config, logger *zap.Logger) *Worker {
	if config == nil {
		config = DefaultConfig()
	}
	policy := retry.DefaultPolicy()
	if config.MaxRetries > 0 {
		policy.MaxRetries = config.MaxRetries
	}
	return &Worker{
		txRepo:       txRepo,
		settler:      settler,
		pollInterval: config.PollInterval,
		batchSize:    config.BatchSize,
		retrier:      retry.NewRetrier(policy, "database", logger),
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the settlement processing loop
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting settlement worker",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Run immediately on start to drain anything due while we were down.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Settlement worker stopped (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Info("Settlement worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop signals the worker to stop
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) sweep(ctx context.Context) {
	ids, err := w.txRepo.DueIDs(ctx, time.Now().UTC(), w.batchSize)
	if err != nil {
		w.logger.Error("Failed to list due transactions", zap.Error(err))
		return
	}

	if len(ids) == 0 {
		return
	}

	settled := 0
	for _, id := range ids {
		if err := w.settleOne(ctx, id); err != nil {
			// Another settler winning the race is success, not failure.
			if domainerrors.IsAlreadySettled(err) {
				continue
			}
			w.logger.Error("Failed to settle transaction",
				zap.String("transaction_id", id.String()),
				zap.Error(err))
			continue
		}
		settled++
	}

	w.logger.Info("Settlement sweep completed",
		zap.Int("due", len(ids)),
		zap.Int("settled", settled))
}

func (w *Worker) settleOne(ctx context.Context, id uuid.UUID) error {
	return w.retrier.Do(ctx, func() error {
		return w.settler.Settle(ctx, id)
	})
}

// RunOnce runs one sweep (for testing or manual trigger)
func (w *Worker) RunOnce(ctx context.Context) {
	w.sweep(ctx)
}
