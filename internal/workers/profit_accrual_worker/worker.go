package profit_accrual_worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Accruer pays out every due profit period on active investments.
type Accruer interface {
	AccrueDueProfits(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// Worker sweeps active investments on a cron schedule and credits daily
// profit for every elapsed period. Investments due while the process was
// down are caught up on the first sweep after start.
type Worker struct {
	accruer   Accruer
	cronSpec  string
	batchSize int
	cron      *cron.Cron
	logger    *zap.Logger
}

// Config holds worker configuration
type Config struct {
	CronSpec  string
	BatchSize int
}

// DefaultConfig returns default worker configuration
func DefaultConfig() *Config {
	return &Config{
		CronSpec:  "@every 1m",
		BatchSize: 100,
	}
}

// NewWorker creates a new profit accrual worker
func NewWorker(accruer Accruer, config *Config, logger *zap.Logger) *Worker {
	if config == nil {
		config = DefaultConfig()
	}
	return &Worker{
		accruer:   accruer,
		cronSpec:  config.CronSpec,
		batchSize: config.BatchSize,
		logger:    logger,
	}
}

// Start schedules the accrual sweep and runs one immediately.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting profit accrual worker",
		zap.String("cron_spec", w.cronSpec),
		zap.Int("batch_size", w.batchSize))

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.cronSpec, func() {
		w.sweep(ctx)
	}); err != nil {
		return err
	}

	w.sweep(ctx)
	w.cron.Start()
	return nil
}

// Stop halts the cron scheduler and waits for a running sweep to finish.
func (w *Worker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.logger.Info("Profit accrual worker stopped")
}

func (w *Worker) sweep(ctx context.Context) {
	// Keep claiming batches until nothing is due, so a large backlog does not
	// wait for the next tick.
	for {
		accrued, err := w.accruer.AccrueDueProfits(ctx, time.Now().UTC(), w.batchSize)
		if err != nil {
			w.logger.Error("Profit accrual sweep failed", zap.Error(err))
			return
		}
		if accrued == 0 {
			return
		}

		w.logger.Info("Profit accrual batch completed", zap.Int("accrued", accrued))

		if accrued < w.batchSize {
			return
		}
	}
}

// RunOnce runs one sweep (for testing or manual trigger)
func (w *Worker) RunOnce(ctx context.Context) {
	w.sweep(ctx)
}
