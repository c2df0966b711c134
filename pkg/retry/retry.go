// Package retry provides bounded-backoff retry for calls to external
// backends. Validation and conflict errors are never retried; exhaustion
// surfaces as a backend-unavailable error carrying the backend's name.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
)

// Policy controls retry behavior.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultPolicy is suitable for database and blob-store calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
	}
}

// Validate checks the policy for sane values.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative")
	}
	if p.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be positive")
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1")
	}
	return nil
}

// Retrier handles retry logic. backend names the dependency it guards and is
// carried on the exhaustion error.
type Retrier struct {
	policy  Policy
	backend string
	logger  *zap.Logger
}

// NewRetrier creates a new retrier
func NewRetrier(policy Policy, backend string, logger *zap.Logger) *Retrier {
	if err := policy.Validate(); err != nil {
		panic(fmt.Sprintf("invalid retry policy: %v", err))
	}

	return &Retrier{
		policy:  policy,
		backend: backend,
		logger:  logger,
	}
}

// Do executes a function with retry logic
func (r *Retrier) Do(ctx context.Context, operation func() error) error {
	var lastErr error
	backoff := r.policy.InitialBackoff

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()

		if lastErr == nil {
			if attempt > 0 {
				r.logger.Info("Operation succeeded after retries",
					zap.Int("attempt", attempt),
					zap.Int("max_retries", r.policy.MaxRetries))
			}
			return nil
		}

		if !isRetryable(lastErr) {
			r.logger.Debug("Error is not retryable",
				zap.Error(lastErr),
				zap.Int("attempt", attempt))
			return lastErr
		}

		if attempt >= r.policy.MaxRetries {
			break
		}

		r.logger.Warn("Operation failed, retrying",
			zap.Error(lastErr),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * r.policy.Multiplier)
		if backoff > r.policy.MaxBackoff {
			backoff = r.policy.MaxBackoff
		}
	}

	r.logger.Error("Retries exhausted",
		zap.String("backend", r.backend),
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr))

	return domainerrors.BackendUnavailableError(r.backend, lastErr)
}

func isRetryable(err error) bool {
	// Domain errors carry their own retryability; input and state conflicts
	// must never be replayed.
	if domainerrors.IsInvalidInput(err) ||
		domainerrors.IsConflict(err) ||
		domainerrors.IsAlreadySettled(err) ||
		domainerrors.IsInsufficientFunds(err) ||
		domainerrors.IsNotFound(err) {
		return false
	}
	return true
}
