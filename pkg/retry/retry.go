// Package retry wraps a single step invocation with exponential-backoff
// retry, classifying errors as recoverable or not.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weftworks/weft/pkg/models"
)

// Config controls the retry budget and backoff curve for one step.
type Config struct {
	// MaxAttempts is the number of retries after the first failure (default 3).
	MaxAttempts int `json:"max_attempts"`

	// InitialBackoff is the delay before the first retry (default 1s).
	InitialBackoff time.Duration `json:"initial_backoff"`

	// MaxBackoff caps the exponential growth (default 30s).
	MaxBackoff time.Duration `json:"max_backoff"`

	// BackoffFactor is the exponential multiplier (default 2.0).
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

func (c Config) Validate() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be non-negative, got %d", c.MaxAttempts)
	}

	if c.InitialBackoff < 0 {
		return fmt.Errorf("initial_backoff must be non-negative, got %v", c.InitialBackoff)
	}

	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must be >= initial_backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}

	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff_factor must be >= 1.0, got %f", c.BackoffFactor)
	}

	return nil
}

// Backoff returns the sleep before retry attempt n (1-based), capped at
// MaxBackoff.
func (c Config) Backoff(attempt int) time.Duration {
	delay := c.InitialBackoff

	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * c.BackoffFactor)
		if delay >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}

	if delay > c.MaxBackoff {
		return c.MaxBackoff
	}

	return delay
}

// Invocation is the unit of work the handler retries.
type Invocation func(ctx context.Context) (map[string]any, error)

// Handler retries recoverable failures with exponential backoff. Backoff
// sleeps wake early when the context is cancelled.
type Handler struct {
	config Config
	logger *slog.Logger

	// OnRetry is called before each backoff sleep, e.g. to flip the step
	// status to retrying and count attempts.
	OnRetry func(attempt int, err error)
}

func NewHandler(config Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		config: config,
		logger: logger.With("module", "retry_handler"),
	}
}

// Do invokes fn, retrying recoverable errors within the budget. After the
// budget is spent it returns a non-recoverable retry-exhausted error
// embedding the attempt count and the last underlying error.
func (h *Handler) Do(ctx context.Context, nodeID string, fn Invocation) (map[string]any, error) {
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			if h.OnRetry != nil {
				h.OnRetry(attempt, lastErr)
			}

			delay := h.config.Backoff(attempt)
			h.logger.Debug("Backing off before retry",
				"node_id", nodeID,
				"attempt", attempt,
				"delay", delay,
			)

			if err := sleep(ctx, delay); err != nil {
				return nil, models.NewCancelledError(nodeID)
			}
		}

		output, err := fn(ctx)
		if err == nil {
			return output, nil
		}

		if ctx.Err() != nil {
			return nil, models.NewCancelledError(nodeID)
		}

		if !models.IsRecoverable(err) {
			return nil, models.AsExecutionError(err, nodeID)
		}

		lastErr = err

		h.logger.Warn("Step attempt failed",
			"node_id", nodeID,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, models.NewRetryExhaustedError(nodeID, h.config.MaxAttempts, lastErr)
}

// sleep blocks for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
