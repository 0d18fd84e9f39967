package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
)

func fastConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative attempts", func(c *Config) { c.MaxAttempts = -1 }},
		{"negative initial", func(c *Config) { c.InitialBackoff = -time.Second }},
		{"max below initial", func(c *Config) { c.MaxBackoff = c.InitialBackoff / 2 }},
		{"factor below one", func(c *Config) { c.BackoffFactor = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestConfig_BackoffGrowsExponentiallyAndCaps(t *testing.T) {
	config := Config{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
	}

	assert.Equal(t, 1*time.Second, config.Backoff(1))
	assert.Equal(t, 2*time.Second, config.Backoff(2))
	assert.Equal(t, 4*time.Second, config.Backoff(3))
	assert.Equal(t, 5*time.Second, config.Backoff(4))
	assert.Equal(t, 5*time.Second, config.Backoff(5))
}

func TestHandler_SucceedsFirstTry(t *testing.T) {
	handler := NewHandler(fastConfig(3), nil)

	calls := 0

	output, err := handler.Do(context.Background(), "n1", func(context.Context) (map[string]any, error) {
		calls++

		return map[string]any{"ok": true}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, output)
	assert.Equal(t, 1, calls)
}

func TestHandler_RetriesRecoverableThenSucceeds(t *testing.T) {
	handler := NewHandler(fastConfig(3), nil)

	calls := 0

	output, err := handler.Do(context.Background(), "n1", func(context.Context) (map[string]any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}

		return map[string]any{"calls": calls}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, map[string]any{"calls": 3}, output)
}

func TestHandler_ExhaustsBudget(t *testing.T) {
	handler := NewHandler(fastConfig(2), nil)

	retries := 0
	handler.OnRetry = func(attempt int, err error) {
		retries++
		assert.Equal(t, retries, attempt)
		assert.Error(t, err)
	}

	calls := 0

	_, err := handler.Do(context.Background(), "flaky", func(context.Context) (map[string]any, error) {
		calls++

		return nil, errors.New("always fails")
	})

	require.Error(t, err)

	var execErr *models.ExecutionError

	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, models.ErrorKindRetryExhausted, execErr.Kind)
	assert.False(t, execErr.Recoverable)
	assert.Equal(t, "flaky", execErr.NodeID)
	assert.Equal(t, 2, execErr.Details["attempts"])
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
	assert.Equal(t, 2, retries)
	assert.ErrorContains(t, err, "always fails")
}

func TestHandler_NonRecoverableFailsImmediately(t *testing.T) {
	handler := NewHandler(fastConfig(3), nil)

	calls := 0

	_, err := handler.Do(context.Background(), "strict", func(context.Context) (map[string]any, error) {
		calls++

		return nil, models.NewValidationError("strict", "bad config")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var execErr *models.ExecutionError

	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, models.ErrorKindValidation, execErr.Kind)
}

func TestHandler_CancellationWakesBackoff(t *testing.T) {
	config := Config{
		MaxAttempts:    3,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
		BackoffFactor:  2.0,
	}
	handler := NewHandler(config, nil)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()

	_, err := handler.Do(ctx, "slow", func(context.Context) (map[string]any, error) {
		return nil, errors.New("transient")
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var execErr *models.ExecutionError

	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, models.ErrorKindCancelled, execErr.Kind)
}
