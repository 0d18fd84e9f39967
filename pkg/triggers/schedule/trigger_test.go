package schedule

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewTrigger(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{"valid standard expression", map[string]any{"cron": "*/5 * * * *"}, false},
		{"valid descriptor", map[string]any{"cron": "@hourly"}, false},
		{"missing cron", map[string]any{}, true},
		{"malformed cron", map[string]any{"cron": "every tuesday"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewTrigger("wf-1", tt.config, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "wf-1", trigger.WorkflowID)
			assert.True(t, trigger.Enabled)
		})
	}
}

func TestNewTrigger_DisabledFlag(t *testing.T) {
	trigger, err := NewTrigger("wf-1", map[string]any{"cron": "@daily", "enabled": false}, discardLogger())
	require.NoError(t, err)
	assert.False(t, trigger.Enabled)

	// A disabled trigger starts and stops without scheduling anything.
	require.NoError(t, trigger.Start(context.Background(), nil))
	require.NoError(t, trigger.Stop(context.Background()))
}

func TestTrigger_FiresCallback(t *testing.T) {
	trigger, err := NewTrigger("wf-1", map[string]any{"cron": "@every 10ms"}, discardLogger())
	require.NoError(t, err)

	var fired atomic.Int32

	payloads := make(chan map[string]any, 16)

	err = trigger.Start(context.Background(), func(_ context.Context, workflowID string, payload map[string]any) error {
		assert.Equal(t, "wf-1", workflowID)
		fired.Add(1)

		select {
		case payloads <- payload:
		default:
		}

		return nil
	})
	require.NoError(t, err)

	defer func() { _ = trigger.Stop(context.Background()) }()

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	payload := <-payloads
	assert.NotEmpty(t, payload["timestamp"])
	assert.Equal(t, "@every 10ms", payload["cron"])
}
