package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	action := NewAction()

	tests := []struct {
		name      string
		config    map[string]any
		wantLevel string
	}{
		{"defaults to info", map[string]any{"message": "hello"}, "info"},
		{"debug", map[string]any{"message": "hello", "level": "debug"}, "debug"},
		{"warn", map[string]any{"message": "hello", "level": "warn"}, "warn"},
		{"error", map[string]any{"message": "hello", "level": "error"}, "error"},
		{"unknown level falls back", map[string]any{"message": "hello", "level": "shout"}, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			output, err := action.Execute(context.Background(), tt.config, nil, logger)
			require.NoError(t, err)

			assert.Equal(t, "hello", output["message"])
			assert.Equal(t, tt.wantLevel, output["level"])
			assert.Contains(t, buf.String(), "hello")
		})
	}
}
