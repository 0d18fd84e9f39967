// Package log provides the built-in log action: it writes a message from the
// node's resolved config to the execution's logger.
package log

import (
	"context"
	"log/slog"

	"github.com/weftworks/weft/pkg/protocol"
)

// Action logs a message at a configurable level.
type Action struct{}

func NewAction() protocol.Action {
	return &Action{}
}

// Schema returns the JSON schema for the action configuration.
func Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log. Supports templating for dynamic content.",
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "error"},
			},
		},
		"required": []string{"message"},
	}
}

func (a *Action) Execute(ctx context.Context, config map[string]any, _ map[string]any, logger *slog.Logger) (map[string]any, error) {
	message, _ := config["message"].(string)
	level, _ := config["level"].(string)

	switch level {
	case "debug":
		logger.DebugContext(ctx, message)
	case "warn":
		logger.WarnContext(ctx, message)
	case "error":
		logger.ErrorContext(ctx, message)
	default:
		level = "info"

		logger.InfoContext(ctx, message)
	}

	return map[string]any{
		"message": message,
		"level":   level,
	}, nil
}
