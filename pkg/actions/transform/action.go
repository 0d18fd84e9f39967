// Package transform provides the built-in transform action: it reshapes the
// execution context into a new output map.
package transform

import (
	"context"
	"log/slog"

	"github.com/weftworks/weft/pkg/protocol"
)

// Action builds its output from a mapping of templated values and an
// optional list of context keys to copy through. The engine resolves every
// template in the mapping before Execute runs, so the action itself only
// assembles the result.
type Action struct{}

func NewAction() protocol.Action {
	return &Action{}
}

// Schema returns the JSON schema for the action configuration.
func Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mapping": map[string]any{
				"type":        "object",
				"description": "Output fields. Values support templating against the execution context.",
			},
			"pick": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Context keys copied through to the output unchanged.",
			},
		},
	}
}

func (a *Action) Execute(_ context.Context, config map[string]any, execCtx map[string]any, logger *slog.Logger) (map[string]any, error) {
	output := map[string]any{}

	if picks, ok := config["pick"].([]any); ok {
		for _, pick := range picks {
			key, ok := pick.(string)
			if !ok {
				continue
			}

			if value, exists := execCtx[key]; exists {
				output[key] = value
			}
		}
	}

	if mapping, ok := config["mapping"].(map[string]any); ok {
		for key, value := range mapping {
			output[key] = value
		}
	}

	logger.Debug("Transform produced output", "fields", len(output))

	return output, nil
}
