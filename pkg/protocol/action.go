// Package protocol defines the call/return contracts between the engine and
// its collaborators: action handlers and trigger sources.
package protocol

import (
	"context"
	"log/slog"
)

// Action is the contract for a registered action handler. It receives the
// node's config with all templates already resolved, plus a read view of the
// current execution context, and returns the step's output map.
type Action interface {
	Execute(ctx context.Context, config map[string]any, execCtx map[string]any, logger *slog.Logger) (map[string]any, error)
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, config map[string]any, execCtx map[string]any, logger *slog.Logger) (map[string]any, error)

func (f ActionFunc) Execute(ctx context.Context, config map[string]any, execCtx map[string]any, logger *slog.Logger) (map[string]any, error) {
	return f(ctx, config, execCtx, logger)
}
