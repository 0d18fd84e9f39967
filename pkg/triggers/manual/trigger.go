// Package manual provides the trigger for workflows started on demand, via
// the management API or the command line.
package manual

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/weftworks/weft/pkg/protocol"
)

// ErrNotStarted is returned when Fire is called before Start.
var ErrNotStarted = errors.New("manual trigger has not been started")

// Trigger fires only when Fire is called explicitly.
type Trigger struct {
	WorkflowID string

	mu       sync.Mutex
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(workflowID string, logger *slog.Logger) *Trigger {
	return &Trigger{
		WorkflowID: workflowID,
		logger: logger.With(
			"module", "manual_trigger",
			"workflow_id", workflowID,
		),
	}
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.InfoContext(ctx, "Starting ManualTrigger")
	t.callback = callback

	return nil
}

// Fire runs the workflow once with the given payload.
func (t *Trigger) Fire(ctx context.Context, payload map[string]any) error {
	t.mu.Lock()
	callback := t.callback
	t.mu.Unlock()

	if callback == nil {
		return ErrNotStarted
	}

	return callback(ctx, t.WorkflowID, payload)
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.InfoContext(ctx, "Stopping ManualTrigger")
	t.callback = nil

	return nil
}
