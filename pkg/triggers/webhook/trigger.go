// Package webhook provides HTTP webhook triggering with a shared server.
package webhook

import (
	"context"
	"errors"
	"log/slog"

	"github.com/weftworks/weft/pkg/protocol"
)

var (
	// ErrPathRequired is returned when the trigger has no path.
	ErrPathRequired = errors.New("webhook trigger path is required")

	// ErrPathFormat is returned when the path does not start with a slash.
	ErrPathFormat = errors.New("webhook trigger path must start with '/'")

	// ErrNoServerManager is returned when Start runs without a manager.
	ErrNoServerManager = errors.New("webhook server manager is required")
)

// Trigger fires a workflow when its path on the shared webhook server is hit.
type Trigger struct {
	WorkflowID string
	Path       string
	Enabled    bool

	manager *ServerManager
	logger  *slog.Logger
}

func NewTrigger(workflowID, path string, manager *ServerManager, logger *slog.Logger) (*Trigger, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	if path[0] != '/' {
		return nil, ErrPathFormat
	}

	return &Trigger{
		WorkflowID: workflowID,
		Path:       path,
		Enabled:    true,
		manager:    manager,
		logger: logger.With(
			"module", "webhook_trigger",
			"workflow_id", workflowID,
			"path", path,
		),
	}, nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "WebhookTrigger is disabled")

		return nil
	}

	if t.manager == nil {
		return ErrNoServerManager
	}

	t.logger.InfoContext(ctx, "Starting WebhookTrigger")

	return t.manager.RegisterWebhook(t.Path, &Handler{
		WorkflowID: t.WorkflowID,
		Callback:   callback,
		Logger:     t.logger,
	})
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping WebhookTrigger")

	if t.manager != nil {
		t.manager.UnregisterWebhook(t.Path)
	}

	return nil
}
