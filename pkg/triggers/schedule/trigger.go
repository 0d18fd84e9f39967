// Package schedule provides cron-based workflow triggering.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/weftworks/weft/pkg/protocol"
)

var (
	// ErrCronRequired is returned when the trigger has no cron expression.
	ErrCronRequired = errors.New("schedule trigger cron expression is required")
)

// Trigger fires a workflow on a cron schedule. Standard 5-field expressions
// are accepted.
type Trigger struct {
	WorkflowID string
	CronExpr   string
	Enabled    bool

	cron     *cron.Cron
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(workflowID string, trigger map[string]any, logger *slog.Logger) (*Trigger, error) {
	cronExpr, _ := trigger["cron"].(string)
	if cronExpr == "" {
		return nil, ErrCronRequired
	}

	enabled := true
	if enabledVal, ok := trigger["enabled"].(bool); ok {
		enabled = enabledVal
	}

	// Validate the expression up front so a bad schedule fails at
	// registration, not at first fire.
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	return &Trigger{
		WorkflowID: workflowID,
		CronExpr:   cronExpr,
		Enabled:    enabled,
		logger: logger.With(
			"module", "schedule_trigger",
			"workflow_id", workflowID,
			"cron", cronExpr,
		),
	}, nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "ScheduleTrigger is disabled")

		return nil
	}

	t.logger.InfoContext(ctx, "Starting ScheduleTrigger")
	t.callback = callback
	t.cron = cron.New()

	if _, err := t.cron.AddFunc(t.CronExpr, t.fire); err != nil {
		return fmt.Errorf("failed to schedule cron job: %w", err)
	}

	t.cron.Start()

	return nil
}

func (t *Trigger) fire() {
	t.logger.Info("Cron job triggered")

	triggerData := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cron":      t.CronExpr,
	}

	go func() {
		if err := t.callback(context.Background(), t.WorkflowID, triggerData); err != nil {
			t.logger.Error("Error executing workflow for trigger", "error", err)
		}
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping ScheduleTrigger")

	if t.cron != nil {
		stopCtx := t.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
