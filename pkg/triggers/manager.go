// Package triggers builds and supervises the trigger sources of active
// workflows.
package triggers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/protocol"
	"github.com/weftworks/weft/pkg/triggers/manual"
	"github.com/weftworks/weft/pkg/triggers/queue"
	"github.com/weftworks/weft/pkg/triggers/schedule"
	"github.com/weftworks/weft/pkg/triggers/webhook"
)

// Runner executes a workflow when one of its triggers fires. The workflow
// service satisfies this.
type Runner interface {
	Run(ctx context.Context, workflowID string, inputData, triggerData map[string]any) (*models.WorkflowExecution, error)
}

// Manager owns one running trigger per active workflow.
type Manager struct {
	runner         Runner
	webhookManager *webhook.ServerManager
	logger         *slog.Logger

	mu      sync.Mutex
	running map[string]protocol.Trigger // keyed by workflow id
}

func NewManager(runner Runner, webhookManager *webhook.ServerManager, logger *slog.Logger) *Manager {
	return &Manager{
		runner:         runner,
		webhookManager: webhookManager,
		logger:         logger.With("module", "trigger_manager"),
		running:        make(map[string]protocol.Trigger),
	}
}

// StartWorkflow builds the trigger a workflow declares and starts it. A
// workflow already started is a no-op.
func (m *Manager) StartWorkflow(ctx context.Context, workflow *models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.running[workflow.ID]; exists {
		return nil
	}

	trigger, err := m.build(workflow)
	if err != nil {
		return err
	}

	if err := trigger.Start(ctx, m.fire); err != nil {
		return fmt.Errorf("failed to start trigger for workflow %s: %w", workflow.ID, err)
	}

	m.running[workflow.ID] = trigger
	m.logger.Info("Started trigger", "workflow_id", workflow.ID, "kind", workflow.Trigger.Kind)

	return nil
}

// StopWorkflow stops a workflow's trigger if one is running.
func (m *Manager) StopWorkflow(ctx context.Context, workflowID string) error {
	m.mu.Lock()
	trigger, exists := m.running[workflowID]
	delete(m.running, workflowID)
	m.mu.Unlock()

	if !exists {
		return nil
	}

	return trigger.Stop(ctx)
}

// StopAll stops every running trigger.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	running := m.running
	m.running = make(map[string]protocol.Trigger)
	m.mu.Unlock()

	for workflowID, trigger := range running {
		if err := trigger.Stop(ctx); err != nil {
			m.logger.Error("Failed to stop trigger", "workflow_id", workflowID, "error", err)
		}
	}
}

// FireManual fires a workflow's manual trigger with the given payload.
func (m *Manager) FireManual(ctx context.Context, workflowID string, payload map[string]any) error {
	m.mu.Lock()
	trigger, exists := m.running[workflowID]
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("no running trigger for workflow %s", workflowID)
	}

	manualTrigger, ok := trigger.(*manual.Trigger)
	if !ok {
		return fmt.Errorf("workflow %s is not manually triggered", workflowID)
	}

	return manualTrigger.Fire(ctx, payload)
}

func (m *Manager) build(workflow *models.Workflow) (protocol.Trigger, error) {
	spec := workflow.Trigger
	if spec == nil {
		return nil, fmt.Errorf("workflow %s has no trigger", workflow.ID)
	}

	switch spec.Kind {
	case models.TriggerKindSchedule:
		return schedule.NewTrigger(workflow.ID, map[string]any{"cron": spec.Cron}, m.logger)
	case models.TriggerKindWebhook:
		return webhook.NewTrigger(workflow.ID, spec.Path, m.webhookManager, m.logger)
	case models.TriggerKindEvent:
		config := map[string]any{"queue": spec.Event}
		for key, value := range spec.Config {
			config[key] = value
		}

		return queue.NewTrigger(workflow.ID, config, m.logger)
	case models.TriggerKindManual:
		return manual.NewTrigger(workflow.ID, m.logger), nil
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", spec.Kind)
	}
}

func (m *Manager) fire(ctx context.Context, workflowID string, payload map[string]any) error {
	_, err := m.runner.Run(ctx, workflowID, nil, payload)

	return err
}
