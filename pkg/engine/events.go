package engine

import (
	"context"
	"time"

	"github.com/weftworks/weft/pkg/eventbus"
	"github.com/weftworks/weft/pkg/events"
	"github.com/weftworks/weft/pkg/models"
)

// Event publishing is best-effort: a failing bus never fails an execution.

func (e *Engine) publish(ctx context.Context, rs *runState, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, rs.run.exec.WorkflowID, event); err != nil {
		rs.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) base(rs *runState, eventType events.EventType) events.BaseEvent {
	return events.NewBaseEvent(eventType, rs.run.exec.WorkflowID, rs.run.exec.ID)
}

func (e *Engine) publishExecutionStarted(ctx context.Context, rs *runState) {
	e.publish(ctx, rs, events.ExecutionStarted{
		BaseEvent:       e.base(rs, events.ExecutionStartedEvent),
		WorkflowVersion: rs.run.exec.WorkflowVersion,
		TriggerData:     rs.run.exec.TriggerData,
	})
}

func (e *Engine) publishExecutionCompleted(ctx context.Context, rs *runState) {
	e.publish(ctx, rs, events.ExecutionCompleted{
		BaseEvent: e.base(rs, events.ExecutionCompletedEvent),
		Duration:  e.elapsed(rs),
		Steps:     len(rs.run.exec.Steps),
	})
}

func (e *Engine) publishExecutionFailed(ctx context.Context, rs *runState, execErr *models.ExecutionError) {
	e.publish(ctx, rs, events.ExecutionFailed{
		BaseEvent: e.base(rs, events.ExecutionFailedEvent),
		Error:     execErr.Message,
		Kind:      execErr.Kind,
		NodeID:    execErr.NodeID,
		Duration:  e.elapsed(rs),
	})
}

func (e *Engine) publishExecutionCancelled(ctx context.Context, rs *runState) {
	e.publish(ctx, rs, events.ExecutionCancelled{
		BaseEvent: e.base(rs, events.ExecutionCancelledEvent),
		Duration:  e.elapsed(rs),
	})
}

func (e *Engine) publishStepStarted(ctx context.Context, rs *runState, step *models.StepExecution) {
	e.publish(ctx, rs, events.StepStarted{
		BaseEvent: e.base(rs, events.StepStartedEvent),
		StepID:    step.ID,
		NodeID:    step.NodeID,
	})
}

func (e *Engine) publishStepCompleted(ctx context.Context, rs *runState, step *models.StepExecution) {
	e.publish(ctx, rs, events.StepCompleted{
		BaseEvent: e.base(rs, events.StepCompletedEvent),
		StepID:    step.ID,
		NodeID:    step.NodeID,
		Duration:  step.Duration(),
	})
}

func (e *Engine) publishStepFailed(ctx context.Context, rs *runState, step *models.StepExecution) {
	e.publish(ctx, rs, events.StepFailed{
		BaseEvent:  e.base(rs, events.StepFailedEvent),
		StepID:     step.ID,
		NodeID:     step.NodeID,
		Error:      step.Error,
		RetryCount: step.RetryCount,
	})
}

func (e *Engine) publishStepRetrying(ctx context.Context, rs *runState, step *models.StepExecution, attempt int, err error) {
	e.publish(ctx, rs, events.StepRetrying{
		BaseEvent: e.base(rs, events.StepRetryingEvent),
		StepID:    step.ID,
		NodeID:    step.NodeID,
		Attempt:   attempt,
		Error:     err.Error(),
	})
}

func (e *Engine) elapsed(rs *runState) time.Duration {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	if rs.run.exec.FinishedAt != nil {
		return rs.run.exec.FinishedAt.Sub(rs.run.exec.StartedAt)
	}

	return time.Since(rs.run.exec.StartedAt)
}
