// Package events defines the lifecycle events the engine publishes as
// executions and steps change state.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/weftworks/weft/pkg/models"
)

type EventType string

// Topic is the event bus topic carrying all execution lifecycle events.
const Topic = "weft.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	StepStartedEvent   EventType = "step.started"
	StepCompletedEvent EventType = "step.completed"
	StepFailedEvent    EventType = "step.failed"
	StepRetryingEvent  EventType = "step.retrying"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
}

func NewBaseEvent(eventType EventType, workflowID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	WorkflowVersion int            `json:"workflow_version"`
	TriggerData     map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
	Steps    int           `json:"steps"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	Error    string           `json:"error"`
	Kind     models.ErrorKind `json:"kind"`
	NodeID   string           `json:"node_id,omitempty"`
	Duration time.Duration    `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type StepStarted struct {
	BaseEvent

	StepID string `json:"step_id"`
	NodeID string `json:"node_id"`
}

func (e StepStarted) GetType() EventType { return StepStartedEvent }

type StepCompleted struct {
	BaseEvent

	StepID   string        `json:"step_id"`
	NodeID   string        `json:"node_id"`
	Duration time.Duration `json:"duration"`
}

func (e StepCompleted) GetType() EventType { return StepCompletedEvent }

type StepFailed struct {
	BaseEvent

	StepID     string `json:"step_id"`
	NodeID     string `json:"node_id"`
	Error      string `json:"error"`
	RetryCount int    `json:"retry_count"`
}

func (e StepFailed) GetType() EventType { return StepFailedEvent }

type StepRetrying struct {
	BaseEvent

	StepID  string `json:"step_id"`
	NodeID  string `json:"node_id"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

func (e StepRetrying) GetType() EventType { return StepRetryingEvent }
