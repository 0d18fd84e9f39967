package models

import "time"

// ExecutionStatus covers both whole executions and individual steps.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusRetrying  ExecutionStatus = "retrying"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// WorkflowExecution is one run of a specific workflow version. The graph is
// pinned at start and does not change mid-run even if the workflow is edited.
// The execution is owned exclusively by its run until terminal.
type WorkflowExecution struct {
	ID              string           `json:"id"`
	WorkflowID      string           `json:"workflow_id"`
	WorkflowVersion int              `json:"workflow_version"`
	Status          ExecutionStatus  `json:"status"`
	TriggerData     map[string]any   `json:"trigger_data,omitempty"`
	InputData       map[string]any   `json:"input_data,omitempty"`
	Context         map[string]any   `json:"context,omitempty"`
	Steps           []*StepExecution `json:"steps,omitempty"`
	CurrentNodeID   string           `json:"current_node_id,omitempty"`
	Error           *ExecutionError  `json:"error,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      *time.Time       `json:"finished_at,omitempty"`
}

// StepExecution records one node's execution within a run. Steps are keyed
// by step id, not node id: loop bodies and multiple incoming paths may
// produce several steps for the same node.
type StepExecution struct {
	ID         string          `json:"id"`
	NodeID     string          `json:"node_id"`
	Status     ExecutionStatus `json:"status"`
	Input      map[string]any  `json:"input,omitempty"`
	Output     map[string]any  `json:"output,omitempty"`
	Error      string          `json:"error,omitempty"`
	RetryCount int             `json:"retry_count"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Duration is the elapsed time of a finished step, zero while running.
func (s *StepExecution) Duration() time.Duration {
	if s.FinishedAt == nil {
		return 0
	}

	return s.FinishedAt.Sub(s.StartedAt)
}

// StepsForNode returns every step recorded for a node id, in append order.
func (e *WorkflowExecution) StepsForNode(nodeID string) []*StepExecution {
	var steps []*StepExecution

	for _, step := range e.Steps {
		if step.NodeID == nodeID {
			steps = append(steps, step)
		}
	}

	return steps
}
