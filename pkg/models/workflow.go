package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusPaused   WorkflowStatus = "paused"
	WorkflowStatusArchived WorkflowStatus = "archived"
)

// Workflow is the aggregate root: a directed graph of nodes and edges plus
// the trigger that starts it. The authoring surface mutates workflows; the
// engine only reads the graph and updates run counters after each execution.
// A running execution always uses the node set captured at start.
type Workflow struct {
	ID          string           `json:"id"`
	Owner       string           `json:"owner"`
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description,omitempty"`
	Status      WorkflowStatus   `json:"status"      validate:"required"`
	Version     int              `json:"version"`
	Trigger     *WorkflowTrigger `json:"trigger,omitempty"`
	Nodes       []*WorkflowNode  `json:"nodes,omitempty"`
	Edges       []*WorkflowEdge  `json:"edges,omitempty"`
	Variables   map[string]any   `json:"variables,omitempty"`

	RunCount     int64      `json:"run_count"`
	SuccessCount int64      `json:"success_count"`
	FailureCount int64      `json:"failure_count"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *WorkflowNode {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// StartNodes returns the targets of edges whose source is the trigger
// anchor, in edge-list order.
func (w *Workflow) StartNodes() []string {
	var targets []string

	for _, edge := range w.Edges {
		if edge.Source == TriggerSource {
			targets = append(targets, edge.Target)
		}
	}

	return targets
}

// NextNodes returns the plain successor targets of a node in edge-list
// order, unfiltered by condition tag.
func (w *Workflow) NextNodes(nodeID string) []string {
	var targets []string

	for _, edge := range w.Edges {
		if edge.Source == nodeID {
			targets = append(targets, edge.Target)
		}
	}

	return targets
}
