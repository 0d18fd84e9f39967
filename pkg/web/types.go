// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/weftworks/weft/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
// New workflows always start as drafts regardless of the graph they carry.
type CreateWorkflowRequest struct {
	Name        string                  `json:"name"        validate:"required,min=3"`
	Description string                  `json:"description"`
	Owner       string                  `json:"owner"`
	Trigger     *models.WorkflowTrigger `json:"trigger,omitempty"`
	Nodes       []*models.WorkflowNode  `json:"nodes,omitempty"`
	Edges       []*models.WorkflowEdge  `json:"edges,omitempty"`
	Variables   map[string]any          `json:"variables,omitempty"`
}

// UpdateWorkflowRequest represents the request body for updating an existing
// workflow. All fields are optional to support partial updates; graph fields
// replace the stored graph wholesale when present.
type UpdateWorkflowRequest struct {
	Name        *string                 `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string                 `json:"description,omitempty"`
	Trigger     *models.WorkflowTrigger `json:"trigger,omitempty"`
	Nodes       []*models.WorkflowNode  `json:"nodes,omitempty"`
	Edges       []*models.WorkflowEdge  `json:"edges,omitempty"`
	Variables   map[string]any          `json:"variables,omitempty"`
}

// RunWorkflowRequest represents the request body for a manual run.
type RunWorkflowRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// ValidationResponse reports the outcome of validating a workflow graph.
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func (r CreateWorkflowRequest) toWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		Trigger:     r.Trigger,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
		Variables:   r.Variables,
	}
}

func (r UpdateWorkflowRequest) applyTo(workflow *models.Workflow) {
	if r.Name != nil {
		workflow.Name = *r.Name
	}

	if r.Description != nil {
		workflow.Description = *r.Description
	}

	if r.Trigger != nil {
		workflow.Trigger = r.Trigger
	}

	if r.Nodes != nil {
		workflow.Nodes = r.Nodes
	}

	if r.Edges != nil {
		workflow.Edges = r.Edges
	}

	if r.Variables != nil {
		workflow.Variables = r.Variables
	}
}
