// Package persistence provides the storage abstraction for workflows and
// execution records.
package persistence

import (
	"context"

	"github.com/weftworks/weft/pkg/models"
)

// ListWorkflowsOptions filters and pages a workflow listing.
type ListWorkflowsOptions struct {
	Owner     string
	Status    *models.WorkflowStatus
	Limit     int
	Offset    int
	SortBy    string // created_at, updated_at or name
	SortOrder string // asc or desc
}

// WorkflowListResult is one page of a workflow listing.
type WorkflowListResult struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
}

// Persistence is the storage contract. Implementations must be safe for
// concurrent use; a missing workflow or execution is reported via the
// sentinel errors in this package, never as (nil, nil).
type Persistence interface {
	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	SaveExecution(ctx context.Context, exec *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.WorkflowExecution, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
