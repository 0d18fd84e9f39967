package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/weftworks/weft/pkg/engine"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence"
	"github.com/weftworks/weft/pkg/validation"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow is the authoring and lifecycle service. It owns status
// transitions (draft to active, active to paused and back, anything but
// archived to archived) and is the only component allowed to run a workflow
// through the engine.
type Workflow struct {
	persistence persistence.Persistence
	engine      *engine.Engine
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(store persistence.Persistence, eng *engine.Engine) *Workflow {
	return &Workflow{
		persistence: store,
		engine:      eng,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	Limit  int
	Offset int

	Owner  string
	Status *models.WorkflowStatus

	SortBy    string
	SortOrder string
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// ListWorkflows retrieves workflows with filtering, sorting, and pagination.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if err := w.validateListWorkflowsRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	result, err := w.persistence.ListWorkflows(ctx, persistence.ListWorkflowsOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Owner:     req.Owner,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &ListWorkflowsResponse{
		Workflows:   result.Workflows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

func (w *Workflow) validateListWorkflowsRequest(req *ListWorkflowsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}
	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidRequest,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidRequest,
		)
	}

	return nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// Create stores a new workflow as a draft. An empty ID is assigned one.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if strings.TrimSpace(workflow.Name) == "" {
		return nil, ErrWorkflowNameRequired
	}

	if workflow.ID == "" {
		workflow.ID = "wf-" + uuid.New().String()[:8]
	}

	workflow.Status = models.WorkflowStatusDraft
	workflow.Version = 1

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces a workflow's definition and bumps its version. Archived
// workflows are immutable.
func (w *Workflow) Update(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowByID(ctx, workflow.ID)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.WorkflowStatusArchived {
		return nil, ErrCannotModifyArchived
	}

	workflow.Status = existing.Status
	workflow.Version = existing.Version + 1
	workflow.CreatedAt = existing.CreatedAt
	workflow.RunCount = existing.RunCount
	workflow.SuccessCount = existing.SuccessCount
	workflow.FailureCount = existing.FailureCount
	workflow.LastRunAt = existing.LastRunAt

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	if _, err := w.persistence.WorkflowByID(ctx, id); err != nil {
		return err
	}

	return w.persistence.DeleteWorkflow(ctx, id)
}

// Validate returns the structural problems of a stored workflow, empty when
// it is ready for activation.
func (w *Workflow) Validate(ctx context.Context, id string) ([]string, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return validation.ValidateWorkflow(workflow), nil
}

// Activate transitions a draft or paused workflow to active. Drafts must
// pass validation first.
func (w *Workflow) Activate(ctx context.Context, id string) (*models.Workflow, error) {
	return w.transition(ctx, id, models.WorkflowStatusActive,
		models.WorkflowStatusDraft, models.WorkflowStatusPaused)
}

// Pause transitions an active workflow to paused.
func (w *Workflow) Pause(ctx context.Context, id string) (*models.Workflow, error) {
	return w.transition(ctx, id, models.WorkflowStatusPaused, models.WorkflowStatusActive)
}

// Archive retires a workflow. Archived workflows keep their history but can
// never run or change again.
func (w *Workflow) Archive(ctx context.Context, id string) (*models.Workflow, error) {
	return w.transition(ctx, id, models.WorkflowStatusArchived,
		models.WorkflowStatusDraft, models.WorkflowStatusActive, models.WorkflowStatusPaused)
}

func (w *Workflow) transition(ctx context.Context, id string, to models.WorkflowStatus, from ...models.WorkflowStatus) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(from, workflow.Status) {
		return nil, NewValidationError(
			"transition",
			"INVALID_TRANSITION",
			fmt.Sprintf("cannot transition workflow %s from %s to %s", id, workflow.Status, to),
			ErrInvalidTransition,
		)
	}

	if to == models.WorkflowStatusActive {
		if problems := validation.ValidateWorkflow(workflow); len(problems) > 0 {
			return nil, NewValidationError(
				"transition",
				"WORKFLOW_INVALID",
				strings.Join(problems, "; "),
				ErrWorkflowInvalid,
			)
		}
	}

	workflow.Status = to

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Run executes an active workflow through the engine and persists the
// terminal execution record. The execution error, if any, is returned
// alongside the record.
func (w *Workflow) Run(ctx context.Context, id string, inputData, triggerData map[string]any) (*models.WorkflowExecution, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, NewValidationError(
			"Run",
			"WORKFLOW_NOT_ACTIVE",
			fmt.Sprintf("workflow %s is %s", id, workflow.Status),
			ErrWorkflowNotActive,
		)
	}

	exec, runErr := w.engine.Execute(ctx, workflow, inputData, triggerData)

	// Counters were updated on the in-memory copy by the engine.
	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return exec, fmt.Errorf("failed to save workflow counters: %w", err)
	}

	if exec != nil {
		if err := w.persistence.SaveExecution(ctx, exec); err != nil {
			return exec, fmt.Errorf("failed to save execution record: %w", err)
		}
	}

	return exec, runErr
}

// Executions lists a workflow's persisted execution records newest-first.
func (w *Workflow) Executions(ctx context.Context, workflowID string, limit int) ([]*models.WorkflowExecution, error) {
	if _, err := w.persistence.WorkflowByID(ctx, workflowID); err != nil {
		return nil, err
	}

	return w.persistence.ExecutionsByWorkflow(ctx, workflowID, limit)
}

// Execution fetches a persisted execution record by id.
func (w *Workflow) Execution(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return w.persistence.ExecutionByID(ctx, id)
}
