package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence"
)

// ExecutionRepository stores execution records as JSON files, one per
// execution, grouped by workflow.
type ExecutionRepository struct {
	root string
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir(workflowID string) string {
	return path.Join(er.root, "executions", workflowID)
}

// Save writes an execution record. Saving the same execution again
// overwrites the previous record, so a run can be persisted at every status
// transition.
func (er *ExecutionRepository) Save(_ context.Context, exec *models.WorkflowExecution) error {
	dir := er.dir(exec.WorkflowID)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(exec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", exec.ID, err)
	}

	return os.WriteFile(path.Join(dir, exec.ID+".json"), data, 0600)
}

// GetByID retrieves an execution record by its ID, scanning all workflow
// subdirectories.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	root := path.Join(er.root, "executions")

	matches, err := fs.Glob(os.DirFS(root), path.Join("*", id+".json"))
	if err != nil || len(matches) == 0 {
		return nil, persistence.NewExecutionRecordError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return er.read(path.Join(root, matches[0]))
}

// ListByWorkflow returns a workflow's execution records newest-first,
// limited to limit entries (unlimited when limit <= 0).
func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string, limit int) ([]*models.WorkflowExecution, error) {
	dir := er.dir(workflowID)

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	execs := make([]*models.WorkflowExecution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		exec, err := er.read(path.Join(dir, file))
		if err != nil {
			return nil, err
		}

		execs = append(execs, exec)
	}

	sort.SliceStable(execs, func(i, j int) bool {
		return execs[i].StartedAt.After(execs[j].StartedAt)
	})

	if limit > 0 && len(execs) > limit {
		execs = execs[:limit]
	}

	return execs, nil
}

// Prune deletes a workflow's execution records older than the retention
// window, returning how many were removed.
func (er *ExecutionRepository) Prune(ctx context.Context, workflowID string, retention time.Duration) (int, error) {
	execs, err := er.ListByWorkflow(ctx, workflowID, 0)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-retention)
	removed := 0

	for _, exec := range execs {
		if !exec.Status.IsTerminal() || exec.StartedAt.After(cutoff) {
			continue
		}

		if err := os.Remove(path.Join(er.dir(workflowID), exec.ID+".json")); err != nil {
			return removed, fmt.Errorf("failed to prune execution %s: %w", exec.ID, err)
		}

		removed++
	}

	return removed, nil
}

func (er *ExecutionRepository) read(filePath string) (*models.WorkflowExecution, error) {
	body, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch execution record: %w", err)
	}

	var exec models.WorkflowExecution

	if err := json.Unmarshal(body, &exec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution record: %w", err)
	}

	return &exec, nil
}
