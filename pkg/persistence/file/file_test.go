package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence"
)

func newTestPersistence(t *testing.T) persistence.Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func sampleWorkflow(id, name string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   name,
		Status: models.WorkflowStatusDraft,
		Trigger: &models.WorkflowTrigger{
			Kind: models.TriggerKindManual,
		},
		Nodes: []*models.WorkflowNode{
			{ID: "greet", Kind: models.NodeKindAction, Action: &models.ActionSpec{Name: "log"}},
		},
		Edges: []*models.WorkflowEdge{
			{ID: "e1", Source: models.TriggerSource, Target: "greet"},
		},
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	workflow := sampleWorkflow("wf-1", "round trip")
	workflow.Variables = map[string]any{"greeting": "hello"}

	require.NoError(t, store.SaveWorkflow(ctx, workflow))
	assert.False(t, workflow.CreatedAt.IsZero())

	loaded, err := store.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)

	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, workflow.Status, loaded.Status)
	assert.Equal(t, workflow.Variables, loaded.Variables)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.NodeKindAction, loaded.Nodes[0].Kind)
	require.Len(t, loaded.Edges, 1)
	assert.Equal(t, models.TriggerSource, loaded.Edges[0].Source)
}

func TestWorkflowNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	_, err := store.WorkflowByID(ctx, "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDeleteWorkflow(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	require.NoError(t, store.SaveWorkflow(ctx, sampleWorkflow("wf-1", "doomed")))
	require.NoError(t, store.DeleteWorkflow(ctx, "wf-1"))

	_, err := store.WorkflowByID(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	// Deleting a missing workflow is a no-op.
	assert.NoError(t, store.DeleteWorkflow(ctx, "wf-1"))
}

func TestListWorkflows(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	active := sampleWorkflow("wf-a", "alpha")
	active.Status = models.WorkflowStatusActive
	active.Owner = "ops"

	draft := sampleWorkflow("wf-b", "beta")
	draft.Owner = "ops"

	other := sampleWorkflow("wf-c", "gamma")
	other.Owner = "data"

	for _, workflow := range []*models.Workflow{active, draft, other} {
		require.NoError(t, store.SaveWorkflow(ctx, workflow))
	}

	t.Run("all", func(t *testing.T) {
		result, err := store.ListWorkflows(ctx, persistence.ListWorkflowsOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.TotalCount)
		assert.False(t, result.HasNextPage)
	})

	t.Run("by owner", func(t *testing.T) {
		result, err := store.ListWorkflows(ctx, persistence.ListWorkflowsOptions{Owner: "ops"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.TotalCount)
	})

	t.Run("by status", func(t *testing.T) {
		status := models.WorkflowStatusActive
		result, err := store.ListWorkflows(ctx, persistence.ListWorkflowsOptions{Status: &status})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, "wf-a", result.Workflows[0].ID)
	})

	t.Run("sorted by name", func(t *testing.T) {
		result, err := store.ListWorkflows(ctx, persistence.ListWorkflowsOptions{SortBy: "name", SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 3)
		assert.Equal(t, "alpha", result.Workflows[0].Name)
		assert.Equal(t, "gamma", result.Workflows[2].Name)
	})

	t.Run("paginated", func(t *testing.T) {
		result, err := store.ListWorkflows(ctx, persistence.ListWorkflowsOptions{
			SortBy: "name", SortOrder: "asc", Limit: 2,
		})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 2)
		assert.True(t, result.HasNextPage)
	})

	t.Run("rejects unknown sort field", func(t *testing.T) {
		_, err := store.ListWorkflows(ctx, persistence.ListWorkflowsOptions{SortBy: "owner"})
		assert.Error(t, err)
	})
}

func TestExecutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	finished := time.Now().UTC().Truncate(time.Second)
	exec := &models.WorkflowExecution{
		ID:         "exec-11111111",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusCompleted,
		Context:    map[string]any{"result": "ok"},
		Steps: []*models.StepExecution{
			{ID: "step-aaaaaaaa", NodeID: "greet", Status: models.ExecutionStatusCompleted},
		},
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: &finished,
	}

	require.NoError(t, store.SaveExecution(ctx, exec))

	loaded, err := store.ExecutionByID(ctx, "exec-11111111")
	require.NoError(t, err)
	assert.Equal(t, exec.Status, loaded.Status)
	assert.Equal(t, exec.Context, loaded.Context)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, "greet", loaded.Steps[0].NodeID)

	_, err = store.ExecutionByID(ctx, "exec-missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionsByWorkflowNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	base := time.Now().UTC()

	for i, id := range []string{"exec-1", "exec-2", "exec-3"} {
		require.NoError(t, store.SaveExecution(ctx, &models.WorkflowExecution{
			ID:         id,
			WorkflowID: "wf-1",
			Status:     models.ExecutionStatusCompleted,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	execs, err := store.ExecutionsByWorkflow(ctx, "wf-1", 0)
	require.NoError(t, err)
	require.Len(t, execs, 3)
	assert.Equal(t, "exec-3", execs[0].ID)
	assert.Equal(t, "exec-1", execs[2].ID)

	limited, err := store.ExecutionsByWorkflow(ctx, "wf-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	empty, err := store.ExecutionsByWorkflow(ctx, "wf-unknown", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPruneExecutions(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := NewExecutionRepository(root)

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, &models.WorkflowExecution{
		ID: "exec-old", WorkflowID: "wf-1", Status: models.ExecutionStatusCompleted, StartedAt: old,
	}))
	require.NoError(t, repo.Save(ctx, &models.WorkflowExecution{
		ID: "exec-live", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning, StartedAt: old,
	}))
	require.NoError(t, repo.Save(ctx, &models.WorkflowExecution{
		ID: "exec-new", WorkflowID: "wf-1", Status: models.ExecutionStatusCompleted, StartedAt: recent,
	}))

	removed, err := repo.Prune(ctx, "wf-1", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Non-terminal and recent executions survive.
	remaining, err := repo.ListByWorkflow(ctx, "wf-1", 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()

	store := NewPersistence(t.TempDir())
	assert.NoError(t, store.HealthCheck(ctx))
	assert.NoError(t, store.Close(ctx))

	missing := NewPersistence("/nonexistent/weft-data")
	assert.Error(t, missing.HealthCheck(ctx))
}
