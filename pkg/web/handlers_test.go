package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/engine"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence/file"
	"github.com/weftworks/weft/pkg/protocol"
	"github.com/weftworks/weft/pkg/registry"
	"github.com/weftworks/weft/pkg/services"
	"github.com/weftworks/weft/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.NewRegistry(logger)
	reg.RegisterAction("log", protocol.ActionFunc(
		func(context.Context, map[string]any, map[string]any, *slog.Logger) (map[string]any, error) {
			return map[string]any{"logged": true}, nil
		}))

	eng := engine.NewEngine(logger, reg)
	store := file.NewPersistence(t.TempDir())
	workflowService := services.NewWorkflow(store, eng)

	handlers := web.NewAPIHandlers(
		workflowService,
		validator.New(validator.WithRequiredStructEnabled()),
		reg,
		eng,
	)

	app := fiber.New()

	app.Get("/health", handlers.HealthCheck)
	app.Get("/actions", handlers.GetActions)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/validate", handlers.ValidateWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/pause", handlers.PauseWorkflow)
	w.Post("/:id/archive", handlers.ArchiveWorkflow)
	w.Post("/:id/run", handlers.RunWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/", handlers.GetRunningExecutions)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader

	if payload != nil {
		if raw, ok := payload.(string); ok {
			body = bytes.NewBufferString(raw)
		} else {
			data, err := json.Marshal(payload)
			require.NoError(t, err)

			body = bytes.NewBuffer(data)
		}
	}

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, respBody
}

func runnableWorkflowRequest(name string) web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
		Name:  name,
		Owner: "test-user",
		Trigger: &models.WorkflowTrigger{
			Kind: models.TriggerKindManual,
		},
		Nodes: []*models.WorkflowNode{
			{ID: "log", Kind: models.NodeKindAction, Action: &models.ActionSpec{Name: "log"}},
		},
		Edges: []*models.WorkflowEdge{
			{ID: "e1", Source: models.TriggerSource, Target: "log"},
		},
	}
}

func createWorkflow(t *testing.T, app *fiber.App, req web.CreateWorkflowRequest) models.Workflow {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	return workflow
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name:           "successful creation",
			requestBody:    runnableWorkflowRequest("Order Sync"),
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "validation error - missing name",
			requestBody:    web.CreateWorkflowRequest{Owner: "test-user"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "validation error - name too short",
			requestBody:    web.CreateWorkflowRequest{Name: "ab", Owner: "test-user"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)

			resp, body := doJSON(t, app, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.expectedStatus == http.StatusCreated {
				var workflow models.Workflow
				require.NoError(t, json.Unmarshal(body, &workflow))
				assert.NotEmpty(t, workflow.ID)
				assert.Equal(t, models.WorkflowStatusDraft, workflow.Status)
				assert.Equal(t, 1, workflow.Version)
			}
		})
	}
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, runnableWorkflowRequest("Order Sync"))

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, created.ID, workflow.ID)
	assert.Equal(t, "Order Sync", workflow.Name)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/wf-missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_UpdateWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, runnableWorkflowRequest("Order Sync"))

	newName := "Order Sync v2"
	resp, body := doJSON(t, app, http.MethodPatch, "/workflows/"+created.ID, web.UpdateWorkflowRequest{
		Name:      &newName,
		Variables: map[string]any{"region": "eu"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Order Sync v2", updated.Name)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "eu", updated.Variables["region"])
	assert.Len(t, updated.Nodes, 1)

	resp, _ = doJSON(t, app, http.MethodPatch, "/workflows/wf-missing", web.UpdateWorkflowRequest{Name: &newName})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_DeleteWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, runnableWorkflowRequest("Order Sync"))

	resp, _ := doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetWorkflows(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	createWorkflow(t, app, runnableWorkflowRequest("First Flow"))

	other := runnableWorkflowRequest("Second Flow")
	other.Owner = "other-user"
	createWorkflow(t, app, other)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed struct {
		Workflows  []*models.Workflow `json:"workflows"`
		TotalCount int64              `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Len(t, listed.Workflows, 2)
	assert.Equal(t, int64(2), listed.TotalCount)

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/?owner=other-user", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed.Workflows, 1)
	assert.Equal(t, "Second Flow", listed.Workflows[0].Name)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/?sort_by=secret", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_ValidateWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	valid := createWorkflow(t, app, runnableWorkflowRequest("Order Sync"))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+valid.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result web.ValidationResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	broken := createWorkflow(t, app, web.CreateWorkflowRequest{
		Name:  "Broken Flow",
		Nodes: []*models.WorkflowNode{{ID: "a", Kind: models.NodeKindAction}},
	})

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+broken.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestAPIHandlers_Lifecycle(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, runnableWorkflowRequest("Order Sync"))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, models.WorkflowStatusActive, workflow.Status)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, models.WorkflowStatusPaused, workflow.Status)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, models.WorkflowStatusArchived, workflow.Status)

	// Archived workflows are frozen.
	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_ActivateRejectsInvalidGraph(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	broken := createWorkflow(t, app, web.CreateWorkflowRequest{
		Name:  "Broken Flow",
		Nodes: []*models.WorkflowNode{{ID: "a", Kind: models.NodeKindAction}},
	})

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+broken.ID+"/activate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_RunWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, runnableWorkflowRequest("Order Sync"))

	// Drafts refuse to run.
	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", web.RunWorkflowRequest{
		Input: map[string]any{"order_id": "o-42"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var exec models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &exec))
	assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
	assert.Equal(t, created.ID, exec.WorkflowID)
	assert.Equal(t, "o-42", exec.InputData["order_id"])
	require.Len(t, exec.Steps, 1)
	assert.Equal(t, "log", exec.Steps[0].NodeID)
}

func TestAPIHandlers_Executions(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, runnableWorkflowRequest("Order Sync"))

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, runBody := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var exec models.WorkflowExecution
	require.NoError(t, json.Unmarshal(runBody, &exec))

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed struct {
		Executions []*models.WorkflowExecution `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed.Executions, 1)
	assert.Equal(t, exec.ID, listed.Executions[0].ID)

	resp, body = doJSON(t, app, http.MethodGet, "/executions/"+exec.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, exec.ID, fetched.ID)

	resp, _ = doJSON(t, app, http.MethodGet, "/executions/exec-missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/wf-missing/executions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_CancelExecution(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, runnableWorkflowRequest("Order Sync"))

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, runBody := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var exec models.WorkflowExecution
	require.NoError(t, json.Unmarshal(runBody, &exec))

	// Finished runs cannot be cancelled.
	resp, _ = doJSON(t, app, http.MethodPost, "/executions/"+exec.ID+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/executions/exec-missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/executions/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var running struct {
		Executions []*models.WorkflowExecution `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(body, &running))
	assert.Empty(t, running.Executions)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestAPIHandlers_GetActions(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/actions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var actions struct {
		Actions []string `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(body, &actions))
	assert.Contains(t, actions.Actions, "log")
}
