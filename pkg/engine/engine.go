// Package engine executes workflow graphs: it walks the graph from the
// trigger-connected start nodes, dispatches each node by kind, records
// execution and step state, and drives retry and cancellation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/weftworks/weft/pkg/eventbus"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/otelhelper"
	"github.com/weftworks/weft/pkg/registry"
	"github.com/weftworks/weft/pkg/retry"
)

// DefaultMaxDepth bounds dispatch recursion per execution so cyclic graphs
// fail fast instead of recursing until resource exhaustion.
const DefaultMaxDepth = 250

// Engine runs workflow executions. One engine instance is constructed per
// process and holds the action registry and the live-run registry; there is
// no global state.
type Engine struct {
	logger   *slog.Logger
	registry *registry.Registry

	eventBus     eventbus.EventPublisher
	tracer       trace.Tracer
	defaultRetry retry.Config
	maxDepth     int

	mu      sync.RWMutex
	running map[string]*run
	history map[string][]*models.WorkflowExecution // keyed by workflow id, append order
}

// run tracks one live execution: its record, its cancel function, and the
// lock guarding the record against concurrent management reads.
type run struct {
	mu     sync.Mutex
	exec   *models.WorkflowExecution
	cancel context.CancelFunc
}

func NewEngine(logger *slog.Logger, reg *registry.Registry) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		logger:       logger.With("module", "engine"),
		registry:     reg,
		defaultRetry: retry.DefaultConfig(),
		maxDepth:     DefaultMaxDepth,
		running:      make(map[string]*run),
		history:      make(map[string][]*models.WorkflowExecution),
	}
}

// SetEventBus makes the engine publish lifecycle events for every execution
// and step transition.
func (e *Engine) SetEventBus(bus eventbus.EventPublisher) { e.eventBus = bus }

// SetTracer enables spans around executions and node dispatches.
func (e *Engine) SetTracer(tracer trace.Tracer) { e.tracer = tracer }

// SetDefaultRetry replaces the default retry budget applied to action nodes
// without a retry override in their config.
func (e *Engine) SetDefaultRetry(config retry.Config) { e.defaultRetry = config }

// SetMaxDepth replaces the per-execution dispatch recursion ceiling.
func (e *Engine) SetMaxDepth(depth int) { e.maxDepth = depth }

// Execute runs one instance of a workflow to a terminal state and returns
// its execution record. The graph is pinned at call time: later edits to the
// workflow do not affect this run. The returned error is the terminal
// execution error, if any; the execution record always carries the full step
// history either way.
func (e *Engine) Execute(ctx context.Context, workflow *models.Workflow, inputData, triggerData map[string]any) (*models.WorkflowExecution, error) {
	exec := &models.WorkflowExecution{
		ID:              "exec-" + uuid.New().String()[:8],
		WorkflowID:      workflow.ID,
		WorkflowVersion: workflow.Version,
		Status:          models.ExecutionStatusPending,
		TriggerData:     triggerData,
		InputData:       inputData,
		StartedAt:       time.Now().UTC(),
	}

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", exec.ID,
	)
	logger.Info("Starting workflow execution")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rs := &runState{
		engine:   e,
		workflow: workflow,
		run:      &run{exec: exec, cancel: cancel},
		logger:   logger,
	}

	e.register(rs.run)
	defer e.finish(rs.run, workflow)

	if e.tracer != nil {
		var span trace.Span

		runCtx, span = e.tracer.Start(runCtx, "workflow.execute",
			trace.WithAttributes(
				attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
				attribute.String(otelhelper.ExecutionIDKey, exec.ID),
			))
		defer span.End()
	}

	startNodes := workflow.StartNodes()
	if len(startNodes) == 0 {
		err := models.NewValidationError("", "workflow has no nodes connected to the trigger")
		e.fail(rs, err)
		e.publishExecutionFailed(ctx, rs, err)

		return e.snapshot(rs.run), err
	}

	rs.setStatus(models.ExecutionStatusRunning)
	e.publishExecutionStarted(runCtx, rs)

	vars := buildContext(
		map[string]any{
			"id":      workflow.ID,
			"name":    workflow.Name,
			"version": workflow.Version,
		},
		workflow.Variables,
		triggerData,
		inputData,
	)

	var runErr error

	for _, nodeID := range startNodes {
		if runErr = e.dispatch(runCtx, rs, nodeID, vars, nil, 0); runErr != nil {
			break
		}
	}

	if runErr != nil {
		execErr := models.AsExecutionError(runErr, "")
		otelhelper.SetError(trace.SpanFromContext(runCtx), execErr)

		if execErr.Kind == models.ErrorKindCancelled {
			rs.markCancelled()
			e.publishExecutionCancelled(ctx, rs)
			logger.Info("Workflow execution cancelled")
		} else {
			e.fail(rs, execErr)
			e.publishExecutionFailed(ctx, rs, execErr)
			logger.Error("Workflow execution failed", "error", execErr)
		}

		return e.snapshot(rs.run), execErr
	}

	rs.complete(vars)
	e.publishExecutionCompleted(ctx, rs)
	logger.Info("Workflow execution completed", "steps", len(exec.Steps))

	return e.snapshot(rs.run), nil
}

// fail marks the execution failed with the terminal error.
func (e *Engine) fail(rs *runState, err *models.ExecutionError) {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	if rs.run.exec.Status.IsTerminal() {
		return
	}

	now := time.Now().UTC()
	rs.run.exec.Status = models.ExecutionStatusFailed
	rs.run.exec.Error = err
	rs.run.exec.FinishedAt = &now
}

// register adds a run to the live-run registry.
func (e *Engine) register(r *run) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.running[r.exec.ID] = r
}

// finish moves a run from the live registry to history and updates the
// workflow's counters and last-run timestamp.
func (e *Engine) finish(r *run, workflow *models.Workflow) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.running, r.exec.ID)
	e.history[r.exec.WorkflowID] = append(e.history[r.exec.WorkflowID], r.exec)

	now := time.Now().UTC()
	workflow.RunCount++
	workflow.LastRunAt = &now

	switch r.exec.Status {
	case models.ExecutionStatusCompleted:
		workflow.SuccessCount++
	case models.ExecutionStatusFailed:
		workflow.FailureCount++
	}
}

// GetExecution returns a snapshot of an execution, live or finished.
func (e *Engine) GetExecution(id string) (*models.WorkflowExecution, error) {
	e.mu.RLock()

	if r, ok := e.running[id]; ok {
		e.mu.RUnlock()

		return e.snapshot(r), nil
	}

	for _, execs := range e.history {
		for _, exec := range execs {
			if exec.ID == id {
				e.mu.RUnlock()

				return exec, nil
			}
		}
	}

	e.mu.RUnlock()

	return nil, fmt.Errorf("execution %s: %w", id, ErrExecutionNotFound)
}

// GetWorkflowExecutions returns a workflow's executions newest-first,
// limited to limit entries (unlimited when limit <= 0). Live runs are
// included as snapshots.
func (e *Engine) GetWorkflowExecutions(workflowID string, limit int) []*models.WorkflowExecution {
	e.mu.RLock()

	execs := make([]*models.WorkflowExecution, 0, len(e.history[workflowID]))
	execs = append(execs, e.history[workflowID]...)

	for _, r := range e.running {
		if r.exec.WorkflowID == workflowID {
			execs = append(execs, e.snapshot(r))
		}
	}

	e.mu.RUnlock()

	sort.SliceStable(execs, func(i, j int) bool {
		return execs[i].StartedAt.After(execs[j].StartedAt)
	})

	if limit > 0 && len(execs) > limit {
		execs = execs[:limit]
	}

	return execs
}

// GetRunningExecutions returns snapshots of every live run.
func (e *Engine) GetRunningExecutions() []*models.WorkflowExecution {
	e.mu.RLock()
	defer e.mu.RUnlock()

	execs := make([]*models.WorkflowExecution, 0, len(e.running))
	for _, r := range e.running {
		execs = append(execs, e.snapshot(r))
	}

	return execs
}

// CancelExecution cancels a live run. Any in-flight delay or retry sleep for
// the execution wakes early; no further steps start once cancellation is
// observed. Returns false when the execution is not currently running.
func (e *Engine) CancelExecution(id string) bool {
	e.mu.RLock()
	r, ok := e.running[id]
	e.mu.RUnlock()

	if !ok {
		return false
	}

	r.mu.Lock()
	if r.exec.Status.IsTerminal() {
		r.mu.Unlock()

		return false
	}

	now := time.Now().UTC()
	r.exec.Status = models.ExecutionStatusCancelled
	r.exec.FinishedAt = &now
	r.mu.Unlock()

	r.cancel()
	e.logger.Info("Cancelled execution", "execution_id", id)

	return true
}

// snapshot returns a deep copy of a run's execution record that is safe to
// read while the run keeps mutating the original.
func (e *Engine) snapshot(r *run) *models.WorkflowExecution {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *r.exec
	copied.Context = copyMap(r.exec.Context)
	copied.Steps = make([]*models.StepExecution, len(r.exec.Steps))

	for i, step := range r.exec.Steps {
		stepCopy := *step
		stepCopy.Input = copyMap(step.Input)
		stepCopy.Output = copyMap(step.Output)
		copied.Steps[i] = &stepCopy
	}

	return &copied
}
