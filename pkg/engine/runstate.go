package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/weftworks/weft/pkg/models"
)

// runState bundles everything one execution's dispatch tree needs. The
// execution record itself is guarded by run.mu because management reads and
// parallel branches touch it concurrently.
type runState struct {
	engine   *Engine
	workflow *models.Workflow
	run      *run
	logger   *slog.Logger
}

func (rs *runState) setStatus(status models.ExecutionStatus) {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	if rs.run.exec.Status.IsTerminal() {
		return
	}

	rs.run.exec.Status = status
}

// cancelled reports whether the execution has been cancelled externally.
func (rs *runState) cancelled() bool {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	return rs.run.exec.Status == models.ExecutionStatusCancelled
}

// markCancelled stamps the terminal cancelled state unless CancelExecution
// already did.
func (rs *runState) markCancelled() {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	if rs.run.exec.Status.IsTerminal() {
		return
	}

	now := time.Now().UTC()
	rs.run.exec.Status = models.ExecutionStatusCancelled
	rs.run.exec.FinishedAt = &now
}

// complete stamps the terminal completed state and records the final
// context, unless cancellation already won.
func (rs *runState) complete(vars map[string]any) {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	if rs.run.exec.Status.IsTerminal() {
		return
	}

	now := time.Now().UTC()
	rs.run.exec.Status = models.ExecutionStatusCompleted
	rs.run.exec.Context = vars
	rs.run.exec.FinishedAt = &now
}

// newStep appends a running step record for a node and points the
// execution's current-node marker at it.
func (rs *runState) newStep(nodeID string, input map[string]any) *models.StepExecution {
	step := &models.StepExecution{
		ID:        "step-" + uuid.New().String()[:8],
		NodeID:    nodeID,
		Status:    models.ExecutionStatusRunning,
		Input:     input,
		StartedAt: time.Now().UTC(),
	}

	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	rs.run.exec.Steps = append(rs.run.exec.Steps, step)
	rs.run.exec.CurrentNodeID = nodeID

	return step
}

func (rs *runState) stepCompleted(step *models.StepExecution, output map[string]any) {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	now := time.Now().UTC()
	step.Status = models.ExecutionStatusCompleted
	step.Output = output
	step.FinishedAt = &now

	if rs.run.exec.Status == models.ExecutionStatusRetrying {
		rs.run.exec.Status = models.ExecutionStatusRunning
	}
}

func (rs *runState) stepFailed(step *models.StepExecution, err error) {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	now := time.Now().UTC()
	step.Status = models.ExecutionStatusFailed
	step.Error = err.Error()
	step.FinishedAt = &now
}

// stepRetrying flips the step and execution into the retrying sub-state and
// counts the attempt.
func (rs *runState) stepRetrying(step *models.StepExecution, attempt int) {
	rs.run.mu.Lock()
	defer rs.run.mu.Unlock()

	step.Status = models.ExecutionStatusRetrying
	step.RetryCount = attempt

	if !rs.run.exec.Status.IsTerminal() {
		rs.run.exec.Status = models.ExecutionStatusRetrying
	}
}
