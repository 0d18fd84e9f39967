// Package recovery provides composable failure-recovery policies. The
// engine never invokes these implicitly: it surfaces the terminal error, and
// the surrounding system selects a strategy per workflow or per incident.
package recovery

import (
	"github.com/weftworks/weft/pkg/models"
)

// Action is what a strategy decides to do with a failed step.
type Action string

const (
	// ActionSkip continues past the failed node with no output.
	ActionSkip Action = "skip"
	// ActionFallback substitutes a configured value as the step's output and
	// continues.
	ActionFallback Action = "fallback"
	// ActionRollback trims the step list back to a named checkpoint node so
	// the run can be retried from there.
	ActionRollback Action = "rollback"
	// ActionWait parks the execution in the waiting state for an operator.
	ActionWait Action = "wait"
)

// Decision is a strategy's verdict for one failure.
type Decision struct {
	Action        Action
	FallbackValue map[string]any // ActionFallback only
	CheckpointID  string         // ActionRollback only
}

// Strategy inspects a failure and either returns a decision or nil to pass.
type Strategy interface {
	Decide(execErr *models.ExecutionError, step *models.StepExecution) *Decision
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(execErr *models.ExecutionError, step *models.StepExecution) *Decision

func (f StrategyFunc) Decide(execErr *models.ExecutionError, step *models.StepExecution) *Decision {
	return f(execErr, step)
}

// Chain tries strategies in order and returns the first decision. A nil
// result means no strategy claimed the failure and the error stands.
func Chain(strategies ...Strategy) Strategy {
	return StrategyFunc(func(execErr *models.ExecutionError, step *models.StepExecution) *Decision {
		for _, s := range strategies {
			if decision := s.Decide(execErr, step); decision != nil {
				return decision
			}
		}

		return nil
	})
}

// SkipNodes skips failures originating at any of the given node ids.
// Validation errors are never skipped: they indicate a broken graph, not a
// flaky step.
func SkipNodes(nodeIDs ...string) Strategy {
	allowed := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		allowed[id] = struct{}{}
	}

	return StrategyFunc(func(execErr *models.ExecutionError, _ *models.StepExecution) *Decision {
		if execErr.Kind == models.ErrorKindValidation {
			return nil
		}

		if _, ok := allowed[execErr.NodeID]; !ok {
			return nil
		}

		return &Decision{Action: ActionSkip}
	})
}

// FallbackValue substitutes a canned output for failures at one node.
func FallbackValue(nodeID string, value map[string]any) Strategy {
	return StrategyFunc(func(execErr *models.ExecutionError, _ *models.StepExecution) *Decision {
		if execErr.Kind == models.ErrorKindValidation || execErr.NodeID != nodeID {
			return nil
		}

		return &Decision{Action: ActionFallback, FallbackValue: value}
	})
}

// RollbackTo rolls any non-validation failure back to a checkpoint node.
func RollbackTo(checkpointNodeID string) Strategy {
	return StrategyFunc(func(execErr *models.ExecutionError, _ *models.StepExecution) *Decision {
		if execErr.Kind == models.ErrorKindValidation {
			return nil
		}

		return &Decision{Action: ActionRollback, CheckpointID: checkpointNodeID}
	})
}

// WaitForOperator parks every non-validation failure for manual triage,
// invoking notify with the failed execution.
func WaitForOperator(notify func(execErr *models.ExecutionError, step *models.StepExecution)) Strategy {
	return StrategyFunc(func(execErr *models.ExecutionError, step *models.StepExecution) *Decision {
		if execErr.Kind == models.ErrorKindValidation {
			return nil
		}

		if notify != nil {
			notify(execErr, step)
		}

		return &Decision{Action: ActionWait}
	})
}

// Apply mutates an execution record according to a decision, returning false
// when the decision cannot be applied (unknown checkpoint, nil decision).
// The caller re-drives the run afterward.
func Apply(decision *Decision, exec *models.WorkflowExecution, step *models.StepExecution) bool {
	if decision == nil {
		return false
	}

	switch decision.Action {
	case ActionSkip:
		step.Status = models.ExecutionStatusCompleted
		step.Error = ""
		exec.Status = models.ExecutionStatusRunning
		exec.Error = nil
		exec.FinishedAt = nil

		return true
	case ActionFallback:
		step.Status = models.ExecutionStatusCompleted
		step.Error = ""
		step.Output = decision.FallbackValue
		exec.Status = models.ExecutionStatusRunning
		exec.Error = nil
		exec.FinishedAt = nil

		return true
	case ActionRollback:
		return rollback(decision.CheckpointID, exec)
	case ActionWait:
		exec.Status = models.ExecutionStatusWaiting
		exec.FinishedAt = nil

		return true
	default:
		return false
	}
}

// rollback trims the step list back to (and including) the most recent step
// for the checkpoint node, so the run can be retried from its successors.
func rollback(checkpointNodeID string, exec *models.WorkflowExecution) bool {
	for i := len(exec.Steps) - 1; i >= 0; i-- {
		if exec.Steps[i].NodeID == checkpointNodeID {
			exec.Steps = exec.Steps[:i+1]
			exec.CurrentNodeID = checkpointNodeID
			exec.Status = models.ExecutionStatusRunning
			exec.Error = nil
			exec.FinishedAt = nil

			return true
		}
	}

	return false
}

// Resume resets bookkeeping after an operator releases a waiting execution.
func Resume(exec *models.WorkflowExecution) {
	exec.Status = models.ExecutionStatusRunning
	exec.Error = nil
	exec.FinishedAt = nil
}
