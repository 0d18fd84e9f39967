package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/weftworks/weft/pkg/condition"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/otelhelper"
	"github.com/weftworks/weft/pkg/retry"
	"github.com/weftworks/weft/pkg/template"
)

// dispatch executes one node and recurses into its successors. vars is the
// context map owned by the current branch; extras carries loop bindings that
// are recorded into every descendant step's input snapshot. Dispatch is
// depth-first and sequential except inside parallel nodes.
func (e *Engine) dispatch(ctx context.Context, rs *runState, nodeID string, vars, extras map[string]any, depth int) error {
	if ctx.Err() != nil || rs.cancelled() {
		return models.NewCancelledError(nodeID)
	}

	if depth > e.maxDepth {
		return models.NewValidationError(nodeID,
			fmt.Sprintf("dispatch depth exceeded %d, graph is likely cyclic", e.maxDepth))
	}

	node := rs.workflow.NodeByID(nodeID)
	if node == nil {
		return models.NewValidationError(nodeID, "edge targets unknown node")
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = e.tracer.Start(ctx, "node.dispatch",
			trace.WithAttributes(
				attribute.String(otelhelper.NodeIDKey, node.ID),
				attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
			))
		defer span.End()
	}

	rs.logger.Debug("Dispatching node", "node_id", node.ID, "kind", node.Kind, "depth", depth)

	switch node.Kind {
	case models.NodeKindAction:
		return e.executeAction(ctx, rs, node, vars, extras, depth)
	case models.NodeKindCondition:
		return e.executeCondition(ctx, rs, node, vars, extras, depth)
	case models.NodeKindLoop:
		return e.executeLoop(ctx, rs, node, vars, extras, depth)
	case models.NodeKindParallel:
		return e.executeParallel(ctx, rs, node, vars, extras, depth)
	case models.NodeKindDelay:
		return e.executeDelay(ctx, rs, node, vars, extras, depth)
	case models.NodeKindEnd:
		step := rs.newStep(node.ID, copyMap(extras))
		rs.stepCompleted(step, nil)
		e.publishStepCompleted(ctx, rs, step)
		publishOutputs(node, nil, vars)

		return nil
	default:
		return models.NewValidationError(node.ID, fmt.Sprintf("unknown node kind %q", node.Kind))
	}
}

// continueToSuccessors recurses into a node's plain graph successors in
// edge-list order. Condition nodes never call this: their branch lists fully
// own downstream flow.
func (e *Engine) continueToSuccessors(ctx context.Context, rs *runState, nodeID string, vars, extras map[string]any, depth int) error {
	for _, next := range rs.workflow.NextNodes(nodeID) {
		if err := e.dispatch(ctx, rs, next, vars, extras, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) executeAction(ctx context.Context, rs *runState, node *models.WorkflowNode, vars, extras map[string]any, depth int) error {
	if node.Action == nil || node.Action.Name == "" {
		return models.NewValidationError(node.ID, "action node has no action name")
	}

	handler, ok := e.registry.Action(node.Action.Name)
	if !ok {
		return models.NewValidationError(node.ID,
			fmt.Sprintf("no handler registered for action %q", node.Action.Name))
	}

	resolver := template.NewResolver(vars)

	resolvedConfig, _ := resolver.Resolve(node.Config).(map[string]any)
	if resolvedConfig == nil {
		resolvedConfig = map[string]any{}
	}

	if err := e.registry.ValidateConfig(node.Action.Name, resolvedConfig); err != nil {
		return models.NewValidationError(node.ID, err.Error())
	}

	input := copyMap(extras)
	mergeContext(input, resolvedConfig)

	step := rs.newStep(node.ID, input)
	e.publishStepStarted(ctx, rs, step)

	logger := rs.logger.With("node_id", node.ID, "action", node.Action.Name)

	handlerFn := func(ctx context.Context) (map[string]any, error) {
		return handler.Execute(ctx, resolvedConfig, vars, logger)
	}

	retrier := retry.NewHandler(retryConfigFor(node, e.defaultRetry), logger)
	retrier.OnRetry = func(attempt int, err error) {
		rs.stepRetrying(step, attempt)
		e.publishStepRetrying(ctx, rs, step, attempt, err)
	}

	output, err := retrier.Do(ctx, node.ID, handlerFn)
	if err != nil {
		rs.stepFailed(step, err)
		e.publishStepFailed(ctx, rs, step)
		logger.Error("Action failed", "error", err)

		return err
	}

	rs.stepCompleted(step, output)
	e.publishStepCompleted(ctx, rs, step)

	publishOutputs(node, output, vars)

	return e.continueToSuccessors(ctx, rs, node.ID, vars, extras, depth)
}

func (e *Engine) executeCondition(ctx context.Context, rs *runState, node *models.WorkflowNode, vars, extras map[string]any, depth int) error {
	step := rs.newStep(node.ID, copyMap(extras))
	e.publishStepStarted(ctx, rs, step)

	spec := node.Condition
	if spec == nil {
		spec = &models.ConditionSpec{}
	}

	// A condition node with no configured condition behaves as always-true.
	result := condition.Evaluate(spec.Condition, template.NewResolver(vars))

	rs.stepCompleted(step, map[string]any{"result": result})
	e.publishStepCompleted(ctx, rs, step)

	branch := spec.TrueBranch
	when := models.EdgeWhenTrue

	if !result {
		branch = spec.FalseBranch
		when = models.EdgeWhenFalse
	}

	// Branch lists may instead be expressed as condition-tagged edges.
	if len(branch) == 0 {
		branch = taggedSuccessors(rs.workflow, node.ID, when)
	}

	for _, next := range branch {
		if err := e.dispatch(ctx, rs, next, vars, extras, depth+1); err != nil {
			return err
		}
	}

	// The branch lists fully own downstream flow for this node: plain
	// successor edges are never followed.
	return nil
}

func (e *Engine) executeLoop(ctx context.Context, rs *runState, node *models.WorkflowNode, vars, extras map[string]any, depth int) error {
	if node.Loop == nil {
		return models.NewValidationError(node.ID, "loop node has no loop spec")
	}

	step := rs.newStep(node.ID, copyMap(extras))
	e.publishStepStarted(ctx, rs, step)

	itemVar := node.Loop.ItemVar
	if itemVar == "" {
		itemVar = "item"
	}

	resolved := template.NewResolver(vars).ResolveString(node.Loop.Collection)

	// A collection that does not resolve to a list runs zero iterations.
	items, _ := resolved.([]any)

	for i, item := range items {
		vars[itemVar] = item
		vars[itemVar+"_index"] = i

		iterExtras := copyMap(extras)
		iterExtras[itemVar] = item
		iterExtras[itemVar+"_index"] = i

		for _, bodyID := range node.Loop.Body {
			if err := e.dispatch(ctx, rs, bodyID, vars, iterExtras, depth+1); err != nil {
				rs.stepFailed(step, err)
				e.publishStepFailed(ctx, rs, step)

				return err
			}
		}
	}

	output := map[string]any{"iterations": len(items)}
	rs.stepCompleted(step, output)
	e.publishStepCompleted(ctx, rs, step)

	publishOutputs(node, output, vars)

	return e.continueToSuccessors(ctx, rs, node.ID, vars, extras, depth)
}

func (e *Engine) executeParallel(ctx context.Context, rs *runState, node *models.WorkflowNode, vars, extras map[string]any, depth int) error {
	if node.Parallel == nil {
		return models.NewValidationError(node.ID, "parallel node has no branches")
	}

	step := rs.newStep(node.ID, copyMap(extras))
	e.publishStepStarted(ctx, rs, step)

	branches := node.Parallel.Branches
	branchVars := make([]map[string]any, len(branches))
	branchErrs := make([]error, len(branches))

	var wg sync.WaitGroup

	for i, branch := range branches {
		// Snapshot-isolated context: branches cannot observe each other's
		// writes.
		branchVars[i] = copyMap(vars)

		wg.Add(1)

		go func(i int, branch []string) {
			defer wg.Done()

			for _, nodeID := range branch {
				if err := e.dispatch(ctx, rs, nodeID, branchVars[i], extras, depth+1); err != nil {
					branchErrs[i] = err

					return
				}
			}
		}(i, branch)
	}

	wg.Wait()

	// Join: merge branch contexts back into the parent, last writer wins in
	// branch declaration order.
	for i := range branches {
		if branchErrs[i] == nil {
			mergeContext(vars, branchVars[i])
		}
	}

	for i := range branches {
		if branchErrs[i] != nil {
			rs.stepFailed(step, branchErrs[i])
			e.publishStepFailed(ctx, rs, step)

			return branchErrs[i]
		}
	}

	output := map[string]any{"branches": len(branches)}
	rs.stepCompleted(step, output)
	e.publishStepCompleted(ctx, rs, step)

	publishOutputs(node, output, vars)

	return e.continueToSuccessors(ctx, rs, node.ID, vars, extras, depth)
}

func (e *Engine) executeDelay(ctx context.Context, rs *runState, node *models.WorkflowNode, vars, extras map[string]any, depth int) error {
	if node.Delay == nil {
		return models.NewValidationError(node.ID, "delay node has no delay spec")
	}

	step := rs.newStep(node.ID, copyMap(extras))
	e.publishStepStarted(ctx, rs, step)

	duration := node.Delay.Duration

	if node.Delay.Until != "" {
		resolved := template.NewResolver(vars).ResolveString(node.Delay.Until)

		resumeAt, err := parseTime(resolved)
		if err != nil {
			failure := models.NewValidationError(node.ID,
				fmt.Sprintf("delay until %q does not resolve to a timestamp", node.Delay.Until))
			rs.stepFailed(step, failure)
			e.publishStepFailed(ctx, rs, step)

			return failure
		}

		// A resume time already in the past is a no-op.
		duration = time.Until(resumeAt)
	}

	if duration > 0 {
		if err := wait(ctx, duration); err != nil {
			cancelErr := models.NewCancelledError(node.ID)
			rs.stepFailed(step, cancelErr)

			return cancelErr
		}
	}

	output := map[string]any{"delayed": duration.String()}
	rs.stepCompleted(step, output)
	e.publishStepCompleted(ctx, rs, step)

	publishOutputs(node, output, vars)

	return e.continueToSuccessors(ctx, rs, node.ID, vars, extras, depth)
}

// publishOutputs copies the node's configured output names from the step
// output into the shared context. Output names absent from the output map
// are skipped.
func publishOutputs(node *models.WorkflowNode, output, vars map[string]any) {
	for _, name := range node.Outputs {
		if value, ok := output[name]; ok {
			vars[name] = value
		}
	}
}

// taggedSuccessors returns targets of edges leaving a condition node that
// carry the given branch tag, in edge-list order.
func taggedSuccessors(workflow *models.Workflow, nodeID string, when models.EdgeWhen) []string {
	var targets []string

	for _, edge := range workflow.Edges {
		if edge.Source == nodeID && edge.When == when {
			targets = append(targets, edge.Target)
		}
	}

	return targets
}

// retryConfigFor reads a retry override from the node's config, falling back
// to the engine default.
func retryConfigFor(node *models.WorkflowNode, def retry.Config) retry.Config {
	raw, ok := node.Config["retry"].(map[string]any)
	if !ok {
		return def
	}

	config := def

	if v, ok := toInt(raw["max_attempts"]); ok {
		config.MaxAttempts = v
	}

	if v, ok := toInt(raw["initial_backoff_ms"]); ok {
		config.InitialBackoff = time.Duration(v) * time.Millisecond
	}

	if v, ok := toInt(raw["max_backoff_ms"]); ok {
		config.MaxBackoff = time.Duration(v) * time.Millisecond
	}

	if v, ok := raw["backoff_factor"].(float64); ok && v >= 1.0 {
		config.BackoffFactor = v
	}

	if config.Validate() != nil {
		return def
	}

	return config
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func parseTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("not a timestamp: %v", value)
}

// wait blocks for d or until the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
