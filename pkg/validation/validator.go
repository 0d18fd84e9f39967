// Package validation checks workflow definitions before activation. It is
// non-throwing: every problem found is reported as a human-readable string,
// and a definition with a non-empty error list must never reach the engine.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/weftworks/weft/pkg/models"
)

// ValidateDefinition validates a raw workflow definition (node/edge/trigger
// maps, pre-construction). Definitions that do not even decode produce a
// single decode error.
func ValidateDefinition(def map[string]any) []string {
	data, err := json.Marshal(def)
	if err != nil {
		return []string{fmt.Sprintf("definition is not serializable: %v", err)}
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return []string{fmt.Sprintf("definition does not decode to a workflow: %v", err)}
	}

	return ValidateWorkflow(&workflow)
}

// ValidateWorkflow checks the structural invariants of a decoded workflow.
func ValidateWorkflow(workflow *models.Workflow) []string {
	var errs []string

	if workflow.Name == "" {
		errs = append(errs, "workflow name is required")
	}

	errs = append(errs, validateTrigger(workflow.Trigger)...)

	if len(workflow.Nodes) == 0 {
		errs = append(errs, "workflow has no nodes")
	}

	nodeIDs := make(map[string]struct{}, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if node.ID == "" {
			errs = append(errs, "node with empty id")

			continue
		}

		if _, dup := nodeIDs[node.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate node id %q", node.ID))
		}

		nodeIDs[node.ID] = struct{}{}
	}

	for _, node := range workflow.Nodes {
		errs = append(errs, validateNode(node, nodeIDs)...)
	}

	errs = append(errs, validateEdges(workflow, nodeIDs)...)

	return errs
}

func validateTrigger(trigger *models.WorkflowTrigger) []string {
	if trigger == nil {
		return []string{"workflow has no trigger"}
	}

	switch trigger.Kind {
	case models.TriggerKindEvent:
		if trigger.Event == "" {
			return []string{"event trigger has no event name"}
		}
	case models.TriggerKindSchedule:
		if trigger.Cron == "" {
			return []string{"schedule trigger has no cron expression"}
		}
	case models.TriggerKindWebhook:
		if trigger.Path == "" {
			return []string{"webhook trigger has no path"}
		}
	case models.TriggerKindManual:
	default:
		return []string{fmt.Sprintf("unknown trigger kind %q", trigger.Kind)}
	}

	return nil
}

func validateNode(node *models.WorkflowNode, nodeIDs map[string]struct{}) []string {
	var errs []string

	exists := func(id string) bool {
		_, ok := nodeIDs[id]

		return ok
	}

	switch node.Kind {
	case models.NodeKindAction:
		if node.Action == nil || node.Action.Name == "" {
			errs = append(errs, fmt.Sprintf("action node %q has no action name", node.ID))
		}
	case models.NodeKindCondition:
		if node.Condition != nil {
			for _, target := range node.Condition.TrueBranch {
				if !exists(target) {
					errs = append(errs, fmt.Sprintf("condition node %q true branch references unknown node %q", node.ID, target))
				}
			}

			for _, target := range node.Condition.FalseBranch {
				if !exists(target) {
					errs = append(errs, fmt.Sprintf("condition node %q false branch references unknown node %q", node.ID, target))
				}
			}
		}
	case models.NodeKindLoop:
		if node.Loop == nil || node.Loop.Collection == "" {
			errs = append(errs, fmt.Sprintf("loop node %q has no collection expression", node.ID))
		}

		if node.Loop != nil {
			for _, target := range node.Loop.Body {
				if !exists(target) {
					errs = append(errs, fmt.Sprintf("loop node %q body references unknown node %q", node.ID, target))
				}
			}
		}
	case models.NodeKindParallel:
		if node.Parallel == nil || len(node.Parallel.Branches) == 0 {
			errs = append(errs, fmt.Sprintf("parallel node %q has no branches", node.ID))
		}

		if node.Parallel != nil {
			for i, branch := range node.Parallel.Branches {
				for _, target := range branch {
					if !exists(target) {
						errs = append(errs, fmt.Sprintf("parallel node %q branch %d references unknown node %q", node.ID, i, target))
					}
				}
			}
		}
	case models.NodeKindDelay:
		if node.Delay == nil || (node.Delay.Duration <= 0 && node.Delay.Until == "") {
			errs = append(errs, fmt.Sprintf("delay node %q has neither a duration nor a resume time", node.ID))
		}
	case models.NodeKindEnd:
	default:
		errs = append(errs, fmt.Sprintf("node %q has unknown kind %q", node.ID, node.Kind))
	}

	return errs
}

func validateEdges(workflow *models.Workflow, nodeIDs map[string]struct{}) []string {
	var errs []string

	startNodes := 0

	for _, edge := range workflow.Edges {
		if edge.Source == models.TriggerSource {
			startNodes++
		} else if _, ok := nodeIDs[edge.Source]; !ok {
			errs = append(errs, fmt.Sprintf("edge %q source references unknown node %q", edge.ID, edge.Source))
		}

		if _, ok := nodeIDs[edge.Target]; !ok {
			errs = append(errs, fmt.Sprintf("edge %q target references unknown node %q", edge.ID, edge.Target))
		}

		switch edge.When {
		case models.EdgeWhenAny, models.EdgeWhenTrue, models.EdgeWhenFalse:
		default:
			errs = append(errs, fmt.Sprintf("edge %q has unknown condition tag %q", edge.ID, edge.When))
		}
	}

	if len(workflow.Nodes) > 0 && startNodes == 0 {
		errs = append(errs, "no nodes are connected to the trigger")
	}

	return errs
}
