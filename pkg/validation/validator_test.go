package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
)

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:     "wf-1",
		Name:   "order pipeline",
		Status: models.WorkflowStatusDraft,
		Trigger: &models.WorkflowTrigger{
			Kind: models.TriggerKindManual,
		},
		Nodes: []*models.WorkflowNode{
			{ID: "fetch", Kind: models.NodeKindAction, Action: &models.ActionSpec{Name: "http_request"}},
			{ID: "done", Kind: models.NodeKindEnd},
		},
		Edges: []*models.WorkflowEdge{
			{ID: "e1", Source: models.TriggerSource, Target: "fetch"},
			{ID: "e2", Source: "fetch", Target: "done"},
		},
	}
}

func TestValidateWorkflow_Valid(t *testing.T) {
	assert.Empty(t, ValidateWorkflow(validWorkflow()))
}

func TestValidateWorkflow_CollectsAllErrors(t *testing.T) {
	workflow := &models.Workflow{
		Name: "broken",
		Trigger: &models.WorkflowTrigger{
			Kind: models.TriggerKindSchedule, // no cron
		},
		Nodes: []*models.WorkflowNode{
			{ID: "a", Kind: models.NodeKindAction}, // no action name
			{ID: "a", Kind: models.NodeKindEnd},    // duplicate id
		},
		Edges: []*models.WorkflowEdge{
			{ID: "e1", Source: "a", Target: "ghost"}, // dangling target
		},
	}

	errs := ValidateWorkflow(workflow)
	require.Len(t, errs, 5)
	assert.Contains(t, errs, "schedule trigger has no cron expression")
	assert.Contains(t, errs, `duplicate node id "a"`)
	assert.Contains(t, errs, `action node "a" has no action name`)
	assert.Contains(t, errs, `edge "e1" target references unknown node "ghost"`)
	assert.Contains(t, errs, "no nodes are connected to the trigger")
}

func TestValidateWorkflow_TriggerKinds(t *testing.T) {
	tests := []struct {
		name    string
		trigger *models.WorkflowTrigger
		want    string
	}{
		{"missing", nil, "workflow has no trigger"},
		{"event without name", &models.WorkflowTrigger{Kind: models.TriggerKindEvent}, "event trigger has no event name"},
		{"webhook without path", &models.WorkflowTrigger{Kind: models.TriggerKindWebhook}, "webhook trigger has no path"},
		{"unknown kind", &models.WorkflowTrigger{Kind: "carrier-pigeon"}, `unknown trigger kind "carrier-pigeon"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := validWorkflow()
			workflow.Trigger = tt.trigger

			assert.Contains(t, ValidateWorkflow(workflow), tt.want)
		})
	}
}

func TestValidateWorkflow_BranchTargets(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.WorkflowNode{
		ID:   "check",
		Kind: models.NodeKindCondition,
		Condition: &models.ConditionSpec{
			TrueBranch:  []string{"done"},
			FalseBranch: []string{"missing"},
		},
	})

	errs := ValidateWorkflow(workflow)
	require.Len(t, errs, 1)
	assert.Equal(t, `condition node "check" false branch references unknown node "missing"`, errs[0])
}

func TestValidateWorkflow_LoopAndParallel(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes = append(workflow.Nodes,
		&models.WorkflowNode{ID: "each", Kind: models.NodeKindLoop, Loop: &models.LoopSpec{
			Collection: "{{items}}",
			ItemVar:    "item",
			Body:       []string{"gone"},
		}},
		&models.WorkflowNode{ID: "fan", Kind: models.NodeKindParallel, Parallel: &models.ParallelSpec{
			Branches: [][]string{{"done"}, {"nowhere"}},
		}},
	)

	errs := ValidateWorkflow(workflow)
	assert.Contains(t, errs, `loop node "each" body references unknown node "gone"`)
	assert.Contains(t, errs, `parallel node "fan" branch 1 references unknown node "nowhere"`)
}

func TestValidateWorkflow_DelayNeedsDurationOrUntil(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.WorkflowNode{ID: "pause", Kind: models.NodeKindDelay, Delay: &models.DelaySpec{}})

	errs := ValidateWorkflow(workflow)
	require.Len(t, errs, 1)
	assert.Equal(t, `delay node "pause" has neither a duration nor a resume time`, errs[0])

	workflow.Nodes[len(workflow.Nodes)-1].Delay = &models.DelaySpec{Duration: time.Second}
	assert.Empty(t, ValidateWorkflow(workflow))
}

func TestValidateDefinition_DecodesRawMaps(t *testing.T) {
	def := map[string]any{
		"name":    "from raw maps",
		"trigger": map[string]any{"kind": "manual"},
		"nodes": []any{
			map[string]any{"id": "log", "kind": "action", "action": map[string]any{"name": "log"}},
		},
		"edges": []any{
			map[string]any{"id": "e1", "source": "trigger", "target": "log"},
		},
	}

	assert.Empty(t, ValidateDefinition(def))

	def["nodes"] = []any{
		map[string]any{"id": "log", "kind": "teleport"},
	}

	errs := ValidateDefinition(def)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs, `node "log" has unknown kind "teleport"`)
}

func TestValidateDefinition_UndecodableDefinition(t *testing.T) {
	def := map[string]any{"nodes": "not-a-list"}

	errs := ValidateDefinition(def)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "does not decode to a workflow")
}
