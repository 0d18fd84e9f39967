// Package models defines the core domain models for graph-based workflow
// automation: workflows, nodes, edges, triggers, and execution records.
package models

import (
	"time"

	"github.com/weftworks/weft/pkg/condition"
)

// NodeKind is the closed set of node kinds the engine can dispatch.
type NodeKind string

const (
	NodeKindAction    NodeKind = "action"
	NodeKindCondition NodeKind = "condition"
	NodeKindLoop      NodeKind = "loop"
	NodeKindParallel  NodeKind = "parallel"
	NodeKindDelay     NodeKind = "delay"
	NodeKindEnd       NodeKind = "end"
)

// WorkflowNode is one step in a workflow graph. The kind-specific payload is
// decoded once at workflow-load time so the engine dispatches on a typed
// variant instead of re-inspecting the config map at every step.
type WorkflowNode struct {
	ID      string         `json:"id"             validate:"required"`
	Kind    NodeKind       `json:"kind"           validate:"required,oneof=action condition loop parallel delay end"`
	Name    string         `json:"name,omitempty"`
	Config  map[string]any `json:"config,omitempty"` // values may contain templates
	Outputs []string       `json:"outputs,omitempty"` // context names this node may publish

	Action    *ActionSpec    `json:"action,omitempty"`
	Condition *ConditionSpec `json:"condition,omitempty"`
	Loop      *LoopSpec      `json:"loop,omitempty"`
	Parallel  *ParallelSpec  `json:"parallel,omitempty"`
	Delay     *DelaySpec     `json:"delay,omitempty"`
}

// ActionSpec names the externally registered handler an action node invokes.
type ActionSpec struct {
	Name string `json:"name" validate:"required"`
}

// ConditionSpec holds a condition tree and the two ordered successor lists a
// condition node routes to. The branch lists fully own downstream flow; plain
// successor edges of a condition node are never followed.
type ConditionSpec struct {
	Condition   *condition.Condition `json:"condition,omitempty"` // nil behaves as always-true
	TrueBranch  []string             `json:"true_branch,omitempty"`
	FalseBranch []string             `json:"false_branch,omitempty"`
}

// LoopSpec iterates a resolved collection, binding each item under ItemVar
// and its position under "<ItemVar>_index", then runs the body node ids in
// order once per item.
type LoopSpec struct {
	Collection string   `json:"collection"` // template resolving to a list
	ItemVar    string   `json:"item_var"`
	Body       []string `json:"body,omitempty"`
}

// ParallelSpec runs each branch (an ordered list of node ids) concurrently
// with a snapshot-isolated copy of the context.
type ParallelSpec struct {
	Branches [][]string `json:"branches,omitempty"`
}

// DelaySpec pauses a branch either for a fixed duration or until an absolute
// time. Until may be a template resolving to an RFC 3339 timestamp; a resume
// time already in the past is a no-op.
type DelaySpec struct {
	Duration time.Duration `json:"duration,omitempty"`
	Until    string        `json:"until,omitempty"`
}
