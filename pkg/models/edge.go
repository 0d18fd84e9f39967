package models

// TriggerSource is the synthetic edge source denoting the implicit trigger
// anchor. Targets of trigger edges are the workflow's start nodes.
const TriggerSource = "trigger"

// EdgeWhen tags an edge leaving a condition node with the branch it serves.
type EdgeWhen string

const (
	EdgeWhenAny   EdgeWhen = ""
	EdgeWhenTrue  EdgeWhen = "true"
	EdgeWhenFalse EdgeWhen = "false"
)

// WorkflowEdge is a directed connection between two nodes, or from the
// trigger anchor to a node.
type WorkflowEdge struct {
	ID     string   `json:"id"`
	Source string   `json:"source" validate:"required"`
	Target string   `json:"target" validate:"required"`
	Label  string   `json:"label,omitempty"`
	When   EdgeWhen `json:"when,omitempty"`
}
