package protocol

import "context"

// TriggerCallback is invoked by a trigger source when it fires. The payload
// becomes the execution's trigger data.
type TriggerCallback func(ctx context.Context, workflowID string, payload map[string]any) error

// Trigger is a running trigger source bound to one workflow.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
}
