package models

// TriggerKind discriminates the trigger source of a workflow.
type TriggerKind string

const (
	TriggerKindEvent    TriggerKind = "event"
	TriggerKindSchedule TriggerKind = "schedule"
	TriggerKindManual   TriggerKind = "manual"
	TriggerKindWebhook  TriggerKind = "webhook"
)

// WorkflowTrigger describes what starts a run. Kind-specific settings live in
// Config alongside the dedicated fields: event name for event triggers, cron
// expression or interval for schedules, path for webhooks.
type WorkflowTrigger struct {
	Kind   TriggerKind    `json:"kind"            validate:"required,oneof=event schedule manual webhook"`
	Event  string         `json:"event,omitempty"`
	Cron   string         `json:"cron,omitempty"`
	Path   string         `json:"path,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}
