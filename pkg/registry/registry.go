// Package registry holds the engine's named action handlers and their
// optional configuration schemas.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/weftworks/weft/pkg/protocol"
)

// Registry maps action names to handlers. Registration and lookup are safe
// under concurrent executions.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	actions map[string]protocol.Action
	schemas map[string]*gojsonschema.Schema
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:  logger.With("module", "registry"),
		actions: make(map[string]protocol.Action),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// RegisterAction registers a handler under a name, replacing any previous
// registration.
func (r *Registry) RegisterAction(name string, action protocol.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions[name] = action
	r.logger.Debug("Registered action", "action", name)
}

// RegisterActionWithSchema registers a handler together with a JSON schema
// its resolved config must satisfy before dispatch.
func (r *Registry) RegisterActionWithSchema(name string, action protocol.Action, schema map[string]any) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return fmt.Errorf("invalid schema for action %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions[name] = action
	r.schemas[name] = compiled
	r.logger.Debug("Registered action with schema", "action", name)

	return nil
}

// Action returns the handler registered under name.
func (r *Registry) Action(name string) (protocol.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, ok := r.actions[name]

	return action, ok
}

// ActionNames returns the registered names, for diagnostics.
func (r *Registry) ActionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}

	return names
}

// HealthCheck reports whether the registry is usable: at least one action
// must be registered.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.actions) == 0 {
		return "No actions registered", false
	}

	return fmt.Sprintf("%d actions registered", len(r.actions)), true
}

// ValidateConfig checks a resolved config against the action's registered
// schema. Actions without a schema accept any config.
func (r *Registry) ValidateConfig(name string, config map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("config validation for action %q: %w", name, err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid config for action %q: %s", name, errs[0].String())
		}

		return fmt.Errorf("invalid config for action %q", name)
	}

	return nil
}
