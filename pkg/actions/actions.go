// Package actions wires the built-in action handlers into a registry.
package actions

import (
	"fmt"

	"github.com/weftworks/weft/pkg/actions/httprequest"
	"github.com/weftworks/weft/pkg/actions/log"
	"github.com/weftworks/weft/pkg/actions/transform"
	"github.com/weftworks/weft/pkg/registry"
)

// RegisterAll registers every built-in action with its config schema.
func RegisterAll(reg *registry.Registry) error {
	if err := reg.RegisterActionWithSchema("log", log.NewAction(), log.Schema()); err != nil {
		return fmt.Errorf("failed to register log action: %w", err)
	}

	if err := reg.RegisterActionWithSchema("http_request", httprequest.NewAction(), httprequest.Schema()); err != nil {
		return fmt.Errorf("failed to register http_request action: %w", err)
	}

	if err := reg.RegisterActionWithSchema("transform", transform.NewAction(), transform.Schema()); err != nil {
		return fmt.Errorf("failed to register transform action: %w", err)
	}

	return nil
}
