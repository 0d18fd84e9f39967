// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/weftworks/weft/pkg/actions"
	"github.com/weftworks/weft/pkg/registry"
)

// NewRegistry builds an action registry with every built-in action installed.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	if err := actions.RegisterAll(reg); err != nil {
		panic(err)
	}

	return reg
}
