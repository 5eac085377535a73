// Package commands implements the two user-facing operations: configuring a
// community through the wizard and deleting an existing configuration. Each
// invocation resolves to exactly one user-visible message, whatever happens
// underneath.
package commands

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/civitasdev/civitas/internal/config"
	"github.com/civitasdev/civitas/internal/platform"
	"github.com/civitasdev/civitas/internal/provision"
	"github.com/civitasdev/civitas/internal/wizard"
)

// Notify delivers one ephemeral message to the invoking user.
type Notify func(ctx context.Context, message string) error

// Service binds the command surface to its collaborators.
type Service struct {
	runtime      *config.Runtime
	templates    *config.Templates
	client       platform.Client
	orchestrator *provision.Orchestrator
	registry     *wizard.Registry
	log          zerolog.Logger
}

// NewService wires the command surface.
func NewService(rt *config.Runtime, templates *config.Templates, client platform.Client, orch *provision.Orchestrator, registry *wizard.Registry, log zerolog.Logger) *Service {
	return &Service{
		runtime:      rt,
		templates:    templates,
		client:       client,
		orchestrator: orch,
		registry:     registry,
		log:          log,
	}
}
