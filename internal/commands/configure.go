package commands

import (
	"context"
	"fmt"

	"github.com/civitasdev/civitas/internal/wizard"
)

// User-visible outcome messages. The wizard itself never talks to the user
// outside its prompts; these are the single closing message per invocation.
const (
	msgConfigured        = "Your community is configured. Welcome to self-governance."
	msgAlreadyConfigured = "This community is already configured. Run the delete command first to start over."
	msgCancelled         = "Configuration cancelled. Nothing was created."
	msgTimedOut          = "The configuration session timed out. Nothing was created."
	msgEscaped           = "The configuration session ended unexpectedly. Nothing was created."
	msgFailed            = "Configuration failed. Check the logs; partially created entities are recorded there."
)

// Configure runs one wizard session for the invoking user and, on
// completion, provisions the community. Every path, including a panic in a
// step function, resolves to exactly one message through notify.
func (s *Service) Configure(ctx context.Context, communityID string, prompter wizard.Prompter, notify Notify) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("community", communityID).
				Msg("configure command panicked")
			err = notify(ctx, msgFailed)
		}
	}()

	community, err := s.client.Community(ctx, communityID)
	if err != nil {
		s.log.Error().Err(err).Str("community", communityID).Msg("community lookup failed")
		return notify(ctx, msgFailed)
	}
	roles, err := s.client.Roles(ctx, communityID)
	if err != nil {
		s.log.Error().Err(err).Str("community", communityID).Msg("role snapshot failed")
		return notify(ctx, msgFailed)
	}
	channels, err := s.client.Channels(ctx, communityID)
	if err != nil {
		s.log.Error().Err(err).Str("community", communityID).Msg("channel snapshot failed")
		return notify(ctx, msgFailed)
	}

	session := wizard.NewSession(s.templates, community, roles, channels)
	controller, err := wizard.New(s.registry, prompter,
		wizard.WithTimeout(s.runtime.PromptTimeout),
		wizard.WithLogger(s.log))
	if err != nil {
		return fmt.Errorf("commands: %w", err)
	}

	result, err := controller.Run(ctx, session)
	if err != nil {
		s.log.Error().Err(err).Str("community", communityID).Msg("wizard session failed")
		return notify(ctx, msgFailed)
	}
	switch result.Outcome {
	case wizard.OutcomeCancelled:
		return notify(ctx, msgCancelled)
	case wizard.OutcomeTimedOut:
		return notify(ctx, msgTimedOut)
	case wizard.OutcomeEscaped:
		return notify(ctx, msgEscaped)
	case wizard.OutcomeCompleted:
		// Fall through to provisioning.
	default:
		return notify(ctx, msgEscaped)
	}

	_, created, err := s.orchestrator.Provision(ctx, session.Draft, communityID)
	if err != nil {
		s.log.Error().Err(err).Str("community", communityID).Msg("provisioning failed")
		return notify(ctx, msgFailed)
	}
	if !created {
		return notify(ctx, msgAlreadyConfigured)
	}
	return notify(ctx, msgConfigured)
}
