package commands

import (
	"context"
	"errors"

	"github.com/civitasdev/civitas/internal/wizard"
)

const (
	msgDeleted       = "The governance configuration has been removed."
	msgNothingToDo   = "This community has no governance configuration."
	msgDeleteDenied  = "This community is over the open-deletion member limit, so only the community owner or the bot owner can remove its configuration."
	msgDeleteAborted = "Deletion cancelled."
	msgDeleteExpired = "The deletion prompt expired. Nothing was removed."
	msgDeleteFailed  = "Deletion failed partway. Check the logs; remaining entities need manual cleanup."
)

// Delete tears down a community's configuration after an explicit two-button
// confirmation. Permitted to the bot owner, the community owner, and anyone
// at all in communities under the configured member-count limit.
func (s *Service) Delete(ctx context.Context, communityID, invokerID string, prompter wizard.Prompter, notify Notify) error {
	community, err := s.client.Community(ctx, communityID)
	if err != nil {
		s.log.Error().Err(err).Str("community", communityID).Msg("community lookup failed")
		return notify(ctx, msgDeleteFailed)
	}
	if !s.mayDelete(invokerID, community.OwnerID, community.MemberCount) {
		return notify(ctx, msgDeleteDenied)
	}

	pctx, cancel := context.WithTimeout(ctx, s.runtime.DeleteTimeout)
	defer cancel()
	act, err := prompter.Prompt(pctx, wizard.Prompt{
		Title: "Remove governance configuration?",
		Lines: []string{
			"This deletes every governance record and the roles and channels created for " + community.Name + ".",
			"This cannot be undone.",
		},
		Choices: []wizard.Choice{
			{ID: wizard.ActionConfirm, Label: "Delete everything"},
			{ID: wizard.ActionCancel, Label: "Keep configuration"},
		},
	})
	switch {
	case errors.Is(err, wizard.ErrPromptTimeout) || errors.Is(err, context.DeadlineExceeded):
		return notify(ctx, msgDeleteExpired)
	case err != nil:
		s.log.Error().Err(err).Str("community", communityID).Msg("delete prompt failed")
		return notify(ctx, msgDeleteFailed)
	}
	if act.ID != wizard.ActionConfirm {
		return notify(ctx, msgDeleteAborted)
	}

	existed, err := s.orchestrator.Teardown(ctx, communityID, true)
	if err != nil {
		s.log.Error().Err(err).Str("community", communityID).Msg("teardown failed")
		return notify(ctx, msgDeleteFailed)
	}
	if !existed {
		return notify(ctx, msgNothingToDo)
	}
	return notify(ctx, msgDeleted)
}

func (s *Service) mayDelete(invokerID, ownerID string, memberCount int) bool {
	if invokerID != "" && invokerID == s.runtime.OwnerID {
		return true
	}
	if invokerID != "" && invokerID == ownerID {
		return true
	}
	return memberCount < s.runtime.DeleteMemberLimit
}
