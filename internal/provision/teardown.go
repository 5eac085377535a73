package provision

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/civitasdev/civitas/internal/govern"
	"github.com/civitasdev/civitas/internal/store"
)

// Teardown removes a community's configuration. The root guild document is
// deleted first and atomically, so a crash mid-teardown leaves orphaned
// sub-documents but never a guild that claims they are live. Sub-trees are
// then deleted concurrently; one branch failing does not stop the others.
// Returns existed=false when the community had no configuration.
func (o *Orchestrator) Teardown(ctx context.Context, communityID string, deleteExternal bool) (bool, error) {
	guild, err := o.store.DeleteGuildByCommunity(ctx, communityID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// The everyone role must survive however it got referenced, so resolve
	// its id up front when external deletion is on the table.
	everyoneID := ""
	if deleteExternal {
		if community, err := o.client.Community(ctx, communityID); err == nil {
			everyoneID = community.EveryoneRoleID
		} else {
			o.log.Warn().Err(err).Str("community", communityID).
				Msg("community lookup failed during teardown, continuing")
		}
	}

	// A plain group, not WithContext: sibling branches keep going when one
	// fails, and each failure surfaces through Wait.
	var g errgroup.Group
	for _, catID := range guild.CategoryIDs {
		g.Go(func() error {
			return o.teardownCategory(ctx, communityID, catID, deleteExternal)
		})
	}
	g.Go(func() error {
		return o.teardownRoles(ctx, communityID, guild.RoleHolderID, everyoneID, deleteExternal)
	})
	g.Go(func() error {
		return o.teardownSystem(ctx, guild.PoliticalSystemID)
	})
	g.Go(func() error {
		_, err := o.store.FindOneAndDelete(ctx, govern.KindLogHolder, guild.LogHolderID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return true, fmt.Errorf("provision: teardown %s: %w", communityID, err)
	}
	o.log.Info().Str("community", communityID).Bool("delete_external", deleteExternal).
		Msg("guild configuration removed")
	return true, nil
}

// teardownCategory deletes a category document, its channel documents, and
// (optionally) their platform counterparts. Documents already missing are
// treated as already-deleted.
func (o *Orchestrator) teardownCategory(ctx context.Context, communityID, categoryID string, deleteExternal bool) error {
	doc, err := o.store.FindOneAndDelete(ctx, govern.KindCategory, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	cat, ok := doc.(govern.Category)
	if !ok {
		return fmt.Errorf("provision: document %s is not a category", categoryID)
	}

	var g errgroup.Group
	for _, channelID := range cat.Channels {
		g.Go(func() error {
			chDoc, err := o.store.FindOneAndDelete(ctx, govern.KindChannel, channelID)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			ch, ok := chDoc.(govern.Channel)
			if !ok {
				return fmt.Errorf("provision: document %s is not a channel", channelID)
			}
			if deleteExternal && ch.ExternalID != "" {
				o.deleteExternalChannel(ctx, ch.Name, ch.ExternalID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if deleteExternal && cat.ExternalID != "" {
		o.deleteExternalChannel(ctx, cat.Name, cat.ExternalID)
	}
	return nil
}

// teardownRoles deletes the role holder and every role document it points
// at. The platform everyone role is never deleted, whatever deleteExternal
// says: it is skipped both by the VoxPopuli slot and by its external id, in
// case a role document ended up referencing it some other way.
func (o *Orchestrator) teardownRoles(ctx context.Context, communityID, holderID, everyoneID string, deleteExternal bool) error {
	doc, err := o.store.FindOneAndDelete(ctx, govern.KindRoleHolder, holderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	holder, ok := doc.(govern.RoleHolder)
	if !ok {
		return fmt.Errorf("provision: document %s is not a role holder", holderID)
	}

	var g errgroup.Group
	for _, roleID := range holder.Slots {
		g.Go(func() error {
			roleDoc, err := o.store.FindOneAndDelete(ctx, govern.KindRole, roleID)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			role, ok := roleDoc.(govern.Role)
			if !ok {
				return fmt.Errorf("provision: document %s is not a role", roleID)
			}
			if deleteExternal && role.Slot != govern.SlotVoxPopuli &&
				role.ExternalID != "" && role.ExternalID != everyoneID {
				if err := o.client.DeleteRole(ctx, communityID, role.ExternalID); err != nil {
					o.log.Warn().Err(err).Str("role", role.Name).Str("external", role.ExternalID).
						Msg("external role delete failed, continuing")
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// teardownSystem deletes the political system and both chamber documents.
func (o *Orchestrator) teardownSystem(ctx context.Context, systemID string) error {
	doc, err := o.store.FindOneAndDelete(ctx, govern.KindSystem, systemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	system, ok := doc.(govern.PoliticalSystem)
	if !ok {
		return fmt.Errorf("provision: document %s is not a political system", systemID)
	}
	return o.store.DeleteMany(ctx, govern.KindChamber, []string{system.LegislatureID, system.CourtID})
}

// deleteExternalChannel is best effort: an external entity that is already
// gone should not block removal of the rest of the tree.
func (o *Orchestrator) deleteExternalChannel(ctx context.Context, name, externalID string) {
	if err := o.client.DeleteChannel(ctx, externalID); err != nil {
		o.log.Warn().Err(err).Str("channel", name).Str("external", externalID).
			Msg("external channel delete failed, continuing")
	}
}
