// Package provision turns a completed wizard draft into the persisted
// entity graph (roles -> role holder -> categories/channels -> chambers ->
// political system -> log holder -> guild) and tears it down symmetrically.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civitasdev/civitas/internal/config"
	"github.com/civitasdev/civitas/internal/govern"
	"github.com/civitasdev/civitas/internal/platform"
	"github.com/civitasdev/civitas/internal/store"
	"github.com/civitasdev/civitas/internal/wizard"
)

// DocRef names one created document in the journal.
type DocRef struct {
	Kind govern.DocKind
	ID   string
}

// Journal records everything a provisioning run created so a failure after
// partial creation leaves the orphans reachable for manual cleanup. There
// is deliberately no automatic compensation: compensating deletes against a
// flaky platform can fail half-way themselves.
type Journal struct {
	Docs             []DocRef
	ExternalRoles    []string
	ExternalChannels []string
}

func (j *Journal) doc(d govern.Document) {
	j.Docs = append(j.Docs, DocRef{Kind: d.DocKind(), ID: d.DocID()})
}

// PartialError reports a failed provisioning run together with the journal
// of already-created entities.
type PartialError struct {
	Stage   string
	Journal *Journal
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("provision: stage %s: %v (%d documents, %d roles, %d channels created)",
		e.Stage, e.Err, len(e.Journal.Docs), len(e.Journal.ExternalRoles), len(e.Journal.ExternalChannels))
}

func (e *PartialError) Unwrap() error { return e.Err }

// Orchestrator provisions and tears down guild configurations.
type Orchestrator struct {
	store     store.Store
	client    platform.Client
	templates *config.Templates
	log       zerolog.Logger
	clock     func() time.Time
	newID     func() string
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator overrides document id generation (primarily for tests).
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// New wires an orchestrator to the store, the platform client, and the
// template blueprints.
func New(st store.Store, client platform.Client, templates *config.Templates, opts ...Option) (*Orchestrator, error) {
	if st == nil {
		return nil, fmt.Errorf("provision: store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("provision: platform client is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("provision: templates are required")
	}
	o := &Orchestrator{
		store:     st,
		client:    client,
		templates: templates,
		log:       zerolog.Nop(),
		clock:     time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Provision creates the full entity graph for a completed draft. It returns
// created=false with a nil error when the community is already configured;
// that is a normal signal, not a failure. Any stage failure is wrapped in a
// *PartialError carrying the creation journal.
func (o *Orchestrator) Provision(ctx context.Context, draft *wizard.Draft, communityID string) (govern.Guild, bool, error) {
	if err := draft.Validate(); err != nil {
		return govern.Guild{}, false, err
	}
	// Duplicate guard: short-circuit before any side effects.
	if _, err := o.store.GuildByCommunity(ctx, communityID); err == nil {
		return govern.Guild{}, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return govern.Guild{}, false, err
	}
	community, err := o.client.Community(ctx, communityID)
	if err != nil {
		return govern.Guild{}, false, err
	}

	j := &Journal{}
	holder, roleDocs, err := o.provisionRoles(ctx, draft, community, j)
	if err != nil {
		return o.fail("roles", j, err)
	}
	categories, channelDocs, err := o.provisionChannels(ctx, draft, community, roleDocs, j)
	if err != nil {
		return o.fail("channels", j, err)
	}
	legislature, court, err := o.provisionChambers(ctx, draft, community, channelDocs, j)
	if err != nil {
		return o.fail("chambers", j, err)
	}
	system, err := o.provisionSystem(ctx, draft, holder, legislature, court, j)
	if err != nil {
		return o.fail("political-system", j, err)
	}
	logHolder, err := o.provisionLogHolder(ctx, channelDocs, j)
	if err != nil {
		return o.fail("log-holder", j, err)
	}

	guild := govern.Guild{
		ID:                o.newID(),
		CommunityID:       communityID,
		RoleHolderID:      holder.ID,
		PoliticalSystemID: system.ID,
		LogHolderID:       logHolder.ID,
		Emergency: govern.EmergencyOptions{
			MartialLaw:     draft.Emergency.MartialLaw,
			SnapReferendum: draft.Emergency.SnapReferendum,
			AlertThreshold: draft.Emergency.AlertThreshold,
		},
		CreatedAt: o.clock(),
	}
	for _, cat := range categories {
		guild.CategoryIDs = append(guild.CategoryIDs, cat.ID)
	}
	if err := o.store.Create(ctx, guild); err != nil {
		// Includes losing a create race with a concurrent configuration;
		// the journal names the now-orphaned sub-entities either way.
		return o.fail("guild", j, err)
	}
	o.log.Info().Str("community", communityID).Str("guild", guild.ID).
		Str("system", string(draft.System)).Msg("guild configuration provisioned")
	return guild, true, nil
}

func (o *Orchestrator) fail(stage string, j *Journal, err error) (govern.Guild, bool, error) {
	perr := &PartialError{Stage: stage, Journal: j, Err: err}
	o.log.Error().Err(err).Str("stage", stage).Int("orphaned_docs", len(j.Docs)).
		Msg("provisioning failed after partial creation")
	return govern.Guild{}, false, perr
}

// provisionRoles creates or links one platform role per required slot and
// assembles the RoleHolder.
func (o *Orchestrator) provisionRoles(ctx context.Context, draft *wizard.Draft, community platform.CommunityInfo, j *Journal) (govern.RoleHolder, map[govern.RoleSlot]govern.Role, error) {
	existing, err := o.client.Roles(ctx, community.ID)
	if err != nil {
		return govern.RoleHolder{}, nil, err
	}
	byName := make(map[string]platform.RoleInfo, len(existing))
	for _, role := range existing {
		byName[role.Name] = role
	}

	holder := govern.RoleHolder{ID: o.newID(), Slots: map[govern.RoleSlot]string{}}
	docs := map[govern.RoleSlot]govern.Role{}
	for _, slot := range draft.RoleSlots() {
		var doc govern.Role
		if slot == govern.SlotVoxPopuli {
			doc = govern.Role{
				ID:         o.newID(),
				Slot:       slot,
				Name:       "@everyone",
				ExternalID: community.EveryoneRoleID,
			}
		} else {
			tmpl, ok := o.templates.Role(slot)
			if !ok {
				return govern.RoleHolder{}, nil, fmt.Errorf("provision: no role template for slot %s", slot)
			}
			name := tmpl.Name
			if slot == govern.SlotHeadOfState && draft.System == govern.SystemParliamentary && tmpl.ParliamentaryName != "" {
				name = tmpl.ParliamentaryName
			}
			externalID := ""
			if draft.Linkage != nil {
				externalID = draft.Linkage.Roles.Assigned[slot]
			}
			if externalID == "" {
				if info, ok := byName[name]; ok {
					externalID = info.ID
				}
			}
			if externalID == "" {
				info, err := o.client.CreateRole(ctx, community.ID, platform.RoleSpec{
					Name:         name,
					Color:        tmpl.Color,
					Capabilities: tmpl.Capabilities,
				})
				if err != nil {
					return govern.RoleHolder{}, nil, err
				}
				externalID = info.ID
				j.ExternalRoles = append(j.ExternalRoles, info.ID)
			}
			doc = govern.Role{
				ID:           o.newID(),
				Slot:         slot,
				Name:         name,
				Color:        tmpl.Color,
				Capabilities: tmpl.Capabilities,
				ExternalID:   externalID,
			}
		}
		if err := o.store.Create(ctx, doc); err != nil {
			return govern.RoleHolder{}, nil, err
		}
		j.doc(doc)
		holder.Slots[slot] = doc.ID
		docs[slot] = doc
	}
	if err := o.store.Create(ctx, holder); err != nil {
		return govern.RoleHolder{}, nil, err
	}
	j.doc(holder)
	return holder, docs, nil
}

// provisionChannels creates the category tree, deriving each channel's
// permission overwrites from its role-slot capability lists.
func (o *Orchestrator) provisionChannels(ctx context.Context, draft *wizard.Draft, community platform.CommunityInfo, roles map[govern.RoleSlot]govern.Role, j *Journal) ([]govern.Category, []govern.Channel, error) {
	var categories []govern.Category
	var channels []govern.Channel
	for _, catTmpl := range o.templates.Categories {
		catInfo, err := o.client.CreateChannel(ctx, community.ID, platform.ChannelSpec{
			Name:     catTmpl.Name,
			Category: true,
		})
		if err != nil {
			return nil, nil, err
		}
		j.ExternalChannels = append(j.ExternalChannels, catInfo.ID)
		cat := govern.Category{
			ID:         o.newID(),
			Kind:       catTmpl.Kind,
			Name:       catTmpl.Name,
			ExternalID: catInfo.ID,
		}
		for _, chTmpl := range catTmpl.Channels {
			if !draft.ChannelApplies(chTmpl) {
				continue
			}
			name := chTmpl.Name
			if draft.System == govern.SystemDirectDemocracy && chTmpl.DDName != "" {
				name = chTmpl.DDName
			}
			externalID := ""
			if draft.Linkage != nil {
				externalID = draft.Linkage.Channels.Assigned[wizard.ChannelKey(catTmpl.Kind, chTmpl.Name)]
			}
			if externalID == "" {
				info, err := o.client.CreateChannel(ctx, community.ID, platform.ChannelSpec{
					Name:       name,
					ParentID:   catInfo.ID,
					Overwrites: deriveOverwrites(chTmpl, roles, community.EveryoneRoleID),
				})
				if err != nil {
					return nil, nil, err
				}
				externalID = info.ID
				j.ExternalChannels = append(j.ExternalChannels, info.ID)
			}
			doc := govern.Channel{
				ID:         o.newID(),
				Kind:       chTmpl.Kind,
				Name:       name,
				ExternalID: externalID,
				Log:        chTmpl.Log,
				Chamber:    chTmpl.Chamber,
				View:       chTmpl.View,
				Send:       chTmpl.Send,
				Interact:   chTmpl.Interact,
				Moderate:   chTmpl.Moderate,
				Manage:     chTmpl.Manage,
			}
			if err := o.store.Create(ctx, doc); err != nil {
				return nil, nil, err
			}
			j.doc(doc)
			cat.Channels = append(cat.Channels, doc.ID)
			channels = append(channels, doc)
		}
		if err := o.store.Create(ctx, cat); err != nil {
			return nil, nil, err
		}
		j.doc(cat)
		categories = append(categories, cat)
	}
	return categories, channels, nil
}

// deriveOverwrites maps slot capability lists onto platform overwrites. A
// list containing only the VoxPopuli sentinel denies the capability on the
// everyone role: nobody but the system.
func deriveOverwrites(tmpl config.ChannelTemplate, roles map[govern.RoleSlot]govern.Role, everyoneID string) []platform.Overwrite {
	byRole := map[string]*platform.Overwrite{}
	ordered := []string{}
	apply := func(cap govern.Capability, slots []govern.RoleSlot) {
		if len(slots) == 1 && slots[0] == govern.SlotVoxPopuli {
			ov := ensureOverwrite(byRole, &ordered, everyoneID)
			ov.Deny = append(ov.Deny, cap)
			return
		}
		for _, slot := range slots {
			roleID := everyoneID
			if slot != govern.SlotVoxPopuli {
				role, ok := roles[slot]
				if !ok {
					continue
				}
				roleID = role.ExternalID
			}
			ov := ensureOverwrite(byRole, &ordered, roleID)
			ov.Allow = append(ov.Allow, cap)
		}
	}
	apply(govern.CapView, tmpl.View)
	apply(govern.CapSend, tmpl.Send)
	apply(govern.CapInteract, tmpl.Interact)
	apply(govern.CapModerate, tmpl.Moderate)
	apply(govern.CapManage, tmpl.Manage)

	out := make([]platform.Overwrite, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, *byRole[id])
	}
	return out
}

func ensureOverwrite(byRole map[string]*platform.Overwrite, ordered *[]string, roleID string) *platform.Overwrite {
	if ov, ok := byRole[roleID]; ok {
		return ov
	}
	ov := &platform.Overwrite{RoleID: roleID}
	byRole[roleID] = ov
	*ordered = append(*ordered, roleID)
	return ov
}

// provisionChambers creates the legislature and court, copying numeric
// options from the matching draft sub-objects and linking the structurally
// required chamber channels.
func (o *Orchestrator) provisionChambers(ctx context.Context, draft *wizard.Draft, community platform.CommunityInfo, channels []govern.Channel, j *Journal) (govern.Chamber, govern.Chamber, error) {
	var legislature govern.Chamber
	if draft.HasSenate() {
		legislature = govern.Chamber{
			ID:            o.newID(),
			Kind:          govern.ChamberSenate,
			Threshold:     draft.Senate.Threshold,
			TermLength:    draft.Senate.TermLength,
			TermLimit:     draft.Senate.TermLimit,
			Seats:         draft.Senate.Seats,
			ScalableSeats: draft.Senate.ScalableSeats,
		}
	} else {
		legislature = govern.Chamber{
			ID:        o.newID(),
			Kind:      govern.ChamberReferendum,
			Threshold: draft.Referendum.Threshold,
			Quorum:    draft.Referendum.Quorum,
		}
	}

	var court govern.Chamber
	if draft.AppointsJudges() {
		court = govern.Chamber{
			ID:         o.newID(),
			Kind:       govern.ChamberCourt,
			Threshold:  draft.Court.Threshold,
			TermLength: draft.Court.TermLength,
			TermLimit:  draft.Court.TermLimit,
			Seats:      draft.Court.Seats,
		}
	} else {
		// Citizens judge directly: the court inherits the referendum
		// numbers and holds no seats.
		court = govern.Chamber{
			ID:        o.newID(),
			Kind:      govern.ChamberCourt,
			Threshold: draft.Referendum.Threshold,
			Quorum:    draft.Referendum.Quorum,
			Seats:     0,
		}
	}

	legCh, err := o.ensureChamberChannel(ctx, community.ID, channels, govern.ChamberChannelLegislature, j)
	if err != nil {
		return govern.Chamber{}, govern.Chamber{}, err
	}
	legislature.ChannelID = legCh.ID
	courtCh, err := o.ensureChamberChannel(ctx, community.ID, channels, govern.ChamberChannelCourt, j)
	if err != nil {
		return govern.Chamber{}, govern.Chamber{}, err
	}
	court.ChannelID = courtCh.ID

	if err := o.store.Create(ctx, legislature); err != nil {
		return govern.Chamber{}, govern.Chamber{}, err
	}
	j.doc(legislature)
	if err := o.store.Create(ctx, court); err != nil {
		return govern.Chamber{}, govern.Chamber{}, err
	}
	j.doc(court)
	return legislature, court, nil
}

// ensureChamberChannel verifies the designated channel still exists on the
// platform. A channel that disappeared mid-provisioning is recreated once:
// the stale external id is cleared and the create retried with a bounded
// policy rather than open-ended recursion.
func (o *Orchestrator) ensureChamberChannel(ctx context.Context, communityID string, channels []govern.Channel, designation govern.ChamberDesignation, j *Journal) (govern.Channel, error) {
	var doc govern.Channel
	found := false
	for _, ch := range channels {
		if ch.Chamber == designation {
			doc = ch
			found = true
			break
		}
	}
	if !found {
		return govern.Channel{}, fmt.Errorf("provision: no channel designated for %s", designation)
	}

	original := doc.ExternalID
	op := func() error {
		if doc.ExternalID != "" {
			live, err := o.channelLive(ctx, communityID, doc.ExternalID)
			if err != nil {
				return err
			}
			if live {
				return nil
			}
			o.log.Warn().Str("channel", doc.Name).Str("external", doc.ExternalID).
				Msg("chamber channel disappeared, relinking")
			doc.ExternalID = ""
		}
		info, err := o.client.CreateChannel(ctx, communityID, platform.ChannelSpec{Name: doc.Name})
		if err != nil {
			return err
		}
		doc.ExternalID = info.ID
		j.ExternalChannels = append(j.ExternalChannels, info.ID)
		return nil
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1)); err != nil {
		return govern.Channel{}, err
	}
	if doc.ExternalID != original {
		updated := doc
		if _, err := o.store.FindOneAndUpdate(ctx, govern.KindChannel, doc.ID, func(govern.Document) govern.Document {
			return updated
		}); err != nil {
			return govern.Channel{}, err
		}
	}
	return doc, nil
}

func (o *Orchestrator) channelLive(ctx context.Context, communityID, externalID string) (bool, error) {
	channels, err := o.client.Channels(ctx, communityID)
	if err != nil {
		return false, err
	}
	for _, ch := range channels {
		if ch.ID == externalID {
			return true, nil
		}
	}
	return false, nil
}

// provisionSystem creates the PoliticalSystem record with its
// variant-specific payload.
func (o *Orchestrator) provisionSystem(ctx context.Context, draft *wizard.Draft, holder govern.RoleHolder, legislature, court govern.Chamber, j *Journal) (govern.PoliticalSystem, error) {
	system := govern.PoliticalSystem{
		ID:            o.newID(),
		Kind:          draft.System,
		LegislatureID: legislature.ID,
		CourtID:       court.ID,
	}
	switch draft.System {
	case govern.SystemPresidential:
		system.Presidential = &govern.PresidentialTerms{
			TermLength: draft.Presidential.TermLength,
			TermLimit:  draft.Presidential.TermLimit,
		}
		system.HeadOfStateRoleID = holder.Slots[govern.SlotHeadOfState]
	case govern.SystemParliamentary:
		system.Parliamentary = &govern.ParliamentaryRules{
			SnapElectionInterval: draft.Parliamentary.SnapElectionInterval,
		}
		system.HeadOfStateRoleID = holder.Slots[govern.SlotHeadOfState]
	case govern.SystemDirectDemocracy:
		system.DirectDemocracy = &govern.DirectDemocracyRules{
			AppointModerators: draft.DirectDemocracy.AppointModerators,
			AppointJudges:     draft.DirectDemocracy.AppointJudges,
		}
	}
	if err := o.store.Create(ctx, system); err != nil {
		return govern.PoliticalSystem{}, err
	}
	j.doc(system)
	return system, nil
}

// provisionLogHolder derives the log-channel holder by scanning the created
// channels for the two log designations.
func (o *Orchestrator) provisionLogHolder(ctx context.Context, channels []govern.Channel, j *Journal) (govern.LogChannelHolder, error) {
	holder := govern.LogChannelHolder{ID: o.newID()}
	for _, ch := range channels {
		switch ch.Log {
		case govern.LogServer:
			holder.ServerLogID = ch.ID
		case govern.LogChat:
			holder.ChatLogID = ch.ID
		}
	}
	if err := o.store.Create(ctx, holder); err != nil {
		return govern.LogChannelHolder{}, err
	}
	j.doc(holder)
	return holder, nil
}
