package wizard

import (
	"fmt"
	"sort"

	"github.com/civitasdev/civitas/internal/config"
	"github.com/civitasdev/civitas/internal/govern"
)

// Draft is the nested configuration object a wizard session accumulates.
// Sub-drafts are populated lazily, in wizard order: each is defaulted from
// the session templates exactly once when its step is first reached, and is
// never re-defaulted afterward.
type Draft struct {
	System          govern.SystemKind
	Presidential    *PresidentialDraft
	Parliamentary   *ParliamentaryDraft
	DirectDemocracy *DirectDemocracyDraft
	Senate          *SenateDraft
	Referendum      *ReferendumDraft
	Court           *CourtDraft
	Emergency       *EmergencyDraft
	Linkage         *LinkageDraft
}

// PresidentialDraft holds head-of-state term options. Cursor selects which
// field the shared increment/decrement controls act on.
type PresidentialDraft struct {
	TermLength int
	TermLimit  int
	Cursor     int
}

// ParliamentaryDraft holds the snap-election interval, kept strictly below
// the senate term length.
type ParliamentaryDraft struct {
	SnapElectionInterval int
}

// DirectDemocracyDraft holds the two DD appoint toggles.
type DirectDemocracyDraft struct {
	AppointModerators bool
	AppointJudges     bool
}

// SenateDraft holds senate terms, seats, and the passing threshold.
type SenateDraft struct {
	TermLength    int
	TermLimit     int
	Seats         int
	ScalableSeats bool
	Threshold     int
	Cursor        int
}

// ReferendumDraft holds the referendum pass threshold and quorum.
type ReferendumDraft struct {
	Threshold int
	Quorum    int
	Cursor    int
}

// CourtDraft holds judicial terms, seats, and the conviction threshold.
type CourtDraft struct {
	TermLength int
	TermLimit  int
	Seats      int
	Threshold  int
	Cursor     int
}

// EmergencyDraft holds the crisis options, always set before commit.
type EmergencyDraft struct {
	MartialLaw     bool
	SnapReferendum bool
	AlertThreshold int
}

// LinkageDraft carries the role and channel assignment sub-drafts. Each has
// its own navigation cursor, independent of the wizard's step bookkeeping.
type LinkageDraft struct {
	Roles    SlotLinkage
	Channels ChannelLinkage
}

// SlotLinkage binds internal role slots to existing external role ids.
type SlotLinkage struct {
	Cursor   int
	Assigned map[govern.RoleSlot]string
}

// ChannelLinkage binds internal channel slots (category/name keys) to
// existing external channel ids.
type ChannelLinkage struct {
	Cursor   int
	Assigned map[string]string
}

// HasModerators reports whether this configuration appoints moderators.
func (d *Draft) HasModerators() bool {
	if d.System != govern.SystemDirectDemocracy {
		return true
	}
	return d.DirectDemocracy != nil && d.DirectDemocracy.AppointModerators
}

// HasSenate reports whether the legislature is a senate.
func (d *Draft) HasSenate() bool {
	return d.System != govern.SystemDirectDemocracy
}

// AppointsJudges reports whether dedicated judges hold the court. When
// false (direct democracy without appointed judges) citizens judge
// directly.
func (d *Draft) AppointsJudges() bool {
	if d.System != govern.SystemDirectDemocracy {
		return true
	}
	return d.DirectDemocracy != nil && d.DirectDemocracy.AppointJudges
}

// RoleSlots lists every role slot this configuration provisions, in a
// stable order.
func (d *Draft) RoleSlots() []govern.RoleSlot {
	slots := []govern.RoleSlot{govern.SlotVoxPopuli}
	if d.System == govern.SystemPresidential || d.System == govern.SystemParliamentary {
		slots = append(slots, govern.SlotHeadOfState)
	}
	if d.HasModerators() {
		slots = append(slots, govern.SlotHeadModerator, govern.SlotModerator)
	}
	if d.HasSenate() {
		slots = append(slots, govern.SlotSenator)
	}
	if d.AppointsJudges() {
		slots = append(slots, govern.SlotJudge)
	}
	return append(slots, govern.SlotCitizen, govern.SlotUndocumented)
}

// LinkableSlots is RoleSlots minus the VoxPopuli sentinel, which always
// binds to the platform everyone role.
func (d *Draft) LinkableSlots() []govern.RoleSlot {
	all := d.RoleSlots()
	out := make([]govern.RoleSlot, 0, len(all)-1)
	for _, slot := range all {
		if slot != govern.SlotVoxPopuli {
			out = append(out, slot)
		}
	}
	return out
}

// ChannelApplies reports whether a channel template applies to this draft.
func (d *Draft) ChannelApplies(tmpl config.ChannelTemplate) bool {
	return !tmpl.RequiresModerators || d.HasModerators()
}

// ChannelKey identifies a channel slot in the linkage phase.
func ChannelKey(category govern.CategoryKind, name string) string {
	return string(category) + "/" + name
}

// ChannelKeys lists the linkable channel slots for this draft, in template
// order.
func (d *Draft) ChannelKeys(templates *config.Templates) []string {
	var keys []string
	for _, cat := range templates.Categories {
		for _, ch := range cat.Channels {
			if d.ChannelApplies(ch) {
				keys = append(keys, ChannelKey(cat.Kind, ch.Name))
			}
		}
	}
	return keys
}

// Validate checks the committed draft: a valid system with exactly one
// matching option block, and every branch-required sub-draft present.
func (d *Draft) Validate() error {
	if !d.System.Valid() {
		return fmt.Errorf("wizard: no political system selected")
	}
	blocks := 0
	if d.Presidential != nil {
		blocks++
	}
	if d.Parliamentary != nil {
		blocks++
	}
	if d.DirectDemocracy != nil {
		blocks++
	}
	if blocks != 1 {
		return fmt.Errorf("wizard: expected exactly one system option block, found %d", blocks)
	}
	switch d.System {
	case govern.SystemPresidential:
		if d.Presidential == nil {
			return fmt.Errorf("wizard: presidential system without presidential options")
		}
	case govern.SystemParliamentary:
		if d.Parliamentary == nil {
			return fmt.Errorf("wizard: parliamentary system without parliamentary options")
		}
	case govern.SystemDirectDemocracy:
		if d.DirectDemocracy == nil {
			return fmt.Errorf("wizard: direct democracy without dd options")
		}
	}
	if d.HasSenate() && d.Senate == nil {
		return fmt.Errorf("wizard: senate options missing")
	}
	if !d.HasSenate() && d.Referendum == nil {
		return fmt.Errorf("wizard: referendum thresholds missing")
	}
	if d.AppointsJudges() && d.Court == nil {
		return fmt.Errorf("wizard: court options missing")
	}
	if d.Emergency == nil {
		return fmt.Errorf("wizard: emergency options missing")
	}
	if d.Linkage == nil {
		return fmt.Errorf("wizard: linkage options missing")
	}
	return nil
}

// AssignedExternalRoles returns slot -> external role id bindings sorted by
// slot (stable for summaries and tests).
func (d *Draft) AssignedExternalRoles() []govern.RoleSlot {
	if d.Linkage == nil {
		return nil
	}
	out := make([]govern.RoleSlot, 0, len(d.Linkage.Roles.Assigned))
	for slot := range d.Linkage.Roles.Assigned {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// The ensure helpers implement idempotent lazy init: defaults come from the
// session's private template copy, exactly once per sub-draft.

func ensurePresidential(s *Session) *PresidentialDraft {
	if s.Draft.Presidential == nil {
		w := s.Templates.Wizard
		s.Draft.Presidential = &PresidentialDraft{TermLength: w.TermLength, TermLimit: w.TermLimit}
	}
	return s.Draft.Presidential
}

func ensureParliamentary(s *Session) *ParliamentaryDraft {
	if s.Draft.Parliamentary == nil {
		interval := s.Templates.Wizard.SnapElectionInterval
		if senate := s.Draft.Senate; senate != nil && interval >= senate.TermLength {
			interval = senate.TermLength - 1
		}
		if interval < minSnapInterval {
			interval = minSnapInterval
		}
		s.Draft.Parliamentary = &ParliamentaryDraft{SnapElectionInterval: interval}
	}
	return s.Draft.Parliamentary
}

func ensureDirectDemocracy(s *Session) *DirectDemocracyDraft {
	if s.Draft.DirectDemocracy == nil {
		s.Draft.DirectDemocracy = &DirectDemocracyDraft{}
	}
	return s.Draft.DirectDemocracy
}

func ensureSenate(s *Session) *SenateDraft {
	if s.Draft.Senate == nil {
		w := s.Templates.Wizard
		s.Draft.Senate = &SenateDraft{
			TermLength:    w.TermLength,
			TermLimit:     w.TermLimit,
			Seats:         w.Seats,
			ScalableSeats: w.ScalableSeats,
			Threshold:     w.Threshold,
		}
	}
	return s.Draft.Senate
}

func ensureReferendum(s *Session) *ReferendumDraft {
	if s.Draft.Referendum == nil {
		w := s.Templates.Wizard
		s.Draft.Referendum = &ReferendumDraft{Threshold: w.ReferendumThreshold, Quorum: w.ReferendumQuorum}
	}
	return s.Draft.Referendum
}

func ensureCourt(s *Session) *CourtDraft {
	if s.Draft.Court == nil {
		w := s.Templates.Wizard
		s.Draft.Court = &CourtDraft{
			TermLength: w.CourtTermLength,
			TermLimit:  w.CourtTermLimit,
			Seats:      w.CourtSeats,
			Threshold:  w.CourtThreshold,
		}
	}
	return s.Draft.Court
}

func ensureEmergency(s *Session) *EmergencyDraft {
	if s.Draft.Emergency == nil {
		e := s.Templates.Wizard.Emergency
		s.Draft.Emergency = &EmergencyDraft{
			MartialLaw:     e.MartialLaw,
			SnapReferendum: e.SnapReferendum,
			AlertThreshold: e.AlertThreshold,
		}
	}
	return s.Draft.Emergency
}

func ensureLinkage(s *Session) *LinkageDraft {
	if s.Draft.Linkage == nil {
		s.Draft.Linkage = &LinkageDraft{
			Roles:    SlotLinkage{Assigned: map[govern.RoleSlot]string{}},
			Channels: ChannelLinkage{Assigned: map[string]string{}},
		}
	}
	return s.Draft.Linkage
}
