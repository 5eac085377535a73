package wizard

import (
	"errors"
	"testing"

	"github.com/civitasdev/civitas/internal/config"
	"github.com/civitasdev/civitas/internal/govern"
	"github.com/civitasdev/civitas/internal/platform"
)

func newStepSession(t *testing.T) *Session {
	t.Helper()
	templates, err := config.LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	return NewSession(templates,
		platform.CommunityInfo{ID: "guild-1", EveryoneRoleID: "everyone"},
		[]platform.RoleInfo{
			{ID: "everyone", Name: "@everyone", Managed: true},
			{ID: "r-knights", Name: "Knights"},
			{ID: "r-wizards", Name: "Wizards"},
		},
		[]platform.ChannelInfo{{ID: "ch-general", Name: "general"}})
}

func TestSelectSystemClearsOtherOptionBlocks(t *testing.T) {
	s := newStepSession(t)
	if _, err := applySelectSystem(s, Action{ID: ActionSelect, Value: string(govern.SystemPresidential)}); err != nil {
		t.Fatalf("select presidential: %v", err)
	}
	ensurePresidential(s)
	if _, err := applySelectSystem(s, Action{ID: ActionSelect, Value: string(govern.SystemDirectDemocracy)}); err != nil {
		t.Fatalf("select dd: %v", err)
	}
	if s.Draft.Presidential != nil {
		t.Fatalf("presidential block should be dropped on system change")
	}
	ensureDirectDemocracy(s)
	blocks := 0
	if s.Draft.Presidential != nil {
		blocks++
	}
	if s.Draft.Parliamentary != nil {
		blocks++
	}
	if s.Draft.DirectDemocracy != nil {
		blocks++
	}
	if blocks != 1 {
		t.Fatalf("expected exactly one option block, got %d", blocks)
	}
}

func TestReselectingSameSystemKeepsOptions(t *testing.T) {
	s := newStepSession(t)
	if _, err := applySelectSystem(s, Action{ID: ActionSelect, Value: string(govern.SystemPresidential)}); err != nil {
		t.Fatalf("select: %v", err)
	}
	p := ensurePresidential(s)
	p.TermLength = 123
	if _, err := applySelectSystem(s, Action{ID: ActionSelect, Value: string(govern.SystemPresidential)}); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if s.Draft.Presidential == nil || s.Draft.Presidential.TermLength != 123 {
		t.Fatalf("reselecting the same system must not reset its options")
	}
}

func TestClampingAtBounds(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemPresidential
	p := ensurePresidential(s)

	p.TermLength, p.Cursor = minTermLength, 0
	if _, err := applyPresidentialOptions(s, Action{ID: ActionDec}); err != nil {
		t.Fatalf("dec at floor: %v", err)
	}
	if p.TermLength != minTermLength {
		t.Fatalf("term length went below floor: %d", p.TermLength)
	}
	p.TermLength = maxTermLength
	if _, err := applyPresidentialOptions(s, Action{ID: ActionInc}); err != nil {
		t.Fatalf("inc at ceil: %v", err)
	}
	if p.TermLength != maxTermLength {
		t.Fatalf("term length went above ceil: %d", p.TermLength)
	}

	p.Cursor = 1
	p.TermLimit = minTermLimit
	if _, err := applyPresidentialOptions(s, Action{ID: ActionDec}); err != nil {
		t.Fatalf("dec limit at floor: %v", err)
	}
	if p.TermLimit != 0 {
		t.Fatalf("term limit must floor at 0 (unlimited), got %d", p.TermLimit)
	}

	senate := ensureSenate(s)
	senate.Threshold = 95
	if _, err := applySenateThreshold(s, Action{ID: ActionInc10}); err != nil {
		t.Fatalf("inc10: %v", err)
	}
	if senate.Threshold != maxPercent {
		t.Fatalf("threshold should clamp at %d, got %d", maxPercent, senate.Threshold)
	}
	senate.Threshold = 5
	if _, err := applySenateThreshold(s, Action{ID: ActionDec10}); err != nil {
		t.Fatalf("dec10: %v", err)
	}
	if senate.Threshold != minPercent {
		t.Fatalf("threshold should clamp at %d, got %d", minPercent, senate.Threshold)
	}
}

func TestCounterChoicesDisableNoOpAdjustments(t *testing.T) {
	choices := counterChoices(minPercent, minPercent, maxPercent, true, false)
	for _, c := range choices {
		switch c.ID {
		case ActionDec, ActionDec10:
			if !c.Disabled {
				t.Fatalf("%s should be disabled at the floor", c.ID)
			}
		case ActionInc, ActionInc10:
			if c.Disabled {
				t.Fatalf("%s should be enabled below the ceil", c.ID)
			}
		}
	}
}

func TestCursorWraparoundFullCycle(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemPresidential
	court := ensureCourt(s)

	court.Cursor = 0
	for i := 0; i < len(courtFields); i++ {
		if _, err := applyCourtOptions(s, Action{ID: ActionNext}); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}
	if court.Cursor != 0 {
		t.Fatalf("a full next-cycle should return to field 0, got %d", court.Cursor)
	}
	if _, err := applyCourtOptions(s, Action{ID: ActionPrev}); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if court.Cursor != len(courtFields)-1 {
		t.Fatalf("prev from 0 should wrap to %d, got %d", len(courtFields)-1, court.Cursor)
	}
}

func TestCourtTensOnlyOnThresholdField(t *testing.T) {
	s := newStepSession(t)
	court := ensureCourt(s)
	court.Cursor = 0
	before := court.TermLength
	if _, err := applyCourtOptions(s, Action{ID: ActionInc10}); err != nil {
		t.Fatalf("inc10 off threshold: %v", err)
	}
	if court.TermLength != before {
		t.Fatalf("tens adjustment must be a no-op off the threshold field")
	}
	court.Cursor = courtThresholdField
	court.Threshold = 50
	if _, err := applyCourtOptions(s, Action{ID: ActionInc10}); err != nil {
		t.Fatalf("inc10 on threshold: %v", err)
	}
	if court.Threshold != 60 {
		t.Fatalf("expected threshold 60, got %d", court.Threshold)
	}
}

func TestEnsureHelpersAreIdempotent(t *testing.T) {
	s := newStepSession(t)
	senate := ensureSenate(s)
	if senate.TermLength != s.Templates.Wizard.TermLength {
		t.Fatalf("senate should default from templates")
	}
	senate.TermLength = 7
	senate.Seats = 99
	again := ensureSenate(s)
	if again != senate || again.TermLength != 7 || again.Seats != 99 {
		t.Fatalf("re-entering a step must not re-default its sub-draft")
	}
	// Render paths call the ensure helpers too; they must be equally safe.
	renderSenateTerms(s)
	if senate.TermLength != 7 {
		t.Fatalf("render must not reset draft values")
	}
}

func TestSenateTermShrinkReclampsSnapInterval(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemParliamentary
	senate := ensureSenate(s)
	senate.TermLength = 30
	p := ensureParliamentary(s)
	p.SnapElectionInterval = 29

	senate.Cursor = 0
	if _, err := applySenateTerms(s, Action{ID: ActionDec}); err != nil {
		t.Fatalf("dec: %v", err)
	}
	if senate.TermLength != 29 {
		t.Fatalf("expected term length 29, got %d", senate.TermLength)
	}
	if p.SnapElectionInterval >= senate.TermLength {
		t.Fatalf("snap interval %d must stay below term length %d", p.SnapElectionInterval, senate.TermLength)
	}
}

func TestParliamentarySnapIntervalStaysBelowTerm(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemParliamentary
	senate := ensureSenate(s)
	senate.TermLength = 10
	p := ensureParliamentary(s)
	p.SnapElectionInterval = 9
	if _, err := applyParliamentaryOptions(s, Action{ID: ActionInc}); err != nil {
		t.Fatalf("inc: %v", err)
	}
	if p.SnapElectionInterval != 9 {
		t.Fatalf("snap interval should clamp at term-1, got %d", p.SnapElectionInterval)
	}
}

func TestRoleLinkageDuplicateAssignmentGuard(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemPresidential
	l := ensureLinkage(s)
	slots := s.Draft.LinkableSlots()

	if _, err := applyRoleLinkage(s, Action{ID: ActionAssign, Value: "r-knights"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	first := slots[0]
	if l.Roles.Assigned[first] != "r-knights" {
		t.Fatalf("expected %s bound to r-knights", first)
	}

	if _, err := applyRoleLinkage(s, Action{ID: ActionNext}); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := applyRoleLinkage(s, Action{ID: ActionAssign, Value: "r-knights"}); err != nil {
		t.Fatalf("duplicate assign: %v", err)
	}
	second := slots[1]
	if _, bound := l.Roles.Assigned[second]; bound {
		t.Fatalf("duplicate external role must not bind a second slot")
	}
	if l.Roles.Assigned[first] != "r-knights" {
		t.Fatalf("first binding must survive the rejected duplicate")
	}

	// Re-assigning the same role to its own slot is allowed (no-op rebind).
	if _, err := applyRoleLinkage(s, Action{ID: ActionPrev}); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if _, err := applyRoleLinkage(s, Action{ID: ActionAssign, Value: "r-knights"}); err != nil {
		t.Fatalf("rebind same slot: %v", err)
	}
	if l.Roles.Assigned[first] != "r-knights" {
		t.Fatalf("rebind to own slot should keep the binding")
	}
}

func TestRoleLinkageRenderDisablesBoundRoles(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemPresidential
	l := ensureLinkage(s)
	slots := s.Draft.LinkableSlots()
	l.Roles.Assigned[slots[0]] = "r-knights"
	l.Roles.Cursor = 1

	prompt := renderRoleLinkage(s)
	for _, c := range prompt.Choices {
		if c.ID != ActionAssign {
			continue
		}
		if c.Value == "everyone" {
			t.Fatalf("the everyone role must not be offered for linkage")
		}
		if c.Value == "r-knights" && !c.Disabled {
			t.Fatalf("a role bound elsewhere must render disabled")
		}
		if c.Value == "r-wizards" && c.Disabled {
			t.Fatalf("an unbound role must render enabled")
		}
	}
}

func TestRoleLinkageApplyRejectsUnlinkableRoles(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemPresidential
	s.Roles = append(s.Roles, platform.RoleInfo{ID: "r-bot", Name: "Bot", Managed: true})
	l := ensureLinkage(s)

	for _, id := range []string{"everyone", "r-bot", "r-missing"} {
		if _, err := applyRoleLinkage(s, Action{ID: ActionAssign, Value: id}); !errors.Is(err, ErrUnknownAction) {
			t.Fatalf("assign %s: expected ErrUnknownAction, got %v", id, err)
		}
	}
	if len(l.Roles.Assigned) != 0 {
		t.Fatalf("rejected assignments must not bind anything: %v", l.Roles.Assigned)
	}
}

func TestChannelLinkageApplyRejectsCategories(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemPresidential
	s.Channels = append(s.Channels, platform.ChannelInfo{ID: "ch-cat", Name: "A Category", Category: true})
	l := ensureLinkage(s)

	if _, err := applyChannelLinkage(s, Action{ID: ActionAssign, Value: "ch-cat"}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("assign category: expected ErrUnknownAction, got %v", err)
	}
	if len(l.Channels.Assigned) != 0 {
		t.Fatalf("rejected assignment must not bind anything: %v", l.Channels.Assigned)
	}
}

func TestChannelLinkageSkipsCategories(t *testing.T) {
	s := newStepSession(t)
	s.Draft.System = govern.SystemPresidential
	s.Channels = append(s.Channels, platform.ChannelInfo{ID: "ch-cat", Name: "A Category", Category: true})
	ensureLinkage(s)
	prompt := renderChannelLinkage(s)
	for _, c := range prompt.Choices {
		if c.ID == ActionAssign && c.Value == "ch-cat" {
			t.Fatalf("categories must not be offered as channel links")
		}
	}
}

func TestDraftValidateRequiresBranchSubDrafts(t *testing.T) {
	d := &Draft{System: govern.SystemPresidential, Presidential: &PresidentialDraft{TermLength: 90}}
	if err := d.Validate(); err == nil {
		t.Fatalf("missing senate should fail validation")
	}
	d.Senate = &SenateDraft{TermLength: 90, Seats: 5, Threshold: 51}
	d.Court = &CourtDraft{TermLength: 180, Seats: 3, Threshold: 67}
	d.Emergency = &EmergencyDraft{AlertThreshold: 75}
	d.Linkage = &LinkageDraft{
		Roles:    SlotLinkage{Assigned: map[govern.RoleSlot]string{}},
		Channels: ChannelLinkage{Assigned: map[string]string{}},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("complete presidential draft should validate: %v", err)
	}
	d.DirectDemocracy = &DirectDemocracyDraft{}
	if err := d.Validate(); err == nil {
		t.Fatalf("two option blocks should fail validation")
	}
}

func TestRoleSlotsPerBranch(t *testing.T) {
	dd := &Draft{System: govern.SystemDirectDemocracy, DirectDemocracy: &DirectDemocracyDraft{AppointJudges: true}}
	slots := dd.RoleSlots()
	for _, slot := range slots {
		switch slot {
		case govern.SlotHeadOfState, govern.SlotSenator, govern.SlotHeadModerator, govern.SlotModerator:
			t.Fatalf("dd without moderators must not provision %s", slot)
		}
	}
	found := false
	for _, slot := range slots {
		if slot == govern.SlotJudge {
			found = true
		}
	}
	if !found {
		t.Fatalf("dd with appointed judges must provision the judge slot")
	}
}
