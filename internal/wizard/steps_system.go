package wizard

import (
	"fmt"

	"github.com/civitasdev/civitas/internal/govern"
)

// registerSystemSteps installs the system-selection branch, the
// variant-specific option steps, the emergency options, and the final
// summary/commit step.
func registerSystemSteps(r *Registry) {
	r.MustRegister(Step{
		ID:       StepSelectSystem,
		Fragment: FragmentSystem,
		Render:   renderSelectSystem,
		Apply:    applySelectSystem,
	})
	r.MustRegister(Step{
		ID:       StepPresidentialOptions,
		Fragment: FragmentSystem,
		Render:   renderPresidentialOptions,
		Apply:    applyPresidentialOptions,
	})
	r.MustRegister(Step{
		ID:       StepParliamentaryOptions,
		Fragment: FragmentSystem,
		Render:   renderParliamentaryOptions,
		Apply:    applyParliamentaryOptions,
	})
	r.MustRegister(Step{
		ID:       StepDDOptions,
		Fragment: FragmentSystem,
		Render:   renderDDOptions,
		Apply:    applyDDOptions,
	})
	r.MustRegister(Step{
		ID:       StepEmergencyOptions,
		Fragment: FragmentSystem,
		Render:   renderEmergencyOptions,
		Apply:    applyEmergencyOptions,
	})
	r.MustRegister(Step{
		ID:       StepConfirm,
		Fragment: FragmentSystem,
		Render:   renderConfirm,
		Apply:    applyConfirm,
	})
}

func renderSelectSystem(s *Session) Prompt {
	return Prompt{
		Title: "Choose a political system",
		Lines: []string{
			"Presidential: elected head of state with a senate and court.",
			"Parliamentary: senate-led government with a prime minister.",
			"Direct democracy: citizens vote by referendum.",
		},
		Choices: []Choice{
			{ID: ActionSelect, Value: string(govern.SystemPresidential), Label: "Presidential"},
			{ID: ActionSelect, Value: string(govern.SystemParliamentary), Label: "Parliamentary"},
			{ID: ActionSelect, Value: string(govern.SystemDirectDemocracy), Label: "Direct Democracy"},
		},
	}
}

func applySelectSystem(s *Session, act Action) (Transition, error) {
	if act.ID != ActionSelect {
		return Transition{}, ErrUnknownAction
	}
	kind := govern.SystemKind(act.Value)
	if !kind.Valid() {
		return Transition{}, ErrUnknownAction
	}
	if s.Draft.System != kind {
		s.Draft.System = kind
		// Exactly one option block may survive a change of system; the
		// dropped branches will lazy-init fresh if re-entered.
		if kind != govern.SystemPresidential {
			s.Draft.Presidential = nil
		}
		if kind != govern.SystemParliamentary {
			s.Draft.Parliamentary = nil
		}
		if kind != govern.SystemDirectDemocracy {
			s.Draft.DirectDemocracy = nil
		}
	}
	switch kind {
	case govern.SystemPresidential:
		return advance(StepPresidentialOptions), nil
	case govern.SystemParliamentary:
		return advance(StepSenateTerms), nil
	default:
		return advance(StepDDOptions), nil
	}
}

var presidentialFields = []string{"Term length (days)", "Term limit"}

func renderPresidentialOptions(s *Session) Prompt {
	p := ensurePresidential(s)
	p.Cursor = wrapCursor(p.Cursor, 0, len(presidentialFields))
	value, floor, ceil := p.TermLength, minTermLength, maxTermLength
	if p.Cursor == 1 {
		value, floor, ceil = p.TermLimit, minTermLimit, maxTermLimit
	}
	return Prompt{
		Title: "Presidential term options",
		Lines: []string{
			cursorLine(p.Cursor == 0, presidentialFields[0], counterValue(p.TermLength, "")),
			cursorLine(p.Cursor == 1, presidentialFields[1], counterValue(p.TermLimit, "unlimited")),
		},
		Choices: counterChoices(value, floor, ceil, false, true),
	}
}

func applyPresidentialOptions(s *Session, act Action) (Transition, error) {
	p := ensurePresidential(s)
	switch act.ID {
	case ActionNext, ActionPrev:
		p.Cursor = wrapCursor(p.Cursor, cursorDelta(act.ID), len(presidentialFields))
		return stay(), nil
	case ActionInc, ActionDec:
		delta := stepDelta(act.ID)
		if p.Cursor == 0 {
			p.TermLength = clampAdd(p.TermLength, delta, minTermLength, maxTermLength)
		} else {
			p.TermLimit = clampAdd(p.TermLimit, delta, minTermLimit, maxTermLimit)
		}
		return stay(), nil
	case ActionConfirm:
		return advance(StepSenateTerms), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

func renderParliamentaryOptions(s *Session) Prompt {
	senate := ensureSenate(s)
	p := ensureParliamentary(s)
	ceil := snapCeil(senate)
	return Prompt{
		Title: "Parliamentary options",
		Lines: []string{
			fmt.Sprintf("Snap-election interval (days): %d", p.SnapElectionInterval),
			fmt.Sprintf("Must stay below the senate term length (%d days).", senate.TermLength),
		},
		Choices: counterChoices(p.SnapElectionInterval, minSnapInterval, ceil, false, false),
	}
}

func applyParliamentaryOptions(s *Session, act Action) (Transition, error) {
	senate := ensureSenate(s)
	p := ensureParliamentary(s)
	switch act.ID {
	case ActionInc, ActionDec:
		p.SnapElectionInterval = clampAdd(p.SnapElectionInterval, stepDelta(act.ID), minSnapInterval, snapCeil(senate))
		return stay(), nil
	case ActionConfirm:
		return advance(StepCourtOptions), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

// snapCeil clamps the snap-election interval strictly below the senate term
// length, with a floor so a one-day senate term still leaves a valid value.
func snapCeil(senate *SenateDraft) int {
	ceil := senate.TermLength - 1
	if ceil < minSnapInterval {
		ceil = minSnapInterval
	}
	return ceil
}

func renderDDOptions(s *Session) Prompt {
	dd := ensureDirectDemocracy(s)
	return Prompt{
		Title: "Direct democracy options",
		Lines: []string{
			fmt.Sprintf("Appoint moderators: %s", onOff(dd.AppointModerators)),
			fmt.Sprintf("Appoint judges: %s", onOff(dd.AppointJudges)),
		},
		Choices: []Choice{
			{ID: ActionToggle, Value: "moderators", Label: "Toggle moderators"},
			{ID: ActionToggle, Value: "judges", Label: "Toggle judges"},
			{ID: ActionConfirm, Label: "Continue"},
		},
	}
}

func applyDDOptions(s *Session, act Action) (Transition, error) {
	dd := ensureDirectDemocracy(s)
	switch act.ID {
	case ActionToggle:
		switch act.Value {
		case "moderators":
			dd.AppointModerators = !dd.AppointModerators
		case "judges":
			dd.AppointJudges = !dd.AppointJudges
		default:
			return Transition{}, ErrUnknownAction
		}
		return stay(), nil
	case ActionConfirm:
		return advance(StepReferendumThresholds), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

func renderEmergencyOptions(s *Session) Prompt {
	e := ensureEmergency(s)
	choices := []Choice{
		{ID: ActionToggle, Value: "martial-law", Label: "Toggle martial law"},
		{ID: ActionToggle, Value: "snap-referendum", Label: "Toggle snap referendum"},
	}
	choices = append(choices, counterChoices(e.AlertThreshold, minPercent, maxPercent, true, false)...)
	return Prompt{
		Title: "Emergency options",
		Lines: []string{
			fmt.Sprintf("Martial law: %s", onOff(e.MartialLaw)),
			fmt.Sprintf("Snap referendum: %s", onOff(e.SnapReferendum)),
			fmt.Sprintf("Alert threshold: %d%%", e.AlertThreshold),
		},
		Choices: choices,
	}
}

func applyEmergencyOptions(s *Session, act Action) (Transition, error) {
	e := ensureEmergency(s)
	switch act.ID {
	case ActionToggle:
		switch act.Value {
		case "martial-law":
			e.MartialLaw = !e.MartialLaw
		case "snap-referendum":
			e.SnapReferendum = !e.SnapReferendum
		default:
			return Transition{}, ErrUnknownAction
		}
		return stay(), nil
	case ActionInc, ActionDec, ActionInc10, ActionDec10:
		e.AlertThreshold = clampAdd(e.AlertThreshold, stepDelta(act.ID), minPercent, maxPercent)
		return stay(), nil
	case ActionConfirm:
		return advance(StepRoleLinkage), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

func renderConfirm(s *Session) Prompt {
	d := s.Draft
	lines := []string{fmt.Sprintf("System: %s", d.System)}
	switch {
	case d.Presidential != nil:
		lines = append(lines, fmt.Sprintf("President: %d-day terms, limit %s",
			d.Presidential.TermLength, counterValue(d.Presidential.TermLimit, "unlimited")))
	case d.Parliamentary != nil:
		lines = append(lines, fmt.Sprintf("Snap elections every %d days", d.Parliamentary.SnapElectionInterval))
	case d.DirectDemocracy != nil:
		lines = append(lines, fmt.Sprintf("Moderators: %s, judges: %s",
			onOff(d.DirectDemocracy.AppointModerators), onOff(d.DirectDemocracy.AppointJudges)))
	}
	if d.Senate != nil {
		lines = append(lines, fmt.Sprintf("Senate: %d seats, %d%% threshold, %d-day terms",
			d.Senate.Seats, d.Senate.Threshold, d.Senate.TermLength))
	}
	if d.Referendum != nil {
		lines = append(lines, fmt.Sprintf("Referendum: %d%% to pass, %d%% quorum",
			d.Referendum.Threshold, d.Referendum.Quorum))
	}
	if d.Court != nil {
		lines = append(lines, fmt.Sprintf("Court: %d seats, %d%% threshold", d.Court.Seats, d.Court.Threshold))
	}
	if d.Linkage != nil {
		lines = append(lines, fmt.Sprintf("Linked roles: %d, linked channels: %d",
			len(d.Linkage.Roles.Assigned), len(d.Linkage.Channels.Assigned)))
	}
	return Prompt{
		Title: "Review and confirm",
		Lines: lines,
		Choices: []Choice{
			{ID: ActionConfirm, Label: "Create configuration"},
			{ID: ActionEdit, Value: string(FragmentSystem), Label: "Edit system"},
			{ID: ActionEdit, Value: string(FragmentLegislature), Label: "Edit legislature"},
			{ID: ActionEdit, Value: string(FragmentJudicial), Label: "Edit judiciary", Disabled: !s.Draft.AppointsJudges()},
			{ID: ActionEdit, Value: string(FragmentDiscord), Label: "Edit role/channel links"},
		},
	}
}

func applyConfirm(s *Session, act Action) (Transition, error) {
	switch act.ID {
	case ActionConfirm:
		return done(), nil
	case ActionEdit:
		entry, ok := fragmentEntry(s.Draft, Fragment(act.Value))
		if !ok {
			return Transition{}, ErrUnknownAction
		}
		if entry == "" {
			return stay(), nil
		}
		return jump(entry), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

// fragmentEntry resolves a cross-group jump target. An empty StepID with
// ok=true means the fragment has no steps for this draft.
func fragmentEntry(d *Draft, f Fragment) (StepID, bool) {
	switch f {
	case FragmentSystem:
		return StepSelectSystem, true
	case FragmentLegislature:
		if d.HasSenate() {
			return StepSenateTerms, true
		}
		return StepReferendumThresholds, true
	case FragmentJudicial:
		if d.AppointsJudges() {
			return StepCourtOptions, true
		}
		return "", true
	case FragmentDiscord:
		return StepRoleLinkage, true
	default:
		return "", false
	}
}

// Shared render/apply helpers.

func cursorDelta(id string) int {
	if id == ActionPrev {
		return -1
	}
	return 1
}

func stepDelta(id string) int {
	switch id {
	case ActionInc:
		return 1
	case ActionDec:
		return -1
	case ActionInc10:
		return 10
	case ActionDec10:
		return -10
	}
	return 0
}

// counterChoices renders increment/decrement affordances, disabling any
// adjustment that the clamp would turn into a no-op. multiField adds the
// cursor controls for steps that multiplex several values.
func counterChoices(value, floor, ceil int, tens, multiField bool) []Choice {
	choices := []Choice{
		{ID: ActionDec, Label: "-1", Disabled: value <= floor},
		{ID: ActionInc, Label: "+1", Disabled: value >= ceil},
	}
	if tens {
		choices = append(choices,
			Choice{ID: ActionDec10, Label: "-10", Disabled: value <= floor},
			Choice{ID: ActionInc10, Label: "+10", Disabled: value >= ceil},
		)
	}
	if multiField {
		choices = append(choices,
			Choice{ID: ActionPrev, Label: "Previous field"},
			Choice{ID: ActionNext, Label: "Next field"},
		)
	}
	return append(choices, Choice{ID: ActionConfirm, Label: "Continue"})
}

func cursorLine(active bool, label, value string) string {
	marker := "  "
	if active {
		marker = "> "
	}
	return fmt.Sprintf("%s%s: %s", marker, label, value)
}

func counterValue(v int, zeroWord string) string {
	if v == 0 && zeroWord != "" {
		return zeroWord
	}
	return fmt.Sprintf("%d", v)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
