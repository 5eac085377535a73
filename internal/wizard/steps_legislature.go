package wizard

import (
	"fmt"

	"github.com/civitasdev/civitas/internal/govern"
)

func registerLegislatureSteps(r *Registry) {
	r.MustRegister(Step{
		ID:       StepSenateTerms,
		Fragment: FragmentLegislature,
		Render:   renderSenateTerms,
		Apply:    applySenateTerms,
	})
	r.MustRegister(Step{
		ID:       StepSenateSeats,
		Fragment: FragmentLegislature,
		Render:   renderSenateSeats,
		Apply:    applySenateSeats,
	})
	r.MustRegister(Step{
		ID:       StepSenateThreshold,
		Fragment: FragmentLegislature,
		Render:   renderSenateThreshold,
		Apply:    applySenateThreshold,
	})
	r.MustRegister(Step{
		ID:       StepReferendumThresholds,
		Fragment: FragmentLegislature,
		Render:   renderReferendumThresholds,
		Apply:    applyReferendumThresholds,
	})
}

var senateTermFields = []string{"Term length (days)", "Term limit"}

func renderSenateTerms(s *Session) Prompt {
	senate := ensureSenate(s)
	senate.Cursor = wrapCursor(senate.Cursor, 0, len(senateTermFields))
	value, floor, ceil := senate.TermLength, minTermLength, maxTermLength
	if senate.Cursor == 1 {
		value, floor, ceil = senate.TermLimit, minTermLimit, maxTermLimit
	}
	return Prompt{
		Title: "Senate terms",
		Lines: []string{
			cursorLine(senate.Cursor == 0, senateTermFields[0], counterValue(senate.TermLength, "")),
			cursorLine(senate.Cursor == 1, senateTermFields[1], counterValue(senate.TermLimit, "unlimited")),
		},
		Choices: counterChoices(value, floor, ceil, false, true),
	}
}

func applySenateTerms(s *Session, act Action) (Transition, error) {
	senate := ensureSenate(s)
	switch act.ID {
	case ActionNext, ActionPrev:
		senate.Cursor = wrapCursor(senate.Cursor, cursorDelta(act.ID), len(senateTermFields))
		return stay(), nil
	case ActionInc, ActionDec:
		delta := stepDelta(act.ID)
		if senate.Cursor == 0 {
			senate.TermLength = clampAdd(senate.TermLength, delta, minTermLength, maxTermLength)
			// Keep the parliamentary snap interval inside its clamp if
			// the senate term just shrank underneath it.
			if p := s.Draft.Parliamentary; p != nil && p.SnapElectionInterval > snapCeil(senate) {
				p.SnapElectionInterval = snapCeil(senate)
			}
		} else {
			senate.TermLimit = clampAdd(senate.TermLimit, delta, minTermLimit, maxTermLimit)
		}
		return stay(), nil
	case ActionConfirm:
		return advance(StepSenateSeats), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

func renderSenateSeats(s *Session) Prompt {
	senate := ensureSenate(s)
	choices := []Choice{{ID: ActionToggle, Value: "scalable", Label: "Toggle scalable seats"}}
	choices = append(choices, counterChoices(senate.Seats, minSeats, maxSeats, false, false)...)
	return Prompt{
		Title: "Senate seats",
		Lines: []string{
			fmt.Sprintf("Seats: %d", senate.Seats),
			fmt.Sprintf("Scale with population: %s", onOff(senate.ScalableSeats)),
		},
		Choices: choices,
	}
}

func applySenateSeats(s *Session, act Action) (Transition, error) {
	senate := ensureSenate(s)
	switch act.ID {
	case ActionToggle:
		if act.Value != "scalable" {
			return Transition{}, ErrUnknownAction
		}
		senate.ScalableSeats = !senate.ScalableSeats
		return stay(), nil
	case ActionInc, ActionDec:
		senate.Seats = clampAdd(senate.Seats, stepDelta(act.ID), minSeats, maxSeats)
		return stay(), nil
	case ActionConfirm:
		return advance(StepSenateThreshold), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

func renderSenateThreshold(s *Session) Prompt {
	senate := ensureSenate(s)
	return Prompt{
		Title:   "Senate passing threshold",
		Lines:   []string{fmt.Sprintf("A bill passes at %d%% approval.", senate.Threshold)},
		Choices: counterChoices(senate.Threshold, minPercent, maxPercent, true, false),
	}
}

func applySenateThreshold(s *Session, act Action) (Transition, error) {
	senate := ensureSenate(s)
	switch act.ID {
	case ActionInc, ActionDec, ActionInc10, ActionDec10:
		senate.Threshold = clampAdd(senate.Threshold, stepDelta(act.ID), minPercent, maxPercent)
		return stay(), nil
	case ActionConfirm:
		if s.Draft.System == govern.SystemParliamentary {
			return advance(StepParliamentaryOptions), nil
		}
		return advance(StepCourtOptions), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

var referendumFields = []string{"Pass threshold (%)", "Quorum (%)"}

func renderReferendumThresholds(s *Session) Prompt {
	ref := ensureReferendum(s)
	ref.Cursor = wrapCursor(ref.Cursor, 0, len(referendumFields))
	value := ref.Threshold
	if ref.Cursor == 1 {
		value = ref.Quorum
	}
	return Prompt{
		Title: "Referendum thresholds",
		Lines: []string{
			cursorLine(ref.Cursor == 0, referendumFields[0], fmt.Sprintf("%d", ref.Threshold)),
			cursorLine(ref.Cursor == 1, referendumFields[1], fmt.Sprintf("%d", ref.Quorum)),
		},
		Choices: counterChoices(value, minPercent, maxPercent, true, true),
	}
}

func applyReferendumThresholds(s *Session, act Action) (Transition, error) {
	ref := ensureReferendum(s)
	switch act.ID {
	case ActionNext, ActionPrev:
		ref.Cursor = wrapCursor(ref.Cursor, cursorDelta(act.ID), len(referendumFields))
		return stay(), nil
	case ActionInc, ActionDec, ActionInc10, ActionDec10:
		delta := stepDelta(act.ID)
		if ref.Cursor == 0 {
			ref.Threshold = clampAdd(ref.Threshold, delta, minPercent, maxPercent)
		} else {
			ref.Quorum = clampAdd(ref.Quorum, delta, minPercent, maxPercent)
		}
		return stay(), nil
	case ActionConfirm:
		if s.Draft.AppointsJudges() {
			return advance(StepCourtOptions), nil
		}
		return advance(StepEmergencyOptions), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}
