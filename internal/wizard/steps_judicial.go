package wizard

import "fmt"

func registerJudicialSteps(r *Registry) {
	r.MustRegister(Step{
		ID:       StepCourtOptions,
		Fragment: FragmentJudicial,
		Render:   renderCourtOptions,
		Apply:    applyCourtOptions,
	})
}

var courtFields = []string{"Term length (days)", "Term limit", "Seats", "Conviction threshold (%)"}

const courtThresholdField = 3

func renderCourtOptions(s *Session) Prompt {
	court := ensureCourt(s)
	court.Cursor = wrapCursor(court.Cursor, 0, len(courtFields))
	var value, floor, ceil int
	switch court.Cursor {
	case 0:
		value, floor, ceil = court.TermLength, minTermLength, maxTermLength
	case 1:
		value, floor, ceil = court.TermLimit, minTermLimit, maxTermLimit
	case 2:
		value, floor, ceil = court.Seats, minSeats, maxSeats
	default:
		value, floor, ceil = court.Threshold, minPercent, maxPercent
	}
	return Prompt{
		Title: "Court options",
		Lines: []string{
			cursorLine(court.Cursor == 0, courtFields[0], counterValue(court.TermLength, "")),
			cursorLine(court.Cursor == 1, courtFields[1], counterValue(court.TermLimit, "unlimited")),
			cursorLine(court.Cursor == 2, courtFields[2], fmt.Sprintf("%d", court.Seats)),
			cursorLine(court.Cursor == courtThresholdField, courtFields[3], fmt.Sprintf("%d", court.Threshold)),
		},
		Choices: counterChoices(value, floor, ceil, court.Cursor == courtThresholdField, true),
	}
}

func applyCourtOptions(s *Session, act Action) (Transition, error) {
	court := ensureCourt(s)
	switch act.ID {
	case ActionNext, ActionPrev:
		court.Cursor = wrapCursor(court.Cursor, cursorDelta(act.ID), len(courtFields))
		return stay(), nil
	case ActionInc, ActionDec:
		delta := stepDelta(act.ID)
		switch court.Cursor {
		case 0:
			court.TermLength = clampAdd(court.TermLength, delta, minTermLength, maxTermLength)
		case 1:
			court.TermLimit = clampAdd(court.TermLimit, delta, minTermLimit, maxTermLimit)
		case 2:
			court.Seats = clampAdd(court.Seats, delta, minSeats, maxSeats)
		default:
			court.Threshold = clampAdd(court.Threshold, delta, minPercent, maxPercent)
		}
		return stay(), nil
	case ActionInc10, ActionDec10:
		// The tens controls are only offered on the threshold sub-view.
		if court.Cursor != courtThresholdField {
			return stay(), nil
		}
		court.Threshold = clampAdd(court.Threshold, stepDelta(act.ID), minPercent, maxPercent)
		return stay(), nil
	case ActionConfirm:
		return advance(StepEmergencyOptions), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}
