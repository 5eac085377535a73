package wizard

import (
	"fmt"
	"strings"

	"github.com/civitasdev/civitas/internal/govern"
)

// registerDiscordSteps installs the two-stage linkage sub-wizard: existing
// platform roles are bound to internal role slots, then existing channels
// to internal channel slots. Unbound slots are created fresh at commit.
func registerDiscordSteps(r *Registry) {
	r.MustRegister(Step{
		ID:       StepRoleLinkage,
		Fragment: FragmentDiscord,
		Render:   renderRoleLinkage,
		Apply:    applyRoleLinkage,
	})
	r.MustRegister(Step{
		ID:       StepChannelLinkage,
		Fragment: FragmentDiscord,
		Render:   renderChannelLinkage,
		Apply:    applyChannelLinkage,
	})
}

func renderRoleLinkage(s *Session) Prompt {
	l := ensureLinkage(s)
	slots := s.Draft.LinkableSlots()
	l.Roles.Cursor = wrapCursor(l.Roles.Cursor, 0, len(slots))
	active := slots[l.Roles.Cursor]

	lines := make([]string, 0, len(slots))
	for i, slot := range slots {
		value := "create new role"
		if ext, ok := l.Roles.Assigned[slot]; ok {
			value = "-> " + roleName(s, ext)
		}
		lines = append(lines, cursorLine(i == l.Roles.Cursor, string(slot), value))
	}

	choices := []Choice{
		{ID: ActionPrev, Label: "Previous slot"},
		{ID: ActionNext, Label: "Next slot"},
		{ID: ActionClear, Label: "Unlink", Disabled: l.Roles.Assigned[active] == ""},
	}
	for _, role := range s.Roles {
		if role.Managed || role.ID == s.Community.EveryoneRoleID {
			continue
		}
		boundTo, bound := boundRoleSlot(l, role.ID)
		choices = append(choices, Choice{
			ID:       ActionAssign,
			Value:    role.ID,
			Label:    "Use " + role.Name,
			Disabled: bound && boundTo != active,
		})
	}
	choices = append(choices, Choice{ID: ActionConfirm, Label: "Continue to channels"})
	return Prompt{Title: "Link existing roles", Lines: lines, Choices: choices}
}

func applyRoleLinkage(s *Session, act Action) (Transition, error) {
	l := ensureLinkage(s)
	slots := s.Draft.LinkableSlots()
	l.Roles.Cursor = wrapCursor(l.Roles.Cursor, 0, len(slots))
	active := slots[l.Roles.Cursor]
	switch act.ID {
	case ActionNext, ActionPrev:
		l.Roles.Cursor = wrapCursor(l.Roles.Cursor, cursorDelta(act.ID), len(slots))
		return stay(), nil
	case ActionAssign:
		if !linkableRole(s, act.Value) {
			return Transition{}, ErrUnknownAction
		}
		// Duplicate guard: the same external role cannot serve two
		// slots. The first binding wins; the rebinding attempt is a
		// silent no-op, matching the disabled affordance.
		if boundTo, bound := boundRoleSlot(l, act.Value); bound && boundTo != active {
			return stay(), nil
		}
		l.Roles.Assigned[active] = act.Value
		return stay(), nil
	case ActionClear:
		delete(l.Roles.Assigned, active)
		return stay(), nil
	case ActionConfirm:
		return advance(StepChannelLinkage), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

func renderChannelLinkage(s *Session) Prompt {
	l := ensureLinkage(s)
	keys := s.Draft.ChannelKeys(s.Templates)
	l.Channels.Cursor = wrapCursor(l.Channels.Cursor, 0, len(keys))
	active := keys[l.Channels.Cursor]

	lines := make([]string, 0, len(keys))
	for i, key := range keys {
		value := "create new channel"
		if ext, ok := l.Channels.Assigned[key]; ok {
			value = "-> #" + channelName(s, ext)
		}
		lines = append(lines, cursorLine(i == l.Channels.Cursor, key, value))
	}

	choices := []Choice{
		{ID: ActionPrev, Label: "Previous channel"},
		{ID: ActionNext, Label: "Next channel"},
		{ID: ActionClear, Label: "Unlink", Disabled: l.Channels.Assigned[active] == ""},
	}
	for _, ch := range s.Channels {
		if ch.Category {
			continue
		}
		boundTo, bound := boundChannelKey(l, ch.ID)
		choices = append(choices, Choice{
			ID:       ActionAssign,
			Value:    ch.ID,
			Label:    "Use #" + ch.Name,
			Disabled: bound && boundTo != active,
		})
	}
	choices = append(choices, Choice{ID: ActionConfirm, Label: "Review configuration"})
	return Prompt{Title: "Link existing channels", Lines: lines, Choices: choices}
}

func applyChannelLinkage(s *Session, act Action) (Transition, error) {
	l := ensureLinkage(s)
	keys := s.Draft.ChannelKeys(s.Templates)
	l.Channels.Cursor = wrapCursor(l.Channels.Cursor, 0, len(keys))
	active := keys[l.Channels.Cursor]
	switch act.ID {
	case ActionNext, ActionPrev:
		l.Channels.Cursor = wrapCursor(l.Channels.Cursor, cursorDelta(act.ID), len(keys))
		return stay(), nil
	case ActionAssign:
		if !linkableChannel(s, act.Value) {
			return Transition{}, ErrUnknownAction
		}
		if boundTo, bound := boundChannelKey(l, act.Value); bound && boundTo != active {
			return stay(), nil
		}
		l.Channels.Assigned[active] = act.Value
		return stay(), nil
	case ActionClear:
		delete(l.Channels.Assigned, active)
		return stay(), nil
	case ActionConfirm:
		return advance(StepConfirm), nil
	default:
		return Transition{}, ErrUnknownAction
	}
}

func boundRoleSlot(l *LinkageDraft, externalID string) (govern.RoleSlot, bool) {
	for slot, ext := range l.Roles.Assigned {
		if ext == externalID {
			return slot, true
		}
	}
	return "", false
}

func boundChannelKey(l *LinkageDraft, externalID string) (string, bool) {
	for key, ext := range l.Channels.Assigned {
		if ext == externalID {
			return key, true
		}
	}
	return "", false
}

// linkableRole enforces the same filter the render layer applies: managed
// roles and the platform everyone role are never assignable, whatever
// action id a front end emits.
func linkableRole(s *Session, id string) bool {
	for _, role := range s.Roles {
		if role.ID == id {
			return !role.Managed && role.ID != s.Community.EveryoneRoleID
		}
	}
	return false
}

// linkableChannel rejects categories the same way the render layer does.
func linkableChannel(s *Session, id string) bool {
	for _, ch := range s.Channels {
		if ch.ID == id {
			return !ch.Category
		}
	}
	return false
}

func roleName(s *Session, id string) string {
	for _, role := range s.Roles {
		if role.ID == id {
			return role.Name
		}
	}
	return id
}

func channelName(s *Session, id string) string {
	for _, ch := range s.Channels {
		if ch.ID == id {
			return strings.TrimPrefix(ch.Name, "#")
		}
	}
	return fmt.Sprintf("unknown (%s)", id)
}
