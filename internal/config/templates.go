package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/civitasdev/civitas/internal/govern"
)

//go:embed defaults.yaml
var defaultTemplatesYAML []byte

// EmergencyDefaults seeds the emergency-options draft.
type EmergencyDefaults struct {
	MartialLaw     bool `yaml:"martial_law"`
	SnapReferendum bool `yaml:"snap_referendum"`
	AlertThreshold int  `yaml:"alert_threshold"`
}

// WizardDefaults seeds every numeric sub-draft the wizard initializes lazily.
type WizardDefaults struct {
	TermLength           int               `yaml:"term_length"`
	TermLimit            int               `yaml:"term_limit"`
	Seats                int               `yaml:"seats"`
	ScalableSeats        bool              `yaml:"scalable_seats"`
	Threshold            int               `yaml:"threshold"`
	SnapElectionInterval int               `yaml:"snap_election_interval"`
	ReferendumThreshold  int               `yaml:"referendum_threshold"`
	ReferendumQuorum     int               `yaml:"referendum_quorum"`
	CourtTermLength      int               `yaml:"court_term_length"`
	CourtTermLimit       int               `yaml:"court_term_limit"`
	CourtSeats           int               `yaml:"court_seats"`
	CourtThreshold       int               `yaml:"court_threshold"`
	Emergency            EmergencyDefaults `yaml:"emergency"`
}

// RoleTemplate declares one provisionable role slot.
type RoleTemplate struct {
	Slot govern.RoleSlot `yaml:"slot"`
	Name string          `yaml:"name"`
	// ParliamentaryName overrides Name when the system is parliamentary
	// (President vs Prime Minister).
	ParliamentaryName string              `yaml:"parliamentary_name,omitempty"`
	Color             int                 `yaml:"color"`
	Capabilities      []govern.Capability `yaml:"capabilities"`
}

// ChannelTemplate declares one provisionable channel within a category.
type ChannelTemplate struct {
	Name string `yaml:"name"`
	// DDName overrides Name under direct democracy.
	DDName             string                    `yaml:"dd_name,omitempty"`
	Kind               govern.ChannelKind        `yaml:"kind"`
	Log                govern.LogDesignation     `yaml:"log,omitempty"`
	Chamber            govern.ChamberDesignation `yaml:"chamber,omitempty"`
	RequiresModerators bool                      `yaml:"requires_moderators,omitempty"`
	View               []govern.RoleSlot         `yaml:"view,omitempty"`
	Send               []govern.RoleSlot         `yaml:"send,omitempty"`
	Interact           []govern.RoleSlot         `yaml:"interact,omitempty"`
	Moderate           []govern.RoleSlot         `yaml:"moderate,omitempty"`
	Manage             []govern.RoleSlot         `yaml:"manage,omitempty"`
}

// CategoryTemplate declares one channel category.
type CategoryTemplate struct {
	Kind     govern.CategoryKind `yaml:"kind"`
	Name     string              `yaml:"name"`
	Channels []ChannelTemplate   `yaml:"channels"`
}

// Templates is the full static blueprint set. Treat loaded instances as
// read-only; call Clone before handing one to a wizard session.
type Templates struct {
	Version    int                `yaml:"version"`
	Wizard     WizardDefaults     `yaml:"wizard"`
	Roles      []RoleTemplate     `yaml:"roles"`
	Categories []CategoryTemplate `yaml:"categories"`
}

// LoadTemplates parses the embedded default blueprint set.
func LoadTemplates() (*Templates, error) {
	return ParseTemplates(defaultTemplatesYAML)
}

// ParseTemplates decodes and validates a blueprint document.
func ParseTemplates(data []byte) (*Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("config: parse templates: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Templates) validate() error {
	if len(t.Roles) == 0 {
		return fmt.Errorf("config: templates declare no roles")
	}
	if len(t.Categories) == 0 {
		return fmt.Errorf("config: templates declare no categories")
	}
	seen := map[govern.RoleSlot]bool{}
	for _, role := range t.Roles {
		if role.Slot == "" || role.Name == "" {
			return fmt.Errorf("config: role template missing slot or name")
		}
		if seen[role.Slot] {
			return fmt.Errorf("config: duplicate role template for slot %s", role.Slot)
		}
		seen[role.Slot] = true
	}
	legislature, court := false, false
	for _, cat := range t.Categories {
		for _, ch := range cat.Channels {
			switch ch.Chamber {
			case govern.ChamberChannelLegislature:
				legislature = true
			case govern.ChamberChannelCourt:
				court = true
			}
		}
	}
	if !legislature || !court {
		return fmt.Errorf("config: templates must designate legislature and court channels")
	}
	return nil
}

// Role returns the template for a slot, if declared.
func (t *Templates) Role(slot govern.RoleSlot) (RoleTemplate, bool) {
	for _, role := range t.Roles {
		if role.Slot == slot {
			return role, true
		}
	}
	return RoleTemplate{}, false
}

// Clone deep-copies the blueprint set so a session can never mutate the
// shared process-wide instance.
func (t *Templates) Clone() *Templates {
	if t == nil {
		return nil
	}
	out := &Templates{Version: t.Version, Wizard: t.Wizard}
	out.Roles = make([]RoleTemplate, len(t.Roles))
	for i, role := range t.Roles {
		role.Capabilities = cloneSlice(role.Capabilities)
		out.Roles[i] = role
	}
	out.Categories = make([]CategoryTemplate, len(t.Categories))
	for i, cat := range t.Categories {
		channels := make([]ChannelTemplate, len(cat.Channels))
		for j, ch := range cat.Channels {
			ch.View = cloneSlice(ch.View)
			ch.Send = cloneSlice(ch.Send)
			ch.Interact = cloneSlice(ch.Interact)
			ch.Moderate = cloneSlice(ch.Moderate)
			ch.Manage = cloneSlice(ch.Manage)
			channels[j] = ch
		}
		cat.Channels = channels
		out.Categories[i] = cat
	}
	return out
}

func cloneSlice[T any](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	copy(out, values)
	return out
}
