// Package govern declares the persisted entity graph for a configured
// community: roles, channel categories, chambers, the political system, and
// the root guild record that owns all of them. The deep class hierarchies of
// the original design (Chamber -> Legislature -> Senate/Referendum, and so
// on) are flattened into closed tagged variants with a discriminant field.
package govern

import "time"

// SystemKind discriminates the top-level governance variant.
type SystemKind string

const (
	SystemPresidential    SystemKind = "presidential"
	SystemParliamentary   SystemKind = "parliamentary"
	SystemDirectDemocracy SystemKind = "direct-democracy"
)

// Valid reports whether the kind is one of the three governance variants.
func (k SystemKind) Valid() bool {
	switch k {
	case SystemPresidential, SystemParliamentary, SystemDirectDemocracy:
		return true
	}
	return false
}

// RoleSlot names a position in the RoleHolder. Every slot maps to at most one
// external platform role.
type RoleSlot string

const (
	// SlotVoxPopuli is the sentinel slot bound to the platform "everyone"
	// role. Inside a channel capability list it means "nobody but the
	// system". Its external role is never created or deleted by us.
	SlotVoxPopuli     RoleSlot = "vox-populi"
	SlotHeadOfState   RoleSlot = "head-of-state"
	SlotHeadModerator RoleSlot = "head-moderator"
	SlotModerator     RoleSlot = "moderator"
	SlotSenator       RoleSlot = "senator"
	SlotJudge         RoleSlot = "judge"
	SlotCitizen       RoleSlot = "citizen"
	SlotUndocumented  RoleSlot = "undocumented"
)

// RequiredSlots are present in every configuration regardless of branch.
var RequiredSlots = []RoleSlot{SlotVoxPopuli, SlotCitizen, SlotUndocumented}

// Capability is an opaque permission the platform adapter translates into
// whatever bitset the host platform uses.
type Capability string

const (
	CapView     Capability = "view"
	CapSend     Capability = "send"
	CapInteract Capability = "interact"
	CapModerate Capability = "moderate"
	CapManage   Capability = "manage"
)

// ChamberKind discriminates legislative and judicial bodies.
type ChamberKind string

const (
	ChamberSenate     ChamberKind = "senate"
	ChamberReferendum ChamberKind = "referendum"
	ChamberCourt      ChamberKind = "court"
)

// CategoryKind discriminates the four provisioned channel categories.
type CategoryKind string

const (
	CategoryExecutive   CategoryKind = "executive"
	CategoryLegislative CategoryKind = "legislative"
	CategoryJudicial    CategoryKind = "judicial"
	CategoryElectoral   CategoryKind = "electoral"
)

// ChannelKind discriminates channel documents.
type ChannelKind string

const (
	ChannelPolitical ChannelKind = "political"
	ChannelLog       ChannelKind = "log"
	ChannelTicket    ChannelKind = "ticket"
)

// LogDesignation marks which log stream a log channel carries.
type LogDesignation string

const (
	LogNone   LogDesignation = ""
	LogServer LogDesignation = "server-log"
	LogChat   LogDesignation = "chat-log"
)

// ChamberDesignation marks the structurally required chamber channels.
type ChamberDesignation string

const (
	ChamberChannelNone        ChamberDesignation = ""
	ChamberChannelLegislature ChamberDesignation = "legislature"
	ChamberChannelCourt       ChamberDesignation = "court"
)

// DocKind identifies a document collection in the store.
type DocKind string

const (
	KindRole       DocKind = "role"
	KindRoleHolder DocKind = "role-holder"
	KindCategory   DocKind = "category"
	KindChannel    DocKind = "channel"
	KindChamber    DocKind = "chamber"
	KindSystem     DocKind = "political-system"
	KindLogHolder  DocKind = "log-holder"
	KindGuild      DocKind = "guild"
	KindEvent      DocKind = "event"
)

// Document is implemented by every persisted entity.
type Document interface {
	DocID() string
	DocKind() DocKind
}

// Role links a role slot to an external platform role.
type Role struct {
	ID           string       `json:"id"`
	Slot         RoleSlot     `json:"slot"`
	Name         string       `json:"name"`
	Color        int          `json:"color,omitempty"`
	Capabilities []Capability `json:"capabilities,omitempty"`
	// ExternalID names the platform role. It is a weak reference: the
	// platform resource is unlinked or deleted independently of this
	// document.
	ExternalID string `json:"external_id"`
}

func (r Role) DocID() string    { return r.ID }
func (r Role) DocKind() DocKind { return KindRole }

// RoleHolder maps each populated slot to its role document.
type RoleHolder struct {
	ID    string              `json:"id"`
	Slots map[RoleSlot]string `json:"slots"`
}

func (h RoleHolder) DocID() string    { return h.ID }
func (h RoleHolder) DocKind() DocKind { return KindRoleHolder }

// Has reports whether the slot is populated.
func (h RoleHolder) Has(slot RoleSlot) bool {
	_, ok := h.Slots[slot]
	return ok
}

// Channel is a provisioned text channel. Capability lists name role slots;
// a list containing only SlotVoxPopuli denies the capability to everyone.
type Channel struct {
	ID         string             `json:"id"`
	Kind       ChannelKind        `json:"kind"`
	Name       string             `json:"name"`
	ExternalID string             `json:"external_id"`
	Log        LogDesignation     `json:"log,omitempty"`
	Chamber    ChamberDesignation `json:"chamber,omitempty"`
	View       []RoleSlot         `json:"view,omitempty"`
	Send       []RoleSlot         `json:"send,omitempty"`
	Interact   []RoleSlot         `json:"interact,omitempty"`
	Moderate   []RoleSlot         `json:"moderate,omitempty"`
	Manage     []RoleSlot         `json:"manage,omitempty"`
}

func (c Channel) DocID() string    { return c.ID }
func (c Channel) DocKind() DocKind { return KindChannel }

// Category groups ordered channel documents under one platform category.
type Category struct {
	ID         string       `json:"id"`
	Kind       CategoryKind `json:"kind"`
	Name       string       `json:"name"`
	ExternalID string       `json:"external_id"`
	Channels   []string     `json:"channels"`
}

func (c Category) DocID() string    { return c.ID }
func (c Category) DocKind() DocKind { return KindCategory }

// Chamber is a legislative or judicial body. Threshold is a percentage in
// [1,100]. TermLimit 0 means unlimited. Quorum applies to referendums only.
type Chamber struct {
	ID            string      `json:"id"`
	Kind          ChamberKind `json:"kind"`
	Threshold     int         `json:"threshold"`
	Quorum        int         `json:"quorum,omitempty"`
	TermLength    int         `json:"term_length,omitempty"`
	TermLimit     int         `json:"term_limit,omitempty"`
	Seats         int         `json:"seats,omitempty"`
	ScalableSeats bool        `json:"scalable_seats,omitempty"`
	ChannelID     string      `json:"channel_id,omitempty"`
}

func (c Chamber) DocID() string    { return c.ID }
func (c Chamber) DocKind() DocKind { return KindChamber }

// PresidentialTerms is the Presidential variant payload. There is no
// snap-election field on this variant.
type PresidentialTerms struct {
	TermLength int `json:"term_length"`
	TermLimit  int `json:"term_limit"`
}

// ParliamentaryRules is the Parliamentary variant payload.
type ParliamentaryRules struct {
	// SnapElectionInterval is kept strictly below the senate term length.
	SnapElectionInterval int `json:"snap_election_interval"`
}

// DirectDemocracyRules is the Direct Democracy variant payload.
type DirectDemocracyRules struct {
	AppointModerators bool `json:"appoint_moderators"`
	AppointJudges     bool `json:"appoint_judges"`
}

// PoliticalSystem ties the chambers and optional head of state together.
// Exactly one variant payload is set, matching Kind.
type PoliticalSystem struct {
	ID                string                `json:"id"`
	Kind              SystemKind            `json:"kind"`
	LegislatureID     string                `json:"legislature_id"`
	CourtID           string                `json:"court_id"`
	HeadOfStateRoleID string                `json:"head_of_state_role_id,omitempty"`
	Presidential      *PresidentialTerms    `json:"presidential,omitempty"`
	Parliamentary     *ParliamentaryRules   `json:"parliamentary,omitempty"`
	DirectDemocracy   *DirectDemocracyRules `json:"direct_democracy,omitempty"`
}

func (s PoliticalSystem) DocID() string    { return s.ID }
func (s PoliticalSystem) DocKind() DocKind { return KindSystem }

// LogChannelHolder points at the two log-designated channels.
type LogChannelHolder struct {
	ID          string `json:"id"`
	ServerLogID string `json:"server_log_id,omitempty"`
	ChatLogID   string `json:"chat_log_id,omitempty"`
}

func (h LogChannelHolder) DocID() string    { return h.ID }
func (h LogChannelHolder) DocKind() DocKind { return KindLogHolder }

// EmergencyOptions configure what the community may do in a crisis.
type EmergencyOptions struct {
	// MartialLaw lets the head of state suspend chamber business.
	MartialLaw bool `json:"martial_law"`
	// SnapReferendum lets citizens force an emergency referendum.
	SnapReferendum bool `json:"snap_referendum"`
	// AlertThreshold is the approval percentage needed to declare an
	// emergency, in [1,100].
	AlertThreshold int `json:"alert_threshold"`
}

// Guild is the root record. It is the sole long-lived owner of the graph:
// every other document's lifetime is bounded by it. CommunityID is unique
// across guild documents.
type Guild struct {
	ID                string           `json:"id"`
	CommunityID       string           `json:"community_id"`
	RoleHolderID      string           `json:"role_holder_id"`
	CategoryIDs       []string         `json:"category_ids"`
	PoliticalSystemID string           `json:"political_system_id"`
	LogHolderID       string           `json:"log_holder_id"`
	Emergency         EmergencyOptions `json:"emergency"`
	CreatedAt         time.Time        `json:"created_at"`
}

func (g Guild) DocID() string    { return g.ID }
func (g Guild) DocKind() DocKind { return KindGuild }

// Event is a scheduled governance event (election, term expiry). The
// handling semantics live elsewhere; this is only the persisted shape.
type Event struct {
	ID      string    `json:"id"`
	GuildID string    `json:"guild_id"`
	Kind    string    `json:"kind"`
	Due     time.Time `json:"due"`
}

func (e Event) DocID() string    { return e.ID }
func (e Event) DocKind() DocKind { return KindEvent }
