// Package wizard implements the guild-configuration state machine: a
// resumable, cancellable conversational flow that accumulates a Draft across
// steps. Steps are identified by serializable string ids dispatched through
// a registry, so the machine stays data-driven and inspectable; the
// controller owns the back-stack and the one-outstanding-prompt contract.
package wizard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/civitasdev/civitas/internal/config"
	"github.com/civitasdev/civitas/internal/platform"
)

// StepID names a wizard step in the registry and on the back-stack.
type StepID string

const (
	StepSelectSystem         StepID = "select-system"
	StepPresidentialOptions  StepID = "presidential-options"
	StepParliamentaryOptions StepID = "parliamentary-options"
	StepDDOptions            StepID = "dd-options"
	StepSenateTerms          StepID = "senate-terms"
	StepSenateSeats          StepID = "senate-seats"
	StepSenateThreshold      StepID = "senate-threshold"
	StepReferendumThresholds StepID = "referendum-thresholds"
	StepCourtOptions         StepID = "court-options"
	StepEmergencyOptions     StepID = "emergency-options"
	StepRoleLinkage          StepID = "role-linkage"
	StepChannelLinkage       StepID = "channel-linkage"
	StepConfirm              StepID = "confirm"
)

// Fragment groups steps by domain, enabling cross-group jumps from the
// summary step.
type Fragment string

const (
	FragmentSystem      Fragment = "system"
	FragmentLegislature Fragment = "legislature"
	FragmentJudicial    Fragment = "judicial"
	FragmentDiscord     Fragment = "discord"
)

// Action is the single discrete external input a step consumes.
type Action struct {
	ID    string
	Value string
}

const (
	ActionBack    = "back"
	ActionCancel  = "cancel"
	ActionConfirm = "confirm"
	ActionNext    = "next"
	ActionPrev    = "prev"
	ActionInc     = "inc"
	ActionDec     = "dec"
	ActionInc10   = "inc10"
	ActionDec10   = "dec10"
	ActionToggle  = "toggle"
	ActionSelect  = "select"
	ActionAssign  = "assign"
	ActionClear   = "clear"
	ActionEdit    = "edit"
)

// ErrUnknownAction signals an action id the current step does not offer;
// the controller turns it into OutcomeEscaped.
var ErrUnknownAction = errors.New("wizard: unknown action")

// Choice is one affordance offered to the user. Disabled choices are still
// rendered but a well-behaved front end will not emit them; the apply
// functions guard regardless.
type Choice struct {
	ID       string
	Value    string
	Label    string
	Disabled bool
}

// Prompt is the opaque render payload handed to the Prompter boundary.
type Prompt struct {
	Step    StepID
	Page    int
	Title   string
	Lines   []string
	Choices []Choice
}

// TransitionKind enumerates the four mutually exclusive step effects.
type TransitionKind int

const (
	// TransitionStay re-renders the same step after a draft mutation.
	TransitionStay TransitionKind = iota
	// TransitionAdvance pushes the current step and moves to Next.
	TransitionAdvance
	// TransitionRetreat pops the back-stack; on the initial step it is a
	// no-op re-render.
	TransitionRetreat
	// TransitionDone commits: only the confirm step emits it.
	TransitionDone
)

// Transition is a step's routing decision.
type Transition struct {
	Kind TransitionKind
	Next StepID
}

func stay() Transition               { return Transition{Kind: TransitionStay} }
func advance(next StepID) Transition { return Transition{Kind: TransitionAdvance, Next: next} }
func jump(next StepID) Transition    { return advance(next) }
func done() Transition               { return Transition{Kind: TransitionDone} }

// Step couples a render function with an apply function under one id.
// Render must be side-effect free except for idempotent lazy init of the
// step's own sub-draft.
type Step struct {
	ID       StepID
	Fragment Fragment
	Render   func(s *Session) Prompt
	Apply    func(s *Session, act Action) (Transition, error)
}

// Registry maintains known steps, keyed by id.
type Registry struct {
	mu    sync.RWMutex
	steps map[StepID]Step
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: map[StepID]Step{}}
}

// Register installs a step. Returns an error if the id already exists.
func (r *Registry) Register(step Step) error {
	if step.ID == "" {
		return fmt.Errorf("wizard: step id is required")
	}
	if step.Render == nil || step.Apply == nil {
		return fmt.Errorf("wizard: step %s needs render and apply", step.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[step.ID]; exists {
		return fmt.Errorf("wizard: step %s already registered", step.ID)
	}
	r.steps[step.ID] = step
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(step Step) {
	if err := r.Register(step); err != nil {
		panic(err)
	}
}

// Lookup resolves a step by id.
func (r *Registry) Lookup(id StepID) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	step, ok := r.steps[id]
	if !ok {
		return Step{}, fmt.Errorf("wizard: unknown step %s", id)
	}
	return step, nil
}

// DefaultRegistry builds the full step set for the configuration wizard.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerSystemSteps(r)
	registerLegislatureSteps(r)
	registerJudicialSteps(r)
	registerDiscordSteps(r)
	return r
}

// Session is the isolated per-user, per-community wizard context. Templates
// is a session-private deep copy; Roles and Channels are the platform
// caches captured when the session started, used by the linkage phase.
type Session struct {
	Draft     *Draft
	Templates *config.Templates
	Community platform.CommunityInfo
	Roles     []platform.RoleInfo
	Channels  []platform.ChannelInfo
}

// NewSession builds a session around a fresh draft, deep-copying the shared
// template blueprints so sessions never share mutable state.
func NewSession(templates *config.Templates, community platform.CommunityInfo, roles []platform.RoleInfo, channels []platform.ChannelInfo) *Session {
	return &Session{
		Draft:     &Draft{},
		Templates: templates.Clone(),
		Community: community,
		Roles:     roles,
		Channels:  channels,
	}
}

// Numeric domain bounds. Clamping at these is silent; the render layer
// disables the affordance that would no-op.
const (
	minPercent      = 1
	maxPercent      = 100
	minTermLength   = 1
	maxTermLength   = 3650
	minTermLimit    = 0 // unlimited
	maxTermLimit    = 99
	minSeats        = 1
	maxSeats        = 435
	minSnapInterval = 1
)

func clampAdd(v, delta, floor, ceil int) int {
	v += delta
	if v < floor {
		return floor
	}
	if v > ceil {
		return ceil
	}
	return v
}

// wrapCursor moves a sub-view cursor by delta, modulo n, wrapping in both
// directions.
func wrapCursor(c, delta, n int) int {
	if n <= 0 {
		return 0
	}
	c = (c + delta) % n
	if c < 0 {
		c += n
	}
	return c
}
