package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrPromptTimeout is returned by Prompters when no response arrives within
// the window.
var ErrPromptTimeout = errors.New("wizard: prompt timed out")

// Prompter renders one step and awaits exactly one user choice. The
// controller guarantees a single outstanding prompt per session.
type Prompter interface {
	Prompt(ctx context.Context, p Prompt) (Action, error)
}

// Outcome is a terminal session result.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeTimedOut  Outcome = "timed-out"
	OutcomeEscaped   Outcome = "escaped"
)

// Result reports how a session ended. On OutcomeCompleted the session draft
// is validated and ready for provisioning.
type Result struct {
	Outcome Outcome
	// Pages is the monotonic prompt counter, display bookkeeping only.
	Pages int
}

// Controller drives one wizard session: cursor and page bookkeeping, the
// back-stack of visited steps, timeout and cancel handling, and dispatch
// into the step registry.
type Controller struct {
	registry *Registry
	prompter Prompter
	timeout  time.Duration
	log      zerolog.Logger
	clock    func() time.Time
	initial  StepID
}

// Option customizes the controller.
type Option func(*Controller)

// WithTimeout sets the per-prompt timeout (not a whole-session budget).
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithInitialStep overrides the entry step (tests exercise sub-flows
// directly).
func WithInitialStep(id StepID) Option {
	return func(c *Controller) {
		if id != "" {
			c.initial = id
		}
	}
}

// New wires a controller to a step registry and a prompter.
func New(registry *Registry, prompter Prompter, opts ...Option) (*Controller, error) {
	if registry == nil {
		return nil, fmt.Errorf("wizard: step registry is required")
	}
	if prompter == nil {
		return nil, fmt.Errorf("wizard: prompter is required")
	}
	c := &Controller{
		registry: registry,
		prompter: prompter,
		timeout:  2 * time.Minute,
		log:      zerolog.Nop(),
		clock:    time.Now,
		initial:  StepSelectSystem,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes the session until a terminal outcome. Back and cancel are
// handled uniformly here; every other action is dispatched to the current
// step's apply function. No entities are created during the run: on
// completion the caller hands the draft to the provisioner.
func (c *Controller) Run(ctx context.Context, session *Session) (Result, error) {
	if session == nil || session.Draft == nil {
		return Result{}, fmt.Errorf("wizard: session is required")
	}
	var stack []StepID
	current := c.initial
	page := 0
	for {
		step, err := c.registry.Lookup(current)
		if err != nil {
			return Result{}, err
		}
		page++
		prompt := step.Render(session)
		prompt.Step = current
		prompt.Page = page
		prompt.Choices = append(prompt.Choices, navChoices(len(stack) == 0)...)

		act, err := c.awaitOne(ctx, prompt)
		switch {
		case errors.Is(err, ErrPromptTimeout) || errors.Is(err, context.DeadlineExceeded):
			c.log.Info().Str("step", string(current)).Int("page", page).Msg("wizard prompt timed out")
			return Result{Outcome: OutcomeTimedOut, Pages: page}, nil
		case err != nil:
			return Result{}, fmt.Errorf("wizard: prompt on %s: %w", current, err)
		}

		switch act.ID {
		case ActionCancel:
			return Result{Outcome: OutcomeCancelled, Pages: page}, nil
		case ActionBack:
			if len(stack) > 0 {
				current = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
			// Retreating from the initial step re-renders it.
			continue
		}

		tr, err := step.Apply(session, act)
		if errors.Is(err, ErrUnknownAction) {
			c.log.Warn().Str("step", string(current)).Str("action", act.ID).Msg("unrecognized wizard action")
			return Result{Outcome: OutcomeEscaped, Pages: page}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("wizard: apply %s on %s: %w", act.ID, current, err)
		}
		switch tr.Kind {
		case TransitionStay:
			// Re-render the same step.
		case TransitionAdvance:
			stack = append(stack, current)
			current = tr.Next
		case TransitionRetreat:
			if len(stack) > 0 {
				current = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		case TransitionDone:
			if err := session.Draft.Validate(); err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeCompleted, Pages: page}, nil
		default:
			return Result{}, fmt.Errorf("wizard: step %s returned invalid transition %d", current, tr.Kind)
		}
	}
}

// awaitOne enforces the one-outstanding-prompt contract with a per-prompt
// wall-clock timeout.
func (c *Controller) awaitOne(ctx context.Context, prompt Prompt) (Action, error) {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.prompter.Prompt(pctx, prompt)
}

func navChoices(initial bool) []Choice {
	return []Choice{
		{ID: ActionBack, Label: "Back", Disabled: initial},
		{ID: ActionCancel, Label: "Cancel"},
	}
}
