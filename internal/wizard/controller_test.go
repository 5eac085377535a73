package wizard

import (
	"context"
	"testing"

	"github.com/civitasdev/civitas/internal/config"
	"github.com/civitasdev/civitas/internal/govern"
	"github.com/civitasdev/civitas/internal/platform"
)

// scriptPrompter replays a fixed action sequence and records every prompt it
// was shown. Running past the script simulates the user walking away.
type scriptPrompter struct {
	actions []Action
	idx     int
	prompts []Prompt
}

func (p *scriptPrompter) Prompt(_ context.Context, prompt Prompt) (Action, error) {
	p.prompts = append(p.prompts, prompt)
	if p.idx >= len(p.actions) {
		return Action{}, ErrPromptTimeout
	}
	act := p.actions[p.idx]
	p.idx++
	return act, nil
}

func (p *scriptPrompter) steps() []StepID {
	out := make([]StepID, len(p.prompts))
	for i, prompt := range p.prompts {
		out[i] = prompt.Step
	}
	return out
}

func newWizardHarness(t *testing.T, actions ...Action) (*Controller, *Session, *scriptPrompter) {
	t.Helper()
	templates, err := config.LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	session := NewSession(templates,
		platform.CommunityInfo{ID: "guild-1", Name: "Test Guild", OwnerID: "owner", EveryoneRoleID: "everyone"},
		[]platform.RoleInfo{
			{ID: "everyone", Name: "@everyone", Managed: true},
			{ID: "r-knights", Name: "Knights"},
			{ID: "r-wizards", Name: "Wizards"},
		},
		[]platform.ChannelInfo{
			{ID: "ch-general", Name: "general"},
			{ID: "ch-cat", Name: "Old Category", Category: true},
		})
	prompter := &scriptPrompter{actions: actions}
	controller, err := New(DefaultRegistry(), prompter)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return controller, session, prompter
}

func confirmN(n int) []Action {
	out := make([]Action, n)
	for i := range out {
		out[i] = Action{ID: ActionConfirm}
	}
	return out
}

func TestControllerPresidentialHappyPath(t *testing.T) {
	actions := append([]Action{{ID: ActionSelect, Value: string(govern.SystemPresidential)}}, confirmN(9)...)
	controller, session, prompter := newWizardHarness(t, actions...)

	result, err := controller.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s", result.Outcome)
	}
	if result.Pages != 10 {
		t.Fatalf("expected 10 pages, got %d", result.Pages)
	}
	if err := session.Draft.Validate(); err != nil {
		t.Fatalf("draft should validate after completion: %v", err)
	}
	d := session.Draft
	if d.Presidential == nil || d.Parliamentary != nil || d.DirectDemocracy != nil {
		t.Fatalf("expected only the presidential option block, got %+v", d)
	}
	if d.Senate == nil || d.Court == nil || d.Referendum != nil {
		t.Fatalf("presidential flow should populate senate and court only")
	}
	last := prompter.prompts[len(prompter.prompts)-1]
	if last.Step != StepConfirm {
		t.Fatalf("expected final prompt on confirm step, got %s", last.Step)
	}
}

func TestControllerDirectDemocracyHappyPath(t *testing.T) {
	actions := append([]Action{{ID: ActionSelect, Value: string(govern.SystemDirectDemocracy)}}, confirmN(6)...)
	controller, session, _ := newWizardHarness(t, actions...)

	result, err := controller.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s", result.Outcome)
	}
	d := session.Draft
	if d.DirectDemocracy == nil || d.Senate != nil || d.Referendum == nil {
		t.Fatalf("dd flow should populate referendum, not senate: %+v", d)
	}
	if d.Court != nil {
		t.Fatalf("dd without appointed judges should not populate court options")
	}
}

func TestControllerBackStackSymmetry(t *testing.T) {
	// Advance two steps, retreat two steps, retreat again on the initial
	// step (re-render, not an error), then cancel.
	controller, session, prompter := newWizardHarness(t,
		Action{ID: ActionSelect, Value: string(govern.SystemPresidential)},
		Action{ID: ActionConfirm},
		Action{ID: ActionBack},
		Action{ID: ActionBack},
		Action{ID: ActionBack},
		Action{ID: ActionCancel},
	)
	result, err := controller.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %s", result.Outcome)
	}
	want := []StepID{
		StepSelectSystem,
		StepPresidentialOptions,
		StepSenateTerms,
		StepPresidentialOptions,
		StepSelectSystem,
		StepSelectSystem,
	}
	got := prompter.steps()
	if len(got) != len(want) {
		t.Fatalf("expected %d prompts, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prompt %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestControllerBackDisabledOnInitialStep(t *testing.T) {
	controller, session, prompter := newWizardHarness(t, Action{ID: ActionCancel})
	if _, err := controller.Run(context.Background(), session); err != nil {
		t.Fatalf("run: %v", err)
	}
	var back *Choice
	for i := range prompter.prompts[0].Choices {
		if prompter.prompts[0].Choices[i].ID == ActionBack {
			back = &prompter.prompts[0].Choices[i]
		}
	}
	if back == nil || !back.Disabled {
		t.Fatalf("back should be offered but disabled on the initial step")
	}
}

func TestControllerTimeout(t *testing.T) {
	controller, session, _ := newWizardHarness(t)
	result, err := controller.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeTimedOut {
		t.Fatalf("expected timed-out, got %s", result.Outcome)
	}
}

func TestControllerUnknownActionEscapes(t *testing.T) {
	controller, session, _ := newWizardHarness(t, Action{ID: "definitely-not-a-thing"})
	result, err := controller.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeEscaped {
		t.Fatalf("expected escaped, got %s", result.Outcome)
	}
}

func TestControllerCancelNeverMutatesNothingCommitted(t *testing.T) {
	controller, session, _ := newWizardHarness(t,
		Action{ID: ActionSelect, Value: string(govern.SystemParliamentary)},
		Action{ID: ActionCancel},
	)
	result, err := controller.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %s", result.Outcome)
	}
	// The draft may hold partial state but must not validate as committable.
	if err := session.Draft.Validate(); err == nil {
		t.Fatalf("cancelled draft should not validate")
	}
}

func TestControllerEditJumpFromConfirm(t *testing.T) {
	actions := append([]Action{{ID: ActionSelect, Value: string(govern.SystemPresidential)}}, confirmN(8)...)
	actions = append(actions,
		Action{ID: ActionEdit, Value: string(FragmentLegislature)},
		Action{ID: ActionConfirm}, // senate-terms -> senate-seats
	)
	controller, session, prompter := newWizardHarness(t, actions...)
	result, err := controller.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeTimedOut {
		t.Fatalf("expected timed-out after script end, got %s", result.Outcome)
	}
	steps := prompter.steps()
	// After the confirm-step edit jump the wizard must land on the senate
	// entry step.
	if steps[10] != StepSenateTerms {
		t.Fatalf("expected jump to senate-terms, got %s", steps[10])
	}
}
