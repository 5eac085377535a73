package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/civitasdev/civitas/internal/config"
	"github.com/civitasdev/civitas/internal/govern"
	"github.com/civitasdev/civitas/internal/platform"
	"github.com/civitasdev/civitas/internal/provision"
	"github.com/civitasdev/civitas/internal/store"
	"github.com/civitasdev/civitas/internal/wizard"
)

const testCommunity = "guild-1"

type scriptPrompter struct {
	actions []wizard.Action
	idx     int
}

func (p *scriptPrompter) Prompt(context.Context, wizard.Prompt) (wizard.Action, error) {
	if p.idx >= len(p.actions) {
		return wizard.Action{}, wizard.ErrPromptTimeout
	}
	act := p.actions[p.idx]
	p.idx++
	return act, nil
}

type messageRecorder struct {
	messages []string
}

func (r *messageRecorder) notify(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func newCommandHarness(t *testing.T, memberCount int) (*Service, *store.Memory, *platform.Fake) {
	t.Helper()
	templates, err := config.LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	fake := platform.NewFake(platform.CommunityInfo{
		ID:             testCommunity,
		Name:           "Test Guild",
		OwnerID:        "owner",
		MemberCount:    memberCount,
		EveryoneRoleID: "everyone",
	})
	mem := store.NewMemory()
	orch, err := provision.New(mem, fake, templates)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	rt := &config.Runtime{
		OwnerID:           "bot-owner",
		PromptTimeout:     time.Minute,
		DeleteTimeout:     time.Minute,
		DeleteMemberLimit: 50,
	}
	return NewService(rt, templates, fake, orch, wizard.DefaultRegistry(), zerolog.Nop()), mem, fake
}

func presidentialScript() []wizard.Action {
	actions := []wizard.Action{{ID: wizard.ActionSelect, Value: string(govern.SystemPresidential)}}
	for i := 0; i < 9; i++ {
		actions = append(actions, wizard.Action{ID: wizard.ActionConfirm})
	}
	return actions
}

func TestConfigureProvisionsOnCompletion(t *testing.T) {
	service, mem, _ := newCommandHarness(t, 10)
	rec := &messageRecorder{}
	err := service.Configure(context.Background(), testCommunity, &scriptPrompter{actions: presidentialScript()}, rec.notify)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if len(rec.messages) != 1 || rec.messages[0] != msgConfigured {
		t.Fatalf("expected one success message, got %v", rec.messages)
	}
	if _, err := mem.GuildByCommunity(context.Background(), testCommunity); err != nil {
		t.Fatalf("guild should exist after configure: %v", err)
	}
}

func TestConfigureCancelledCreatesNothing(t *testing.T) {
	service, mem, fake := newCommandHarness(t, 10)
	rec := &messageRecorder{}
	err := service.Configure(context.Background(), testCommunity,
		&scriptPrompter{actions: []wizard.Action{{ID: wizard.ActionCancel}}}, rec.notify)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if len(rec.messages) != 1 || rec.messages[0] != msgCancelled {
		t.Fatalf("expected cancel message, got %v", rec.messages)
	}
	if mem.CountAll() != 0 || fake.RoleCreates != 0 || fake.ChannelCreates != 0 {
		t.Fatalf("cancelled session must create nothing")
	}
}

func TestConfigureTimedOutMessage(t *testing.T) {
	service, _, _ := newCommandHarness(t, 10)
	rec := &messageRecorder{}
	if err := service.Configure(context.Background(), testCommunity, &scriptPrompter{}, rec.notify); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if len(rec.messages) != 1 || rec.messages[0] != msgTimedOut {
		t.Fatalf("expected timeout message, got %v", rec.messages)
	}
}

func TestConfigureDuplicateCommunity(t *testing.T) {
	service, _, _ := newCommandHarness(t, 10)
	rec := &messageRecorder{}
	if err := service.Configure(context.Background(), testCommunity, &scriptPrompter{actions: presidentialScript()}, rec.notify); err != nil {
		t.Fatalf("first configure: %v", err)
	}
	if err := service.Configure(context.Background(), testCommunity, &scriptPrompter{actions: presidentialScript()}, rec.notify); err != nil {
		t.Fatalf("second configure: %v", err)
	}
	if rec.messages[1] != msgAlreadyConfigured {
		t.Fatalf("expected already-configured message, got %q", rec.messages[1])
	}
}

func TestConfigureRecoversFromPanic(t *testing.T) {
	service, _, _ := newCommandHarness(t, 10)
	registry := wizard.NewRegistry()
	registry.MustRegister(wizard.Step{
		ID:       wizard.StepSelectSystem,
		Fragment: wizard.FragmentSystem,
		Render:   func(*wizard.Session) wizard.Prompt { panic("render exploded") },
		Apply: func(*wizard.Session, wizard.Action) (wizard.Transition, error) {
			return wizard.Transition{}, nil
		},
	})
	service.registry = registry

	rec := &messageRecorder{}
	err := service.Configure(context.Background(), testCommunity,
		&scriptPrompter{actions: presidentialScript()}, rec.notify)
	if err != nil {
		t.Fatalf("configure should swallow the panic: %v", err)
	}
	if len(rec.messages) != 1 || rec.messages[0] != msgFailed {
		t.Fatalf("panic must resolve to the single failure message, got %v", rec.messages)
	}
}

func TestDeletePolicy(t *testing.T) {
	cases := []struct {
		name        string
		invoker     string
		memberCount int
		allowed     bool
	}{
		{"bot owner always", "bot-owner", 500, true},
		{"community owner always", "owner", 500, true},
		{"stranger small community", "someone", 10, true},
		{"stranger large community", "someone", 500, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service, _, _ := newCommandHarness(t, tc.memberCount)
			if got := service.mayDelete(tc.invoker, "owner", tc.memberCount); got != tc.allowed {
				t.Fatalf("mayDelete = %v, want %v", got, tc.allowed)
			}
		})
	}
}

func TestDeleteConfirmFlow(t *testing.T) {
	service, mem, _ := newCommandHarness(t, 10)
	rec := &messageRecorder{}
	if err := service.Configure(context.Background(), testCommunity, &scriptPrompter{actions: presidentialScript()}, rec.notify); err != nil {
		t.Fatalf("configure: %v", err)
	}

	err := service.Delete(context.Background(), testCommunity, "owner",
		&scriptPrompter{actions: []wizard.Action{{ID: wizard.ActionConfirm}}}, rec.notify)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if last := rec.messages[len(rec.messages)-1]; last != msgDeleted {
		t.Fatalf("expected deleted message, got %q", last)
	}
	if mem.CountAll() != 0 {
		t.Fatalf("delete should remove every document")
	}
}

func TestDeleteAbortKeepsConfiguration(t *testing.T) {
	service, mem, _ := newCommandHarness(t, 10)
	rec := &messageRecorder{}
	if err := service.Configure(context.Background(), testCommunity, &scriptPrompter{actions: presidentialScript()}, rec.notify); err != nil {
		t.Fatalf("configure: %v", err)
	}
	docs := mem.CountAll()

	err := service.Delete(context.Background(), testCommunity, "owner",
		&scriptPrompter{actions: []wizard.Action{{ID: wizard.ActionCancel}}}, rec.notify)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if last := rec.messages[len(rec.messages)-1]; last != msgDeleteAborted {
		t.Fatalf("expected abort message, got %q", last)
	}
	if mem.CountAll() != docs {
		t.Fatalf("aborted delete must leave the configuration intact")
	}
}

func TestDeleteDeniedMentionsOwner(t *testing.T) {
	service, _, _ := newCommandHarness(t, 500)
	rec := &messageRecorder{}
	err := service.Delete(context.Background(), testCommunity, "someone",
		&scriptPrompter{}, rec.notify)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(rec.messages) != 1 || !strings.Contains(rec.messages[0], "owner") ||
		!strings.Contains(rec.messages[0], "member limit") {
		t.Fatalf("expected a denial naming the owner and the member limit, got %v", rec.messages)
	}
}

func TestDeleteNothingConfigured(t *testing.T) {
	service, _, _ := newCommandHarness(t, 10)
	rec := &messageRecorder{}
	err := service.Delete(context.Background(), testCommunity, "owner",
		&scriptPrompter{actions: []wizard.Action{{ID: wizard.ActionConfirm}}}, rec.notify)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.messages[0] != msgNothingToDo {
		t.Fatalf("expected nothing-to-do message, got %q", rec.messages[0])
	}
}
