package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/civitasdev/civitas/internal/govern"
	"github.com/civitasdev/civitas/internal/platform"
	"github.com/civitasdev/civitas/internal/store"
)

func newPollerHarness(t *testing.T, opts ...PollerOption) (*Poller, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	fake := platform.NewFake(platform.CommunityInfo{ID: "guild-1", EveryoneRoleID: "everyone"})
	base := []PollerOption{WithPollerClock(func() time.Time { return time.Unix(1700000000, 0) })}
	poller, err := NewPoller(mem, mem, fake, time.Minute, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	return poller, mem
}

func TestNewPollerValidatesInputs(t *testing.T) {
	mem := store.NewMemory()
	fake := platform.NewFake(platform.CommunityInfo{ID: "guild-1"})
	if _, err := NewPoller(nil, mem, fake, time.Minute); err == nil {
		t.Fatalf("nil source should be rejected")
	}
	if _, err := NewPoller(mem, mem, nil, time.Minute); err == nil {
		t.Fatalf("nil client should be rejected")
	}
	if _, err := NewPoller(mem, mem, fake, 0); err == nil {
		t.Fatalf("zero interval should be rejected")
	}
}

func TestTickDrainsDueEventsOnly(t *testing.T) {
	now := time.Unix(1700000000, 0)
	var handled []string
	poller, mem := newPollerHarness(t, WithHandler(func(_ context.Context, ev govern.Event) error {
		handled = append(handled, ev.ID)
		return nil
	}))
	ctx := context.Background()
	mustCreate(t, mem, govern.Event{ID: "e-due", GuildID: "g", Kind: "election", Due: now.Add(-time.Second)})
	mustCreate(t, mem, govern.Event{ID: "e-future", GuildID: "g", Kind: "election", Due: now.Add(time.Hour)})

	poller.Tick(ctx)
	if len(handled) != 1 || handled[0] != "e-due" {
		t.Fatalf("expected only e-due handled, got %v", handled)
	}
}

func TestStubHandlerConsumesEvent(t *testing.T) {
	now := time.Unix(1700000000, 0)
	poller, mem := newPollerHarness(t)
	ctx := context.Background()
	mustCreate(t, mem, govern.Event{ID: "e-1", GuildID: "g", Kind: "election", Due: now.Add(-time.Second)})

	poller.Tick(ctx)
	if _, err := mem.FindOne(ctx, govern.KindEvent, "e-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("stub handler should remove the event, got %v", err)
	}
}

func TestHandlerErrorLeavesEventForRetry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	calls := 0
	poller, mem := newPollerHarness(t, WithHandler(func(context.Context, govern.Event) error {
		calls++
		return errors.New("boom")
	}))
	ctx := context.Background()
	mustCreate(t, mem, govern.Event{ID: "e-1", GuildID: "g", Kind: "election", Due: now.Add(-time.Second)})

	poller.Tick(ctx)
	poller.Tick(ctx)
	if calls != 2 {
		t.Fatalf("failed event should be retried each tick, got %d calls", calls)
	}
	if _, err := mem.FindOne(ctx, govern.KindEvent, "e-1"); err != nil {
		t.Fatalf("failed event must stay queued: %v", err)
	}
}

func mustCreate(t *testing.T, mem *store.Memory, ev govern.Event) {
	t.Helper()
	if err := mem.Create(context.Background(), ev); err != nil {
		t.Fatalf("create %s: %v", ev.ID, err)
	}
}
