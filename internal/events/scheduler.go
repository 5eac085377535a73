// Package events holds the election scheduler skeleton. The poller drains
// due events from the store on a fixed interval and hands each to a handler;
// the governance semantics behind the events live with the handler, not
// here.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/civitasdev/civitas/internal/govern"
	"github.com/civitasdev/civitas/internal/platform"
	"github.com/civitasdev/civitas/internal/store"
)

// Source yields events that are due at or before a cutoff. Both store
// backends satisfy it.
type Source interface {
	DueEvents(ctx context.Context, cutoff time.Time) ([]govern.Event, error)
}

// Handler processes one due event. A handler error is logged and the event
// is retried on the next tick; handlers delete the event document themselves
// once it is fully processed.
type Handler func(ctx context.Context, event govern.Event) error

// Poller periodically drains due events. All collaborators are injected at
// construction.
type Poller struct {
	source   Source
	store    store.Store
	client   platform.Client
	handler  Handler
	log      zerolog.Logger
	interval time.Duration
	clock    func() time.Time
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithPollerLogger attaches a structured logger.
func WithPollerLogger(log zerolog.Logger) PollerOption {
	return func(p *Poller) { p.log = log }
}

// WithPollerClock injects a deterministic clock (primarily for tests).
func WithPollerClock(clock func() time.Time) PollerOption {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithHandler replaces the default (stub) event handler.
func WithHandler(handler Handler) PollerOption {
	return func(p *Poller) {
		if handler != nil {
			p.handler = handler
		}
	}
}

// NewPoller wires a poller to its event source and platform client.
func NewPoller(source Source, st store.Store, client platform.Client, interval time.Duration, opts ...PollerOption) (*Poller, error) {
	if source == nil {
		return nil, fmt.Errorf("events: event source is required")
	}
	if st == nil {
		return nil, fmt.Errorf("events: store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("events: platform client is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("events: poll interval must be positive, got %s", interval)
	}
	p := &Poller{
		source:   source,
		store:    st,
		client:   client,
		log:      zerolog.Nop(),
		interval: interval,
		clock:    time.Now,
	}
	p.handler = p.stubHandler
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick drains everything currently due. Exposed so tests can drive the
// poller without real time.
func (p *Poller) Tick(ctx context.Context) {
	due, err := p.source.DueEvents(ctx, p.clock())
	if err != nil {
		p.log.Error().Err(err).Msg("due-event query failed")
		return
	}
	for _, event := range due {
		if err := p.handler(ctx, event); err != nil {
			p.log.Error().Err(err).Str("event", event.ID).Str("kind", event.Kind).
				Msg("event handler failed, will retry next tick")
		}
	}
}

// stubHandler acknowledges the event and removes it. Election and term
// semantics plug in through WithHandler.
func (p *Poller) stubHandler(ctx context.Context, event govern.Event) error {
	p.log.Info().Str("event", event.ID).Str("kind", event.Kind).
		Str("guild", event.GuildID).Time("due", event.Due).Msg("event due, no handler installed")
	_, err := p.store.FindOneAndDelete(ctx, govern.KindEvent, event.ID)
	return err
}
