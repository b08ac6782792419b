package realtime

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/directory"
	"github.com/impulso-digital/plataforma/internal/messaging"
	"github.com/impulso-digital/plataforma/internal/shared/events"
)

// Subscriber is the slice of the event bus the bridge needs.
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string, handler events.Handler) error
}

// Bridge connects the event bus to the hub: member and message inserts
// published by the services come back through the catch-up
// subscriptions and fan out to connected clients.
type Bridge struct {
	bus    Subscriber
	hub    *Hub
	logger zerolog.Logger
}

// NewBridge creates an event-to-websocket bridge
func NewBridge(bus Subscriber, hub *Hub, logger zerolog.Logger) *Bridge {
	return &Bridge{
		bus:    bus,
		hub:    hub,
		logger: logger.With().Str("component", "realtime").Logger(),
	}
}

// Start subscribes to the message and member streams. Handlers run
// until ctx is canceled.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.bus.Subscribe(ctx, "message.*", b.onMessageEvent); err != nil {
		return fmt.Errorf("failed to subscribe to message events: %w", err)
	}
	if err := b.bus.Subscribe(ctx, "member.*", b.onMemberEvent); err != nil {
		return fmt.Errorf("failed to subscribe to member events: %w", err)
	}
	return nil
}

func (b *Bridge) onMessageEvent(ctx context.Context, event events.Event) error {
	var msg messaging.Message
	if err := event.Decode(&msg); err != nil {
		return fmt.Errorf("failed to decode message event %s: %w", event.ID, err)
	}
	b.hub.DeliverMessage(&msg)
	return nil
}

func (b *Bridge) onMemberEvent(ctx context.Context, event events.Event) error {
	var member directory.Member
	if err := event.Decode(&member); err != nil {
		return fmt.Errorf("failed to decode member event %s: %w", event.ID, err)
	}
	b.hub.DeliverMember(&member)
	return nil
}
