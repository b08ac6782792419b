package events

import "context"

// Publisher is the publishing side of the bus. Services depend on this
// so the platform can run with the bus absent (degraded mode) and tests
// can capture published events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events. Installed when EventStoreDB is
// unreachable at startup.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
