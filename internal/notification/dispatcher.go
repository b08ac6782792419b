// Package notification fans organizational events out to the external
// automation dispatcher. Fire-and-forget: a failed or dropped
// notification is logged and counted, never surfaced to the action
// that triggered it.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/shared/ids"
	"github.com/impulso-digital/plataforma/internal/shared/metrics"
)

// Notification is one outbound event for the automation layer.
type Notification struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	Attempts  int            `json:"attempts"`
	CreatedAt time.Time      `json:"created_at"`
}

// Provider delivers notifications to an external channel.
type Provider interface {
	Send(ctx context.Context, notification *Notification) error
}

// DispatcherConfig holds dispatcher tuning
type DispatcherConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultDispatcherConfig returns default configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:       2,
		BufferSize:    256,
		RetryAttempts: 3,
		RetryDelay:    2 * time.Second,
	}
}

// Dispatcher runs a small worker pool draining a buffered queue into
// the provider.
type Dispatcher struct {
	provider Provider
	config   DispatcherConfig
	logger   zerolog.Logger

	queue chan *Notification

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(provider Provider, config DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		config:   config,
		logger:   logger.With().Str("component", "notification").Logger(),
		queue:    make(chan *Notification, config.BufferSize),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the worker pool
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop drains the workers
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.mu.Unlock()

	close(d.stopCh)
	d.wg.Wait()
}

// Notify enqueues a notification. Never blocks: if the buffer is full
// the notification is dropped and counted, because the triggering
// action must not wait on the automation layer.
func (d *Dispatcher) Notify(eventType string, payload map[string]any) {
	notification := &Notification{
		ID:        ids.New(),
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	select {
	case d.queue <- notification:
	default:
		d.logger.Warn().
			Str("event_type", eventType).
			Msg("notification queue full, dropping")
		metrics.RecordNotificationDispatched(eventType, "dropped")
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case notification := <-d.queue:
			d.deliver(ctx, notification)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, notification *Notification) {
	notification.Attempts++

	err := d.provider.Send(ctx, notification)
	if err == nil {
		metrics.RecordNotificationDispatched(notification.EventType, "sent")
		return
	}

	if notification.Attempts >= d.config.RetryAttempts {
		d.logger.Error().Err(err).
			Str("event_type", notification.EventType).
			Int("attempts", notification.Attempts).
			Msg("notification delivery failed, giving up")
		metrics.RecordNotificationDispatched(notification.EventType, "failed")
		return
	}

	// Re-queue after a delay; dropped if the queue is full by then.
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-time.After(d.config.RetryDelay):
		}
		select {
		case d.queue <- notification:
		default:
			metrics.RecordNotificationDispatched(notification.EventType, "dropped")
		}
	}()
}
