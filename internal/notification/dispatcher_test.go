package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/impulso-digital/plataforma/internal/shared/logging"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDispatcherDelivers(t *testing.T) {
	provider := NewMockProvider()
	dispatcher := NewDispatcher(provider, DefaultDispatcherConfig(), logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	dispatcher.Notify("message.escalation", map[string]any{"target_rank": 3})

	waitFor(t, time.Second, func() bool { return len(provider.Sent()) == 1 })

	sent := provider.Sent()[0]
	if sent.EventType != "message.escalation" {
		t.Errorf("event type = %q", sent.EventType)
	}
	if sent.ID == "" {
		t.Error("notification ID not assigned")
	}
	if sent.Payload["target_rank"] != 3 {
		t.Errorf("payload = %v", sent.Payload)
	}
}

// flakyProvider fails its first call and succeeds afterwards.
type flakyProvider struct {
	mu    sync.Mutex
	calls int
	sent  []*Notification
}

func (p *flakyProvider) Send(ctx context.Context, notification *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls == 1 {
		return context.DeadlineExceeded
	}
	copied := *notification
	p.sent = append(p.sent, &copied)
	return nil
}

func (p *flakyProvider) delivered() []*Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Notification, len(p.sent))
	copy(out, p.sent)
	return out
}

func TestDispatcherRetries(t *testing.T) {
	provider := &flakyProvider{}

	config := DispatcherConfig{
		Workers:       1,
		BufferSize:    8,
		RetryAttempts: 3,
		RetryDelay:    10 * time.Millisecond,
	}
	dispatcher := NewDispatcher(provider, config, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	dispatcher.Notify("member.created", nil)

	waitFor(t, time.Second, func() bool { return len(provider.delivered()) == 1 })

	if got := provider.delivered()[0].Attempts; got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestNotifyNeverBlocksWhenQueueFull(t *testing.T) {
	provider := NewMockProvider()
	config := DispatcherConfig{
		Workers:       1,
		BufferSize:    1,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}
	// Not started: nothing drains the queue.
	dispatcher := NewDispatcher(provider, config, logging.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			dispatcher.Notify("message.broadcast", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
}
