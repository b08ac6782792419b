package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/shared/config"
)

// AutomationWebhookProvider posts notifications to the external
// workflow engine's webhook.
type AutomationWebhookProvider struct {
	webhookURL string
	client     *http.Client
}

// NewAutomationWebhookProvider creates a webhook provider
func NewAutomationWebhookProvider(cfg config.AutomationConfig) *AutomationWebhookProvider {
	return &AutomationWebhookProvider{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Send posts the notification to the webhook
func (p *AutomationWebhookProvider) Send(ctx context.Context, notification *Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// ConsoleProvider logs notifications instead of delivering them. Used
// when the automation webhook is disabled.
type ConsoleProvider struct {
	logger zerolog.Logger
}

// NewConsoleProvider creates a console provider
func NewConsoleProvider(logger zerolog.Logger) *ConsoleProvider {
	return &ConsoleProvider{logger: logger.With().Str("component", "notification").Logger()}
}

func (p *ConsoleProvider) Send(ctx context.Context, notification *Notification) error {
	p.logger.Info().
		Str("event_type", notification.EventType).
		Interface("payload", notification.Payload).
		Msg("notification (console)")
	return nil
}

// MockProvider records notifications for tests.
type MockProvider struct {
	mu   sync.Mutex
	sent []*Notification
	fail error
}

// NewMockProvider creates a mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// FailWith makes subsequent sends return err. Pass nil to restore.
func (p *MockProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

func (p *MockProvider) Send(ctx context.Context, notification *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	copied := *notification
	p.sent = append(p.sent, &copied)
	return nil
}

// Sent returns the notifications delivered so far.
func (p *MockProvider) Sent() []*Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Notification, len(p.sent))
	copy(out, p.sent)
	return out
}
