// Package assist wraps the external content-generation service. Output
// is advisory: any failure degrades to a role-appropriate canned
// response instead of blocking the user.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/config"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/metrics"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// Context carries the actor situation embedded into the prompt.
type Context struct {
	ActorRole   hierarchy.Role  `json:"actor_role"`
	Territory   types.Territory `json:"territory"`
	MessageType string          `json:"message_type,omitempty"`
}

// Result is a normalized generation outcome. Degraded results carry the
// fallback text and are flagged so the UI can tell the user the content
// service was unavailable rather than silently passing off canned text.
type Result struct {
	Text     string `json:"text"`
	Source   string `json:"source"` // "model" or "fallback"
	Degraded bool   `json:"degraded"`
}

// Client calls the content-generation service with a bounded timeout
// and a small fixed retry count.
type Client struct {
	baseURL string
	client  *http.Client
	retries int
	logger  zerolog.Logger
}

// NewClient creates a content-assist client
func NewClient(cfg config.AssistConfig, logger zerolog.Logger) *Client {
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		retries: retries,
		logger:  logger.With().Str("component", "assist").Logger(),
	}
}

type completeRequest struct {
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Text string `json:"text"`
}

// Generate builds the context-enriched prompt and asks the service for
// a completion. Never returns an error for service failure: the result
// degrades to a canned fallback instead.
func (c *Client) Generate(ctx context.Context, prompt string, genCtx Context) (Result, error) {
	if prompt == "" {
		return Result{}, errors.InvalidInput("prompt is required", nil)
	}

	enriched := enrichPrompt(prompt, genCtx)

	text, err := c.complete(ctx, enriched)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("actor_role", string(genCtx.ActorRole)).
			Msg("content service unavailable, serving fallback")
		metrics.RecordAssistRequest("fallback")
		return Result{
			Text:     Fallback(genCtx.ActorRole, genCtx.MessageType),
			Source:   "fallback",
			Degraded: true,
		}, nil
	}

	metrics.RecordAssistRequest("model")
	return Result{Text: text, Source: "model"}, nil
}

// enrichPrompt embeds the actor context so the service writes in the
// right voice and territorial register.
func enrichPrompt(prompt string, genCtx Context) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Role: %s\n", genCtx.ActorRole)
	if genCtx.Territory.Municipality != "" {
		fmt.Fprintf(&buf, "Municipality: %s\n", genCtx.Territory.Municipality)
	}
	if genCtx.Territory.Department != "" {
		fmt.Fprintf(&buf, "Department: %s\n", genCtx.Territory.Department)
	}
	if genCtx.MessageType != "" {
		fmt.Fprintf(&buf, "Message type: %s\n", genCtx.MessageType)
	}
	fmt.Fprintf(&buf, "\n%s", prompt)
	return buf.String()
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		text, err := c.completeOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}

	return "", lastErr
}

func (c *Client) completeOnce(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completeRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("content service returned status %d", resp.StatusCode)
	}

	var decoded completeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Text == "" {
		return "", fmt.Errorf("content service returned empty completion")
	}

	return decoded.Text, nil
}
