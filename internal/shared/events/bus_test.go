package events

import (
	"testing"

	"github.com/impulso-digital/plataforma/internal/shared/types"
)

func TestNewEventMarshalsPayload(t *testing.T) {
	type payload struct {
		MemberID string `json:"member_id"`
	}

	event, err := NewEvent("member.created", "provisioning", payload{MemberID: "abc"})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	if event.ID == "" {
		t.Error("event ID not generated")
	}
	if event.Type != "member.created" {
		t.Errorf("event type = %q, want %q", event.Type, "member.created")
	}
	if event.Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}

	var got payload
	if err := event.Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.MemberID != "abc" {
		t.Errorf("decoded member_id = %q, want %q", got.MemberID, "abc")
	}
}

func TestEventWithActor(t *testing.T) {
	id := types.NewID()
	event, err := NewEvent("message.created", "messaging", nil)
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	event = event.WithActor(id, "mayor").WithCorrelation("req-1")
	if event.ActorID != id {
		t.Errorf("actor ID = %v, want %v", event.ActorID, id)
	}
	if event.ActorRole != "mayor" {
		t.Errorf("actor role = %q, want %q", event.ActorRole, "mayor")
	}
	if event.CorrelationID != "req-1" {
		t.Errorf("correlation ID = %q, want %q", event.CorrelationID, "req-1")
	}
}

func TestNormalizeEventType(t *testing.T) {
	if got := normalizeEventType("message.created"); got != "message-created" {
		t.Errorf("normalizeEventType = %q, want %q", got, "message-created")
	}
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		eventType string
		pattern   string
		want      bool
	}{
		{"message.created", "message.*", true},
		{"message.created", "message.created", true},
		{"member.created", "message.*", false},
		{"message.created", "*", true},
		{"message.created", ">", true},
		{"message.created.extra", "message.created", false},
		{"message", "message.*", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType+"_"+tt.pattern, func(t *testing.T) {
			if got := matchesPattern(tt.eventType, tt.pattern); got != tt.want {
				t.Errorf("matchesPattern(%q, %q) = %v, want %v", tt.eventType, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestPatternToRegex(t *testing.T) {
	if got := patternToRegex("message.*"); got != `message\..*` {
		t.Errorf("patternToRegex = %q, want %q", got, `message\..*`)
	}
}
