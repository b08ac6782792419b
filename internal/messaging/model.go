// Package messaging classifies and routes internal messages: broadcast,
// hierarchical cascade, peer and escalation, with priority and
// territorial filtering.
package messaging

import (
	"time"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// MessageType is the declared routing class of a message.
type MessageType string

const (
	TypeBroadcast    MessageType = "broadcast"
	TypeHierarchical MessageType = "hierarchical"
	TypePeer         MessageType = "peer"
	TypeEscalation   MessageType = "escalation"
)

// Priority orders message urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// KnownPriority reports whether p is one of the four priorities.
func KnownPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Message is an internal organizational message. Type and priority are
// immutable after creation: together with the denormalized sender rank
// they fully determine routing, so a message is never re-routed even if
// the sender's role later changes.
type Message struct {
	ID         string         `json:"id"`
	SenderID   types.ID       `json:"sender_id"`
	SenderRole hierarchy.Role `json:"sender_role"`
	SenderRank int            `json:"sender_rank"`

	Body     string      `json:"body"`
	Type     MessageType `json:"type"`
	Priority Priority    `json:"priority"`

	Department   string `json:"department,omitempty"`
	Municipality string `json:"municipality,omitempty"`

	ThreadID   string     `json:"thread_id,omitempty"`
	AIAssisted bool       `json:"ai_assisted"`
	ReadBy     []types.ID `json:"read_by"`

	CreatedAt time.Time `json:"created_at"`
}

// AudienceScope is the territorial breadth of a routing decision.
type AudienceScope string

const (
	AudienceOrganization AudienceScope = "organization"
	AudienceDepartment   AudienceScope = "department"
	AudienceMunicipality AudienceScope = "municipality"
)

// RoutingDecision is the computed route for one message. Derived on
// demand and never persisted: routing rules may evolve, and a stored
// decision would go stale.
type RoutingDecision struct {
	MinRank int           `json:"min_rank"`
	MaxRank int           `json:"max_rank"`
	Scope   AudienceScope `json:"scope"`

	Department   string `json:"department,omitempty"`
	Municipality string `json:"municipality,omitempty"`

	// TargetRank is set for escalations only: the immediate superior
	// rank the escalation resolver named.
	TargetRank int `json:"target_rank,omitempty"`

	RequiresApproval  bool `json:"requires_approval"`
	NotifyExternal    bool `json:"notify_external"`
	RequiresImmediate bool `json:"requires_immediate"`
}

// SendMessageRequest carries a new message from the UI.
type SendMessageRequest struct {
	Body       string      `json:"body"`
	Type       MessageType `json:"type"`
	Priority   Priority    `json:"priority"`
	ThreadID   string      `json:"thread_id,omitempty"`
	AIAssisted bool        `json:"ai_assisted"`
}

// Filter narrows message listings.
type Filter struct {
	Type     *MessageType
	ThreadID string
	Limit    int
	Offset   int
}
