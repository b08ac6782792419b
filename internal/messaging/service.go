package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/events"
	"github.com/impulso-digital/plataforma/internal/shared/ids"
	"github.com/impulso-digital/plataforma/internal/shared/metrics"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// Notifier triggers the external notification/automation dispatcher.
// Fire-and-forget: implementations must never block or fail the
// triggering action.
type Notifier interface {
	Notify(eventType string, payload map[string]any)
}

// Service persists, classifies and routes messages.
type Service struct {
	store      Store
	classifier *Classifier
	catalog    *hierarchy.Catalog
	publisher  events.Publisher
	notifier   Notifier
	logger     zerolog.Logger
}

// NewService creates a messaging service
func NewService(store Store, classifier *Classifier, catalog *hierarchy.Catalog, publisher events.Publisher, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		catalog:    catalog,
		publisher:  publisher,
		notifier:   notifier,
		logger:     logger.With().Str("component", "messaging").Logger(),
	}
}

// Send validates, persists and routes a new message. The sender's rank
// is denormalized onto the record at send time so routing stays stable
// even if the sender's role later changes.
func (s *Service) Send(ctx context.Context, actorID types.ID, actor hierarchy.Position, req SendMessageRequest) (*Message, RoutingDecision, error) {
	if err := validateSend(req); err != nil {
		return nil, RoutingDecision{}, err
	}

	rank, err := s.catalog.RankOf(actor.Role)
	if err != nil {
		return nil, RoutingDecision{}, err
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	msg := &Message{
		ID:           ids.New(),
		SenderID:     actorID,
		SenderRole:   actor.Role,
		SenderRank:   rank,
		Body:         req.Body,
		Type:         req.Type,
		Priority:     priority,
		Department:   actor.Territory.Department,
		Municipality: actor.Territory.Municipality,
		ThreadID:     req.ThreadID,
		AIAssisted:   req.AIAssisted,
		ReadBy:       []types.ID{},
		CreatedAt:    time.Now().UTC(),
	}

	decision, err := s.classifier.Classify(msg)
	if err != nil {
		return nil, RoutingDecision{}, err
	}

	if err := s.store.Insert(ctx, msg); err != nil {
		return nil, RoutingDecision{}, err
	}

	metrics.RecordMessageRouted(string(msg.Type), string(msg.Priority))
	s.publishCreated(ctx, msg)

	if decision.NotifyExternal {
		s.notifier.Notify("message."+string(msg.Type), map[string]any{
			"message_id":         msg.ID,
			"sender_rank":        msg.SenderRank,
			"priority":           msg.Priority,
			"department":         msg.Department,
			"target_rank":        decision.TargetRank,
			"requires_immediate": decision.RequiresImmediate,
		})
	}

	return msg, decision, nil
}

func validateSend(req SendMessageRequest) error {
	details := make(map[string]string)

	if req.Body == "" {
		details["body"] = "body is required"
	}
	switch req.Type {
	case TypeBroadcast, TypeHierarchical, TypePeer, TypeEscalation:
	case "":
		details["type"] = "type is required"
	default:
		details["type"] = fmt.Sprintf("unknown message type %q", req.Type)
	}
	if req.Priority != "" && !KnownPriority(req.Priority) {
		details["priority"] = fmt.Sprintf("unknown priority %q", req.Priority)
	}

	if len(details) > 0 {
		return errors.InvalidInput("validation failed", details)
	}
	return nil
}

func (s *Service) publishCreated(ctx context.Context, msg *Message) {
	event, err := events.NewEvent("message.created", "messaging", msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build message.created event")
		return
	}

	event = event.WithActor(msg.SenderID, string(msg.SenderRole))
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).
			Str("message_id", msg.ID).
			Msg("failed to publish message.created")
	}
}

// VisibleMessages returns messages the actor either sent or falls
// inside the audience of. Each message is re-classified on demand;
// classification is pure, so this is safe and always current.
func (s *Service) VisibleMessages(ctx context.Context, actorID types.ID, actor hierarchy.Position, filter Filter) ([]Message, error) {
	rank, err := s.catalog.RankOf(actor.Role)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	visible := make([]Message, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		if msg.SenderID == actorID {
			visible = append(visible, *msg)
			continue
		}

		decision, err := s.classifier.Classify(msg)
		if err != nil {
			return nil, err
		}
		if AudienceIncludes(decision, rank, actor.Territory.Department, actor.Territory.Municipality) {
			visible = append(visible, *msg)
		}
	}

	return visible, nil
}

// Routing returns the on-demand routing decision for a stored message.
func (s *Service) Routing(ctx context.Context, id string) (RoutingDecision, error) {
	msg, err := s.store.Get(ctx, id)
	if err != nil {
		return RoutingDecision{}, err
	}
	return s.classifier.Classify(msg)
}

// MarkRead records the actor as a reader of a visible message.
func (s *Service) MarkRead(ctx context.Context, actorID types.ID, actor hierarchy.Position, id string) error {
	msg, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if msg.SenderID != actorID {
		rank, err := s.catalog.RankOf(actor.Role)
		if err != nil {
			return err
		}
		decision, err := s.classifier.Classify(msg)
		if err != nil {
			return err
		}
		if !AudienceIncludes(decision, rank, actor.Territory.Department, actor.Territory.Municipality) {
			return errors.PermissionDenied("message is not addressed to this actor")
		}
	}

	return s.store.MarkRead(ctx, id, actorID)
}
