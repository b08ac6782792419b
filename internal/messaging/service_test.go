package messaging

import (
	"context"
	"sync"
	"testing"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/events"
	"github.com/impulso-digital/plataforma/internal/shared/logging"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

type captureNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *captureNotifier) Notify(eventType string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, eventType)
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newMessagingService(t *testing.T) (*Service, *MemoryStore, *captureNotifier) {
	t.Helper()
	catalog, err := hierarchy.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	store := NewMemoryStore()
	notifier := &captureNotifier{}
	service := NewService(store, NewClassifier(catalog), catalog, events.NopPublisher{}, notifier, logging.Nop())
	return service, store, notifier
}

func councilPosition(municipality string) hierarchy.Position {
	return hierarchy.Position{
		Role: hierarchy.RoleCouncilMember,
		Territory: types.Territory{
			Department:   "Francisco Morazán",
			Municipality: municipality,
		},
	}
}

func TestSendDenormalizesSenderRank(t *testing.T) {
	service, store, notifier := newMessagingService(t)
	ctx := context.Background()
	senderID := types.NewID()

	msg, decision, err := service.Send(ctx, senderID, councilPosition("Distrito Central"), SendMessageRequest{
		Body:     "reunión del consejo el viernes",
		Type:     TypeHierarchical,
		Priority: PriorityHigh,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if msg.SenderRank != 4 {
		t.Errorf("sender rank = %d, want 4", msg.SenderRank)
	}
	if msg.ID == "" {
		t.Error("message ID not assigned")
	}
	if decision.MinRank != 5 {
		t.Errorf("decision min rank = %d, want 5", decision.MinRank)
	}

	stored, err := store.Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Department != "Francisco Morazán" {
		t.Errorf("stored department = %q", stored.Department)
	}

	if notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", notifier.count())
	}
}

func TestSendPeerDoesNotNotify(t *testing.T) {
	service, _, notifier := newMessagingService(t)
	ctx := context.Background()

	_, _, err := service.Send(ctx, types.NewID(), councilPosition("Distrito Central"), SendMessageRequest{
		Body: "coordinación entre regidores",
		Type: TypePeer,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if notifier.count() != 0 {
		t.Errorf("notifications = %d, want 0", notifier.count())
	}
}

func TestSendDefaultsPriorityToMedium(t *testing.T) {
	service, _, _ := newMessagingService(t)
	ctx := context.Background()

	msg, _, err := service.Send(ctx, types.NewID(), councilPosition("Distrito Central"), SendMessageRequest{
		Body: "sin prioridad declarada",
		Type: TypePeer,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.Priority != PriorityMedium {
		t.Errorf("priority = %q, want %q", msg.Priority, PriorityMedium)
	}
}

func TestSendValidation(t *testing.T) {
	service, _, _ := newMessagingService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   SendMessageRequest
		field string
	}{
		{"empty body", SendMessageRequest{Type: TypePeer}, "body"},
		{"missing type", SendMessageRequest{Body: "hola"}, "type"},
		{"unknown type", SendMessageRequest{Body: "hola", Type: "rumor"}, "type"},
		{"unknown priority", SendMessageRequest{Body: "hola", Type: TypePeer, Priority: "catastrófica"}, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := service.Send(ctx, types.NewID(), councilPosition("Distrito Central"), tt.req)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Fatalf("Send() error = %v, want invalid input", err)
			}
			appErr := err.(*errors.AppError)
			if _, ok := appErr.Details[tt.field]; !ok {
				t.Errorf("details missing field %q: %v", tt.field, appErr.Details)
			}
		})
	}
}

func TestVisibleMessages(t *testing.T) {
	service, _, _ := newMessagingService(t)
	ctx := context.Background()

	senderID := types.NewID()
	sent, _, err := service.Send(ctx, senderID, councilPosition("Distrito Central"), SendMessageRequest{
		Body: "cascada a subordinados",
		Type: TypeHierarchical,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// A subordinate in the same department is in the audience.
	leader := hierarchy.Position{
		Role: hierarchy.RoleCommunityLeader,
		Territory: types.Territory{
			Department:   "Francisco Morazán",
			Municipality: "Distrito Central",
		},
	}
	visible, err := service.VisibleMessages(ctx, types.NewID(), leader, Filter{})
	if err != nil {
		t.Fatalf("VisibleMessages() error = %v", err)
	}
	if len(visible) != 1 || visible[0].ID != sent.ID {
		t.Errorf("subordinate does not see hierarchical cascade: %v", visible)
	}

	// A superior is outside the strict-subordinate range.
	mayor := hierarchy.Position{
		Role: hierarchy.RoleMayor,
		Territory: types.Territory{
			Department:   "Francisco Morazán",
			Municipality: "Distrito Central",
		},
	}
	visible, err = service.VisibleMessages(ctx, types.NewID(), mayor, Filter{})
	if err != nil {
		t.Fatalf("VisibleMessages() error = %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("superior sees hierarchical cascade: %v", visible)
	}

	// A subordinate in another department is filtered out.
	outsider := hierarchy.Position{
		Role: hierarchy.RoleCommunityLeader,
		Territory: types.Territory{
			Department:   "Choluteca",
			Municipality: "Choluteca",
		},
	}
	visible, err = service.VisibleMessages(ctx, types.NewID(), outsider, Filter{})
	if err != nil {
		t.Fatalf("VisibleMessages() error = %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("other-department actor sees cascade: %v", visible)
	}

	// The sender always sees their own message.
	visible, err = service.VisibleMessages(ctx, senderID, councilPosition("Distrito Central"), Filter{})
	if err != nil {
		t.Fatalf("VisibleMessages() error = %v", err)
	}
	if len(visible) != 1 {
		t.Errorf("sender does not see own message: %v", visible)
	}
}

func TestMarkRead(t *testing.T) {
	service, store, _ := newMessagingService(t)
	ctx := context.Background()

	sent, _, err := service.Send(ctx, types.NewID(), councilPosition("Distrito Central"), SendMessageRequest{
		Body: "cascada",
		Type: TypeHierarchical,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	readerID := types.NewID()
	reader := hierarchy.Position{
		Role:      hierarchy.RoleCollaborator,
		Territory: types.Territory{Department: "Francisco Morazán"},
	}

	if err := service.MarkRead(ctx, readerID, reader, sent.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	// Idempotent.
	if err := service.MarkRead(ctx, readerID, reader, sent.ID); err != nil {
		t.Fatalf("MarkRead() second call error = %v", err)
	}

	stored, err := store.Get(ctx, sent.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(stored.ReadBy) != 1 || stored.ReadBy[0] != readerID {
		t.Errorf("read_by = %v, want exactly [%v]", stored.ReadBy, readerID)
	}

	// Outside the audience: denied.
	strangerID := types.NewID()
	stranger := hierarchy.Position{
		Role:      hierarchy.RoleMayor,
		Territory: types.Territory{Department: "Choluteca", Municipality: "Choluteca"},
	}
	err = service.MarkRead(ctx, strangerID, stranger, sent.ID)
	if !errors.Is(err, errors.ErrPermissionDenied) {
		t.Errorf("MarkRead() outside audience error = %v, want permission denied", err)
	}
}

func TestRoutingOnDemand(t *testing.T) {
	service, _, _ := newMessagingService(t)
	ctx := context.Background()

	sent, sendDecision, err := service.Send(ctx, types.NewID(), councilPosition("Distrito Central"), SendMessageRequest{
		Body:     "se necesita apoyo urgente",
		Type:     TypeEscalation,
		Priority: PriorityUrgent,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// On-demand classification matches the decision computed at send.
	decision, err := service.Routing(ctx, sent.ID)
	if err != nil {
		t.Fatalf("Routing() error = %v", err)
	}
	if decision != sendDecision {
		t.Errorf("routing drifted: %+v vs %+v", decision, sendDecision)
	}
	if decision.TargetRank != 3 || !decision.RequiresImmediate {
		t.Errorf("decision = %+v, want target 3 immediate", decision)
	}

	_, err = service.Routing(ctx, "01UNKNOWN")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Routing(unknown) error = %v, want not found", err)
	}
}
