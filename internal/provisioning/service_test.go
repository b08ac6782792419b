package provisioning

import (
	"context"
	"sync"
	"testing"

	"github.com/impulso-digital/plataforma/internal/directory"
	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/events"
	"github.com/impulso-digital/plataforma/internal/shared/logging"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *directory.MemoryStore, *MemoryCredentialStore, *capturePublisher) {
	t.Helper()
	catalog, err := hierarchy.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	engine := hierarchy.NewEngine(catalog)
	store := directory.NewMemoryStore()
	credentials := NewMemoryCredentialStore()
	publisher := &capturePublisher{}
	service := NewService(store, engine, credentials, publisher, logging.Nop())
	return service, store, credentials, publisher
}

func mayorPosition() hierarchy.Position {
	return hierarchy.Position{
		Role: hierarchy.RoleMayor,
		Territory: types.Territory{
			Department:   "Francisco Morazán",
			Municipality: "Distrito Central",
		},
	}
}

func validRequest() directory.ProvisionRequest {
	return directory.ProvisionRequest{
		FullName: "Ana Castro",
		Email:    "ana.castro@example.org",
		Phone:    "+504 9999-1111",
		Role:     hierarchy.RoleCommunityLeader,
		Territory: types.Territory{
			Department:   "Francisco Morazán",
			Municipality: "Distrito Central",
			Locality:     "Suyapa",
		},
	}
}

func TestProvisionCreatesProvisionalMember(t *testing.T) {
	service, store, credentials, publisher := newTestService(t)
	ctx := context.Background()
	actorID := types.NewID()

	member, err := service.Provision(ctx, actorID, mayorPosition(), validRequest())
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if member.VerifiedOfficeHolder {
		t.Error("provisioned member marked as verified office holder")
	}
	if !member.Active {
		t.Error("provisioned member not active")
	}
	if member.PendingSync {
		t.Error("member pending sync despite healthy credential store")
	}
	if member.CreatedBy != actorID.String() {
		t.Errorf("created_by = %q, want %q", member.CreatedBy, actorID)
	}

	stored, err := store.Get(ctx, member.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Email != "ana.castro@example.org" {
		t.Errorf("stored email = %q", stored.Email)
	}

	account, ok := credentials.Account(member.ID.String())
	if !ok {
		t.Fatal("no account registered in credential store")
	}
	if account.Password != TemporaryPassword {
		t.Errorf("account password = %q, want shared temporary credential", account.Password)
	}

	created := publisher.byType("member.created")
	if len(created) != 1 {
		t.Fatalf("member.created events = %d, want 1", len(created))
	}
	if created[0].ActorID != actorID {
		t.Errorf("event actor = %v, want %v", created[0].ActorID, actorID)
	}

	// Subscribers decode the payload back into a Member; the record on
	// the wire must carry the real ID and territory.
	var published directory.Member
	if err := created[0].Decode(&published); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if published.ID != member.ID {
		t.Errorf("event member ID = %q, want %q", published.ID, member.ID)
	}
	if published.Territory.Municipality != "Distrito Central" {
		t.Errorf("event municipality = %q", published.Territory.Municipality)
	}
}

func TestProvisionPermissionGateRunsFirst(t *testing.T) {
	service, store, credentials, _ := newTestService(t)
	ctx := context.Background()

	// Request is invalid too, but the gate must answer first.
	req := directory.ProvisionRequest{Role: hierarchy.RoleMayor}
	actor := hierarchy.Position{Role: hierarchy.RoleCollaborator}

	_, err := service.Provision(ctx, types.NewID(), actor, req)
	if !errors.Is(err, errors.ErrPermissionDenied) {
		t.Fatalf("Provision() error = %v, want permission denied", err)
	}

	members, _ := store.List(ctx, directory.Filter{})
	if len(members) != 0 {
		t.Error("member persisted despite denied provisioning")
	}
	if _, ok := credentials.Account(""); ok {
		t.Error("credential store touched despite denied provisioning")
	}
}

func TestProvisionValidation(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*directory.ProvisionRequest)
		field  string
	}{
		{"missing name", func(r *directory.ProvisionRequest) { r.FullName = " " }, "full_name"},
		{"missing email", func(r *directory.ProvisionRequest) { r.Email = "" }, "email"},
		{"malformed email", func(r *directory.ProvisionRequest) { r.Email = "not-an-address" }, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			_, err := service.Provision(ctx, types.NewID(), mayorPosition(), req)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Fatalf("Provision() error = %v, want invalid input", err)
			}

			appErr := err.(*errors.AppError)
			if _, ok := appErr.Details[tt.field]; !ok {
				t.Errorf("details missing field %q: %v", tt.field, appErr.Details)
			}
		})
	}
}

func TestProvisionDuplicateEmail(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := service.Provision(ctx, types.NewID(), mayorPosition(), validRequest()); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	_, err := service.Provision(ctx, types.NewID(), mayorPosition(), validRequest())
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("Provision() duplicate error = %v, want conflict", err)
	}
}

func TestProvisionSurvivesCredentialStoreOutage(t *testing.T) {
	service, store, credentials, publisher := newTestService(t)
	ctx := context.Background()

	credentials.FailWith(errors.ExternalUnavailable("identity store", nil))

	member, err := service.Provision(ctx, types.NewID(), mayorPosition(), validRequest())
	if err != nil {
		t.Fatalf("Provision() error = %v, want degraded success", err)
	}
	if !member.PendingSync {
		t.Error("member not flagged pending sync")
	}

	pending, err := store.ListPendingSync(ctx)
	if err != nil {
		t.Fatalf("ListPendingSync() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending members = %d, want 1", len(pending))
	}

	if len(publisher.byType("member.created")) != 1 {
		t.Error("member.created not published for degraded provisioning")
	}

	// Store recovers; reconciliation drains the queue.
	credentials.FailWith(nil)
	synced, err := service.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if synced != 1 {
		t.Errorf("synced = %d, want 1", synced)
	}

	pending, _ = store.ListPendingSync(ctx)
	if len(pending) != 0 {
		t.Errorf("pending after reconcile = %d, want 0", len(pending))
	}
	if _, ok := credentials.Account(member.ID.String()); !ok {
		t.Error("account missing after reconciliation")
	}
}

func TestProvisionCredentialConflictTreatedAsSynced(t *testing.T) {
	service, store, credentials, _ := newTestService(t)
	ctx := context.Background()

	credentials.FailWith(errors.Conflict("account already exists in identity store"))

	member, err := service.Provision(ctx, types.NewID(), mayorPosition(), validRequest())
	if err != nil {
		t.Fatalf("Provision() error = %v, want success", err)
	}
	if member.PendingSync {
		t.Error("member flagged pending sync despite existing account")
	}

	pending, _ := store.ListPendingSync(ctx)
	if len(pending) != 0 {
		t.Errorf("pending members = %d, want 0", len(pending))
	}
}

func TestProvisionCredentialRejectionDegrades(t *testing.T) {
	service, store, credentials, _ := newTestService(t)
	ctx := context.Background()

	// The member is in the directory by the time the store answers, so
	// even a rejection must leave them queued, never half-applied.
	credentials.FailWith(errors.InvalidInput("malformed account payload", nil))

	member, err := service.Provision(ctx, types.NewID(), mayorPosition(), validRequest())
	if err != nil {
		t.Fatalf("Provision() error = %v, want degraded success", err)
	}
	if !member.PendingSync {
		t.Error("member not flagged pending sync")
	}

	pending, _ := store.ListPendingSync(ctx)
	if len(pending) != 1 {
		t.Errorf("pending members = %d, want 1", len(pending))
	}
}

// brokenSyncStore fails to persist the pending-sync flag.
type brokenSyncStore struct {
	directory.Store
}

func (s *brokenSyncStore) MarkPendingSync(ctx context.Context, id types.ID) error {
	return errors.Wrap(errors.ErrInternal, "failed to mark member pending sync")
}

func TestProvisionSurvivesPendingSyncMarkFailure(t *testing.T) {
	catalog, err := hierarchy.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	store := &brokenSyncStore{Store: directory.NewMemoryStore()}
	credentials := NewMemoryCredentialStore()
	credentials.FailWith(errors.ExternalUnavailable("identity store", nil))
	service := NewService(store, hierarchy.NewEngine(catalog), credentials, &capturePublisher{}, logging.Nop())

	member, err := service.Provision(context.Background(), types.NewID(), mayorPosition(), validRequest())
	if err != nil {
		t.Fatalf("Provision() error = %v, want member despite bookkeeping failure", err)
	}
	if !member.PendingSync {
		t.Error("member not flagged pending sync")
	}

	// The member itself must have survived.
	if _, err := store.Get(context.Background(), member.ID); err != nil {
		t.Errorf("Get() error = %v", err)
	}
}

func TestReconcileStopsWhileStoreStillDown(t *testing.T) {
	service, _, credentials, _ := newTestService(t)
	ctx := context.Background()

	credentials.FailWith(errors.ExternalUnavailable("identity store", nil))
	if _, err := service.Provision(ctx, types.NewID(), mayorPosition(), validRequest()); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	synced, err := service.Reconcile(ctx)
	if !errors.Is(err, errors.ErrExternalUnavailable) {
		t.Errorf("Reconcile() error = %v, want external unavailable", err)
	}
	if synced != 0 {
		t.Errorf("synced = %d, want 0", synced)
	}
}

func TestReconcileTreatsConflictAsSynced(t *testing.T) {
	service, store, credentials, _ := newTestService(t)
	ctx := context.Background()

	member, err := service.Provision(ctx, types.NewID(), mayorPosition(), validRequest())
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	// Simulate the account having landed while the response was lost.
	if err := store.MarkPendingSync(ctx, member.ID); err != nil {
		t.Fatalf("MarkPendingSync() error = %v", err)
	}
	credentials.FailWith(errors.Conflict("account already exists in identity store"))

	synced, err := service.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if synced != 1 {
		t.Errorf("synced = %d, want 1", synced)
	}
}
