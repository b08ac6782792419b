// Package provisioning creates member accounts: permission gate,
// validation, directory insert, credential registration and the
// pending-sync reconciliation loop.
package provisioning

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/directory"
	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/events"
	"github.com/impulso-digital/plataforma/internal/shared/metrics"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// TemporaryPassword is the documented shared credential every new
// account starts with. Members are forced to change it on first login
// by the identity store.
const TemporaryPassword = "Bienvenido2026!"

// Service provisions member accounts.
type Service struct {
	store       directory.Store
	engine      *hierarchy.Engine
	credentials CredentialStore
	publisher   events.Publisher
	logger      zerolog.Logger
}

// NewService creates a provisioning service
func NewService(store directory.Store, engine *hierarchy.Engine, credentials CredentialStore, publisher events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		engine:      engine,
		credentials: credentials,
		publisher:   publisher,
		logger:      logger.With().Str("component", "provisioning").Logger(),
	}
}

// Provision creates a new member. Order matters: the permission gate
// runs first, so an unauthorized caller learns nothing about what the
// request body would have failed on.
func (s *Service) Provision(ctx context.Context, actorID types.ID, actor hierarchy.Position, req directory.ProvisionRequest) (*directory.Member, error) {
	if !s.engine.CanCreate(actor.Role, req.Role) {
		return nil, errors.PermissionDenied(fmt.Sprintf("role %q may not create role %q", actor.Role, req.Role))
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	member := &directory.Member{
		ID:        types.NewID(),
		FullName:  strings.TrimSpace(req.FullName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     strings.TrimSpace(req.Phone),
		Role:      req.Role,
		Territory: req.Territory,
		TermStart: req.TermStart,
		TermEnd:   req.TermEnd,

		// Always provisional: office-holder verification comes only
		// from the electoral registry import.
		VerifiedOfficeHolder: false,
		Active:               true,
		CreatedBy:            actorID.String(),
		CreatedAt:            time.Now().UTC(),
	}

	if err := s.store.Insert(ctx, member); err != nil {
		return nil, err
	}

	if err := s.registerCredentials(ctx, member); err != nil {
		switch {
		case errors.Is(err, errors.ErrConflict):
			// The account already exists in the identity store, which
			// means a previous registration landed; the member is
			// synced.

		default:
			// The member is already in the directory; whatever the
			// credential failure was, it must not produce a member with
			// no credential and no pending flag. Queue for
			// reconciliation instead of failing.
			member.PendingSync = true
			s.logger.Warn().Err(err).
				Str("member_id", member.ID.String()).
				Msg("credential registration failed, member queued for reconciliation")

			if markErr := s.store.MarkPendingSync(ctx, member.ID); markErr != nil {
				s.logger.Error().Err(markErr).
					Str("member_id", member.ID.String()).
					Msg("failed to persist pending-sync flag")
			}
		}
	}

	metrics.RecordMemberProvisioned(string(member.Role), member.PendingSync)
	s.publishCreated(ctx, actorID, actor, member)

	return member, nil
}

func validate(req directory.ProvisionRequest) error {
	details := make(map[string]string)

	if strings.TrimSpace(req.FullName) == "" {
		details["full_name"] = "full_name is required"
	}
	if strings.TrimSpace(req.Email) == "" {
		details["email"] = "email is required"
	} else if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		details["email"] = "email is not a valid address"
	}
	if req.Role == "" {
		details["role"] = "role is required"
	}

	if len(details) > 0 {
		return errors.InvalidInput("validation failed", details)
	}
	return nil
}

func (s *Service) registerCredentials(ctx context.Context, member *directory.Member) error {
	return s.credentials.CreateAccount(ctx, Account{
		MemberID: member.ID.String(),
		Email:    member.Email,
		Password: TemporaryPassword,
		Role:     string(member.Role),
	})
}

func (s *Service) publishCreated(ctx context.Context, actorID types.ID, actor hierarchy.Position, member *directory.Member) {
	// The full member record goes on the wire: subscribers (the
	// realtime bridge in particular) decode it back into a Member and
	// run visibility checks against its territory.
	event, err := events.NewEvent("member.created", "provisioning", member)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build member.created event")
		return
	}

	event = event.WithActor(actorID, string(actor.Role))
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).
			Str("member_id", member.ID.String()).
			Msg("failed to publish member.created")
	}
}

// Reconcile retries credential registration for members provisioned
// while the identity store was unreachable. Returns how many were
// synced.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	pending, err := s.store.ListPendingSync(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for i := range pending {
		member := &pending[i]
		if err := s.registerCredentials(ctx, member); err != nil {
			if errors.Is(err, errors.ErrExternalUnavailable) {
				// Still down; later members would fail the same way.
				return synced, err
			}
			if errors.Is(err, errors.ErrConflict) {
				// Account made it through on a previous attempt.
				if err := s.store.MarkSynced(ctx, member.ID); err != nil {
					return synced, err
				}
				synced++
				continue
			}
			return synced, err
		}

		if err := s.store.MarkSynced(ctx, member.ID); err != nil {
			return synced, err
		}
		synced++
	}

	return synced, nil
}

// RunReconciler reconciles pending members on an interval until ctx is
// canceled.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			synced, err := s.Reconcile(ctx)
			if err != nil && !errors.Is(err, errors.ErrExternalUnavailable) {
				s.logger.Error().Err(err).Msg("credential reconciliation failed")
				continue
			}
			if synced > 0 {
				s.logger.Info().Int("synced", synced).Msg("reconciled pending members")
			}
		}
	}
}
