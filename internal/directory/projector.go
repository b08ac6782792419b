package directory

import (
	"context"
	"fmt"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// Project filters a member list down to what the actor may see. Pure
// composition over the authorization engine: the projector never adds a
// visibility rule of its own.
func Project(engine *hierarchy.Engine, actor hierarchy.Position, members []Member) []Member {
	visible := make([]Member, 0, len(members))
	for _, member := range members {
		if engine.CanView(actor, member.Position()) {
			visible = append(visible, member)
		}
	}
	return visible
}

// Service applies authorization on top of the member store.
type Service struct {
	store  Store
	engine *hierarchy.Engine
}

// NewService creates a directory service
func NewService(store Store, engine *hierarchy.Engine) *Service {
	return &Service{store: store, engine: engine}
}

// VisibleMembers returns the active roster visible to the actor.
//
// Scope narrows the query first: org-wide roles see the full roster,
// municipal roles their whole municipality, local roles only their own
// chain downward within the municipality. The CanView filter then runs
// over whatever the query returned, so the projector can never show
// more than the engine allows. An actor with municipal or local scope
// and no municipality gets an empty roster, not an error.
func (s *Service) VisibleMembers(ctx context.Context, actor hierarchy.Position, filter Filter) ([]Member, error) {
	scope, err := s.engine.Catalog().ScopeOf(actor.Role)
	if err != nil {
		return nil, err
	}

	filter.ActiveOnly = true

	switch scope {
	case hierarchy.ScopeOrgWide:
		// Caller-supplied municipality filter stands.

	case hierarchy.ScopeMunicipal, hierarchy.ScopeLocal:
		if !actor.Territory.HasMunicipality() {
			return []Member{}, nil
		}
		filter.Municipality = actor.Territory.Municipality
	}

	members, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if scope == hierarchy.ScopeLocal {
		members, err = s.selfAndSubordinates(actor, members)
		if err != nil {
			return nil, err
		}
	}

	return Project(s.engine, actor, members), nil
}

// selfAndSubordinates keeps members at the actor's rank or below.
// Local-scope actors see only their own chain downward; the municipal
// roster above them stays hidden.
func (s *Service) selfAndSubordinates(actor hierarchy.Position, members []Member) ([]Member, error) {
	catalog := s.engine.Catalog()
	actorRank, err := catalog.RankOf(actor.Role)
	if err != nil {
		return nil, err
	}

	kept := members[:0]
	for _, member := range members {
		rank, err := catalog.RankOf(member.Role)
		if err != nil {
			return nil, err
		}
		if rank >= actorRank {
			kept = append(kept, member)
		}
	}
	return kept, nil
}

// GetMember returns a single member if the actor may see them.
func (s *Service) GetMember(ctx context.Context, actor hierarchy.Position, id types.ID) (*Member, error) {
	member, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.CanView(actor, member.Position()) {
		return nil, errors.PermissionDenied(fmt.Sprintf("role %q may not view this member", actor.Role))
	}
	return member, nil
}

// UpdateMember applies partial updates. Management follows provisioning
// rights: only a role that could create the member's role may edit it.
func (s *Service) UpdateMember(ctx context.Context, actor hierarchy.Position, id types.ID, req UpdateMemberRequest) (*Member, error) {
	member, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.engine.CanCreate(actor.Role, member.Role) {
		return nil, errors.PermissionDenied(fmt.Sprintf("role %q may not manage role %q", actor.Role, member.Role))
	}

	if req.FullName != nil {
		member.FullName = *req.FullName
	}
	if req.Email != nil {
		member.Email = *req.Email
	}
	if req.Phone != nil {
		member.Phone = *req.Phone
	}
	if req.Locality != nil {
		member.Territory.Locality = *req.Locality
	}
	if req.TermEnd != nil {
		member.TermEnd = req.TermEnd
	}

	if err := s.store.Update(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// DeactivateMember marks a member inactive. Allowed for verified office
// holders: deactivation keeps the record and is the only way to retire
// them.
func (s *Service) DeactivateMember(ctx context.Context, actor hierarchy.Position, id types.ID) error {
	member, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if !s.engine.CanCreate(actor.Role, member.Role) {
		return errors.PermissionDenied(fmt.Sprintf("role %q may not manage role %q", actor.Role, member.Role))
	}

	return s.store.Deactivate(ctx, id)
}

// DeleteMember removes a member record. Verified office holders are
// never deletable, regardless of who asks; deactivate instead.
func (s *Service) DeleteMember(ctx context.Context, actor hierarchy.Position, id types.ID) error {
	member, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if member.VerifiedOfficeHolder {
		return errors.PermissionDenied("verified office holders cannot be deleted, only deactivated")
	}

	if !s.engine.CanCreate(actor.Role, member.Role) {
		return errors.PermissionDenied(fmt.Sprintf("role %q may not manage role %q", actor.Role, member.Role))
	}

	return s.store.Delete(ctx, id)
}
