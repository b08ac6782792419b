package hierarchy

import (
	"github.com/impulso-digital/plataforma/internal/shared/metrics"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// Position is a role placed in the organizational geography. Both
// actors and directory members authorize as positions.
type Position struct {
	Role      Role
	Territory types.Territory
}

// Engine answers authorization questions over the role catalog.
type Engine struct {
	catalog *Catalog
}

// NewEngine creates an authorization engine over a verified catalog.
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog exposes the underlying catalog for advisory lookups.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// CanCreate reports whether an actor role may provision an account with
// the target role. This consults the explicit creatable set, never a
// rank inequality, because the catalog allows skip-level exceptions.
func (e *Engine) CanCreate(actorRole, targetRole Role) bool {
	targets, ok := e.catalog.creatable[actorRole]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == targetRole {
			metrics.RecordAuthorizationDecision("create", true)
			return true
		}
	}
	metrics.RecordAuthorizationDecision("create", false)
	return false
}

// CanView reports whether the actor may observe the target. Three
// independent grants, any one suffices:
//
//  1. strict rank superiority: superiors always see subordinates,
//     regardless of territory;
//  2. shared municipality, for peers of equal rank and for
//     municipal-scope actors, who see their whole municipal roster
//     including superiors physically in that municipality;
//  3. org-wide scope.
func (e *Engine) CanView(actor, target Position) bool {
	actorRank, ok := e.catalog.ranks[actor.Role]
	if !ok {
		return false
	}
	targetRank, ok := e.catalog.ranks[target.Role]
	if !ok {
		return false
	}
	actorScope := e.catalog.scopes[actor.Role]

	superior := actorRank < targetRank

	sameMunicipality := actor.Territory.SameMunicipality(target.Territory) &&
		(actorRank == targetRank || actorScope == ScopeMunicipal)

	orgWide := actorScope == ScopeOrgWide

	allowed := superior || sameMunicipality || orgWide
	metrics.RecordAuthorizationDecision("view", allowed)
	return allowed
}

// CreatableRoles returns the roles the given role may provision.
// Advisory passthrough for UI enumeration (role pickers); the only
// engine query allowed without an actor context.
func (e *Engine) CreatableRoles(actorRole Role) ([]Role, error) {
	return e.catalog.CreatableRolesOf(actorRole)
}
