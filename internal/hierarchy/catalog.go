package hierarchy

import (
	"fmt"
	"sort"

	"github.com/impulso-digital/plataforma/internal/shared/errors"
)

// roleRanks orders the hierarchy; lower = more senior.
var roleRanks = map[Role]int{
	RoleDepartmentalDirector: 1,
	RoleMayor:                2,
	RoleAssemblyDeputy:       3,
	RoleCouncilMember:        4,
	RoleLocalBoard:           5,
	RoleMunicipalCoordinator: 6,
	RoleCommunityLeader:      7,
	RoleDigitalInfluencer:    8,
	RoleCollaborator:         9,
	RoleCitizen:              10,
}

// roleScopes maps each role to its territorial visibility scope.
var roleScopes = map[Role]Scope{
	RoleDepartmentalDirector: ScopeOrgWide,
	RoleMayor:                ScopeMunicipal,
	RoleAssemblyDeputy:       ScopeOrgWide,
	RoleCouncilMember:        ScopeMunicipal,
	RoleLocalBoard:           ScopeLocal,
	RoleMunicipalCoordinator: ScopeMunicipal,
	RoleCommunityLeader:      ScopeLocal,
	RoleDigitalInfluencer:    ScopeLocal,
	RoleCollaborator:         ScopeLocal,
	RoleCitizen:              ScopeLocal,
}

// roleCreatable lists which subordinate accounts each role may
// provision. Creation permission is explicitly enumerated, not
// rank-derived: the director provisions mayors, deputies and council
// members directly, skipping intermediate ranks.
var roleCreatable = map[Role][]Role{
	RoleDepartmentalDirector: {
		RoleMayor, RoleAssemblyDeputy, RoleCouncilMember, RoleLocalBoard,
		RoleMunicipalCoordinator, RoleCommunityLeader, RoleDigitalInfluencer,
		RoleCollaborator,
	},
	RoleMayor: {
		RoleCouncilMember, RoleLocalBoard, RoleMunicipalCoordinator,
		RoleCommunityLeader, RoleCollaborator,
	},
	RoleAssemblyDeputy: {
		RoleMunicipalCoordinator, RoleCommunityLeader, RoleDigitalInfluencer,
		RoleCollaborator,
	},
	RoleCouncilMember: {
		RoleCommunityLeader, RoleDigitalInfluencer, RoleCollaborator,
	},
	RoleLocalBoard: {
		RoleCommunityLeader, RoleCollaborator,
	},
	RoleMunicipalCoordinator: {
		RoleCommunityLeader, RoleDigitalInfluencer, RoleCollaborator,
	},
	RoleCommunityLeader: {
		RoleCollaborator, RoleCitizen,
	},
	RoleDigitalInfluencer: {
		RoleCitizen,
	},
	RoleCollaborator: {},
	RoleCitizen:      {},
}

// Catalog is the verified, immutable role catalog. Construct it once at
// startup with NewCatalog and inject it wherever role lookups are
// needed; lookups on a constructed Catalog are total.
type Catalog struct {
	ranks     map[Role]int
	scopes    map[Role]Scope
	creatable map[Role][]Role
	roles     []Role
	maxRank   int
}

// NewCatalog builds the catalog from the static tables and verifies
// completeness. A role missing from any table is a configuration error
// caught here, at startup, never silently defaulted at request time.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{
		ranks:     roleRanks,
		scopes:    roleScopes,
		creatable: roleCreatable,
	}

	for role := range c.ranks {
		if _, ok := c.scopes[role]; !ok {
			return nil, errors.Configuration(fmt.Sprintf("role %q missing from scope table", role))
		}
		if _, ok := c.creatable[role]; !ok {
			return nil, errors.Configuration(fmt.Sprintf("role %q missing from creatable table", role))
		}
		c.roles = append(c.roles, role)
		if c.ranks[role] > c.maxRank {
			c.maxRank = c.ranks[role]
		}
	}
	for role := range c.scopes {
		if _, ok := c.ranks[role]; !ok {
			return nil, errors.Configuration(fmt.Sprintf("role %q missing from rank table", role))
		}
	}
	for role, targets := range c.creatable {
		if _, ok := c.ranks[role]; !ok {
			return nil, errors.Configuration(fmt.Sprintf("role %q missing from rank table", role))
		}
		for _, t := range targets {
			if _, ok := c.ranks[t]; !ok {
				return nil, errors.Configuration(fmt.Sprintf("creatable target %q of role %q is not a known role", t, role))
			}
		}
	}

	sort.Slice(c.roles, func(i, j int) bool {
		return c.ranks[c.roles[i]] < c.ranks[c.roles[j]]
	})

	return c, nil
}

// Roles returns all roles ordered by rank, most senior first.
func (c *Catalog) Roles() []Role {
	out := make([]Role, len(c.roles))
	copy(out, c.roles)
	return out
}

// Known reports whether the role exists in the catalog.
func (c *Catalog) Known(role Role) bool {
	_, ok := c.ranks[role]
	return ok
}

// RankOf returns the hierarchy rank of a role; lower = more senior.
func (c *Catalog) RankOf(role Role) (int, error) {
	rank, ok := c.ranks[role]
	if !ok {
		return 0, errors.Configuration(fmt.Sprintf("unknown role %q", role))
	}
	return rank, nil
}

// ScopeOf returns the territorial visibility scope of a role.
func (c *Catalog) ScopeOf(role Role) (Scope, error) {
	scope, ok := c.scopes[role]
	if !ok {
		return "", errors.Configuration(fmt.Sprintf("unknown role %q", role))
	}
	return scope, nil
}

// CreatableRolesOf returns the set of roles a given role may provision.
func (c *Catalog) CreatableRolesOf(role Role) ([]Role, error) {
	targets, ok := c.creatable[role]
	if !ok {
		return nil, errors.Configuration(fmt.Sprintf("unknown role %q", role))
	}
	out := make([]Role, len(targets))
	copy(out, targets)
	return out, nil
}

// TopRank is the most senior rank in the hierarchy.
const TopRank = 1

// MaxRank returns the least senior rank in the catalog.
func (c *Catalog) MaxRank() int {
	return c.maxRank
}
