package hierarchy

import (
	"testing"

	"github.com/impulso-digital/plataforma/internal/shared/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return NewEngine(c)
}

func TestCanCreate(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name   string
		actor  Role
		target Role
		want   bool
	}{
		{"director creates mayor", RoleDepartmentalDirector, RoleMayor, true},
		{"director creates assembly deputy", RoleDepartmentalDirector, RoleAssemblyDeputy, true},
		{"director creates council member", RoleDepartmentalDirector, RoleCouncilMember, true},
		{"director creates collaborator", RoleDepartmentalDirector, RoleCollaborator, true},
		{"director cannot create citizen", RoleDepartmentalDirector, RoleCitizen, false},
		{"director cannot create director", RoleDepartmentalDirector, RoleDepartmentalDirector, false},
		{"mayor creates council member", RoleMayor, RoleCouncilMember, true},
		{"mayor cannot create digital influencer", RoleMayor, RoleDigitalInfluencer, false},
		{"mayor cannot create mayor", RoleMayor, RoleMayor, false},
		{"deputy creates municipal coordinator", RoleAssemblyDeputy, RoleMunicipalCoordinator, true},
		{"deputy cannot create council member", RoleAssemblyDeputy, RoleCouncilMember, false},
		{"community leader creates citizen", RoleCommunityLeader, RoleCitizen, true},
		{"digital influencer creates citizen", RoleDigitalInfluencer, RoleCitizen, true},
		{"collaborator creates nobody", RoleCollaborator, RoleCitizen, false},
		{"citizen creates nobody", RoleCitizen, RoleCitizen, false},
		{"unknown actor denied", Role("intern"), RoleCitizen, false},
		{"unknown target denied", RoleDepartmentalDirector, Role("intern"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.CanCreate(tt.actor, tt.target); got != tt.want {
				t.Errorf("CanCreate(%q, %q) = %v, want %v", tt.actor, tt.target, got, tt.want)
			}
		})
	}
}

func TestCanCreateIsNotRankDerived(t *testing.T) {
	e := newTestEngine(t)

	// Local board (rank 5) outranks digital influencer (rank 8) but the
	// creatable set does not include it. Rank superiority alone must not
	// grant creation.
	if e.CanCreate(RoleLocalBoard, RoleDigitalInfluencer) {
		t.Error("CanCreate granted by rank superiority outside the creatable set")
	}
}

func TestCanView(t *testing.T) {
	e := newTestEngine(t)

	suyapa := types.Territory{Department: "Francisco Morazán", Municipality: "Distrito Central", Locality: "Suyapa"}
	comayaguela := types.Territory{Department: "Francisco Morazán", Municipality: "Distrito Central", Locality: "Comayagüela"}
	choluteca := types.Territory{Department: "Choluteca", Municipality: "Choluteca"}
	unassigned := types.Territory{Department: "Francisco Morazán"}

	tests := []struct {
		name   string
		actor  Position
		target Position
		want   bool
	}{
		{
			"superior sees subordinate across municipalities",
			Position{RoleMayor, suyapa},
			Position{RoleCommunityLeader, choluteca},
			true,
		},
		{
			"director sees everyone",
			Position{RoleDepartmentalDirector, unassigned},
			Position{RoleCitizen, choluteca},
			true,
		},
		{
			"org-wide deputy sees peer deputy elsewhere",
			Position{RoleAssemblyDeputy, unassigned},
			Position{RoleAssemblyDeputy, choluteca},
			true,
		},
		{
			"org-wide deputy sees superior mayor",
			Position{RoleAssemblyDeputy, unassigned},
			Position{RoleMayor, choluteca},
			true,
		},
		{
			"municipal actor sees superior in own municipality",
			Position{RoleMunicipalCoordinator, suyapa},
			Position{RoleMayor, comayaguela},
			true,
		},
		{
			"municipal actor blind to superior elsewhere",
			Position{RoleMunicipalCoordinator, suyapa},
			Position{RoleMayor, choluteca},
			false,
		},
		{
			"local peer sees equal rank in same municipality",
			Position{RoleCommunityLeader, suyapa},
			Position{RoleCommunityLeader, comayaguela},
			true,
		},
		{
			"local peer blind to equal rank elsewhere",
			Position{RoleCommunityLeader, suyapa},
			Position{RoleCommunityLeader, choluteca},
			false,
		},
		{
			"local actor blind to superior in same municipality",
			Position{RoleCommunityLeader, suyapa},
			Position{RoleCouncilMember, suyapa},
			false,
		},
		{
			"subordinate blind upward across municipalities",
			Position{RoleCitizen, suyapa},
			Position{RoleMayor, choluteca},
			false,
		},
		{
			"no shared municipality when both unassigned",
			Position{RoleCollaborator, types.Territory{}},
			Position{RoleCollaborator, types.Territory{}},
			false,
		},
		{
			"unknown actor role denied",
			Position{Role("intern"), suyapa},
			Position{RoleCitizen, suyapa},
			false,
		},
		{
			"unknown target role denied",
			Position{RoleMayor, suyapa},
			Position{Role("intern"), suyapa},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.CanView(tt.actor, tt.target); got != tt.want {
				t.Errorf("CanView(%v, %v) = %v, want %v", tt.actor, tt.target, got, tt.want)
			}
		})
	}
}

// Every strictly more senior role must see every strictly less senior
// role regardless of territory.
func TestSuperiorsAlwaysSeeSubordinates(t *testing.T) {
	e := newTestEngine(t)
	c := e.Catalog()

	here := types.Territory{Municipality: "Distrito Central"}
	elsewhere := types.Territory{Municipality: "San Pedro Sula"}

	for _, actor := range c.Roles() {
		actorRank, _ := c.RankOf(actor)
		for _, target := range c.Roles() {
			targetRank, _ := c.RankOf(target)
			if actorRank >= targetRank {
				continue
			}
			if !e.CanView(Position{actor, here}, Position{target, elsewhere}) {
				t.Errorf("CanView(%q rank %d, %q rank %d across territories) = false, want true",
					actor, actorRank, target, targetRank)
			}
		}
	}
}

// CanView must never panic or misbehave on any role pairing; it is
// total over the catalog.
func TestCanViewTotalOverCatalog(t *testing.T) {
	e := newTestEngine(t)
	c := e.Catalog()

	tr := types.Territory{Municipality: "Choluteca"}
	for _, actor := range c.Roles() {
		for _, target := range c.Roles() {
			_ = e.CanView(Position{actor, tr}, Position{target, tr})
		}
	}
}
