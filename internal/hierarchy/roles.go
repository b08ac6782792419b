// Package hierarchy defines the organizational role catalog and the
// authorization engine built on it.
package hierarchy

// Role represents a position in the organizational hierarchy.
type Role string

const (
	RoleDepartmentalDirector Role = "departmental_director" // Senior-most operational role
	RoleMayor                Role = "mayor"                 // Municipal executive
	RoleAssemblyDeputy       Role = "assembly_deputy"       // Represents the whole department
	RoleCouncilMember        Role = "council_member"        // Municipal council
	RoleLocalBoard           Role = "local_board"           // Community development board
	RoleMunicipalCoordinator Role = "municipal_coordinator" // Campaign coordination per municipality
	RoleCommunityLeader      Role = "community_leader"      // Neighborhood organizer
	RoleDigitalInfluencer    Role = "digital_influencer"    // Social media outreach
	RoleCollaborator         Role = "collaborator"          // General volunteer
	RoleCitizen              Role = "citizen"               // Registered sympathizer
)

// Scope represents the territorial breadth of organizational data a
// role is entitled to see.
type Scope string

const (
	ScopeOrgWide   Scope = "org_wide"
	ScopeMunicipal Scope = "municipal"
	ScopeLocal     Scope = "local"
)
