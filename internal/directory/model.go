// Package directory holds the organizational roster: every provisioned
// member, their role, territory and office-holder status, and the
// visibility projection that decides who sees whom.
package directory

import (
	"context"
	"time"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// Member is a person in the organizational directory.
type Member struct {
	ID        types.ID        `json:"id"`
	FullName  string          `json:"full_name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone,omitempty"`
	Role      hierarchy.Role  `json:"role"`
	Territory types.Territory `json:"territory"`

	// Office-holder metadata. Verified office holders come from the
	// electoral registry import and are protected from deletion.
	TermStart            *time.Time `json:"term_start,omitempty"`
	TermEnd              *time.Time `json:"term_end,omitempty"`
	VerifiedOfficeHolder bool       `json:"verified_office_holder"`

	Active      bool   `json:"active"`
	PendingSync bool   `json:"pending_sync"`
	// CreatedBy is the provisioning actor's ID, or "electoral_import"
	// for registry-imported office holders.
	CreatedBy string `json:"created_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Position places the member in the hierarchy for authorization checks.
func (m *Member) Position() hierarchy.Position {
	return hierarchy.Position{Role: m.Role, Territory: m.Territory}
}

// Filter narrows directory listings.
type Filter struct {
	Role         *hierarchy.Role
	Municipality string
	Search       string
	ActiveOnly   bool
	Limit        int
	Offset       int
}

// ProvisionRequest carries the fields needed to create a new member.
type ProvisionRequest struct {
	FullName  string          `json:"full_name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone,omitempty"`
	Role      hierarchy.Role  `json:"role"`
	Territory types.Territory `json:"territory"`
	TermStart *time.Time      `json:"term_start,omitempty"`
	TermEnd   *time.Time      `json:"term_end,omitempty"`
}

// Provisioner creates member accounts. Implemented by the provisioning
// module; the directory handler only routes to it.
type Provisioner interface {
	Provision(ctx context.Context, actorID types.ID, actor hierarchy.Position, req ProvisionRequest) (*Member, error)
}

// UpdateMemberRequest carries partial member updates.
type UpdateMemberRequest struct {
	FullName *string          `json:"full_name,omitempty"`
	Email    *string          `json:"email,omitempty"`
	Phone    *string          `json:"phone,omitempty"`
	Locality *string          `json:"locality,omitempty"`
	TermEnd  *time.Time       `json:"term_end,omitempty"`
}
