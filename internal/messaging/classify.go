package messaging

import (
	"fmt"

	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
)

// Classifier computes routing decisions over the role catalog.
type Classifier struct {
	catalog *hierarchy.Catalog
}

// NewClassifier creates a message classifier
func NewClassifier(catalog *hierarchy.Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// Classify computes the routing decision for a message. Pure over the
// message's immutable fields: re-classifying the same message at any
// later time yields an identical decision. An unrecognized type is a
// configuration error, never a silent default.
func (c *Classifier) Classify(msg *Message) (RoutingDecision, error) {
	switch msg.Type {
	case TypeBroadcast:
		return c.classifyBroadcast(msg)
	case TypeHierarchical:
		return c.classifyHierarchical(msg)
	case TypePeer:
		return c.classifyPeer(msg)
	case TypeEscalation:
		return c.classifyEscalation(msg)
	}
	return RoutingDecision{}, errors.Configuration(fmt.Sprintf("unrecognized message type %q", msg.Type))
}

// classifyBroadcast reaches all ranks. The territorial breadth follows
// the sender's own standing: the top rank addresses the whole
// organization, org-wide roles their department, everyone else their
// municipality. Broadcasts need approval unless the sender holds the
// top rank.
func (c *Classifier) classifyBroadcast(msg *Message) (RoutingDecision, error) {
	decision := RoutingDecision{
		MinRank:        hierarchy.TopRank,
		MaxRank:        c.catalog.MaxRank(),
		NotifyExternal: true,
	}

	scope, err := c.catalog.ScopeOf(msg.SenderRole)
	if err != nil {
		return RoutingDecision{}, err
	}

	switch {
	case msg.SenderRank == hierarchy.TopRank:
		decision.Scope = AudienceOrganization
	case scope == hierarchy.ScopeOrgWide:
		decision.Scope = AudienceDepartment
		decision.Department = msg.Department
	default:
		decision.Scope = AudienceMunicipality
		decision.Municipality = msg.Municipality
	}

	decision.RequiresApproval = msg.SenderRank != hierarchy.TopRank

	return decision, nil
}

// classifyHierarchical cascades to strict subordinates within the
// sender's department.
func (c *Classifier) classifyHierarchical(msg *Message) (RoutingDecision, error) {
	return RoutingDecision{
		MinRank:        msg.SenderRank + 1,
		MaxRank:        c.catalog.MaxRank(),
		Scope:          AudienceDepartment,
		Department:     msg.Department,
		NotifyExternal: true,
	}, nil
}

// classifyPeer reaches exactly the sender's rank within the sender's
// department.
func (c *Classifier) classifyPeer(msg *Message) (RoutingDecision, error) {
	return RoutingDecision{
		MinRank:    msg.SenderRank,
		MaxRank:    msg.SenderRank,
		Scope:      AudienceDepartment,
		Department: msg.Department,
	}, nil
}

// classifyEscalation addresses the immediate superior rank named by the
// escalation resolver, within the sender's department.
func (c *Classifier) classifyEscalation(msg *Message) (RoutingDecision, error) {
	target := TargetRank(msg.SenderRank)
	return RoutingDecision{
		MinRank:           target,
		MaxRank:           target,
		Scope:             AudienceDepartment,
		Department:        msg.Department,
		TargetRank:        target,
		NotifyExternal:    true,
		RequiresImmediate: RequiresImmediate(msg.Priority),
	}, nil
}

// AudienceIncludes reports whether an actor at the given rank and
// territory falls inside a routing decision's audience.
func AudienceIncludes(decision RoutingDecision, rank int, department, municipality string) bool {
	if rank < decision.MinRank || rank > decision.MaxRank {
		return false
	}

	switch decision.Scope {
	case AudienceOrganization:
		return true
	case AudienceDepartment:
		return decision.Department == "" || decision.Department == department
	case AudienceMunicipality:
		return decision.Municipality != "" && decision.Municipality == municipality
	}
	return false
}
