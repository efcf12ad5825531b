// Package reconcilers projects the landing-zone configuration onto the
// resources of legacy ASEA stacks. Every reconciler owns one resource family:
// it adopts the legacy resources that still have a configuration entry,
// rewrites their template nodes in place, requests the SSM parameters later
// stacks read, and flags the rest for deletion.
package reconcilers

import (
	"context"
	"slices"

	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// Categories group reconcilers in listings.
const (
	CategoryIAM            = "iam"
	CategoryNetwork        = "network"
	CategoryTransitGateway = "transit-gateway"
	CategoryDNS            = "dns"
	CategorySecurity       = "security"
	CategorySSM            = "ssm"
)

// Metadata describes a reconciler.
type Metadata struct {
	Name          string
	Description   string
	Category      string
	Phases        []types.Phase
	ResourceTypes []string
}

// Handles reports whether stacks of phase are in scope.
func (m Metadata) Handles(phase types.Phase) bool {
	return slices.Contains(m.Phases, phase)
}

type Reconciler interface {
	Metadata() Metadata
	Reconcile(ctx context.Context, rc *Context) error
}

// All returns every reconciler in execution order. Later reconcilers rely on
// what earlier ones recorded on the context: roles and groups reference the
// customer policies adopted before them, users the groups.
func All() []Reconciler {
	return []Reconciler{
		&TransitGateways{},
		&ManagedPolicies{},
		&Roles{},
		&Groups{},
		&Users{},
		&Vpcs{},
		&Subnets{},
		&RouteTables{},
		&NatGateways{},
		&SecurityGroups{},
		&NetworkAcls{},
		&TransitGatewayAttachments{},
		&TransitGatewayAssociations{},
		&TransitGatewayPeering{},
		&VpcPeering{},
		&SharedSecurityGroups{},
		&VpcEndpoints{},
		&ResolverEndpoints{},
		&QueryLogging{},
		&NetworkFirewall{},
		&LoadBalancers{},
		&TransitGatewayRoutes{},
		&SsmInventory{},
	}
}
