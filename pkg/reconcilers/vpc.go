package reconcilers

import (
	"context"
	"slices"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

var vpcPhases = []types.Phase{1}

// vpcMatch is a configured VPC and the legacy record backing it. ASEA puts
// each VPC in its own nested stack, so store is usually a nested store and
// holds the VPC's children.
type vpcMatch struct {
	cfg   *config.VpcConfig
	store *inventory.Store
	rec   *types.Record
}

func (m vpcMatch) children(resourceType string) []*types.Record {
	return inVpc(m.store, m.store.ByType(resourceType), m.rec)
}

// localVpcs matches the VPCs configured for the stack's account and region.
// Only the VPC reconciler reports the ones without a legacy counterpart.
func (rc *Context) localVpcs(report bool) ([]vpcMatch, error) {
	var out []vpcMatch
	for _, cfg := range rc.Config.Network.VpcsIn(rc.Config.Accounts, rc.AccountName, rc.Stack.Region) {
		store, rec := rc.findVpc(cfg.Name)
		if rec == nil {
			if report {
				if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("vpc "+cfg.Name)); err != nil {
					return nil, err
				}
			}
			continue
		}
		out = append(out, vpcMatch{cfg: cfg, store: store, rec: rec})
	}
	return out, nil
}

type Vpcs struct{}

func (r *Vpcs) Metadata() Metadata {
	return Metadata{
		Name:        "vpcs",
		Description: "Adopt VPCs, additional CIDR blocks, internet and virtual private gateways",
		Category:    CategoryNetwork,
		Phases:      vpcPhases,
		ResourceTypes: []string{
			types.CfnVpc, types.CfnVpcCidrBlock, types.CfnInternetGateway,
			types.CfnVpnGateway, types.CfnVpcGatewayAttachment,
		},
	}
}

func (r *Vpcs) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	vpcs, err := rc.localVpcs(true)
	if err != nil {
		return err
	}

	adopted := make(map[string]bool)
	for _, m := range vpcs {
		if err := r.reconcileVpc(rc, m); err != nil {
			return err
		}
		adopted[m.store.Key()+"#"+m.rec.LogicalResourceID] = true
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnVpc) {
			if adopted[store.Key()+"#"+rec.LogicalResourceID] {
				continue
			}
			if err := r.deleteVpc(rc, store, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Vpcs) reconcileVpc(rc *Context, m vpcMatch) error {
	if len(m.cfg.Cidrs) > 0 {
		if legacy, ok := m.rec.StringProperty("CidrBlock"); ok && legacy != m.cfg.Cidrs[0] {
			// the primary block is fixed for the life of the VPC
			rc.Logger.Warn("primary cidr differs from configuration", "vpc", m.cfg.Name, "legacy", legacy, "configured", m.cfg.Cidrs[0])
		}
	}

	var additional []string
	if len(m.cfg.Cidrs) > 1 {
		additional = m.cfg.Cidrs[1:]
	}
	for _, block := range m.store.FilterByRef(types.CfnVpcCidrBlock, "VpcId", m.rec.LogicalResourceID) {
		cidr, _ := block.StringProperty("CidrBlock")
		if slices.Contains(additional, cidr) {
			rc.Adopt(m.store, block, types.AseaVpcCidr)
			continue
		}
		if err := rc.Delete(m.store, block.LogicalResourceID); err != nil {
			return err
		}
	}

	if err := r.gateway(rc, m, "InternetGatewayId", m.cfg.InternetGateway, types.AseaInternetGateway, params.InternetGateway); err != nil {
		return err
	}
	if err := r.gateway(rc, m, "VpnGatewayId", m.cfg.VirtualPrivateGateway != nil, types.AseaVpnGateway, params.VirtualPrivateGateway); err != nil {
		return err
	}

	rc.Adopt(m.store, m.rec, types.AseaVpc)
	rc.Emit(m.store, types.NewRef(m.rec.LogicalResourceID), params.Vpc, m.cfg.Name)
	return nil
}

// gateway keeps or removes the gateway attached through prop.
func (r *Vpcs) gateway(rc *Context, m vpcMatch, prop string, wanted bool, resourceType types.AseaResourceType, kind params.Kind) error {
	for _, att := range m.store.FilterByRef(types.CfnVpcGatewayAttachment, "VpcId", m.rec.LogicalResourceID) {
		v, ok := att.Property(prop)
		if !ok {
			continue
		}
		id, ok := types.Ref(v)
		if !ok {
			continue
		}
		gw, ok := m.store.ByLogicalID(id)
		if !ok {
			continue
		}
		if wanted {
			if prop == "VpnGatewayId" && m.cfg.VirtualPrivateGateway.Asn > 0 {
				node, err := rc.Node(m.store, gw)
				if err != nil {
					return err
				}
				node.SetProperty("AmazonSideAsn", m.cfg.VirtualPrivateGateway.Asn)
			}
			rc.Adopt(m.store, gw, resourceType)
			rc.Emit(m.store, types.NewRef(gw.LogicalResourceID), kind, m.cfg.Name)
			continue
		}
		err := rc.DeleteWithParameter(m.store, gw.LogicalResourceID, kind, []string{m.cfg.Name},
			cascade.Records(att.LogicalResourceID),
			cascade.Referencing(types.CfnRoute, "GatewayId"),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteVpc flags a VPC that lost its configuration. When the VPC is the
// only one of its nested stack, the nested stack goes with it.
func (r *Vpcs) deleteVpc(rc *Context, store *inventory.Store, rec *types.Record) error {
	var rules []cascade.Rule
	if name := rec.Name(); name != "" {
		rules = append(rules, cascade.DerivedParameter(rc.Paths.Path(params.Vpc, name)))
	}
	if err := rc.Delete(store, rec.LogicalResourceID, rules...); err != nil {
		return err
	}

	parent, nestedID := rc.parentOf(store)
	if parent == nil || len(store.ByTypeAll(types.CfnVpc)) != 1 {
		return nil
	}
	if _, ok := parent.ByLogicalIDAll(nestedID); !ok {
		return nil
	}
	rc.Logger.Info("vpc stack no longer configured", "vpc", rec.Name(), "nestedStack", nestedID)
	return rc.Delete(parent, nestedID, cascade.NestedStackChildren(nestedID))
}

type Subnets struct{}

func (r *Subnets) Metadata() Metadata {
	return Metadata{
		Name:          "subnets",
		Description:   "Adopt subnets and re-point their route table associations",
		Category:      CategoryNetwork,
		Phases:        vpcPhases,
		ResourceTypes: []string{types.CfnSubnet, types.CfnSubnetRouteTableAssoc},
	}
}

func (r *Subnets) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	vpcs, err := rc.localVpcs(false)
	if err != nil {
		return err
	}
	for _, m := range vpcs {
		if err := r.reconcileVpc(rc, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Subnets) reconcileVpc(rc *Context, m vpcMatch) error {
	adopted := make(map[string]bool)
	for _, cfg := range m.cfg.Subnets {
		rec := rc.subnet(m.store, m.cfg.Name, cfg.Name)
		if rec == nil {
			if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("subnet "+cfg.Name), "vpc", m.cfg.Name); err != nil {
				return err
			}
			continue
		}
		adopted[rec.LogicalResourceID] = true

		if legacy, ok := rec.StringProperty("CidrBlock"); ok && cfg.Ipv4CidrBlock != "" && legacy != cfg.Ipv4CidrBlock {
			rc.Logger.Warn("subnet cidr differs from configuration", "subnet", cfg.Name, "legacy", legacy, "configured", cfg.Ipv4CidrBlock)
		}
		if err := r.association(rc, m, rec, cfg); err != nil {
			return err
		}

		rc.Adopt(m.store, rec, types.AseaSubnet)
		rc.Emit(m.store, types.NewRef(rec.LogicalResourceID), params.Subnet, m.cfg.Name, cfg.Name)
	}

	for _, rec := range m.children(types.CfnSubnet) {
		if adopted[rec.LogicalResourceID] {
			continue
		}
		var rules []cascade.Rule
		if name := rec.Name(); name != "" {
			rules = append(rules, cascade.DerivedParameter(rc.Paths.Path(params.Subnet, m.cfg.Name, name)))
		}
		rules = append(rules,
			cascade.Referencing(types.CfnSubnetRouteTableAssoc, "SubnetId"),
			cascade.Referencing(types.CfnSubnetNetworkAclAssoc, "SubnetId"),
		)
		if err := rc.Delete(m.store, rec.LogicalResourceID, rules...); err != nil {
			return err
		}
	}
	return nil
}

func (r *Subnets) association(rc *Context, m vpcMatch, subnet *types.Record, cfg config.SubnetConfig) error {
	assocs := m.store.FilterByRef(types.CfnSubnetRouteTableAssoc, "SubnetId", subnet.LogicalResourceID)
	if cfg.RouteTable == "" {
		for _, a := range assocs {
			if err := rc.Delete(m.store, a.LogicalResourceID); err != nil {
				return err
			}
		}
		return nil
	}

	table := m.store.FindByName(types.CfnRouteTable, cfg.RouteTable)
	if table == nil {
		return rc.Missing(SiteReferencedResource, cfg.Name, absent("route table "+cfg.RouteTable), "vpc", m.cfg.Name)
	}
	for _, a := range assocs {
		node, err := rc.Node(m.store, a)
		if err != nil {
			return err
		}
		node.SetProperty("RouteTableId", types.NewRef(table.LogicalResourceID))
	}
	return nil
}

type NatGateways struct{}

func (r *NatGateways) Metadata() Metadata {
	return Metadata{
		Name:          "nat-gateways",
		Description:   "Adopt NAT gateways and their elastic IPs",
		Category:      CategoryNetwork,
		Phases:        vpcPhases,
		ResourceTypes: []string{types.CfnNatGateway, types.CfnEip},
	}
}

// elasticIP targets the EIP a NAT gateway allocates from.
func elasticIP() cascade.Rule {
	return func(store *inventory.Store, primary *types.Record) []cascade.Target {
		v, ok := primary.Property("AllocationId")
		if !ok {
			return nil
		}
		if id, _, ok := types.GetAtt(v); ok {
			return []cascade.Target{{Store: store, LogicalID: id}}
		}
		return nil
	}
}

func (r *NatGateways) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	vpcs, err := rc.localVpcs(false)
	if err != nil {
		return err
	}

	for _, m := range vpcs {
		configured := make(map[string]bool)
		for _, cfg := range m.cfg.NatGateways {
			configured[cfg.Name] = true
			rec := m.store.FindByName(types.CfnNatGateway, cfg.Name)
			if rec == nil {
				if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("nat gateway "+cfg.Name), "vpc", m.cfg.Name); err != nil {
					return err
				}
				continue
			}
			if subnet := rc.subnet(m.store, m.cfg.Name, cfg.Subnet); subnet != nil {
				node, err := rc.Node(m.store, rec)
				if err != nil {
					return err
				}
				node.SetProperty("SubnetId", types.NewRef(subnet.LogicalResourceID))
			} else if err := rc.Missing(SiteReferencedResource, cfg.Name, absent("subnet "+cfg.Subnet)); err != nil {
				return err
			}
			rc.Adopt(m.store, rec, types.AseaNatGateway)
			rc.Emit(m.store, types.NewRef(rec.LogicalResourceID), params.NatGateway, m.cfg.Name, cfg.Name)
		}

		for _, rec := range m.store.ByType(types.CfnNatGateway) {
			if configured[rec.Name()] || !natInVpc(m, rec) {
				continue
			}
			err := rc.Delete(m.store, rec.LogicalResourceID,
				elasticIP(),
				cascade.Referencing(types.CfnRoute, "NatGatewayId"),
				cascade.DerivedParameter(rc.Paths.Path(params.NatGateway, m.cfg.Name, rec.Name())),
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// natInVpc reports whether the NAT gateway sits in a subnet of the VPC.
func natInVpc(m vpcMatch, nat *types.Record) bool {
	v, ok := nat.Property("SubnetId")
	if !ok {
		return false
	}
	id, ok := types.Ref(v)
	if !ok {
		return false
	}
	subnet, ok := m.store.ByLogicalIDAll(id)
	return ok && len(inVpc(m.store, []*types.Record{subnet}, m.rec)) == 1
}

type SecurityGroups struct{}

func (r *SecurityGroups) Metadata() Metadata {
	return Metadata{
		Name:          "security-groups",
		Description:   "Adopt VPC security groups and remove the rules of deleted groups",
		Category:      CategorySecurity,
		Phases:        vpcPhases,
		ResourceTypes: []string{types.CfnSecurityGroup, types.CfnSecurityGroupIngress, types.CfnSecurityGroupEgress},
	}
}

func (r *SecurityGroups) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	vpcs, err := rc.localVpcs(false)
	if err != nil {
		return err
	}

	for _, m := range vpcs {
		groups := m.children(types.CfnSecurityGroup)
		configured := make(map[string]bool)
		for _, cfg := range m.cfg.SecurityGroups {
			configured[cfg.Name] = true
			i := slices.IndexFunc(groups, func(g *types.Record) bool { return matcher.SecurityGroupName(g) == cfg.Name })
			if i < 0 {
				if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("security group "+cfg.Name), "vpc", m.cfg.Name); err != nil {
					return err
				}
				continue
			}
			rc.Adopt(m.store, groups[i], types.AseaSecurityGroup)
			rc.Emit(m.store, types.NewGetAtt(groups[i].LogicalResourceID, "GroupId"), params.SecurityGroup, m.cfg.Name, cfg.Name)
		}

		for _, rec := range groups {
			name := matcher.SecurityGroupName(rec)
			if configured[name] {
				continue
			}
			err := rc.Delete(m.store, rec.LogicalResourceID,
				cascade.DerivedParameter(rc.Paths.Path(params.SecurityGroup, m.cfg.Name, name)),
				cascade.SecurityGroupRules(),
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

type NetworkAcls struct{}

func (r *NetworkAcls) Metadata() Metadata {
	return Metadata{
		Name:          "network-acls",
		Description:   "Adopt network ACLs and re-point their subnet associations",
		Category:      CategorySecurity,
		Phases:        vpcPhases,
		ResourceTypes: []string{types.CfnNetworkAcl, types.CfnNetworkAclEntry, types.CfnSubnetNetworkAclAssoc},
	}
}

func (r *NetworkAcls) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	vpcs, err := rc.localVpcs(false)
	if err != nil {
		return err
	}

	for _, m := range vpcs {
		configured := make(map[string]bool)
		for _, cfg := range m.cfg.NetworkAcls {
			configured[cfg.Name] = true
			rec := m.store.FindByName(types.CfnNetworkAcl, cfg.Name)
			if rec == nil {
				if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("network acl "+cfg.Name), "vpc", m.cfg.Name); err != nil {
					return err
				}
				continue
			}
			if err := r.associations(rc, m, rec, cfg); err != nil {
				return err
			}
			rc.Adopt(m.store, rec, types.AseaNetworkAcl)
			rc.Emit(m.store, types.NewRef(rec.LogicalResourceID), params.NetworkAcl, m.cfg.Name, cfg.Name)
		}

		for _, rec := range m.children(types.CfnNetworkAcl) {
			if configured[rec.Name()] {
				continue
			}
			err := rc.Delete(m.store, rec.LogicalResourceID,
				cascade.Referencing(types.CfnNetworkAclEntry, "NetworkAclId"),
				cascade.Referencing(types.CfnSubnetNetworkAclAssoc, "NetworkAclId"),
				cascade.DerivedParameter(rc.Paths.Path(params.NetworkAcl, m.cfg.Name, rec.Name())),
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// associations points every configured subnet's association at the ACL and
// drops associations of subnets no longer listed.
func (r *NetworkAcls) associations(rc *Context, m vpcMatch, acl *types.Record, cfg config.NetworkAclConfig) error {
	wanted := make(map[string]bool)
	for _, name := range cfg.SubnetAssociations {
		subnet := rc.subnet(m.store, m.cfg.Name, name)
		if subnet == nil {
			if err := rc.Missing(SiteReferencedResource, cfg.Name, absent("subnet "+name)); err != nil {
				return err
			}
			continue
		}
		wanted[subnet.LogicalResourceID] = true
		for _, a := range m.store.FilterByRef(types.CfnSubnetNetworkAclAssoc, "SubnetId", subnet.LogicalResourceID) {
			node, err := rc.Node(m.store, a)
			if err != nil {
				return err
			}
			node.SetProperty("NetworkAclId", types.NewRef(acl.LogicalResourceID))
		}
	}

	for _, a := range m.store.FilterByRef(types.CfnSubnetNetworkAclAssoc, "NetworkAclId", acl.LogicalResourceID) {
		v, _ := a.Property("SubnetId")
		id, _ := types.Ref(v)
		if wanted[id] {
			continue
		}
		if err := rc.Delete(m.store, a.LogicalResourceID); err != nil {
			return err
		}
	}
	return nil
}
