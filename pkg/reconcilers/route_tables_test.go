package reconcilers

import (
	"context"
	"testing"

	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vpcChildren(t *testing.T) *fixture {
	return vpcChildrenWithGateway(t, "Igw")
}

// vpcChildrenWithGateway builds a VPC stack whose internet gateway
// attachment points at gateway.
func vpcChildrenWithGateway(t *testing.T, gateway string) *fixture {
	t.Helper()
	cfg := testConfig()
	vpc := cfg.Network.Vpcs[0]
	vpc.Subnets = []config.SubnetConfig{{Name: "Web"}, {Name: "Data"}}
	vpc.RouteTables = []config.RouteTableConfig{{
		Name:   "Web",
		Routes: []config.RouteTableEntryConfig{{Name: "default", Destination: "0.0.0.0/0", Type: config.RouteTargetInternetGateway}},
	}}
	vpc.NatGateways = []config.NatGatewayConfig{{Name: "NatA", Subnet: "Web"}}
	vpc.NetworkAcls = []config.NetworkAclConfig{{Name: "Web", SubnetAssociations: []string{"Web"}}}

	vpcRef := types.NewRef("AppVpc")
	vpcProps := func() map[string]any { return map[string]any{"VpcId": vpcRef} }
	route := func(id, table, cidr, prop string, target any) *types.Record {
		return record(id, "", types.CfnRoute, map[string]any{"RouteTableId": types.NewRef(table), "DestinationCidrBlock": cidr, prop: target})
	}
	nat := func(id, physical, name string) *types.Record {
		return named(id, physical, types.CfnNatGateway, name, map[string]any{
			"SubnetId":     types.NewRef("DataSubnet"),
			"AllocationId": types.NewGetAtt(id+"Eip", "AllocationId"),
		})
	}

	f := &fixture{cfg: cfg, files: mapping.MemorySource{}}
	f.workload = f.stack(t, workloadID, "Workload1-Phase1", 1,
		named("AppVpc", "vpc-app", types.CfnVpc, "App_vpc", nil),
		named("WebSubnet", "subnet-web", types.CfnSubnet, "Web_App", vpcProps()),
		named("DataSubnet", "subnet-data", types.CfnSubnet, "Data_App", vpcProps()),
		record("Igw", "igw-app", types.CfnInternetGateway, nil),
		record("IgwAttach", "", types.CfnVpcGatewayAttachment, map[string]any{"VpcId": vpcRef, "InternetGatewayId": types.NewRef(gateway)}),

		named("RtWeb", "rtb-web", types.CfnRouteTable, "Web", vpcProps()),
		route("RtWebDefault", "RtWeb", "0.0.0.0/0", "GatewayId", "igw-old"),
		route("RtWebNat", "RtWeb", "10.9.0.0/16", "NatGatewayId", types.NewRef("NatOld")),
		named("RtOld", "rtb-old", types.CfnRouteTable, "Old", vpcProps()),
		route("RtOldRoute", "RtOld", "0.0.0.0/0", "GatewayId", types.NewRef("Igw")),
		record("RtOldAssoc", "", types.CfnSubnetRouteTableAssoc, map[string]any{"RouteTableId": types.NewRef("RtOld"), "SubnetId": types.NewRef("DataSubnet")}),

		nat("NatA", "nat-a", "NatA"),
		record("NatAEip", "eipalloc-a", types.CfnEip, nil),
		nat("NatOld", "nat-old", "NatOld"),
		record("NatOldEip", "eipalloc-old", types.CfnEip, nil),

		named("AclWeb", "acl-web", types.CfnNetworkAcl, "Web", vpcProps()),
		record("AclWebAssocData", "", types.CfnSubnetNetworkAclAssoc, map[string]any{"SubnetId": types.NewRef("DataSubnet"), "NetworkAclId": types.NewRef("AclWeb")}),
		record("AclWebAssocWeb", "", types.CfnSubnetNetworkAclAssoc, map[string]any{"SubnetId": types.NewRef("WebSubnet"), "NetworkAclId": "acl-default"}),
		named("AclOld", "acl-old", types.CfnNetworkAcl, "Old", vpcProps()),
		record("AclOldEntry", "", types.CfnNetworkAclEntry, map[string]any{"NetworkAclId": types.NewRef("AclOld"), "RuleNumber": 100}),
	)
	f.mappings = types.NewMappings(f.workload)
	return f
}

func appVpc(cfg *config.Config) *config.VpcConfig {
	return cfg.Network.Vpcs[0]
}

func TestRouteTables(t *testing.T) {
	testCases := []familyCase{
		{
			name:    "configured",
			adopted: []adoption{{resourceType: types.AseaRouteTable, identifier: "rtb-web"}},
			deleted: []string{"RtWebNat", "RtOld", "RtOldRoute", "RtOldAssoc"},
			kept:    []string{"RtWeb", "RtWebDefault"},
			check: func(t *testing.T, f *fixture, result *Result) {
				gateway, _ := result.Templates[f.workload.Key()].Resources["RtWebDefault"].Property("GatewayId")
				assert.Equal(t, types.NewRef("Igw"), gateway, "the route follows the attached internet gateway")
				assert.Contains(t, parameterNames(result, f.workload.Key()), "/accelerator/network/vpc/App_vpc/routeTable/Web/id")
			},
		},
		{
			name:    "unconfigured",
			mutate:  func(cfg *config.Config) { appVpc(cfg).RouteTables = nil },
			deleted: []string{"RtWeb", "RtWebDefault", "RtWebNat", "RtOld", "RtOldRoute", "RtOldAssoc"},
			kept:    []string{"WebSubnet", "IgwAttach"},
		},
		{
			name:    "route table without a legacy resource",
			mutate:  func(cfg *config.Config) { appVpc(cfg).RouteTables = []config.RouteTableConfig{{Name: "Private"}} },
			deleted: []string{"RtWeb", "RtOld"},
			skipped: "Private",
			level:   "INFO",
		},
		{
			name: "route to a missing nat gateway",
			mutate: func(cfg *config.Config) {
				rt := &appVpc(cfg).RouteTables[0]
				rt.Routes = append(rt.Routes, config.RouteTableEntryConfig{Name: "to-nat", Destination: "10.9.0.0/16", Type: config.RouteTargetNatGateway, Target: "Gone"})
			},
			adopted: []adoption{{resourceType: types.AseaRouteTable, identifier: "rtb-web"}},
			kept:    []string{"RtWebNat"},
			skipped: "to-nat",
			level:   "WARN",
			check: func(t *testing.T, f *fixture, result *Result) {
				target, _ := result.Templates[f.workload.Key()].Resources["RtWebNat"].Property("NatGatewayId")
				assert.Equal(t, types.NewRef("NatOld"), target, "an unresolved target leaves the route untouched")
			},
		},
		{
			name: "unknown route target type",
			mutate: func(cfg *config.Config) {
				appVpc(cfg).RouteTables[0].Routes[0].Type = "carrierGateway"
			},
			fails: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, vpcChildren, &RouteTables{}, tc)
		})
	}
}

func TestRouteToDanglingGatewayIsDataCorruption(t *testing.T) {
	f := vpcChildrenWithGateway(t, "Gone")
	_, err := f.engine(&RouteTables{}).Run(context.Background())

	var corrupt *types.DataCorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "Gone", corrupt.LogicalID)
	assert.Contains(t, err.Error(), `Ref(Gone) points at logical id "Gone"`)
	assert.True(t, types.IsFatal(err))
}

func TestNatGateways(t *testing.T) {
	testCases := []familyCase{
		{
			name:    "configured",
			adopted: []adoption{{resourceType: types.AseaNatGateway, identifier: "nat-a"}},
			deleted: []string{"NatOld", "NatOldEip", "RtWebNat"},
			kept:    []string{"NatA", "NatAEip"},
			check: func(t *testing.T, f *fixture, result *Result) {
				subnet, _ := result.Templates[f.workload.Key()].Resources["NatA"].Property("SubnetId")
				assert.Equal(t, types.NewRef("WebSubnet"), subnet)
				assert.Contains(t, parameterNames(result, f.workload.Key()), "/accelerator/network/vpc/App_vpc/natGateway/NatA/id")
			},
		},
		{
			name:    "unconfigured",
			mutate:  func(cfg *config.Config) { appVpc(cfg).NatGateways = nil },
			deleted: []string{"NatA", "NatAEip", "NatOld", "NatOldEip", "RtWebNat"},
		},
		{
			name:    "nat gateway without a legacy resource",
			mutate:  func(cfg *config.Config) { appVpc(cfg).NatGateways = []config.NatGatewayConfig{{Name: "NatB", Subnet: "Web"}} },
			deleted: []string{"NatA", "NatOld"},
			skipped: "NatB",
			level:   "INFO",
		},
		{
			name:    "missing subnet",
			mutate:  func(cfg *config.Config) { appVpc(cfg).NatGateways[0].Subnet = "Gone" },
			adopted: []adoption{{resourceType: types.AseaNatGateway, identifier: "nat-a"}},
			skipped: "NatA",
			level:   "WARN",
			check: func(t *testing.T, f *fixture, result *Result) {
				subnet, _ := result.Templates[f.workload.Key()].Resources["NatA"].Property("SubnetId")
				assert.Equal(t, types.NewRef("DataSubnet"), subnet)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, vpcChildren, &NatGateways{}, tc)
		})
	}
}

func TestNetworkAcls(t *testing.T) {
	testCases := []familyCase{
		{
			name:    "configured",
			adopted: []adoption{{resourceType: types.AseaNetworkAcl, identifier: "acl-web"}},
			deleted: []string{"AclWebAssocData", "AclOld", "AclOldEntry"},
			kept:    []string{"AclWeb", "AclWebAssocWeb"},
			check: func(t *testing.T, f *fixture, result *Result) {
				acl, _ := result.Templates[f.workload.Key()].Resources["AclWebAssocWeb"].Property("NetworkAclId")
				assert.Equal(t, types.NewRef("AclWeb"), acl, "the configured subnet is re-pointed at the ACL")
			},
		},
		{
			name:    "unconfigured",
			mutate:  func(cfg *config.Config) { appVpc(cfg).NetworkAcls = nil },
			deleted: []string{"AclWeb", "AclWebAssocData", "AclOld", "AclOldEntry"},
			kept:    []string{"AclWebAssocWeb"},
		},
		{
			name:    "network acl without a legacy resource",
			mutate:  func(cfg *config.Config) { appVpc(cfg).NetworkAcls = []config.NetworkAclConfig{{Name: "Private"}} },
			deleted: []string{"AclWeb", "AclOld"},
			skipped: "Private",
			level:   "INFO",
		},
		{
			name:    "missing subnet",
			mutate:  func(cfg *config.Config) { appVpc(cfg).NetworkAcls[0].SubnetAssociations = []string{"Gone"} },
			adopted: []adoption{{resourceType: types.AseaNetworkAcl, identifier: "acl-web"}},
			deleted: []string{"AclWebAssocData"},
			skipped: "Web",
			level:   "WARN",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, vpcChildren, &NetworkAcls{}, tc)
		})
	}
}
