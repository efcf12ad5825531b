package reconcilers

import (
	"testing"

	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/stretchr/testify/assert"
)

func attachmentFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	appVpc(cfg).TransitGatewayAttachments = []config.TransitGatewayAttachmentConfig{{
		Name:                   "App-Main",
		TransitGateway:         config.TransitGatewayAttachmentTarget{Name: "Main", Account: "Network"},
		Subnets:                []string{"Web"},
		RouteTableAssociations: []string{"core"},
		RouteTablePropagations: []string{"core"},
	}}

	vpcRef := types.NewRef("AppVpc")
	onTable := func(id, cfnType, attachment, table string) *types.Record {
		return record(id, "", cfnType, map[string]any{
			"TransitGatewayAttachmentId": types.NewRef(attachment),
			"TransitGatewayRouteTableId": table,
		})
	}

	f := &fixture{cfg: cfg, files: mapping.MemorySource{}}
	f.network0 = f.stack(t, networkID, "Network-Phase0", 0,
		named("TgwMain", "tgw-main", types.CfnTransitGateway, "Main", nil),
		named("RtCore", "tgw-rtb-core", types.CfnTransitGatewayRouteTbl, "core", map[string]any{"TransitGatewayId": types.NewRef("TgwMain")}),
		named("RtLegacy", "tgw-rtb-legacy", types.CfnTransitGatewayRouteTbl, "legacy", map[string]any{"TransitGatewayId": types.NewRef("TgwMain")}),
	)
	f.workload = f.stack(t, workloadID, "Workload1-Phase1", 1,
		named("AppVpc", "vpc-app", types.CfnVpc, "App_vpc", nil),
		named("WebSubnet", "subnet-web", types.CfnSubnet, "Web_App", map[string]any{"VpcId": vpcRef}),
		named("AppAttach", "tgw-attach-app", types.CfnTransitGatewayAttach, "App-Main", map[string]any{
			"TransitGatewayId": "tgw-old",
			"SubnetIds":        []any{"subnet-x"},
			"VpcId":            vpcRef,
		}),
		named("OldAttach", "tgw-attach-old", types.CfnTransitGatewayAttach, "Old_vpc_Main_att", map[string]any{"TransitGatewayId": "tgw-main", "VpcId": vpcRef}),
		record("OldAttachParam", "", types.CfnSsmParameter, map[string]any{
			"Name":  "/accelerator/network/vpc/App_vpc/transitGatewayAttachment/Old_vpc_Main_att/id",
			"Value": types.NewRef("OldAttach"),
		}),
		onTable("AssocCore", types.CfnTransitGatewayRTAssoc, "AppAttach", "tgw-rtb-core"),
		onTable("AssocLegacy", types.CfnTransitGatewayRTAssoc, "AppAttach", "tgw-rtb-legacy"),
		onTable("PropCore", types.CfnTransitGatewayRTPropag, "AppAttach", "tgw-rtb-core"),
		onTable("PropLegacy", types.CfnTransitGatewayRTPropag, "AppAttach", "tgw-rtb-legacy"),
		onTable("OldAssoc", types.CfnTransitGatewayRTAssoc, "OldAttach", "tgw-rtb-core"),
	)
	f.mappings = types.NewMappings(f.network0, f.workload)
	return f
}

func appAttachment(cfg *config.Config) *config.TransitGatewayAttachmentConfig {
	return &appVpc(cfg).TransitGatewayAttachments[0]
}

func TestTransitGatewayAttachments(t *testing.T) {
	testCases := []familyCase{
		{
			name:    "configured",
			adopted: []adoption{{resourceType: types.AseaTransitGatewayAttachment, identifier: "tgw-attach-app"}},
			deleted: []string{"OldAttach", "OldAttachParam", "OldAssoc"},
			kept:    []string{"AppAttach", "AssocCore", "AssocLegacy", "PropCore"},
			check: func(t *testing.T, f *fixture, result *Result) {
				node := result.Templates[f.workload.Key()].Resources["AppAttach"]
				tgw, _ := node.Property("TransitGatewayId")
				assert.Equal(t, "tgw-main", tgw, "resolved from the transit gateway account")
				subnets, _ := node.Property("SubnetIds")
				assert.Equal(t, []any{types.NewRef("WebSubnet")}, subnets)
				assert.Contains(t, parameterNames(result, f.workload.Key()), "/accelerator/network/vpc/App_vpc/transitGatewayAttachment/App-Main/id")
			},
		},
		{
			name:    "unconfigured",
			mutate:  func(cfg *config.Config) { appVpc(cfg).TransitGatewayAttachments = nil },
			deleted: []string{"AppAttach", "OldAttach", "OldAttachParam", "AssocCore", "AssocLegacy", "PropCore", "PropLegacy", "OldAssoc"},
			kept:    []string{"TgwMain", "RtCore"},
		},
		{
			name: "attachment without a legacy resource",
			mutate: func(cfg *config.Config) {
				appVpc(cfg).TransitGatewayAttachments = []config.TransitGatewayAttachmentConfig{{
					Name:           "App-Other",
					TransitGateway: config.TransitGatewayAttachmentTarget{Name: "Other", Account: "Network"},
				}}
			},
			deleted: []string{"AppAttach", "OldAttach"},
			skipped: "App-Other",
			level:   "INFO",
		},
		{
			name: "transit gateway missing from its account",
			mutate: func(cfg *config.Config) {
				cfg.Network.TransitGateways = append(cfg.Network.TransitGateways, &config.TransitGatewayConfig{Name: "Edge", Account: "Network", Region: region})
				appAttachment(cfg).TransitGateway.Name = "Edge"
			},
			adopted: []adoption{{resourceType: types.AseaTransitGatewayAttachment, identifier: "tgw-attach-app"}},
			skipped: "App-Main",
			level:   "WARN",
			check: func(t *testing.T, f *fixture, result *Result) {
				tgw, _ := result.Templates[f.workload.Key()].Resources["AppAttach"].Property("TransitGatewayId")
				assert.Equal(t, "tgw-old", tgw)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, attachmentFixture, &TransitGatewayAttachments{}, tc)
		})
	}
}

func TestTransitGatewayAssociations(t *testing.T) {
	testCases := []familyCase{
		{
			name: "configured",
			adopted: []adoption{
				{resourceType: types.AseaTransitGatewayAssociation, identifier: "AssocCore"},
				{resourceType: types.AseaTransitGatewayPropagation, identifier: "PropCore"},
			},
			deleted: []string{"AssocLegacy", "PropLegacy"},
			kept:    []string{"AssocCore", "PropCore", "OldAssoc", "AppAttach"},
		},
		{
			name: "unconfigured",
			mutate: func(cfg *config.Config) {
				appAttachment(cfg).RouteTableAssociations = nil
				appAttachment(cfg).RouteTablePropagations = nil
			},
			deleted: []string{"AssocCore", "AssocLegacy", "PropCore", "PropLegacy"},
			kept:    []string{"OldAssoc", "AppAttach"},
		},
		{
			name:   "association with an unknown route table",
			mutate: func(cfg *config.Config) { appAttachment(cfg).RouteTableAssociations = []string{"gone"} },
			fails:  true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, attachmentFixture, &TransitGatewayAssociations{}, tc)
		})
	}
}
