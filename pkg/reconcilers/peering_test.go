package reconcilers

import (
	"testing"

	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/stretchr/testify/assert"
)

const peerRegion = "us-east-1"

func peeringFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	cfg.Global.EnabledRegions = []string{peerRegion}
	cfg.Network.TransitGateways = append(cfg.Network.TransitGateways, &config.TransitGatewayConfig{Name: "Edge", Account: "Workload1", Region: peerRegion})
	cfg.Network.TransitGatewayPeering = []*config.TransitGatewayPeeringConfig{{
		Name:      "Main-Edge",
		Requester: config.TransitGatewayPeeringSide{TransitGatewayName: "Main", Account: "Network", Region: region},
		Accepter:  config.TransitGatewayPeeringSide{TransitGatewayName: "Edge", Account: "Workload1", Region: peerRegion},
	}}
	cfg.Network.Vpcs = append(cfg.Network.Vpcs, &config.VpcConfig{Name: "Shared_vpc", Account: "Network", Region: region})
	cfg.Network.VpcPeering = []*config.VpcPeeringConfig{{Name: "App-Shared", Vpcs: []string{"App_vpc", "Shared_vpc"}}}

	f := &fixture{cfg: cfg, files: mapping.MemorySource{}}
	f.network0 = f.stack(t, networkID, "Network-Phase0", 0,
		named("TgwMain", "tgw-main", types.CfnTransitGateway, "Main", nil),
	)
	edge := f.stackIn(t, workloadID, peerRegion, "Workload1-Phase0", 0,
		named("TgwEdge", "tgw-edge", types.CfnTransitGateway, "Edge", nil),
	)
	f.network1 = f.stack(t, networkID, "Network-Phase1", 1,
		named("SharedVpc", "vpc-shared", types.CfnVpc, "Shared_vpc", nil),
	)
	f.phase2 = f.stack(t, networkID, "Network-Phase2", 2,
		named("MainEdgePeer", "tgw-attach-peer", types.CfnTransitGatewayPeering, "Main-Edge", map[string]any{"TransitGatewayId": "tgw-x"}),
		named("OldPeer", "tgw-attach-oldpeer", types.CfnTransitGatewayPeering, "Old-Peer", nil),
		record("OldPeerRoute", "", types.CfnTransitGatewayRoute, map[string]any{"TransitGatewayAttachmentId": types.NewRef("OldPeer"), "DestinationCidrBlock": "10.50.0.0/16"}),
	)
	f.workload = f.stack(t, workloadID, "Workload1-Phase1", 1,
		named("AppVpc", "vpc-app", types.CfnVpc, "App_vpc", nil),
	)
	peering := f.stack(t, workloadID, "Workload1-Phase2", 2,
		named("Pcx", "pcx-app", types.CfnVpcPeeringConnection, "App-Shared", map[string]any{"VpcId": "vpc-x", "PeerVpcId": "vpc-y"}),
		named("OldPcx", "pcx-old", types.CfnVpcPeeringConnection, "Old-Pcx", nil),
		record("OldPcxRoute", "", types.CfnRoute, map[string]any{"VpcPeeringConnectionId": types.NewRef("OldPcx"), "DestinationCidrBlock": "10.60.0.0/16"}),
		record("OldPcxParam", "", types.CfnSsmParameter, map[string]any{"Name": "/accelerator/network/vpcPeering/Old-Pcx/id", "Value": types.NewRef("OldPcx")}),
	)
	f.mappings = types.NewMappings(f.network0, edge, f.network1, f.phase2, f.workload, peering)
	return f
}

var vpcPeeringKey = types.StackKey(workloadID, region, "Workload1-Phase2")

func TestTransitGatewayPeering(t *testing.T) {
	testCases := []familyCase{
		{
			name:    "configured",
			adopted: []adoption{{resourceType: types.AseaTransitGatewayPeering, identifier: "tgw-attach-peer"}},
			deleted: []string{"OldPeer", "OldPeerRoute"},
			kept:    []string{"MainEdgePeer", "TgwMain", "TgwEdge"},
			check: func(t *testing.T, f *fixture, result *Result) {
				node := result.Templates[f.phase2.Key()].Resources["MainEdgePeer"]
				for prop, want := range map[string]any{
					"TransitGatewayId":     "tgw-main",
					"PeerTransitGatewayId": "tgw-edge",
					"PeerAccountId":        workloadID,
					"PeerRegion":           peerRegion,
				} {
					got, _ := node.Property(prop)
					assert.Equal(t, want, got, prop)
				}
				assert.Contains(t, parameterNames(result, f.phase2.Key()), "/accelerator/network/transitGateways/Main/peering/Main-Edge/id")
			},
		},
		{
			name:    "unconfigured",
			mutate:  func(cfg *config.Config) { cfg.Network.TransitGatewayPeering = nil },
			deleted: []string{"MainEdgePeer", "OldPeer", "OldPeerRoute"},
		},
		{
			name:    "peering without a legacy resource",
			mutate:  func(cfg *config.Config) { cfg.Network.TransitGatewayPeering[0].Name = "Main-West" },
			deleted: []string{"MainEdgePeer"},
			skipped: "Main-West",
			level:   "INFO",
		},
		{
			name: "accepter transit gateway missing",
			mutate: func(cfg *config.Config) {
				cfg.Network.TransitGateways = append(cfg.Network.TransitGateways, &config.TransitGatewayConfig{Name: "West", Account: "Workload1", Region: peerRegion})
				cfg.Network.TransitGatewayPeering[0].Accepter.TransitGatewayName = "West"
			},
			adopted: []adoption{{resourceType: types.AseaTransitGatewayPeering, identifier: "tgw-attach-peer"}},
			skipped: "Main-Edge",
			level:   "WARN",
			check: func(t *testing.T, f *fixture, result *Result) {
				_, ok := result.Templates[f.phase2.Key()].Resources["MainEdgePeer"].Property("PeerTransitGatewayId")
				assert.False(t, ok)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, peeringFixture, &TransitGatewayPeering{}, tc)
		})
	}
}

func TestVpcPeering(t *testing.T) {
	testCases := []familyCase{
		{
			name:    "configured",
			adopted: []adoption{{resourceType: types.AseaVpcPeering, identifier: "pcx-app"}},
			deleted: []string{"OldPcx", "OldPcxRoute", "OldPcxParam"},
			kept:    []string{"Pcx"},
			check: func(t *testing.T, f *fixture, result *Result) {
				node := result.Templates[vpcPeeringKey].Resources["Pcx"]
				vpc, _ := node.Property("VpcId")
				assert.Equal(t, "vpc-app", vpc, "the requester VPC lives in the phase 1 template")
				peer, _ := node.Property("PeerVpcId")
				assert.Equal(t, "vpc-shared", peer)
				owner, _ := node.Property("PeerOwnerId")
				assert.Equal(t, networkID, owner)
				_, ok := node.Property("PeerRegion")
				assert.False(t, ok, "same-region peering carries no region")
				assert.Contains(t, parameterNames(result, vpcPeeringKey), "/accelerator/network/vpcPeering/App-Shared/id")
			},
		},
		{
			name:    "unconfigured",
			mutate:  func(cfg *config.Config) { cfg.Network.VpcPeering = nil },
			deleted: []string{"Pcx", "OldPcx", "OldPcxRoute", "OldPcxParam"},
		},
		{
			name:    "peering without a legacy resource",
			mutate:  func(cfg *config.Config) { cfg.Network.VpcPeering[0].Name = "App-Other" },
			deleted: []string{"Pcx"},
			skipped: "App-Other",
			level:   "INFO",
		},
		{
			name: "accepter vpc missing",
			mutate: func(cfg *config.Config) {
				cfg.Network.Vpcs = append(cfg.Network.Vpcs, &config.VpcConfig{Name: "Gone_vpc", Account: "Network", Region: region})
				cfg.Network.VpcPeering[0].Vpcs[1] = "Gone_vpc"
			},
			adopted: []adoption{{resourceType: types.AseaVpcPeering, identifier: "pcx-app"}},
			skipped: "App-Shared",
			level:   "WARN",
		},
		{
			name:   "peering of a single vpc",
			mutate: func(cfg *config.Config) { cfg.Network.VpcPeering[0].Vpcs = []string{"App_vpc"} },
			fails:  true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, peeringFixture, &VpcPeering{}, tc)
		})
	}
}
