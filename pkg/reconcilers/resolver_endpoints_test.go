package reconcilers

import (
	"testing"

	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/stretchr/testify/assert"
)

func dnsFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	cfg.Network.Vpcs = []*config.VpcConfig{{
		Name:      "Central_vpc",
		Account:   "Network",
		Region:    region,
		Subnets:   []config.SubnetConfig{{Name: "App"}},
		QueryLogs: []string{"central-logs"},
	}}
	cfg.Network.CentralNetworkServices = &config.CentralNetworkServicesConfig{
		DelegatedAdminAccount: "Network",
		Route53Resolver: &config.Route53ResolverConfig{
			Endpoints: []config.ResolverEndpointConfig{
				{Name: "central-in", Vpc: "Central_vpc", Type: "inbound", Subnets: []string{"App"}},
				{Name: "central-out", Vpc: "Central_vpc", Type: config.ResolverOutbound, Rules: []config.ResolverRuleConfig{
					{Name: "onprem", DomainName: "corp.example.com", TargetIps: []string{"10.0.0.10"}},
				}},
			},
			QueryLogs: &config.QueryLogsConfig{Name: "central-logs"},
		},
	}

	f := &fixture{cfg: cfg, files: mapping.MemorySource{}}
	f.network1 = f.stack(t, networkID, "Network-Phase1", 1,
		named("CentralVpc", "vpc-central", types.CfnVpc, "Central_vpc", nil),
	)
	f.phase2 = f.stack(t, networkID, "Network-Phase2", 2,
		named("AppSubnet", "subnet-app", types.CfnSubnet, "App_Central", map[string]any{"VpcId": "vpc-central"}),
		record("InEp", "rslvr-in-1", types.CfnResolverEndpoint, map[string]any{"Name": "Central Inbound Endpoint", "Direction": "INBOUND"}),
		// an endpoint named by an intrinsic is found through its logical id
		record("CentralOutboundEndpoint8F2A", "rslvr-out-1", types.CfnResolverEndpoint, map[string]any{
			"Name":      map[string]any{"Fn::Sub": "${AWS::StackName}-out"},
			"Direction": "OUTBOUND",
		}),
		record("OldEp", "rslvr-old", types.CfnResolverEndpoint, map[string]any{"Name": "Old Inbound Endpoint", "Direction": "INBOUND"}),
		record("OnpremRule", "rslvr-rr-1", types.CfnResolverRule, map[string]any{
			"DomainName":         "corp.example.com.",
			"ResolverEndpointId": "rslvr-out-0",
			"RuleType":           "FORWARD",
		}),
		record("OldRule", "rslvr-rr-old", types.CfnResolverRule, map[string]any{
			"Name":               "legacy",
			"DomainName":         "old.example.com",
			"ResolverEndpointId": types.NewGetAtt("OldEp", "ResolverEndpointId"),
		}),
		record("OldRuleAssoc", "", types.CfnResolverRuleAssoc, map[string]any{"ResolverRuleId": types.NewGetAtt("OldRule", "ResolverRuleId"), "VPCId": "vpc-central"}),
		record("QLog", "qlog-central", types.CfnQueryLoggingConfig, map[string]any{"Name": "central-logs", "DestinationArn": "arn:aws:s3:::logs"}),
		record("QLogAssoc", "", types.CfnQueryLoggingConfigAssoc, map[string]any{"ResolverQueryLogConfigId": types.NewRef("QLog"), "ResourceId": "vpc-central"}),
		record("QLogAssocGone", "", types.CfnQueryLoggingConfigAssoc, map[string]any{"ResolverQueryLogConfigId": types.NewGetAtt("QLog", "Id"), "ResourceId": "vpc-gone"}),
		record("OldQLog", "qlog-old", types.CfnQueryLoggingConfig, map[string]any{"Name": "old-logs"}),
		record("OldQLogAssoc", "", types.CfnQueryLoggingConfigAssoc, map[string]any{"ResolverQueryLogConfigId": types.NewRef("OldQLog"), "ResourceId": "vpc-central"}),
	)
	f.mappings = types.NewMappings(f.network1, f.phase2)
	return f
}

func addEdgeVpc(cfg *config.Config) *config.VpcConfig {
	vpc := &config.VpcConfig{Name: "Edge_vpc", Account: "Network", Region: region}
	cfg.Network.Vpcs = append(cfg.Network.Vpcs, vpc)
	return vpc
}

func TestResolverEndpoints(t *testing.T) {
	testCases := []familyCase{
		{
			name: "configured",
			adopted: []adoption{
				{resourceType: types.AseaResolverEndpoint, identifier: "rslvr-in-1"},
				{resourceType: types.AseaResolverEndpoint, identifier: "rslvr-out-1"},
				{resourceType: types.AseaResolverRule, identifier: "rslvr-rr-1"},
			},
			deleted: []string{"OldEp", "OldRule", "OldRuleAssoc"},
			kept:    []string{"InEp", "CentralOutboundEndpoint8F2A", "OnpremRule", "QLog"},
			check: func(t *testing.T, f *fixture, result *Result) {
				resources := result.Templates[f.phase2.Key()].Resources
				in := resources["InEp"]
				name, _ := in.Property("Name")
				assert.Equal(t, "central-in", name)
				dir, _ := in.Property("Direction")
				assert.Equal(t, "INBOUND", dir)
				addresses, _ := in.Property("IpAddresses")
				assert.Equal(t, []any{map[string]any{"SubnetId": types.NewRef("AppSubnet")}}, addresses)

				rule := resources["OnpremRule"]
				endpoint, _ := rule.Property("ResolverEndpointId")
				assert.Equal(t, types.NewGetAtt("CentralOutboundEndpoint8F2A", "ResolverEndpointId"), endpoint)
				domain, _ := rule.Property("DomainName")
				assert.Equal(t, "corp.example.com", domain)
				targets, _ := rule.Property("TargetIps")
				assert.Equal(t, []any{map[string]any{"Ip": "10.0.0.10", "Port": "53"}}, targets)

				names := parameterNames(result, f.phase2.Key())
				assert.Contains(t, names, "/accelerator/network/route53Resolver/endpoints/central-out/id")
				assert.Contains(t, names, "/accelerator/network/route53Resolver/rules/onprem/id")
			},
		},
		{
			name:    "unconfigured",
			mutate:  func(cfg *config.Config) { cfg.Network.CentralNetworkServices.Route53Resolver.Endpoints = nil },
			deleted: []string{"InEp", "CentralOutboundEndpoint8F2A", "OldEp", "OnpremRule", "OldRule", "OldRuleAssoc"},
			kept:    []string{"AppSubnet", "QLog"},
		},
		{
			name: "endpoint without a legacy resource",
			mutate: func(cfg *config.Config) {
				addEdgeVpc(cfg)
				r53 := cfg.Network.CentralNetworkServices.Route53Resolver
				r53.Endpoints = append(r53.Endpoints, config.ResolverEndpointConfig{Name: "edge-in", Vpc: "Edge_vpc", Type: config.ResolverInbound})
			},
			adopted: []adoption{{resourceType: types.AseaResolverEndpoint, identifier: "rslvr-in-1"}},
			skipped: "edge-in",
			level:   "INFO",
		},
		{
			name:    "missing subnet",
			mutate:  func(cfg *config.Config) { cfg.Network.CentralNetworkServices.Route53Resolver.Endpoints[0].Subnets = []string{"Gone"} },
			adopted: []adoption{{resourceType: types.AseaResolverEndpoint, identifier: "rslvr-in-1"}},
			skipped: "central-in",
			level:   "WARN",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, dnsFixture, &ResolverEndpoints{}, tc)
		})
	}
}

func TestQueryLogging(t *testing.T) {
	testCases := []familyCase{
		{
			name: "configured",
			adopted: []adoption{
				{resourceType: types.AseaQueryLogging, identifier: "qlog-central"},
				{resourceType: types.AseaQueryLoggingAssociation, identifier: "QLogAssoc"},
			},
			deleted: []string{"QLogAssocGone", "OldQLog", "OldQLogAssoc"},
			kept:    []string{"QLog", "QLogAssoc"},
			check: func(t *testing.T, f *fixture, result *Result) {
				assert.Contains(t, parameterNames(result, f.phase2.Key()), "/accelerator/network/route53Resolver/queryLogConfigs/central-logs/id")
			},
		},
		{
			name:    "unconfigured",
			mutate:  func(cfg *config.Config) { cfg.Network.CentralNetworkServices.Route53Resolver.QueryLogs = nil },
			deleted: []string{"QLog", "QLogAssoc", "QLogAssocGone", "OldQLog", "OldQLogAssoc"},
		},
		{
			name:    "vpc listing the configuration is missing",
			mutate:  func(cfg *config.Config) { addEdgeVpc(cfg).QueryLogs = []string{"central-logs"} },
			adopted: []adoption{{resourceType: types.AseaQueryLoggingAssociation, identifier: "QLogAssoc"}},
			deleted: []string{"QLogAssocGone"},
			skipped: "Edge_vpc",
			level:   "WARN",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, dnsFixture, &QueryLogging{}, tc)
		})
	}
}
