package reconcilers

import (
	"testing"

	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/stretchr/testify/assert"
)

func endpointFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	vpc := cfg.Network.Vpcs[0]
	vpc.GatewayEndpoints = &config.GatewayEndpointsConfig{Endpoints: []config.EndpointConfig{{Service: "s3"}}}
	vpc.InterfaceEndpoints = &config.InterfaceEndpointsConfig{
		Subnets:   []string{"Web"},
		Endpoints: []config.EndpointConfig{{Service: "ssm"}, {Service: "kms"}},
	}

	vpcRef := types.NewRef("AppVpc")
	iface := func(id, physical, service string) *types.Record {
		return record(id, physical, types.CfnVpcEndpoint, map[string]any{
			"ServiceName":     "com.amazonaws.ca-central-1." + service,
			"VpcEndpointType": "Interface",
			"VpcId":           vpcRef,
		})
	}

	f := &fixture{cfg: cfg, files: mapping.MemorySource{}}
	f.workload = f.stack(t, workloadID, "Workload1-Phase1", 1,
		named("AppVpc", "vpc-app", types.CfnVpc, "App_vpc", nil),
		named("WebSubnet", "subnet-web", types.CfnSubnet, "Web_App", map[string]any{"VpcId": vpcRef}),
		record("EpS3", "vpce-s3", types.CfnVpcEndpoint, map[string]any{
			"ServiceName": map[string]any{"Fn::Join": []any{"", []any{"com.amazonaws.", types.NewRef("AWS::Region"), ".s3"}}},
			"VpcId":       vpcRef,
		}),
		iface("EpSsm", "vpce-ssm", "ssm"),
		iface("EpKms", "vpce-kms", "kms"),
		iface("EpEc2", "vpce-ec2", "ec2"),
		record("ZoneSsm", "Z0SSM", types.CfnHostedZone, map[string]any{"Name": "ssm.ca-central-1.amazonaws.com."}),
		record("RsSsm", "", types.CfnRecordSet, map[string]any{"HostedZoneId": types.NewRef("ZoneSsm"), "Type": "A"}),
		record("ZoneEc2", "Z0EC2", types.CfnHostedZone, map[string]any{"Name": "ec2.ca-central-1.amazonaws.com"}),
		record("RsEc2", "", types.CfnRecordSet, map[string]any{"HostedZoneId": types.NewRef("ZoneEc2"), "Type": "A"}),
		record("EpEc2Param", "", types.CfnSsmParameter, map[string]any{
			"Name":  "/accelerator/network/vpc/App_vpc/endpoints/ec2/id",
			"Value": types.NewRef("EpEc2"),
		}),
	)
	f.mappings = types.NewMappings(f.workload)
	return f
}

func TestVpcEndpoints(t *testing.T) {
	testCases := []familyCase{
		{
			name: "configured",
			adopted: []adoption{
				{resourceType: types.AseaVpcEndpoint, identifier: "vpce-s3"},
				{resourceType: types.AseaVpcEndpoint, identifier: "vpce-ssm"},
				{resourceType: types.AseaVpcEndpoint, identifier: "vpce-kms"},
				{resourceType: types.AseaRoute53HostedZone, identifier: "Z0SSM"},
				{resourceType: types.AseaRoute53RecordSet, identifier: "RsSsm"},
			},
			deleted: []string{"EpEc2", "ZoneEc2", "RsEc2", "EpEc2Param"},
			kept:    []string{"EpS3", "EpSsm", "EpKms", "ZoneSsm", "RsSsm"},
			// kms has no hosted zone: its endpoint is adopted and only DNS is skipped
			skipped: "kms",
			level:   "WARN",
			check: func(t *testing.T, f *fixture, result *Result) {
				subnets, _ := result.Templates[f.workload.Key()].Resources["EpSsm"].Property("SubnetIds")
				assert.Equal(t, []any{types.NewRef("WebSubnet")}, subnets)

				names := parameterNames(result, f.workload.Key())
				assert.Contains(t, names, "/accelerator/network/vpc/App_vpc/endpoints/kms/id")
				assert.Contains(t, names, "/accelerator/network/vpc/App_vpc/route53/hostedZone/ssm/id")
				assert.NotContains(t, names, "/accelerator/network/vpc/App_vpc/route53/hostedZone/kms/id")
			},
		},
		{
			name: "unconfigured",
			mutate: func(cfg *config.Config) {
				cfg.Network.Vpcs[0].GatewayEndpoints = nil
				cfg.Network.Vpcs[0].InterfaceEndpoints = nil
			},
			deleted: []string{"EpS3", "EpSsm", "EpKms", "EpEc2", "ZoneSsm", "RsSsm", "ZoneEc2", "RsEc2", "EpEc2Param"},
			kept:    []string{"AppVpc", "WebSubnet"},
		},
		{
			name:    "endpoint without a legacy resource",
			mutate:  func(cfg *config.Config) { addInterface(cfg, "logs") },
			adopted: []adoption{{resourceType: types.AseaVpcEndpoint, identifier: "vpce-ssm"}},
			skipped: "logs",
			level:   "INFO",
		},
		{
			name: "gateway endpoint configured as interface",
			mutate: func(cfg *config.Config) {
				cfg.Network.Vpcs[0].GatewayEndpoints = nil
				addInterface(cfg, "s3")
			},
			deleted: []string{"EpS3"},
			skipped: "s3",
			level:   "INFO",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runFamily(t, endpointFixture, &VpcEndpoints{}, tc)
		})
	}
}

func addInterface(cfg *config.Config, service string) {
	ie := cfg.Network.Vpcs[0].InterfaceEndpoints
	ie.Endpoints = append(ie.Endpoints, config.EndpointConfig{Service: service})
}
