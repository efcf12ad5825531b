package params

import (
	"strconv"
	"strings"

	"github.com/praetorian-inc/asea-lza/pkg/utils"
)

const DefaultPrefix = "/accelerator"

// Kind selects the template of an SSM parameter name. Placeholders {0}, {1}
// are filled from the names passed to Paths.Path.
type Kind string

const (
	IamPolicy              Kind = "/iam/policy/{0}/arn"
	IamRole                Kind = "/iam/role/{0}/arn"
	IamGroup               Kind = "/iam/group/{0}/arn"
	IamUser                Kind = "/iam/user/{0}/arn"
	Vpc                    Kind = "/network/vpc/{0}/id"
	InternetGateway        Kind = "/network/vpc/{0}/internetGateway/id"
	VirtualPrivateGateway  Kind = "/network/vpc/{0}/virtualPrivateGateway/id"
	Subnet                 Kind = "/network/vpc/{0}/subnet/{1}/id"
	RouteTable             Kind = "/network/vpc/{0}/routeTable/{1}/id"
	NatGateway             Kind = "/network/vpc/{0}/natGateway/{1}/id"
	SecurityGroup          Kind = "/network/vpc/{0}/securityGroup/{1}/id"
	NetworkAcl             Kind = "/network/vpc/{0}/networkAcl/{1}/id"
	TransitGatewayAttach   Kind = "/network/vpc/{0}/transitGatewayAttachment/{1}/id"
	VpcEndpoint            Kind = "/network/vpc/{0}/endpoints/{1}/id"
	HostedZone             Kind = "/network/vpc/{0}/route53/hostedZone/{1}/id"
	NetworkFirewall        Kind = "/network/vpc/{0}/networkFirewall/{1}/arn"
	LoadBalancer           Kind = "/network/vpc/{0}/loadBalancer/{1}/arn"
	TargetGroup            Kind = "/network/vpc/{0}/targetGroup/{1}/arn"
	TransitGateway         Kind = "/network/transitGateways/{0}/id"
	TransitGatewayRouteTbl Kind = "/network/transitGateways/{0}/routeTables/{1}/id"
	TransitGatewayPeering  Kind = "/network/transitGateways/{0}/peering/{1}/id"
	VpcPeering             Kind = "/network/vpcPeering/{0}/id"
	ResolverEndpoint       Kind = "/network/route53Resolver/endpoints/{0}/id"
	ResolverRule           Kind = "/network/route53Resolver/rules/{0}/id"
	QueryLogConfig         Kind = "/network/route53Resolver/queryLogConfigs/{0}/id"
	FirewallPolicy         Kind = "/network/networkFirewall/policies/{0}/arn"
	FirewallRuleGroup      Kind = "/network/networkFirewall/ruleGroups/{0}/arn"
)

// Paths builds parameter names under a prefix.
type Paths struct {
	Prefix string
}

func NewPaths(prefix string) Paths {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Paths{Prefix: "/" + strings.Trim(prefix, "/")}
}

func (p Paths) Path(kind Kind, names ...string) string {
	out := string(kind)
	for i, name := range names {
		out = strings.ReplaceAll(out, "{"+strconv.Itoa(i)+"}", name)
	}
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + out
}

// LogicalID builds the logical id of an emitted parameter node.
func LogicalID(parts ...string) string {
	return "SsmParam" + utils.PascalCase(parts...)
}

// Request is a shorthand for building a parameter request with its
// conventional logical id.
func (p Paths) Request(value any, kind Kind, names ...string) Request {
	name := p.Path(kind, names...)
	return Request{LogicalID: LogicalID(name), Name: name, Value: value}
}
