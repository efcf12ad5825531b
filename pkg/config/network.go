package config

// Route target kinds of a VPC route table entry.
const (
	RouteTargetTransitGateway        = "transitGateway"
	RouteTargetNatGateway            = "natGateway"
	RouteTargetInternetGateway       = "internetGateway"
	RouteTargetVirtualPrivateGateway = "virtualPrivateGateway"
	RouteTargetVpcPeering            = "vpcPeering"
	RouteTargetGatewayEndpoint       = "gatewayEndpoint"
)

type TransitGatewayRouteAttachment struct {
	VpcName                   string `yaml:"vpcName,omitempty"`
	Account                   string `yaml:"account,omitempty"`
	TransitGatewayPeeringName string `yaml:"transitGatewayPeeringName,omitempty"`
}

type TransitGatewayRouteConfig struct {
	DestinationCidrBlock string                         `yaml:"destinationCidrBlock"`
	Blackhole            bool                           `yaml:"blackhole,omitempty"`
	Attachment           *TransitGatewayRouteAttachment `yaml:"attachment,omitempty"`
}

type TransitGatewayRouteTableConfig struct {
	Name   string                      `yaml:"name"`
	Routes []TransitGatewayRouteConfig `yaml:"routes,omitempty"`
}

type TransitGatewayConfig struct {
	Name        string                           `yaml:"name"`
	Account     string                           `yaml:"account"`
	Region      string                           `yaml:"region"`
	Asn         int64                            `yaml:"asn,omitempty"`
	RouteTables []TransitGatewayRouteTableConfig `yaml:"routeTables,omitempty"`
}

type TransitGatewayPeeringSide struct {
	TransitGatewayName     string   `yaml:"transitGatewayName"`
	Account                string   `yaml:"account"`
	Region                 string   `yaml:"region"`
	RouteTableAssociations []string `yaml:"routeTableAssociations,omitempty"`
}

type TransitGatewayPeeringConfig struct {
	Name      string                    `yaml:"name"`
	Requester TransitGatewayPeeringSide `yaml:"requester"`
	Accepter  TransitGatewayPeeringSide `yaml:"accepter"`
}

type SubnetConfig struct {
	Name             string             `yaml:"name"`
	AvailabilityZone string             `yaml:"availabilityZone,omitempty"`
	RouteTable       string             `yaml:"routeTable,omitempty"`
	Ipv4CidrBlock    string             `yaml:"ipv4CidrBlock,omitempty"`
	ShareTargets     *DeploymentTargets `yaml:"shareTargets,omitempty"`
}

type RouteTableEntryConfig struct {
	Name        string `yaml:"name"`
	Destination string `yaml:"destination,omitempty"`
	Type        string `yaml:"type"`
	Target      string `yaml:"target,omitempty"`
}

type RouteTableConfig struct {
	Name   string                  `yaml:"name"`
	Routes []RouteTableEntryConfig `yaml:"routes,omitempty"`
}

type NatGatewayConfig struct {
	Name   string `yaml:"name"`
	Subnet string `yaml:"subnet"`
}

type TransitGatewayAttachmentTarget struct {
	Name    string `yaml:"name"`
	Account string `yaml:"account"`
}

type TransitGatewayAttachmentConfig struct {
	Name                   string                         `yaml:"name"`
	TransitGateway         TransitGatewayAttachmentTarget `yaml:"transitGateway"`
	Subnets                []string                       `yaml:"subnets"`
	RouteTableAssociations []string                       `yaml:"routeTableAssociations,omitempty"`
	RouteTablePropagations []string                       `yaml:"routeTablePropagations,omitempty"`
}

type SecurityGroupConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type NetworkAclConfig struct {
	Name               string   `yaml:"name"`
	SubnetAssociations []string `yaml:"subnetAssociations,omitempty"`
}

type EndpointConfig struct {
	Service string `yaml:"service"`
}

type GatewayEndpointsConfig struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

type InterfaceEndpointsConfig struct {
	Central   bool             `yaml:"central,omitempty"`
	Subnets   []string         `yaml:"subnets,omitempty"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

type LoadBalancerConfig struct {
	Name           string   `yaml:"name"`
	Scheme         string   `yaml:"scheme,omitempty"`
	Subnets        []string `yaml:"subnets,omitempty"`
	SecurityGroups []string `yaml:"securityGroups,omitempty"`
}

type LoadBalancersConfig struct {
	ApplicationLoadBalancers []LoadBalancerConfig `yaml:"applicationLoadBalancers,omitempty"`
	NetworkLoadBalancers     []LoadBalancerConfig `yaml:"networkLoadBalancers,omitempty"`
}

type TargetGroupConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type,omitempty"`
	Protocol string `yaml:"protocol,omitempty"`
	Port     int    `yaml:"port,omitempty"`
}

type VirtualPrivateGatewayConfig struct {
	Asn int64 `yaml:"asn"`
}

type VpcConfig struct {
	Name                      string                           `yaml:"name"`
	Account                   string                           `yaml:"account,omitempty"`
	Region                    string                           `yaml:"region"`
	DeploymentTargets         *DeploymentTargets               `yaml:"deploymentTargets,omitempty"`
	Cidrs                     []string                         `yaml:"cidrs"`
	InternetGateway           bool                             `yaml:"internetGateway,omitempty"`
	VirtualPrivateGateway     *VirtualPrivateGatewayConfig     `yaml:"virtualPrivateGateway,omitempty"`
	Subnets                   []SubnetConfig                   `yaml:"subnets,omitempty"`
	RouteTables               []RouteTableConfig               `yaml:"routeTables,omitempty"`
	NatGateways               []NatGatewayConfig               `yaml:"natGateways,omitempty"`
	TransitGatewayAttachments []TransitGatewayAttachmentConfig `yaml:"transitGatewayAttachments,omitempty"`
	SecurityGroups            []SecurityGroupConfig            `yaml:"securityGroups,omitempty"`
	NetworkAcls               []NetworkAclConfig               `yaml:"networkAcls,omitempty"`
	GatewayEndpoints          *GatewayEndpointsConfig          `yaml:"gatewayEndpoints,omitempty"`
	InterfaceEndpoints        *InterfaceEndpointsConfig        `yaml:"interfaceEndpoints,omitempty"`
	LoadBalancers             *LoadBalancersConfig             `yaml:"loadBalancers,omitempty"`
	TargetGroups              []TargetGroupConfig              `yaml:"targetGroups,omitempty"`
	QueryLogs                 []string                         `yaml:"queryLogs,omitempty"`
	ResolverRules             []string                         `yaml:"resolverRules,omitempty"`
	UseCentralEndpoints       bool                             `yaml:"useCentralEndpoints,omitempty"`
}

// SharedWith reports whether any subnet of the VPC is shared into an
// account.
func (v *VpcConfig) SharedWith(accounts *AccountsConfig, accountName, region string) bool {
	for _, s := range v.Subnets {
		if s.ShareTargets != nil && s.ShareTargets.Includes(accounts, accountName, region) {
			return true
		}
	}
	return false
}

// IsTemplate reports whether the VPC is stamped into every targeted account.
func (v *VpcConfig) IsTemplate() bool {
	return v.DeploymentTargets != nil
}

type VpcPeeringConfig struct {
	Name string   `yaml:"name"`
	Vpcs []string `yaml:"vpcs"`
}

type ResolverRuleConfig struct {
	Name       string   `yaml:"name"`
	DomainName string   `yaml:"domainName"`
	RuleType   string   `yaml:"ruleType,omitempty"`
	TargetIps  []string `yaml:"targetIps,omitempty"`
}

// Resolver endpoint directions.
const (
	ResolverInbound  = "INBOUND"
	ResolverOutbound = "OUTBOUND"
)

type ResolverEndpointConfig struct {
	Name    string               `yaml:"name"`
	Vpc     string               `yaml:"vpc"`
	Type    string               `yaml:"type"`
	Subnets []string             `yaml:"subnets,omitempty"`
	Rules   []ResolverRuleConfig `yaml:"rules,omitempty"`
}

type QueryLogsConfig struct {
	Name         string   `yaml:"name"`
	Destinations []string `yaml:"destinations,omitempty"`
}

type Route53ResolverConfig struct {
	Endpoints []ResolverEndpointConfig `yaml:"endpoints,omitempty"`
	QueryLogs *QueryLogsConfig         `yaml:"queryLogs,omitempty"`
}

type RuleGroupReference struct {
	Name string `yaml:"name"`
}

type FirewallPolicyDefinition struct {
	StatefulRuleGroups  []RuleGroupReference `yaml:"statefulRuleGroups,omitempty"`
	StatelessRuleGroups []RuleGroupReference `yaml:"statelessRuleGroups,omitempty"`
}

type FirewallPolicyConfig struct {
	Name           string                   `yaml:"name"`
	Regions        []string                 `yaml:"regions,omitempty"`
	FirewallPolicy FirewallPolicyDefinition `yaml:"firewallPolicy"`
}

type FirewallRuleGroupConfig struct {
	Name     string   `yaml:"name"`
	Regions  []string `yaml:"regions,omitempty"`
	Type     string   `yaml:"type,omitempty"`
	Capacity int      `yaml:"capacity,omitempty"`
}

type FirewallConfig struct {
	Name           string   `yaml:"name"`
	Vpc            string   `yaml:"vpc"`
	Subnets        []string `yaml:"subnets,omitempty"`
	FirewallPolicy string   `yaml:"firewallPolicy"`
}

type NetworkFirewallConfig struct {
	Firewalls []FirewallConfig          `yaml:"firewalls,omitempty"`
	Policies  []FirewallPolicyConfig    `yaml:"policies,omitempty"`
	Rules     []FirewallRuleGroupConfig `yaml:"rules,omitempty"`
}

type CentralNetworkServicesConfig struct {
	DelegatedAdminAccount string                 `yaml:"delegatedAdminAccount"`
	Route53Resolver       *Route53ResolverConfig `yaml:"route53Resolver,omitempty"`
	NetworkFirewall       *NetworkFirewallConfig `yaml:"networkFirewall,omitempty"`
}

type NetworkConfig struct {
	TransitGateways        []*TransitGatewayConfig        `yaml:"transitGateways,omitempty"`
	TransitGatewayPeering  []*TransitGatewayPeeringConfig `yaml:"transitGatewayPeering,omitempty"`
	Vpcs                   []*VpcConfig                   `yaml:"vpcs,omitempty"`
	VpcTemplates           []*VpcConfig                   `yaml:"vpcTemplates,omitempty"`
	VpcPeering             []*VpcPeeringConfig            `yaml:"vpcPeering,omitempty"`
	CentralNetworkServices *CentralNetworkServicesConfig  `yaml:"centralNetworkServices,omitempty"`
}

func (n *NetworkConfig) TransitGateway(name string) (*TransitGatewayConfig, bool) {
	for _, tgw := range n.TransitGateways {
		if tgw.Name == name {
			return tgw, true
		}
	}
	return nil, false
}

// TransitGatewaysIn returns the transit gateways owned by an account in a
// region.
func (n *NetworkConfig) TransitGatewaysIn(accountName, region string) []*TransitGatewayConfig {
	var out []*TransitGatewayConfig
	for _, tgw := range n.TransitGateways {
		if tgw.Account == accountName && tgw.Region == region {
			out = append(out, tgw)
		}
	}
	return out
}

func (n *NetworkConfig) Peering(name string) (*TransitGatewayPeeringConfig, bool) {
	for _, p := range n.TransitGatewayPeering {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// AllVpcs returns VPCs followed by VPC templates.
func (n *NetworkConfig) AllVpcs() []*VpcConfig {
	out := make([]*VpcConfig, 0, len(n.Vpcs)+len(n.VpcTemplates))
	out = append(out, n.Vpcs...)
	return append(out, n.VpcTemplates...)
}

func (n *NetworkConfig) Vpc(name string) (*VpcConfig, bool) {
	for _, v := range n.AllVpcs() {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// VpcsIn returns the VPCs deployed into an account and region, including
// templates whose deployment targets include the account.
func (n *NetworkConfig) VpcsIn(accounts *AccountsConfig, accountName, region string) []*VpcConfig {
	var out []*VpcConfig
	for _, v := range n.Vpcs {
		if v.Account == accountName && v.Region == region {
			out = append(out, v)
		}
	}
	for _, v := range n.VpcTemplates {
		if v.Region == region && v.DeploymentTargets != nil && v.DeploymentTargets.Includes(accounts, accountName, region) {
			out = append(out, v)
		}
	}
	return out
}

// ResolverEndpoints returns the resolver endpoints placed in a VPC.
func (n *NetworkConfig) ResolverEndpoints(vpcName string) []ResolverEndpointConfig {
	if n.CentralNetworkServices == nil || n.CentralNetworkServices.Route53Resolver == nil {
		return nil
	}
	var out []ResolverEndpointConfig
	for _, ep := range n.CentralNetworkServices.Route53Resolver.Endpoints {
		if ep.Vpc == vpcName {
			out = append(out, ep)
		}
	}
	return out
}

func (n *NetworkConfig) NetworkFirewall() *NetworkFirewallConfig {
	if n.CentralNetworkServices == nil || n.CentralNetworkServices.NetworkFirewall == nil {
		return &NetworkFirewallConfig{}
	}
	return n.CentralNetworkServices.NetworkFirewall
}

func (n *NetworkConfig) QueryLogs() *QueryLogsConfig {
	if n.CentralNetworkServices == nil || n.CentralNetworkServices.Route53Resolver == nil {
		return nil
	}
	return n.CentralNetworkServices.Route53Resolver.QueryLogs
}
