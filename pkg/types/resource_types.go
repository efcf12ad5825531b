package types

// CloudFormation resource types found in ASEA stacks.
const (
	CfnStack = "AWS::CloudFormation::Stack"

	CfnIamManagedPolicy   = "AWS::IAM::ManagedPolicy"
	CfnIamRole            = "AWS::IAM::Role"
	CfnIamGroup           = "AWS::IAM::Group"
	CfnIamUser            = "AWS::IAM::User"
	CfnIamInstanceProfile = "AWS::IAM::InstanceProfile"

	CfnVpc                     = "AWS::EC2::VPC"
	CfnVpcCidrBlock            = "AWS::EC2::VPCCidrBlock"
	CfnInternetGateway         = "AWS::EC2::InternetGateway"
	CfnVpnGateway              = "AWS::EC2::VPNGateway"
	CfnVpcGatewayAttachment    = "AWS::EC2::VPCGatewayAttachment"
	CfnSubnet                  = "AWS::EC2::Subnet"
	CfnRouteTable              = "AWS::EC2::RouteTable"
	CfnRoute                   = "AWS::EC2::Route"
	CfnSubnetRouteTableAssoc   = "AWS::EC2::SubnetRouteTableAssociation"
	CfnNatGateway              = "AWS::EC2::NatGateway"
	CfnEip                     = "AWS::EC2::EIP"
	CfnSecurityGroup           = "AWS::EC2::SecurityGroup"
	CfnSecurityGroupIngress    = "AWS::EC2::SecurityGroupIngress"
	CfnSecurityGroupEgress     = "AWS::EC2::SecurityGroupEgress"
	CfnNetworkAcl              = "AWS::EC2::NetworkAcl"
	CfnNetworkAclEntry         = "AWS::EC2::NetworkAclEntry"
	CfnSubnetNetworkAclAssoc   = "AWS::EC2::SubnetNetworkAclAssociation"
	CfnVpcEndpoint             = "AWS::EC2::VPCEndpoint"
	CfnVpcPeeringConnection    = "AWS::EC2::VPCPeeringConnection"
	CfnTransitGateway          = "AWS::EC2::TransitGateway"
	CfnTransitGatewayRouteTbl  = "AWS::EC2::TransitGatewayRouteTable"
	CfnTransitGatewayAttach    = "AWS::EC2::TransitGatewayAttachment"
	CfnTransitGatewayPeering   = "AWS::EC2::TransitGatewayPeeringAttachment"
	CfnTransitGatewayRoute     = "AWS::EC2::TransitGatewayRoute"
	CfnTransitGatewayRTAssoc   = "AWS::EC2::TransitGatewayRouteTableAssociation"
	CfnTransitGatewayRTPropag  = "AWS::EC2::TransitGatewayRouteTablePropagation"
	CfnHostedZone              = "AWS::Route53::HostedZone"
	CfnRecordSet               = "AWS::Route53::RecordSet"
	CfnResolverEndpoint        = "AWS::Route53Resolver::ResolverEndpoint"
	CfnResolverRule            = "AWS::Route53Resolver::ResolverRule"
	CfnResolverRuleAssoc       = "AWS::Route53Resolver::ResolverRuleAssociation"
	CfnQueryLoggingConfig      = "AWS::Route53Resolver::ResolverQueryLoggingConfig"
	CfnQueryLoggingConfigAssoc = "AWS::Route53Resolver::ResolverQueryLoggingConfigAssociation"
	CfnFirewall                = "AWS::NetworkFirewall::Firewall"
	CfnFirewallPolicy          = "AWS::NetworkFirewall::FirewallPolicy"
	CfnFirewallRuleGroup       = "AWS::NetworkFirewall::RuleGroup"
	CfnLoadBalancer            = "AWS::ElasticLoadBalancingV2::LoadBalancer"
	CfnTargetGroup             = "AWS::ElasticLoadBalancingV2::TargetGroup"
	CfnListener                = "AWS::ElasticLoadBalancingV2::Listener"
	CfnSsmParameter            = "AWS::SSM::Parameter"
	CfnSsmResourceDataSync     = "AWS::SSM::ResourceDataSync"
	CfnSsmAssociation          = "AWS::SSM::Association"
)

// AseaResourceType names a family of adopted resources in the mapping
// output.
type AseaResourceType string

const (
	AseaIamPolicy                 AseaResourceType = "IAM_POLICY"
	AseaIamRole                   AseaResourceType = "IAM_ROLE"
	AseaIamGroup                  AseaResourceType = "IAM_GROUP"
	AseaIamUser                   AseaResourceType = "IAM_USER"
	AseaIamInstanceProfile        AseaResourceType = "IAM_INSTANCE_PROFILE"
	AseaVpc                       AseaResourceType = "EC2_VPC"
	AseaVpcCidr                   AseaResourceType = "EC2_VPC_CIDR"
	AseaInternetGateway           AseaResourceType = "EC2_IGW"
	AseaVpnGateway                AseaResourceType = "EC2_VPN_GW"
	AseaSubnet                    AseaResourceType = "EC2_SUBNET"
	AseaRouteTable                AseaResourceType = "ROUTE_TABLE"
	AseaNatGateway                AseaResourceType = "NAT_GATEWAY"
	AseaSecurityGroup             AseaResourceType = "EC2_SECURITY_GROUP"
	AseaNetworkAcl                AseaResourceType = "EC2_NACL"
	AseaVpcEndpoint               AseaResourceType = "EC2_VPC_ENDPOINT"
	AseaVpcPeering                AseaResourceType = "VPC_PEERING"
	AseaTransitGateway            AseaResourceType = "TRANSIT_GATEWAY"
	AseaTransitGatewayRouteTable  AseaResourceType = "TRANSIT_GATEWAY_ROUTE_TABLE"
	AseaTransitGatewayAttachment  AseaResourceType = "TRANSIT_GATEWAY_ATTACHMENT"
	AseaTransitGatewayPeering     AseaResourceType = "TRANSIT_GATEWAY_PEERING"
	AseaTransitGatewayRoute       AseaResourceType = "TRANSIT_GATEWAY_ROUTE"
	AseaTransitGatewayAssociation AseaResourceType = "TRANSIT_GATEWAY_ASSOCIATION"
	AseaTransitGatewayPropagation AseaResourceType = "TRANSIT_GATEWAY_PROPAGATION"
	AseaRoute53HostedZone         AseaResourceType = "ROUTE_53_PHZ_ID"
	AseaRoute53RecordSet          AseaResourceType = "ROUTE_53_RECORD_SET"
	AseaResolverEndpoint          AseaResourceType = "ROUTE_53_RESOLVER_ENDPOINT"
	AseaResolverRule              AseaResourceType = "ROUTE_53_RESOLVER_RULE"
	AseaQueryLogging              AseaResourceType = "ROUTE_53_QUERY_LOGGING"
	AseaQueryLoggingAssociation   AseaResourceType = "ROUTE_53_QUERY_LOGGING_ASSOCIATION"
	AseaNetworkFirewall           AseaResourceType = "NFW"
	AseaNetworkFirewallPolicy     AseaResourceType = "NFW_POLICY"
	AseaNetworkFirewallRuleGroup  AseaResourceType = "NFW_RULE_GROUP"
	AseaApplicationLoadBalancer   AseaResourceType = "ELB_ALB"
	AseaNetworkLoadBalancer       AseaResourceType = "ELB_NLB"
	AseaTargetGroup               AseaResourceType = "ELB_TARGET_GROUP"
	AseaSsmResourceDataSync       AseaResourceType = "SSM_RESOURCE_DATA_SYNC"
	AseaSsmAssociation            AseaResourceType = "SSM_ASSOCIATION"
)
