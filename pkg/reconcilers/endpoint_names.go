package reconcilers

import (
	"fmt"
	"slices"
	"strings"
)

const s3GlobalAccessPoint = "s3-global.accesspoint"

func isSageMakerUI(service string) bool {
	return service == "notebook" || service == "studio"
}

func isChina(partition string) bool {
	return partition == "aws-cn"
}

// EndpointServiceName is the ServiceName of an interface or gateway endpoint.
func EndpointServiceName(service, region, partition string) string {
	switch {
	case service == s3GlobalAccessPoint:
		return "com.amazonaws." + s3GlobalAccessPoint
	case isSageMakerUI(service):
		return fmt.Sprintf("aws.sagemaker.%s.%s", region, service)
	case isChina(partition):
		return fmt.Sprintf("cn.com.amazonaws.%s.%s", region, service)
	}
	return fmt.Sprintf("com.amazonaws.%s.%s", region, service)
}

// EndpointHostedZoneName is the private hosted zone ASEA creates for an
// interface endpoint. Dotted service names are reversed, so ecr.api is
// served under api.ecr.<region>.amazonaws.com.
func EndpointHostedZoneName(service, region, partition string) string {
	suffix := "amazonaws.com"
	if isChina(partition) {
		suffix = "amazonaws.com.cn"
	}
	switch service {
	case "notebook", "studio":
		return fmt.Sprintf("%s.%s.sagemaker.aws", service, region)
	case s3GlobalAccessPoint:
		return "s3-global.accesspoint.aws.com"
	case "ecs-agent":
		return fmt.Sprintf("ecs-a.%s.%s", region, suffix)
	case "ecs-telemetry":
		return fmt.Sprintf("ecs-t.%s.%s", region, suffix)
	}
	parts := strings.Split(service, ".")
	slices.Reverse(parts)
	return fmt.Sprintf("%s.%s.%s", strings.Join(parts, "."), region, suffix)
}

// serviceFromEndpointName inverts EndpointServiceName.
func serviceFromEndpointName(serviceName, region string) (string, bool) {
	if serviceName == "com.amazonaws."+s3GlobalAccessPoint {
		return s3GlobalAccessPoint, true
	}
	for _, prefix := range []string{"com.amazonaws.", "cn.com.amazonaws.", "aws.sagemaker."} {
		if rest, ok := strings.CutPrefix(serviceName, prefix+region+"."); ok && rest != "" {
			return rest, true
		}
	}
	return "", false
}

// zoneNameMatches compares hosted zone names with or without the trailing
// dot.
func zoneNameMatches(legacy, want string) bool {
	return strings.TrimSuffix(legacy, ".") == strings.TrimSuffix(want, ".")
}
