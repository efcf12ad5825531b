package reconcilers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointServiceName(t *testing.T) {
	testCases := []struct {
		service, partition, expected string
	}{
		{service: "ssm", partition: "aws", expected: "com.amazonaws.ca-central-1.ssm"},
		{service: "ecr.api", partition: "aws", expected: "com.amazonaws.ca-central-1.ecr.api"},
		{service: "notebook", partition: "aws", expected: "aws.sagemaker.ca-central-1.notebook"},
		{service: "studio", partition: "aws", expected: "aws.sagemaker.ca-central-1.studio"},
		{service: "s3-global.accesspoint", partition: "aws", expected: "com.amazonaws.s3-global.accesspoint"},
		{service: "ssm", partition: "aws-cn", expected: "cn.com.amazonaws.ca-central-1.ssm"},
	}
	for _, tc := range testCases {
		t.Run(tc.partition+"/"+tc.service, func(t *testing.T) {
			got := EndpointServiceName(tc.service, region, tc.partition)
			assert.Equal(t, tc.expected, got)

			if tc.service != "s3-global.accesspoint" {
				back, ok := serviceFromEndpointName(got, region)
				assert.True(t, ok)
				assert.Equal(t, tc.service, back)
			}
		})
	}
}

func TestEndpointHostedZoneName(t *testing.T) {
	testCases := []struct {
		service, partition, expected string
	}{
		{service: "ssm", partition: "aws", expected: "ssm.ca-central-1.amazonaws.com"},
		{service: "ecr.api", partition: "aws", expected: "api.ecr.ca-central-1.amazonaws.com"},
		{service: "ecr.dkr", partition: "aws", expected: "dkr.ecr.ca-central-1.amazonaws.com"},
		{service: "notebook", partition: "aws", expected: "notebook.ca-central-1.sagemaker.aws"},
		{service: "s3-global.accesspoint", partition: "aws", expected: "s3-global.accesspoint.aws.com"},
		{service: "ecs-agent", partition: "aws", expected: "ecs-a.ca-central-1.amazonaws.com"},
		{service: "ecs-telemetry", partition: "aws", expected: "ecs-t.ca-central-1.amazonaws.com"},
		{service: "ssm", partition: "aws-cn", expected: "ssm.ca-central-1.amazonaws.com.cn"},
	}
	for _, tc := range testCases {
		t.Run(tc.partition+"/"+tc.service, func(t *testing.T) {
			assert.Equal(t, tc.expected, EndpointHostedZoneName(tc.service, region, tc.partition))
		})
	}
}

func TestServiceFromEndpointNameRejectsOtherRegions(t *testing.T) {
	_, ok := serviceFromEndpointName("com.amazonaws.us-east-1.ssm", region)
	assert.False(t, ok)
	_, ok = serviceFromEndpointName("com.amazonaws."+region+".", region)
	assert.False(t, ok)
}

func TestZoneNameMatches(t *testing.T) {
	assert.True(t, zoneNameMatches("ssm.ca-central-1.amazonaws.com.", "ssm.ca-central-1.amazonaws.com"))
	assert.True(t, zoneNameMatches("example.com", "example.com."))
	assert.False(t, zoneNameMatches("ssm.ca-central-1.amazonaws.com", "ssmmessages.ca-central-1.amazonaws.com"))
}
