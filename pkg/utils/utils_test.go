package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPascalCase(t *testing.T) {
	testCases := []struct {
		name     string
		parts    []string
		expected string
	}{
		{name: "single word", parts: []string{"vpc"}, expected: "Vpc"},
		{name: "underscores", parts: []string{"Shared_vpc", "id"}, expected: "SharedVpcId"},
		{name: "ssm path", parts: []string{"/accelerator/network/vpc/App/id"}, expected: "AcceleratorNetworkVpcAppId"},
		{name: "keeps inner case", parts: []string{"myRole", "arn"}, expected: "MyRoleArn"},
		{name: "empty", parts: []string{"", "--"}, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, PascalCase(tc.parts...))
		})
	}
}

func TestNamingHelpers(t *testing.T) {
	assert.Equal(t, "App", TrimVpcSuffix("App_vpc"))
	assert.Equal(t, "App_vpc2", TrimVpcSuffix("App_vpc2"))
	assert.Equal(t, "AppInboundEndpoint", RemoveSpaces("App Inbound Endpoint"))
	assert.Equal(t, "111111111111_ca-central-1_Stack_Nested", SafeFileName("111111111111|ca-central-1|Stack/Nested"))
}

func TestPerformJqQuery(t *testing.T) {
	doc := []byte(`[
		{"logicalResourceId": "A", "resourceType": "AWS::EC2::VPC"},
		{"logicalResourceId": "B", "resourceType": "AWS::EC2::Subnet"},
		{"logicalResourceId": "C", "resourceType": "AWS::EC2::Subnet"}
	]`)

	results, err := PerformJqQuery(doc, `.[] | select(.resourceType == "AWS::EC2::Subnet") | .logicalResourceId`)
	require.NoError(t, err)
	assert.Equal(t, []any{"B", "C"}, results)

	_, err = PerformJqQuery(doc, `.[] | select(`)
	assert.Error(t, err)
}

func TestEnsureFileDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "file.json")

	require.NoError(t, EnsureFileDirectory(target))
	require.NoError(t, EnsureFileDirectory(target))

	info, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, "/abs/p", ResolvePath("/base", "/abs/p"))
	assert.Equal(t, filepath.Join("/base", "rel"), ResolvePath("/base", "rel"))
}
