package outputproviders

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/asea-lza/pkg/reconcilers"
	"github.com/praetorian-inc/asea-lza/pkg/template"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateFileName(t *testing.T) {
	testCases := []struct {
		key      string
		expected string
	}{
		{key: "111111111111|ca-central-1|Network-Phase0", expected: "templates/111111111111/ca-central-1/Network-Phase0.json"},
		{key: "111111111111|ca-central-1|Network-Phase1/VpcStack", expected: "templates/111111111111/ca-central-1/Network-Phase1/VpcStack.json"},
		{key: "111111111111|ca-central-1|..", expected: "templates/111111111111/ca-central-1/_.json"},
	}
	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			assert.Equal(t, tc.expected, TemplateFileName(tc.key))
		})
	}
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	tmpl := template.New()
	tmpl.Resources["Vpc"] = &template.Resource{Type: "AWS::EC2::VPC"}

	result := &reconcilers.Result{
		Mappings:  []types.ResourceMappingEntry{{AccountID: "111111111111", Region: "ca-central-1", StackName: "Network", ResourceType: types.AseaVpc, Identifier: "vpc-1", LogicalID: "Vpc"}},
		Templates: map[string]*template.Template{
			"111111111111|ca-central-1|Network": tmpl,
		},
	}

	written, err := NewJsonFileProvider(dir).WriteResult(result)
	require.NoError(t, err)
	assert.Len(t, written, 3)

	var mappings []types.ResourceMappingEntry
	data, err := os.ReadFile(filepath.Join(dir, ResourceMappingFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &mappings))
	assert.Equal(t, result.Mappings, mappings)

	data, err = os.ReadFile(filepath.Join(dir, DeletionsFile))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data), "no deletions is an empty list")

	data, err = os.ReadFile(filepath.Join(dir, "templates", "111111111111", "ca-central-1", "Network.json"))
	require.NoError(t, err)
	parsed, err := template.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "AWS::EC2::VPC", parsed.Resources["Vpc"].Type)
}
