package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/fatih/color"
	"github.com/praetorian-inc/asea-lza/internal/registry"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingSource(t *testing.T) {
	testCases := []struct {
		name   string
		uri    string
		path   string
		bucket string
		prefix string
	}{
		{name: "local", uri: filepath.Join("out", "mapping.json"), path: "mapping.json"},
		{name: "bucket root", uri: "s3://asea-mapping/mapping.json", path: "mapping.json", bucket: "asea-mapping"},
		{name: "bucket prefix", uri: "s3://asea-mapping/migration/mapping.yaml", path: "mapping.yaml", bucket: "asea-mapping", prefix: "migration"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src, p := mappingSource(tc.uri, aws.Config{Region: "ca-central-1"})
			assert.Equal(t, tc.path, p)
			if tc.bucket == "" {
				assert.Equal(t, mapping.FileSource{Root: "out"}, src)
				return
			}
			s3src, ok := src.(*mapping.S3Source)
			require.True(t, ok)
			assert.Equal(t, tc.bucket, s3src.Bucket)
			assert.Equal(t, tc.prefix, s3src.Prefix)
		})
	}
}

func TestDisplayReconcilerTree(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	displayReconcilerTree(&buf, registry.Registry)

	out := buf.String()
	assert.Contains(t, out, "phase 0")
	assert.Contains(t, out, "phase 3")
	assert.Contains(t, out, "├─ transit-gateway\n")
	assert.Contains(t, out, "  ├─ tgw-routes - ")
}

func TestNeedsAWS(t *testing.T) {
	assert.False(t, importSettings{Mapping: "mapping.json"}.needsAWS())
	assert.True(t, importSettings{Mapping: "s3://b/mapping.json"}.needsAWS())
	assert.True(t, importSettings{Mapping: "mapping.json", SsmPolicyLookup: true}.needsAWS())
}
