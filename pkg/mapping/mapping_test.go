package mapping

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Key)
	f.keys = append(f.keys, aws.ToString(params.Bucket)+"/"+key)
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

const jsonTable = `{
	"111111111111|ca-central-1|PBMMAccel-Phase0": {"phase": 0, "resourcePath": "p0.json"},
	"111111111111|ca-central-1|PBMMAccel-Phase1": {"phase": "1", "resourcePath": "p1.json"}
}`

const yamlTable = `
- accountId: "111111111111"
  region: ca-central-1
  stackName: PBMMAccel-Phase1
  phase: 1
  resourcePath: p1.json
  nestedStacks:
    VpcStack:
      resourcePath: vpc.json
`

func TestLoad(t *testing.T) {
	testCases := []struct {
		name   string
		path   string
		stacks int
	}{
		{name: "json object", path: "mapping.json", stacks: 2},
		{name: "yaml list", path: "mapping.yaml", stacks: 1},
	}

	src := MemorySource{
		"mapping.json": []byte(jsonTable),
		"mapping.yaml": []byte(yamlTable),
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Load(context.Background(), src, tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.stacks, m.Len())

			s, ok := m.Get("111111111111", "ca-central-1", "PBMMAccel-Phase1")
			require.True(t, ok)
			assert.Equal(t, types.Phase(1), s.Phase)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	src := MemorySource{"bad.json": []byte(`{"a|b|c": 5}`)}

	_, err := Load(context.Background(), src, "missing.json")
	var loadErr *types.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(context.Background(), src, "bad.json")
	require.ErrorAs(t, err, &loadErr)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mapping.json"), []byte(jsonTable), 0644))

	m, err := Load(context.Background(), FileSource{Root: dir}, "mapping.json")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestS3Source(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{"asea/mapping.json": []byte(jsonTable)}}
	src := &S3Source{Client: client, Bucket: "asea-bucket", Prefix: "asea"}

	m, err := Load(context.Background(), src, "mapping.json")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"asea-bucket/asea/mapping.json"}, client.keys)

	_, err = src.Read(context.Background(), "/nope.json")
	var loadErr *types.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "s3://asea-bucket/asea/nope.json", loadErr.Path)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, ok := ParseS3URI("s3://asea-bucket/migration/mapping.json")
	assert.True(t, ok)
	assert.Equal(t, "asea-bucket", bucket)
	assert.Equal(t, "migration/mapping.json", key)

	_, _, ok = ParseS3URI("/tmp/mapping.json")
	assert.False(t, ok)
}
