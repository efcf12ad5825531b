package mapping

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// Source reads the files referenced by the mapping table: the table itself,
// resource files and templates. Paths are relative to the source root.
type Source interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// FileSource reads from a local directory.
type FileSource struct {
	Root string
}

func (s FileSource) Read(_ context.Context, path string) ([]byte, error) {
	full := path
	if s.Root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(s.Root, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, &types.LoadError{Path: full, Err: err}
	}
	return data, nil
}

// S3GetObjectAPI is the part of the S3 client the source needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads objects from the ASEA mapping bucket.
type S3Source struct {
	Client S3GetObjectAPI
	Bucket string
	Prefix string
}

func NewS3Source(client *s3.Client, bucket, prefix string) *S3Source {
	return &S3Source{Client: client, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}
}

func (s *S3Source) key(path string) string {
	path = strings.TrimPrefix(path, "/")
	if s.Prefix == "" {
		return path
	}
	return s.Prefix + "/" + path
}

func (s *S3Source) Read(ctx context.Context, path string) ([]byte, error) {
	key := s.key(path)
	uri := fmt.Sprintf("s3://%s/%s", s.Bucket, key)

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &types.LoadError{Path: uri, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &types.LoadError{Path: uri, Err: err}
	}
	return data, nil
}

// MemorySource serves fixed contents, keyed by path.
type MemorySource map[string][]byte

func (s MemorySource) Read(_ context.Context, path string) ([]byte, error) {
	data, ok := s[path]
	if !ok {
		return nil, &types.LoadError{Path: path, Err: os.ErrNotExist}
	}
	return data, nil
}

// ParseS3URI splits s3://bucket/key into bucket and key.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key, bucket != ""
}
