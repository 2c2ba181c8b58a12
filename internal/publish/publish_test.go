package publish

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/errors"
)

const doc = `{"@type":"dcat:Catalog","dataset":[]}`

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	loc, err := (&Writer{W: &buf, Name: "stdout"}).Publish(context.Background(), []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "stdout", loc)
	assert.Equal(t, doc, buf.String())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "data.json")
	p := &File{Path: path}

	loc, err := p.Publish(context.Background(), []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, path, loc)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))

	_, err = p.Publish(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is cleaned up")
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want Target
	}{
		{"", Target{Kind: "stdout"}},
		{"-", Target{Kind: "stdout"}},
		{"out/data.json", Target{Kind: "file", Path: "out/data.json"}},
		{"s3://catalogs/agency/data.json", Target{Kind: "s3", Bucket: "catalogs", Path: "agency/data.json"}},
		{"s3://catalogs", Target{Kind: "s3", Bucket: "catalogs", Path: "data.json"}},
		{"s3://catalogs/agency/", Target{Kind: "s3", Bucket: "catalogs", Path: "agency/data.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTarget(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseTarget("s3:///key")
	assert.True(t, errors.IsConfig(err))
}

type fakeBucket struct {
	exists  bool
	made    bool
	putErr  error
	objects map[string][]byte
	opts    minio.PutObjectOptions
}

func (f *fakeBucket) BucketExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeBucket) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made = true
	f.exists = true
	return nil
}

func (f *fakeBucket) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[bucket+"/"+key] = data
	f.opts = opts
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestS3(t *testing.T) {
	ctx := context.Background()

	t.Run("puts the document", func(t *testing.T) {
		b := &fakeBucket{exists: true}
		loc, err := NewS3(b, "catalogs", "agency/data.json", false).Publish(ctx, []byte(doc))
		require.NoError(t, err)
		assert.Equal(t, "s3://catalogs/agency/data.json", loc)
		assert.Equal(t, doc, string(b.objects["catalogs/agency/data.json"]))
		assert.Equal(t, "application/json", b.opts.ContentType)
		assert.False(t, b.made)
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := NewS3(&fakeBucket{}, "catalogs", "data.json", false).Publish(ctx, []byte(doc))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("creates bucket", func(t *testing.T) {
		b := &fakeBucket{}
		_, err := NewS3(b, "catalogs", "data.json", true).Publish(ctx, []byte(doc))
		require.NoError(t, err)
		assert.True(t, b.made)
	})

	t.Run("put fault", func(t *testing.T) {
		b := &fakeBucket{exists: true, putErr: stderrors.New("denied")}
		_, err := NewS3(b, "catalogs", "data.json", false).Publish(ctx, []byte(doc))
		var ioErr *errors.IOError
		assert.ErrorAs(t, err, &ioErr)
	})
}

func TestNewMinioClient(t *testing.T) {
	_, err := NewMinioClient(S3Config{})
	assert.True(t, errors.IsConfig(err))

	client, err := NewMinioClient(S3Config{Endpoint: "https://s3.example.gov", AccessKey: "k", SecretKey: "s", UseSSL: true})
	require.NoError(t, err)
	assert.Equal(t, "s3.example.gov", client.EndpointURL().Host)
}
