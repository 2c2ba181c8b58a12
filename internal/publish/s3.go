package publish

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/agentstation/harvester/pkg/errors"
)

// ObjectPutter is the subset of the minio client used for publishing.
type ObjectPutter interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Config configures an S3-compatible endpoint.
type S3Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Region       string
	UseSSL       bool
	CreateBucket bool
	Timeout      time.Duration
}

// NewMinioClient creates a minio client for cfg.
func NewMinioClient(cfg S3Config) (*minio.Client, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	if endpoint == "" {
		return nil, errors.NewConfigError("publish", "s3 endpoint is required", nil)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: timeout,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, errors.NewConfigError("publish", "failed to create s3 client", err)
	}
	return client, nil
}

// S3 publishes to an object in a bucket.
type S3 struct {
	client       ObjectPutter
	bucket       string
	key          string
	createBucket bool
}

// NewS3 creates an S3 publisher.
func NewS3(client ObjectPutter, bucket, key string, createBucket bool) *S3 {
	return &S3{client: client, bucket: bucket, key: key, createBucket: createBucket}
}

// Publish implements Publisher.
func (p *S3) Publish(ctx context.Context, doc []byte) (string, error) {
	location := "s3://" + p.bucket + "/" + p.key

	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return "", errors.NewIOError("stat bucket", p.bucket, err)
	}
	if !exists {
		if !p.createBucket {
			return "", errors.NewNotFoundError("bucket", p.bucket)
		}
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", errors.NewIOError("create bucket", p.bucket, err)
		}
	}

	_, err = p.client.PutObject(ctx, p.bucket, p.key, bytes.NewReader(doc), int64(len(doc)), minio.PutObjectOptions{
		ContentType:  "application/json",
		CacheControl: "max-age=300",
	})
	if err != nil {
		return "", errors.NewIOError("put", location, err)
	}
	return location, nil
}
