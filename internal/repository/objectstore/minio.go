package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/oshokin/jvm-assembler/internal/config"
)

// Uploader stores local files under a bucket key.
type Uploader interface {
	// Upload stores the file at localPath as name below the configured prefix
	// and returns the object key.
	Upload(ctx context.Context, name, localPath, contentType string) (string, error)
}

var (
	errNotInitialized = errors.New("object store is not initialized")
	errBucketMissing  = errors.New("bucket does not exist")
)

// MinioStore uploads to a single bucket through the MinIO client.
type MinioStore struct {
	// client talks to the S3 endpoint.
	client *minio.Client
	// bucket receives every object.
	bucket string
	// prefix is prepended to every key.
	prefix string
}

// New creates a store for the publish settings. No request is made until the
// first upload.
func New(cfg *config.Publish) (*MinioStore, error) {
	if cfg == nil {
		return nil, errNotInitialized
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Key returns the object key for name.
func (s *MinioStore) Key(name string) string {
	return Key(s.prefix, name)
}

// Key joins prefix and name into a bucket key without a leading slash.
func Key(prefix, name string) string {
	return strings.TrimPrefix(path.Join("/", prefix, name), "/")
}

// Upload implements Uploader.
func (s *MinioStore) Upload(ctx context.Context, name, localPath, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", errNotInitialized
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return "", fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	if !exists {
		return "", fmt.Errorf("%s: %w", s.bucket, errBucketMissing)
	}

	key := s.Key(name)

	_, err = s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return key, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}
