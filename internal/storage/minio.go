package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore keeps photos in a MinIO or S3-compatible bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewMinIOStore connects to cfg.Endpoint and creates the bucket if missing.
func NewMinIOStore(ctx context.Context, cfg *config.MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("MINIO_ENDPOINT is required for the minio storage backend")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return NewMinIOStoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewMinIOStoreWithClient wraps an existing client. The bucket must exist.
func NewMinIOStoreWithClient(client *minio.Client, bucket, prefix string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

func (s *MinIOStore) key(name string) string {
	return path.Join(s.prefix, name)
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Save uploads data as a new object
func (s *MinIOStore) Save(ctx context.Context, originalName, contentType string, data []byte) (string, error) {
	if err := CheckContentType(contentType); err != nil {
		return "", err
	}
	name := NewName(originalName, s.now())
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return name, nil
}

// Open streams an object
func (s *MinIOStore) Open(ctx context.Context, name string) (io.ReadCloser, *Object, error) {
	if err := ValidateName(name); err != nil {
		return nil, nil, err
	}
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("stat %s: %w", name, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get %s: %w", name, err)
	}

	ct := info.ContentType
	if ct == "" {
		ct = contentTypeOf(name)
	}
	return obj, &Object{Name: name, ContentType: ct, Size: info.Size, ModTime: info.LastModified}, nil
}

// Delete removes an object
func (s *MinIOStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

var _ Store = (*MinIOStore)(nil)
