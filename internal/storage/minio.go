// Package storage issues short-lived download grants for encrypted result objects.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrStorageUnavailable is returned when the object store cannot produce a
// grant. Verification has already succeeded by then; the handler maps this to
// a retryable-looking failure.
var ErrStorageUnavailable = errors.New("storage unavailable")

// GrantIssuer produces a time-boxed signed URL for an object once the
// patient's identity is confirmed.
type GrantIssuer interface {
	Issue(ctx context.Context, fileKey string, ttl time.Duration) (string, error)
}

// MinioGrantIssuer implements GrantIssuer with presigned GET URLs against a
// MinIO/S3-compatible store.
type MinioGrantIssuer struct {
	client *minio.Client
	bucket string
}

// NewMinioGrantIssuer creates a grant issuer for the given endpoint and bucket.
func NewMinioGrantIssuer(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioGrantIssuer, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioGrantIssuer{client: client, bucket: bucket}, nil
}

// Issue returns a presigned GET URL for fileKey valid for ttl.
func (g *MinioGrantIssuer) Issue(ctx context.Context, fileKey string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(fileKey) == "" {
		return "", fmt.Errorf("%w: empty object key", ErrStorageUnavailable)
	}
	presigned, err := g.client.PresignedGetObject(ctx, g.bucket, fileKey, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return presigned.String(), nil
}
