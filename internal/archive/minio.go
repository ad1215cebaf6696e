package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioExporter copies files into an S3-compatible bucket under a prefix.
type MinioExporter struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioExporter connects to endpoint and creates bucket if it is missing.
func NewMinioExporter(ctx context.Context, endpoint, accessKey, secretKey string, useSSL bool, bucket, prefix string) (*MinioExporter, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
	}

	return &MinioExporter{client: client, bucket: bucket, prefix: prefix}, nil
}

// ObjectKey is the key a file named name is stored under.
func (m *MinioExporter) ObjectKey(name string) string {
	return path.Join(m.prefix, name)
}

func (m *MinioExporter) Export(ctx context.Context, name, contentType string, content []byte) (string, error) {
	key := m.ObjectKey(name)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("archiving %s: %w", name, err)
	}
	return fmt.Sprintf("s3://%s/%s", m.bucket, key), nil
}
