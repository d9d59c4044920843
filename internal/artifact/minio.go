package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/miradorstack/mirador-netforecast/internal/config"
)

const artifactContentType = "application/octet-stream"

// MinioStore keeps the artifact as one object in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	object string
}

// NewMinioStore connects to the endpoint and creates the bucket when it does not exist.
func NewMinioStore(ctx context.Context, cfg config.MinIOConfig, object string) (*MinioStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required when artifact backend is minio")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = "netforecast-artifacts"
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinioStore{client: client, bucket: bucket, object: object}, nil
}

func (s *MinioStore) Load(ctx context.Context) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.translate(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.translate(err)
	}
	return data, nil
}

func (s *MinioStore) Save(ctx context.Context, blob []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(blob), int64(len(blob)),
		minio.PutObjectOptions{ContentType: artifactContentType})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, s.object, err)
	}
	return nil
}

func (s *MinioStore) Close() error { return nil }

func (s *MinioStore) translate(err error) error {
	if isNoSuchKey(err) {
		return ErrArtifactNotFound
	}
	return fmt.Errorf("get %s/%s: %w", s.bucket, s.object, err)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
