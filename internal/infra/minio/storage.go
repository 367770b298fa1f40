package minio

import (
	"context"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage reads source videos from the upload bucket and writes run artifacts
// (frame archives and reports) to the artifact bucket.
type Storage struct {
	client         *miniogo.Client
	uploadBucket   string
	artifactBucket string
}

type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	UploadBucket   string
	ArtifactBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:         client,
		uploadBucket:   cfg.UploadBucket,
		artifactBucket: cfg.ArtifactBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.artifactBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

func (s *Storage) DownloadVideo(ctx context.Context, objectKey string, destPath string) error {
	if err := s.client.FGetObject(ctx, s.uploadBucket, objectKey, destPath, miniogo.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download %s/%s: %w", s.uploadBucket, objectKey, err)
	}
	return nil
}

func (s *Storage) UploadArtifact(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.artifactBucket, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.artifactBucket, objectKey, err)
	}
	return nil
}
