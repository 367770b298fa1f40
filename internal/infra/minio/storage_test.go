package minio

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

func TestStorageRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := NewStorage(StorageConfig{
		Endpoint:       endpoint,
		AccessKey:      "minioadmin",
		SecretKey:      "minioadmin",
		UploadBucket:   "uploads",
		ArtifactBucket: "frames",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))
	require.NoError(t, storage.EnsureBuckets(ctx), "existing buckets are left alone")

	video := []byte("fake video payload")
	_, err = storage.client.PutObject(ctx, "uploads", "user/clip.mp4", bytes.NewReader(video), int64(len(video)),
		miniogo.PutObjectOptions{ContentType: "video/mp4"})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, storage.DownloadVideo(ctx, "user/clip.mp4", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, video, got)

	assert.Error(t, storage.DownloadVideo(ctx, "user/missing.mp4", filepath.Join(t.TempDir(), "x.mp4")))

	report := []byte(`{"frame_analysis":{}}`)
	require.NoError(t, storage.UploadArtifact(ctx, "run/processing_report.json", bytes.NewReader(report), int64(len(report)), "application/json"))

	obj, err := storage.client.GetObject(ctx, "frames", "run/processing_report.json", miniogo.GetObjectOptions{})
	require.NoError(t, err)
	defer obj.Close()
	stat, err := obj.Stat()
	require.NoError(t, err)
	assert.Equal(t, "application/json", stat.ContentType)
	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, report, body)
}
