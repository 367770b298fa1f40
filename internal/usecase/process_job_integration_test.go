package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/imagecodec"
	miniostorage "github.com/fiapx/fiapx-frame-extractor/internal/infra/minio"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/postgres"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/report"
	"github.com/google/uuid"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.uber.org/zap"
)

func TestProcessJobEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("frames"),
		tcpostgres.WithUsername("frames_user"),
		tcpostgres.WithPassword("frames_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	pool, err := postgres.Connect(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, postgres.RunMigrations(ctx, pool))

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       minioEndpoint,
		AccessKey:      "minioadmin",
		SecretKey:      "minioadmin",
		UploadBucket:   "uploads",
		ArtifactBucket: "frames",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)

	videoKey := "user/clip.mp4"
	payload := bytes.Repeat([]byte{0x42}, 1024)
	_, err = minioClient.PutObject(ctx, "uploads", videoKey, bytes.NewReader(payload), int64(len(payload)),
		miniogo.PutObjectOptions{ContentType: "video/mp4"})
	require.NoError(t, err)

	consumerCfg := rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "frames.processing",
		Exchange:    "fiapx.frames",
		DLQ:         "frames.processing.dlq",
		StatusQueue: "frames.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}

	var uc *ProcessJobUseCase
	consumer, err := rabbitmq.NewConsumer(consumerCfg, func(ctx context.Context, body []byte) error {
		return uc.Execute(ctx, body)
	}, zap.NewNop())
	require.NoError(t, err)
	defer consumer.Close()

	pub, err := rabbitmq.NewPublisher(consumer.Conn(), consumerCfg.Exchange)
	require.NoError(t, err)

	uc = NewProcessJobUseCase(ProcessJobDeps{
		Repo:      postgres.NewRunRepository(pool),
		Storage:   storage,
		Source:    &fakeSource{info: entity.StreamInfo{Duration: 61, FPS: 30, Resolution: entity.Resolution{Width: 16, Height: 9}}},
		Encoder:   imagecodec.NewEncoder(),
		Reports:   report.NewWriter(""),
		Archiver:  ffmpeg.NewZipArchiver(),
		Publisher: rabbitmq.NewStatusPublisher(pub),
		DLQ:       rabbitmq.NewDLQPublisher(pub, consumerCfg.DLQ),
	}, zap.NewNop(), ProcessJobConfig{TempDir: t.TempDir(), MaxRetries: 3})

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	go func() {
		_ = consumer.Start(consumerCtx)
	}()

	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()
	statusMsgs, err := statusCh.Consume(consumerCfg.StatusQueue, "", true, false, false, false, nil)
	require.NoError(t, err)

	producer, err := rabbitmq.NewPublisher(rmqConn, consumerCfg.Exchange)
	require.NoError(t, err)
	runID := uuid.New()
	require.NoError(t, rabbitmq.NewRequestPublisher(producer).PublishRequest(ctx, entity.ProcessingRequestMessage{
		RunID: runID, VideoKey: videoKey, Interval: 20,
	}))

	var final entity.RunStatusMessage
	deadline := time.After(2 * time.Minute)
	for final.Status != entity.StateCompleted {
		select {
		case d := <-statusMsgs:
			require.NoError(t, json.Unmarshal(d.Body, &final))
			require.NotEqual(t, entity.StateFailed, final.Status, final.ErrorMessage)
		case <-deadline:
			t.Fatal("timeout waiting for completed status")
		}
	}

	assert.Equal(t, runID, final.RunID)
	assert.Equal(t, 4, final.FrameCount)
	assert.Equal(t, runID.String()+"/frames.zip", final.ArchiveKey)

	obj, err := minioClient.GetObject(ctx, "frames", final.ArchiveKey, miniogo.GetObjectOptions{})
	require.NoError(t, err)
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 5, "four frames and the report")

	var dbStatus string
	var dbFrames int
	err = pool.QueryRow(ctx, "SELECT status, frame_count FROM frame_runs WHERE id=$1", runID).Scan(&dbStatus, &dbFrames)
	require.NoError(t, err)
	assert.Equal(t, string(entity.StateCompleted), dbStatus)
	assert.Equal(t, 4, dbFrames)
}
