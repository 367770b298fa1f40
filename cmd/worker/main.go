package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/config"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/email"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/imagecodec"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/memory"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/metrics"
	miniostorage "github.com/fiapx/fiapx-frame-extractor/internal/infra/minio"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/postgres"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/report"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/tracing"
	"github.com/fiapx/fiapx-frame-extractor/internal/usecase"
	"github.com/fiapx/fiapx-frame-extractor/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting frame extraction worker", zap.String("version", entity.AppVersion))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.JaegerEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, entity.AppVersion)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	// Run history
	var repo port.RunRepository = memory.NewRunRepository()
	if cfg.HistoryEnabled() {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		fatalOnErr(err, "connect to postgres")
		defer pool.Close()

		fatalOnErr(postgres.RunMigrations(ctx, pool), "run migrations")
		repo = postgres.NewRunRepository(pool)
	} else {
		log.Info("DATABASE_URL not set, keeping run history in memory")
	}

	// Object storage
	var storage port.ArtifactStorage
	if cfg.StorageEnabled() {
		s, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:       cfg.MinIOEndpoint,
			AccessKey:      cfg.MinIOAccessKey,
			SecretKey:      cfg.MinIOSecretKey,
			UseSSL:         cfg.MinIOUseSSL,
			UploadBucket:   cfg.MinIOUploadBucket,
			ArtifactBucket: cfg.MinIOArtifactBucket,
		})
		fatalOnErr(err, "create minio storage")
		fatalOnErr(s.EnsureBuckets(ctx), "ensure minio buckets")
		storage = s
	}

	var notifier port.FailureNotifier
	if cfg.NotifierEnabled() {
		notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
	}

	// The use case is built before the consumer exists, so the handler is bound late.
	var uc *usecase.ProcessJobUseCase
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQProcessingQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, func(ctx context.Context, body []byte) error {
		return uc.Execute(ctx, body)
	}, log)
	fatalOnErr(err, "create consumer")

	pub, err := rabbitmq.NewPublisher(consumer.Conn(), cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	uc = usecase.NewProcessJobUseCase(usecase.ProcessJobDeps{
		Repo:      repo,
		Storage:   storage,
		Source:    ffmpeg.NewSource(cfg.FFmpegBin, cfg.ProbeTimeout, log),
		Encoder:   imagecodec.NewEncoder(),
		Reports:   report.NewWriter(cfg.ReportFileName),
		Archiver:  ffmpeg.NewZipArchiver(),
		Publisher: rabbitmq.NewStatusPublisher(pub),
		DLQ:       rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ),
		Notifier:  notifier,
	}, log, usecase.ProcessJobConfig{
		TempDir:    cfg.TempDir,
		MaxRetries: cfg.MaxRetries,
		Defaults:   cfg.DefaultRequest(""),
		Processor: usecase.FrameProcessorConfig{
			OutputDirName:    cfg.OutputDirName,
			FramesDirName:    cfg.FramesDirName,
			CleanupOnFailure: cfg.CleanupOnFailure,
		},
	})

	// Metrics server
	var metricsSrv *http.Server
	if cfg.MetricsPort > 0 {
		metricsSrv = metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("worker started, consuming messages", zap.String("queue", cfg.RabbitMQProcessingQueue))

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if metricsSrv != nil {
		metricsSrv.Shutdown(shutdownCtx)
	}

	consumer.Close()
	log.Info("worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
