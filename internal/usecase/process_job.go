package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const archiveName = "frames.zip"

// ProcessJobDeps are the adapters a queued run needs. Storage and Notifier may be nil,
// which disables object storage and failure e-mails respectively.
type ProcessJobDeps struct {
	Repo      port.RunRepository
	Storage   port.ArtifactStorage
	Source    port.VideoSource
	Encoder   port.ImageEncoder
	Reports   port.ReportWriter
	Archiver  port.Archiver
	Publisher port.StatusPublisher
	DLQ       port.DLQPublisher
	Notifier  port.FailureNotifier
}

type ProcessJobConfig struct {
	TempDir    string
	MaxRetries int
	// Defaults supplies interval, format and quality when a message omits them.
	Defaults  entity.ProcessRequest
	Processor FrameProcessorConfig
}

// ProcessJobUseCase runs the frame pipeline for one queued request and records the outcome.
type ProcessJobUseCase struct {
	deps   ProcessJobDeps
	logger *zap.Logger
	cfg    ProcessJobConfig
}

func NewProcessJobUseCase(deps ProcessJobDeps, logger *zap.Logger, cfg ProcessJobConfig) *ProcessJobUseCase {
	if cfg.Defaults.Interval == 0 {
		cfg.Defaults.Interval = entity.DefaultInterval
	}
	if cfg.Defaults.Format == "" {
		cfg.Defaults.Format = entity.DefaultFormat
	}
	if cfg.Defaults.Quality == 0 {
		cfg.Defaults.Quality = entity.DefaultQuality
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &ProcessJobUseCase{deps: deps, logger: logger, cfg: cfg}
}

// Execute handles one raw queue message. A nil return acks the message; an error asks the
// consumer to requeue it.
func (uc *ProcessJobUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessJobUseCase.Execute")
	defer span.End()

	var msg entity.ProcessingRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		uc.deadLetter(ctx, rawMsg, "unmarshal_error", "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.VideoPath == "" && msg.VideoKey == "" {
		uc.logger.Error("message has neither video_path nor video_key", zap.ByteString("body", rawMsg))
		uc.deadLetter(ctx, rawMsg, "invalid_message", "invalid_message: missing video_path or video_key")
		return nil
	}
	if msg.RunID == uuid.Nil {
		msg.RunID = uuid.New()
	}

	span.SetAttributes(
		attribute.String("run.id", msg.RunID.String()),
		attribute.String("run.video", videoRef(msg)),
	)
	log := uc.logger.With(zap.String("run_id", msg.RunID.String()), zap.String("video", videoRef(msg)))

	req, reqErr := uc.requestFor(msg)

	run, err := uc.loadRun(ctx, msg, req)
	if err != nil {
		log.Error("failed to load run record", zap.Error(err))
		return err
	}

	if reqErr != nil {
		log.Warn("rejecting invalid request", zap.Error(reqErr))
		return uc.handlePermanentFailure(ctx, run, msg, rawMsg, reqErr.Error(), log)
	}

	if !run.CanRetry() {
		log.Warn("run exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, run, msg, rawMsg, "max retries exceeded", log)
	}

	run.MarkStarted()
	if err := uc.deps.Repo.Update(ctx, run); err != nil {
		log.Error("failed to mark run started", zap.Error(err))
		return fmt.Errorf("update run: %w", err)
	}
	uc.publishStatus(ctx, run, log)

	return uc.processPipeline(ctx, run, msg, req, rawMsg, log)
}

func (uc *ProcessJobUseCase) loadRun(ctx context.Context, msg entity.ProcessingRequestMessage, req entity.ProcessRequest) (*entity.Run, error) {
	run, err := uc.deps.Repo.FindByID(ctx, msg.RunID)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, port.ErrRunNotFound) {
		return nil, fmt.Errorf("find run: %w", err)
	}

	run = entity.NewRun(req, msg.VideoKey, uc.cfg.MaxRetries)
	run.ID = msg.RunID
	if err := uc.deps.Repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

func (uc *ProcessJobUseCase) processPipeline(
	ctx context.Context,
	run *entity.Run,
	msg entity.ProcessingRequestMessage,
	req entity.ProcessRequest,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, run.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return uc.handleRetryableFailure(ctx, run, msg, rawMsg, "create workdir: "+err.Error(), log)
	}
	defer os.RemoveAll(workDir)

	if msg.VideoKey != "" {
		if uc.deps.Storage == nil {
			return uc.handlePermanentFailure(ctx, run, msg, rawMsg, "video_key given but object storage is not configured", log)
		}

		dlStart := time.Now()
		dlCtx, spanDl := tracer.Start(ctx, "download_video")
		req.VideoPath = filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
		err := uc.deps.Storage.DownloadVideo(dlCtx, msg.VideoKey, req.VideoPath)
		spanDl.End()
		if err != nil {
			log.Error("failed to download video", zap.Error(err))
			return uc.handleRetryableFailure(ctx, run, msg, rawMsg, "download_video: "+err.Error(), log)
		}
		metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

		req.OutputDir = filepath.Join(workDir, "output")
	} else {
		req.OutputDir = filepath.Join(uc.localOutputBase(req), run.ID.String())
	}

	proc := NewFrameProcessor(uc.deps.Source, uc.deps.Encoder, uc.deps.Reports, log, uc.cfg.Processor)
	result, err := proc.Process(ctx, req)
	switch {
	case err == nil:
	case entity.IsCancelled(err):
		log.Warn("run interrupted, it will be redelivered")
		run.MarkCancelled()
		bg := context.WithoutCancel(ctx)
		_ = uc.deps.Repo.Update(bg, run)
		uc.publishStatus(bg, run, log)
		return fmt.Errorf("run %s: %w", run.ID, err)
	case isPermanent(err):
		return uc.handlePermanentFailure(ctx, run, msg, rawMsg, err.Error(), log)
	default:
		return uc.handleRetryableFailure(ctx, run, msg, rawMsg, err.Error(), log)
	}

	var archiveKey string
	if uc.deps.Storage != nil {
		archiveKey, err = uc.publishArtifacts(ctx, run, result, workDir)
		if err != nil {
			log.Error("failed to publish artifacts", zap.Error(err))
			return uc.handleRetryableFailure(ctx, run, msg, rawMsg, err.Error(), log)
		}
	}

	run.MarkCompleted(result, archiveKey)
	if err := uc.deps.Repo.Update(ctx, run); err != nil {
		log.Error("failed to mark run completed", zap.Error(err))
		return fmt.Errorf("update run completed: %w", err)
	}
	uc.publishStatus(ctx, run, log)

	log.Info("run completed",
		zap.Int("frame_count", result.Analysis.TotalFrames),
		zap.Float64("duration_secs", result.Metadata.Duration),
		zap.String("archive_key", archiveKey),
	)
	return nil
}

// publishArtifacts zips the frames with the report and uploads the archive and the report.
func (uc *ProcessJobUseCase) publishArtifacts(ctx context.Context, run *entity.Run, result *entity.ProcessResult, workDir string) (string, error) {
	tracer := otel.Tracer("usecase")

	zipStart := time.Now()
	zipCtx, spanZip := tracer.Start(ctx, "create_archive")
	archivePath := filepath.Join(workDir, archiveName)
	files := append(append([]string(nil), result.FramePaths...), result.ReportPath)
	_, err := uc.deps.Archiver.CreateArchive(zipCtx, files, archivePath)
	spanZip.End()
	if err != nil {
		return "", fmt.Errorf("create_archive: %w", err)
	}
	metrics.StageDuration.WithLabelValues("archive").Observe(time.Since(zipStart).Seconds())

	upStart := time.Now()
	upCtx, spanUp := tracer.Start(ctx, "upload_artifacts")
	defer spanUp.End()

	archiveKey := fmt.Sprintf("%s/%s", run.ID, archiveName)
	if err := uc.uploadFile(upCtx, archiveKey, archivePath, "application/zip"); err != nil {
		return "", fmt.Errorf("upload_archive: %w", err)
	}
	reportKey := fmt.Sprintf("%s/%s", run.ID, filepath.Base(result.ReportPath))
	if err := uc.uploadFile(upCtx, reportKey, result.ReportPath, "application/json"); err != nil {
		return "", fmt.Errorf("upload_report: %w", err)
	}
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	return archiveKey, nil
}

func (uc *ProcessJobUseCase) uploadFile(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	return uc.deps.Storage.UploadArtifact(ctx, key, f, stat.Size(), contentType)
}

func (uc *ProcessJobUseCase) handleRetryableFailure(
	ctx context.Context,
	run *entity.Run,
	msg entity.ProcessingRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	run.MarkFailed(errMsg)
	_ = uc.deps.Repo.Update(ctx, run)

	if !run.CanRetry() {
		return uc.handlePermanentFailure(ctx, run, msg, rawMsg, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(run.Attempt)).Inc()
	uc.publishStatus(ctx, run, log)

	return &retryError{attempt: run.Attempt, max: run.MaxAttempts, reason: errMsg}
}

// retryError asks the consumer to requeue a message. Attempt is the run attempt that failed,
// which the consumer uses to size its backoff.
type retryError struct {
	attempt int
	max     int
	reason  string
}

func (e *retryError) Error() string {
	return fmt.Sprintf("retryable failure (attempt %d/%d): %s", e.attempt, e.max, e.reason)
}

func (e *retryError) Attempt() int { return e.attempt }

func (uc *ProcessJobUseCase) handlePermanentFailure(
	ctx context.Context,
	run *entity.Run,
	msg entity.ProcessingRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	run.MarkFailed(errMsg)
	_ = uc.deps.Repo.Update(ctx, run)

	uc.deadLetter(ctx, rawMsg, "failed", errMsg)
	uc.publishStatus(ctx, run, log)

	if msg.NotifyEmail != "" && uc.deps.Notifier != nil {
		if err := uc.deps.Notifier.NotifyFailure(ctx, msg.NotifyEmail, run.ID.String(), videoRef(msg), errMsg); err != nil {
			log.Warn("failure notification not sent", zap.Error(err))
		}
	}
	return nil
}

func (uc *ProcessJobUseCase) deadLetter(ctx context.Context, rawMsg []byte, label, reason string) {
	metrics.DeadLetteredTotal.WithLabelValues(label).Inc()
	if err := uc.deps.DLQ.PublishToDLQ(ctx, rawMsg, reason); err != nil {
		uc.logger.Error("failed to publish to DLQ", zap.Error(err))
	}
}

func (uc *ProcessJobUseCase) publishStatus(ctx context.Context, run *entity.Run, log *zap.Logger) {
	status := entity.RunStatusMessage{
		RunID:        run.ID,
		Status:       run.Status,
		VideoPath:    run.VideoPath,
		VideoKey:     run.VideoKey,
		ArchiveKey:   run.ArchiveKey,
		FrameCount:   run.FrameCount,
		Duration:     run.VideoDuration,
		ErrorMessage: run.ErrorMessage,
		Attempt:      run.Attempt,
		MaxAttempts:  run.MaxAttempts,
	}
	if err := uc.deps.Publisher.PublishStatus(ctx, status); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

// requestFor merges the message parameters over the configured defaults. The returned
// request is usable for the run record even when err is set.
func (uc *ProcessJobUseCase) requestFor(msg entity.ProcessingRequestMessage) (entity.ProcessRequest, error) {
	req := uc.cfg.Defaults
	req.VideoPath = msg.VideoPath
	if msg.Interval != 0 {
		req.Interval = msg.Interval
	}
	if msg.Quality != 0 {
		req.Quality = msg.Quality
	}
	if msg.Format != "" {
		format, err := entity.ParseOutputFormat(msg.Format)
		if err != nil {
			return req, err
		}
		req.Format = format
	}

	check := req
	if check.VideoPath == "" {
		check.VideoPath = msg.VideoKey
	}
	return req, check.Validate()
}

// localOutputBase is the directory that holds per-run output folders for videos read from a
// local path.
func (uc *ProcessJobUseCase) localOutputBase(req entity.ProcessRequest) string {
	if req.OutputDir != "" {
		return req.OutputDir
	}
	name := uc.cfg.Processor.OutputDirName
	if name == "" {
		name = entity.DefaultOutputDirName
	}
	return filepath.Join(filepath.Dir(req.VideoPath), name)
}

// isPermanent reports whether retrying err on the same input cannot succeed.
func isPermanent(err error) bool {
	switch entity.KindOf(err) {
	case entity.KindInvalidRequest, entity.KindEncode, entity.KindAnalysis:
		return true
	}
	return false
}

func videoRef(msg entity.ProcessingRequestMessage) string {
	if msg.VideoKey != "" {
		return msg.VideoKey
	}
	return msg.VideoPath
}
