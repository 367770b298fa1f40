package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type FrameProcessorConfig struct {
	OutputDirName string
	FramesDirName string
	// CleanupOnFailure extends the cancellation cleanup to failed runs.
	CleanupOnFailure bool
}

// FrameProcessor runs the probe, sample, encode, analyze and report pipeline for one video at a time.
//
// Cancellation is cooperative. Cancel sets a flag that is read before each stage, before each
// sampled frame and before each analysed file, so a cancel takes effect after at most one
// frame decode and encode.
type FrameProcessor struct {
	source  port.VideoSource
	encoder port.ImageEncoder
	reports port.ReportWriter
	logger  *zap.Logger
	cfg     FrameProcessorConfig
	now     func() time.Time

	cancelled atomic.Bool
	state     atomic.Value

	statusMu sync.RWMutex
	status   func(string)
}

func NewFrameProcessor(
	source port.VideoSource,
	encoder port.ImageEncoder,
	reports port.ReportWriter,
	logger *zap.Logger,
	cfg FrameProcessorConfig,
) *FrameProcessor {
	if cfg.OutputDirName == "" {
		cfg.OutputDirName = entity.DefaultOutputDirName
	}
	if cfg.FramesDirName == "" {
		cfg.FramesDirName = entity.DefaultFramesDirName
	}

	p := &FrameProcessor{
		source:  source,
		encoder: encoder,
		reports: reports,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
	p.state.Store(entity.StateIdle)
	return p
}

// SetStatusFunc installs the receiver of human readable progress lines. It may be called concurrently with Process.
func (p *FrameProcessor) SetStatusFunc(fn func(string)) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status = fn
}

// Cancel asks the running pipeline to stop at its next checkpoint.
func (p *FrameProcessor) Cancel() {
	p.cancelled.Store(true)
}

func (p *FrameProcessor) State() entity.RunState {
	return p.state.Load().(entity.RunState)
}

// OutputDir is where a run of req writes its frames and report.
func (p *FrameProcessor) OutputDir(req entity.ProcessRequest) string {
	if req.OutputDir != "" {
		return req.OutputDir
	}
	return filepath.Join(filepath.Dir(req.VideoPath), p.cfg.OutputDirName)
}

// Process runs the whole pipeline. A cancelled run removes what it wrote and returns an error
// matching entity.ErrProcessCancelled; other errors are returned unchanged.
func (p *FrameProcessor) Process(ctx context.Context, req entity.ProcessRequest) (*entity.ProcessResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "FrameProcessor.Process")
	defer span.End()

	p.cancelled.Store(false)
	p.state.Store(entity.StateIdle)

	if err := req.Validate(); err != nil {
		p.state.Store(entity.StateFailed)
		metrics.RunsTotal.WithLabelValues(string(entity.StateFailed)).Inc()
		return nil, err
	}

	outputDir := p.OutputDir(req)
	span.SetAttributes(
		attribute.String("video.path", req.VideoPath),
		attribute.Int("frames.interval", req.Interval),
		attribute.String("frames.format", string(req.Format)),
	)
	log := p.logger.With(zap.String("video", req.VideoPath), zap.String("output_dir", outputDir))

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	started := time.Now()
	written := &runOutputs{}
	result, err := p.run(ctx, req, outputDir, written, log)

	switch {
	case err == nil:
		p.state.Store(entity.StateCompleted)
		log.Info("video processed",
			zap.Int("frame_count", result.Analysis.TotalFrames),
			zap.Float64("average_frame_mb", result.Analysis.AverageFileSize),
			zap.Duration("elapsed", time.Since(started)),
		)
	case entity.IsCancelled(err):
		p.state.Store(entity.StateCancelled)
		log.Info("processing cancelled, removing partial output")
		written.remove(log)
		err = entity.Cancelled()
	default:
		p.state.Store(entity.StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("processing failed", zap.Error(err))
		if p.cfg.CleanupOnFailure {
			written.remove(log)
		}
	}

	metrics.RunsTotal.WithLabelValues(string(p.State())).Inc()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *FrameProcessor) run(ctx context.Context, req entity.ProcessRequest, outputDir string, written *runOutputs, log *zap.Logger) (*entity.ProcessResult, error) {
	if err := written.mkdirAll(outputDir); err != nil {
		return nil, entity.NewIOError("create output directory", outputDir, err)
	}

	var metadata entity.VideoMetadata
	p.report(log, "Extracting video metadata...")
	err := p.stage(ctx, entity.StateProbingMetadata, func(ctx context.Context) error {
		var err error
		metadata, err = p.probeMetadata(ctx, req.VideoPath)
		return err
	})
	if err != nil {
		return nil, err
	}

	var frames []entity.FrameRecord
	p.report(log, "Extracting frames...")
	err = p.stage(ctx, entity.StateExtractingFrames, func(ctx context.Context) error {
		var err error
		frames, err = p.extractFrames(ctx, req, filepath.Join(outputDir, p.cfg.FramesDirName), written, log)
		return err
	})
	if err != nil {
		return nil, err
	}

	var analysis entity.FrameAnalysis
	p.report(log, "Analyzing extracted frames...")
	err = p.stage(ctx, entity.StateAnalyzingFrames, func(ctx context.Context) error {
		var err error
		analysis, err = AnalyzeFrames(frames, func() error { return p.checkpoint(ctx) })
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, size := range analysis.FrameSizes {
		metrics.FrameSizeBytes.WithLabelValues(string(req.Format)).Observe(size * 1024 * 1024)
	}

	var reportPath string
	p.report(log, "Generating processing report...")
	err = p.stage(ctx, entity.StateWritingReport, func(ctx context.Context) error {
		var err error
		reportPath, err = p.writeReport(metadata, analysis, outputDir)
		if err == nil {
			written.file(reportPath)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	p.report(log, fmt.Sprintf("Processing report saved to %s", reportPath))

	framePaths := make([]string, len(frames))
	for i, f := range frames {
		framePaths[i] = f.Path
	}

	return &entity.ProcessResult{
		Metadata:        metadata,
		Analysis:        analysis,
		OutputDirectory: outputDir,
		FramePaths:      framePaths,
		ReportPath:      reportPath,
	}, nil
}

// stage checks for cancellation, then runs fn under its own span and duration metric.
func (p *FrameProcessor) stage(ctx context.Context, state entity.RunState, fn func(context.Context) error) error {
	if err := p.checkpoint(ctx); err != nil {
		return err
	}
	p.state.Store(state)

	ctx, span := otel.Tracer("usecase").Start(ctx, string(state))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(string(state)).Observe(time.Since(start).Seconds())
	if err != nil && !entity.IsCancelled(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *FrameProcessor) checkpoint(ctx context.Context) error {
	if p.cancelled.Load() || ctx.Err() != nil {
		return entity.Cancelled()
	}
	return nil
}

func (p *FrameProcessor) probeMetadata(ctx context.Context, path string) (entity.VideoMetadata, error) {
	video, err := p.source.Open(ctx, path)
	if err != nil {
		if cerr := p.checkpoint(ctx); cerr != nil {
			return entity.VideoMetadata{}, cerr
		}
		return entity.VideoMetadata{}, asKind(err, func(err error) error { return entity.NewMediaOpenError(path, err) })
	}
	defer video.Close()

	info, err := os.Stat(path)
	if err != nil {
		return entity.VideoMetadata{}, entity.NewMediaOpenError(path, err)
	}

	stream := video.Info()
	return entity.VideoMetadata{
		Duration:   stream.Duration,
		FPS:        stream.FPS,
		Resolution: stream.Resolution,
		Filename:   filepath.Base(path),
		FilesizeMB: entity.BytesToMB(info.Size()),
		Format:     filepath.Ext(path),
		AnalyzedAt: p.now().Format(entity.ISOTimestamp),
	}, nil
}

func (p *FrameProcessor) extractFrames(ctx context.Context, req entity.ProcessRequest, framesDir string, written *runOutputs, log *zap.Logger) ([]entity.FrameRecord, error) {
	if err := written.mkdirAll(framesDir); err != nil {
		return nil, entity.NewIOError("create frames directory", framesDir, err)
	}

	video, err := p.source.Open(ctx, req.VideoPath)
	if err != nil {
		if cerr := p.checkpoint(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, asKind(err, func(err error) error { return entity.NewMediaOpenError(req.VideoPath, err) })
	}
	defer video.Close()

	timestamps := entity.SampleTimestamps(video.Info().Duration, req.Interval)
	frames := make([]entity.FrameRecord, 0, len(timestamps))

	for i, ts := range timestamps {
		if err := p.checkpoint(ctx); err != nil {
			return frames, err
		}

		index := i + 1
		img, err := video.FrameAt(ctx, float64(ts))
		if err != nil {
			if cerr := p.checkpoint(ctx); cerr != nil {
				return frames, cerr
			}
			return frames, asKind(err, func(err error) error { return entity.NewMediaOpenError(req.VideoPath, err) })
		}

		path := filepath.Join(framesDir, entity.FrameFileName(ts, index, req.Format))
		if err := p.encoder.Encode(img, path, req.Format, req.Quality); err != nil {
			return frames, asKind(err, func(err error) error { return entity.NewEncodeError(path, err) })
		}
		written.file(path)

		frames = append(frames, entity.FrameRecord{Timestamp: ts, Index: index, Path: path})
		metrics.FramesExtractedTotal.Inc()
		p.report(log, fmt.Sprintf("Extracted frame %d/%d at %ds", index, len(timestamps), ts))
	}

	return frames, nil
}

func (p *FrameProcessor) writeReport(metadata entity.VideoMetadata, analysis entity.FrameAnalysis, outputDir string) (string, error) {
	rep := entity.ProcessingReport{
		VideoMetadata:       metadata,
		FrameAnalysis:       analysis,
		ProcessingTimestamp: p.now().Format(entity.ISOTimestamp),
	}

	path, err := p.reports.Write(rep, outputDir)
	if err != nil {
		return "", asKind(err, func(err error) error { return entity.NewIOError("write report", outputDir, err) })
	}
	return path, nil
}

// runOutputs records the files and directories one run created, so cleanup never touches
// anything that was already there.
type runOutputs struct {
	files []string
	dirs  []string
}

// mkdirAll creates dir and any missing parents, remembering the ones it created.
func (o *runOutputs) mkdirAll(dir string) error {
	var missing []string
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil || !errors.Is(err, fs.ErrNotExist) {
			break
		}
		missing = append(missing, d)
		if parent := filepath.Dir(d); parent == d {
			break
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i := len(missing) - 1; i >= 0; i-- {
		o.dirs = append(o.dirs, missing[i])
	}
	return nil
}

func (o *runOutputs) file(path string) {
	o.files = append(o.files, path)
}

// remove deletes the recorded files, then the recorded directories deepest first.
// A directory that still holds anything is left in place. Removal errors are logged and ignored.
func (o *runOutputs) remove(log *zap.Logger) {
	for _, f := range o.files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Debug("cleanup: remove file", zap.String("path", f), zap.Error(err))
		}
	}
	for i := len(o.dirs) - 1; i >= 0; i-- {
		if err := os.Remove(o.dirs[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Debug("cleanup: keep directory", zap.String("path", o.dirs[i]), zap.Error(err))
		}
	}
}

func (p *FrameProcessor) report(log *zap.Logger, msg string) {
	log.Debug(msg)

	p.statusMu.RLock()
	fn := p.status
	p.statusMu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

// asKind keeps typed pipeline errors and wraps anything else with wrap.
func asKind(err error, wrap func(error) error) error {
	if entity.KindOf(err) != "" {
		return err
	}
	return wrap(err)
}
