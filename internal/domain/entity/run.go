package entity

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the pipeline state of a run.
type RunState string

const (
	StateIdle             RunState = "idle"
	StateProbingMetadata  RunState = "probing_metadata"
	StateExtractingFrames RunState = "extracting_frames"
	StateAnalyzingFrames  RunState = "analyzing_frames"
	StateWritingReport    RunState = "writing_report"
	StateCompleted        RunState = "completed"
	StateCancelled        RunState = "cancelled"
	StateFailed           RunState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Run is the persisted history record of a queued run.
type Run struct {
	ID            uuid.UUID
	VideoPath     string
	VideoKey      string
	Interval      int
	Format        OutputFormat
	Quality       int
	Status        RunState
	FrameCount    int
	VideoDuration float64
	OutputDir     string
	ArchiveKey    string
	Attempt       int
	MaxAttempts   int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewRun(req ProcessRequest, videoKey string, maxAttempts int) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:          uuid.New(),
		VideoPath:   req.VideoPath,
		VideoKey:    videoKey,
		Interval:    req.Interval,
		Format:      req.Format,
		Quality:     req.Quality,
		Status:      StateIdle,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r *Run) MarkStarted() {
	r.Status = StateProbingMetadata
	r.Attempt++
	r.ErrorMessage = ""
	r.UpdatedAt = time.Now().UTC()
}

func (r *Run) MarkCompleted(result *ProcessResult, archiveKey string) {
	now := time.Now().UTC()
	r.Status = StateCompleted
	r.FrameCount = result.Analysis.TotalFrames
	r.VideoDuration = result.Metadata.Duration
	r.OutputDir = result.OutputDirectory
	r.ArchiveKey = archiveKey
	r.UpdatedAt = now
	r.CompletedAt = &now
}

func (r *Run) MarkCancelled() {
	r.Status = StateCancelled
	r.UpdatedAt = time.Now().UTC()
}

func (r *Run) MarkFailed(errMsg string) {
	r.Status = StateFailed
	r.ErrorMessage = errMsg
	r.UpdatedAt = time.Now().UTC()
}

func (r *Run) CanRetry() bool {
	return r.Attempt < r.MaxAttempts
}
