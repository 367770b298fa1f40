package port

import (
	"context"
	"image"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

// VideoSource opens videos for probing and frame sampling.
type VideoSource interface {
	Open(ctx context.Context, path string) (Video, error)
}

// Video is an open video. Callers must Close it.
type Video interface {
	Info() entity.StreamInfo
	// FrameAt decodes the frame shown at the given offset in seconds.
	FrameAt(ctx context.Context, seconds float64) (image.Image, error)
	Close() error
}

// ImageEncoder writes one decoded frame to disk.
type ImageEncoder interface {
	Encode(img image.Image, path string, format entity.OutputFormat, quality int) error
}

// ReportWriter persists the processing report and returns its path.
type ReportWriter interface {
	Write(report entity.ProcessingReport, outputDir string) (string, error)
}
