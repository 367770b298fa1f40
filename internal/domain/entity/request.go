package entity

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	AppName        = "Video Frame Extractor"
	AppVersion     = "1.0.0"
	AppDescription = "A tool for extracting frames from video files at specified intervals.\n" +
		"Supports multiple video formats and customizable extraction settings."
)

const (
	DefaultInterval      = 30
	DefaultFormat        = FormatPNG
	DefaultQuality       = 95
	DefaultOutputDirName = "processed_output"
	DefaultFramesDirName = "frames"
	DefaultReportName    = "processing_report.json"
)

// SupportedVideoExtensions lists the inputs the front ends offer. The pipeline does not enforce it.
var SupportedVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// IsSupportedVideo reports whether path has one of SupportedVideoExtensions.
func IsSupportedVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedVideoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// OutputFormat is the encoding of extracted frames.
type OutputFormat string

const (
	FormatPNG OutputFormat = "png"
	FormatJPG OutputFormat = "jpg"
)

// ParseOutputFormat normalises a user supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	default:
		return "", NewEncodeError("", &unsupportedFormatError{format: s})
	}
}

func (f OutputFormat) Valid() bool {
	return f == FormatPNG || f == FormatJPG
}

func (f OutputFormat) Extension() string {
	return string(f)
}

type unsupportedFormatError struct {
	format string
}

func (e *unsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported output format %q", e.format)
}

// UnsupportedFormat builds the encode error returned for formats other than png and jpg.
func UnsupportedFormat(path string, f OutputFormat) error {
	return NewEncodeError(path, &unsupportedFormatError{format: string(f)})
}

// ProcessRequest holds the parameters of one pipeline run.
type ProcessRequest struct {
	VideoPath string
	Interval  int
	Format    OutputFormat
	Quality   int
	// OutputDir overrides <video_dir>/processed_output when set.
	OutputDir string
}

// NewProcessRequest returns a request with the default interval, format and quality.
func NewProcessRequest(videoPath string) ProcessRequest {
	return ProcessRequest{
		VideoPath: videoPath,
		Interval:  DefaultInterval,
		Format:    DefaultFormat,
		Quality:   DefaultQuality,
	}
}

// Validate checks the request before any filesystem change is made.
func (r ProcessRequest) Validate() error {
	if r.VideoPath == "" {
		return NewInvalidRequestError("video path is empty")
	}
	if r.Interval < 1 {
		return NewInvalidRequestError("interval must be at least 1 second, got %d", r.Interval)
	}
	if !r.Format.Valid() {
		return UnsupportedFormat("", r.Format)
	}
	if r.Format == FormatJPG && (r.Quality < 1 || r.Quality > 100) {
		return NewInvalidRequestError("quality must be between 1 and 100, got %d", r.Quality)
	}
	return nil
}
