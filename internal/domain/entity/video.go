package entity

import (
	"encoding/json"
	"fmt"
)

// Resolution is a pixel size. It is encoded in reports as [width, height].
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Width, r.Height})
}

func (r *Resolution) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode resolution: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode resolution: want 2 values, got %d", len(pair))
	}
	r.Width, r.Height = pair[0], pair[1]
	return nil
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// StreamInfo is what a decoder reports about an open video.
type StreamInfo struct {
	Duration   float64
	FPS        float64
	Resolution Resolution
}

// VideoMetadata describes the probed source video.
type VideoMetadata struct {
	Duration   float64    `json:"duration"`
	FPS        float64    `json:"fps"`
	Resolution Resolution `json:"resolution"`
	Filename   string     `json:"filename"`
	FilesizeMB float64    `json:"filesize_mb"`
	Format     string     `json:"format"`
	AnalyzedAt string     `json:"analyzed_at"`
}

// FrameRecord is one encoded frame written during a run.
type FrameRecord struct {
	Timestamp int
	Index     int
	Path      string
}

// FrameAnalysis aggregates the encoded frame sizes of a run.
type FrameAnalysis struct {
	TotalFrames     int       `json:"total_frames"`
	FrameSizes      []float64 `json:"frame_sizes"`
	AverageFileSize float64   `json:"average_file_size"`
	Timestamps      []int     `json:"timestamps"`
}

// ProcessingReport is the document written to processing_report.json.
type ProcessingReport struct {
	VideoMetadata       VideoMetadata `json:"video_metadata"`
	FrameAnalysis       FrameAnalysis `json:"frame_analysis"`
	ProcessingTimestamp string        `json:"processing_timestamp"`
}

// ProcessResult is returned by a completed run.
type ProcessResult struct {
	Metadata        VideoMetadata
	Analysis        FrameAnalysis
	OutputDirectory string
	FramePaths      []string
	ReportPath      string
}

const bytesPerMB = 1024 * 1024

// BytesToMB converts a byte count to binary megabytes.
func BytesToMB(n int64) float64 {
	return float64(n) / bytesPerMB
}

// ISOTimestamp is the timestamp layout used in reports (local time, microseconds, no zone).
const ISOTimestamp = "2006-01-02T15:04:05.000000"
