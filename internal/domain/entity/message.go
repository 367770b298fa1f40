package entity

import "github.com/google/uuid"

// ProcessingRequestMessage is the inbound message from the frames.processing queue.
// Either VideoPath (shared filesystem) or VideoKey (object in the uploads bucket) is set.
type ProcessingRequestMessage struct {
	RunID       uuid.UUID `json:"run_id"`
	VideoPath   string    `json:"video_path,omitempty"`
	VideoKey    string    `json:"video_key,omitempty"`
	Interval    int       `json:"interval,omitempty"`
	Format      string    `json:"format,omitempty"`
	Quality     int       `json:"quality,omitempty"`
	NotifyEmail string    `json:"notify_email,omitempty"`
}

// RunStatusMessage is the outbound message published to the frames.status routing key.
type RunStatusMessage struct {
	RunID        uuid.UUID `json:"run_id"`
	Status       RunState  `json:"status"`
	VideoPath    string    `json:"video_path,omitempty"`
	VideoKey     string    `json:"video_key,omitempty"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
	FrameCount   int       `json:"frame_count,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
