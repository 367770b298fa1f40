package usecase

import (
	"errors"
	"fmt"
	"os"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

var errNoFrames = errors.New("no frames were extracted, the interval may be longer than the video")

// AnalyzeFrames aggregates the on-disk sizes of the encoded frames.
// checkpoint, when set, is consulted before the stage and before each file.
func AnalyzeFrames(frames []entity.FrameRecord, checkpoint func() error) (entity.FrameAnalysis, error) {
	if err := runCheckpoint(checkpoint); err != nil {
		return entity.FrameAnalysis{}, err
	}
	if len(frames) == 0 {
		return entity.FrameAnalysis{}, entity.NewAnalysisError(errNoFrames)
	}

	analysis := entity.FrameAnalysis{
		TotalFrames: len(frames),
		FrameSizes:  make([]float64, 0, len(frames)),
		Timestamps:  make([]int, 0, len(frames)),
	}

	var total float64
	for _, frame := range frames {
		if err := runCheckpoint(checkpoint); err != nil {
			return entity.FrameAnalysis{}, err
		}

		info, err := os.Stat(frame.Path)
		if err != nil {
			return entity.FrameAnalysis{}, entity.NewAnalysisError(fmt.Errorf("stat frame %d: %w", frame.Index, err))
		}

		size := entity.BytesToMB(info.Size())
		analysis.FrameSizes = append(analysis.FrameSizes, size)
		analysis.Timestamps = append(analysis.Timestamps, frame.Timestamp)
		total += size
	}

	analysis.AverageFileSize = total / float64(len(frames))
	return analysis, nil
}

func runCheckpoint(checkpoint func() error) error {
	if checkpoint == nil {
		return nil
	}
	return checkpoint()
}
