package usecase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrames(t *testing.T, sizes ...int) []entity.FrameRecord {
	t.Helper()
	dir := t.TempDir()
	frames := make([]entity.FrameRecord, 0, len(sizes))
	for i, size := range sizes {
		ts := i * 30
		path := filepath.Join(dir, entity.FrameFileName(ts, i+1, entity.FormatPNG))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
		frames = append(frames, entity.FrameRecord{Timestamp: ts, Index: i + 1, Path: path})
	}
	return frames
}

func TestAnalyzeFrames(t *testing.T) {
	frames := writeFrames(t, 1024*1024, 512*1024, 256*1024, 0)

	analysis, err := AnalyzeFrames(frames, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, analysis.TotalFrames)
	assert.Equal(t, []int{0, 30, 60, 90}, analysis.Timestamps)
	assert.InDeltaSlice(t, []float64{1, 0.5, 0.25, 0}, analysis.FrameSizes, 1e-12)

	var sum float64
	for _, s := range analysis.FrameSizes {
		sum += s
	}
	assert.InDelta(t, sum/float64(analysis.TotalFrames), analysis.AverageFileSize, 1e-12)
	assert.InDelta(t, 0.4375, analysis.AverageFileSize, 1e-12)
}

func TestAnalyzeFramesEmpty(t *testing.T) {
	_, err := AnalyzeFrames(nil, nil)
	assert.ErrorIs(t, err, entity.ErrAnalysis)

	_, err = AnalyzeFrames([]entity.FrameRecord{}, nil)
	assert.ErrorIs(t, err, entity.ErrAnalysis)
}

func TestAnalyzeFramesMissingFile(t *testing.T) {
	frames := writeFrames(t, 10)
	frames = append(frames, entity.FrameRecord{Timestamp: 30, Index: 2, Path: filepath.Join(t.TempDir(), "gone.png")})

	_, err := AnalyzeFrames(frames, nil)
	assert.ErrorIs(t, err, entity.ErrAnalysis)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAnalyzeFramesCheckpoint(t *testing.T) {
	frames := writeFrames(t, 10, 10, 10)

	calls := 0
	_, err := AnalyzeFrames(frames, func() error {
		calls++
		if calls == 3 {
			return entity.Cancelled()
		}
		return nil
	})
	assert.True(t, entity.IsCancelled(err))
	assert.Equal(t, 3, calls, "stage entry plus one check per file until the cancel")

	stop := errors.New("stop")
	_, err = AnalyzeFrames(nil, func() error { return stop })
	assert.ErrorIs(t, err, stop, "checkpoint runs before the empty-input guard")
}
