package usecase

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/imagecodec"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/report"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	info    entity.StreamInfo
	openErr error
	onOpen  func()
	frameFn func(ctx context.Context, seconds float64) (image.Image, error)

	mu      sync.Mutex
	opened  int
	closed  int
	sampled []float64
}

func (s *fakeSource) Open(_ context.Context, path string) (port.Video, error) {
	if s.onOpen != nil {
		s.onOpen()
	}
	if s.openErr != nil {
		return nil, s.openErr
	}
	if _, err := os.Stat(path); err != nil {
		return nil, entity.NewMediaOpenError(path, err)
	}
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &fakeVideo{src: s}, nil
}

type fakeVideo struct {
	src *fakeSource
}

func (v *fakeVideo) Info() entity.StreamInfo { return v.src.info }

func (v *fakeVideo) FrameAt(ctx context.Context, seconds float64) (image.Image, error) {
	v.src.mu.Lock()
	v.src.sampled = append(v.src.sampled, seconds)
	v.src.mu.Unlock()
	if v.src.frameFn != nil {
		return v.src.frameFn(ctx, seconds)
	}
	return solidFrame(uint8(seconds)), nil
}

func (v *fakeVideo) Close() error {
	v.src.mu.Lock()
	v.src.closed++
	v.src.mu.Unlock()
	return nil
}

func solidFrame(shade uint8) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: shade, G: uint8(x * 10), B: uint8(y * 20), A: 255})
		}
	}
	return img
}

type failingEncoder struct {
	inner  port.ImageEncoder
	failOn int
	calls  int
}

func (e *failingEncoder) Encode(img image.Image, path string, format entity.OutputFormat, quality int) error {
	e.calls++
	if e.calls == e.failOn {
		return errors.New("disk full")
	}
	return e.inner.Encode(img, path, format, quality)
}

type failingReportWriter struct{}

func (failingReportWriter) Write(entity.ProcessingReport, string) (string, error) {
	return "", errors.New("permission denied")
}

// newTestVideo writes a placeholder video file and returns its path.
func newTestVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 2*1024*1024), 0o644))
	return path
}

func newTestProcessor(src port.VideoSource) *FrameProcessor {
	return NewFrameProcessor(src, imagecodec.NewEncoder(), report.NewWriter(""), zap.NewNop(), FrameProcessorConfig{})
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files
}
