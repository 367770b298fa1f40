package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// Source opens videos with ffprobe and grabs single frames with ffmpeg.
type Source struct {
	ffmpegBin    string
	probeTimeout time.Duration
	logger       *zap.Logger
}

func NewSource(ffmpegBin string, probeTimeout time.Duration, logger *zap.Logger) *Source {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Source{ffmpegBin: ffmpegBin, probeTimeout: probeTimeout, logger: logger}
}

func (s *Source) Open(ctx context.Context, path string) (port.Video, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, entity.NewMediaOpenError(path, err)
	}
	if info.IsDir() {
		return nil, entity.NewMediaOpenError(path, fmt.Errorf("is a directory"))
	}
	if err := ctx.Err(); err != nil {
		return nil, entity.NewMediaOpenError(path, err)
	}

	out, err := ffmpeggo.ProbeWithTimeout(path, s.probeTimeout, ffmpeggo.KwArgs{})
	if err != nil {
		return nil, entity.NewMediaOpenError(path, fmt.Errorf("ffprobe: %w", err))
	}

	stream, err := parseProbe([]byte(out))
	if err != nil {
		return nil, entity.NewMediaOpenError(path, err)
	}

	s.logger.Debug("video opened",
		zap.String("path", path),
		zap.Float64("duration", stream.Duration),
		zap.Float64("fps", stream.FPS),
		zap.Stringer("resolution", stream.Resolution),
	)

	return &video{path: path, bin: s.ffmpegBin, info: stream, logger: s.logger}, nil
}

type video struct {
	path   string
	bin    string
	info   entity.StreamInfo
	logger *zap.Logger
	closed atomic.Bool
}

func (v *video) Info() entity.StreamInfo {
	return v.info
}

func (v *video) FrameAt(ctx context.Context, seconds float64) (image.Image, error) {
	if v.closed.Load() {
		return nil, entity.NewMediaOpenError(v.path, fmt.Errorf("video is closed"))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, v.bin, frameArgs(v.path, seconds)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, entity.NewMediaOpenError(v.path,
			fmt.Errorf("ffmpeg frame at %.3fs: %w, output: %s", seconds, err, strings.TrimSpace(stderr.String())))
	}
	if stdout.Len() == 0 {
		return nil, entity.NewMediaOpenError(v.path, fmt.Errorf("no frame decoded at %.3fs", seconds))
	}

	img, err := imaging.Decode(&stdout)
	if err != nil {
		return nil, entity.NewMediaOpenError(v.path, fmt.Errorf("decode frame at %.3fs: %w", seconds, err))
	}
	return img, nil
}

func (v *video) Close() error {
	v.closed.Store(true)
	return nil
}

// frameArgs builds an input-seeking single frame grab written as PNG to stdout.
func frameArgs(path string, seconds float64) []string {
	args := ffmpeggo.
		Input(path, ffmpeggo.KwArgs{"ss": strconv.FormatFloat(seconds, 'f', 3, 64)}).
		Output("pipe:", ffmpeggo.KwArgs{"vframes": 1, "format": "image2", "vcodec": "png"}).
		GetArgs()
	return append([]string{"-hide_banner", "-loglevel", "error"}, args...)
}
