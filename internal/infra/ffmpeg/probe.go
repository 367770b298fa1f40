package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	RFrameRate   string `json:"r_frame_rate,omitempty"`
	AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// parseProbe extracts stream info from ffprobe -show_streams -show_format JSON.
func parseProbe(data []byte) (entity.StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return entity.StreamInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var vs *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			vs = &out.Streams[i]
			break
		}
	}
	if vs == nil {
		return entity.StreamInfo{}, fmt.Errorf("no video stream found")
	}

	duration, err := parseSeconds(vs.Duration)
	if err != nil || duration <= 0 {
		duration, err = parseSeconds(out.Format.Duration)
		if err != nil {
			return entity.StreamInfo{}, fmt.Errorf("parse duration: %w", err)
		}
	}

	fps, err := parseRational(vs.AvgFrameRate)
	if err != nil || fps == 0 {
		fps, err = parseRational(vs.RFrameRate)
		if err != nil {
			return entity.StreamInfo{}, fmt.Errorf("parse frame rate: %w", err)
		}
	}

	return entity.StreamInfo{
		Duration:   duration,
		FPS:        fps,
		Resolution: entity.Resolution{Width: vs.Width, Height: vs.Height},
	}, nil
}

func parseSeconds(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("duration not reported")
	}
	return strconv.ParseFloat(s, 64)
}

// parseRational parses ffprobe rates such as "30000/1001" or "25".
func parseRational(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty rate")
	}

	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	if !found {
		return n, nil
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	if d == 0 {
		return 0, nil
	}
	return n / d, nil
}
