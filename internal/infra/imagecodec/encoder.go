package imagecodec

import (
	"bufio"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

// Encoder writes frames as PNG or JPEG files.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode writes img to path. quality is used only for JPEG and is clamped to 1..100.
// On failure no file is left behind.
func (e *Encoder) Encode(img image.Image, path string, format entity.OutputFormat, quality int) error {
	var opts []imaging.EncodeOption
	var imgFormat imaging.Format

	switch format {
	case entity.FormatPNG:
		imgFormat = imaging.PNG
	case entity.FormatJPG:
		imgFormat = imaging.JPEG
		opts = append(opts, imaging.JPEGQuality(clampQuality(quality)))
	default:
		return entity.UnsupportedFormat(path, format)
	}

	if img == nil {
		return entity.NewEncodeError(path, fmt.Errorf("nil image"))
	}

	if err := writeImage(img, path, imgFormat, opts); err != nil {
		_ = os.Remove(path)
		return entity.NewEncodeError(path, err)
	}
	return nil
}

func writeImage(img image.Image, path string, format imaging.Format, opts []imaging.EncodeOption) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := imaging.Encode(w, img, format, opts...); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
