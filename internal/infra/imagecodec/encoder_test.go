package imagecodec

import (
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisyImage(w, h int) image.Image {
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(x), B: uint8(y), A: 255})
		}
	}
	return img
}

func TestEncodePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame_00-00-00_0001.png")
	src := noisyImage(32, 24)

	require.NoError(t, NewEncoder().Encode(src, path, entity.FormatPNG, 0))

	got, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Bounds())

	r1, g1, b1, _ := src.At(5, 7).RGBA()
	r2, g2, b2, _ := got.At(5, 7).RGBA()
	assert.Equal(t, []uint32{r1, g1, b1}, []uint32{r2, g2, b2}, "png is lossless")
}

func TestEncodeJPGQualityAffectsSize(t *testing.T) {
	dir := t.TempDir()
	src := noisyImage(128, 128)
	low := filepath.Join(dir, "low.jpg")
	high := filepath.Join(dir, "high.jpg")

	enc := NewEncoder()
	require.NoError(t, enc.Encode(src, low, entity.FormatJPG, 10))
	require.NoError(t, enc.Encode(src, high, entity.FormatJPG, 95))

	lowInfo, err := os.Stat(low)
	require.NoError(t, err)
	highInfo, err := os.Stat(high)
	require.NoError(t, err)
	assert.Less(t, lowInfo.Size(), highInfo.Size())

	img, err := imaging.Open(high)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestEncodeUnsupportedFormatWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.gif")

	err := NewEncoder().Encode(noisyImage(4, 4), path, entity.OutputFormat("gif"), 95)
	assert.ErrorIs(t, err, entity.ErrEncode)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEncodeWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "frame.png")

	err := NewEncoder().Encode(noisyImage(4, 4), path, entity.FormatPNG, 95)
	assert.ErrorIs(t, err, entity.ErrEncode)
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, 1, clampQuality(-5))
	assert.Equal(t, 1, clampQuality(0))
	assert.Equal(t, 50, clampQuality(50))
	assert.Equal(t, 100, clampQuality(150))
}
