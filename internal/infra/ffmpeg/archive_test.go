package ffmpeg

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateArchive(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for name, body := range map[string]string{
		"frame_00-00-00_0001.png": "png-bytes-1",
		"frame_00-00-30_0002.png": "png-bytes-2",
		"processing_report.json":  `{"ok":true}`,
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		files = append(files, p)
	}

	out := filepath.Join(t.TempDir(), "frames.zip")
	size, err := NewZipArchiver().CreateArchive(context.Background(), files, out)
	require.NoError(t, err)
	assert.Positive(t, size)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.Len(t, names, 3)
	assert.True(t, names["processing_report.json"])
	assert.True(t, names["frame_00-00-30_0002.png"])
}

func TestCreateArchiveMissingFileRemovesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frames.zip")

	_, err := NewZipArchiver().CreateArchive(context.Background(), []string{"/does/not/exist.png"}, out)
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreateArchiveCancelled(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewZipArchiver().CreateArchive(ctx, []string{p}, filepath.Join(dir, "out.zip"))
	assert.ErrorIs(t, err, context.Canceled)
}
