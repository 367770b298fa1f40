package ffmpeg

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ZipArchiver bundles run artifacts into a flat zip file.
type ZipArchiver struct{}

func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{}
}

func (z *ZipArchiver) CreateArchive(ctx context.Context, filePaths []string, outputPath string) (int64, error) {
	if err := z.writeArchive(ctx, filePaths, outputPath); err != nil {
		_ = os.Remove(outputPath)
		return 0, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	return info.Size(), nil
}

func (z *ZipArchiver) writeArchive(ctx context.Context, filePaths []string, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	for _, fp := range filePaths {
		select {
		case <-ctx.Done():
			zipWriter.Close()
			return ctx.Err()
		default:
		}

		if err := addFileToZip(zipWriter, fp); err != nil {
			zipWriter.Close()
			return fmt.Errorf("add %s to zip: %w", fp, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

func addFileToZip(zw *zip.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(filename)
	// frames are already compressed images
	header.Method = zip.Store
	if filepath.Ext(filename) == ".json" {
		header.Method = zip.Deflate
	}

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
