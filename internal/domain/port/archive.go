package port

import "context"

// Archiver bundles the files of a finished run into a single archive and returns its size.
type Archiver interface {
	CreateArchive(ctx context.Context, filePaths []string, outputPath string) (int64, error)
}
