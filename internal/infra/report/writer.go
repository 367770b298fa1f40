package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

// Writer stores the processing report as indented JSON in the run's output directory.
type Writer struct {
	fileName string
}

func NewWriter(fileName string) *Writer {
	if fileName == "" {
		fileName = entity.DefaultReportName
	}
	return &Writer{fileName: fileName}
}

// Write overwrites <outputDir>/<fileName> and returns its path.
func (w *Writer) Write(report entity.ProcessingReport, outputDir string) (string, error) {
	path := filepath.Join(outputDir, w.fileName)

	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return "", entity.NewIOError("encode report", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", entity.NewIOError("write report", path, err)
	}
	return path, nil
}

// Read loads a report previously written by Write.
func Read(path string) (entity.ProcessingReport, error) {
	var rep entity.ProcessingReport

	data, err := os.ReadFile(path)
	if err != nil {
		return rep, entity.NewIOError("read report", path, err)
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		return rep, fmt.Errorf("decode report %s: %w", path, err)
	}
	return rep, nil
}
