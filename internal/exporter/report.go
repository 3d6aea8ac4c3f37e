package exporter

import (
	"context"
	"log/slog"

	"outletqa/internal/errors"
	"outletqa/internal/files"
)

// Writer saves rendered reports to a fixed path.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a writer for path
func NewWriter(path string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		path:   path,
		logger: logger.With(slog.String("component", "report_writer")),
	}
}

// Path returns the report destination
func (w *Writer) Path() string {
	return w.path
}

// Write renders data and replaces the report at the writer's path, creating
// the parent directory when needed. Failures are STORAGE errors.
func (w *Writer) Write(ctx context.Context, data Data) error {
	content := Render(data)

	if err := files.WriteFileAtomic(w.path, content, 0644); err != nil {
		return errors.NewStorageError("failed to write report", err).WithContext("path", w.path)
	}

	w.logger.InfoContext(ctx, "report written",
		slog.String("path", w.path),
		slog.Int("bytes", len(content)))
	return nil
}
