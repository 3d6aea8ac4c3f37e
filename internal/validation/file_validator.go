package validation

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"outletqa/internal/errors"
	"outletqa/internal/files"
)

// SupportedExtensions lists the input formats the loader can read.
var SupportedExtensions = files.SpreadsheetExtensions

// FileValidator checks input and output locations before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateInputFile checks that path is a readable spreadsheet. A missing
// file is NOT_FOUND; a directory, an unreadable file, an Office lock file
// or an unsupported extension is PARSING.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		appErr := errors.NewNotFoundError("input file "+path, err).WithContext("path", path)
		found := v.candidates(path)
		if len(found) > 0 {
			names := make([]string, len(found))
			for i, f := range found {
				names[i] = f.Name
			}
			appErr = appErr.WithContext("candidates", names)
		}
		if latest, ok := files.GetLatestFile(found); ok {
			appErr = appErr.WithContext("latest", latest.Name)
		}
		v.logger.Error("Input file does not exist",
			slog.String("file", path),
			slog.Any("candidates", appErr.Context["candidates"]),
			slog.Any("latest", appErr.Context["latest"]))
		return appErr
	}
	if err != nil {
		v.logger.Error("Failed to stat input file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errors.NewParsingError("failed to stat input file", err).WithContext("path", path)
	}
	if info.IsDir() {
		v.logger.Error("Input path is a directory, not a file", slog.String("path", path))
		return errors.NewParsingError(fmt.Sprintf("%s is a directory, not a file", path), nil).
			WithContext("path", path)
	}

	if files.IsLockFile(path) {
		v.logger.Error("Input is a temporary Office lock file", slog.String("file", path))
		return errors.NewParsingError(fmt.Sprintf("%s is a temporary Office lock file", path), nil).
			WithContext("path", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !files.HasSpreadsheetExtension(path) {
		v.logger.Error("Unsupported input format",
			slog.String("file", path),
			slog.String("extension", ext))
		return errors.NewParsingError(fmt.Sprintf("unsupported input format %q", ext), nil).
			WithContext("path", path).
			WithContext("supported", SupportedExtensions)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Input file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errors.NewParsingError("input file is not readable", err).WithContext("path", path)
	}
	file.Close()

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists or can be created and accepts
// new files. Failures are STORAGE errors.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := files.EnsureDirectory(dir); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError("failed to create output directory", err).WithContext("path", dir)
	}

	file, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError("output directory is not writable", err).WithContext("path", dir)
	}
	name := file.Name()
	file.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// candidates lists the spreadsheets next to a missing input, by name
func (v *FileValidator) candidates(path string) []files.FileInfo {
	found, err := files.NewDiscovery(".").FindSpreadsheets(filepath.Dir(path))
	if err != nil {
		return nil
	}
	return found
}
