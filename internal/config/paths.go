package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"outletqa/internal/errors"
)

// Paths contains the resolved file locations of one run.
// Relative configuration paths resolve against the working directory.
type Paths struct {
	WorkingDir string
	InputFile  string
	ReportFile string
	ReportsDir string
	LogFile    string
}

// GetPaths resolves the configured paths against the working directory
func GetPaths(cfg *Config) (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.NewConfigError("failed to get working directory", err)
	}
	return ResolvePaths(cfg, wd), nil
}

// ResolvePaths resolves the configured paths against baseDir
func ResolvePaths(cfg *Config, baseDir string) *Paths {
	report := resolve(baseDir, cfg.Report.Path)
	return &Paths{
		WorkingDir: baseDir,
		InputFile:  resolve(baseDir, cfg.Input.Path),
		ReportFile: report,
		ReportsDir: filepath.Dir(report),
		LogFile:    resolve(baseDir, cfg.Logging.FilePath),
	}
}

func resolve(base, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("resolved paths",
		slog.String("working_dir", p.WorkingDir),
		slog.String("input_file", p.InputFile),
		slog.Bool("input_exists", FileExists(p.InputFile)),
		slog.String("report_file", p.ReportFile),
		slog.String("log_file", p.LogFile))
}
