package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"outletqa/internal/errors"
	"outletqa/pkg/contracts/domain"
)

// Config represents the complete application configuration.
// Leaf variables are named with split_words (OUTLET_INPUT_PATH): an
// envconfig tag on a leaf would also be looked up unprefixed, e.g. PATH.
type Config struct {
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// InputConfig locates the outlet register
type InputConfig struct {
	Path string `yaml:"path" split_words:"true" validate:"required"`
}

// ReportConfig locates the generated report
type ReportConfig struct {
	Path string `yaml:"path" split_words:"true" validate:"required"`
}

// AnalysisConfig tunes outlier detection and the grouping tables
type AnalysisConfig struct {
	IQRMultiplier float64  `yaml:"iqr_multiplier" split_words:"true" validate:"gt=0"`
	Groupings     []string `yaml:"groupings" split_words:"true" validate:"dive,required"`
	SumColumns    []string `yaml:"sum_columns" split_words:"true" validate:"dive,required"`
	// Ranges overrides the plausible range of numeric columns. YAML only.
	Ranges map[string]Range `yaml:"ranges" ignored:"true"`
}

// Range bounds a numeric column. A nil bound is open.
type Range struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" split_words:"true" validate:"oneof=json text"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true" validate:"required_unless=Output console"`
}

// TelemetryConfig controls tracing and metrics export
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" split_words:"true" validate:"oneof=none stdout"`
	MetricsEnabled bool   `yaml:"metrics_enabled" split_words:"true"`
	PushgatewayURL string `yaml:"pushgateway_url" split_words:"true" validate:"omitempty,url"`
	JobName        string `yaml:"job_name" split_words:"true" validate:"required"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Input:  InputConfig{Path: DefaultInputPath},
		Report: ReportConfig{Path: DefaultReportPath},
		Analysis: AnalysisConfig{
			IQRMultiplier: DefaultIQRMultiplier,
			Groupings:     append([]string(nil), DefaultGroupings...),
			SumColumns:    append([]string(nil), DefaultSumColumns...),
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: DefaultLogFile,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: DefaultTraceExporter,
			JobName:       DefaultPushJobName,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// OUTLET_* environment variables, in increasing order of precedence. A .env
// file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	configFile, err := getConfigFilePath()
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		if err := cfg.loadFromFile(configFile); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto c. Keys absent from the file keep
// their current values.
func (c *Config) loadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return errors.NewConfigError("failed to read config file", err).WithContext("path", filePath)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return errors.NewConfigError("failed to parse config file", err).WithContext("path", filePath)
	}
	return nil
}

// getConfigFilePath returns the YAML file to load, or "" when there is none.
// A file named by OUTLET_CONFIG_FILE must exist.
func getConfigFilePath() (string, error) {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.NewConfigError("config file not accessible", err).WithContext("path", explicit)
		}
		return explicit, nil
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	} else if !stderrors.Is(err, fs.ErrNotExist) {
		return "", errors.NewConfigError("config file not accessible", err).WithContext("path", DefaultConfigFile)
	}
	return "", nil
}

// Validate checks field constraints and that every analysis column names a
// column of the outlet schema. All problems are reported together.
func (c *Config) Validate() error {
	var merr *multierror.Error

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			for _, fe := range verrs {
				merr = multierror.Append(merr, fmt.Errorf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			merr = multierror.Append(merr, err)
		}
	}

	for _, keys := range c.GroupingKeys() {
		for _, key := range keys {
			if _, ok := domain.LookupColumn(key); !ok {
				merr = multierror.Append(merr, fmt.Errorf("grouping column %q is not in the outlet schema", key))
			}
		}
	}
	for _, key := range c.Analysis.SumColumns {
		merr = appendNumericCheck(merr, "sum column", key)
	}
	rangeKeys := make([]string, 0, len(c.Analysis.Ranges))
	for key := range c.Analysis.Ranges {
		rangeKeys = append(rangeKeys, key)
	}
	slices.Sort(rangeKeys)
	for _, key := range rangeKeys {
		r := c.Analysis.Ranges[key]
		merr = appendNumericCheck(merr, "range column", key)
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			merr = multierror.Append(merr, fmt.Errorf("range for %q has min above max", key))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return errors.NewConfigError("invalid configuration", err)
	}
	return nil
}

func appendNumericCheck(merr *multierror.Error, what, key string) *multierror.Error {
	col, ok := domain.LookupColumn(key)
	if !ok {
		return multierror.Append(merr, fmt.Errorf("%s %q is not in the outlet schema", what, key))
	}
	if !col.IsNumeric() {
		return multierror.Append(merr, fmt.Errorf("%s %q is not numeric", what, key))
	}
	return merr
}

// GroupingKeys splits every configured grouping into its column keys.
func (c *Config) GroupingKeys() [][]string {
	out := make([][]string, 0, len(c.Analysis.Groupings))
	for _, g := range c.Analysis.Groupings {
		parts := strings.Split(g, "+")
		keys := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				keys = append(keys, p)
			}
		}
		if len(keys) > 0 {
			out = append(out, keys)
		}
	}
	return out
}
