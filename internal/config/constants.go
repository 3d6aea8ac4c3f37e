package config

import "outletqa/pkg/contracts"

// Application constants
const (
	// Application Info
	AppName    = "outletqa"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment variable, e.g. OUTLET_INPUT_PATH.
	EnvPrefix = "OUTLET"

	// ConfigFileEnv names an explicit YAML configuration file.
	ConfigFileEnv = "OUTLET_CONFIG_FILE"

	// File Paths (relative to the working directory)
	DefaultConfigFile = "outletqa.yaml"
	DefaultInputPath  = "南水北调中线水源区排污口.xlsx"
	DefaultReportPath = "reports/analysis_report.md"
	DefaultLogFile    = "logs/outletqa.log"

	// Analysis
	DefaultIQRMultiplier = 1.5

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "console"

	// Telemetry
	DefaultTraceExporter = "none"
	DefaultPushJobName   = "outlet_report"
)

// DefaultGroupings are the grouping tables of the report. Keys joined with
// "+" group by their combination.
var DefaultGroupings = []string{
	"province",
	"outlet_type",
	"discharge_feature",
	"entry_method",
	"province+outlet_type",
}

// DefaultSumColumns are the discharge volumes totalled per group.
var DefaultSumColumns = []string{
	"wastewater_volume",
	"cooling_water_volume",
}
