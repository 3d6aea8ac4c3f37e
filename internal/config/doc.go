// Package config loads the outletqa configuration.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), also read from a .env file
//	2. A YAML file: OUTLET_CONFIG_FILE, or outletqa.yaml when present
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern OUTLET_<SECTION>_<FIELD>:
//
//	OUTLET_INPUT_PATH=南水北调中线水源区排污口.xlsx
//	OUTLET_REPORT_PATH=reports/analysis_report.md
//	OUTLET_ANALYSIS_IQR_MULTIPLIER=1.5
//	OUTLET_ANALYSIS_GROUPINGS=province,outlet_type,province+outlet_type
//	OUTLET_ANALYSIS_SUM_COLUMNS=wastewater_volume,cooling_water_volume
//	OUTLET_LOGGING_LEVEL=info
//	OUTLET_TELEMETRY_TRACE_EXPORTER=stdout
//	OUTLET_TELEMETRY_PUSHGATEWAY_URL=http://localhost:9091
//
// Plausible ranges for numeric columns can only be set in YAML:
//
//	analysis:
//	  ranges:
//	    wastewater_volume: {min: 0, max: 5000}
//
// # Validation
//
// Load validates field constraints with go-playground/validator and checks
// that grouping, sum and range columns exist in the outlet schema. Every
// problem found is returned in a single CONFIG error.
package config
