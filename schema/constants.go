// Package schema holds the data types shared by the loader, the models, the
// stores and the report writers.
package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for results and caching.
	DatabaseBackend string

	// ModelKind identifies the predictor variant of a change-point model.
	ModelKind string

	// ModelKey is the identity of a fit inside a results mapping.
	ModelKey string

	// LogFormat selects the log encoder.
	LogFormat string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Model variants.
const (
	BasicKind ModelKind = "basic"
	EventKind ModelKind = "event"
)

// Keys of the results mapping.
const (
	BasicModelKey ModelKey = "basic_model"
	EventModelKey ModelKey = "event_model"
)

// Log encoders.
const (
	ConsoleLog LogFormat = "console" // default
	JSONLog    LogFormat = "json"
)

// Posterior variable names.
const (
	VarChangepointProbs  = "changepoint_probs"
	VarChangepoints      = "changepoints_sorted"
	VarSegmentMeans      = "segment_means"
	VarSegmentIntercepts = "segment_intercepts"
	VarSegmentSigmas     = "segment_sigmas"
	VarEventCoefficients = "event_coefficients"
)

// Input column defaults.
const (
	DefaultDateColumn   = "Date"
	DefaultTargetColumn = "Returns"
)

// DateLayout is the calendar format used for every date in reports.
const DateLayout = "2006-01-02"

// DefaultEventColumns lists the covariates produced by the event feature pipeline.
var DefaultEventColumns = []string{
	"Event_Count_30d",
	"High_Impact_Event_30d",
	"War_Event_30d",
	"OPEC_Event_30d",
	"Crisis_Event_30d",
	"Days_Since_Last_Event",
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidLogFormats lists all valid log encoders.
var ValidLogFormats = map[LogFormat]struct{}{
	ConsoleLog: {},
	JSONLog:    {},
}

// Key returns the results-mapping key for a model kind.
func (k ModelKind) Key() ModelKey {
	if k == EventKind {
		return EventModelKey
	}
	return BasicModelKey
}

// MeanVariable returns the name of the per-segment location variable.
func (k ModelKind) MeanVariable() string {
	if k == EventKind {
		return VarSegmentIntercepts
	}
	return VarSegmentMeans
}
