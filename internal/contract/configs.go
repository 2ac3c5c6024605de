package contract

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oilshock/brentcp/schema"
	"github.com/rs/zerolog"
)

// Default values for configuration.
const (
	DefaultChangepoints  = 5
	DefaultDraws         = 1000
	DefaultTune          = 500
	DefaultChains        = 2
	DefaultSeed          = 42
	DefaultHDIProb       = 0.95
	DefaultRHatThreshold = 1.05
	DefaultMinESS        = 400
	DefaultPPCDraws      = 100
	DefaultPrecision     = 4
	MaxPrecision         = 8
	MaxChangepoints      = 50

	DefaultSimObservations = 500
	DefaultSimShift        = 0.01
)

// DefaultWorkers is the default number of chains sampled at the same time.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ModelOptions holds the model and diagnostic settings shared by every command.
type ModelOptions struct {
	NChangepoints int     `json:"n-changepoints" validate:"gte=0,lte=50"`
	HDIProb       float64 `json:"hdi-prob" validate:"gt=0,lt=1"`
	RHatThreshold float64 `json:"rhat-threshold" validate:"gt=1"`
	MinESS        float64 `json:"min-ess" validate:"gte=0"`
	PPCDraws      int     `json:"ppc-draws" validate:"gte=1"`
}

// SimulateOptions holds the settings of the synthetic series generator.
type SimulateOptions struct {
	Observations int     `json:"observations" validate:"gte=2"`
	Breaks       []int   `json:"breaks" validate:"dive,gte=0"`
	Shift        float64 `json:"shift" validate:"gte=0"`
	Effect       float64 `json:"effect"`
}

// Config holds the runtime configuration for inference and reporting.
// This struct remains the "final, validated" config.
type Config struct {
	DataPath     string
	DateColumn   string
	TargetColumn string
	EventColumns []string

	Kind     schema.ModelKind // Fit the report commands read
	Model    ModelOptions
	Sample   schema.SampleOptions
	Simulate SimulateOptions

	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	ResultsFile string
	RunID       int64
	Width       int // Terminal width override (0 = auto-detect)

	LogLevel  zerolog.Level
	LogFormat schema.LogFormat

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	ResultsBackend   schema.DatabaseBackend
	ResultsDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	DataPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile       string  `mapstructure:"output-file"`
	Output           string  `mapstructure:"output"`
	Precision        int     `mapstructure:"precision"`
	Width            int     `mapstructure:"width"`
	ResultsFile      string  `mapstructure:"results-file"`
	RunID            int64   `mapstructure:"run-id"`
	HDIProb          float64 `mapstructure:"hdi-prob"`
	RHatThreshold    float64 `mapstructure:"rhat-threshold"`
	MinESS           float64 `mapstructure:"min-ess"`
	LogLevel         string  `mapstructure:"log-level"`
	LogFormat        string  `mapstructure:"log-format"`
	CacheBackend     string  `mapstructure:"cache-backend"`
	CacheDBConnect   string  `mapstructure:"cache-db-connect"`
	ResultsBackend   string  `mapstructure:"results-backend"`
	ResultsDBConnect string  `mapstructure:"results-db-connect"`
	Emoji            string  `mapstructure:"emoji"`
	Color            string  `mapstructure:"color"`
	ModelKind        string  `mapstructure:"model"`

	// --- Fields from runCmd.Flags() ---
	DateColumn    string `mapstructure:"date-column"`
	TargetColumn  string `mapstructure:"target-column"`
	EventColumns  string `mapstructure:"event-columns"`
	NChangepoints int    `mapstructure:"n-changepoints"`
	Samples       int    `mapstructure:"samples"`
	Tune          int    `mapstructure:"tune"`
	Chains        int    `mapstructure:"chains"`
	Seed          uint64 `mapstructure:"seed"`
	Workers       int    `mapstructure:"workers"`

	// --- Fields from diagnosticsCmd.Flags() ---
	PPCDraws int `mapstructure:"ppc-draws"`

	// --- Fields from simulateCmd.Flags() ---
	Observations int     `mapstructure:"observations"`
	Breaks       string  `mapstructure:"breaks"`
	Shift        float64 `mapstructure:"shift"`
	Effect       float64 `mapstructure:"effect"`
}

// validate checks struct tags on option structs. Field names in errors are
// the flag names taken from the json tags.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.EventColumns = slices.Clone(c.EventColumns)
	clone.Simulate.Breaks = slices.Clone(c.Simulate.Breaks)
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDataInputs(cfg, input); err != nil {
		return err
	}
	if err := processModelOptions(cfg, input); err != nil {
		return err
	}
	if err := processSimulateOptions(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates fit cache and result store backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Results Backend Validation ---
	cfg.ResultsBackend = schema.DatabaseBackend(strings.ToLower(input.ResultsBackend))
	if cfg.ResultsBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.ResultsBackend]; !ok {
		return fmt.Errorf("invalid results backend '%s'. must be sqlite, mysql, postgresql, none", input.ResultsBackend)
	}
	cfg.ResultsDBConnect = input.ResultsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ResultsBackend, cfg.ResultsDBConnect); err != nil {
		return err
	}

	// Cache and results must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.ResultsBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		resultsDBPath := cfg.ResultsDBConnect
		if resultsDBPath == "" {
			resultsDBPath = GetResultsDBFilePath()
		}
		if cacheDBPath == resultsDBPath {
			return fmt.Errorf("cache and results storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the presentation and backend fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.ResultsFile = input.ResultsFile
	cfg.RunID = input.RunID
	cfg.Width = input.Width

	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
	}

	// --- 2. Logging ---
	level, err := ParseLogLevel(strings.ToLower(input.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid --log-level value: %w", err)
	}
	cfg.LogLevel = level

	cfg.LogFormat = schema.LogFormat(strings.ToLower(input.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = schema.ConsoleLog
	}
	if _, ok := schema.ValidLogFormats[cfg.LogFormat]; !ok {
		return fmt.Errorf("invalid log format '%s'. must be console, json", input.LogFormat)
	}

	// --- 3. Backend Validation ---
	return validateBackendConfigs(cfg, input)
}

// processDataInputs resolves the input file and column selection.
func processDataInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.DataPath = strings.TrimSpace(input.DataPathStr)

	cfg.DateColumn = strings.TrimSpace(input.DateColumn)
	if cfg.DateColumn == "" {
		cfg.DateColumn = schema.DefaultDateColumn
	}
	cfg.TargetColumn = strings.TrimSpace(input.TargetColumn)
	if cfg.TargetColumn == "" {
		cfg.TargetColumn = schema.DefaultTargetColumn
	}

	cfg.EventColumns = SplitList(input.EventColumns)
	if len(cfg.EventColumns) == 0 {
		cfg.EventColumns = slices.Clone(schema.DefaultEventColumns)
	}
	for _, col := range cfg.EventColumns {
		if col == cfg.DateColumn || col == cfg.TargetColumn {
			return fmt.Errorf("event column %q cannot also be the date or target column", col)
		}
	}
	if dup := firstDuplicate(cfg.EventColumns); dup != "" {
		return fmt.Errorf("event column %q is listed more than once", dup)
	}
	return nil
}

// processModelOptions fills the model and sampler settings and checks their bounds.
func processModelOptions(cfg *Config, input *ConfigRawInput) error {
	cfg.Kind = schema.ModelKind(strings.ToLower(strings.TrimSpace(input.ModelKind)))
	switch cfg.Kind {
	case "":
		cfg.Kind = schema.EventKind
	case schema.BasicKind, schema.EventKind:
	default:
		return fmt.Errorf("invalid --model value '%s'. must be basic, event", input.ModelKind)
	}

	cfg.Model = ModelOptions{
		NChangepoints: input.NChangepoints,
		HDIProb:       input.HDIProb,
		RHatThreshold: input.RHatThreshold,
		MinESS:        input.MinESS,
		PPCDraws:      input.PPCDraws,
	}
	if err := validateStruct("model options", cfg.Model); err != nil {
		return err
	}

	cfg.Sample = schema.SampleOptions{
		Draws:   input.Samples,
		Tune:    input.Tune,
		Chains:  input.Chains,
		Seed:    input.Seed,
		Workers: input.Workers,
	}
	return validateStruct("sampling options", cfg.Sample)
}

// processSimulateOptions parses the synthetic generator settings.
func processSimulateOptions(cfg *Config, input *ConfigRawInput) error {
	breaks, err := ParseIntList(input.Breaks)
	if err != nil {
		return fmt.Errorf("invalid --breaks value: %w", err)
	}
	cfg.Simulate = SimulateOptions{
		Observations: input.Observations,
		Breaks:       breaks,
		Shift:        input.Shift,
		Effect:       input.Effect,
	}
	if err := validateStruct("simulate options", cfg.Simulate); err != nil {
		return err
	}
	for _, b := range breaks {
		if b >= cfg.Simulate.Observations {
			return fmt.Errorf("break %d is outside the %d simulated observations", b, cfg.Simulate.Observations)
		}
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// validateStruct runs tag validation and reports the first failing field.
func validateStruct(what string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		return fmt.Errorf("invalid %s: %s must satisfy %s (received %v)", what, fe.Field(), rule, fe.Value())
	}
	return fmt.Errorf("invalid %s: %w", what, err)
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
