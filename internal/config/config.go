// Package config provides layered configuration for trafficprep runs:
// built-in defaults, an optional YAML file, TRAFFICPREP_* environment
// variables and explicit overrides (CLI flags), applied in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load. A double
// underscore separates nested keys, e.g. TRAFFICPREP_REPORT__TOP_N.
const EnvPrefix = "TRAFFICPREP_"

// Default configuration values
const (
	DefaultInput                  = "Indian_Traffic_Violations.csv"
	DefaultOutput                 = "Indian_Traffic_Violations_Dataset.csv"
	DefaultOutputFormat           = "csv"
	DefaultDelimiter              = ","
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "console"
	DefaultVehicleAgeFallbackYear = 2023
	DefaultReportTopN             = 10
	DefaultParquetCompression     = "snappy"
)

// Config represents the configuration of a preprocessing run
type Config struct {
	Input                  string `koanf:"input" validate:"required"`
	Output                 string `koanf:"output" validate:"required"`
	OutputFormat           string `koanf:"output_format" validate:"oneof=csv jsonl json parquet"`
	Delimiter              string `koanf:"delimiter" validate:"len=1"`
	LogLevel               string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat              string `koanf:"log_format" validate:"oneof=console json"`
	VehicleAgeFallbackYear int    `koanf:"vehicle_age_fallback_year" validate:"gte=1900,lte=9999"`

	Report  ReportConfig  `koanf:"report"`
	Metrics MetricsConfig `koanf:"metrics"`
	Parquet ParquetConfig `koanf:"parquet"`
}

// ReportConfig controls the optional YAML profile report
type ReportConfig struct {
	File string `koanf:"file"`
	TopN int    `koanf:"top_n" validate:"gte=1"`
}

// MetricsConfig controls the optional Prometheus textfile
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// ParquetConfig controls Parquet output
type ParquetConfig struct {
	Compression string `koanf:"compression" validate:"oneof=snappy gzip zstd lz4 brotli uncompressed none"`
}

// LoadOptions selects the sources Load reads on top of the defaults
type LoadOptions struct {
	// File is an optional YAML file. Empty means none.
	File string
	// Overrides are applied last, keyed by koanf path (e.g. "report.file").
	Overrides map[string]any
	// Environ replaces the process environment when non-nil. Each entry is KEY=VALUE.
	Environ []string
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Input:                  DefaultInput,
		Output:                 DefaultOutput,
		OutputFormat:           DefaultOutputFormat,
		Delimiter:              DefaultDelimiter,
		LogLevel:               DefaultLogLevel,
		LogFormat:              DefaultLogFormat,
		VehicleAgeFallbackYear: DefaultVehicleAgeFallbackYear,
		Report: ReportConfig{
			TopN: DefaultReportTopN,
		},
		Parquet: ParquetConfig{
			Compression: DefaultParquetCompression,
		},
	}
}

// Load builds a Config from defaults, the optional file, the environment
// and overrides, then validates it.
func Load(opts LoadOptions) (Config, error) {
	k := koanf.New(".")

	defaults := NewConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", opts.File, err)
		}
	}

	if err := loadEnv(k, opts.Environ); err != nil {
		return Config{}, fmt.Errorf("loading environment variables: %w", err)
	}

	for key, val := range opts.Overrides {
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("applying override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func loadEnv(k *koanf.Koanf, environ []string) error {
	if environ == nil {
		return k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	}
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if err := k.Set(envKey(key), val); err != nil {
			return err
		}
	}
	return nil
}

//nolint:gochecknoglobals // validator caches struct metadata
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Input == c.Output {
		return fmt.Errorf("invalid configuration: output must differ from input, got %s", c.Output)
	}
	if c.Report.File != "" && (c.Report.File == c.Output || c.Report.File == c.Input) {
		return fmt.Errorf("invalid configuration: report file %s collides with a data file", c.Report.File)
	}
	if c.OutputFormat == "csv" && c.DelimiterRune() == '"' {
		return errors.New("invalid configuration: delimiter cannot be a quote")
	}
	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.Input == "" {
		c.Input = defaults.Input
	}
	if c.Output == "" {
		c.Output = defaults.Output
	}
	if c.OutputFormat == "" {
		c.OutputFormat = defaults.OutputFormat
	}
	if c.Delimiter == "" {
		c.Delimiter = defaults.Delimiter
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}
	if c.VehicleAgeFallbackYear == 0 {
		c.VehicleAgeFallbackYear = defaults.VehicleAgeFallbackYear
	}
	if c.Report.TopN == 0 {
		c.Report.TopN = defaults.Report.TopN
	}
	if c.Parquet.Compression == "" {
		c.Parquet.Compression = defaults.Parquet.Compression
	}

	return c
}

// DelimiterRune returns the field delimiter as a rune.
func (c Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}
