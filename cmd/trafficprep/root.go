package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paveg/trafficprep"
	"github.com/paveg/trafficprep/internal/config"
	"github.com/paveg/trafficprep/internal/report"
	"github.com/paveg/trafficprep/internal/version"
)

type rootFlags struct {
	configFile      string
	input           string
	output          string
	format          string
	delimiter       string
	reportFile      string
	reportTopN      int
	metricsTextfile string
	compression     string
	fallbackYear    int
	logLevel        string
	logFormat       string
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"input":                     "input",
	"output":                    "output",
	"format":                    "output_format",
	"delimiter":                 "delimiter",
	"report":                    "report.file",
	"report-top":                "report.top_n",
	"metrics-textfile":          "metrics.textfile",
	"parquet-compression":       "parquet.compression",
	"vehicle-age-fallback-year": "vehicle_age_fallback_year",
	"log-level":                 "log_level",
	"log-format":                "log_format",
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "trafficprep [input]",
		Short: "Preprocess traffic-violation records into an analysis-ready table",
		Long: `trafficprep cleans a traffic-violation CSV, derives temporal, speed,
categorical and risk features, drops invalid rows and writes the result.

Configuration is layered: built-in defaults, then --config, then
TRAFFICPREP_* environment variables, then flags.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(cmd, flags, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML configuration file")
	pf.StringVarP(&flags.input, "input", "i", config.DefaultInput, "raw input CSV")
	pf.StringVarP(&flags.output, "output", "o", config.DefaultOutput, "cleaned output file")
	pf.StringVarP(&flags.format, "format", "f", config.DefaultOutputFormat, "output format: csv, jsonl, json or parquet")
	pf.StringVar(&flags.delimiter, "delimiter", config.DefaultDelimiter, "CSV field delimiter")
	pf.StringVar(&flags.reportFile, "report", "", "write a YAML profile report to this file")
	pf.IntVar(&flags.reportTopN, "report-top", config.DefaultReportTopN, "categories kept per distribution in the report")
	pf.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "write Prometheus stage metrics to this file")
	pf.StringVar(&flags.compression, "parquet-compression", config.DefaultParquetCompression, "parquet codec")
	pf.IntVar(&flags.fallbackYear, "vehicle-age-fallback-year", config.DefaultVehicleAgeFallbackYear,
		"base year for Vehicle_Age when no date is valid")
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", config.DefaultLogFormat, "log format: console or json")

	root.AddCommand(&cobra.Command{
		Use:   "run [input]",
		Short: "Run the preprocessing pipeline (default command)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(cmd, flags, args)
		},
	})
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info().String())
		},
	}
}

// overrides collects the flags the user actually set.
func overrides(cmd *cobra.Command, flags *rootFlags, args []string) map[string]any {
	values := map[string]any{
		"input":                     flags.input,
		"output":                    flags.output,
		"format":                    flags.format,
		"delimiter":                 flags.delimiter,
		"report":                    flags.reportFile,
		"report-top":                flags.reportTopN,
		"metrics-textfile":          flags.metricsTextfile,
		"parquet-compression":       flags.compression,
		"vehicle-age-fallback-year": flags.fallbackYear,
		"log-level":                 flags.logLevel,
		"log-format":                flags.logFormat,
	}

	out := make(map[string]any)
	for name, key := range flagKeys {
		if cmd.Flags().Changed(name) {
			out[key] = values[name]
		}
	}
	if len(args) == 1 {
		out["input"] = args[0]
	}
	return out
}

func runPreprocess(cmd *cobra.Command, flags *rootFlags, args []string) error {
	cfg, err := config.Load(config.LoadOptions{
		File:      flags.configFile,
		Overrides: overrides(cmd, flags, args),
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	logger.Debug("starting", version.Info().Fields()...)

	outcome, err := trafficprep.PreprocessFile(cmd.Context(), cfg, logger, runID)
	if err != nil {
		if !trafficprep.IsInputNotFound(err) {
			return &processingFailure{err: err}
		}
		return err
	}

	logger.Debug("preprocessing complete",
		zap.Int("rows_removed", outcome.Summary.RowsRemoved),
		zap.Int("derived_columns", outcome.Summary.Derived),
		zap.Duration("duration", outcome.Result.Duration))

	return report.WriteSummary(cmd.OutOrStdout(), outcome.Summary)
}
