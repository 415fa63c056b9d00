// Package trafficprep turns a raw traffic-violation CSV into an
// analysis-ready table: it cleans sentinel values, normalizes dates, times
// and numerics, derives temporal, speed, categorical and risk features,
// drops rows that fail domain checks and sorts the result by date.
//
// PreprocessFile runs a whole job from configuration. Preprocess runs the
// pipeline on a table already in memory.
package trafficprep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/paveg/trafficprep/internal/config"
	"github.com/paveg/trafficprep/internal/dataframe"
	dferrors "github.com/paveg/trafficprep/internal/errors"
	dfio "github.com/paveg/trafficprep/internal/io"
	"github.com/paveg/trafficprep/internal/monitoring"
	"github.com/paveg/trafficprep/internal/preprocess"
	"github.com/paveg/trafficprep/internal/report"
)

// Config is the configuration of a preprocessing job.
type Config = config.Config

// Result describes what a pipeline run did.
type Result = preprocess.Result

// ErrInputNotFound is matched with errors.Is when the input file is missing.
var ErrInputNotFound = dferrors.ErrInputNotFound

// IsInputNotFound reports whether err means the input file is missing.
func IsInputNotFound(err error) bool {
	return errors.Is(err, ErrInputNotFound)
}

// DataFrame is the public handle on a table.
// It wraps the internal dataframe.DataFrame to hide implementation details.
type DataFrame struct {
	df *dataframe.DataFrame
}

// Columns returns the column names in order.
func (d *DataFrame) Columns() []string { return d.df.Columns() }

// Len returns the number of rows.
func (d *DataFrame) Len() int { return d.df.Len() }

// Width returns the number of columns.
func (d *DataFrame) Width() int { return d.df.Width() }

// Release releases the underlying Arrow memory.
func (d *DataFrame) Release() { d.df.Release() }

// String returns a string representation of the DataFrame.
func (d *DataFrame) String() string { return d.df.String() }

// WriteCSV writes the table as CSV with a header row.
func (d *DataFrame) WriteCSV(w io.Writer) error {
	return dfio.NewCSVWriter(w, dfio.DefaultCSVOptions()).Write(d.df)
}

// ReadCSV loads a CSV table with every column as text.
func ReadCSV(r io.Reader, mem memory.Allocator) (*DataFrame, error) {
	df, err := dfio.NewCSVReader(r, dfio.DefaultCSVOptions(), mem).Read()
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// Preprocess runs the pipeline on an in-memory table. The input is left
// untouched and must still be released by the caller.
func Preprocess(ctx context.Context, in *DataFrame, logger *zap.Logger) (*DataFrame, *Result, error) {
	out, res, err := preprocess.New(preprocess.Options{Logger: logger}).Run(ctx, in.df)
	if err != nil {
		return nil, nil, err
	}
	return &DataFrame{df: out}, res, nil
}

// Outcome is what PreprocessFile produced.
type Outcome struct {
	Result  *Result
	Summary report.Summary
	// Profile is set when cfg.Report.File was configured.
	Profile *report.Profile
	Metrics monitoring.MetricsSummary
}

// PreprocessFile reads cfg.Input, runs the pipeline and writes cfg.Output in
// cfg.OutputFormat. Every file is written to a temporary file and renamed
// into place, so no partial file is left behind. The profile and metrics
// textfile are written before the output; if the output write then fails
// they remain.
func PreprocessFile(ctx context.Context, cfg Config, logger *zap.Logger, runID string) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mem := memory.NewGoAllocator()

	raw, err := readInput(cfg, mem)
	if err != nil {
		return nil, err
	}
	defer raw.Release()
	logger.Debug("input loaded",
		zap.String("path", cfg.Input),
		zap.Int("rows", raw.Len()),
		zap.Int("columns", raw.Width()))

	metrics := monitoring.NewMetricsCollector(cfg.Metrics.Textfile != "")
	p := preprocess.New(preprocess.Options{
		FallbackYear: cfg.VehicleAgeFallbackYear,
		Logger:       logger,
		Metrics:      metrics,
		Mem:          mem,
	})
	out, res, err := p.Run(ctx, raw)
	if err != nil {
		return nil, err
	}
	defer out.Release()

	outcome := &Outcome{
		Result:  res,
		Summary: report.SummaryFromResult(res),
		Metrics: metrics.GetSummary(),
	}

	if cfg.Report.File != "" {
		outcome.Profile = report.Build(out, res, report.Options{TopN: cfg.Report.TopN, RunID: runID})
		if err := writeAtomic(cfg.Report.File, outcome.Profile.Encode); err != nil {
			return nil, dferrors.NewProcessingError("Report", err)
		}
		logger.Debug("profile written", zap.String("path", cfg.Report.File))
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return nil, dferrors.NewProcessingError("Metrics", err)
		}
		logger.Debug("metrics written", zap.String("path", cfg.Metrics.Textfile))
	}

	// The cleaned table is committed last so that a failed side output
	// never leaves it behind.
	if err := writeAtomic(cfg.Output, func(w io.Writer) error {
		return writeFrame(w, out, cfg)
	}); err != nil {
		return nil, dferrors.NewProcessingError("Write", err)
	}
	logger.Debug("output written",
		zap.String("path", cfg.Output),
		zap.String("format", cfg.OutputFormat),
		zap.Int("rows", out.Len()),
		zap.Int("columns", out.Width()))

	return outcome, nil
}

func readInput(cfg Config, mem memory.Allocator) (*dataframe.DataFrame, error) {
	f, err := os.Open(cfg.Input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dferrors.NewInputNotFoundError(cfg.Input)
		}
		return nil, dferrors.NewProcessingError("Read", err)
	}
	defer f.Close()

	opts := dfio.DefaultCSVOptions()
	opts.Delimiter = cfg.DelimiterRune()
	df, err := dfio.NewCSVReader(f, opts, mem).Read()
	if err != nil {
		return nil, dferrors.NewProcessingError("Read", err)
	}
	return df, nil
}

func writeFrame(w io.Writer, df *dataframe.DataFrame, cfg Config) error {
	var writer dfio.DataWriter
	switch cfg.OutputFormat {
	case "csv":
		opts := dfio.DefaultCSVOptions()
		opts.Delimiter = cfg.DelimiterRune()
		writer = dfio.NewCSVWriter(w, opts)
	case "jsonl":
		writer = dfio.NewJSONWriter(w, dfio.JSONOptions{Format: dfio.JSONLines})
	case "json":
		writer = dfio.NewJSONWriter(w, dfio.JSONOptions{Format: dfio.JSONArray})
	case "parquet":
		opts := dfio.DefaultParquetOptions()
		opts.Compression = cfg.Parquet.Compression
		writer = dfio.NewParquetWriter(w, opts)
	default:
		return fmt.Errorf("unsupported output format: %s", cfg.OutputFormat)
	}
	return writer.Write(df)
}

// writeAtomic writes path through a temporary file in the same directory.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", tmp.Name(), err)
	}

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}
