// Package preprocess turns a raw traffic-violation table into an
// analysis-ready one.
//
// A run applies five stages in a fixed order, each taking the previous
// stage's frame and returning a new one:
//
//   - Clean: sentinel tokens become missing, categorical defaults are filled.
//   - NormalizeTypes: Date, Hour and the numeric columns are parsed.
//   - DeriveFeatures: the feature table adds every column whose inputs exist.
//   - ValidateRows: rows without a Date or with an implausible driver age are
//     removed, then speeds, fines and alcohol levels are clamped at zero.
//   - Finalize: rows are stable-sorted by Date.
//
// Cell-level parse failures and absent columns never fail a run. Only an
// empty input or an unexpected stage error does.
package preprocess

import (
	"context"
	"slices"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/dataframe"
	dferrors "github.com/paveg/trafficprep/internal/errors"
	"github.com/paveg/trafficprep/internal/monitoring"
	"github.com/paveg/trafficprep/internal/validation"
	"go.uber.org/zap"
)

// Stage names used in logs and metrics.
const (
	StageClean     = "clean"
	StageNormalize = "normalize"
	StageDerive    = "derive"
	StageValidate  = "validate"
	StageFinalize  = "finalize"
)

// Options configures a Pipeline. The zero value is usable.
type Options struct {
	// FallbackYear is the Vehicle_Age base year when no Date is valid.
	// Zero means DefaultFallbackYear.
	FallbackYear int
	// Features overrides the feature table. Nil means Features().
	Features []Feature
	Logger   *zap.Logger
	Metrics  *monitoring.MetricsCollector
	Mem      memory.Allocator
}

// Pipeline runs the preprocessing stages.
type Pipeline struct {
	opts     Options
	features []Feature
	logger   *zap.Logger
	mem      memory.Allocator
}

// Result summarizes a run.
type Result struct {
	RowsIn     int
	RowsOut    int
	ColumnsIn  int
	ColumnsOut int
	// DerivedColumns lists the output columns that were not in the input,
	// in output order.
	DerivedColumns []string
	// AppliedFeatures names the feature-table entries that ran.
	AppliedFeatures []string
	Rows            RowReport
	ParseIssues     ParseIssues
	Duration        time.Duration
}

// RowsRemoved returns how many input rows did not survive validation.
func (r *Result) RowsRemoved() int {
	return r.RowsIn - r.RowsOut
}

// NewColumns returns the column count difference between output and input.
func (r *Result) NewColumns() int {
	return r.ColumnsOut - r.ColumnsIn
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	if opts.FallbackYear == 0 {
		opts.FallbackYear = DefaultFallbackYear
	}
	p := &Pipeline{
		opts:     opts,
		features: opts.Features,
		logger:   opts.Logger,
		mem:      opts.Mem,
	}
	if p.features == nil {
		p.features = Features()
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.mem == nil {
		p.mem = memory.NewGoAllocator()
	}
	return p
}

type stageFunc func(df *dataframe.DataFrame) (*dataframe.DataFrame, error)

// Run preprocesses df and returns a new frame. df is not modified or
// released. Failures are returned as processing errors naming the stage.
func (p *Pipeline) Run(ctx context.Context, df *dataframe.DataFrame) (*dataframe.DataFrame, *Result, error) {
	if err := validation.ValidateNotEmpty(df, "Preprocess"); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	res := &Result{
		RowsIn:    df.Len(),
		ColumnsIn: df.Width(),
	}

	stages := []struct {
		name string
		run  stageFunc
	}{
		{StageClean, func(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
			return Clean(in, p.mem)
		}},
		{StageNormalize, func(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
			out, issues, err := NormalizeTypes(in, p.mem)
			res.ParseIssues = issues
			return out, err
		}},
		{StageDerive, func(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
			out, applied, err := DeriveFeatures(in, p.features, Env{Mem: p.mem, FallbackYear: p.opts.FallbackYear})
			if err != nil {
				return nil, err
			}
			res.AppliedFeatures = applied
			p.logSkipped(out, applied)
			return out, nil
		}},
		{StageValidate, func(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
			out, report, err := ValidateRows(in, p.mem)
			res.Rows = report
			return out, err
		}},
		{StageFinalize, func(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
			return Finalize(in, p.mem)
		}},
	}

	current := df
	owned := false
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			if owned {
				current.Release()
			}
			return nil, nil, dferrors.NewProcessingError(stage.name, err)
		}

		in := current
		rowsIn, colsIn := in.Len(), in.Width()
		stageStart := time.Now()
		var out *dataframe.DataFrame
		err := p.opts.Metrics.RecordStage(stage.name, rowsIn, colsIn, func() (monitoring.StageResult, error) {
			var runErr error
			out, runErr = stage.run(in)
			if runErr != nil {
				return monitoring.StageResult{}, runErr
			}
			return monitoring.StageResult{Rows: out.Len(), Columns: out.Width()}, nil
		})
		if owned {
			in.Release()
		}
		if err != nil {
			p.logger.Debug("stage failed", zap.String("stage", stage.name), zap.Error(err))
			return nil, nil, dferrors.NewProcessingError(stage.name, err)
		}

		p.logger.Debug("stage complete",
			zap.String("stage", stage.name),
			zap.Int("rows_in", rowsIn),
			zap.Int("rows_out", out.Len()),
			zap.Int("columns_added", out.Width()-colsIn),
			zap.Duration("duration", time.Since(stageStart)))

		current, owned = out, true
	}

	p.report(res, df, current)
	res.Duration = time.Since(start)
	return current, res, nil
}

func (p *Pipeline) logSkipped(out *dataframe.DataFrame, applied []string) {
	for _, f := range p.features {
		if slices.Contains(applied, f.Name) {
			continue
		}
		p.logger.Debug("feature skipped",
			zap.String("feature", f.Name),
			zap.Strings("missing", f.MissingInputs(out)))
	}
}

func (p *Pipeline) report(res *Result, in, out *dataframe.DataFrame) {
	res.RowsOut = out.Len()
	res.ColumnsOut = out.Width()
	for _, name := range out.Columns() {
		if !in.HasColumn(name) {
			res.DerivedColumns = append(res.DerivedColumns, name)
		}
	}

	for _, column := range res.ParseIssues.Columns() {
		for reason, n := range res.ParseIssues[column] {
			p.logger.Debug("cells degraded to missing",
				zap.String("column", column),
				zap.String("reason", string(reason)),
				zap.Int("count", n))
		}
		p.opts.Metrics.RecordCellsMissing(column, res.ParseIssues.Total(column))
	}
	for _, rule := range []string{RuleMissingDate, RuleDriverAge} {
		if n, ok := res.Rows.Removed[rule]; ok {
			p.opts.Metrics.RecordRowsRemoved(rule, n)
		}
	}
}
