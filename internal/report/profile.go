package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/parallel"
	"github.com/paveg/trafficprep/internal/preprocess"
)

// DefaultTopN is the number of categories kept per distribution.
const DefaultTopN = 10

// DistributionColumns are profiled as categorical distributions when present.
var DistributionColumns = []string{
	preprocess.ColViolationType,
	"Vehicle_Type",
	"Location",
	"Time_of_Day",
	"Age_Group",
	"Fine_Category",
	"Risk_Category",
	"Day_of_Week",
	"Weather_Condition",
	"Road_Condition",
}

// Profile is the YAML report of a cleaned table.
type Profile struct {
	RunID         string         `yaml:"run_id,omitempty"`
	Totals        Summary        `yaml:"totals"`
	Fines         *Fines         `yaml:"fines,omitempty"`
	Rates         Rates          `yaml:"rates"`
	Distributions []Distribution `yaml:"distributions,omitempty"`
	Numeric       []NumericStats `yaml:"numeric,omitempty"`
}

// Fines aggregates Fine_Amount with exact decimal arithmetic.
type Fines struct {
	Count   int    `yaml:"count"`
	Total   string `yaml:"total"`
	Average string `yaml:"average"`
}

// Rates are percentages in [0, 100]. A nil rate means its column was absent.
type Rates struct {
	SpeedViolation     *float64 `yaml:"speed_violation,omitempty"`
	RepeatOffender     *float64 `yaml:"repeat_offender,omitempty"`
	HelmetCompliance   *float64 `yaml:"helmet_compliance,omitempty"`
	SeatbeltCompliance *float64 `yaml:"seatbelt_compliance,omitempty"`
}

// Distribution lists the most frequent labels of a column.
type Distribution struct {
	Column     string     `yaml:"column"`
	Missing    int        `yaml:"missing"`
	Categories []Category `yaml:"categories"`
}

// NumericStats describes the non-missing values of a numeric column.
type NumericStats struct {
	Column string  `yaml:"column"`
	Count  int     `yaml:"count"`
	Mean   float64 `yaml:"mean"`
	Std    float64 `yaml:"std"`
	Min    float64 `yaml:"min"`
	Median float64 `yaml:"median"`
	Max    float64 `yaml:"max"`
}

// Options configures Build.
type Options struct {
	TopN  int
	RunID string
	// Workers bounds the goroutines profiling columns. Zero means one per CPU.
	Workers int
}

// Build profiles a cleaned table. Every section is skipped when the
// columns it reads are absent.
func Build(df *dataframe.DataFrame, res *preprocess.Result, opts Options) *Profile {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}

	p := &Profile{RunID: opts.RunID}
	if res != nil {
		p.Totals = SummaryFromResult(res)
	} else {
		p.Totals = Summary{ColumnsOut: df.Width(), RowsOut: df.Len()}
	}

	if col, ok := df.Column(preprocess.ColFineAmount); ok {
		p.Fines = fines(col)
	}

	if col, ok := df.Column("Speed_Violation"); ok {
		p.Rates.SpeedViolation = trueRate(col)
	}
	if col, ok := df.Column("Is_Repeat_Offender"); ok {
		p.Rates.RepeatOffender = trueRate(col)
	}
	if col, ok := df.Column("Helmet_Compliance"); ok {
		p.Rates.HelmetCompliance = complianceRate(col)
	}
	if col, ok := df.Column("Seatbelt_Compliance"); ok {
		p.Rates.SeatbeltCompliance = complianceRate(col)
	}

	pool := parallel.NewWorkerPool(opts.Workers)

	var categorical []dataframe.ISeries
	for _, name := range DistributionColumns {
		if col, ok := df.Column(name); ok {
			categorical = append(categorical, col)
		}
	}
	p.Distributions = parallel.Map(pool, categorical, func(_ int, col dataframe.ISeries) Distribution {
		return distribution(col, opts.TopN)
	})

	var numeric []dataframe.ISeries
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		switch col.DataType().ID() {
		case arrow.FLOAT64, arrow.INT64:
			numeric = append(numeric, col)
		}
	}
	stats := parallel.Map(pool, numeric, func(_ int, col dataframe.ISeries) *NumericStats {
		s, ok := numericStats(col)
		if !ok {
			return nil
		}
		return &s
	})
	for _, s := range stats {
		if s != nil {
			p.Numeric = append(p.Numeric, *s)
		}
	}

	return p
}

// Encode writes the profile as YAML.
func (p *Profile) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return enc.Close()
}

func fines(col dataframe.ISeries) *Fines {
	values, valid := dataframe.Floats(col)
	total := decimal.Zero
	n := 0
	for i, v := range values {
		if !valid[i] {
			continue
		}
		total = total.Add(decimal.NewFromFloat(v))
		n++
	}

	avg := decimal.Zero
	if n > 0 {
		avg = total.Div(decimal.NewFromInt(int64(n)))
	}
	return &Fines{
		Count:   n,
		Total:   total.StringFixed(2),
		Average: avg.StringFixed(2),
	}
}

func trueRate(col dataframe.ISeries) *float64 {
	arr := col.Array()
	defer arr.Release()

	b, ok := arr.(*array.Boolean)
	if !ok {
		return nil
	}
	hits, n := 0, 0
	for i := 0; i < b.Len(); i++ {
		if b.IsNull(i) {
			continue
		}
		n++
		if b.Value(i) {
			hits++
		}
	}
	rate := percent(hits, n)
	return &rate
}

func complianceRate(col dataframe.ISeries) *float64 {
	labels, valid := dataframe.Strings(col)
	compliant, judged := 0, 0
	for i, l := range labels {
		if !valid[i] {
			continue
		}
		switch l {
		case "Compliant":
			compliant++
			judged++
		case "Non-Compliant":
			judged++
		}
	}
	if judged == 0 {
		return nil
	}
	rate := percent(compliant, judged)
	return &rate
}

func distribution(col dataframe.ISeries, topN int) Distribution {
	labels, valid := dataframe.Strings(col)
	c := newCounter()
	missing := 0
	for i, l := range labels {
		if !valid[i] {
			missing++
			continue
		}
		c.add(l)
	}
	return Distribution{
		Column:     col.Name(),
		Missing:    missing,
		Categories: c.top(topN),
	}
}

func numericStats(col dataframe.ISeries) (NumericStats, bool) {
	values, valid := dataframe.Floats(col)
	x := make([]float64, 0, len(values))
	for i, v := range values {
		if valid[i] {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return NumericStats{}, false
	}

	mean, std := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		std = 0
	}
	sort.Float64s(x)
	return NumericStats{
		Column: col.Name(),
		Count:  len(x),
		Mean:   round2(mean),
		Std:    round2(std),
		Min:    floats.Min(x),
		Median: round2(median(x)),
		Max:    floats.Max(x),
	}, true
}

// median of sorted values, averaging the middle pair for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
