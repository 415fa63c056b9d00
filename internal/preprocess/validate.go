package preprocess

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/series"
)

// Removal rule names, as reported in RowReport and metrics.
const (
	RuleMissingDate = "missing_date"
	RuleDriverAge   = "driver_age"
)

// Driver age bounds, inclusive.
const (
	MinDriverAge = 18
	MaxDriverAge = 100
)

// ClampedColumns are raised to a minimum of zero after row removal.
var ClampedColumns = []string{ColRecordedSpeed, ColSpeedLimit, ColFineAmount, ColAlcoholLevel}

// RowReport describes what row validation did.
type RowReport struct {
	// Removed counts discarded rows per rule. A row is counted under the
	// first rule that removed it.
	Removed map[string]int
	// Clamped counts cells raised to zero per column.
	Clamped map[string]int
}

// TotalRemoved returns the number of rows removed by every rule together.
func (r RowReport) TotalRemoved() int {
	n := 0
	for _, c := range r.Removed {
		n += c
	}
	return n
}

type removalRule struct {
	name   string
	column string
	keep   func(col dataframe.ISeries) []bool
}

var removalRules = []removalRule{
	{
		name:   RuleMissingDate,
		column: ColDate,
		keep: func(col dataframe.ISeries) []bool {
			_, valid := dataframe.Times(col)
			return valid
		},
	},
	{
		name:   RuleDriverAge,
		column: ColDriverAge,
		keep: func(col dataframe.ISeries) []bool {
			ages, valid := dataframe.Floats(col)
			keep := make([]bool, len(ages))
			for i, a := range ages {
				keep[i] = valid[i] && a >= MinDriverAge && a <= MaxDriverAge
			}
			return keep
		},
	},
}

// ValidateRows removes rows with a missing Date or an out-of-range
// Driver_Age, in that order, then clamps ClampedColumns at zero. Derived
// columns are not recomputed after clamping.
func ValidateRows(df *dataframe.DataFrame, mem memory.Allocator) (*dataframe.DataFrame, RowReport, error) {
	report := RowReport{Removed: map[string]int{}, Clamped: map[string]int{}}
	current := df.Select(df.Columns()...)

	for _, rule := range removalRules {
		col, ok := current.Column(rule.column)
		if !ok {
			continue
		}
		before := current.Len()
		next, err := current.Filter(rule.keep(col), mem)
		current.Release()
		if err != nil {
			return nil, report, err
		}
		current = next
		report.Removed[rule.name] = before - current.Len()
	}

	var clamped []dataframe.ISeries
	for _, name := range ClampedColumns {
		col, ok := current.Column(name)
		if !ok {
			continue
		}
		values, valid := dataframe.Floats(col)
		for i := range values {
			if !valid[i] {
				values[i] = 0
			}
		}
		if n := clampMin(values, 0); n > 0 {
			report.Clamped[name] = n
		}
		s, err := series.NewWithValidity(name, values, valid, mem)
		if err != nil {
			releaseAll(clamped)
			current.Release()
			return nil, report, err
		}
		clamped = append(clamped, s)
	}

	out, err := current.WithColumns(clamped...)
	current.Release()
	if err != nil {
		releaseAll(clamped)
		return nil, report, err
	}
	return out, report, nil
}
