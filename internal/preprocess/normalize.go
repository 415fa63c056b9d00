package preprocess

import (
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/series"
)

// NumericColumns are coerced to float64 when present.
var NumericColumns = []string{
	ColFineAmount,
	ColDriverAge,
	ColPenaltyPoints,
	ColSpeedLimit,
	ColRecordedSpeed,
	ColAlcoholLevel,
	ColNumberOfPassengers,
	ColPreviousViolations,
	ColVehicleModelYear,
}

// ParseIssues counts cells that degraded to missing, by column and reason.
// Cells that were already missing are not counted.
type ParseIssues map[string]map[ParseReason]int

func (p ParseIssues) add(column string, reason ParseReason) {
	if p[column] == nil {
		p[column] = make(map[ParseReason]int)
	}
	p[column][reason]++
}

// Total returns the number of degraded cells in column.
func (p ParseIssues) Total(column string) int {
	n := 0
	for _, c := range p[column] {
		n += c
	}
	return n
}

// Columns returns the columns with at least one degraded cell, sorted.
func (p ParseIssues) Columns() []string {
	cols := make([]string, 0, len(p))
	for c := range p {
		if p.Total(c) > 0 {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	return cols
}

// NormalizeTypes parses Date, derives Hour from Time and coerces the numeric
// columns. Malformed cells become missing; it never fails on cell content.
func NormalizeTypes(df *dataframe.DataFrame, mem memory.Allocator) (*dataframe.DataFrame, ParseIssues, error) {
	issues := make(ParseIssues)
	var cols []dataframe.ISeries

	if col, ok := df.Column(ColDate); ok && col.DataType().ID() != arrow.TIMESTAMP {
		raw, present := dataframe.Strings(col)
		results, _ := ParseDateColumn(raw, present)

		dates := make([]time.Time, len(results))
		valid := make([]bool, len(results))
		for i, r := range results {
			dates[i], valid[i] = r.Value, r.OK
			if !r.OK && r.Reason != ReasonEmpty {
				issues.add(ColDate, r.Reason)
			}
		}
		s, err := series.NewWithValidity(ColDate, dates, valid, mem)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, s)
	}

	if col, ok := df.Column(ColTime); ok {
		raw, present := dataframe.Strings(col)
		hours := make([]int64, len(raw))
		valid := make([]bool, len(raw))
		for i := range raw {
			r := ParseHour(raw[i], present[i])
			hours[i], valid[i] = r.Value, r.OK
			if !r.OK && r.Reason != ReasonEmpty {
				issues.add(ColHour, r.Reason)
			}
		}
		s, err := series.NewWithValidity(ColHour, hours, valid, mem)
		if err != nil {
			releaseAll(cols)
			return nil, nil, err
		}
		cols = append(cols, s)
	}

	for _, name := range NumericColumns {
		col, ok := df.Column(name)
		if !ok || col.DataType().ID() == arrow.FLOAT64 {
			continue
		}
		values, valid := dataframe.Floats(col)
		for i := range valid {
			if !valid[i] && !col.IsNull(i) {
				issues.add(name, ReasonUnrecognized)
			}
		}
		s, err := series.NewWithValidity(name, values, valid, mem)
		if err != nil {
			releaseAll(cols)
			return nil, nil, err
		}
		cols = append(cols, s)
	}

	out, err := df.WithColumns(cols...)
	if err != nil {
		releaseAll(cols)
		return nil, nil, err
	}
	return out, issues, nil
}
