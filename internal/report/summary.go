// Package report renders what a preprocessing run produced: the console
// summary printed after every successful run and an optional YAML profile
// of the cleaned table.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/paveg/trafficprep/internal/preprocess"
)

const ruleWidth = 60

// Summary holds the shape of the table before and after preprocessing.
type Summary struct {
	ColumnsIn   int `yaml:"columns_in"`
	ColumnsOut  int `yaml:"columns_out"`
	Derived     int `yaml:"derived_columns"`
	RowsIn      int `yaml:"rows_in"`
	RowsOut     int `yaml:"rows_out"`
	RowsRemoved int `yaml:"rows_removed"`
}

// SummaryFromResult extracts the summary of a pipeline run.
func SummaryFromResult(res *preprocess.Result) Summary {
	return Summary{
		ColumnsIn:   res.ColumnsIn,
		ColumnsOut:  res.ColumnsOut,
		Derived:     res.NewColumns(),
		RowsIn:      res.RowsIn,
		RowsOut:     res.RowsOut,
		RowsRemoved: res.RowsRemoved(),
	}
}

// WriteSummary prints the summary block shown after a successful run.
func WriteSummary(w io.Writer, s Summary) error {
	rule := strings.Repeat("=", ruleWidth)
	_, err := fmt.Fprintf(w,
		"\n%s\nPREPROCESSING SUMMARY\n%s\n"+
			"Original columns: %d\n"+
			"Cleaned columns: %d\n"+
			"New derived features: %d\n"+
			"Original rows: %d\n"+
			"Cleaned rows: %d\n"+
			"Rows removed: %d\n"+
			"%s\n",
		rule, rule,
		s.ColumnsIn, s.ColumnsOut, s.Derived,
		s.RowsIn, s.RowsOut, s.RowsRemoved,
		rule)
	return err
}
