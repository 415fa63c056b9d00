// Package testutil provides common testing utilities shared by the package
// tests: allocator setup, fixture tables built from CSV text, and assertions
// over column contents.
package testutil

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/io"
	"github.com/paveg/trafficprep/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator for tests.
// Returns a TestMemoryContext that should be released with defer.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewGoAllocator(),
		cleanup:   func() {},
	}
}

// FrameFromCSV loads csvText the way the CLI loads its input: every column
// as text, empty cells missing.
func FrameFromCSV(tb testing.TB, allocator memory.Allocator, csvText string) *dataframe.DataFrame {
	tb.Helper()
	df, err := io.NewCSVReader(strings.NewReader(csvText), io.DefaultCSVOptions(), allocator).Read()
	require.NoError(tb, err)
	return df
}

// ViolationsHeader is the column set of the standard fixture.
var ViolationsHeader = []string{
	"Violation_ID", "Violation_Type", "Fine_Amount", "Location", "Date", "Time",
	"Vehicle_Type", "Vehicle_Model_Year", "Driver_Age", "License_Validity",
	"Alcohol_Level", "Breathalyzer_Result", "Speed_Limit", "Recorded_Speed",
	"Helmet_Worn", "Seatbelt_Worn", "Previous_Violations",
	"Court_Appearance_Required", "Comments",
}

var violationsRows = []string{
	"V1,Speeding,1500,Delhi,15-03-2023,14:30,Car,2015,34,Valid,0,,60,80,N/A,Yes,0,No,",
	"V2,Drunk Driving,5000,Mumbai,02-01-2023,23:10,Bike,2010,45,Expired,0.12,Positive,50,95,No,N/A,4,Yes,Repeat",
	"V3,Red Light,800,Pune,not a date,08:05,Car,2020,29,Valid,,,40,38,,No,1,No,na",
	"V4,Speeding,2600,Delhi,10-02-2023,19:45,Truck,2005,15,Valid,0.02,Negative,60,70,NA,Yes,2,No,",
	"V5,No Helmet,500,Chennai,28-02-2023,06:00,Bike,2018,61,Suspended,0,,30,25,No,N/A,6,No,Warned",
}

// ViolationsCSV returns the standard fixture as CSV text with the first n
// rows (all rows when n <= 0 or larger than the fixture).
func ViolationsCSV(n int) string {
	if n <= 0 || n > len(violationsRows) {
		n = len(violationsRows)
	}
	return strings.Join(ViolationsHeader, ",") + "\n" + strings.Join(violationsRows[:n], "\n") + "\n"
}

// CreateViolationsFrame loads the standard fixture.
func CreateViolationsFrame(tb testing.TB, allocator memory.Allocator) *dataframe.DataFrame {
	tb.Helper()
	return FrameFromCSV(tb, allocator, ViolationsCSV(0))
}

// ColumnValues returns a column rendered the way the CSV writer renders it,
// with missing cells as "".
func ColumnValues(tb testing.TB, df *dataframe.DataFrame, name string) []string {
	tb.Helper()
	col, ok := df.Column(name)
	require.True(tb, ok, "column %s should exist", name)

	arr := col.Array()
	defer arr.Release()

	values := make([]string, arr.Len())
	for i := range values {
		values[i] = series.FormatValue(arr, i)
	}
	return values
}

// AssertDataFrameEqual compares shape, column order and rendered values.
func AssertDataFrameEqual(t *testing.T, expected, actual *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, expected, "expected DataFrame should not be nil")
	require.NotNil(t, actual, "actual DataFrame should not be nil")

	assert.Equal(t, expected.Len(), actual.Len(), "DataFrame lengths should match")
	assert.Equal(t, expected.Columns(), actual.Columns(), "DataFrame columns should match")

	for _, colName := range expected.Columns() {
		if !actual.HasColumn(colName) {
			continue
		}
		assert.Equal(t, ColumnValues(t, expected, colName), ColumnValues(t, actual, colName),
			"column %s data should match", colName)
		expectedCol, _ := expected.Column(colName)
		actualCol, _ := actual.Column(colName)
		assert.Equal(t, expectedCol.DataType().ID(), actualCol.DataType().ID(),
			"column %s type should match", colName)
	}
}

// AssertDataFrameHasColumns verifies that a DataFrame has every expected column.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	for _, col := range expectedColumns {
		assert.True(t, df.HasColumn(col), "DataFrame should have column %s", col)
	}
}

// AssertDataFrameLacksColumns verifies that none of the columns exist.
func AssertDataFrameLacksColumns(t *testing.T, df *dataframe.DataFrame, columns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	for _, col := range columns {
		assert.False(t, df.HasColumn(col), "DataFrame should not have column %s", col)
	}
}

// AssertDataFrameNotEmpty verifies that a DataFrame is not empty.
func AssertDataFrameNotEmpty(t *testing.T, df *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Positive(t, df.Len(), "DataFrame should not be empty")
	assert.Positive(t, df.Width(), "DataFrame should have columns")
}
