// Package dataframe provides the in-memory table the preprocessing pipeline
// operates on: an ordered set of equal-length, Arrow-backed columns.
//
// Operations never mutate the receiver. Every operation returns a new
// DataFrame that holds its own references to the columns it shares with the
// receiver, so each frame must be released independently.
package dataframe

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	dferrors "github.com/paveg/trafficprep/internal/errors"
	"github.com/paveg/trafficprep/internal/series"
	"github.com/paveg/trafficprep/internal/validation"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries.
// The DataFrame takes ownership of the series.
func New(series ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		if _, dup := columns[name]; !dup {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.order)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	series, exists := df.columns[name]
	return series, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns
func (df *DataFrame) Select(names ...string) *DataFrame {
	kept := make([]ISeries, 0, len(names))
	for _, name := range names {
		if s, exists := df.columns[name]; exists {
			kept = append(kept, share(s))
		}
	}
	return New(kept...)
}

// Drop returns a new DataFrame without the specified columns
func (df *DataFrame) Drop(names ...string) *DataFrame {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	kept := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		if !dropSet[name] {
			kept = append(kept, share(df.columns[name]))
		}
	}
	return New(kept...)
}

// WithColumns returns a new DataFrame with the given columns added or replaced.
// A replaced column keeps its position; new columns are appended in argument
// order. The new frame takes ownership of the given series.
func (df *DataFrame) WithColumns(cols ...ISeries) (*DataFrame, error) {
	if len(cols) > 0 {
		expected := cols[0].Len()
		if len(df.order) > 0 {
			expected = df.Len()
		}
		for _, c := range cols {
			if err := validation.ValidateLength(expected, c.Len(), "WithColumns",
				fmt.Sprintf("column %s", c.Name())); err != nil {
				return nil, err
			}
		}
	}

	replacements := make(map[string]ISeries, len(cols))
	for _, c := range cols {
		replacements[c.Name()] = c
	}

	result := make([]ISeries, 0, len(df.order)+len(cols))
	for _, name := range df.order {
		if r, ok := replacements[name]; ok {
			result = append(result, r)
			delete(replacements, name)
			continue
		}
		result = append(result, share(df.columns[name]))
	}
	for _, c := range cols {
		if _, pending := replacements[c.Name()]; pending {
			result = append(result, c)
			delete(replacements, c.Name())
		}
	}

	return New(result...), nil
}

// Take returns a new DataFrame holding the rows at indices, in that order.
// The copied columns are allocated from mem, or the Go allocator when mem is
// nil.
func (df *DataFrame) Take(indices []int, mem memory.Allocator) (*DataFrame, error) {
	n := df.Len()
	for _, idx := range indices {
		if err := validation.ValidateIndex(idx, n, "Take"); err != nil {
			return nil, err
		}
	}

	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	taken := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		arr := df.columns[name].Array()
		out, err := takeArray(arr, indices, mem)
		arr.Release()
		if err != nil {
			releaseAll(taken)
			return nil, dferrors.NewValidationError("Take", name, err.Error())
		}
		s, err := wrapArray(name, out)
		if err != nil {
			releaseAll(taken)
			return nil, err
		}
		taken = append(taken, s)
	}
	return New(taken...), nil
}

// Filter returns a new DataFrame holding the rows where mask is true.
func (df *DataFrame) Filter(mask []bool, mem memory.Allocator) (*DataFrame, error) {
	if err := validation.ValidateLength(df.Len(), len(mask), "Filter", "mask"); err != nil {
		return nil, err
	}
	indices := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			indices = append(indices, i)
		}
	}
	return df.Take(indices, mem)
}

// SortStableBy returns a new DataFrame sorted ascending by column.
// Ties keep their relative order and missing values sort last.
func (df *DataFrame) SortStableBy(column string, mem memory.Allocator) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, "SortStableBy", column); err != nil {
		return nil, err
	}

	col := df.columns[column]
	arr := col.Array()
	defer arr.Release()

	less, err := lessFunc(arr)
	if err != nil {
		return nil, dferrors.NewValidationError("SortStableBy", column, err.Error())
	}

	indices := make([]int, arr.Len())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		i, j := indices[a], indices[b]
		iNull, jNull := arr.IsNull(i), arr.IsNull(j)
		switch {
		case iNull:
			return false
		case jNull:
			return true
		default:
			return less(i, j)
		}
	})

	return df.Take(indices, mem)
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}

	for _, name := range df.order {
		series := df.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s", name, series.DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, series := range df.columns {
		series.Release()
	}
}

// Strings returns a column rendered as text with its validity flags.
func Strings(s ISeries) ([]string, []bool) {
	values := make([]string, s.Len())
	valid := make([]bool, s.Len())
	for i := range values {
		if s.IsNull(i) {
			continue
		}
		values[i] = s.GetAsString(i)
		valid[i] = true
	}
	return values, valid
}

// Floats returns a numeric column as float64 with its validity flags.
// Text columns are parsed; entries that are not numbers are reported invalid.
func Floats(s ISeries) ([]float64, []bool) {
	arr := s.Array()
	defer arr.Release()

	values := make([]float64, arr.Len())
	valid := make([]bool, arr.Len())
	for i := range values {
		if arr.IsNull(i) {
			continue
		}
		switch typed := arr.(type) {
		case *array.Float64:
			values[i], valid[i] = typed.Value(i), true
		case *array.Int64:
			values[i], valid[i] = float64(typed.Value(i)), true
		case *array.String:
			v, err := strconv.ParseFloat(strings.TrimSpace(typed.Value(i)), 64)
			if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[i], valid[i] = v, true
			}
		}
	}
	return values, valid
}

// Times returns a timestamp column with its validity flags.
// Any other column type is reported as entirely invalid.
func Times(s ISeries) ([]time.Time, []bool) {
	arr := s.Array()
	defer arr.Release()

	values := make([]time.Time, arr.Len())
	valid := make([]bool, arr.Len())
	if typed, ok := arr.(*array.Timestamp); ok {
		for i := range values {
			if typed.IsValid(i) {
				values[i], valid[i] = typed.Value(i).ToTime(arrow.Nanosecond), true
			}
		}
	}
	return values, valid
}

// share returns a new handle on s that holds its own reference.
func share(s ISeries) ISeries {
	arr := s.Array()
	wrapped, err := wrapArray(s.Name(), arr)
	if err != nil {
		// Every series in a frame was built from a supported type.
		panic(err)
	}
	return wrapped
}

// wrapArray turns an Arrow array into a typed series, taking ownership of arr.
func wrapArray(name string, arr arrow.Array) (ISeries, error) {
	defer arr.Release()

	switch arr.(type) {
	case *array.String:
		return series.FromArray[string](name, arr), nil
	case *array.Int64:
		return series.FromArray[int64](name, arr), nil
	case *array.Float64:
		return series.FromArray[float64](name, arr), nil
	case *array.Boolean:
		return series.FromArray[bool](name, arr), nil
	case *array.Timestamp:
		return series.FromArray[time.Time](name, arr), nil
	default:
		return nil, dferrors.NewUnsupportedTypeError("wrapArray", arr.DataType().String())
	}
}

func takeArray(arr arrow.Array, indices []int, mem memory.Allocator) (arrow.Array, error) {
	switch typed := arr.(type) {
	case *array.String:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(idx))
			}
		}
		return b.NewArray(), nil
	case *array.Int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(idx))
			}
		}
		return b.NewArray(), nil
	case *array.Float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(idx))
			}
		}
		return b.NewArray(), nil
	case *array.Boolean:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(idx))
			}
		}
		return b.NewArray(), nil
	case *array.Timestamp:
		b := array.NewTimestampBuilder(mem, series.TimestampType)
		defer b.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(idx))
			}
		}
		return b.NewArray(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", arr.DataType())
	}
}

func lessFunc(arr arrow.Array) (func(i, j int) bool, error) {
	switch typed := arr.(type) {
	case *array.Timestamp:
		return func(i, j int) bool { return typed.Value(i) < typed.Value(j) }, nil
	case *array.Int64:
		return func(i, j int) bool { return typed.Value(i) < typed.Value(j) }, nil
	case *array.Float64:
		return func(i, j int) bool { return typed.Value(i) < typed.Value(j) }, nil
	case *array.String:
		return func(i, j int) bool { return typed.Value(i) < typed.Value(j) }, nil
	default:
		return nil, fmt.Errorf("cannot sort by type %s", arr.DataType())
	}
}

func releaseAll(cols []ISeries) {
	for _, c := range cols {
		c.Release()
	}
}
