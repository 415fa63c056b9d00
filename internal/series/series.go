// Package series provides data structures for column operations
package series

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	dferrors "github.com/paveg/trafficprep/internal/errors"
)

// DateLayout is the layout used when a timestamp column is rendered as text.
const DateLayout = "2006-01-02"

// TimestampType is the Arrow type backing time.Time series (UTC, nanoseconds).
var TimestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// Series represents a typed data column with Apache Arrow backend.
// Missing values are tracked in the Arrow validity bitmap.
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values with every entry valid.
// It panics on an unsupported element type; use NewSafe to get an error instead.
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	s, err := NewSafe(name, values, mem)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// NewSafe creates a new Series and reports unsupported element types as an error.
func NewSafe[T any](name string, values []T, mem memory.Allocator) (*Series[T], error) {
	return NewWithValidity(name, values, nil, mem)
}

// NewWithValidity creates a Series where valid[i] == false marks row i as missing.
// A nil valid slice marks every row valid.
func NewWithValidity[T any](name string, values []T, valid []bool, mem memory.Allocator) (*Series[T], error) {
	if valid != nil && len(valid) != len(values) {
		return nil, dferrors.NewValidationError("NewSeries", name,
			fmt.Sprintf("validity length %d does not match values length %d", len(valid), len(values)))
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	isValid := func(i int) bool { return valid == nil || valid[i] }

	var arr arrow.Array

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.Reserve(len(v))
		for i, val := range v {
			if isValid(i) {
				builder.Append(val)
			} else {
				builder.AppendNull()
			}
		}
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.Reserve(len(v))
		for i, val := range v {
			if isValid(i) {
				builder.Append(val)
			} else {
				builder.AppendNull()
			}
		}
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.Reserve(len(v))
		for i, val := range v {
			if isValid(i) {
				builder.Append(val)
			} else {
				builder.AppendNull()
			}
		}
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.Reserve(len(v))
		for i, val := range v {
			if isValid(i) {
				builder.Append(val)
			} else {
				builder.AppendNull()
			}
		}
		arr = builder.NewArray()
	case []time.Time:
		builder := array.NewTimestampBuilder(mem, TimestampType)
		defer builder.Release()
		builder.Reserve(len(v))
		for i, val := range v {
			if isValid(i) {
				builder.Append(arrow.Timestamp(val.UTC().UnixNano()))
			} else {
				builder.AppendNull()
			}
		}
		arr = builder.NewArray()
	default:
		return nil, dferrors.NewUnsupportedTypeError("NewSeries", fmt.Sprintf("%T", values))
	}

	return &Series[T]{
		name:  name,
		array: arr,
	}, nil
}

// FromArray wraps an existing Arrow array. The series takes its own reference.
func FromArray[T any](name string, arr arrow.Array) *Series[T] {
	arr.Retain()
	return &Series[T]{name: name, array: arr}
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// NullCount returns the number of missing entries.
func (s *Series[T]) NullCount() int {
	return s.array.NullN()
}

// Values returns the data as a Go slice. Missing entries hold the zero value.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())
	for i := range result {
		result[i] = s.Value(i)
	}
	return result
}

// Validity returns one flag per row, false where the row is missing.
func (s *Series[T]) Validity() []bool {
	valid := make([]bool, s.array.Len())
	for i := range valid {
		valid[i] = s.array.IsValid(i)
	}
	return valid
}

// Value returns the value at the given index, or the zero value when the
// index is out of range or the entry is missing.
func (s *Series[T]) Value(index int) T {
	var result T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return result
	}

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	case *array.Timestamp:
		if v, ok := any(&result).(*time.Time); ok {
			*v = arr.Value(index).ToTime(arrow.Nanosecond)
		}
	}

	return result
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// GetAsString renders the value at index as text. Missing entries render as "".
func (s *Series[T]) GetAsString(index int) string {
	return FormatValue(s.array, index)
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)",
		reflect.TypeOf(new(T)).Elem().Name(),
		s.name,
		s.Len())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// FormatValue renders one entry of an Arrow array as text.
// Floats use the shortest representation without an exponent, booleans
// render as True/False and timestamps as YYYY-MM-DD.
func FormatValue(arr arrow.Array, index int) string {
	if index < 0 || index >= arr.Len() || arr.IsNull(index) {
		return ""
	}

	switch typedArr := arr.(type) {
	case *array.String:
		return typedArr.Value(index)
	case *array.Int64:
		return strconv.FormatInt(typedArr.Value(index), 10)
	case *array.Float64:
		return strconv.FormatFloat(typedArr.Value(index), 'f', -1, 64)
	case *array.Boolean:
		if typedArr.Value(index) {
			return "True"
		}
		return "False"
	case *array.Timestamp:
		return typedArr.Value(index).ToTime(arrow.Nanosecond).Format(DateLayout)
	default:
		return ""
	}
}
