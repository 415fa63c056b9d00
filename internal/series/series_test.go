package series

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	mem := memory.NewGoAllocator()

	tests := []struct {
		name           string
		columnName     string
		data           interface{}
		expectedLen    int
		expectedValues interface{}
	}{
		{
			name:           "string series",
			columnName:     "Violation_Type",
			data:           []string{"Speeding", "Drunk Driving", "No Helmet"},
			expectedLen:    3,
			expectedValues: []string{"Speeding", "Drunk Driving", "No Helmet"},
		},
		{
			name:           "int64 series",
			columnName:     "Year",
			data:           []int64{2021, 2022, 2023},
			expectedLen:    3,
			expectedValues: []int64{2021, 2022, 2023},
		},
		{
			name:           "float64 series",
			columnName:     "Fine_Amount",
			data:           []float64{500, 1250.5, 4000},
			expectedLen:    3,
			expectedValues: []float64{500, 1250.5, 4000},
		},
		{
			name:           "bool series",
			columnName:     "Speed_Violation",
			data:           []bool{true, false, true},
			expectedLen:    3,
			expectedValues: []bool{true, false, true},
		},
		{
			name:           "empty string series",
			columnName:     "empty",
			data:           []string{},
			expectedLen:    0,
			expectedValues: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			switch data := tt.data.(type) {
			case []string:
				s := New(tt.columnName, data, mem)
				defer s.Release()
				assert.Equal(t, tt.columnName, s.Name())
				assert.Equal(t, tt.expectedLen, s.Len())
				assert.Equal(t, tt.expectedValues, s.Values())
			case []int64:
				s := New(tt.columnName, data, mem)
				defer s.Release()
				assert.Equal(t, tt.expectedLen, s.Len())
				assert.Equal(t, tt.expectedValues, s.Values())
			case []float64:
				s := New(tt.columnName, data, mem)
				defer s.Release()
				assert.Equal(t, tt.expectedLen, s.Len())
				assert.Equal(t, tt.expectedValues, s.Values())
			case []bool:
				s := New(tt.columnName, data, mem)
				defer s.Release()
				assert.Equal(t, tt.expectedLen, s.Len())
				assert.Equal(t, tt.expectedValues, s.Values())
			}
		})
	}
}

func TestNewWithValidity(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("marks missing rows", func(t *testing.T) {
		s, err := NewWithValidity("Driver_Age", []float64{25, 0, 41}, []bool{true, false, true}, mem)
		require.NoError(t, err)
		defer s.Release()

		assert.Equal(t, 1, s.NullCount())
		assert.False(t, s.IsNull(0))
		assert.True(t, s.IsNull(1))
		assert.Equal(t, []bool{true, false, true}, s.Validity())
		assert.Equal(t, "", s.GetAsString(1))
		assert.Equal(t, "41", s.GetAsString(2))
	})

	t.Run("rejects mismatched validity", func(t *testing.T) {
		_, err := NewWithValidity("Driver_Age", []float64{25, 30}, []bool{true}, mem)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validity length 1")
	})
}

func TestSeriesValue(t *testing.T) {
	mem := memory.NewGoAllocator()

	data := []string{"first", "second", "third"}
	series := New("test", data, mem)
	defer series.Release()

	assert.Equal(t, "first", series.Value(0))
	assert.Equal(t, "second", series.Value(1))
	assert.Equal(t, "third", series.Value(2))

	// Out of range returns the zero value
	assert.Equal(t, "", series.Value(-1))
	assert.Equal(t, "", series.Value(3))
}

func TestTimeSeries(t *testing.T) {
	mem := memory.NewGoAllocator()

	location, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	times := []time.Time{
		time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 16, 10, 30, 0, 0, location),
	}
	s := New("Date", times, mem)
	defer s.Release()

	values := s.Values()
	assert.Equal(t, times[0], values[0])
	// Stored as UTC
	assert.Equal(t, times[1].UTC(), values[1])
	assert.Equal(t, "2023-03-15", s.GetAsString(0))
	assert.Equal(t, "timestamp[ns, tz=UTC]", s.DataType().String())
}

func TestFormatValue(t *testing.T) {
	mem := memory.NewGoAllocator()

	floats := New("Speed_Excess_Percentage", []float64{20, 33.25, 0.5}, mem)
	defer floats.Release()
	assert.Equal(t, "20", floats.GetAsString(0))
	assert.Equal(t, "33.25", floats.GetAsString(1))
	assert.Equal(t, "0.5", floats.GetAsString(2))

	flags := New("Is_Repeat_Offender", []bool{true, false}, mem)
	defer flags.Release()
	assert.Equal(t, "True", flags.GetAsString(0))
	assert.Equal(t, "False", flags.GetAsString(1))
}

func TestSeriesString(t *testing.T) {
	mem := memory.NewGoAllocator()

	series := New("test_column", []string{"a", "b", "c"}, mem)
	defer series.Release()

	str := series.String()
	assert.Contains(t, str, "Series[string]")
	assert.Contains(t, str, "test_column")
	assert.Contains(t, str, "len=3")
}

func TestUnsupportedType(t *testing.T) {
	mem := memory.NewGoAllocator()

	assert.Panics(t, func() {
		New("test", []complex64{1 + 2i, 3 + 4i}, mem)
	})

	_, err := NewSafe("test", []int32{1, 2}, mem)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type: []int32")
}

func TestFromArray(t *testing.T) {
	mem := memory.NewGoAllocator()

	original := New("Comments", []string{"a", "b"}, mem)
	arr := original.Array()
	defer arr.Release()
	original.Release()

	wrapped := FromArray[string]("Comments", arr)
	defer wrapped.Release()
	assert.Equal(t, []string{"a", "b"}, wrapped.Values())
}
