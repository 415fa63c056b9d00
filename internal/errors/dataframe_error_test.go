package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/trafficprep/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestDataFrameError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.DataFrameError
		expected string
	}{
		{
			name: "Error with column",
			err: &errors.DataFrameError{
				Op:      "SortStableBy",
				Column:  "Date",
				Message: "column does not exist",
			},
			expected: "SortStableBy operation failed on column 'Date': column does not exist",
		},
		{
			name: "Error without column",
			err: &errors.DataFrameError{
				Op:      "WithColumns",
				Message: "mismatched lengths",
			},
			expected: "WithColumns operation failed: mismatched lengths",
		},
		{
			name:     "Error with cause only",
			err:      &errors.DataFrameError{Op: "Preprocess", Cause: errors.ErrEmptyDataFrame},
			expected: "Preprocess operation failed: operation not supported on empty DataFrame",
		},
		{
			name:     "Error with cause",
			err:      errors.NewProcessingError("Write", stderrors.New("disk full")),
			expected: "Write operation failed: processing failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDataFrameError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := errors.NewProcessingError("Derive", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, fmt.Errorf("run: %w", err), cause)
}

func TestDataFrameError_Is(t *testing.T) {
	err1 := errors.NewColumnNotFoundError("SortStableBy", "Date")
	err2 := errors.NewColumnNotFoundError("SortStableBy", "Date")
	err3 := errors.NewColumnNotFoundError("Take", "Date")

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(stderrors.New("different error")))
}

func TestSentinelCauses(t *testing.T) {
	empty := &errors.DataFrameError{Op: "Preprocess", Cause: errors.ErrEmptyDataFrame}
	assert.ErrorIs(t, empty, errors.ErrEmptyDataFrame)
	assert.NotErrorIs(t, empty, errors.ErrMismatchedLength)
	assert.ErrorIs(t, fmt.Errorf("run: %w", empty), errors.ErrEmptyDataFrame)
}

func TestInputNotFoundError(t *testing.T) {
	err := errors.NewInputNotFoundError("Indian_Traffic_Violations.csv")

	assert.Equal(t, "Indian_Traffic_Violations.csv not found", err.Error())
	assert.ErrorIs(t, err, errors.ErrInputNotFound)
	assert.ErrorIs(t, fmt.Errorf("load: %w", err), errors.ErrInputNotFound)
	assert.NotErrorIs(t, errors.NewProcessingError("Read", stderrors.New("x")), errors.ErrInputNotFound)
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, "NewSeries operation failed: unsupported type: []int32",
		errors.NewUnsupportedTypeError("NewSeries", "[]int32").Error())
	assert.Equal(t, "Read operation failed: no header row",
		errors.NewInvalidInputError("Read", "no header row").Error())
	assert.Equal(t, "validation operation failed on column 'Hour': bad",
		errors.NewValidationError("validation", "Hour", "bad").Error())
}
