package preprocess_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/trafficprep/internal/preprocess"
	"github.com/paveg/trafficprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTypes(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	t.Run("dates use the first matching format", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator, "Date\n15-03-2023\n2023-03-16\n\"\"\n")
		defer df.Release()

		out, issues, err := preprocess.NormalizeTypes(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		col, _ := out.Column("Date")
		assert.Equal(t, arrow.TIMESTAMP, col.DataType().ID())
		assert.Equal(t, []string{"2023-03-15", "", ""}, testutil.ColumnValues(t, out, "Date"))
		assert.Equal(t, 1, issues["Date"][preprocess.ReasonFormatMismatch])
		assert.Equal(t, 1, issues.Total("Date"))
	})

	t.Run("time becomes hour", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator, "Time,Location\n14:30,a\nlate,b\n,c\n")
		defer df.Release()

		out, issues, err := preprocess.NormalizeTypes(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"Time", "Location", "Hour"}, out.Columns())
		assert.Equal(t, []string{"14", "", ""}, testutil.ColumnValues(t, out, "Hour"))
		assert.Equal(t, 1, issues["Hour"][preprocess.ReasonUnrecognized])
	})

	t.Run("hour entirely missing when nothing parses", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator, "Time\nx\ny\n")
		defer df.Release()

		out, _, err := preprocess.NormalizeTypes(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		hour, ok := out.Column("Hour")
		require.True(t, ok)
		assert.Equal(t, 2, hour.NullCount())
	})

	t.Run("numerics coerce with malformed cells missing", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator,
			"Fine_Amount,Driver_Age,Location\n500,34,a\nabc, 41 ,b\nNaN,,c\n")
		defer df.Release()

		out, issues, err := preprocess.NormalizeTypes(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		fine, _ := out.Column("Fine_Amount")
		assert.Equal(t, arrow.FLOAT64, fine.DataType().ID())
		assert.Equal(t, []string{"500", "", ""}, testutil.ColumnValues(t, out, "Fine_Amount"))
		assert.Equal(t, []string{"34", "41", ""}, testutil.ColumnValues(t, out, "Driver_Age"))
		assert.Equal(t, 2, issues.Total("Fine_Amount"))
		assert.Equal(t, 0, issues.Total("Driver_Age"))

		loc, _ := out.Column("Location")
		assert.Equal(t, arrow.STRING, loc.DataType().ID())
		assert.Equal(t, []string{"Fine_Amount"}, issues.Columns())
	})

	t.Run("absent columns are skipped", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator, "Location\nDelhi\n")
		defer df.Release()

		out, issues, err := preprocess.NormalizeTypes(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"Location"}, out.Columns())
		assert.Empty(t, issues.Columns())
	})
}
