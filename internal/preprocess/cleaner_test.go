package preprocess_test

import (
	"testing"

	"github.com/paveg/trafficprep/internal/preprocess"
	"github.com/paveg/trafficprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	t.Run("replaces sentinels table-wide", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator, "Location,Vehicle_Type\nN/A,Car\nDelhi,na\nn/a,NA\nN/a,NAN\n")
		defer df.Release()

		out, err := preprocess.Clean(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"", "Delhi", "", ""}, testutil.ColumnValues(t, out, "Location"))
		assert.Equal(t, []string{"Car", "", "", "NAN"}, testutil.ColumnValues(t, out, "Vehicle_Type"))
	})

	t.Run("fills categorical defaults", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator,
			"Helmet_Worn,Seatbelt_Worn,Comments\nYes,,\nNA,No,ok\n")
		defer df.Release()

		out, err := preprocess.Clean(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"Yes", "Not Applicable"}, testutil.ColumnValues(t, out, "Helmet_Worn"))
		assert.Equal(t, []string{"Not Applicable", "No"}, testutil.ColumnValues(t, out, "Seatbelt_Worn"))
		assert.Equal(t, []string{"No Comments", "ok"}, testutil.ColumnValues(t, out, "Comments"))
	})

	t.Run("breathalyzer not conducted when alcohol is zero or missing", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator,
			"Breathalyzer_Result,Alcohol_Level\n,\n,0\n,0.05\nPositive,0\n,N/A\n")
		defer df.Release()

		out, err := preprocess.Clean(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t,
			[]string{"Not Conducted", "Not Conducted", "", "Positive", "Not Conducted"},
			testutil.ColumnValues(t, out, "Breathalyzer_Result"))
	})

	t.Run("breathalyzer untouched without alcohol column", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator, "Breathalyzer_Result,Date\n,15-03-2023\n")
		defer df.Release()

		out, err := preprocess.Clean(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{""}, testutil.ColumnValues(t, out, "Breathalyzer_Result"))
	})

	t.Run("absent columns are not synthesized", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator, "Location\nDelhi\n")
		defer df.Release()

		out, err := preprocess.Clean(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"Location"}, out.Columns())
	})

	t.Run("idempotent", func(t *testing.T) {
		df := testutil.CreateViolationsFrame(t, mem.Allocator)
		defer df.Release()

		once, err := preprocess.Clean(df, mem.Allocator)
		require.NoError(t, err)
		defer once.Release()

		twice, err := preprocess.Clean(once, mem.Allocator)
		require.NoError(t, err)
		defer twice.Release()

		testutil.AssertDataFrameEqual(t, once, twice)
	})

	t.Run("does not modify its input", func(t *testing.T) {
		df := testutil.FrameFromCSV(t, mem.Allocator, "Comments\n\"\"\n")
		defer df.Release()

		out, err := preprocess.Clean(df, mem.Allocator)
		require.NoError(t, err)
		defer out.Release()

		col, _ := df.Column("Comments")
		assert.Equal(t, 1, col.NullCount())
	})
}
