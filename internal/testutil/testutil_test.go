package testutil_test

import (
	"testing"

	"github.com/paveg/trafficprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMemoryTest(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	require.NotNil(t, mem.Allocator)

	df := testutil.CreateViolationsFrame(t, mem.Allocator)
	defer df.Release()

	assert.NotNil(t, df)
}

func TestCreateViolationsFrame(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.CreateViolationsFrame(t, mem.Allocator)
	defer df.Release()

	assert.Equal(t, 5, df.Len())
	assert.Equal(t, testutil.ViolationsHeader, df.Columns())
	testutil.AssertDataFrameNotEmpty(t, df)
}

func TestViolationsCSV(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.FrameFromCSV(t, mem.Allocator, testutil.ViolationsCSV(2))
	defer df.Release()

	assert.Equal(t, 2, df.Len())
	assert.Equal(t, []string{"V1", "V2"}, testutil.ColumnValues(t, df, "Violation_ID"))
}

func TestColumnValues(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.FrameFromCSV(t, mem.Allocator, "a,b\n1,\n,x\n")
	defer df.Release()

	assert.Equal(t, []string{"1", ""}, testutil.ColumnValues(t, df, "a"))
	assert.Equal(t, []string{"", "x"}, testutil.ColumnValues(t, df, "b"))
}

func TestAssertDataFrameEqual(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	a := testutil.FrameFromCSV(t, mem.Allocator, "a,b\n1,2\n")
	defer a.Release()
	b := testutil.FrameFromCSV(t, mem.Allocator, "a,b\n1,2\n")
	defer b.Release()

	testutil.AssertDataFrameEqual(t, a, b)
	testutil.AssertDataFrameHasColumns(t, a, []string{"a", "b"})
	testutil.AssertDataFrameLacksColumns(t, a, []string{"c"})
}
