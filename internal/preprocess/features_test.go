package preprocess_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/preprocess"
	"github.com/paveg/trafficprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// normalized runs the stages that precede feature derivation.
func normalized(t *testing.T, mem memory.Allocator, csvText string) *dataframe.DataFrame {
	t.Helper()
	raw := testutil.FrameFromCSV(t, mem, csvText)
	defer raw.Release()

	cleaned, err := preprocess.Clean(raw, mem)
	require.NoError(t, err)
	defer cleaned.Release()

	out, _, err := preprocess.NormalizeTypes(cleaned, mem)
	require.NoError(t, err)
	return out
}

func derive(t *testing.T, mem memory.Allocator, csvText string) (*dataframe.DataFrame, []string) {
	t.Helper()
	df := normalized(t, mem, csvText)
	defer df.Release()

	out, applied, err := preprocess.DeriveFeatures(df, preprocess.Features(),
		preprocess.Env{Mem: mem, FallbackYear: preprocess.DefaultFallbackYear})
	require.NoError(t, err)
	return out, applied
}

func floatColumn(t *testing.T, df *dataframe.DataFrame, name string) []float64 {
	t.Helper()
	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)
	values, _ := dataframe.Floats(col)
	return values
}

func TestFeatureTable(t *testing.T) {
	features := preprocess.Features()

	t.Run("every feature declares inputs and outputs", func(t *testing.T) {
		for _, f := range features {
			assert.NotEmpty(t, f.Requires, f.Name)
			assert.NotEmpty(t, f.Produces, f.Name)
			assert.NotNil(t, f.Derive, f.Name)
		}
	})

	t.Run("risk depends on speed output", func(t *testing.T) {
		pos := map[string]int{}
		for i, f := range features {
			pos[f.Name] = i
		}
		assert.Less(t, pos["speed"], pos["risk"])
		assert.Less(t, pos["temporal"], pos["time_of_day"])
	})

	t.Run("applicability follows column presence", func(t *testing.T) {
		mem := memory.NewGoAllocator()
		df := normalized(t, mem, "Driver_Age,Helmet_Worn\n30,Yes\n")
		defer df.Release()

		applicable := map[string]bool{}
		for _, f := range features {
			applicable[f.Name] = f.Applicable(df)
		}
		assert.True(t, applicable["age_group"])
		assert.True(t, applicable["helmet_compliance"])
		assert.False(t, applicable["temporal"])
		assert.False(t, applicable["speed"])
		assert.False(t, applicable["risk"])
	})

	t.Run("missing inputs name absent columns", func(t *testing.T) {
		mem := memory.NewGoAllocator()
		df := normalized(t, mem, "Recorded_Speed,Driver_Age\n80,30\n")
		defer df.Release()

		byName := map[string]preprocess.Feature{}
		for _, f := range features {
			byName[f.Name] = f
		}
		assert.Equal(t, []string{"Speed_Limit"}, byName["speed"].MissingInputs(df))
		assert.Empty(t, byName["age_group"].MissingInputs(df))
	})
}

func TestDeriveTemporal(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("calendar parts", func(t *testing.T) {
		out, applied := derive(t, mem, "Date,Time\n15-03-2023,14:30\n02-01-2023,23:10\n")
		defer out.Release()

		assert.Contains(t, applied, "temporal")
		assert.Equal(t, []string{"Wednesday", "Monday"}, testutil.ColumnValues(t, out, "Day_of_Week"))
		assert.Equal(t, []string{"March", "January"}, testutil.ColumnValues(t, out, "Month"))
		assert.Equal(t, []string{"2023", "2023"}, testutil.ColumnValues(t, out, "Year"))
		assert.Equal(t, []string{"1", "1"}, testutil.ColumnValues(t, out, "Quarter"))
		assert.Equal(t, []string{"15", "2"}, testutil.ColumnValues(t, out, "Day_of_Month"))
		assert.Equal(t, []string{"Afternoon (12-17)", "Night (21-23)"}, testutil.ColumnValues(t, out, "Time_of_Day"))
	})

	t.Run("no temporal features when every date is missing", func(t *testing.T) {
		out, applied := derive(t, mem, "Date,Time\nbad,10:00\n")
		defer out.Release()

		assert.NotContains(t, applied, "temporal")
		testutil.AssertDataFrameLacksColumns(t, out, []string{"Day_of_Week", "Time_of_Day"})
	})

	t.Run("no time of day without hours", func(t *testing.T) {
		out, _ := derive(t, mem, "Date,Time\n15-03-2023,late\n")
		defer out.Release()

		testutil.AssertDataFrameHasColumns(t, out, []string{"Day_of_Week", "Hour"})
		testutil.AssertDataFrameLacksColumns(t, out, []string{"Time_of_Day"})
	})
}

func TestDeriveSpeed(t *testing.T) {
	mem := memory.NewGoAllocator()

	out, _ := derive(t, mem, "Recorded_Speed,Speed_Limit\n80,60\n50,60\n,60\n30,0\n")
	defer out.Release()

	assert.Equal(t, []string{"True", "False", "False", "True"}, testutil.ColumnValues(t, out, "Speed_Violation"))
	assert.Equal(t, []float64{20, 0, 0, 30}, floatColumn(t, out, "Speed_Excess"))

	pct := floatColumn(t, out, "Speed_Excess_Percentage")
	assert.InDelta(t, 33.33, pct[0], 0.01)
	assert.Zero(t, pct[1])
	assert.Zero(t, pct[3])
}

func TestDeriveCategories(t *testing.T) {
	mem := memory.NewGoAllocator()

	out, _ := derive(t, mem,
		"Driver_Age,Fine_Amount,Alcohol_Level,Previous_Violations\n25,1000,0,0\n40,4500,0.1,3\n,,,\n")
	defer out.Release()

	assert.Equal(t, []string{"18-25", "36-50", ""}, testutil.ColumnValues(t, out, "Age_Group"))
	assert.Equal(t, []string{"Low (0-1K)", "Very High (4K+)", ""}, testutil.ColumnValues(t, out, "Fine_Category"))
	assert.Equal(t, []string{"None (0)", "Medium (0.08-0.15)", ""}, testutil.ColumnValues(t, out, "Alcohol_Category"))
	assert.Equal(t, []string{"False", "True", "False"}, testutil.ColumnValues(t, out, "Is_Repeat_Offender"))
	assert.Equal(t, []string{"First Time", "Medium (3-5)", ""}, testutil.ColumnValues(t, out, "Repeat_Offender_Category"))
}

func TestDeriveVehicleAge(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("base year is the latest date", func(t *testing.T) {
		out, _ := derive(t, mem, "Date,Vehicle_Model_Year\n15-03-2021,2020\n01-01-2024,2004\n01-06-2022,\n")
		defer out.Release()

		assert.Equal(t, []string{"4", "20", ""}, testutil.ColumnValues(t, out, "Vehicle_Age"))
		assert.Equal(t, []string{"New (0-5)", "Very Old (15+)", ""}, testutil.ColumnValues(t, out, "Vehicle_Age_Group"))
	})

	t.Run("fallback year without valid dates", func(t *testing.T) {
		out, _ := derive(t, mem, "Date,Vehicle_Model_Year\nbad,2013\n")
		defer out.Release()

		assert.Equal(t, []string{"10"}, testutil.ColumnValues(t, out, "Vehicle_Age"))
		assert.Equal(t, []string{"Moderate (5-10)"}, testutil.ColumnValues(t, out, "Vehicle_Age_Group"))
	})

	t.Run("configured fallback year", func(t *testing.T) {
		df := normalized(t, mem, "Date,Vehicle_Model_Year\n,2013\n")
		defer df.Release()

		out, _, err := preprocess.DeriveFeatures(df, preprocess.Features(), preprocess.Env{Mem: mem, FallbackYear: 2030})
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"17"}, testutil.ColumnValues(t, out, "Vehicle_Age"))
	})

	t.Run("requires date column", func(t *testing.T) {
		out, _ := derive(t, mem, "Vehicle_Model_Year\n2013\n")
		defer out.Release()

		testutil.AssertDataFrameLacksColumns(t, out, []string{"Vehicle_Age", "Vehicle_Age_Group"})
	})
}

const riskHeader = "Previous_Violations,License_Validity,Violation_Type,Recorded_Speed,Speed_Limit,Court_Appearance_Required,Alcohol_Level\n"

func TestDeriveRisk(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("weighted indicators", func(t *testing.T) {
		out, _ := derive(t, mem, riskHeader+
			"4,Valid,Drunk Driving,100,60,Yes,0.10\n"+
			"0,Valid,Speeding,70,60,No,0\n"+
			"0,,Speeding,70,60,No,0\n"+
			"5,Expired,Speeding,95,60,No,0.09\n")
		defer out.Release()

		assert.Equal(t, []string{"13", "0", "2", "10"}, testutil.ColumnValues(t, out, "Risk_Score"))
		assert.Equal(t,
			[]string{"Very High Risk", "Low Risk", "Low Risk", "Very High Risk"},
			testutil.ColumnValues(t, out, "Risk_Category"))
	})

	inputs := []string{
		"Previous_Violations", "License_Validity", "Violation_Type",
		"Recorded_Speed", "Court_Appearance_Required", "Alcohol_Level",
	}
	for _, missing := range inputs {
		t.Run("absent without "+missing, func(t *testing.T) {
			df := normalized(t, mem, riskHeader+"4,Valid,Drunk Driving,100,60,Yes,0.10\n")
			defer df.Release()
			trimmed := df.Drop(missing)
			defer trimmed.Release()

			out, applied, err := preprocess.DeriveFeatures(trimmed, preprocess.Features(), preprocess.Env{Mem: mem})
			require.NoError(t, err)
			defer out.Release()

			assert.NotContains(t, applied, "risk")
			testutil.AssertDataFrameLacksColumns(t, out, []string{"Risk_Score", "Risk_Category"})
		})
	}
}

func TestDeriveCompliance(t *testing.T) {
	mem := memory.NewGoAllocator()

	out, _ := derive(t, mem, "Helmet_Worn,Seatbelt_Worn\nYes,No\nNo,\nN/A,Yes\n")
	defer out.Release()

	assert.Equal(t, []string{"Compliant", "Non-Compliant", "N/A"}, testutil.ColumnValues(t, out, "Helmet_Compliance"))
	assert.Equal(t, []string{"Non-Compliant", "N/A", "Compliant"}, testutil.ColumnValues(t, out, "Seatbelt_Compliance"))
}

func TestDeriveFeaturesCustomTable(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := normalized(t, mem, "Driver_Age\n30\n")
	defer df.Release()

	table := []preprocess.Feature{{
		Name:     "age_group",
		Requires: []string{"Driver_Age"},
		Produces: []string{"Age_Group"},
		Derive:   preprocess.Features()[3].Derive,
	}}
	out, applied, err := preprocess.DeriveFeatures(df, table, preprocess.Env{Mem: mem})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"age_group"}, applied)
	assert.Equal(t, []string{"Driver_Age", "Age_Group"}, out.Columns())
}
