package preprocess

import (
	"slices"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/series"
)

// Column names the cleaner and normalizer know about.
const (
	ColDate                    = "Date"
	ColTime                    = "Time"
	ColHour                    = "Hour"
	ColHelmetWorn              = "Helmet_Worn"
	ColSeatbeltWorn            = "Seatbelt_Worn"
	ColComments                = "Comments"
	ColBreathalyzerResult      = "Breathalyzer_Result"
	ColAlcoholLevel            = "Alcohol_Level"
	ColFineAmount              = "Fine_Amount"
	ColDriverAge               = "Driver_Age"
	ColPenaltyPoints           = "Penalty_Points"
	ColSpeedLimit              = "Speed_Limit"
	ColRecordedSpeed           = "Recorded_Speed"
	ColNumberOfPassengers      = "Number_of_Passengers"
	ColPreviousViolations      = "Previous_Violations"
	ColVehicleModelYear        = "Vehicle_Model_Year"
	ColLicenseValidity         = "License_Validity"
	ColViolationType           = "Violation_Type"
	ColCourtAppearanceRequired = "Court_Appearance_Required"
)

// MissingTokens are replaced with a missing marker in every text column.
var MissingTokens = []string{"N/A", "n/a", "N/a", "NA", "na"}

const (
	notApplicable = "Not Applicable"
	noComments    = "No Comments"
	notConducted  = "Not Conducted"
)

// Clean replaces missing-value sentinels table-wide and fills the
// categorical defaults for the columns that are present. It never adds or
// removes columns or rows. Running it on its own output changes nothing.
func Clean(df *dataframe.DataFrame, mem memory.Allocator) (*dataframe.DataFrame, error) {
	var replaced []dataframe.ISeries
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		s, err := replaceTokens(col, mem)
		if err != nil {
			releaseAll(replaced)
			return nil, err
		}
		if s != nil {
			replaced = append(replaced, s)
		}
	}
	current, err := df.WithColumns(replaced...)
	if err != nil {
		releaseAll(replaced)
		return nil, err
	}

	fills := []struct {
		column string
		value  string
	}{
		{ColHelmetWorn, notApplicable},
		{ColSeatbeltWorn, notApplicable},
		{ColComments, noComments},
	}
	var filled []dataframe.ISeries
	for _, f := range fills {
		col, ok := current.Column(f.column)
		if !ok {
			continue
		}
		s, err := fillMissing(col, f.value, nil, mem)
		if err != nil {
			releaseAll(filled)
			current.Release()
			return nil, err
		}
		filled = append(filled, s)
	}

	if breath, ok := current.Column(ColBreathalyzerResult); ok {
		if alcohol, ok := current.Column(ColAlcoholLevel); ok {
			levels, parsedOK := dataframe.Floats(alcohol)
			when := make([]bool, alcohol.Len())
			for i := range when {
				when[i] = alcohol.IsNull(i) || (parsedOK[i] && levels[i] == 0)
			}
			s, err := fillMissing(breath, notConducted, when, mem)
			if err != nil {
				releaseAll(filled)
				current.Release()
				return nil, err
			}
			filled = append(filled, s)
		}
	}

	out, err := current.WithColumns(filled...)
	current.Release()
	if err != nil {
		releaseAll(filled)
		return nil, err
	}
	return out, nil
}

// replaceTokens nulls out sentinel cells of a text column. It returns a nil
// series for non-text columns and columns without sentinels.
func replaceTokens(col dataframe.ISeries, mem memory.Allocator) (dataframe.ISeries, error) {
	arr := col.Array()
	defer arr.Release()

	text, ok := arr.(*array.String)
	if !ok {
		return nil, nil
	}

	values := make([]string, text.Len())
	valid := make([]bool, text.Len())
	changed := false
	for i := range values {
		if text.IsNull(i) {
			continue
		}
		v := text.Value(i)
		if slices.Contains(MissingTokens, v) {
			changed = true
			continue
		}
		values[i], valid[i] = v, true
	}
	if !changed {
		return nil, nil
	}
	s, err := series.NewWithValidity(col.Name(), values, valid, mem)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// fillMissing returns col as text with missing cells set to value. When
// when is non-nil only rows where when[i] is true are filled.
func fillMissing(col dataframe.ISeries, value string, when []bool, mem memory.Allocator) (dataframe.ISeries, error) {
	values, valid := dataframe.Strings(col)
	for i := range values {
		if valid[i] || (when != nil && !when[i]) {
			continue
		}
		values[i], valid[i] = value, true
	}
	return series.NewWithValidity(col.Name(), values, valid, mem)
}

func releaseAll(cols []dataframe.ISeries) {
	for _, c := range cols {
		c.Release()
	}
}
