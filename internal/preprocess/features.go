package preprocess

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/series"
	"github.com/paveg/trafficprep/internal/validation"
)

// DefaultFallbackYear is the Vehicle_Age base year used when no row has a
// valid Date.
const DefaultFallbackYear = 2023

// Env carries the settings a feature may read while deriving.
type Env struct {
	Mem          memory.Allocator
	FallbackYear int
}

// DeriveFunc computes a feature's columns. It only reads df.
type DeriveFunc func(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error)

// Feature is one entry of the feature table: the columns it needs, the
// columns it adds, and how to compute them.
type Feature struct {
	Name     string
	Requires []string
	Produces []string
	// Ready is an extra gate evaluated after the required columns are known
	// to exist. Nil means always ready.
	Ready  func(df *dataframe.DataFrame) bool
	Derive DeriveFunc
}

// Applicable reports whether every required column exists and Ready holds.
func (f Feature) Applicable(df *dataframe.DataFrame) bool {
	if len(f.MissingInputs(df)) > 0 {
		return false
	}
	return f.Ready == nil || f.Ready(df)
}

// MissingInputs lists the required columns df lacks, in declaration order.
func (f Feature) MissingInputs(df *dataframe.DataFrame) []string {
	return validation.NewColumnValidator(df, f.Name, f.Requires...).Missing()
}

// Features returns the feature table in evaluation order. Entries that read
// another feature's output come after it.
func Features() []Feature {
	return []Feature{
		{
			Name:     "temporal",
			Requires: []string{ColDate},
			Produces: []string{"Day_of_Week", "Month", "Year", "Quarter", "Day_of_Month"},
			Ready:    anyPresent(ColDate),
			Derive:   deriveTemporal,
		},
		{
			Name:     "time_of_day",
			Requires: []string{ColDate, ColHour},
			Produces: []string{"Time_of_Day"},
			Ready:    allOf(anyPresent(ColDate), anyPresent(ColHour)),
			Derive:   deriveTimeOfDay,
		},
		{
			Name:     "speed",
			Requires: []string{ColRecordedSpeed, ColSpeedLimit},
			Produces: []string{"Speed_Violation", "Speed_Excess", "Speed_Excess_Percentage"},
			Derive:   deriveSpeed,
		},
		{
			Name:     "age_group",
			Requires: []string{ColDriverAge},
			Produces: []string{"Age_Group"},
			Derive:   binned(ColDriverAge, "Age_Group", AgeBins),
		},
		{
			Name:     "fine_category",
			Requires: []string{ColFineAmount},
			Produces: []string{"Fine_Category"},
			Derive:   binned(ColFineAmount, "Fine_Category", FineBins),
		},
		{
			Name:     "alcohol_category",
			Requires: []string{ColAlcoholLevel},
			Produces: []string{"Alcohol_Category"},
			Derive:   binned(ColAlcoholLevel, "Alcohol_Category", AlcoholBins),
		},
		{
			Name:     "repeat_offender",
			Requires: []string{ColPreviousViolations},
			Produces: []string{"Is_Repeat_Offender", "Repeat_Offender_Category"},
			Derive:   deriveRepeatOffender,
		},
		{
			Name:     "vehicle_age",
			Requires: []string{ColVehicleModelYear, ColDate},
			Produces: []string{"Vehicle_Age", "Vehicle_Age_Group"},
			Derive:   deriveVehicleAge,
		},
		{
			Name: "risk",
			Requires: []string{
				ColPreviousViolations, ColLicenseValidity, ColViolationType,
				"Speed_Excess", ColCourtAppearanceRequired, ColAlcoholLevel,
			},
			Produces: []string{"Risk_Score", "Risk_Category"},
			Derive:   deriveRisk,
		},
		{
			Name:     "helmet_compliance",
			Requires: []string{ColHelmetWorn},
			Produces: []string{"Helmet_Compliance"},
			Derive:   compliance(ColHelmetWorn, "Helmet_Compliance"),
		},
		{
			Name:     "seatbelt_compliance",
			Requires: []string{ColSeatbeltWorn},
			Produces: []string{"Seatbelt_Compliance"},
			Derive:   compliance(ColSeatbeltWorn, "Seatbelt_Compliance"),
		},
	}
}

// DeriveFeatures evaluates the table in order, skipping features whose
// preconditions fail, and returns the extended frame with the names of the
// features that were applied.
func DeriveFeatures(df *dataframe.DataFrame, features []Feature, env Env) (*dataframe.DataFrame, []string, error) {
	current := df.Select(df.Columns()...)
	var applied []string

	for _, f := range features {
		if !f.Applicable(current) {
			continue
		}
		cols, err := f.Derive(current, env)
		if err != nil {
			current.Release()
			return nil, nil, err
		}
		next, err := current.WithColumns(cols...)
		current.Release()
		if err != nil {
			releaseAll(cols)
			return nil, nil, err
		}
		current = next
		applied = append(applied, f.Name)
	}
	return current, applied, nil
}

func anyPresent(column string) func(df *dataframe.DataFrame) bool {
	return func(df *dataframe.DataFrame) bool {
		col, ok := df.Column(column)
		return ok && col.NullCount() < col.Len()
	}
}

func allOf(gates ...func(df *dataframe.DataFrame) bool) func(df *dataframe.DataFrame) bool {
	return func(df *dataframe.DataFrame) bool {
		for _, g := range gates {
			if !g(df) {
				return false
			}
		}
		return true
	}
}

func floats(df *dataframe.DataFrame, name string) ([]float64, []bool) {
	col, _ := df.Column(name)
	return dataframe.Floats(col)
}

func texts(df *dataframe.DataFrame, name string) ([]string, []bool) {
	col, _ := df.Column(name)
	return dataframe.Strings(col)
}

func deriveTemporal(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error) {
	col, _ := df.Column(ColDate)
	dates, valid := dataframe.Times(col)

	n := len(dates)
	weekday := make([]string, n)
	month := make([]string, n)
	year := make([]int64, n)
	quarter := make([]int64, n)
	day := make([]int64, n)
	for i, d := range dates {
		if !valid[i] {
			continue
		}
		weekday[i] = d.Weekday().String()
		month[i] = d.Month().String()
		year[i] = int64(d.Year())
		quarter[i] = int64((d.Month()-1)/3 + 1)
		day[i] = int64(d.Day())
	}

	b := newBatch()
	b.add(series.NewWithValidity("Day_of_Week", weekday, valid, env.Mem))
	b.add(series.NewWithValidity("Month", month, valid, env.Mem))
	b.add(series.NewWithValidity("Year", year, valid, env.Mem))
	b.add(series.NewWithValidity("Quarter", quarter, valid, env.Mem))
	b.add(series.NewWithValidity("Day_of_Month", day, valid, env.Mem))
	return b.result()
}

func deriveTimeOfDay(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error) {
	hours, valid := floats(df, ColHour)
	s, err := Cut("Time_of_Day", hours, valid, TimeOfDayBins, env.Mem)
	if err != nil {
		return nil, err
	}
	return []dataframe.ISeries{s}, nil
}

func deriveSpeed(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error) {
	recorded, recOK := floats(df, ColRecordedSpeed)
	limit, limOK := floats(df, ColSpeedLimit)

	n := len(recorded)
	violation := make([]bool, n)
	excess := make([]float64, n)
	pct := make([]float64, n)
	for i := range n {
		violation[i] = recOK[i] && limOK[i] && recorded[i] > limit[i]
		if violation[i] {
			excess[i] = recorded[i] - limit[i]
		}
		if limOK[i] && limit[i] > 0 {
			pct[i] = excess[i] / limit[i] * 100
		}
	}

	b := newBatch()
	b.add(series.NewSafe("Speed_Violation", violation, env.Mem))
	b.add(series.NewSafe("Speed_Excess", excess, env.Mem))
	b.add(series.NewSafe("Speed_Excess_Percentage", pct, env.Mem))
	return b.result()
}

func binned(source, target string, bins Binning) DeriveFunc {
	return func(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error) {
		values, valid := floats(df, source)
		s, err := Cut(target, values, valid, bins, env.Mem)
		if err != nil {
			return nil, err
		}
		return []dataframe.ISeries{s}, nil
	}
}

func deriveRepeatOffender(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error) {
	prev, valid := floats(df, ColPreviousViolations)
	repeat := make([]bool, len(prev))
	for i, v := range prev {
		repeat[i] = valid[i] && v > 0
	}

	b := newBatch()
	b.add(series.NewSafe("Is_Repeat_Offender", repeat, env.Mem))
	b.add(Cut("Repeat_Offender_Category", prev, valid, RepeatOffenderBins, env.Mem))
	return b.result()
}

// vehicleAgeBaseYear is the latest valid Date year, or the fallback.
func vehicleAgeBaseYear(df *dataframe.DataFrame, fallback int) int {
	col, _ := df.Column(ColDate)
	dates, valid := dataframe.Times(col)
	base, found := 0, false
	for i, d := range dates {
		if valid[i] && (!found || d.Year() > base) {
			base, found = d.Year(), true
		}
	}
	if !found {
		return fallback
	}
	return base
}

func deriveVehicleAge(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error) {
	base := float64(vehicleAgeBaseYear(df, env.FallbackYear))
	model, valid := floats(df, ColVehicleModelYear)

	age := make([]float64, len(model))
	for i, m := range model {
		if valid[i] {
			age[i] = base - m
		}
	}

	b := newBatch()
	b.add(series.NewWithValidity("Vehicle_Age", age, valid, env.Mem))
	b.add(Cut("Vehicle_Age_Group", age, valid, VehicleAgeBins, env.Mem))
	return b.result()
}

// Risk weights, summed per row.
const (
	riskPriorViolations = 3
	riskInvalidLicense  = 2
	riskDrunkDriving    = 4
	riskSpeedExcess     = 2
	riskCourt           = 1
	riskAlcohol         = 3
)

func deriveRisk(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error) {
	prev, prevOK := floats(df, ColPreviousViolations)
	license, licenseOK := texts(df, ColLicenseValidity)
	violation, violationOK := texts(df, ColViolationType)
	excess, excessOK := floats(df, "Speed_Excess")
	court, courtOK := texts(df, ColCourtAppearanceRequired)
	alcohol, alcoholOK := floats(df, ColAlcoholLevel)

	score := make([]int64, len(prev))
	for i := range score {
		if prevOK[i] && prev[i] > 3 {
			score[i] += riskPriorViolations
		}
		if !licenseOK[i] || license[i] != "Valid" {
			score[i] += riskInvalidLicense
		}
		if violationOK[i] && violation[i] == "Drunk Driving" {
			score[i] += riskDrunkDriving
		}
		if excessOK[i] && excess[i] > 30 {
			score[i] += riskSpeedExcess
		}
		if courtOK[i] && court[i] == "Yes" {
			score[i] += riskCourt
		}
		if alcoholOK[i] && alcohol[i] > 0.08 {
			score[i] += riskAlcohol
		}
	}

	b := newBatch()
	b.add(series.NewSafe("Risk_Score", score, env.Mem))
	b.add(Cut("Risk_Category", score, nil, RiskBins, env.Mem))
	return b.result()
}

func compliance(source, target string) DeriveFunc {
	return func(df *dataframe.DataFrame, env Env) ([]dataframe.ISeries, error) {
		worn, valid := texts(df, source)
		out := make([]string, len(worn))
		for i, w := range worn {
			switch {
			case valid[i] && w == "Yes":
				out[i] = "Compliant"
			case valid[i] && w == "No":
				out[i] = "Non-Compliant"
			default:
				out[i] = "N/A"
			}
		}
		s, err := series.NewSafe(target, out, env.Mem)
		if err != nil {
			return nil, err
		}
		return []dataframe.ISeries{s}, nil
	}
}

// batch collects freshly built series and releases them all if any
// constructor failed.
type batch struct {
	cols []dataframe.ISeries
	err  error
}

func newBatch() *batch {
	return &batch{}
}

func (b *batch) add(s dataframe.ISeries, err error) {
	if b.err != nil {
		if err == nil {
			s.Release()
		}
		return
	}
	if err != nil {
		b.err = err
		return
	}
	b.cols = append(b.cols, s)
}

func (b *batch) result() ([]dataframe.ISeries, error) {
	if b.err != nil {
		releaseAll(b.cols)
		return nil, b.err
	}
	return b.cols, nil
}
