package preprocess

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/series"
	"golang.org/x/exp/constraints"
)

// Number is any value that can be binned or clamped.
type Number interface {
	constraints.Integer | constraints.Float
}

// Binning maps a number onto ordered, labeled ranges. The first range is
// closed on both ends; every later range is (Edges[i], Edges[i+1]].
type Binning struct {
	Edges  []float64
	Labels []string
}

var inf = math.Inf(1)

// Bin definitions for the categorical features.
var (
	TimeOfDayBins = Binning{
		Edges:  []float64{-1, 11, 17, 20, 23},
		Labels: []string{"Morning (00-11)", "Afternoon (12-17)", "Evening (18-20)", "Night (21-23)"},
	}
	AgeBins = Binning{
		Edges:  []float64{0, 25, 35, 50, 65, 100},
		Labels: []string{"18-25", "26-35", "36-50", "51-65", "65+"},
	}
	FineBins = Binning{
		Edges:  []float64{0, 1000, 2500, 4000, inf},
		Labels: []string{"Low (0-1K)", "Medium (1K-2.5K)", "High (2.5K-4K)", "Very High (4K+)"},
	}
	AlcoholBins = Binning{
		Edges:  []float64{-0.01, 0.01, 0.08, 0.15, inf},
		Labels: []string{"None (0)", "Low (0-0.08)", "Medium (0.08-0.15)", "High (0.15+)"},
	}
	RepeatOffenderBins = Binning{
		Edges:  []float64{-0.5, 0.5, 2.5, 5.5, inf},
		Labels: []string{"First Time", "Low (1-2)", "Medium (3-5)", "High (5+)"},
	}
	VehicleAgeBins = Binning{
		Edges:  []float64{0, 5, 10, 15, inf},
		Labels: []string{"New (0-5)", "Moderate (5-10)", "Old (10-15)", "Very Old (15+)"},
	}
	RiskBins = Binning{
		Edges:  []float64{-0.5, 2.5, 5.5, 8.5, inf},
		Labels: []string{"Low Risk", "Medium Risk", "High Risk", "Very High Risk"},
	}
)

// Label returns the label of the range holding v. Values outside every
// range, and NaN, have no label.
func (b Binning) Label(v float64) (string, bool) {
	if len(b.Edges) < 2 || math.IsNaN(v) || v < b.Edges[0] {
		return "", false
	}
	for i := 1; i < len(b.Edges); i++ {
		if v <= b.Edges[i] {
			return b.Labels[i-1], true
		}
	}
	return "", false
}

// Cut bins values into a labeled string series. Missing values and values
// outside every range become missing labels.
func Cut[T Number](name string, values []T, valid []bool, b Binning, mem memory.Allocator) (*series.Series[string], error) {
	labels := make([]string, len(values))
	ok := make([]bool, len(values))
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		labels[i], ok[i] = b.Label(float64(v))
	}
	return series.NewWithValidity(name, labels, ok, mem)
}

// clampMin raises every value below floor to floor.
func clampMin[T Number](values []T, floor T) int {
	changed := 0
	for i, v := range values {
		if v < floor {
			values[i] = floor
			changed++
		}
	}
	return changed
}
