package preprocess

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/trafficprep/internal/dataframe"
)

// Finalize stable-sorts by Date when the column exists. Otherwise rows keep
// their order. Row positions in the result are dense and zero-based.
func Finalize(df *dataframe.DataFrame, mem memory.Allocator) (*dataframe.DataFrame, error) {
	if !df.HasColumn(ColDate) {
		return df.Select(df.Columns()...), nil
	}
	return df.SortStableBy(ColDate, mem)
}
