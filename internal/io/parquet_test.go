package io_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/io"
	"github.com/paveg/trafficprep/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetWriter(t *testing.T) {
	mem := memory.NewGoAllocator()

	for _, codec := range []string{"snappy", "gzip", "zstd", "uncompressed"} {
		t.Run(codec, func(t *testing.T) {
			fine, err := series.NewWithValidity("Fine_Amount", []float64{500, 0, 1200}, []bool{true, false, true}, mem)
			require.NoError(t, err)
			df := dataframe.New(series.New("Location", []string{"a", "b", "c"}, mem), fine)
			defer df.Release()

			var buf bytes.Buffer
			opts := io.DefaultParquetOptions()
			opts.Compression = codec
			require.NoError(t, io.NewParquetWriter(&buf, opts).Write(df))

			pf, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			defer pf.Close()

			reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
			require.NoError(t, err)
			table, err := reader.ReadTable(context.Background())
			require.NoError(t, err)
			defer table.Release()

			assert.Equal(t, int64(3), table.NumRows())
			assert.Equal(t, int64(2), table.NumCols())
			assert.Equal(t, "Fine_Amount", table.Schema().Field(1).Name)
			assert.Equal(t, 1, table.Column(1).Data().NullN())
		})
	}

	t.Run("rejects unknown codec", func(t *testing.T) {
		df := dataframe.New(series.New("a", []int64{1}, mem))
		defer df.Release()

		opts := io.DefaultParquetOptions()
		opts.Compression = "rar"
		var buf bytes.Buffer
		assert.Error(t, io.NewParquetWriter(&buf, opts).Write(df))
	})
}
