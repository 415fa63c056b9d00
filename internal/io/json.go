package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/series"
)

// Write writes the DataFrame to JSON format.
// Objects keep the frame's column order and missing values are written as null.
func (w *JSONWriter) Write(df *dataframe.DataFrame) error {
	switch w.options.Format {
	case JSONArray, JSONLines:
	default:
		return fmt.Errorf("unsupported JSON format: %d", w.options.Format)
	}

	headers := df.Columns()
	arrays := make([]arrow.Array, len(headers))
	for i, name := range headers {
		col, _ := df.Column(name)
		arrays[i] = col.Array()
	}
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	keys := make([][]byte, len(headers))
	for i, name := range headers {
		k, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("marshaling column name %s: %w", name, err)
		}
		keys[i] = k
	}

	out := bufio.NewWriter(w.writer)
	if w.options.Format == JSONArray {
		out.WriteByte('[')
	}

	var buf bytes.Buffer
	for row := range df.Len() {
		buf.Reset()
		buf.WriteByte('{')
		for j, arr := range arrays {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')
			v, err := json.Marshal(jsonValue(arr, row))
			if err != nil {
				return fmt.Errorf("marshaling JSON record %d: %w", row, err)
			}
			buf.Write(v)
		}
		buf.WriteByte('}')

		if w.options.Format == JSONArray && row > 0 {
			out.WriteByte(',')
		}
		out.Write(buf.Bytes())
		if w.options.Format == JSONLines {
			out.WriteByte('\n')
		}
	}

	if w.options.Format == JSONArray {
		out.WriteByte(']')
	}
	return out.Flush()
}

// jsonValue returns the value at index in a form encoding/json can marshal.
func jsonValue(arr arrow.Array, index int) any {
	if arr.IsNull(index) {
		return nil
	}
	switch typed := arr.(type) {
	case *array.String:
		return typed.Value(index)
	case *array.Int64:
		return typed.Value(index)
	case *array.Float64:
		return typed.Value(index)
	case *array.Boolean:
		return typed.Value(index)
	default:
		return series.FormatValue(arr, index)
	}
}
