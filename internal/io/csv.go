package io

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/trafficprep/internal/dataframe"
	"github.com/paveg/trafficprep/internal/series"
)

const utf8BOM = "\ufeff"

// Read reads CSV data and returns a DataFrame.
// Empty cells are loaded as missing values.
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	// Handle empty CSV
	if len(records) == 0 {
		return dataframe.New(), nil
	}

	var headers []string
	var dataRows [][]string

	if r.options.Header {
		headers = uniqueHeaders(records[0])
		dataRows = records[1:]
	} else {
		numCols := len(records[0])
		headers = make([]string, numCols)
		for i := range numCols {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
		dataRows = records
	}

	numCols := len(headers)
	for i, row := range dataRows {
		if len(row) > numCols {
			line := i + 1
			if r.options.Header {
				line++
			}
			return nil, fmt.Errorf("reading CSV: record on line %d has %d fields, expected %d", line, len(row), numCols)
		}
	}

	// Transpose; short rows are padded with missing cells
	seriesList := make([]dataframe.ISeries, 0, numCols)
	for i, header := range headers {
		values := make([]string, len(dataRows))
		valid := make([]bool, len(dataRows))
		for j, row := range dataRows {
			if i < len(row) && row[i] != "" {
				values[j], valid[j] = row[i], true
			}
		}

		s, err := series.NewWithValidity(header, values, valid, r.mem)
		if err != nil {
			for _, built := range seriesList {
				built.Release()
			}
			return nil, fmt.Errorf("creating series for column %s: %w", header, err)
		}
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

// uniqueHeaders strips a leading byte order mark and renames repeated
// names to name.1, name.2 and so on.
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	counts := make(map[string]int)
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name := h
		for used[name] {
			counts[h]++
			name = fmt.Sprintf("%s.%d", h, counts[h])
		}
		used[name] = true
		headers[i] = name
	}
	return headers
}

// Write writes the DataFrame to CSV format. Missing values are written as
// empty fields and no row index is emitted.
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter

	headers := df.Columns()
	if len(headers) == 0 {
		return nil
	}

	if w.options.Header {
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

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

	record := make([]string, len(headers))
	for row := range df.Len() {
		for j, arr := range arrays {
			record[j] = series.FormatValue(arr, row)
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
