package preprocess

import (
	"strings"
	"time"
)

// ParseReason says why a cell did not produce a value.
type ParseReason string

const (
	// ReasonNone marks a successful parse.
	ReasonNone ParseReason = ""
	// ReasonEmpty marks a cell that was already missing or blank.
	ReasonEmpty ParseReason = "empty"
	// ReasonFormatMismatch marks a cell that did not match the format chosen
	// for its column.
	ReasonFormatMismatch ParseReason = "format-mismatch"
	// ReasonUnrecognized marks a cell no known layout could read.
	ReasonUnrecognized ParseReason = "unrecognized"
)

// ParseResult is the outcome of parsing one cell.
type ParseResult[T any] struct {
	Value  T
	OK     bool
	Reason ParseReason
}

func parsed[T any](v T) ParseResult[T] {
	return ParseResult[T]{Value: v, OK: true}
}

func failed[T any](reason ParseReason) ParseResult[T] {
	return ParseResult[T]{Reason: reason}
}

// DateLayouts are the candidate column formats, in priority order:
// DD-MM-YYYY, YYYY-MM-DD, MM/DD/YYYY, DD/MM/YYYY.
var DateLayouts = []string{
	"2-1-2006",
	"2006-1-2",
	"1/2/2006",
	"2/1/2006",
}

// freeformDateLayouts are tried per cell when no candidate format matched
// any row of the column.
var freeformDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05",
}

// hourLayout is the primary time-of-day format, HH:MM.
const hourLayout = "15:04"

var freeformTimeLayouts = []string{
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"15:04:05.000",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate parses raw with a single layout.
func ParseDate(raw string, present bool, layout string) ParseResult[time.Time] {
	raw = strings.TrimSpace(raw)
	if !present || raw == "" {
		return failed[time.Time](ReasonEmpty)
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return failed[time.Time](ReasonFormatMismatch)
	}
	return parsed(truncateToDay(t))
}

// ParseDateFreeform tries every free-form layout in turn.
func ParseDateFreeform(raw string, present bool) ParseResult[time.Time] {
	raw = strings.TrimSpace(raw)
	if !present || raw == "" {
		return failed[time.Time](ReasonEmpty)
	}
	for _, layout := range freeformDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return parsed(truncateToDay(t))
		}
	}
	return failed[time.Time](ReasonUnrecognized)
}

// ParseHour extracts the hour from a time-of-day string. HH:MM is tried
// first, then the free-form layouts.
func ParseHour(raw string, present bool) ParseResult[int64] {
	raw = strings.TrimSpace(raw)
	if !present || raw == "" {
		return failed[int64](ReasonEmpty)
	}
	if t, err := time.Parse(hourLayout, raw); err == nil {
		return parsed(int64(t.Hour()))
	}
	for _, layout := range freeformTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return parsed(int64(t.Hour()))
		}
	}
	return failed[int64](ReasonUnrecognized)
}

// ParseDateColumn picks the first layout in DateLayouts that parses at least
// one cell and applies it to the whole column. When none does, each cell is
// parsed free-form. The chosen layout is empty in that case.
func ParseDateColumn(raw []string, present []bool) ([]ParseResult[time.Time], string) {
	for _, layout := range DateLayouts {
		results := make([]ParseResult[time.Time], len(raw))
		hits := 0
		for i := range raw {
			results[i] = ParseDate(raw[i], present[i], layout)
			if results[i].OK {
				hits++
			}
		}
		if hits > 0 {
			return results, layout
		}
	}

	results := make([]ParseResult[time.Time], len(raw))
	for i := range raw {
		results[i] = ParseDateFreeform(raw[i], present[i])
	}
	return results, ""
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
