package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/datalift/listprep/internal/dataset"
)

// Date layouts accepted during inference and load. Four-digit years first
// (unambiguous), two-digit layouts resolved with a pivot.
var (
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06",
	}
)

// twoDigitYearPivot: parsed 2-digit years more than this many years in the
// future roll back a century.
const twoDigitYearPivot = 20

// InferType classifies a single raw cell value. Classification attempts, in
// order: boolean literal, integer, real, date; anything else (including the
// empty string) is TEXT. Only the first data row of a column is ever sampled,
// so later rows of a conflicting type fall back to NULL at load time.
func InferType(raw string) dataset.ColumnType {
	s := strings.TrimSpace(raw)
	if s == "" {
		return dataset.TypeText
	}

	switch strings.ToLower(s) {
	case "true", "false":
		return dataset.TypeBoolean
	}

	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return dataset.TypeInteger
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return dataset.TypeReal
	}
	if _, ok := ParseDate(s); ok {
		return dataset.TypeDate
	}

	return dataset.TypeText
}

// ParseDate parses a date string against the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivot := time.Now().Year() + twoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}
