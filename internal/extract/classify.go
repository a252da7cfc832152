package extract

import (
	"strconv"
	"strings"
)

// Classify decides the partition for one row in split mode: landline when
// SOURCE is L, or SOURCE is B and the age range clears the threshold;
// everything else is cell.
func Classify(row Row, threshold string) FileType {
	switch strings.ToUpper(strings.TrimSpace(row[ColumnSource])) {
	case "L":
		return FileTypeLandline
	case "B":
		if ageAtLeast(row[ColumnAgeRange], threshold) {
			return FileTypeLandline
		}
	}
	return FileTypeCell
}

// ClassifyAlt is the alternate-cohort rule: the CELL_ONLY boolean decides
// directly, with no age threshold.
func ClassifyAlt(row Row) FileType {
	switch strings.ToLower(strings.TrimSpace(row[ColumnCellOnly])) {
	case "true", "t", "yes", "y", "1":
		return FileTypeCell
	}
	return FileTypeLandline
}

// ageAtLeast compares an age-range value against the threshold. Values
// compare numerically on their leading number ("65-74" → 65); a row with no
// parseable age never clears the threshold.
func ageAtLeast(ageRange, threshold string) bool {
	age, okA := leadingNumber(ageRange)
	min, okT := leadingNumber(threshold)
	return okA && okT && age >= min
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	return n, err == nil
}

// phoneColumn picks the source column copied into ASSIGNED_PHONE for a
// partition.
func phoneColumn(t FileType) string {
	if t == FileTypeCell {
		return ColumnCellPhone
	}
	return ColumnPhone
}
