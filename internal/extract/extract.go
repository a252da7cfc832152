// Package extract splits a materialized table into downstream output files
// and derivative tables: a single combined output, or separate landline and
// cell partitions with optional duplicate-phone householding.
package extract

// Mode selects between one combined output and a landline/cell split.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeSplit Mode = "split"
)

// FileType labels single-output extractions and picks the assigned phone
// column.
type FileType string

const (
	FileTypeLandline FileType = "landline"
	FileTypeCell     FileType = "cell"
)

// Well-known columns the engine consults. SOURCE carries L (landline),
// C (cell), or B (both); CELL_ONLY is the boolean the alternate cohort uses
// instead of SOURCE.
const (
	ColumnSource        = "SOURCE"
	ColumnAgeRange      = "AGE_RANGE"
	ColumnPhone         = "PHONE"
	ColumnCellPhone     = "CELL_PHONE"
	ColumnCellOnly      = "CELL_ONLY"
	ColumnAssignedPhone = "ASSIGNED_PHONE"
)

// MaxDuplicateRank is the highest householding overflow file. Occurrences
// past it are appended to this rank so every source row still lands in
// exactly one output.
const MaxDuplicateRank = 4

// Config describes one extraction invocation. Transient.
type Config struct {
	Table               string   `json:"table"`
	SelectedHeaders     []string `json:"selectedHeaders"`
	SplitMode           Mode     `json:"splitMode"`
	FileType            FileType `json:"fileType"`
	AgeRangeThreshold   string   `json:"ageRangeThreshold,omitempty"`
	HouseholdingEnabled bool     `json:"householdingEnabled"`
	Client              string   `json:"client,omitempty"`
}

// FileDescriptor describes one produced output.
type FileDescriptor struct {
	Filename          string   `json:"filename"`
	Path              string   `json:"path"`
	Table             string   `json:"table"`
	RecordCount       int      `json:"recordCount"`
	AppliedConditions string   `json:"appliedConditions"`
	Headers           []string `json:"headers"`
}

// HouseholdStats summarizes deduplication when householding ran.
type HouseholdStats struct {
	TotalRecords     int         `json:"totalRecords"`
	UniquePhones     int         `json:"uniquePhones"`
	DuplicatesRouted int         `json:"duplicatesRouted"`
	RankCounts       map[int]int `json:"rankCounts,omitempty"`
}

// Result is the outcome of one extraction.
type Result struct {
	Files     []FileDescriptor `json:"files"`
	Household *HouseholdStats  `json:"householdStats,omitempty"`
}

// Row is one source row as text values keyed by upper-cased column name.
// An absent key is a SQL NULL.
type Row map[string]string
