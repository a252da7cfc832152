// Package format turns raw uploaded file bytes into parsed datasets.
//
// Each supported file format has one adapter. Dispatch is a closed switch
// over the declared extension, so adding a format means adding an adapter
// type and a case to adapterFor — the compiler flags a missing wire-up.
//
// Supported formats:
//   - delimited text: .csv (comma), .tsv (tab)
//   - spreadsheet:    .xlsx, .xlsm (first sheet)
//   - structured:     .json (array of objects), .xml (repeated record elements)
//   - line text:      .txt (delimiter sniffed; optional caller-supplied header)
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/datalift/listprep/internal/dataset"
)

// ErrUnsupportedFormat is returned when a file's extension does not map to
// a registered adapter (including a missing extension).
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseError describes malformed content in an otherwise supported format.
type ParseError struct {
	FileName string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.FileName, e.Reason)
}

// Options carries per-file parse settings supplied by the operator.
type Options struct {
	// CustomHeader, when non-empty, names the columns of a headerless
	// line-oriented file. Ignored by adapters whose format is self-describing.
	CustomHeader []string
}

// Adapter parses one file format into a dataset.
type Adapter interface {
	Parse(data []byte, fileName string, opts Options) (*dataset.Parsed, error)
}

// adapterFor maps a lower-cased extension (with dot) to its adapter.
// The switch is the single dispatch point for every supported format.
func adapterFor(ext string) (Adapter, bool) {
	switch ext {
	case ".csv":
		return delimitedAdapter{comma: ','}, true
	case ".tsv":
		return delimitedAdapter{comma: '\t'}, true
	case ".xlsx", ".xlsm":
		return spreadsheetAdapter{}, true
	case ".json":
		return jsonAdapter{}, true
	case ".xml":
		return xmlAdapter{}, true
	case ".txt":
		return textAdapter{}, true
	default:
		return nil, false
	}
}

// Parse dispatches to the adapter for the file's extension.
func Parse(data []byte, fileName string, opts Options) (*dataset.Parsed, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, fileName)
	}

	a, ok := adapterFor(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	parsed, err := a.Parse(data, fileName, opts)
	if err != nil {
		return nil, err
	}
	if len(parsed.Headers) == 0 {
		return nil, &ParseError{FileName: fileName, Reason: "no usable columns"}
	}
	return parsed, nil
}

// Supported reports whether the extension (with or without dot) has an adapter.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	_, ok := adapterFor(ext)
	return ok
}

// buildDataset assembles a Parsed from a header row and data rows, inferring
// column types from the first data row. Cells are cleaned of CSV/Excel
// artifacts; blank header cells are skipped entirely.
func buildDataset(fileName string, headerRow []string, dataRows [][]string) (*dataset.Parsed, error) {
	type col struct {
		name string
		pos  int
	}
	var cols []col
	seen := make(map[string]bool)
	for i, h := range headerRow {
		name := CleanCell(h)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, col{name: name, pos: i})
	}
	if len(cols) == 0 {
		return nil, &ParseError{FileName: fileName, Reason: "header row has no usable columns"}
	}

	parsed := &dataset.Parsed{FileName: fileName}

	var firstRow []string
	for _, row := range dataRows {
		if isBlankRow(row) {
			continue
		}
		if firstRow == nil {
			firstRow = row
		}
		out := make(dataset.Row, len(cols))
		for _, c := range cols {
			if c.pos < len(row) {
				out[c.name] = CleanCell(row[c.pos])
			}
		}
		parsed.Rows = append(parsed.Rows, out)
	}

	for _, c := range cols {
		sample := ""
		if firstRow != nil && c.pos < len(firstRow) {
			sample = CleanCell(firstRow[c.pos])
		}
		parsed.Headers = append(parsed.Headers, dataset.Header{
			Name: c.name,
			Type: InferType(sample),
		})
	}

	return parsed, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
