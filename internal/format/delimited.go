package format

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/datalift/listprep/internal/dataset"
)

// delimitedAdapter parses comma- or tab-separated text. The first non-blank
// record is the header row.
type delimitedAdapter struct {
	comma rune
}

func (a delimitedAdapter) Parse(data []byte, fileName string, _ Options) (*dataset.Parsed, error) {
	records, err := readDelimited(data, a.comma)
	if err != nil {
		return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("invalid delimited text: %v", err)}
	}
	if len(records) == 0 {
		return nil, &ParseError{FileName: fileName, Reason: "empty file"}
	}

	header, rest := splitHeader(records)
	if header == nil {
		return nil, &ParseError{FileName: fileName, Reason: "no header row found"}
	}

	return buildDataset(fileName, header, rest)
}

func readDelimited(data []byte, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeText(data)))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// splitHeader returns the first non-blank record as the header and everything
// after it as data rows.
func splitHeader(records [][]string) ([]string, [][]string) {
	for i, rec := range records {
		if !isBlankRow(rec) {
			return rec, records[i+1:]
		}
	}
	return nil, nil
}
