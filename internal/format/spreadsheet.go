package format

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/datalift/listprep/internal/dataset"
)

// spreadsheetAdapter parses .xlsx/.xlsm workbooks. Only the first sheet is
// read; the first non-blank row is the header.
type spreadsheetAdapter struct{}

func (spreadsheetAdapter) Parse(data []byte, fileName string, _ Options) (*dataset.Parsed, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("invalid workbook: %v", err)}
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{FileName: fileName, Reason: "workbook has no sheets"}
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("read sheet %q: %v", sheets[0], err)}
	}
	if len(rows) == 0 {
		return nil, &ParseError{FileName: fileName, Reason: "first sheet is empty"}
	}

	header, rest := splitHeader(rows)
	if header == nil {
		return nil, &ParseError{FileName: fileName, Reason: "no header row found"}
	}

	return buildDataset(fileName, header, rest)
}
