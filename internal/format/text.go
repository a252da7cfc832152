package format

import (
	"strings"

	"github.com/datalift/listprep/internal/dataset"
)

// textAdapter parses line-oriented .txt exports. The column delimiter is
// sniffed from the first line (tab, pipe, comma, in that order). When the
// operator supplies a custom header the whole file is data; otherwise the
// first non-blank line is the header.
type textAdapter struct{}

func (textAdapter) Parse(data []byte, fileName string, opts Options) (*dataset.Parsed, error) {
	content := strings.ReplaceAll(string(sanitizeText(data)), "\r\n", "\n")
	lines := strings.Split(content, "\n")

	var records [][]string
	var delim string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if delim == "" {
			delim = sniffDelimiter(line)
		}
		records = append(records, strings.Split(line, delim))
	}

	if len(records) == 0 {
		return nil, &ParseError{FileName: fileName, Reason: "empty file"}
	}

	header := opts.CustomHeader
	rest := records
	if len(header) == 0 {
		header = records[0]
		rest = records[1:]
	}

	return buildDataset(fileName, header, rest)
}

// sniffDelimiter picks the first delimiter actually present in the line.
// Single-column files fall through to tab, which splits to one field.
func sniffDelimiter(line string) string {
	for _, d := range []string{"\t", "|", ","} {
		if strings.Contains(line, d) {
			return d
		}
	}
	return "\t"
}
