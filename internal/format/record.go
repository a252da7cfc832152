package format

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/datalift/listprep/internal/dataset"
)

// jsonAdapter parses a JSON array of flat objects. Column order follows the
// first appearance of each key across the array, which requires walking the
// token stream instead of decoding into Go maps.
type jsonAdapter struct{}

func (jsonAdapter) Parse(data []byte, fileName string, _ Options) (*dataset.Parsed, error) {
	dec := json.NewDecoder(bytes.NewReader(sanitizeText(data)))

	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, &ParseError{FileName: fileName, Reason: "expected a top-level JSON array of objects"}
	}

	var order []string
	seen := make(map[string]bool)
	var rows []dataset.Row

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("invalid record: %v", err)}
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, &ParseError{FileName: fileName, Reason: "array elements must be objects"}
		}

		row := make(dataset.Row)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("invalid record: %v", err)}
			}
			key := CleanCell(keyTok.(string))

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("field %q: %v", key, err)}
			}
			v, err := jsonScalar(raw)
			if err != nil {
				return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("field %q: %v", key, err)}
			}
			if key == "" {
				continue
			}
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
			if v != nil {
				row[key] = *v
			}
		}
		if _, err := dec.Token(); err != nil { // consume closing '}'
			return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("invalid record: %v", err)}
		}
		rows = append(rows, row)
	}

	if len(order) == 0 {
		return nil, &ParseError{FileName: fileName, Reason: "no fields found"}
	}

	return recordDataset(fileName, order, rows), nil
}

// jsonScalar renders a raw JSON value as a cell string. Nulls map to nil
// (absent column); nested arrays/objects are rejected.
func jsonScalar(raw json.RawMessage) (*string, error) {
	s := strings.TrimSpace(string(raw))
	switch {
	case s == "null":
		return nil, nil
	case strings.HasPrefix(s, "{") || strings.HasPrefix(s, "["):
		return nil, fmt.Errorf("nested values are not supported")
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return &s, nil
	}
}

// xmlAdapter parses XML shaped as a root element wrapping repeated record
// elements, each record's child elements being its fields.
type xmlAdapter struct{}

func (xmlAdapter) Parse(data []byte, fileName string, _ Options) (*dataset.Parsed, error) {
	dec := xml.NewDecoder(bytes.NewReader(sanitizeText(data)))

	var order []string
	seen := make(map[string]bool)
	var rows []dataset.Row

	depth := 0
	var row dataset.Row
	var field string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{FileName: fileName, Reason: fmt.Sprintf("invalid XML: %v", err)}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				row = make(dataset.Row)
			case 3:
				field = CleanCell(t.Name.Local)
				text.Reset()
			}
		case xml.CharData:
			if depth == 3 {
				text.Write(t)
			}
		case xml.EndElement:
			switch depth {
			case 3:
				if field != "" {
					if !seen[field] {
						seen[field] = true
						order = append(order, field)
					}
					row[field] = CleanCell(text.String())
				}
			case 2:
				rows = append(rows, row)
			}
			depth--
		}
	}

	if len(order) == 0 {
		return nil, &ParseError{FileName: fileName, Reason: "no record elements found"}
	}

	return recordDataset(fileName, order, rows), nil
}

// recordDataset finishes a structured-record parse: types are inferred from
// the first row carrying each column.
func recordDataset(fileName string, order []string, rows []dataset.Row) *dataset.Parsed {
	parsed := &dataset.Parsed{FileName: fileName, Rows: rows}
	for _, name := range order {
		sample := ""
		if len(rows) > 0 {
			sample = rows[0][name]
		}
		parsed.Headers = append(parsed.Headers, dataset.Header{
			Name: name,
			Type: InferType(sample),
		})
	}
	return parsed
}
