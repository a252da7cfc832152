package dataset

import "strconv"

// Merge unions the given datasets into one. The merged header list preserves
// first-seen order across inputs; rows from a file that lacks a column simply
// omit that key, which downstream layers load as NULL.
//
// When more than one dataset contributes, two provenance columns are appended:
// _source_file (the original filename) and _file_index (1-based position of
// the file within the batch).
//
// Merge is a pure function; the inputs are not modified.
func Merge(inputs []*Parsed) *Merged {
	merged := &Merged{SourceCount: len(inputs)}

	seen := make(map[string]bool)
	for _, in := range inputs {
		for _, h := range in.Headers {
			if !seen[h.Name] {
				seen[h.Name] = true
				merged.Headers = append(merged.Headers, h)
			}
		}
	}

	multi := len(inputs) > 1
	if multi {
		merged.Headers = append(merged.Headers,
			Header{Name: SourceFileColumn, Type: TypeText},
			Header{Name: FileIndexColumn, Type: TypeInteger},
		)
	}

	for idx, in := range inputs {
		for _, row := range in.Rows {
			out := make(Row, len(row)+2)
			for k, v := range row {
				out[k] = v
			}
			if multi {
				out[SourceFileColumn] = in.FileName
				out[FileIndexColumn] = strconv.Itoa(idx + 1)
			}
			merged.Rows = append(merged.Rows, out)
		}
	}

	return merged
}
