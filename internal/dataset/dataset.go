// Package dataset defines the in-memory representation of parsed tabular
// data and the merge step that unions multiple files into one dataset.
// This package has no storage or transport dependencies.
package dataset

// ColumnType classifies a column's values, inferred from the first data row.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeReal
	TypeBoolean
	TypeDate
)

// String returns the storage-neutral name of the type.
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

// Header is a single named, typed column.
type Header struct {
	Name string
	Type ColumnType
}

// Row maps column names to raw string values. A missing key means the
// source file had no such column (treated as NULL downstream).
type Row map[string]string

// Parsed is the result of parsing one uploaded file. Immutable after parsing.
type Parsed struct {
	FileName string
	Headers  []Header
	Rows     []Row
}

// HeaderNames returns the column names in order.
func (p *Parsed) HeaderNames() []string {
	names := make([]string, len(p.Headers))
	for i, h := range p.Headers {
		names[i] = h.Name
	}
	return names
}

// Provenance columns appended when more than one file contributes to a merge.
const (
	SourceFileColumn = "_source_file"
	FileIndexColumn  = "_file_index"
)

// Merged is the union of one or more Parsed datasets. Owned by a single
// processing request and discarded after materialization.
type Merged struct {
	Headers     []Header
	Rows        []Row
	SourceCount int
}

// HeaderNames returns the merged column names in order.
func (m *Merged) HeaderNames() []string {
	names := make([]string, len(m.Headers))
	for i, h := range m.Headers {
		names[i] = h.Name
	}
	return names
}

// DropColumns returns a copy of m without the named columns. Row values for
// dropped columns are removed as well. Used for exclusion-list enforcement.
func (m *Merged) DropColumns(names map[string]bool) *Merged {
	if len(names) == 0 {
		return m
	}

	out := &Merged{SourceCount: m.SourceCount}
	for _, h := range m.Headers {
		if !names[h.Name] {
			out.Headers = append(out.Headers, h)
		}
	}

	out.Rows = make([]Row, len(m.Rows))
	for i, row := range m.Rows {
		nr := make(Row, len(row))
		for k, v := range row {
			if !names[k] {
				nr[k] = v
			}
		}
		out.Rows[i] = nr
	}
	return out
}

// RenameColumns returns a copy of m with headers renamed per the given map.
// Columns not present in the map keep their names.
func (m *Merged) RenameColumns(renames map[string]string) *Merged {
	if len(renames) == 0 {
		return m
	}

	out := &Merged{
		Headers:     make([]Header, len(m.Headers)),
		Rows:        make([]Row, len(m.Rows)),
		SourceCount: m.SourceCount,
	}
	for i, h := range m.Headers {
		if to, ok := renames[h.Name]; ok {
			h.Name = to
		}
		out.Headers[i] = h
	}
	for i, row := range m.Rows {
		nr := make(Row, len(row))
		for k, v := range row {
			if to, ok := renames[k]; ok {
				k = to
			}
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out
}
