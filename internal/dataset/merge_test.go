package dataset

import (
	"reflect"
	"testing"
)

// ============================================================================
// Merge Tests
// ============================================================================

func TestMerge_HeaderUnionAndPadding(t *testing.T) {
	a := &Parsed{
		FileName: "a.csv",
		Headers:  []Header{{Name: "X", Type: TypeText}, {Name: "Y", Type: TypeInteger}},
		Rows: []Row{
			{"X": "x1", "Y": "1"},
			{"X": "x2", "Y": "2"},
		},
	}
	b := &Parsed{
		FileName: "b.csv",
		Headers:  []Header{{Name: "Y", Type: TypeInteger}, {Name: "Z", Type: TypeText}},
		Rows: []Row{
			{"Y": "3", "Z": "z1"},
		},
	}

	m := Merge([]*Parsed{a, b})

	wantHeaders := []string{"X", "Y", "Z", SourceFileColumn, FileIndexColumn}
	if got := m.HeaderNames(); !reflect.DeepEqual(got, wantHeaders) {
		t.Fatalf("headers = %v, want %v", got, wantHeaders)
	}

	if len(m.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(m.Rows))
	}

	// A's rows have no Z
	if _, ok := m.Rows[0]["Z"]; ok {
		t.Error("row from file A should not carry Z")
	}
	// B's row has no X
	if _, ok := m.Rows[2]["X"]; ok {
		t.Error("row from file B should not carry X")
	}

	// Provenance
	if m.Rows[0][SourceFileColumn] != "a.csv" || m.Rows[0][FileIndexColumn] != "1" {
		t.Errorf("wrong provenance on first row: %v", m.Rows[0])
	}
	if m.Rows[2][SourceFileColumn] != "b.csv" || m.Rows[2][FileIndexColumn] != "2" {
		t.Errorf("wrong provenance on last row: %v", m.Rows[2])
	}
}

func TestMerge_SingleFileHasNoProvenance(t *testing.T) {
	a := &Parsed{
		FileName: "only.csv",
		Headers:  []Header{{Name: "A", Type: TypeText}},
		Rows:     []Row{{"A": "1"}},
	}

	m := Merge([]*Parsed{a})

	for _, h := range m.Headers {
		if h.Name == SourceFileColumn || h.Name == FileIndexColumn {
			t.Fatalf("single-file merge must not append provenance column %s", h.Name)
		}
	}
	if _, ok := m.Rows[0][SourceFileColumn]; ok {
		t.Error("single-file merge row must not carry _source_file")
	}
}

func TestMerge_EmptyInput(t *testing.T) {
	m := Merge(nil)
	if len(m.Headers) != 0 || len(m.Rows) != 0 {
		t.Errorf("empty merge should be empty, got %d headers %d rows", len(m.Headers), len(m.Rows))
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	a := &Parsed{
		FileName: "a.csv",
		Headers:  []Header{{Name: "A", Type: TypeText}},
		Rows:     []Row{{"A": "1"}},
	}
	b := &Parsed{
		FileName: "b.csv",
		Headers:  []Header{{Name: "B", Type: TypeText}},
		Rows:     []Row{{"B": "2"}},
	}

	Merge([]*Parsed{a, b})

	if len(a.Rows[0]) != 1 || len(b.Rows[0]) != 1 {
		t.Error("merge mutated input rows")
	}
	if len(a.Headers) != 1 {
		t.Error("merge mutated input headers")
	}
}

// ============================================================================
// DropColumns / RenameColumns Tests
// ============================================================================

func TestDropColumns(t *testing.T) {
	m := &Merged{
		Headers: []Header{{Name: "KEEP"}, {Name: "DROP"}},
		Rows:    []Row{{"KEEP": "a", "DROP": "b"}},
	}

	out := m.DropColumns(map[string]bool{"DROP": true})

	if got := out.HeaderNames(); !reflect.DeepEqual(got, []string{"KEEP"}) {
		t.Errorf("headers = %v, want [KEEP]", got)
	}
	if _, ok := out.Rows[0]["DROP"]; ok {
		t.Error("dropped column still present in row")
	}
	// original untouched
	if len(m.Headers) != 2 {
		t.Error("DropColumns mutated the receiver")
	}
}

func TestRenameColumns(t *testing.T) {
	m := &Merged{
		Headers: []Header{{Name: "FNAME", Type: TypeText}},
		Rows:    []Row{{"FNAME": "pat"}},
	}

	out := m.RenameColumns(map[string]string{"FNAME": "FIRST"})

	if out.Headers[0].Name != "FIRST" {
		t.Errorf("header = %q, want FIRST", out.Headers[0].Name)
	}
	if out.Rows[0]["FIRST"] != "pat" {
		t.Errorf("row value not carried to renamed column: %v", out.Rows[0])
	}
	if m.Headers[0].Name != "FNAME" {
		t.Error("RenameColumns mutated the receiver")
	}
}
