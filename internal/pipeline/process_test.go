package pipeline

import (
	"reflect"
	"testing"

	"github.com/datalift/listprep/internal/dataset"
	"github.com/datalift/listprep/internal/mapping"
)

// ============================================================================
// applyExclusions Tests
// ============================================================================

func TestApplyExclusions(t *testing.T) {
	m := &dataset.Merged{
		Headers: []dataset.Header{
			{Name: "FNAME"}, {Name: "SSN"}, {Name: dataset.SourceFileColumn},
		},
		Rows: []dataset.Row{{"FNAME": "a", "SSN": "b", dataset.SourceFileColumn: "f.csv"}},
	}

	out, dropped := applyExclusions(m, map[string]bool{"SSN": true})

	if !reflect.DeepEqual(dropped, []string{"SSN"}) {
		t.Errorf("dropped = %v", dropped)
	}
	for _, h := range out.Headers {
		if h.Name == "SSN" {
			t.Error("excluded header survived")
		}
	}
}

func TestApplyExclusions_CaseInsensitive(t *testing.T) {
	m := &dataset.Merged{
		Headers: []dataset.Header{{Name: "ssn"}},
		Rows:    []dataset.Row{{"ssn": "x"}},
	}
	out, _ := applyExclusions(m, map[string]bool{"SSN": true})
	if len(out.Headers) != 0 {
		t.Error("exclusion must match case-insensitively")
	}
}

func TestApplyExclusions_ProvenanceProtected(t *testing.T) {
	m := &dataset.Merged{
		Headers: []dataset.Header{{Name: dataset.SourceFileColumn}},
	}
	out, _ := applyExclusions(m, map[string]bool{"_SOURCE_FILE": true})
	if len(out.Headers) != 1 {
		t.Error("provenance columns must never be excluded")
	}
}

// ============================================================================
// resolveHeaders Tests
// ============================================================================

func TestResolveHeaders(t *testing.T) {
	resolver, err := mapping.NewResolver([]mapping.Rule{
		{Original: "FNAME", Mapped: "FIRST"},
	}, "", "")
	if err != nil {
		t.Fatal(err)
	}

	m := &dataset.Merged{
		Headers: []dataset.Header{
			{Name: "fname"}, {Name: "MYSTERY"}, {Name: dataset.FileIndexColumn},
		},
	}

	renames, unmapped := resolveHeaders(m, resolver)

	if renames["fname"] != "FIRST" {
		t.Errorf("fname renamed to %q, want FIRST", renames["fname"])
	}
	if renames["MYSTERY"] != "MYSTERY" {
		t.Errorf("unmapped header must pass through upper-cased, got %q", renames["MYSTERY"])
	}
	if !reflect.DeepEqual(unmapped, []string{"MYSTERY"}) {
		t.Errorf("unmapped = %v", unmapped)
	}
	if _, ok := renames[dataset.FileIndexColumn]; ok {
		t.Error("provenance columns must not be resolved")
	}
}

// ============================================================================
// convertValue Tests
// ============================================================================

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		present bool
		typ     dataset.ColumnType
		wantNil bool
	}{
		{"absent is null", "", false, dataset.TypeText, true},
		{"empty is null", "", true, dataset.TypeInteger, true},
		{"bad integer is null", "abc", true, dataset.TypeInteger, true},
		{"good integer", "42", true, dataset.TypeInteger, false},
		{"good real", "3.14", true, dataset.TypeReal, false},
		{"good boolean", "yes", true, dataset.TypeBoolean, false},
		{"bad boolean is null", "maybe", true, dataset.TypeBoolean, true},
		{"good date", "2024-01-02", true, dataset.TypeDate, false},
		{"bad date is null", "soon", true, dataset.TypeDate, true},
		{"text kept", "hello", true, dataset.TypeText, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertValue(tt.raw, tt.present, tt.typ)
			if (got == nil) != tt.wantNil {
				t.Errorf("convertValue(%q, %v, %v) = %v, wantNil=%v",
					tt.raw, tt.present, tt.typ, got, tt.wantNil)
			}
		})
	}
}

// ============================================================================
// storageType / constantValue Tests
// ============================================================================

func TestStorageType(t *testing.T) {
	tests := []struct {
		typ  dataset.ColumnType
		want string
	}{
		{dataset.TypeInteger, "BIGINT"},
		{dataset.TypeReal, "DOUBLE PRECISION"},
		{dataset.TypeBoolean, "BOOLEAN"},
		{dataset.TypeDate, "TIMESTAMP"},
		{dataset.TypeText, "VARCHAR(500)"},
	}
	for _, tt := range tests {
		if got := storageType(tt.typ); got != tt.want {
			t.Errorf("storageType(%v) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestConstantValue(t *testing.T) {
	tests := []struct {
		def  ConstantDefinition
		want any
	}{
		{ConstantDefinition{Default: "'NEW'"}, "NEW"},
		{ConstantDefinition{Default: "0"}, int64(0)},
		{ConstantDefinition{Default: "FALSE"}, false},
		{ConstantDefinition{Default: ""}, nil},
	}
	for _, tt := range tests {
		if got := constantValue(tt.def); got != tt.want {
			t.Errorf("constantValue(%q) = %v (%T), want %v", tt.def.Default, got, got, tt.want)
		}
	}
}
