package format

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/datalift/listprep/internal/dataset"
)

// ============================================================================
// Dispatch Tests
// ============================================================================

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse([]byte("data"), "file.pdf", Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParse_MissingExtension(t *testing.T) {
	_, err := Parse([]byte("data"), "noextension", Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".csv", "csv", ".tsv", ".xlsx", ".xlsm", ".json", ".xml", ".txt", "TXT"} {
		if !Supported(ext) {
			t.Errorf("Supported(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{".pdf", ".doc", ""} {
		if Supported(ext) {
			t.Errorf("Supported(%q) = true, want false", ext)
		}
	}
}

// ============================================================================
// Delimited Adapter Tests
// ============================================================================

func TestParse_CSV(t *testing.T) {
	data := []byte("FNAME,LNAME,AGE\njane,doe,44\njohn,roe,\n")

	got, err := Parse(data, "leads.csv", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantHeaders := []string{"FNAME", "LNAME", "AGE"}
	if names := got.HeaderNames(); !reflect.DeepEqual(names, wantHeaders) {
		t.Errorf("headers = %v, want %v", names, wantHeaders)
	}
	if got.Headers[2].Type != dataset.TypeInteger {
		t.Errorf("AGE type = %v, want INTEGER (from first data row)", got.Headers[2].Type)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
	if got.Rows[0]["FNAME"] != "jane" {
		t.Errorf("row 0 FNAME = %q", got.Rows[0]["FNAME"])
	}
}

func TestParse_CSV_NoHeader(t *testing.T) {
	_, err := Parse([]byte("\n\n  \n"), "empty.csv", Options{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParse_CSV_BOMStripped(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("NAME\nval\n")...)
	got, err := Parse(data, "bom.csv", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Headers[0].Name != "NAME" {
		t.Errorf("BOM not stripped from first header: %q", got.Headers[0].Name)
	}
}

func TestParse_TSV(t *testing.T) {
	got, err := Parse([]byte("A\tB\n1\t2\n"), "file.tsv", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Headers) != 2 || got.Rows[0]["B"] != "2" {
		t.Errorf("unexpected parse result: %+v", got)
	}
}

// ============================================================================
// Structured Record Adapter Tests
// ============================================================================

func TestParse_JSON(t *testing.T) {
	data := []byte(`[
		{"name": "jane", "age": 44, "active": true},
		{"name": "john", "age": null, "city": "Austin"}
	]`)

	got, err := Parse(data, "leads.json", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := got.HeaderNames()
	if !reflect.DeepEqual(names, []string{"name", "age", "active", "city"}) {
		t.Fatalf("first-seen order violated: %v", names)
	}
	if got.Rows[0]["age"] != "44" {
		t.Errorf("numeric field rendered as %q", got.Rows[0]["age"])
	}
	if _, ok := got.Rows[1]["age"]; ok {
		t.Error("null field should be absent from the row")
	}
}

func TestParse_JSON_NotArray(t *testing.T) {
	_, err := Parse([]byte(`{"a":1}`), "obj.json", Options{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParse_XML(t *testing.T) {
	data := []byte(`<leads>
		<lead><name>jane</name><age>44</age></lead>
		<lead><name>john</name><age>31</age></lead>
	</leads>`)

	got, err := Parse(data, "leads.xml", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got.HeaderNames(), []string{"name", "age"}) {
		t.Errorf("headers = %v", got.HeaderNames())
	}
	if len(got.Rows) != 2 || got.Rows[1]["age"] != "31" {
		t.Errorf("rows = %+v", got.Rows)
	}
}

// ============================================================================
// Line Text Adapter Tests
// ============================================================================

func TestParse_TXT_FirstLineHeader(t *testing.T) {
	data := []byte("NAME|PHONE\njane|5551234567\n")
	got, err := Parse(data, "list.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got.HeaderNames(), []string{"NAME", "PHONE"}) {
		t.Errorf("headers = %v", got.HeaderNames())
	}
	if got.Rows[0]["PHONE"] != "5551234567" {
		t.Errorf("rows = %+v", got.Rows)
	}
}

func TestParse_TXT_CustomHeader(t *testing.T) {
	data := []byte("jane\t5551234567\njohn\t5559876543\n")
	got, err := Parse(data, "list.txt", Options{CustomHeader: []string{"NAME", "PHONE"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("custom header must treat every line as data, got %d rows", len(got.Rows))
	}
	if got.Rows[0]["NAME"] != "jane" {
		t.Errorf("rows = %+v", got.Rows)
	}
}

// ============================================================================
// CleanCell Tests
// ============================================================================

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  plain  ", "plain"},
		{`="00123"`, "00123"},
		{`"quoted"`, "quoted"},
		{"=SUM(A1)", "SUM(A1)"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeText_InvalidUTF8(t *testing.T) {
	out := sanitizeText([]byte("caf\xe9"))
	if !strings.Contains(string(out), "�") {
		t.Errorf("invalid byte not replaced: %q", out)
	}
}
