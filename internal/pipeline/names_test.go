package pipeline

import (
	"strings"
	"testing"
	"time"
)

// ============================================================================
// SanitizeBaseName Tests
// ============================================================================

func TestSanitizeBaseName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "spring_leads", "spring_leads"},
		{"upper-cased folded", "Spring Leads", "spring_leads"},
		{"punctuation replaced", "leads-2024 (final).v2", "leads_2024__final__v2"},
		{"leading digit prefixed", "2024leads", "t_2024leads"},
		{"empty falls back", "", "batch"},
		{"whitespace only falls back", "   ", "batch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeBaseName(tt.input); got != tt.want {
				t.Errorf("SanitizeBaseName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeBaseName_Bounded(t *testing.T) {
	long := strings.Repeat("x", 200)
	if got := SanitizeBaseName(long); len(got) > maxBaseNameLen {
		t.Errorf("sanitized name too long: %d", len(got))
	}
}

// ============================================================================
// BuildTableName Tests
// ============================================================================

func TestBuildTableName_Unique(t *testing.T) {
	t1 := time.UnixMilli(1700000000000)
	t2 := time.UnixMilli(1700000000001)

	a := BuildTableName("leads", t1)
	b := BuildTableName("leads", t2)

	if a == b {
		t.Fatalf("identical base names must yield distinct table names: %s", a)
	}
	if !strings.HasPrefix(a, TablePrefix+"leads_") {
		t.Errorf("unexpected name shape: %s", a)
	}
	// Only the timestamp suffix may differ.
	trim := func(s string) string { return s[:strings.LastIndex(s, "_")] }
	if trim(a) != trim(b) {
		t.Errorf("names differ beyond the timestamp suffix: %s vs %s", a, b)
	}
}

func TestBuildTableName_IsValid(t *testing.T) {
	name := BuildTableName("Spring Leads 2024!", time.Now())
	if !ValidTableName(name) {
		t.Errorf("generated name must pass validation: %s", name)
	}
}

// ============================================================================
// ValidTableName Tests
// ============================================================================

func TestValidTableName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"uploaded_leads_1700000000000", true},
		{"lsam_uploaded_leads_1700000000000", true},
		{"csam_uploaded_leads_1700000000000_dup2", true},
		{"users", false},
		{"uploaded_leads; DROP TABLE users", false},
		{"", false},
		{"uploaded_", false},
	}
	for _, tt := range tests {
		if got := ValidTableName(tt.input); got != tt.want {
			t.Errorf("ValidTableName(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// ============================================================================
// sanitizeColumnName / QuoteIdentifier Tests
// ============================================================================

func TestSanitizeColumnName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"FIRST_NAME", "FIRST_NAME"},
		{"First Name", "First_Name"},
		{"2ND_PHONE", "C_2ND_PHONE"},
		{"", "COL"},
		{"A-B/C", "A_B_C"},
	}
	for _, tt := range tests {
		if got := sanitizeColumnName(tt.input); got != tt.want {
			t.Errorf("sanitizeColumnName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := QuoteIdentifier(`na"me`); got != `"na""me"` {
		t.Errorf("QuoteIdentifier = %s", got)
	}
}
