package variable

import (
	"strings"
	"testing"
)

// ============================================================================
// ValidateFormula Tests
// ============================================================================

func TestValidateFormula(t *testing.T) {
	cols := []string{"AGE", "FIRST_NAME", "LAST_NAME"}

	tests := []struct {
		name    string
		formula string
		wantErr string
	}{
		{"arithmetic on columns", "AGE * 2 + 1", ""},
		{"function call", "UPPER(BTRIM(FIRST_NAME))", ""},
		{"concatenation", "FIRST_NAME || ' ' || LAST_NAME", ""},
		{"case expression", "CASE WHEN AGE > 65 THEN 'S' ELSE 'J' END", ""},
		{"quoted column", `"FIRST_NAME" || 'x'`, ""},
		{"coalesce with literal", "COALESCE(FIRST_NAME, 'unknown')", ""},
		{"escaped quote in literal", "FIRST_NAME || 'O''Brien'", ""},
		{"empty", "   ", "empty"},
		{"statement separator", "AGE; DROP TABLE users", "separator"},
		{"line comment", "AGE -- sneaky", "separator or comment"},
		{"block comment", "AGE /* x */", "separator or comment"},
		{"unknown identifier", "AGE + salary", "unknown identifier"},
		{"unknown quoted column", `"SSN" || ''`, "unknown column"},
		{"unbalanced open paren", "UPPER(AGE", "unbalanced"},
		{"unbalanced close paren", "AGE)", "unbalanced"},
		{"unterminated literal", "AGE || 'oops", "unterminated string"},
		{"disallowed character", "AGE ?? 2", "disallowed character"},
		{"disallowed function", "PG_SLEEP(10)", "unknown identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormula(tt.formula, cols)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateFormula(%q) = %v, want nil", tt.formula, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateFormula(%q) = nil, want error containing %q", tt.formula, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateFormula_ColumnCaseInsensitive(t *testing.T) {
	if err := ValidateFormula("age + 1", []string{"AGE"}); err != nil {
		t.Errorf("lower-case column reference rejected: %v", err)
	}
}
