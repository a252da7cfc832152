package variable

import (
	"errors"
	"strings"
	"testing"

	"github.com/datalift/listprep/internal/pipeline"
)

var tableCols = []string{"AGE", "STATE", "PHONE"}

func validDef() Definition {
	return Definition{
		Name:         "SEGMENT",
		OutputType:   "VARCHAR",
		OutputLength: 20,
		Mode:         ModeRules,
		Rules: []Rule{
			{Conditions: []Condition{{Variable: "AGE", Operator: OpGreaterThan, Value: "65"}}, OutputValue: "Senior"},
		},
		DefaultValue: "Other",
	}
}

// ============================================================================
// Validate Tests
// ============================================================================

func TestValidate_Accepts(t *testing.T) {
	if err := Validate(validDef(), tableCols); err != nil {
		t.Fatalf("valid definition rejected: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Definition)
		problem string
	}{
		{"bad name", func(d *Definition) { d.Name = "1st_col" }, "must start with a letter"},
		{"name with space", func(d *Definition) { d.Name = "MY COL" }, "must start with a letter"},
		{"unknown output type", func(d *Definition) { d.OutputType = "BLOB" }, "unsupported output type"},
		{"varchar without length", func(d *Definition) { d.OutputLength = 0 }, "length must be between"},
		{"varchar length too large", func(d *Definition) { d.OutputLength = 4001 }, "length must be between"},
		{"no rules", func(d *Definition) { d.Rules = nil }, "at least one rule"},
		{"no default", func(d *Definition) { d.DefaultValue = "" }, "default value is required"},
		{"rule without conditions", func(d *Definition) { d.Rules[0].Conditions = nil }, "no conditions"},
		{"rule without output", func(d *Definition) { d.Rules[0].OutputValue = "" }, "no output value"},
		{"unknown column", func(d *Definition) { d.Rules[0].Conditions[0].Variable = "NOPE" }, "unknown column"},
		{"unknown operator", func(d *Definition) { d.Rules[0].Conditions[0].Operator = "matches" }, "unknown operator"},
		{"missing comparison value", func(d *Definition) { d.Rules[0].Conditions[0].Value = "" }, "requires a value"},
		{"bad condition logic", func(d *Definition) { d.Rules[0].ConditionLogic = "XOR" }, "must be AND or OR"},
		{"name collides with column", func(d *Definition) { d.Name = "phone" }, "already exists"},
		{"unknown mode", func(d *Definition) { d.Mode = "magic" }, "unknown mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDef()
			tt.mutate(&def)

			err := Validate(def, tableCols)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *pipeline.SchemaValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.problem)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	def := validDef()
	def.Name = "1bad"
	def.DefaultValue = ""
	def.Rules[0].OutputValue = ""

	var verr *pipeline.SchemaValidationError
	if err := Validate(def, tableCols); !errors.As(err, &verr) {
		t.Fatalf("error type = %T", err)
	}
	if len(verr.Problems) != 3 {
		t.Errorf("problems = %d, want 3: %v", len(verr.Problems), verr.Problems)
	}
}

func TestValidate_IntegerNeedsNoLength(t *testing.T) {
	def := validDef()
	def.OutputType = "INTEGER"
	def.OutputLength = 0
	if err := Validate(def, tableCols); err != nil {
		t.Fatalf("INTEGER without length rejected: %v", err)
	}
}

// ============================================================================
// columnType Tests
// ============================================================================

func TestColumnType(t *testing.T) {
	tests := []struct {
		def  Definition
		want string
	}{
		{Definition{OutputType: "VARCHAR", OutputLength: 50}, "VARCHAR(50)"},
		{Definition{OutputType: "char", OutputLength: 1}, "CHAR(1)"},
		{Definition{OutputType: "integer"}, "INTEGER"},
		{Definition{OutputType: "BOOLEAN"}, "BOOLEAN"},
	}
	for _, tt := range tests {
		if got := columnType(tt.def); got != tt.want {
			t.Errorf("columnType(%s) = %q, want %q", tt.def.OutputType, got, tt.want)
		}
	}
}
