package variable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/datalift/listprep/internal/pipeline"
)

// MaxVarcharLength bounds the declared length of character output types.
const MaxVarcharLength = 4000

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// outputTypes are the storage types a computed variable may declare. The
// lengthRequired entry marks types whose declaration needs a bounded length.
var outputTypes = map[string]bool{
	"VARCHAR": true, // length required
	"CHAR":    true, // length required
	"INTEGER": false,
	"BIGINT":  false,
	"NUMERIC": false,
	"BOOLEAN": false,
}

// Validate checks a definition against the target table's columns. All
// problems are collected so the operator can fix them in one pass; a non-nil
// return is always a *pipeline.SchemaValidationError.
func Validate(def Definition, columns []string) error {
	var problems []string

	if !namePattern.MatchString(def.Name) {
		problems = append(problems, fmt.Sprintf(
			"name %q must start with a letter and contain only letters, digits, and underscores", def.Name))
	}

	typ := strings.ToUpper(strings.TrimSpace(def.OutputType))
	lengthRequired, ok := outputTypes[typ]
	if !ok {
		problems = append(problems, fmt.Sprintf("unsupported output type %q", def.OutputType))
	} else if lengthRequired && (def.OutputLength < 1 || def.OutputLength > MaxVarcharLength) {
		problems = append(problems, fmt.Sprintf(
			"%s length must be between 1 and %d", typ, MaxVarcharLength))
	}

	colSet := make(map[string]bool, len(columns))
	for _, c := range columns {
		colSet[strings.ToUpper(c)] = true
	}
	if colSet[strings.ToUpper(def.Name)] {
		problems = append(problems, fmt.Sprintf("column %q already exists on the table", def.Name))
	}

	switch def.Mode {
	case ModeRules:
		problems = append(problems, validateRules(def, colSet)...)
	case ModeFormula:
		if err := ValidateFormula(def.Formula, columns); err != nil {
			problems = append(problems, err.Error())
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown mode %q", def.Mode))
	}

	if len(problems) > 0 {
		return &pipeline.SchemaValidationError{Problems: problems}
	}
	return nil
}

func validateRules(def Definition, colSet map[string]bool) []string {
	var problems []string

	if len(def.Rules) == 0 {
		problems = append(problems, "at least one rule is required")
	}
	if strings.TrimSpace(def.DefaultValue) == "" {
		problems = append(problems, "a default value is required")
	}

	for i, r := range def.Rules {
		if len(r.Conditions) == 0 {
			problems = append(problems, fmt.Sprintf("rule %d has no conditions", i+1))
		}
		logic := strings.ToUpper(r.ConditionLogic)
		if logic != "" && logic != "AND" && logic != "OR" {
			problems = append(problems, fmt.Sprintf("rule %d: condition logic must be AND or OR", i+1))
		}
		if strings.TrimSpace(r.OutputValue) == "" {
			problems = append(problems, fmt.Sprintf("rule %d has no output value", i+1))
		}
		for j, c := range r.Conditions {
			if c.Variable == "" {
				problems = append(problems, fmt.Sprintf("rule %d condition %d has no column", i+1, j+1))
			} else if !colSet[strings.ToUpper(c.Variable)] {
				problems = append(problems, fmt.Sprintf(
					"rule %d condition %d references unknown column %q", i+1, j+1, c.Variable))
			}
			if !c.Operator.known() {
				problems = append(problems, fmt.Sprintf(
					"rule %d condition %d has unknown operator %q", i+1, j+1, c.Operator))
			} else if c.Operator.needsValue() && c.Value == "" {
				problems = append(problems, fmt.Sprintf(
					"rule %d condition %d operator %s requires a value", i+1, j+1, c.Operator))
			}
		}
	}
	return problems
}

// columnType renders the SQL type for the new column.
func columnType(def Definition) string {
	typ := strings.ToUpper(strings.TrimSpace(def.OutputType))
	if outputTypes[typ] {
		return fmt.Sprintf("%s(%d)", typ, def.OutputLength)
	}
	return typ
}
