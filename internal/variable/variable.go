// Package variable implements computed variables: derived columns added to a
// materialized table, driven either by ordered condition/output rules or by a
// validated formula expression.
package variable

// Mode selects how a computed variable's values are produced.
type Mode string

const (
	ModeRules   Mode = "rules"
	ModeFormula Mode = "formula"
)

// Operator is a condition comparison. Ordering operators compare
// numerically when both sides parse as numbers.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "not_equals"
	OpGreaterThan  Operator = "greater_than"
	OpLessThan     Operator = "less_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessEqual    Operator = "less_equal"
	OpContains     Operator = "contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
	OpIsEmpty      Operator = "is_empty"
	OpIsNotEmpty   Operator = "is_not_empty"
)

// needsValue reports whether the operator compares against a value.
func (o Operator) needsValue() bool {
	return o != OpIsEmpty && o != OpIsNotEmpty
}

func (o Operator) known() bool {
	switch o {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterEqual,
		OpLessEqual, OpContains, OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// Condition compares one column against a value.
type Condition struct {
	Variable string   `json:"variable"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
}

// Rule bundles conditions with the value produced when they hold. Conditions
// combine with ConditionLogic (AND or OR).
type Rule struct {
	Conditions     []Condition `json:"conditions"`
	ConditionLogic string      `json:"conditionLogic"`
	OutputValue    string      `json:"outputValue"`
}

// Definition describes one computed variable against one target table.
// Rules are evaluated in order; the first matching rule wins and later rules
// are never consulted for that row.
type Definition struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	OutputType   string `json:"outputType"`
	OutputLength int    `json:"outputLength,omitempty"`
	Mode         Mode   `json:"mode"`
	Rules        []Rule `json:"rules,omitempty"`
	DefaultValue string `json:"defaultValue"`
	Formula      string `json:"formula,omitempty"`
}
