package variable

import (
	"fmt"
	"strconv"
	"strings"
)

// Evaluate applies the definition's rules to one row and returns the output
// value. Rules run in order and the first match wins; when no rule matches
// the default value is returned. Column lookup is case-insensitive.
func Evaluate(def Definition, row map[string]any) string {
	for _, r := range def.Rules {
		if ruleMatches(r, row) {
			return r.OutputValue
		}
	}
	return def.DefaultValue
}

func ruleMatches(r Rule, row map[string]any) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	any := strings.EqualFold(r.ConditionLogic, "OR")
	for _, c := range r.Conditions {
		ok := conditionMatches(c, row)
		if any && ok {
			return true
		}
		if !any && !ok {
			return false
		}
	}
	return !any
}

func conditionMatches(c Condition, row map[string]any) bool {
	val, present := lookup(row, c.Variable)

	switch c.Operator {
	case OpIsEmpty:
		return !present || strings.TrimSpace(val) == ""
	case OpIsNotEmpty:
		return present && strings.TrimSpace(val) != ""
	}
	if !present {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return strings.EqualFold(strings.TrimSpace(val), strings.TrimSpace(c.Value))
	case OpNotEquals:
		return !strings.EqualFold(strings.TrimSpace(val), strings.TrimSpace(c.Value))
	case OpContains:
		return strings.Contains(strings.ToUpper(val), strings.ToUpper(c.Value))
	case OpStartsWith:
		return strings.HasPrefix(strings.ToUpper(val), strings.ToUpper(c.Value))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToUpper(val), strings.ToUpper(c.Value))
	case OpGreaterThan:
		return compare(val, c.Value) > 0
	case OpLessThan:
		return compare(val, c.Value) < 0
	case OpGreaterEqual:
		return compare(val, c.Value) >= 0
	case OpLessEqual:
		return compare(val, c.Value) <= 0
	}
	return false
}

// lookup finds a column value by case-insensitive name. A nil value counts
// as absent.
func lookup(row map[string]any, column string) (string, bool) {
	for k, v := range row {
		if strings.EqualFold(k, column) {
			if v == nil {
				return "", false
			}
			return fmt.Sprintf("%v", v), true
		}
	}
	return "", false
}

// compare orders two values numerically when both parse as numbers, falling
// back to case-insensitive string order otherwise.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToUpper(a), strings.ToUpper(b))
}
