package variable

import (
	"fmt"
	"strings"

	"github.com/datalift/listprep/internal/pipeline"
)

// buildCaseExpression renders the definition's rules as a single CASE
// expression for the backfill UPDATE. Every comparison and output value is
// bound as a parameter; only column names and operators are interpolated.
func buildCaseExpression(def Definition) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString("CASE")
	for _, r := range def.Rules {
		conds := make([]string, len(r.Conditions))
		for i, c := range r.Conditions {
			conds[i] = conditionSQL(c, next)
		}
		sep := " AND "
		if strings.EqualFold(r.ConditionLogic, "OR") {
			sep = " OR "
		}
		fmt.Fprintf(&b, " WHEN %s THEN %s", strings.Join(conds, sep), next(r.OutputValue))
	}
	fmt.Fprintf(&b, " ELSE %s END", next(def.DefaultValue))
	return b.String(), args
}

// conditionSQL renders one condition. Text comparisons go through ::text so
// the expression works against any stored column type; ordering comparisons
// cast both sides to numeric, with blanks nulled out so they never match.
func conditionSQL(c Condition, next func(any) string) string {
	col := pipeline.QuoteIdentifier(strings.ToUpper(c.Variable))

	switch c.Operator {
	case OpIsEmpty:
		return fmt.Sprintf("(%s IS NULL OR BTRIM(%s::text) = '')", col, col)
	case OpIsNotEmpty:
		return fmt.Sprintf("(%s IS NOT NULL AND BTRIM(%s::text) <> '')", col, col)
	case OpEquals:
		return fmt.Sprintf("UPPER(BTRIM(%s::text)) = UPPER(BTRIM(%s))", col, next(c.Value))
	case OpNotEquals:
		return fmt.Sprintf("UPPER(BTRIM(%s::text)) <> UPPER(BTRIM(%s))", col, next(c.Value))
	case OpContains:
		return fmt.Sprintf("POSITION(UPPER(%s) IN UPPER(%s::text)) > 0", next(c.Value), col)
	case OpStartsWith:
		return fmt.Sprintf("UPPER(%s::text) LIKE UPPER(%s) || '%%'", col, next(c.Value))
	case OpEndsWith:
		return fmt.Sprintf("UPPER(%s::text) LIKE '%%' || UPPER(%s)", col, next(c.Value))
	case OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual:
		return fmt.Sprintf("NULLIF(BTRIM(%s::text), '')::numeric %s %s::numeric",
			col, orderingOp(c.Operator), next(c.Value))
	}
	return "FALSE"
}

func orderingOp(o Operator) string {
	switch o {
	case OpGreaterThan:
		return ">"
	case OpLessThan:
		return "<"
	case OpGreaterEqual:
		return ">="
	default:
		return "<="
	}
}
