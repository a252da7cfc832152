package variable

import (
	"fmt"
	"strings"
	"unicode"
)

// formulaKeywords are the SQL words a formula may use beyond the target
// table's own columns. Anything outside this list and the column allow-list
// is rejected before the expression ever reaches the database.
var formulaKeywords = map[string]bool{
	"CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"AND": true, "OR": true, "NOT": true, "IS": true, "NULL": true,
	"IN": true, "LIKE": true, "BETWEEN": true,
	"UPPER": true, "LOWER": true, "BTRIM": true, "TRIM": true,
	"LENGTH": true, "SUBSTRING": true, "CONCAT": true, "POSITION": true,
	"COALESCE": true, "NULLIF": true, "ROUND": true, "ABS": true,
	"CAST": true, "AS": true, "TEXT": true, "NUMERIC": true,
	"INTEGER": true, "BIGINT": true, "TRUE": true, "FALSE": true,
	"FOR": true, "FROM": true,
}

// ValidateFormula checks an operator-supplied expression against a narrow
// grammar: balanced parentheses, no statement separators or comments, and
// every identifier either a known SQL word or a column of the target table.
func ValidateFormula(formula string, columns []string) error {
	expr := strings.TrimSpace(formula)
	if expr == "" {
		return fmt.Errorf("formula is empty")
	}
	if strings.ContainsAny(expr, ";") ||
		strings.Contains(expr, "--") || strings.Contains(expr, "/*") {
		return fmt.Errorf("formula contains a statement separator or comment")
	}

	colSet := make(map[string]bool, len(columns))
	for _, c := range columns {
		colSet[strings.ToUpper(c)] = true
	}

	depth := 0
	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("formula has unbalanced parentheses")
			}
		case r == '\'':
			// string literal: skip to closing quote, '' escapes
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}
					break
				}
				i++
			}
			if i >= len(runes) {
				return fmt.Errorf("formula has an unterminated string literal")
			}
		case r == '"':
			// quoted identifier
			start := i + 1
			i++
			for i < len(runes) && runes[i] != '"' {
				i++
			}
			if i >= len(runes) {
				return fmt.Errorf("formula has an unterminated quoted identifier")
			}
			if ident := string(runes[start:i]); !colSet[strings.ToUpper(ident)] {
				return fmt.Errorf("formula references unknown column %q", ident)
			}
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			word := strings.ToUpper(string(runes[start:i]))
			i--
			if !formulaKeywords[word] && !colSet[word] {
				return fmt.Errorf("formula references unknown identifier %q", string(runes[start:i+1]))
			}
		case unicode.IsDigit(r) || unicode.IsSpace(r):
			// literals and whitespace
		case strings.ContainsRune("+-*/<>=,.%|", r):
			// arithmetic, comparison, concatenation
		default:
			return fmt.Errorf("formula contains disallowed character %q", r)
		}
	}
	if depth != 0 {
		return fmt.Errorf("formula has unbalanced parentheses")
	}
	return nil
}
