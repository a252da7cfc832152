package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// TablePrefix starts every materialized table name, making the whole family
// of uploaded tables discoverable by prefix.
const TablePrefix = "uploaded_"

// maxBaseNameLen bounds the sanitized base so the final name stays inside
// Postgres's 63-byte identifier limit with prefix and timestamp attached.
const maxBaseNameLen = 35

// SanitizeBaseName turns an operator-supplied base name into a safe SQL
// identifier fragment: lower-cased, disallowed runes replaced with
// underscores, prefixed when it would start with a digit.
func SanitizeBaseName(base string) string {
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		base = "batch"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLower(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		out = "t_" + out
	}
	if len(out) > maxBaseNameLen {
		out = out[:maxBaseNameLen]
	}
	return out
}

// BuildTableName generates a globally unique table name for a batch by
// appending a millisecond build timestamp to the sanitized base. Uniqueness
// across concurrent requests relies on the timestamp, not a lock.
func BuildTableName(base string, now time.Time) string {
	return fmt.Sprintf("%s%s_%d", TablePrefix, SanitizeBaseName(base), now.UnixMilli())
}

// QuoteIdentifier wraps a SQL identifier in double quotes, doubling any
// embedded quotes. Used everywhere a generated name is interpolated into SQL.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sanitizeColumnName converts an arbitrary header into a safe column name.
// Header text is already upper-cased by the mapping layer; column names keep
// that casing (quoted everywhere they are used).
func sanitizeColumnName(header string) string {
	var b strings.Builder
	for _, r := range header {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "COL"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "C_" + out
	}
	return out
}
