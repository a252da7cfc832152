package format

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// utf8BOM is the byte-order mark Windows tools prepend to text exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sanitizeText strips a UTF-8 BOM and replaces invalid UTF-8 sequences with
// the Unicode replacement character. Applied to every text-based upload
// before parsing so downstream code can assume valid UTF-8.
func sanitizeText(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}

// CleanCell normalizes a raw cell value:
//   - trims whitespace
//   - unwraps the Excel formula-literal form ="value"
//   - strips surrounding quote characters
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) > 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
