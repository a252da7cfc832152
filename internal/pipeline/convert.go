package pipeline

// convert.go turns raw cell strings into pgtype values for bulk loading.
// Invalid or empty values load as NULL rather than failing the batch: the
// inferred type comes from a single sampled row, so later rows of another
// shape are expected.

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/datalift/listprep/internal/dataset"
	"github.com/datalift/listprep/internal/format"
)

// convertValue maps a raw cell to the pgx value for its column type. A nil
// return loads as SQL NULL.
func convertValue(raw string, present bool, t dataset.ColumnType) any {
	if !present {
		return nil
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	switch t {
	case dataset.TypeInteger:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return pgtype.Int8{Int64: i, Valid: true}
		}
		return nil
	case dataset.TypeReal:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return pgtype.Float8{Float64: f, Valid: true}
		}
		return nil
	case dataset.TypeBoolean:
		switch strings.ToLower(s) {
		case "true", "t", "yes", "y":
			return pgtype.Bool{Bool: true, Valid: true}
		case "false", "f", "no", "n":
			return pgtype.Bool{Bool: false, Valid: true}
		}
		return nil
	case dataset.TypeDate:
		if ts, ok := format.ParseDate(s); ok {
			return pgtype.Timestamp{Time: ts, Valid: true}
		}
		return nil
	default:
		if len(s) > maxTextLength {
			s = s[:maxTextLength]
		}
		return pgtype.Text{String: s, Valid: true}
	}
}

// maxTextLength matches the bounded VARCHAR storage for TEXT columns.
const maxTextLength = 500
