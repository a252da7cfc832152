package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/datalift/listprep/internal/dataset"
)

// RowIDColumn is the synthetic serial key prepended to every materialized
// table. It fixes the first-seen order that householding and previews rely
// on; it is never exported.
const RowIDColumn = "_row_id"

// ConstantDefinition is a fixed column appended to every materialized table
// with a literal default.
type ConstantDefinition struct {
	Name        string
	StorageType string
	Default     string // SQL literal
}

// ConstantColumns is the fixed, non-editable set applied to every batch.
var ConstantColumns = []ConstantDefinition{
	{Name: "LEAD_STATUS", StorageType: "VARCHAR(20)", Default: "'NEW'"},
	{Name: "CALL_ATTEMPTS", StorageType: "BIGINT", Default: "0"},
	{Name: "DO_NOT_CALL", StorageType: "BOOLEAN", Default: "FALSE"},
}

// Column describes one column of a materialized table.
type Column struct {
	Name        string `json:"name"`
	StorageType string `json:"storageType"`
	Default     string `json:"default,omitempty"`
}

// MaterializedTable describes the table produced for one batch.
type MaterializedTable struct {
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount int      `json:"rowCount"`
}

// storageType maps an inferred column type to its Postgres storage type.
func storageType(t dataset.ColumnType) string {
	switch t {
	case dataset.TypeInteger:
		return "BIGINT"
	case dataset.TypeReal:
		return "DOUBLE PRECISION"
	case dataset.TypeBoolean:
		return "BOOLEAN"
	case dataset.TypeDate:
		return "TIMESTAMP"
	default:
		return fmt.Sprintf("VARCHAR(%d)", maxTextLength)
	}
}

// Materialize persists a merged dataset as a new table named after base.
// The schema is one column per merged header plus the constant columns; the
// load is one CopyFrom. A failed load drops the table so no partial state
// survives.
func (s *Service) Materialize(ctx context.Context, merged *dataset.Merged, base string) (*MaterializedTable, error) {
	name := BuildTableName(base, time.Now())

	cols := make([]Column, 0, len(merged.Headers)+len(ConstantColumns))
	colNames := make([]string, 0, cap(cols))
	for _, h := range merged.Headers {
		cols = append(cols, Column{
			Name:        sanitizeColumnName(h.Name),
			StorageType: storageType(h.Type),
		})
	}
	for _, c := range ConstantColumns {
		cols = append(cols, Column{Name: c.Name, StorageType: c.StorageType, Default: c.Default})
	}
	for _, c := range cols {
		colNames = append(colNames, c.Name)
	}

	if err := s.createTable(ctx, name, cols); err != nil {
		return nil, &TableCreationError{Table: name, Stage: "create", Err: err}
	}

	inserted, err := s.bulkLoad(ctx, name, merged)
	if err != nil {
		// Drop-on-failure: never leave a created-but-unpopulated table behind.
		if dropErr := s.dropTable(context.WithoutCancel(ctx), name); dropErr != nil {
			slog.Error("cleanup after failed load also failed",
				"table", name, "error", dropErr)
		}
		return nil, &TableCreationError{Table: name, Stage: "load", Err: err}
	}

	slog.Info("table materialized", "table", name, "columns", len(cols), "rows", inserted)

	return &MaterializedTable{Name: name, Columns: cols, RowCount: inserted}, nil
}

func (s *Service) createTable(ctx context.Context, name string, cols []Column) error {
	parts := make([]string, 0, len(cols)+1)
	parts = append(parts, QuoteIdentifier(RowIDColumn)+" BIGSERIAL PRIMARY KEY")
	for _, c := range cols {
		def := fmt.Sprintf("%s %s", QuoteIdentifier(c.Name), c.StorageType)
		if c.Default != "" {
			def += " DEFAULT " + c.Default
		}
		parts = append(parts, def)
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdentifier(name), strings.Join(parts, ", "))
	_, err := s.db.Exec(ctx, ddl)
	return err
}

// bulkLoad copies every merged row into the table. Constant columns are left
// to their defaults by inserting explicit literals, keeping the COPY column
// list aligned with the row slices.
func (s *Service) bulkLoad(ctx context.Context, name string, merged *dataset.Merged) (int, error) {
	copyCols := make([]string, 0, len(merged.Headers)+len(ConstantColumns))
	for _, h := range merged.Headers {
		copyCols = append(copyCols, sanitizeColumnName(h.Name))
	}
	for _, c := range ConstantColumns {
		copyCols = append(copyCols, c.Name)
	}

	constants := make([]any, len(ConstantColumns))
	for i, c := range ConstantColumns {
		constants[i] = constantValue(c)
	}

	rows := make([][]any, len(merged.Rows))
	for i, row := range merged.Rows {
		vals := make([]any, 0, len(copyCols))
		for _, h := range merged.Headers {
			raw, ok := row[h.Name]
			vals = append(vals, convertValue(raw, ok, h.Type))
		}
		vals = append(vals, constants...)
		rows[i] = vals
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{name}, copyCols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// constantValue renders a constant column's SQL literal as a Go value for
// the COPY protocol.
func constantValue(c ConstantDefinition) any {
	lit := strings.TrimSpace(c.Default)
	switch {
	case lit == "":
		return nil
	case strings.HasPrefix(lit, "'") && strings.HasSuffix(lit, "'"):
		return strings.Trim(lit, "'")
	case strings.EqualFold(lit, "TRUE"):
		return true
	case strings.EqualFold(lit, "FALSE"):
		return false
	default:
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(lit, 64); err == nil {
			return f
		}
		return lit
	}
}

func (s *Service) dropTable(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, "DROP TABLE IF EXISTS "+QuoteIdentifier(name))
	return err
}
