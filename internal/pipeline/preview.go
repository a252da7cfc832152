package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// tableNamePattern restricts table-addressing operations to the naming
// families this service creates.
var tableNamePattern = regexp.MustCompile(`^(uploaded|lsam|csam)_[a-z0-9_]+$`)

// ValidTableName reports whether the name addresses a table this service
// could have produced. Guards every operation that interpolates a table
// identifier.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(strings.ToLower(name))
}

// TablePreviewResult is a bounded sample of a materialized table.
type TablePreviewResult struct {
	Table    string           `json:"table"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int64            `json:"rowCount"`
}

// DefaultPreviewLimit bounds preview sample size when the caller does not
// set one.
const DefaultPreviewLimit = 25

// TablePreview returns the table's columns, a bounded row sample in
// insertion order, and the total row count. Read-only.
func (s *Service) TablePreview(ctx context.Context, table string, limit int) (*TablePreviewResult, error) {
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}
	if limit <= 0 || limit > 500 {
		limit = DefaultPreviewLimit
	}

	// A newer preview of the same table supersedes an abandoned older one so
	// it does not hold a pool connection behind its replacement.
	ctx, release := s.guard.Supersede(ctx, "preview:"+table)
	defer release()

	cols, err := s.TableColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	res := &TablePreviewResult{Table: table, Columns: cols}

	if err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM "+QuoteIdentifier(table)).Scan(&res.RowCount); err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %d",
		strings.Join(quoted, ", "), QuoteIdentifier(table), QuoteIdentifier(RowIDColumn), limit)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}

// TableColumns lists the table's column names in ordinal order, excluding
// the synthetic row id.
func (s *Service) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_name = $1 ORDER BY ordinal_position`, strings.ToLower(table))
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		if c == RowIDColumn {
			continue
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table not found: %s", table)
	}
	return cols, nil
}

// AgeRanges returns the distinct values of the age-range column, retried
// briefly when the result set comes back empty (covers reads racing a
// just-finished load).
func (s *Service) AgeRanges(ctx context.Context, table string) ([]string, error) {
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}

	var out []string
	err := s.guard.RetryEmpty(ctx, func(ctx context.Context) (int, error) {
		out = out[:0]
		rows, err := s.db.Query(ctx, fmt.Sprintf(
			`SELECT DISTINCT "AGE_RANGE"::text FROM %s WHERE "AGE_RANGE" IS NOT NULL ORDER BY 1`,
			QuoteIdentifier(table)))
		if err != nil {
			return 0, fmt.Errorf("age ranges of %s: %w", table, err)
		}
		defer rows.Close()
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return 0, err
			}
			out = append(out, v)
		}
		return len(out), rows.Err()
	})
	return out, err
}

// DeleteTable drops a materialized table. With includeDerivatives it also
// drops every extraction derivative discovered by naming convention
// (lsam_<table>*, csam_<table>*).
func (s *Service) DeleteTable(ctx context.Context, table string, includeDerivatives bool) ([]string, error) {
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}

	targets := []string{strings.ToLower(table)}
	if includeDerivatives {
		derivatives, err := s.derivativeTables(ctx, strings.ToLower(table))
		if err != nil {
			return nil, err
		}
		targets = append(targets, derivatives...)
	}

	var dropped []string
	for _, t := range targets {
		if err := s.dropTable(ctx, t); err != nil {
			return dropped, fmt.Errorf("drop %s: %w", t, err)
		}
		dropped = append(dropped, t)
	}
	return dropped, nil
}

// derivativeTables finds extraction outputs belonging to the table family
// via the lsam_/csam_ prefix convention. No separate index is kept.
func (s *Service) derivativeTables(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND (table_name LIKE $1 OR table_name LIKE $2)`,
		"lsam_"+table+"%", "csam_"+table+"%")
	if err != nil {
		return nil, fmt.Errorf("discover derivatives of %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
