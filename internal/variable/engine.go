package variable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/datalift/listprep/internal/pipeline"
)

// TableAccess is what the engine needs from the table layer: column
// discovery and the per-table mutation lock. Satisfied by *pipeline.Service.
type TableAccess interface {
	TableColumns(ctx context.Context, table string) ([]string, error)
	TableLock(table string) *sync.Mutex
}

// Engine applies computed variables to materialized tables.
type Engine struct {
	db     pipeline.DB
	tables TableAccess
}

func NewEngine(db pipeline.DB, tables TableAccess) *Engine {
	return &Engine{db: db, tables: tables}
}

// SampleRow pairs a source row with the value the definition produces for it.
type SampleRow struct {
	Row   map[string]any `json:"row"`
	Value string         `json:"value"`
}

// PreviewResult reports what applying a definition would produce, without
// touching the table.
type PreviewResult struct {
	Valid           bool        `json:"valid"`
	Problems        []string    `json:"problems,omitempty"`
	Sample          []SampleRow `json:"sample,omitempty"`
	SuggestedLength int         `json:"suggestedLength,omitempty"`
}

// ApplyResult reports a completed backfill.
type ApplyResult struct {
	Table       string        `json:"table"`
	Column      string        `json:"column"`
	RowsUpdated int64         `json:"rowsUpdated"`
	Elapsed     time.Duration `json:"elapsedMs"`
}

// DefaultSampleSize bounds preview evaluation when the caller does not set
// a sample size.
const DefaultSampleSize = 20

// Preview validates the definition and evaluates it against a bounded sample
// of the table. Validation problems come back in the result, not as an
// error; errors are reserved for table-level failures. Read-only.
func (e *Engine) Preview(ctx context.Context, table string, def Definition, sampleSize int) (*PreviewResult, error) {
	if !pipeline.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}
	if sampleSize <= 0 || sampleSize > 200 {
		sampleSize = DefaultSampleSize
	}

	cols, err := e.tables.TableColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{}
	if err := Validate(def, cols); err != nil {
		var verr *pipeline.SchemaValidationError
		if errors.As(err, &verr) {
			res.Problems = verr.Problems
			return res, nil
		}
		return nil, err
	}
	res.Valid = true

	switch def.Mode {
	case ModeFormula:
		err = e.previewFormula(ctx, table, def, sampleSize, res)
	default:
		err = e.previewRules(ctx, table, def, sampleSize, res)
	}
	if err != nil {
		return nil, err
	}

	for _, s := range res.Sample {
		if n := len(s.Value); n > res.SuggestedLength {
			res.SuggestedLength = n
		}
	}
	if n := len(def.DefaultValue); def.Mode == ModeRules && n > res.SuggestedLength {
		res.SuggestedLength = n
	}
	return res, nil
}

func (e *Engine) previewRules(ctx context.Context, table string, def Definition, sampleSize int, res *PreviewResult) error {
	rows, err := e.db.Query(ctx, fmt.Sprintf(
		"SELECT * FROM %s ORDER BY %s LIMIT %d",
		pipeline.QuoteIdentifier(table), pipeline.QuoteIdentifier(pipeline.RowIDColumn), sampleSize))
	if err != nil {
		return fmt.Errorf("sample %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return err
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			if f.Name == pipeline.RowIDColumn {
				continue
			}
			row[f.Name] = vals[i]
		}
		res.Sample = append(res.Sample, SampleRow{Row: row, Value: Evaluate(def, row)})
	}
	return rows.Err()
}

// previewFormula runs the already-validated expression through the database
// so preview and backfill agree on semantics.
func (e *Engine) previewFormula(ctx context.Context, table string, def Definition, sampleSize int, res *PreviewResult) error {
	rows, err := e.db.Query(ctx, fmt.Sprintf(
		"SELECT (%s)::text FROM %s ORDER BY %s LIMIT %d",
		def.Formula, pipeline.QuoteIdentifier(table),
		pipeline.QuoteIdentifier(pipeline.RowIDColumn), sampleSize))
	if err != nil {
		return &pipeline.RuleEvaluationError{Expression: def.Formula, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var v *string
		if err := rows.Scan(&v); err != nil {
			return err
		}
		s := SampleRow{}
		if v != nil {
			s.Value = *v
		}
		res.Sample = append(res.Sample, s)
	}
	return rows.Err()
}

// Apply adds the column and backfills it in a single UPDATE. The table's
// mutation lock is held for the whole alter-and-backfill sequence so
// concurrent applies cannot interleave schema changes. A failed backfill
// drops the new column again.
func (e *Engine) Apply(ctx context.Context, table string, def Definition) (*ApplyResult, error) {
	if !pipeline.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}

	cols, err := e.tables.TableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := Validate(def, cols); err != nil {
		return nil, err
	}

	mu := e.tables.TableLock(table)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	column := strings.ToUpper(def.Name)
	log := slog.With("table", table, "column", column)

	if _, err := e.db.Exec(ctx, fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN %s %s",
		pipeline.QuoteIdentifier(table), pipeline.QuoteIdentifier(column), columnType(def))); err != nil {
		return nil, fmt.Errorf("add column %s: %w", column, err)
	}

	var expr string
	var args []any
	if def.Mode == ModeFormula {
		expr = "(" + def.Formula + ")"
	} else {
		expr, args = buildCaseExpression(def)
	}

	tag, err := e.db.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET %s = %s",
		pipeline.QuoteIdentifier(table), pipeline.QuoteIdentifier(column), expr), args...)
	if err != nil {
		e.dropColumn(ctx, table, column)
		if def.Mode == ModeFormula {
			return nil, &pipeline.RuleEvaluationError{Expression: def.Formula, Err: err}
		}
		return nil, fmt.Errorf("backfill %s: %w", column, err)
	}

	res := &ApplyResult{
		Table:       table,
		Column:      column,
		RowsUpdated: tag.RowsAffected(),
		Elapsed:     time.Since(start),
	}
	log.Info("computed variable applied", "rows", res.RowsUpdated, "elapsed", res.Elapsed)
	return res, nil
}

// Remove drops a computed column. Permanent; the per-table lock serializes
// it against concurrent applies.
func (e *Engine) Remove(ctx context.Context, table, column string) error {
	if !pipeline.ValidTableName(table) {
		return fmt.Errorf("invalid table name: %s", table)
	}
	if !namePattern.MatchString(column) || column == pipeline.RowIDColumn {
		return fmt.Errorf("invalid column name: %s", column)
	}

	mu := e.tables.TableLock(table)
	mu.Lock()
	defer mu.Unlock()

	if _, err := e.db.Exec(ctx, fmt.Sprintf(
		"ALTER TABLE %s DROP COLUMN %s",
		pipeline.QuoteIdentifier(table), pipeline.QuoteIdentifier(column))); err != nil {
		return fmt.Errorf("drop column %s: %w", column, err)
	}
	slog.Info("computed variable removed", "table", table, "column", column)
	return nil
}

// dropColumn is the compensating cleanup after a failed backfill. The drop
// runs on a detached context so cancellation of the request cannot leave a
// half-filled column behind.
func (e *Engine) dropColumn(ctx context.Context, table, column string) {
	cleanup := context.WithoutCancel(ctx)
	if _, err := e.db.Exec(cleanup, fmt.Sprintf(
		"ALTER TABLE %s DROP COLUMN IF EXISTS %s",
		pipeline.QuoteIdentifier(table), pipeline.QuoteIdentifier(column))); err != nil {
		slog.Error("cleanup of failed backfill column failed",
			"table", table, "column", column, "error", err)
	}
}
