package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/datalift/listprep/internal/pipeline"
)

// TableAccess is the column-discovery surface the engine needs. Satisfied by
// *pipeline.Service.
type TableAccess interface {
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// Engine runs extractions against materialized tables, writing one CSV file
// and one derivative table per partition.
type Engine struct {
	db        pipeline.DB
	tables    TableAccess
	outputDir string
	altClient string
}

// NewEngine creates an extraction engine. altClient identifies the client
// whose cohort classifies by CELL_ONLY instead of SOURCE.
func NewEngine(db pipeline.DB, tables TableAccess, outputDir, altClient string) *Engine {
	return &Engine{db: db, tables: tables, outputDir: outputDir, altClient: altClient}
}

// outputSpec is one planned partition before files and tables exist.
type outputSpec struct {
	fileType   FileType
	rank       int // 0 for primary outputs, 2..MaxDuplicateRank for overflow
	rows       []Row
	conditions string
}

// Extract validates the request, partitions the table's rows, and produces
// one CSV file plus one derivative table per partition.
func (e *Engine) Extract(ctx context.Context, cfg Config) (*Result, error) {
	if err := e.validate(cfg); err != nil {
		return nil, err
	}

	start := time.Now()
	log := slog.With("table", cfg.Table, "mode", cfg.SplitMode)

	cols, err := e.tables.TableColumns(ctx, cfg.Table)
	if err != nil {
		return nil, err
	}
	selected, err := resolveSelected(cfg.SelectedHeaders, cols)
	if err != nil {
		return nil, err
	}

	rows, err := e.fetchRows(ctx, cfg.Table, cols)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var specs []outputSpec

	if cfg.SplitMode == ModeAll {
		specs = append(specs, outputSpec{
			fileType:   cfg.FileType,
			rows:       rows,
			conditions: "all records",
		})
	} else {
		specs, res.Household = e.splitPartitions(cfg, rows)
	}

	headers := outputHeaders(selected)
	for _, spec := range specs {
		desc, err := e.produce(ctx, cfg.Table, spec, headers)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, *desc)
	}

	log.Info("extraction complete",
		"files", len(res.Files),
		"rows", len(rows),
		"elapsed", time.Since(start))
	return res, nil
}

func (e *Engine) validate(cfg Config) error {
	if !pipeline.ValidTableName(cfg.Table) {
		return &pipeline.ExtractionValidationError{Reason: "invalid table name"}
	}
	if len(cfg.SelectedHeaders) == 0 {
		return &pipeline.ExtractionValidationError{Reason: "no headers selected"}
	}
	switch cfg.SplitMode {
	case ModeAll:
		if cfg.FileType != FileTypeLandline && cfg.FileType != FileTypeCell {
			return &pipeline.ExtractionValidationError{Reason: "file type must be landline or cell"}
		}
	case ModeSplit:
		if !e.altCohort(cfg) && strings.TrimSpace(cfg.AgeRangeThreshold) == "" {
			return &pipeline.ExtractionValidationError{Reason: "split mode requires an age range threshold"}
		}
	default:
		return &pipeline.ExtractionValidationError{Reason: "split mode must be all or split"}
	}
	return nil
}

// altCohort reports whether the request's client classifies by CELL_ONLY.
func (e *Engine) altCohort(cfg Config) bool {
	return e.altClient != "" && strings.EqualFold(cfg.Client, e.altClient)
}

// splitPartitions classifies every row into landline or cell, then runs
// householding over the landline side when enabled. The alternate cohort
// classifies by its boolean and never households.
func (e *Engine) splitPartitions(cfg Config, rows []Row) ([]outputSpec, *HouseholdStats) {
	alt := e.altCohort(cfg)

	var landline, cell []Row
	for _, row := range rows {
		var t FileType
		if alt {
			t = ClassifyAlt(row)
		} else {
			t = Classify(row, cfg.AgeRangeThreshold)
		}
		if t == FileTypeLandline {
			landline = append(landline, row)
		} else {
			cell = append(cell, row)
		}
	}

	var (
		specs []outputSpec
		stats *HouseholdStats
	)

	landlineCond := fmt.Sprintf("SOURCE=L or SOURCE=B with %s >= %s",
		ColumnAgeRange, cfg.AgeRangeThreshold)
	cellCond := "remaining records"
	if alt {
		landlineCond = ColumnCellOnly + " false"
		cellCond = ColumnCellOnly + " true"
	}

	if cfg.HouseholdingEnabled && !alt {
		var parts []Partition
		parts, stats = Household(landline, ColumnPhone)
		for _, p := range parts {
			spec := outputSpec{fileType: FileTypeLandline, rows: p.Rows, conditions: landlineCond}
			if p.Rank > 1 {
				spec.rank = p.Rank
				spec.conditions = fmt.Sprintf("%s, duplicate phone rank %d", landlineCond, p.Rank)
			}
			specs = append(specs, spec)
		}
	} else {
		specs = append(specs, outputSpec{fileType: FileTypeLandline, rows: landline, conditions: landlineCond})
	}

	specs = append(specs, outputSpec{fileType: FileTypeCell, rows: cell, conditions: cellCond})
	return specs, stats
}

// fetchRows reads the whole table in insertion order as text values.
func (e *Engine) fetchRows(ctx context.Context, table string, cols []string) ([]Row, error) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pipeline.QuoteIdentifier(c) + "::text"
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "),
		pipeline.QuoteIdentifier(table),
		pipeline.QuoteIdentifier(pipeline.RowIDColumn))

	rows, err := e.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	var out []Row
	vals := make([]*string, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if vals[i] != nil {
				row[strings.ToUpper(c)] = *vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// produce writes one partition: the CSV file in the output directory and the
// matching derivative table. A failed table load drops the table and fails
// the extraction.
func (e *Engine) produce(ctx context.Context, source string, spec outputSpec, headers []string) (*FileDescriptor, error) {
	name := derivativeName(source, spec.fileType, spec.rank)
	records := outputRecords(spec.rows, headers, phoneColumn(spec.fileType))

	path, err := writeCSV(e.outputDir, strings.ToUpper(name)+".csv", headers, records)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}

	if err := e.loadDerivative(ctx, name, headers, records); err != nil {
		return nil, err
	}

	return &FileDescriptor{
		Filename:          strings.ToUpper(name) + ".csv",
		Path:              path,
		Table:             name,
		RecordCount:       len(records),
		AppliedConditions: spec.conditions,
		Headers:           headers,
	}, nil
}

// derivativeName builds the partition's table name from the source table and
// the LSAM_/CSAM_ convention, so the family is discoverable by prefix.
func derivativeName(source string, t FileType, rank int) string {
	prefix := "lsam_"
	if t == FileTypeCell {
		prefix = "csam_"
	}
	name := prefix + strings.ToLower(source)
	if rank > 1 {
		name = fmt.Sprintf("%s_dup%d", name, rank)
	}
	return name
}

// loadDerivative persists a partition as a table of VARCHAR columns via the
// COPY protocol, mirroring how source tables are loaded.
func (e *Engine) loadDerivative(ctx context.Context, name string, headers []string, records [][]string) error {
	parts := make([]string, 0, len(headers)+1)
	parts = append(parts, pipeline.QuoteIdentifier(pipeline.RowIDColumn)+" BIGSERIAL PRIMARY KEY")
	for _, h := range headers {
		parts = append(parts, pipeline.QuoteIdentifier(h)+" VARCHAR(500)")
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", pipeline.QuoteIdentifier(name), strings.Join(parts, ", "))
	if _, err := e.db.Exec(ctx, ddl); err != nil {
		return &pipeline.TableCreationError{Table: name, Stage: "create", Err: err}
	}

	copyRows := make([][]any, len(records))
	for i, rec := range records {
		vals := make([]any, len(rec))
		for j, v := range rec {
			if v == "" {
				vals[j] = nil
			} else {
				vals[j] = v
			}
		}
		copyRows[i] = vals
	}

	if _, err := e.db.CopyFrom(ctx, pgx.Identifier{name}, headers, pgx.CopyFromRows(copyRows)); err != nil {
		cleanup := context.WithoutCancel(ctx)
		if _, dropErr := e.db.Exec(cleanup,
			"DROP TABLE IF EXISTS "+pipeline.QuoteIdentifier(name)); dropErr != nil {
			slog.Error("cleanup of failed derivative load failed", "table", name, "error", dropErr)
		}
		return &pipeline.TableCreationError{Table: name, Stage: "load", Err: err}
	}
	return nil
}

// resolveSelected maps the requested headers onto the table's real columns,
// case-insensitively, preserving request order.
func resolveSelected(requested, cols []string) ([]string, error) {
	byUpper := make(map[string]string, len(cols))
	for _, c := range cols {
		byUpper[strings.ToUpper(c)] = c
	}

	out := make([]string, 0, len(requested))
	for _, h := range requested {
		c, ok := byUpper[strings.ToUpper(h)]
		if !ok {
			return nil, &pipeline.ExtractionValidationError{
				Reason: fmt.Sprintf("selected header %q is not a column of the table", h)}
		}
		out = append(out, strings.ToUpper(c))
	}
	return out, nil
}

// outputHeaders appends the assigned phone slot unless already selected.
func outputHeaders(selected []string) []string {
	for _, h := range selected {
		if h == ColumnAssignedPhone {
			return selected
		}
	}
	return append(append([]string{}, selected...), ColumnAssignedPhone)
}

// outputRecords renders rows as ordered string records, filling
// ASSIGNED_PHONE from the partition's phone column.
func outputRecords(rows []Row, headers []string, phoneCol string) [][]string {
	records := make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, len(headers))
		for j, h := range headers {
			if h == ColumnAssignedPhone {
				if v, ok := row[ColumnAssignedPhone]; ok && v != "" {
					rec[j] = v
				} else {
					rec[j] = row[phoneCol]
				}
				continue
			}
			rec[j] = row[h]
		}
		records[i] = rec
	}
	return records
}
