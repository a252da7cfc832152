package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datalift/listprep/internal/dataset"
	"github.com/datalift/listprep/internal/format"
	"github.com/datalift/listprep/internal/mapping"
)

// BatchFile is one uploaded file within a processing request.
type BatchFile struct {
	Name         string
	Data         []byte
	CustomHeader []string // for headerless .txt files
}

// ProcessRequest carries everything needed to run one batch end to end.
type ProcessRequest struct {
	Files         []BatchFile
	Project       string // base for the table name
	Vendor        string
	Client        string
	AllowUnmapped bool
}

// ProcessResult reports the outcome of a batch.
type ProcessResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	SessionID    string   `json:"sessionId"`
	TableName    string   `json:"tableName,omitempty"`
	Headers      []string `json:"headers,omitempty"`
	RowsInserted int      `json:"rowsInserted"`
	RowsTotal    int      `json:"rowsTotal"`
	Unmapped     []string `json:"unmappedHeaders,omitempty"`
	Excluded     []string `json:"excludedHeaders,omitempty"`
}

// ProcessBatch runs the full pipeline for one request: parse every file,
// merge, strip exclusions, resolve headers, and materialize. Any parse
// failure aborts the whole batch before a table exists. Files within a batch
// are parsed sequentially.
func (s *Service) ProcessBatch(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	sessionID := uuid.New().String()
	start := time.Now()
	log := slog.With("session_id", sessionID, "files", len(req.Files))

	result := &ProcessResult{SessionID: sessionID}

	if len(req.Files) == 0 {
		return result, &format.ParseError{FileName: "(batch)", Reason: "no files submitted"}
	}

	// Parse phase: all files must parse before anything is persisted.
	parsed := make([]*dataset.Parsed, 0, len(req.Files))
	for _, f := range req.Files {
		p, err := format.Parse(f.Data, f.Name, format.Options{CustomHeader: f.CustomHeader})
		if err != nil {
			log.Warn("batch aborted by parse failure", "file", f.Name, "error", err)
			return result, err
		}
		parsed = append(parsed, p)
	}

	merged := dataset.Merge(parsed)
	result.RowsTotal = len(merged.Rows)

	// Exclusions are enforced before mapping: an excluded header never
	// reaches resolution, regardless of rules that reference it.
	exclusions, err := s.maps.ExclusionSet(ctx)
	if err != nil {
		return result, err
	}
	merged, excluded := applyExclusions(merged, exclusions)
	result.Excluded = excluded

	rules, err := s.maps.ListRules(ctx, req.Vendor, req.Client)
	if err != nil {
		return result, err
	}
	resolver, err := mapping.NewResolver(rules, req.Vendor, req.Client)
	if err != nil {
		return result, err
	}

	renames, unmapped := resolveHeaders(merged, resolver)
	result.Unmapped = unmapped
	if len(unmapped) > 0 && !req.AllowUnmapped {
		log.Warn("batch rejected for unmapped headers", "unmapped", unmapped)
		return result, ErrUnmappedHeaders
	}
	merged = merged.RenameColumns(renames)

	table, err := s.Materialize(ctx, merged, req.Project)
	if err != nil {
		return result, err
	}

	result.Success = true
	result.TableName = table.Name
	result.RowsInserted = table.RowCount
	for _, c := range table.Columns {
		result.Headers = append(result.Headers, c.Name)
	}
	result.Message = fmt.Sprintf("Processed %d file(s) into %s (%d of %d rows).",
		len(req.Files), table.Name, result.RowsInserted, result.RowsTotal)

	log.Info("batch processed",
		"table", table.Name,
		"rows", result.RowsInserted,
		"elapsed", time.Since(start))

	return result, nil
}

// applyExclusions drops globally excluded headers from the merged dataset.
// Comparison is case-insensitive; provenance columns are never excluded.
func applyExclusions(m *dataset.Merged, exclusions map[string]bool) (*dataset.Merged, []string) {
	if len(exclusions) == 0 {
		return m, nil
	}

	drop := make(map[string]bool)
	var dropped []string
	for _, h := range m.Headers {
		if isProvenance(h.Name) {
			continue
		}
		if exclusions[strings.ToUpper(h.Name)] {
			drop[h.Name] = true
			dropped = append(dropped, strings.ToUpper(h.Name))
		}
	}
	return m.DropColumns(drop), dropped
}

// resolveHeaders maps every non-provenance header through the resolver.
// All headers end up upper-cased; unmapped ones are reported, not dropped.
func resolveHeaders(m *dataset.Merged, r *mapping.Resolver) (map[string]string, []string) {
	renames := make(map[string]string, len(m.Headers))
	var unmapped []string

	for _, h := range m.Headers {
		if isProvenance(h.Name) {
			continue
		}
		res := r.Resolve(h.Name)
		if res.Matched {
			renames[h.Name] = res.Mapped
		} else {
			renames[h.Name] = res.Original // upper-cased passthrough
			unmapped = append(unmapped, res.Original)
		}
	}
	return renames, unmapped
}

func isProvenance(name string) bool {
	return name == dataset.SourceFileColumn || name == dataset.FileIndexColumn
}
