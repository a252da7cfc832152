// Package pipeline orchestrates the file-processing flow: parse, merge,
// header resolution, and materialization into Postgres tables, plus the
// table-level operations (preview, family delete) that address the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/datalift/listprep/internal/format"
)

// TableCreationError reports a materialization failure. When the CREATE
// itself failed nothing was loaded; when the bulk load failed the table has
// already been dropped by the cleanup path.
type TableCreationError struct {
	Table string
	Stage string // "create" or "load"
	Err   error
}

func (e *TableCreationError) Error() string {
	return fmt.Sprintf("%s table %s: %v", e.Stage, e.Table, e.Err)
}

func (e *TableCreationError) Unwrap() error { return e.Err }

// SchemaValidationError reports an invalid computed-variable definition or
// other schema-level validation failure. Carries every problem found so the
// operator can fix them in one pass.
type SchemaValidationError struct {
	Problems []string
}

func (e *SchemaValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// RuleEvaluationError surfaces a failure from the expression engine backing
// formula-mode computed variables.
type RuleEvaluationError struct {
	Expression string
	Err        error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("evaluate expression: %v", e.Err)
}

func (e *RuleEvaluationError) Unwrap() error { return e.Err }

// ExtractionValidationError reports an invalid extraction request.
type ExtractionValidationError struct {
	Reason string
}

func (e *ExtractionValidationError) Error() string {
	return "extraction request invalid: " + e.Reason
}

// ErrUnmappedHeaders is returned by ProcessBatch when unmapped headers are
// present and the request does not allow them. The process result carries
// the offending names.
var ErrUnmappedHeaders = errors.New("dataset contains unmapped headers")

// UserMessage is a client-safe rendering of an error: a stable code for
// support reference, a human-readable message, and a suggested action.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// MapError converts any pipeline error into a UserMessage. Unknown errors
// get a generic message so internals never leak to clients.
func MapError(err error) UserMessage {
	var (
		parseErr   *format.ParseError
		createErr  *TableCreationError
		schemaErr  *SchemaValidationError
		ruleErr    *RuleEvaluationError
		extractErr *ExtractionValidationError
	)

	switch {
	case errors.Is(err, format.ErrUnsupportedFormat):
		return UserMessage{
			Code:    "FMT001",
			Message: "This file format is not supported.",
			Action:  "Upload CSV, TSV, XLSX, JSON, XML, or TXT files.",
		}
	case errors.As(err, &parseErr):
		return UserMessage{
			Code:    "FMT002",
			Message: "The file could not be parsed: " + parseErr.Reason + ".",
			Action:  "Check that the file has a header row and at least one data column.",
		}
	case errors.As(err, &createErr):
		return UserMessage{
			Code:    "TBL001",
			Message: "The data table could not be created or loaded.",
			Action:  "Try the upload again; no partial table was left behind.",
		}
	case errors.As(err, &schemaErr):
		return UserMessage{
			Code:    "VAL001",
			Message: schemaErr.Error(),
			Action:  "Correct the definition and try again.",
		}
	case errors.As(err, &ruleErr):
		return UserMessage{
			Code:    "VAR001",
			Message: "The formula expression failed to evaluate.",
			Action:  "Check column names and expression syntax.",
		}
	case errors.As(err, &extractErr):
		return UserMessage{
			Code:    "EXT001",
			Message: extractErr.Error(),
			Action:  "Adjust the extraction settings and retry.",
		}
	case errors.Is(err, ErrUnmappedHeaders):
		return UserMessage{
			Code:    "MAP001",
			Message: "Some headers have no mapping rule.",
			Action:  "Add mapping rules, or re-submit with unmapped headers allowed.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{
			Code:    "SYS002",
			Message: "The operation timed out.",
			Action:  "Try again with a smaller file.",
		}
	case errors.Is(err, context.Canceled):
		return UserMessage{
			Code:    "SYS003",
			Message: "The operation was cancelled.",
		}
	default:
		return UserMessage{
			Code:    "SYS001",
			Message: "An unexpected error occurred.",
			Action:  "Try again; contact support with this code if it persists.",
		}
	}
}
