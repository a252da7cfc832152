package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/datalift/listprep/internal/format"
	"github.com/datalift/listprep/internal/pipeline"
)

// envelope is the common response shape: every reply carries success and a
// message alongside the payload fields.
type envelope map[string]any

// writeJSON encodes v and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// writeFailure writes a client-safe error body in the envelope shape.
func writeFailure(w http.ResponseWriter, status int, msg pipeline.UserMessage) {
	writeJSON(w, status, envelope{
		"success": false,
		"message": msg.Message,
		"code":    msg.Code,
		"action":  msg.Action,
	})
}

// respondError logs the technical error and returns the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := pipeline.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeFailure(w, statusFor(err), msg)
}

// statusFor picks the HTTP status for a mapped error.
func statusFor(err error) int {
	var (
		parseErr   *format.ParseError
		schemaErr  *pipeline.SchemaValidationError
		ruleErr    *pipeline.RuleEvaluationError
		extractErr *pipeline.ExtractionValidationError
	)
	switch {
	case errors.Is(err, format.ErrUnsupportedFormat),
		errors.As(err, &parseErr),
		errors.As(err, &schemaErr),
		errors.As(err, &extractErr),
		errors.As(err, &ruleErr),
		errors.Is(err, pipeline.ErrUnmappedHeaders):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
