package web

import (
	"encoding/json"
	"net/http"

	"github.com/datalift/listprep/internal/variable"
)

type variableRequest struct {
	Table      string              `json:"table"`
	Definition variable.Definition `json:"definition"`
	SampleSize int                 `json:"sampleSize,omitempty"`
}

// handleVariablePreview evaluates a definition against a bounded sample
// without touching the table.
func (s *Server) handleVariablePreview(w http.ResponseWriter, r *http.Request) {
	var req variableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, badJSON())
		return
	}

	res, err := s.vars.Preview(r.Context(), req.Table, req.Definition, req.SampleSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	message := "Preview generated."
	if !res.Valid {
		message = "The definition has validation problems."
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":         res.Valid,
		"message":         message,
		"problems":        res.Problems,
		"sample":          res.Sample,
		"suggestedLength": res.SuggestedLength,
	})
}

// handleVariableApply adds the computed column and backfills it.
func (s *Server) handleVariableApply(w http.ResponseWriter, r *http.Request) {
	var req variableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, badJSON())
		return
	}

	res, err := s.vars.Apply(r.Context(), req.Table, req.Definition)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"message":     "Computed variable applied.",
		"table":       res.Table,
		"column":      res.Column,
		"rowsUpdated": res.RowsUpdated,
		"elapsedMs":   res.Elapsed.Milliseconds(),
	})
}

// handleVariableRemove drops a computed column.
func (s *Server) handleVariableRemove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Table  string `json:"table"`
		Column string `json:"column"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, badJSON())
		return
	}

	if err := s.vars.Remove(r.Context(), req.Table, req.Column); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Column removed.",
		"table":   req.Table,
		"column":  req.Column,
	})
}
