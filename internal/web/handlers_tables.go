package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/datalift/listprep/internal/extract"
)

// handleAgeRanges returns the distinct age-range values of ?table=.
func (s *Server) handleAgeRanges(w http.ResponseWriter, r *http.Request) {
	values, err := s.svc.AgeRanges(r.Context(), r.URL.Query().Get("table"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"message":   "ok",
		"ageRanges": values,
	})
}

// handleExtract runs an extraction and returns the produced file descriptors.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var cfg extract.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeFailure(w, http.StatusBadRequest, badJSON())
		return
	}

	res, err := s.ext.Extract(r.Context(), cfg)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":        true,
		"message":        "Extraction complete.",
		"files":          res.Files,
		"householdStats": res.Household,
	})
}

// handleTablePreview returns columns, a bounded row sample, and the total
// row count for ?table=&limit=.
func (s *Server) handleTablePreview(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := s.svc.TablePreview(r.Context(), r.URL.Query().Get("table"), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":  true,
		"message":  "ok",
		"table":    res.Table,
		"columns":  res.Columns,
		"rows":     res.Rows,
		"rowCount": res.RowCount,
	})
}

// handleDeleteTable drops a table, and with includeDerivatives the whole
// extraction family discovered by prefix.
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Table              string `json:"table"`
		IncludeDerivatives bool   `json:"includeDerivatives"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, badJSON())
		return
	}

	dropped, err := s.svc.DeleteTable(r.Context(), req.Table, req.IncludeDerivatives)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Table deleted.",
		"dropped": dropped,
	})
}
