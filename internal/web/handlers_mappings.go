package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/datalift/listprep/internal/mapping"
	"github.com/datalift/listprep/internal/pipeline"
)

// handleListMappings returns mapping rules visible to the ?vendor=&client=
// scope; with no filter, all rules.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Mappings().ListRules(r.Context(),
		r.URL.Query().Get("vendor"), r.URL.Query().Get("client"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":  true,
		"message":  "ok",
		"mappings": rules,
	})
}

// handleSaveMappings bulk-upserts rules.
func (s *Server) handleSaveMappings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mappings []mapping.Rule `json:"mappings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, badJSON())
		return
	}
	if len(body.Mappings) == 0 {
		writeFailure(w, http.StatusBadRequest, pipeline.UserMessage{
			Code: "VAL001", Message: "No mappings supplied.", Action: "Include at least one mapping rule.",
		})
		return
	}

	saved, err := s.svc.Mappings().SaveRules(r.Context(), body.Mappings)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Mappings saved.",
		"saved":   saved,
	})
}

// handleDeleteMapping removes one rule by its natural key.
func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Original string `json:"original"`
		Vendor   string `json:"vendor"`
		Client   string `json:"client"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, badJSON())
		return
	}

	if err := s.svc.Mappings().DeleteRule(r.Context(), body.Original, body.Vendor, body.Client); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Mapping deleted."})
}

func (s *Server) handleListExclusions(w http.ResponseWriter, r *http.Request) {
	exclusions, err := s.svc.Mappings().ListExclusions(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":    true,
		"message":    "ok",
		"exclusions": exclusions,
	})
}

func (s *Server) handleSaveExclusion(w http.ResponseWriter, r *http.Request) {
	var e mapping.Exclusion
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeFailure(w, http.StatusBadRequest, badJSON())
		return
	}
	s.saveExclusion(w, r, e)
}

// handleSaveExclusionNamed upserts the exclusion named in the path; the body
// optionally carries a description.
func (s *Server) handleSaveExclusionNamed(w http.ResponseWriter, r *http.Request) {
	e := mapping.Exclusion{Name: chi.URLParam(r, "name")}
	// body is optional for PUT
	_ = json.NewDecoder(r.Body).Decode(&e)
	e.Name = chi.URLParam(r, "name")
	s.saveExclusion(w, r, e)
}

func (s *Server) saveExclusion(w http.ResponseWriter, r *http.Request, e mapping.Exclusion) {
	if err := s.svc.Mappings().SaveExclusion(r.Context(), e); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Exclusion saved."})
}

func (s *Server) handleDeleteExclusion(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Mappings().DeleteExclusion(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Exclusion deleted."})
}

func badJSON() pipeline.UserMessage {
	return pipeline.UserMessage{
		Code:    "VAL002",
		Message: "The request body is not valid JSON.",
		Action:  "Check the request payload and try again.",
	}
}
