package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/datalift/listprep/internal/format"
	"github.com/datalift/listprep/internal/logging"
	"github.com/datalift/listprep/internal/pipeline"
)

// handleProcess accepts a multipart batch and runs the full pipeline. Fields:
// project, vendor, client, allow_unmapped, optional custom_headers (JSON
// object of filename to header list for headerless text files), and one or
// more files under "files".
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	release, ok := s.acquireSlot(r.Context())
	if !ok {
		writeFailure(w, http.StatusServiceUnavailable, pipeline.UserMessage{
			Code:    "SYS005",
			Message: "The service is at capacity.",
			Action:  "Wait for running batches to finish and try again.",
		})
		return
	}
	defer release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, r, &format.ParseError{FileName: "(batch)", Reason: "invalid multipart request"})
		return
	}

	customHeaders := map[string][]string{}
	if raw := r.FormValue("custom_headers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &customHeaders); err != nil {
			s.respondError(w, r, &format.ParseError{FileName: "(batch)", Reason: "custom_headers is not valid JSON"})
			return
		}
	}

	req := pipeline.ProcessRequest{
		Project:       r.FormValue("project"),
		Vendor:        r.FormValue("vendor"),
		Client:        r.FormValue("client"),
		AllowUnmapped: r.FormValue("allow_unmapped") == "true",
	}

	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.Upload.MaxFileSize+1))
		f.Close()
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if int64(len(data)) > s.cfg.Upload.MaxFileSize {
			s.respondError(w, r, &format.ParseError{FileName: fh.Filename, Reason: "file exceeds the size limit"})
			return
		}
		req.Files = append(req.Files, pipeline.BatchFile{
			Name:         fh.Filename,
			Data:         data,
			CustomHeader: customHeaders[fh.Filename],
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	log := logging.WithFields(ctx, "files", len(req.Files), "project", req.Project)
	log.Info("batch received")

	result, err := s.svc.ProcessBatch(ctx, req)
	if err != nil {
		// the result still carries session id and unmapped header detail
		msg := pipeline.MapError(err)
		result.Message = msg.Message
		writeJSON(w, statusFor(err), envelope{
			"success":         false,
			"message":         msg.Message,
			"code":            msg.Code,
			"action":          msg.Action,
			"sessionId":       result.SessionID,
			"unmappedHeaders": result.Unmapped,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "ok"})
}
