package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dealdesk/internal/core"
	"github.com/JonMunkholm/dealdesk/internal/logging"
)

// maxJSONBody bounds edit and add requests.
const maxJSONBody = 1 << 20

// importContext bounds an import by the configured upload timeout.
func (s *Server) importContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := r.Context()
	if s.cfg.Upload.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Upload.Timeout)
	}
	return context.WithCancel(ctx)
}

// handleImport replaces a dataset with the uploaded CSV.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	body, err := s.uploadBody(w, r)
	if err != nil {
		s.respondUploadError(w, r, err)
		return
	}
	defer body.Close()

	ctx, cancel := s.importContext(r)
	defer cancel()

	result, err := s.service.Import(ctx, key, body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("import request completed", "dataset", key, "rows", result.Rows)
	writeJSON(w, result)
}

// handlePreview reports what importing the uploaded CSV would change.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	body, err := s.uploadBody(w, r)
	if err != nil {
		s.respondUploadError(w, r, err)
		return
	}
	defer body.Close()

	ctx, cancel := s.importContext(r)
	defer cancel()

	preview, err := s.service.PreviewImport(ctx, chi.URLParam(r, "key"), body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, preview)
}

func (s *Server) respondUploadError(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusRequestEntityTooLarge {
		s.respondError(w, r, err)
		return
	}
	s.badRequest(w, r, err.Error())
}

// AddRecordRequest is the body of POST /records.
type AddRecordRequest struct {
	Values map[string]string `json:"values"`
}

// handleAddRecord appends a record.
func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	var req AddRecordRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, r, "invalid JSON body")
		return
	}

	rec, err := s.service.AddRecord(r.Context(), chi.URLParam(r, "key"), req.Values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

// handleEdit applies an EditRequest. The body is always an EditResponse;
// the status reflects its error kind.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req core.EditRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, r, "invalid JSON body")
		return
	}

	resp := s.service.Edit(r.Context(), chi.URLParam(r, "key"), req)
	if !resp.OK {
		logging.FromContext(r.Context()).Warn("edit rejected",
			"dataset", chi.URLParam(r, "key"),
			"key", req.Key,
			"kind", resp.ErrorKind,
			"error", resp.Message,
		)
	}
	writeJSONStatus(w, editStatus(resp), resp)
}

// handleUndo reverts the dataset's last change.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Undo(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}
