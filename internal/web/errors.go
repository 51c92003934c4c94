package web

// errors.go maps errors to HTTP responses.
//
// Every error is logged with its technical detail and request id, then
// mapped with core.MapError to a message, a suggested action and a support
// code. API routes get JSON; pages get an HTML alert.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dealdesk/internal/core"
	"github.com/JonMunkholm/dealdesk/internal/web/pages"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnknownDataset), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyInput), errors.Is(err, core.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-facing response with status
// chosen by statusFor.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusFor(err))
}

// respondErrorStatus is respondError with an explicit status.
func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	s.writeError(w, r, err, status, core.MapError(err))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, status int, userMsg core.UserMessage) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if wantsJSON(r) {
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "5")
		}
		writeJSONStatus(w, status, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := pages.Layout("Error", pages.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code))
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render error page", "error", err)
	}
}

// badRequest reports a malformed request. message is shown to the client
// unless it matches a known error pattern.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	err := errors.New(message)
	userMsg := core.MapError(err)
	if !core.IsUserFacing(err) {
		userMsg = core.UserMessage{
			Message: message,
			Action:  "Check the request and try again",
			Code:    "REQ001",
		}
	}
	s.writeError(w, r, err, http.StatusBadRequest, userMsg)
}

// wantsJSON reports whether the client should get a JSON error.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
