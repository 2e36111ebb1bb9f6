package web

// errors.go turns handler errors into responses. Technical details are
// logged with the request ID; clients get the coded message from
// core.MapError, as JSON for /api routes and as an HTML page otherwise.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/csvfile"
	"github.com/JonMunkholm/dataclean/internal/logging"
	"github.com/JonMunkholm/dataclean/internal/pipeline"
	"github.com/JonMunkholm/dataclean/internal/store"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	// errNoFile is returned when an upload has no "file" part.
	errNoFile = errors.New("no file provided")

	// errFileTooLarge is returned when an upload exceeds MaxUploadSize.
	errFileTooLarge = errors.New("file too large")
)

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, pipeline.ErrUnknownDataset),
		errors.Is(err, pipeline.ErrQuarantineNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, errNoFile),
		errors.Is(err, csvfile.ErrEmptyFile),
		errors.Is(err, csvfile.ErrEncoding),
		strings.Contains(err.Error(), "invalid csv"):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNilDataset):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if wantsJSON(r) {
		writeJSONStatus(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	ErrorPage(msg).Render(r.Context(), w)
}

// wantsJSON reports whether the client expects a JSON error.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
