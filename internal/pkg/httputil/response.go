package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/phish-tracker/internal/pkg/logger"
)

// ErrorResponse is the error envelope for all endpoints. The "detail" key
// matches what already-deployed clients of the collector parse.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("json encode failed", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, ErrorResponse{Detail: detail})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, detail string) {
	Error(w, http.StatusBadRequest, detail)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, detail string) {
	Error(w, http.StatusNotFound, detail)
}

// ServiceUnavailable writes a 503 error.
func ServiceUnavailable(w http.ResponseWriter, detail string) {
	Error(w, http.StatusServiceUnavailable, detail)
}

// InternalError writes a 500 error carrying err's message. The collector's
// callers are email clients and the admin dashboard, and operators rely on
// the detail string to diagnose tracking failures.
func InternalError(w http.ResponseWriter, err error) {
	Error(w, http.StatusInternalServerError, err.Error())
}

// NoCache marks a response as uncacheable so every open/click reaches us.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// GIF writes a 200 image/gif response.
func GIF(w http.ResponseWriter, body []byte) {
	NoCache(w)
	w.Header().Set("Content-Type", "image/gif")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// HTML writes a 200 text/html response.
func HTML(w http.ResponseWriter, body []byte) {
	NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
