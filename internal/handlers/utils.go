package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"video-compressor/internal/compressor"
	"video-compressor/internal/intake"
	"video-compressor/internal/logging"
	"video-compressor/internal/session"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v as JSON with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	// Reason is set for rejected uploads (see intake.Reason).
	Reason string `json:"reason,omitempty"`
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, statusCode, ErrorResponse{Error: message})
}

// writeError maps err onto an HTTP status and writes it as JSON.
func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	resp := ErrorResponse{Error: err.Error()}

	var ve *intake.ValidationError
	if errors.As(err, &ve) {
		resp.Reason = string(ve.Reason)
	}

	if status >= http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
	} else {
		logging.Debug("request rejected (%d): %v", status, err)
	}
	writeJSONStatusCode(w, status, resp)
}

func statusForError(err error) int {
	var ve *intake.ValidationError
	switch {
	case errors.As(err, &ve):
		switch ve.Reason {
		case intake.ReasonTooLarge:
			return http.StatusRequestEntityTooLarge
		case intake.ReasonUnsupported:
			return http.StatusUnsupportedMediaType
		default:
			return http.StatusBadRequest
		}
	case errors.Is(err, compressor.ErrInvalidTransition),
		errors.Is(err, compressor.ErrEngineNotReady):
		return http.StatusConflict
	case errors.Is(err, compressor.ErrUnknownQuality),
		errors.Is(err, compressor.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, compressor.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, session.ErrLimitReached),
		errors.Is(err, errMemoryPressure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
