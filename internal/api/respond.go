package api

import (
	"encoding/json"
	"net/http"
)

// Error codes surfaced in the response envelope.
const (
	codeValidation = "validation_error"
	codeNotFound   = "not_found"
	codeQueueFull  = "queue_full"
	codeInternal   = "internal_error"
)

// envelope is the uniform JSON shape of every API response.
type envelope struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// writeData writes a success envelope.
func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, envelope{OK: true, Data: data})
}

// writeError writes a failure envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, envelope{OK: false, Error: &apiError{Code: code, Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
