package httpapi

import (
	"encoding/json"
	"net/http"

	"evchargenet/pkg/apperror"
	"evchargenet/pkg/logger"
)

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Meta    any  `json:"meta,omitempty"`
	Error   any  `json:"error,omitempty"`
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode http response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any, meta any) {
	writeJSON(w, status, envelope{Success: true, Data: data, Meta: meta})
}

func writeAccepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Success: false, Error: errorBody{Code: code, Message: message}})
}

// writeErr translates a domain/apperror error into the response
// envelope, mapping validation errors onto their per-field messages.
func writeErr(w http.ResponseWriter, err error) {
	status := apperror.HTTPStatus(err)
	code := string(apperror.Code(err))

	var fields []string
	if appErr, ok := err.(*apperror.Error); ok {
		if raw, exists := appErr.Details["errors"]; exists {
			if msgs, ok := raw.([]string); ok {
				fields = msgs
			}
		}
	}

	writeJSON(w, status, envelope{
		Success: false,
		Error:   errorBody{Code: code, Message: err.Error(), Fields: fields},
	})
}
