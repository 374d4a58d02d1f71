// Package httputil provides HTTP handler utilities for consistent response
// envelopes, error mapping, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/layr-ng/layr-api/pkg/apierrors"
)

// Envelope is the standard success response shape.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorEnvelope is the standard error response shape.
type ErrorEnvelope struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 success envelope.
func WriteOK(w http.ResponseWriter, message string, data interface{}) error {
	if message == "" {
		message = "Success"
	}
	return WriteJSON(w, http.StatusOK, Envelope{Status: "ok", Message: message, Data: data})
}

// WriteCreated writes a 201 success envelope.
func WriteCreated(w http.ResponseWriter, message string, data interface{}) error {
	if message == "" {
		message = "Created"
	}
	return WriteJSON(w, http.StatusCreated, Envelope{Status: "ok", Message: message, Data: data})
}

// WriteAPIError maps an error onto the wire. Non-API errors become generic
// internal errors; internal causes are never serialized.
func WriteAPIError(w http.ResponseWriter, err error) {
	apiErr := apierrors.FromErr(err)
	message := apiErr.Message
	if apiErr.Code == apierrors.CodeInternal {
		message = "An unexpected error occurred. Please reach out to support so we can help resolve this promptly."
	}
	WriteJSON(w, apiErr.Status(), ErrorEnvelope{
		Status:    "error",
		ErrorCode: string(apiErr.Code),
		Message:   message,
	})
}
