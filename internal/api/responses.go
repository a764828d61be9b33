// Package api provides HTTP handlers and routing for the TerraTales viewer service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIError is the error body of the catalog and session routes.
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	RequestID   string `json:"requestId,omitempty"`
}

// Standard error codes.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeConflict         = "Conflict"
	ErrCodeTooManyRequests  = "TooManyRequests"
	ErrCodeUnavailable      = "ServiceUnavailable"
	ErrCodeServerError      = "ServerError"
	ErrCodeUpstreamError    = "UpstreamServiceError"
)

// ProxyError is the error body of the imagery proxy routes, matching what the
// browser front-end already parses.
type ProxyError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return writeBody(w, status, "application/json", v)
}

// WriteGeoJSON is WriteJSON for GeoJSON documents such as STAC items.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	return writeBody(w, status, "application/geo+json", v)
}

// WriteError writes an APIError body.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeBody(w, status, "application/json", APIError{Code: code, Description: message})
}

// writeBody sets the media type and status, then encodes v. Encoding failures
// are logged since the status line has already been sent.
func writeBody(w http.ResponseWriter, status int, mediaType string, v any) error {
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response",
			slog.String("media_type", mediaType),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// WriteBadRequest writes a 400 for an unreadable request.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound writes a 404.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInvalidParameter writes a 400 for a parameter outside its domain, such as an
// unknown region or a year outside the servable range.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// WriteInternalError writes a 500.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeServerError, message)
}

// WriteInternalErrorWithRequestID writes a 500 response carrying the request id.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	writeBody(w, http.StatusInternalServerError, "application/json", APIError{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}

// WriteUpstreamError writes a 502 for imagery service failures outside the proxy routes.
func WriteUpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, ErrCodeUpstreamError, message)
}

// WriteProxyError writes the error body of the proxy routes.
func WriteProxyError(w http.ResponseWriter, status int, message, details string) {
	WriteJSON(w, status, ProxyError{Error: message, Details: details})
}
