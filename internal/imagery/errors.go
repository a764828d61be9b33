package imagery

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when the service answers successfully but the
// payload lacks a required field.
var ErrMalformedResponse = errors.New("malformed imagery response")

// ServiceError is a domain failure reported by the imagery service, such as no
// cloud-free imagery for the requested date.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	Apology    string
}

func (e *ServiceError) Error() string {
	switch {
	case e.Apology != "":
		return fmt.Sprintf("imagery service error %s: %s", e.Code, e.Apology)
	case e.Message != "":
		return fmt.Sprintf("imagery service error %s: %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("imagery service error %s", e.Code)
	}
}

// Explanation returns the human-readable explanation supplied by the service, or
// an empty string.
func (e *ServiceError) Explanation() string {
	return e.Apology
}

// TransportError is a non-success status without a domain payload, or a network
// failure (StatusCode 0).
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("imagery service returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("imagery service request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Explanation returns the service-supplied explanation carried by err, if any.
func Explanation(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Explanation()
	}
	return ""
}

// IsServiceError reports whether err is a domain failure reported by the service.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsTransportError reports whether err is a status or network failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
