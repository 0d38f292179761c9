package shopassist

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by APIError. Use errors.Is() to check.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrQuotaExceeded  = errors.New("embedding quota exceeded")
	ErrLLMUnavailable = errors.New("llm unavailable")
	ErrUnavailable    = errors.New("service unavailable")
	ErrServer         = errors.New("server error")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopassist: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is maps the status code to a sentinel error.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return target == ErrBadRequest
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusForbidden:
		return target == ErrForbidden
	case http.StatusPaymentRequired:
		return target == ErrQuotaExceeded
	case http.StatusBadGateway:
		return target == ErrLLMUnavailable
	case http.StatusServiceUnavailable:
		return target == ErrUnavailable
	}
	return e.StatusCode >= 500 && target == ErrServer
}
