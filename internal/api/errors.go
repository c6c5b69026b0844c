package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownEndpoint indicates a logical endpoint name missing from the configuration.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrNoTokenSource indicates an authenticated request was built without a token source.
	ErrNoTokenSource = errors.New("no token source configured")
)

// Kind distinguishes transport failures from server answers.
type Kind string

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = "network"
	// KindHTTP means the server answered with a non-2xx status.
	KindHTTP Kind = "http"
)

// Error is the failure result of Client.Do.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		if e.Message != "" {
			return fmt.Sprintf("http %d: %s", e.Status, e.Message)
		}
		return fmt.Sprintf("http %d", e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("network: %v", e.Err)
		}
		return "network: " + e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthorized reports whether the server rejected the credentials.
func (e *Error) Unauthorized() bool {
	return e.Kind == KindHTTP && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// NotFound reports a 404 answer.
func (e *Error) NotFound() bool {
	return e.Kind == KindHTTP && e.Status == http.StatusNotFound
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
