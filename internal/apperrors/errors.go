// Package apperrors defines the failure taxonomy surfaced at operation boundaries.
package apperrors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vidtube/client/internal/api"
)

// Kind classifies a failure.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNetwork
	KindAuth
	KindServer
	KindNotFoundLocal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	case KindNotFoundLocal:
		return "not_found_local"
	default:
		return "unknown"
	}
}

var (
	// ErrValidation matches local, pre-network field failures.
	ErrValidation = errors.New("validation failed")
	// ErrNetwork matches failures where no response was received.
	ErrNetwork = errors.New("network unavailable")
	// ErrAuth matches 401/403 answers.
	ErrAuth = errors.New("not authorized")
	// ErrServer matches every other non-2xx answer.
	ErrServer = errors.New("server error")
	// ErrNotFoundLocal matches operations targeting an id absent from memory.
	ErrNotFoundLocal = errors.New("record not held locally")
)

// NetworkMessage is shown when the server could not be reached.
const NetworkMessage = "Unable to reach the server. Please check your connection and try again."

// Error is the single failure type returned by session and catalog operations.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.UserMessage())
	if e.Err != nil && e.Kind != KindValidation {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrServer:
		return e.Kind == KindServer
	case ErrNotFoundLocal:
		return e.Kind == KindNotFoundLocal
	}
	return false
}

// UserMessage is the one line shown to the user.
func (e *Error) UserMessage() string {
	switch {
	case e.Kind == KindNetwork:
		return NetworkMessage
	case e.Message != "":
		return e.Message
	case e.Kind == KindValidation && len(e.Fields) > 0:
		return e.Fields[e.FieldNames()[0]]
	case e.Kind == KindAuth:
		return "You are not authorized to perform this action."
	case e.Kind == KindNotFoundLocal:
		return "The record is no longer in the list."
	default:
		return "Something went wrong. Please try again."
	}
}

// FieldNames returns the attributed fields in stable order.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns the message attributed to name.
func (e *Error) Field(name string) string {
	return e.Fields[name]
}

// Validation builds a field-attributed validation failure.
func Validation(op string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Fields: fields}
}

// NotFoundLocal builds the failure for an id absent from the in-memory list.
func NotFoundLocal(op, id string) *Error {
	return &Error{Kind: KindNotFoundLocal, Op: op, Message: fmt.Sprintf("record %q is not held locally", id)}
}

// FromAPI converts a transport failure into the taxonomy. Nil stays nil and
// an *Error passes through with op filled in.
func FromAPI(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Op == "" {
			appErr.Op = op
		}
		return appErr
	}

	apiErr, ok := api.AsError(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &Error{Kind: KindNetwork, Op: op, Err: err}
		}
		return &Error{Kind: KindServer, Op: op, Err: err}
	}

	out := &Error{Op: op, Status: apiErr.Status, Message: apiErr.Message, Fields: apiErr.Fields, Err: apiErr}
	switch {
	case apiErr.Kind == api.KindNetwork:
		out.Kind = KindNetwork
	case apiErr.Unauthorized():
		out.Kind = KindAuth
	default:
		out.Kind = KindServer
	}
	return out
}

// Message returns the user-facing text for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.UserMessage()
	}
	return err.Error()
}
