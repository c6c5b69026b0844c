package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/vidtube/client/internal/api"
)

func TestFromAPIClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"network", &api.Error{Kind: api.KindNetwork, Err: errors.New("dial tcp")}, ErrNetwork},
		{"unauthorized", &api.Error{Kind: api.KindHTTP, Status: http.StatusUnauthorized, Message: "jwt expired"}, ErrAuth},
		{"forbidden", &api.Error{Kind: api.KindHTTP, Status: http.StatusForbidden}, ErrAuth},
		{"conflict", &api.Error{Kind: api.KindHTTP, Status: http.StatusConflict, Message: "exists"}, ErrServer},
		{"internal", &api.Error{Kind: api.KindHTTP, Status: http.StatusInternalServerError}, ErrServer},
		{"wrapped", fmt.Errorf("outer: %w", &api.Error{Kind: api.KindHTTP, Status: http.StatusUnauthorized}), ErrAuth},
		{"canceled", context.Canceled, ErrNetwork},
		{"decode", errors.New("decode envelope"), ErrServer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromAPI("op", tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestFromAPINil(t *testing.T) {
	if FromAPI("op", nil) != nil {
		t.Fatal("expected nil")
	}
}

func TestFromAPIKeepsServerMessageAndFields(t *testing.T) {
	err := FromAPI("register", &api.Error{
		Kind:    api.KindHTTP,
		Status:  http.StatusConflict,
		Message: "User already exists",
		Fields:  map[string]string{"username": "Username is taken"},
	})

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *Error got %T", err)
	}
	if appErr.UserMessage() != "User already exists" {
		t.Fatalf("unexpected message %q", appErr.UserMessage())
	}
	if appErr.Field("username") != "Username is taken" {
		t.Fatalf("expected field attribution, got %+v", appErr.Fields)
	}
	if appErr.Status != http.StatusConflict {
		t.Fatalf("unexpected status %d", appErr.Status)
	}
}

func TestUserMessages(t *testing.T) {
	network := &Error{Kind: KindNetwork, Err: errors.New("refused")}
	if network.UserMessage() != NetworkMessage {
		t.Fatalf("unexpected network message %q", network.UserMessage())
	}

	validation := Validation("login", map[string]string{"username": "Username is required", "password": "Password is required"})
	if validation.UserMessage() != "Password is required" {
		t.Fatalf("expected first field in sorted order, got %q", validation.UserMessage())
	}
	if !errors.Is(validation, ErrValidation) {
		t.Fatal("expected validation kind")
	}

	local := NotFoundLocal("applyUpdate", "v9")
	if !errors.Is(local, ErrNotFoundLocal) {
		t.Fatal("expected not found local kind")
	}
}

func TestMessage(t *testing.T) {
	if Message(nil) != "" {
		t.Fatal("expected empty message for nil")
	}
	if Message(errors.New("plain")) != "plain" {
		t.Fatal("expected plain error text")
	}
	wrapped := fmt.Errorf("cmd: %w", &Error{Kind: KindAuth, Message: "Unauthorized request"})
	if Message(wrapped) != "Unauthorized request" {
		t.Fatalf("unexpected message %q", Message(wrapped))
	}
}
