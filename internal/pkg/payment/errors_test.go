package payment

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfAndHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{kind: KindValidation, status: http.StatusBadRequest},
		{kind: KindSignature, status: http.StatusBadRequest},
		{kind: KindAuth, status: http.StatusUnauthorized},
		{kind: KindNotFound, status: http.StatusNotFound},
		{kind: KindConfiguration, status: http.StatusInternalServerError},
		{kind: KindProvider, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := Errorf(tt.kind, "op", "stripe", "boom")
		if got := KindOf(err); got != tt.kind {
			t.Fatalf("KindOf(%s) = %q, want %q", tt.kind, got, tt.kind)
		}
		if got := HTTPStatus(err); got != tt.status {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.status)
		}
	}
}

func TestKindOf_UnclassifiedDefaultsToProvider(t *testing.T) {
	err := errors.New("raw gateway failure")
	if got := KindOf(err); got != KindProvider {
		t.Fatalf("KindOf(plain error) = %q, want %q", got, KindProvider)
	}
	if got := HTTPStatus(err); got != http.StatusInternalServerError {
		t.Fatalf("HTTPStatus(plain error) = %d, want 500", got)
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := E(KindProvider, "dodo.get_subscription", "dodo", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("wrapped cause not reachable through errors.Is")
	}
	if !IsKind(err, KindProvider) {
		t.Fatalf("expected provider kind")
	}
	if IsKind(err, KindSignature) {
		t.Fatalf("unexpected signature kind")
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if !IsKind(wrapped, KindProvider) {
		t.Fatalf("kind lost through fmt.Errorf wrapping")
	}

	msg := err.Error()
	if msg != "dodo: dodo.get_subscription: connection refused" {
		t.Fatalf("unexpected message %q", msg)
	}
}
