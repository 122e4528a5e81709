package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAsFindsCodedErrorThroughChain(t *testing.T) {
	base := New(CodeStateConflict, "store is closed")
	wrapped := fmt.Errorf("governance: %w", base)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected coded error")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", typed.Code())
	}
	if typed.Message() != "store is closed" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestAsReturnsNilForPlainError(t *testing.T) {
	if typed := As(fmt.Errorf("boom")); typed != nil {
		t.Fatalf("expected nil, got %v", typed)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(CodeDependency, cause, "payment charge failed")
	if err.Unwrap() != cause {
		t.Fatal("expected cause to be preserved")
	}
	if !HasCode(err, CodeDependency) {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestMetadataStatuses(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeExhausted:     http.StatusConflict,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, want := range cases {
		if got := MetadataFor(code).HTTPStatus; got != want {
			t.Fatalf("code %s: expected %d got %d", code, want, got)
		}
	}
}
