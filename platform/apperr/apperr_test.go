package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetKindFollowsWrappedChain(t *testing.T) {
	base := NotFound("lead not found").WithOp("merge.Merge")
	wrapped := fmt.Errorf("load survivor: %w", base)

	if got := GetKind(wrapped); got != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", got)
	}
	if !Is(wrapped, KindNotFound) {
		t.Fatal("expected Is to match wrapped not found error")
	}
	if Is(errors.New("plain"), KindNotFound) {
		t.Fatal("plain errors must not match a kind")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:    http.StatusNotFound,
		KindValidation:  http.StatusBadRequest,
		KindConflict:    http.StatusConflict,
		KindConcurrency: http.StatusConflict,
		KindInternal:    http.StatusInternalServerError,
		KindUnknown:     http.StatusBadRequest,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Fatalf("kind %s: expected %d, got %d", kind, want, got)
		}
	}
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := Concurrency("cursor moved").WithOp("assignment.roundRobin")
	if err.Error() != "assignment.roundRobin: cursor moved" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
