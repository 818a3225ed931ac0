package tripledb

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := newErr(KindLookupFailed, "resolve lookup", errors.New("boom"))

	if !errors.Is(err, &Error{Kind: KindLookupFailed}) {
		t.Fatal("expected errors.Is to match on Kind alone")
	}
	if errors.Is(err, &Error{Kind: KindStorageError}) {
		t.Fatal("expected errors.Is to reject a mismatched Kind")
	}
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("underlying failure")
	err := newErr(KindStorageError, "write", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose the original cause to errors.Is")
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := newErr(KindInvalidInput, "bad query", errors.New("unknown operator"))
	want := "invalid_input: bad query: unknown operator"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}

	noCause := newErr(KindAuthError, "rejected", nil)
	if noCause.Error() != "auth_error: rejected" {
		t.Fatalf("unexpected message without a cause: %q", noCause.Error())
	}
}
