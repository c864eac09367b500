package migerr_test

import (
	"errors"
	"testing"

	"github.com/relaydb/dbshift/internal/migerr"
)

func TestNewForObjectErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := migerr.NewForObject(migerr.DDLFailed, "public.orders", "create table", cause)

	want := "DDLFailed[public.orders]: create table: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Kind() != migerr.DDLFailed {
		t.Errorf("Kind() = %v, want DDLFailed", err.Kind())
	}
}

func TestNewWithoutObject(t *testing.T) {
	err := migerr.New(migerr.InvalidConfiguration, "validate migration request", nil)
	want := "InvalidConfiguration: validate migration request"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := migerr.New(migerr.BulkInsertFailed, "", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestKindOf(t *testing.T) {
	err := migerr.NewForObject(migerr.SequenceResetFailed, "public.users", "reset sequence", errors.New("x"))
	wrapped := errors.New("context: " + err.Error())
	if _, ok := migerr.KindOf(wrapped); ok {
		t.Error("expected KindOf to fail for a plain error")
	}

	k, ok := migerr.KindOf(err)
	if !ok || k != migerr.SequenceResetFailed {
		t.Errorf("KindOf() = (%v, %v), want (SequenceResetFailed, true)", k, ok)
	}

	fmtWrapped := errFmtWrap(err)
	k2, ok2 := migerr.KindOf(fmtWrapped)
	if !ok2 || k2 != migerr.SequenceResetFailed {
		t.Errorf("KindOf() through Unwrap-based wrapper = (%v, %v), want (SequenceResetFailed, true)", k2, ok2)
	}
}

func errFmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }
