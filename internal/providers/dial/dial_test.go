package dial_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/providers/dial"
)

// fakeDriver satisfies database/sql/driver.Driver with a connection that
// never touches the network, so dial.Open's Ping step succeeds without a
// live database.
type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) { return fakeConn{}, nil }

type fakeConn struct{}

func (fakeConn) Prepare(query string) (driver.Stmt, error) { return nil, errors.New("unsupported") }
func (fakeConn) Close() error                              { return nil }
func (fakeConn) Begin() (driver.Tx, error)                 { return nil, errors.New("unsupported") }

func init() {
	sql.Register("dbshift-dial-test-fake", fakeDriver{})
}

func noopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("dial_test")
}

func TestOpenSucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	opener := func(ctx context.Context) (*sql.DB, error) {
		calls++
		return sql.Open("dbshift-dial-test-fake", "x")
	}
	db, err := dial.Open(context.Background(), noopTracer(), "fake", "test", opener)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()
	if calls != 1 {
		t.Errorf("opener called %d times, want 1", calls)
	}
}

func TestOpenWrapsPersistentFailureAsConnectionFailed(t *testing.T) {
	opener := func(ctx context.Context) (*sql.DB, error) {
		return nil, errors.New("boom")
	}
	_, err := dial.Open(context.Background(), noopTracer(), "fake", "test", opener)
	if err == nil {
		t.Fatal("expected error when opener always fails")
	}
	if k, ok := migerr.KindOf(err); !ok || k != migerr.ConnectionFailed {
		t.Errorf("KindOf(err) = (%v, %v), want (ConnectionFailed, true)", k, ok)
	}
}
