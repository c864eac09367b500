// Package dial is the shared connection-bootstrap helper used by every
// vendor provider's Open: it wraps the driver's sql.Open+Ping in an
// exponential backoff retry and an OpenTelemetry span, so retry policy and
// connect tracing live in one place instead of four near-identical copies.
package dial

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaydb/dbshift/internal/migerr"
)

// Tracer is satisfied by an otel/trace.Tracer or a no-op stand-in.
type Tracer = trace.Tracer

// MaxAttempts bounds the number of connect attempts before giving up.
const MaxAttempts = 5

// Open starts a span named "<vendor>.connect", then calls opener (the
// vendor's sql.Open) and pings the result, retrying both under exponential
// backoff, returning the first success or a ConnectionFailed error after
// MaxAttempts.
func Open(ctx context.Context, tracer Tracer, vendor, name string, opener func(ctx context.Context) (*sql.DB, error)) (*sql.DB, error) {
	ctx, span := tracer.Start(ctx, vendor+".connect", trace.WithAttributes(
		attribute.String("dbshift.vendor", vendor),
		attribute.String("dbshift.connection_name", name),
	))
	defer span.End()

	operation := func() (*sql.DB, error) {
		db, err := opener(ctx)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(MaxAttempts),
	)
	if err != nil {
		span.RecordError(err)
		return nil, migerr.New(migerr.ConnectionFailed, fmt.Sprintf("connect to %s %q", vendor, name), err)
	}
	return db, nil
}
