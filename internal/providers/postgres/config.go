// Package postgres implements the provider contracts in
// github.com/relaydb/dbshift/internal/providers against PostgreSQL, using
// github.com/jackc/pgx/v5 and its pgxpool connection pool.
package postgres

import (
	"context"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaydb/dbshift/internal/log"
	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/providers/dial"
	"github.com/relaydb/dbshift/internal/schema"
	"github.com/relaydb/dbshift/internal/sqlcollector"
)

// Config is the inert, serializable connection configuration for a
// PostgreSQL endpoint.
type Config struct {
	Name             string `yaml:"name" validate:"required"`
	ConnectionString string `yaml:"connectionString" validate:"required"`
}

// Open dials a pgxpool.Pool under the same retry/tracing policy as
// dial.Open: dial.Open is database/sql-shaped, and pgxpool does not sit
// behind database/sql, so the retry loop is inlined here with the same
// backoff.NewExponentialBackOff()/dial.MaxAttempts policy.
func (c Config) Open(ctx context.Context, tracer trace.Tracer, logger log.Logger) (*Provider, error) {
	ctx, span := tracer.Start(ctx, "postgres.connect")
	defer span.End()

	operation := func() (*pgxpool.Pool, error) {
		cfg, err := pgxpool.ParseConfig(c.ConnectionString)
		if err != nil {
			return nil, err
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	}

	pool, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(dial.MaxAttempts),
	)
	if err != nil {
		span.RecordError(err)
		return nil, migerr.New(migerr.ConnectionFailed, "connect to postgres "+c.Name, err)
	}
	logger.InfoContext(ctx, "connected to postgres", "name", c.Name)
	return &Provider{pool: pool, sink: sink{pool: pool}, logger: logger}, nil
}

// NewDryRun builds a target-side Provider that never opens a connection.
func NewDryRun(collector *sqlcollector.Collector, logger log.Logger) *Provider {
	return &Provider{sink: sink{collector: collector}, logger: logger}
}

// sink routes a statement to the live pool or to a dry-run collector.
type sink struct {
	pool      *pgxpool.Pool
	collector *sqlcollector.Collector
}

func (s sink) exec(ctx context.Context, category sqlcollector.Category, object, stmt string) error {
	if s.collector != nil {
		s.collector.Add(category, object, stmt)
		return nil
	}
	_, err := s.pool.Exec(ctx, stmt)
	return err
}

// Provider is the PostgreSQL connection implementing every provider
// capability contract. pool is nil in dry-run mode.
type Provider struct {
	pool   *pgxpool.Pool
	sink   sink
	logger log.Logger
}

func (p *Provider) Vendor() schema.Vendor { return schema.Postgres }

func (p *Provider) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
