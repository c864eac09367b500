// Package sqlserver implements the provider contracts in
// github.com/relaydb/dbshift/internal/providers against Microsoft SQL
// Server, via github.com/microsoft/go-mssqldb.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaydb/dbshift/internal/log"
	"github.com/relaydb/dbshift/internal/providers/common"
	"github.com/relaydb/dbshift/internal/providers/dial"
	"github.com/relaydb/dbshift/internal/schema"
	"github.com/relaydb/dbshift/internal/sqlcollector"
)

// Config is the inert, serializable connection configuration for a SQL
// Server endpoint. Open turns it into a live Provider.
type Config struct {
	Name             string `yaml:"name" validate:"required"`
	ConnectionString string `yaml:"connectionString" validate:"required"`
}

// Open dials the connection (through the shared dial helper's retry/tracing
// wrapper) and returns a ready Provider.
func (c Config) Open(ctx context.Context, tracer trace.Tracer, logger log.Logger) (*Provider, error) {
	db, err := dial.Open(ctx, tracer, "sqlserver", c.Name, func(ctx context.Context) (*sql.DB, error) {
		return sql.Open("sqlserver", c.ConnectionString)
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "connected to sqlserver", "name", c.Name)
	return &Provider{db: db, sink: common.Sink{DB: db}, logger: logger}, nil
}

// NewDryRun builds a target-side Provider that never opens a connection:
// every writer method routes through collector instead, per spec.md §4.6
// ("when the collector is active, writers must not open target
// connections").
func NewDryRun(collector *sqlcollector.Collector, logger log.Logger) *Provider {
	return &Provider{sink: common.Sink{Collector: collector}, logger: logger}
}

// Provider is the SQL Server connection implementing every provider
// capability contract. db is nil in dry-run mode; all writes go through
// sink, which routes to db or to a sqlcollector.
type Provider struct {
	db     *sql.DB
	sink   common.Sink
	logger log.Logger
}

func (p *Provider) Vendor() schema.Vendor { return schema.SQLServer }

func (p *Provider) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing sqlserver connection: %w", err)
	}
	return nil
}
