// Package mysql implements the provider contracts in
// github.com/relaydb/dbshift/internal/providers against MySQL, via
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaydb/dbshift/internal/log"
	"github.com/relaydb/dbshift/internal/providers/common"
	"github.com/relaydb/dbshift/internal/providers/dial"
	"github.com/relaydb/dbshift/internal/schema"
	"github.com/relaydb/dbshift/internal/sqlcollector"
)

// Config is the inert, serializable connection configuration for a MySQL
// endpoint.
type Config struct {
	Name string `yaml:"name" validate:"required"`
	DSN  string `yaml:"dsn" validate:"required"`
}

func (c Config) Open(ctx context.Context, tracer trace.Tracer, logger log.Logger) (*Provider, error) {
	db, err := dial.Open(ctx, tracer, "mysql", c.Name, func(ctx context.Context) (*sql.DB, error) {
		return sql.Open("mysql", c.DSN)
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "connected to mysql", "name", c.Name)
	return &Provider{db: db, sink: common.Sink{DB: db}, logger: logger}, nil
}

// NewDryRun builds a target-side Provider that never opens a connection.
func NewDryRun(collector *sqlcollector.Collector, logger log.Logger) *Provider {
	return &Provider{sink: common.Sink{Collector: collector}, logger: logger}
}

// Provider is the MySQL connection implementing every provider capability
// contract. db is nil in dry-run mode.
type Provider struct {
	db     *sql.DB
	sink   common.Sink
	logger log.Logger
}

func (p *Provider) Vendor() schema.Vendor { return schema.MySQL }

func (p *Provider) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing mysql connection: %w", err)
	}
	return nil
}
