package orchestrator

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/relaydb/dbshift/internal/log"
	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/providers"
	"github.com/relaydb/dbshift/internal/providers/mysql"
	"github.com/relaydb/dbshift/internal/providers/oracle"
	"github.com/relaydb/dbshift/internal/providers/postgres"
	"github.com/relaydb/dbshift/internal/providers/sqlserver"
	"github.com/relaydb/dbshift/internal/request"
	"github.com/relaydb/dbshift/internal/schema"
	"github.com/relaydb/dbshift/internal/sqlcollector"
)

// Execute is the engine's single entry point: it validates req, opens the
// source connection (always live) and the target connection (live, or
// routed into a dry-run collector), and runs the full phase sequence.
// Validation failures abort before any database call, per spec.md §7.
func Execute(ctx context.Context, req request.MigrationRequest, logger log.Logger, tracer trace.Tracer) (*Result, error) {
	if err := request.Validate(req); err != nil {
		return nil, migerr.New(migerr.InvalidConfiguration, "validate migration request", err)
	}
	req = req.Normalize()

	sourceVendor, err := schema.ParseVendor(req.SourceVendor)
	if err != nil {
		return nil, migerr.New(migerr.InvalidConfiguration, "source vendor", err)
	}
	targetVendor, err := schema.ParseVendor(req.TargetVendor)
	if err != nil {
		return nil, migerr.New(migerr.InvalidConfiguration, "target vendor", err)
	}

	source, err := openLive(ctx, sourceVendor, "source", req.SourceConnectionString, tracer, logger)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	var collector *sqlcollector.Collector
	var target providers.Provider
	if req.DryRun {
		collector = sqlcollector.New()
		target = newDryRun(targetVendor, collector, logger)
	} else {
		target, err = openLive(ctx, targetVendor, "target", req.TargetConnectionString, tracer, logger)
		if err != nil {
			return nil, err
		}
		defer target.Close()
	}

	o := &Orchestrator{Source: source, Target: target, Collector: collector, Request: req, Logger: logger}
	report, runErr := o.Run(ctx)

	result := &Result{Report: report}
	if req.DryRun {
		dr := newDryRunResult(collector, req.DryRunOutputPath)
		if req.DryRunOutputPath != "" {
			if writeErr := os.WriteFile(req.DryRunOutputPath, []byte(dr.Script), 0o644); writeErr != nil {
				return result, fmt.Errorf("writing dry run script to %s: %w", req.DryRunOutputPath, writeErr)
			}
		}
		result.DryRun = dr
	}
	return result, runErr
}

func openLive(ctx context.Context, vendor schema.Vendor, role, connStr string, tracer trace.Tracer, logger log.Logger) (providers.Provider, error) {
	switch vendor {
	case schema.SQLServer:
		return sqlserver.Config{Name: role, ConnectionString: connStr}.Open(ctx, tracer, logger)
	case schema.Postgres:
		return postgres.Config{Name: role, ConnectionString: connStr}.Open(ctx, tracer, logger)
	case schema.MySQL:
		return mysql.Config{Name: role, DSN: connStr}.Open(ctx, tracer, logger)
	case schema.Oracle:
		return oracle.OpenDSN(ctx, tracer, role, connStr, logger)
	default:
		return nil, migerr.New(migerr.InvalidConfiguration, "unsupported vendor", fmt.Errorf("%q", vendor))
	}
}

func newDryRun(vendor schema.Vendor, collector *sqlcollector.Collector, logger log.Logger) providers.Provider {
	switch vendor {
	case schema.SQLServer:
		return sqlserver.NewDryRun(collector, logger)
	case schema.Postgres:
		return postgres.NewDryRun(collector, logger)
	case schema.MySQL:
		return mysql.NewDryRun(collector, logger)
	case schema.Oracle:
		return oracle.NewDryRun(collector, logger)
	default:
		return nil
	}
}
