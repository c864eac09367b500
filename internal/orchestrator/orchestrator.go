// Package orchestrator sequences the six(+one)-phase migration pipeline
// defined in spec.md §4.8 over a source and target provider pair.
package orchestrator

import (
	"context"
	"time"

	"github.com/relaydb/dbshift/internal/depsort"
	"github.com/relaydb/dbshift/internal/log"
	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/migrate"
	"github.com/relaydb/dbshift/internal/providers"
	"github.com/relaydb/dbshift/internal/request"
	"github.com/relaydb/dbshift/internal/schema"
	"github.com/relaydb/dbshift/internal/sqlcollector"
)

// Orchestrator runs one migration over an already-connected source/target
// provider pair. Construction (opening vendor connections, wiring dry-run)
// is the job of Execute in connect.go; Orchestrator itself depends only on
// the provider contracts, not on any vendor package.
type Orchestrator struct {
	Source    providers.Provider
	Target    providers.Provider
	Collector *sqlcollector.Collector // non-nil in dry-run mode
	Request   request.MigrationRequest
	Logger    log.Logger

	state RunState
}

// State reports the orchestrator's current run state, for observability.
func (o *Orchestrator) State() RunState {
	if o.state == "" {
		return NotStarted
	}
	return o.state
}

// Run executes the full phase sequence and returns the accumulated report.
// A phase's per-object failures are caught and, under ContinueOnError,
// logged without aborting the phase; otherwise the first failure aborts
// the run. Connections are opened by Execute before Run starts, so a
// failure to connect ends the run before any phase. Errors inside a phase
// are not told apart by kind: under ContinueOnError, a failure caused by a
// lost connection is handled like any other per-object failure.
func (o *Orchestrator) Run(ctx context.Context) (MigrationReport, error) {
	o.state = Running
	report := MigrationReport{State: Running}
	req := o.Request

	var tables []schema.TableSchema
	var views []schema.ViewSchema
	var cycles []depsort.CycleEdge
	sourceVendor := o.Source.Vendor()

	phases := []struct {
		phase Phase
		run   func(context.Context) (int, []error, error)
	}{
		{PhaseRead, func(ctx context.Context) (int, []error, error) {
			var err error
			tables, err = o.Source.ReadTables(ctx, req.IncludeTables, req.ExcludeTables)
			if err != nil {
				return 0, nil, err
			}
			sorted := depsort.Sort(tables)
			tables = sorted.Order
			cycles = sorted.Cycles
			if req.MigrateViews {
				views, err = o.Source.ReadViews(ctx)
				if err != nil {
					return 0, nil, err
				}
			}
			return len(tables) + len(views), nil, nil
		}},
		{PhaseCreateSchema, func(ctx context.Context) (int, []error, error) {
			if !req.MigrateSchema {
				return 0, nil, nil
			}
			count, errs := o.Target.CreateSchema(ctx, req.TargetSchema, tables, req.ContinueOnError)
			return phaseOutcome(count, errs, req.ContinueOnError)
		}},
		{PhaseMigrateData, func(ctx context.Context) (int, []error, error) {
			if !req.MigrateData {
				return 0, nil, nil
			}
			m := &migrate.Migrator{
				Source:       o.Source,
				Target:       o.Target,
				TargetSchema: req.TargetSchema,
				BatchSize:    req.BatchSize,
				Workers:      req.Workers,
				Logger:       o.Logger,
			}
			results := m.MigrateAll(ctx, tables, req.ContinueOnError)
			var errs []error
			count := 0
			for _, r := range results {
				if r.Err != nil {
					errs = append(errs, migerr.NewForObject(kindOf(r.Err), r.Table.QualifiedName(), "migrate data", r.Err))
					if !req.ContinueOnError {
						return count, errs, r.Err
					}
					continue
				}
				count++
			}
			return count, errs, nil
		}},
		{PhaseCreateIndexes, func(ctx context.Context) (int, []error, error) {
			if !req.MigrateIndexes {
				return 0, nil, nil
			}
			var indexes []schema.IndexSchema
			for _, t := range tables {
				indexes = append(indexes, t.Indexes...)
			}
			count, errs := o.Target.CreateIndexes(ctx, req.TargetSchema, indexes, req.ContinueOnError)
			return phaseOutcome(count, errs, req.ContinueOnError)
		}},
		{PhaseCreateConstraints, func(ctx context.Context) (int, []error, error) {
			if !req.MigrateConstraints {
				return 0, nil, nil
			}
			var constraints []schema.ConstraintSchema
			for _, t := range tables {
				constraints = append(constraints, t.Constraints...)
			}
			count, errs := o.Target.CreateConstraints(ctx, req.TargetSchema, constraints, req.ContinueOnError)
			return phaseOutcome(count, errs, req.ContinueOnError)
		}},
		{PhaseCreateViews, func(ctx context.Context) (int, []error, error) {
			if !req.MigrateViews {
				return 0, nil, nil
			}
			count, errs := o.Target.CreateViews(ctx, req.TargetSchema, views, tables, sourceVendor, req.ContinueOnError)
			return phaseOutcome(count, errs, req.ContinueOnError)
		}},
		{PhaseCreateForeignKeys, func(ctx context.Context) (int, []error, error) {
			if !req.MigrateForeignKeys {
				return 0, nil, nil
			}
			var allGroups []schema.ForeignKeyGroup
			for _, t := range tables {
				allGroups = append(allGroups, schema.GroupForeignKeys(t.SchemaName, t.TableName, t.ForeignKeys)...)
			}
			_ = cycles // cycle-member FKs are included above; nothing extra to defer since all FKs wait for this phase
			count, errs := o.Target.CreateForeignKeys(ctx, req.TargetSchema, allGroups, req.ContinueOnError)
			return phaseOutcome(count, errs, req.ContinueOnError)
		}},
	}

	for _, p := range phases {
		select {
		case <-ctx.Done():
			o.state = Cancelled
			report.State = Cancelled
			return report, migerr.New(migerr.Cancelled, string(p.phase), ctx.Err())
		default:
		}

		if o.Collector != nil {
			o.Collector.AddComment(string(p.phase))
		}

		start := time.Now()
		count, errs, err := p.run(ctx)
		dur := time.Since(start)
		report.record(p.phase, count, dur, errs)
		for _, e := range errs {
			o.Logger.ErrorContext(ctx, "object failed", "phase", p.phase, "error", e)
		}

		if err != nil {
			o.Logger.ErrorContext(ctx, "phase failed", "phase", p.phase, "error", err)
			o.state = Failed
			report.State = Failed
			return report, err
		}
	}

	o.state = Succeeded
	report.State = Succeeded
	return report, nil
}

// phaseOutcome turns a DDL phase's (successCount, per-object errors) into
// the (count, errs, fatal) shape every phase closure returns. Under
// continueOnError every error is non-fatal and already reflects every
// attempted object; otherwise the provider stopped at the first failure, so
// that single error also aborts the run.
func phaseOutcome(count int, errs []error, continueOnError bool) (int, []error, error) {
	if len(errs) == 0 {
		return count, nil, nil
	}
	if !continueOnError {
		return count, errs, errs[len(errs)-1]
	}
	return count, errs, nil
}

func kindOf(err error) migerr.Kind {
	if k, ok := migerr.KindOf(err); ok {
		return k
	}
	return migerr.BulkInsertFailed
}
