package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/relaydb/dbshift/internal/log"
	"github.com/relaydb/dbshift/internal/orchestrator"
	"github.com/relaydb/dbshift/internal/providers"
	"github.com/relaydb/dbshift/internal/request"
	"github.com/relaydb/dbshift/internal/schema"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func noopLogger(t *testing.T) log.Logger {
	t.Helper()
	l, err := log.NewStdLogger(discardWriter{}, discardWriter{}, log.Error)
	if err != nil {
		t.Fatalf("NewStdLogger: %v", err)
	}
	return l
}

// runObjs emulates a Create* DDL loop over a simulated list of per-object
// outcomes, the same per-object continue-on-error contract every real
// provider implements: under continueOnError every object is attempted and
// all failures are returned together; otherwise the first failure stops the
// loop immediately.
func runObjs(objErrs []error, continueOnError bool) (int, []error) {
	var count int
	var errs []error
	for _, err := range objErrs {
		if err != nil {
			errs = append(errs, err)
			if !continueOnError {
				return count, errs
			}
			continue
		}
		count++
	}
	return count, errs
}

// fakeProvider implements providers.Provider fully so the orchestrator can
// be exercised phase-by-phase without a real vendor connection. A nil
// create*Errs field means every object in that phase succeeds; a non-nil
// slice simulates one outcome per object, attempted in order.
type fakeProvider struct {
	vendor schema.Vendor
	tables []schema.TableSchema
	views  []schema.ViewSchema

	readTablesErr error

	createSchemaErrs      []error
	createIndexesErrs     []error
	createConstraintsErrs []error
	createViewsErrs       []error
	createFKErrs          []error

	createSchemaCalls  int
	createIndexesCalls int
	createViewsCalls   int
	createFKCalls      int
}

func (f *fakeProvider) ReadTables(ctx context.Context, include, exclude []string) ([]schema.TableSchema, error) {
	if f.readTablesErr != nil {
		return nil, f.readTablesErr
	}
	return f.tables, nil
}
func (f *fakeProvider) ReadViews(ctx context.Context) ([]schema.ViewSchema, error) { return f.views, nil }
func (f *fakeProvider) RowCount(ctx context.Context, table schema.TableSchema) (int64, error) {
	return 0, nil
}
func (f *fakeProvider) FetchBatch(ctx context.Context, table schema.TableSchema, offset, batchSize int) ([]providers.Row, error) {
	return nil, nil
}
func (f *fakeProvider) CreateSchema(ctx context.Context, targetSchema string, tables []schema.TableSchema, continueOnError bool) (int, []error) {
	f.createSchemaCalls++
	if f.createSchemaErrs == nil {
		return len(tables), nil
	}
	return runObjs(f.createSchemaErrs, continueOnError)
}
func (f *fakeProvider) CreateViews(ctx context.Context, targetSchema string, views []schema.ViewSchema, sourceTables []schema.TableSchema, sourceVendor schema.Vendor, continueOnError bool) (int, []error) {
	f.createViewsCalls++
	if f.createViewsErrs == nil {
		return len(views), nil
	}
	return runObjs(f.createViewsErrs, continueOnError)
}
func (f *fakeProvider) CreateIndexes(ctx context.Context, targetSchema string, indexes []schema.IndexSchema, continueOnError bool) (int, []error) {
	f.createIndexesCalls++
	if f.createIndexesErrs == nil {
		return len(indexes), nil
	}
	return runObjs(f.createIndexesErrs, continueOnError)
}
func (f *fakeProvider) CreateConstraints(ctx context.Context, targetSchema string, constraints []schema.ConstraintSchema, continueOnError bool) (int, []error) {
	if f.createConstraintsErrs == nil {
		return len(constraints), nil
	}
	return runObjs(f.createConstraintsErrs, continueOnError)
}
func (f *fakeProvider) CreateForeignKeys(ctx context.Context, targetSchema string, groups []schema.ForeignKeyGroup, continueOnError bool) (int, []error) {
	f.createFKCalls++
	if f.createFKErrs == nil {
		return len(groups), nil
	}
	return runObjs(f.createFKErrs, continueOnError)
}
func (f *fakeProvider) BulkInsert(ctx context.Context, targetSchema string, table schema.TableSchema, rows []providers.Row) error {
	return nil
}
func (f *fakeProvider) ResetSequences(ctx context.Context, targetSchema string, table schema.TableSchema) error {
	return nil
}
func (f *fakeProvider) DisableConstraints(ctx context.Context, targetSchema string) error { return nil }
func (f *fakeProvider) EnableConstraints(ctx context.Context, targetSchema string) error   { return nil }
func (f *fakeProvider) Vendor() schema.Vendor                                              { return f.vendor }
func (f *fakeProvider) Close() error                                                       { return nil }

func usersTable() schema.TableSchema {
	return schema.TableSchema{SchemaName: "public", TableName: "users", Columns: []schema.ColumnSchema{{Name: "id"}}}
}

func allPhasesRequest() request.MigrationRequest {
	return request.MigrationRequest{
		TargetSchema:       "public",
		MigrateSchema:      true,
		MigrateData:        true,
		MigrateIndexes:     true,
		MigrateConstraints: true,
		MigrateViews:       true,
		MigrateForeignKeys: true,
		BatchSize:          100,
		Workers:            1,
	}
}

func TestRunSucceedsThroughAllPhases(t *testing.T) {
	source := &fakeProvider{vendor: schema.MySQL, tables: []schema.TableSchema{usersTable()}}
	target := &fakeProvider{vendor: schema.Postgres}

	o := &orchestrator.Orchestrator{Source: source, Target: target, Request: allPhasesRequest(), Logger: noopLogger(t)}
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.State != orchestrator.Succeeded {
		t.Errorf("State = %v, want Succeeded", report.State)
	}
	if target.createSchemaCalls != 1 {
		t.Errorf("CreateSchema called %d times, want 1", target.createSchemaCalls)
	}
	if target.createIndexesCalls != 1 {
		t.Errorf("CreateIndexes called %d times, want 1", target.createIndexesCalls)
	}
	if target.createFKCalls != 1 {
		t.Errorf("CreateForeignKeys called %d times, want 1", target.createFKCalls)
	}
	if len(report.Phases) != 7 {
		t.Errorf("expected 7 recorded phases, got %d", len(report.Phases))
	}
}

func TestRunSkipsOptedOutPhases(t *testing.T) {
	source := &fakeProvider{vendor: schema.MySQL, tables: []schema.TableSchema{usersTable()}}
	target := &fakeProvider{vendor: schema.Postgres}

	req := allPhasesRequest()
	req.MigrateIndexes = false
	req.MigrateForeignKeys = false

	o := &orchestrator.Orchestrator{Source: source, Target: target, Request: req, Logger: noopLogger(t)}
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.createIndexesCalls != 0 {
		t.Errorf("CreateIndexes should not be called when MigrateIndexes is false, got %d calls", target.createIndexesCalls)
	}
	if target.createFKCalls != 0 {
		t.Errorf("CreateForeignKeys should not be called when MigrateForeignKeys is false, got %d calls", target.createFKCalls)
	}
}

func TestRunAbortsOnPhaseFailureWithoutContinueOnError(t *testing.T) {
	source := &fakeProvider{vendor: schema.MySQL, tables: []schema.TableSchema{usersTable()}}
	target := &fakeProvider{vendor: schema.Postgres, createSchemaErrs: []error{errors.New("ddl failed")}}

	req := allPhasesRequest()
	o := &orchestrator.Orchestrator{Source: source, Target: target, Request: req, Logger: noopLogger(t)}
	report, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from failing CreateSchema phase")
	}
	if report.State != orchestrator.Failed {
		t.Errorf("State = %v, want Failed", report.State)
	}
	if target.createIndexesCalls != 0 {
		t.Error("later phases must not run after an aborting failure")
	}
}

// TestRunContinuesDDLPhaseOnErrorWhenContinueOnError proves a single failing
// object inside a DDL phase no longer aborts the whole run under
// ContinueOnError: the phase attempts every object, records the failure in
// the phase summary, and the run proceeds to later phases.
func TestRunContinuesDDLPhaseOnErrorWhenContinueOnError(t *testing.T) {
	source := &fakeProvider{vendor: schema.MySQL, tables: []schema.TableSchema{usersTable()}}
	target := &fakeProvider{
		vendor: schema.Postgres,
		createIndexesErrs: []error{
			errors.New("duplicate index"),
			nil,
		},
	}

	req := allPhasesRequest()
	req.ContinueOnError = true
	o := &orchestrator.Orchestrator{Source: source, Target: target, Request: req, Logger: noopLogger(t)}
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.State != orchestrator.Succeeded {
		t.Errorf("State = %v, want Succeeded", report.State)
	}
	if target.createFKCalls != 1 {
		t.Error("later phases must still run after a continue-on-error DDL failure")
	}
	var indexPhase *orchestrator.PhaseSummary
	for i := range report.Phases {
		if report.Phases[i].Phase == orchestrator.PhaseCreateIndexes {
			indexPhase = &report.Phases[i]
		}
	}
	if indexPhase == nil {
		t.Fatal("expected a CreateIndexes phase summary")
	}
	if indexPhase.ObjectCount != 1 {
		t.Errorf("ObjectCount = %d, want 1 (one of two indexes succeeded)", indexPhase.ObjectCount)
	}
	if len(indexPhase.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(indexPhase.Errors))
	}
}

func TestRunFailsFastOnSourceReadError(t *testing.T) {
	source := &fakeProvider{vendor: schema.MySQL, readTablesErr: errors.New("connection refused")}
	target := &fakeProvider{vendor: schema.Postgres}

	o := &orchestrator.Orchestrator{Source: source, Target: target, Request: allPhasesRequest(), Logger: noopLogger(t)}
	_, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when source read fails")
	}
	if target.createSchemaCalls != 0 {
		t.Error("target must not be touched when the read phase fails")
	}
}

func TestRunRespectsCancellationBeforePhase(t *testing.T) {
	source := &fakeProvider{vendor: schema.MySQL, tables: []schema.TableSchema{usersTable()}}
	target := &fakeProvider{vendor: schema.Postgres}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := &orchestrator.Orchestrator{Source: source, Target: target, Request: allPhasesRequest(), Logger: noopLogger(t)}
	report, err := o.Run(ctx)
	if err == nil {
		t.Fatal("expected Cancelled error")
	}
	if report.State != orchestrator.Cancelled {
		t.Errorf("State = %v, want Cancelled", report.State)
	}
	if target.createSchemaCalls != 0 {
		t.Error("no phase should run once the context is already cancelled")
	}
}

func TestStateDefaultsToNotStarted(t *testing.T) {
	o := &orchestrator.Orchestrator{}
	if o.State() != orchestrator.NotStarted {
		t.Errorf("State() = %v, want NotStarted before Run", o.State())
	}
}
