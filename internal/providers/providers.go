// Package providers declares the four vendor capability contracts the core
// migration engine depends on. Each vendor package (sqlserver, postgres,
// mysql, oracle) implements these against its own driver; the migrator and
// orchestrator never import a vendor package directly.
package providers

import (
	"context"

	"github.com/relaydb/dbshift/internal/schema"
)

// Row is one fetched data row, column name to driver-native value.
type Row map[string]any

// SchemaReader queries a vendor's catalog to populate the schema model.
// Include/exclude match on unqualified table names, case-insensitive, and
// system schemas are always excluded by the implementation.
type SchemaReader interface {
	ReadTables(ctx context.Context, include, exclude []string) ([]schema.TableSchema, error)
	ReadViews(ctx context.Context) ([]schema.ViewSchema, error)
}

// DataReader paginates a table's rows in a deterministic order: by primary
// key columns if present, else the first column. No other ordering
// expression is used, so a table with neither has an empty ORDER BY list.
type DataReader interface {
	RowCount(ctx context.Context, table schema.TableSchema) (int64, error)
	FetchBatch(ctx context.Context, table schema.TableSchema, offset, batchSize int) ([]Row, error)
}

// SchemaWriter emits DDL against the target. CreateSchema defers foreign
// keys; CreateForeignKeys issues them separately so cycle members and
// data-dependent constraints can be created last.
//
// Every method takes continueOnError: when false, the loop stops at the
// first failing object and returns it as the sole element of the returned
// slice; when true, every object is attempted and all per-object failures
// are returned together, matching spec.md §4.8's "proceed to the next
// object within the phase" under continue-on-error. The returned int is the
// count of objects that succeeded.
type SchemaWriter interface {
	CreateSchema(ctx context.Context, targetSchema string, tables []schema.TableSchema, continueOnError bool) (int, []error)
	CreateViews(ctx context.Context, targetSchema string, views []schema.ViewSchema, sourceTables []schema.TableSchema, sourceVendor schema.Vendor, continueOnError bool) (int, []error)
	CreateIndexes(ctx context.Context, targetSchema string, indexes []schema.IndexSchema, continueOnError bool) (int, []error)
	CreateConstraints(ctx context.Context, targetSchema string, constraints []schema.ConstraintSchema, continueOnError bool) (int, []error)
	CreateForeignKeys(ctx context.Context, targetSchema string, groups []schema.ForeignKeyGroup, continueOnError bool) (int, []error)
}

// DataWriter moves row data and brackets the data phase with
// constraint/sequence maintenance.
type DataWriter interface {
	BulkInsert(ctx context.Context, targetSchema string, table schema.TableSchema, rows []Row) error
	ResetSequences(ctx context.Context, targetSchema string, table schema.TableSchema) error
	DisableConstraints(ctx context.Context, targetSchema string) error
	EnableConstraints(ctx context.Context, targetSchema string) error
}

// Provider groups all four capabilities plus lifecycle, the unit the
// orchestrator and migrator are constructed against.
type Provider interface {
	SchemaReader
	DataReader
	SchemaWriter
	DataWriter
	Vendor() schema.Vendor
	Close() error
}
