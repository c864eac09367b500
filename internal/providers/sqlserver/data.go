package sqlserver

import (
	"context"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/providers"
	"github.com/relaydb/dbshift/internal/providers/common"
	"github.com/relaydb/dbshift/internal/schema"
)

// RowCount is used only for progress/logging, per spec.md §4.7.
func (p *Provider) RowCount(ctx context.Context, table schema.TableSchema) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", common.QuoteQualified(schema.SQLServer, table.SchemaName, table.TableName))
	if err := p.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, migerr.NewForObject(migerr.SchemaReadFailed, table.QualifiedName(), "row count", err)
	}
	return n, nil
}

func orderByClause(table schema.TableSchema) string {
	cols := table.PrimaryKey
	if len(cols) == 0 && len(table.Columns) > 0 {
		cols = []string{table.Columns[0].Name}
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = common.Quote(schema.SQLServer, c)
	}
	return strings.Join(quoted, ", ")
}

// FetchBatch pages through the table deterministically ordered by primary
// key (or first column) using OFFSET/FETCH.
func (p *Provider) FetchBatch(ctx context.Context, table schema.TableSchema, offset, batchSize int) ([]providers.Row, error) {
	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		common.QuoteQualified(schema.SQLServer, table.SchemaName, table.TableName), orderByClause(table), offset, batchSize)
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, migerr.NewForObject(migerr.SchemaReadFailed, table.QualifiedName(), "fetch batch", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, migerr.NewForObject(migerr.SchemaReadFailed, table.QualifiedName(), "read columns", err)
	}
	var out []providers.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, table.QualifiedName(), "scan batch row", err)
		}
		row := make(providers.Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// BulkInsert uses the native BULK INSERT (TDS bulk copy) path via
// mssql.CopyIn, bracketing identity columns with SET IDENTITY_INSERT ON/OFF
// so source identity values are preserved.
func (p *Provider) BulkInsert(ctx context.Context, targetSchema string, table schema.TableSchema, rows []providers.Row) error {
	if p.db == nil {
		return p.collectBulkInsert(targetSchema, table, rows)
	}
	if len(rows) == 0 {
		return nil
	}
	hasIdentity := false
	colNames := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		colNames[i] = c.Name
		if c.Identity {
			hasIdentity = true
		}
	}
	qualified := common.QuoteQualified(schema.SQLServer, targetSchema, table.TableName)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "begin transaction", err)
	}

	if hasIdentity {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s ON", qualified)); err != nil {
			tx.Rollback()
			return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "enable identity insert", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(targetSchema+"."+table.TableName, mssql.BulkOptions{}, colNames...))
	if err != nil {
		tx.Rollback()
		return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "prepare bulk copy", err)
	}
	for _, row := range rows {
		vals := make([]any, len(colNames))
		for i, name := range colNames {
			vals[i] = row[name]
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			stmt.Close()
			tx.Rollback()
			return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "bulk copy row", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		tx.Rollback()
		return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "flush bulk copy", err)
	}
	stmt.Close()

	if hasIdentity {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s OFF", qualified)); err != nil {
			tx.Rollback()
			return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "disable identity insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "commit bulk copy", err)
	}
	return nil
}

func (p *Provider) collectBulkInsert(targetSchema string, table schema.TableSchema, rows []providers.Row) error {
	colNames := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		colNames[i] = c.Name
	}
	for _, row := range rows {
		vals := make([]string, len(colNames))
		for i, name := range colNames {
			vals[i] = fmt.Sprintf("%v", row[name])
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			common.QuoteQualified(schema.SQLServer, targetSchema, table.TableName),
			strings.Join(colNames, ", "), strings.Join(vals, ", "))
		p.sink.Collector.Add("Data", table.QualifiedName(), stmt)
	}
	return nil
}

// ResetSequences advances every identity column to MAX(col)+1.
func (p *Provider) ResetSequences(ctx context.Context, targetSchema string, table schema.TableSchema) error {
	for _, c := range table.Columns {
		if !c.Identity {
			continue
		}
		stmt := fmt.Sprintf("DBCC CHECKIDENT ('%s.%s', RESEED, (SELECT ISNULL(MAX(%s), 0) FROM %s))",
			targetSchema, table.TableName, common.Quote(schema.SQLServer, c.Name),
			common.QuoteQualified(schema.SQLServer, targetSchema, table.TableName))
		if err := p.sink.Exec(ctx, "Data", table.QualifiedName(), stmt); err != nil {
			return migerr.NewForObject(migerr.SequenceResetFailed, table.QualifiedName(), "reset identity", err)
		}
	}
	return nil
}

// DisableConstraints turns off all foreign key checks on the target schema
// for the duration of the data phase.
func (p *Provider) DisableConstraints(ctx context.Context, targetSchema string) error {
	const stmt = `EXEC sp_msforeachtable @command1='ALTER TABLE ? NOCHECK CONSTRAINT ALL'`
	if err := p.sink.Exec(ctx, "Data", targetSchema, stmt); err != nil {
		return migerr.New(migerr.ConstraintToggleFailed, "disable sqlserver constraints", err)
	}
	return nil
}

// EnableConstraints re-enables and re-checks all foreign keys.
func (p *Provider) EnableConstraints(ctx context.Context, targetSchema string) error {
	const stmt = `EXEC sp_msforeachtable @command1='ALTER TABLE ? WITH CHECK CHECK CONSTRAINT ALL'`
	if err := p.sink.Exec(ctx, "Data", targetSchema, stmt); err != nil {
		return migerr.New(migerr.ConstraintToggleFailed, "enable sqlserver constraints", err)
	}
	return nil
}
