package oracle

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/providers"
	"github.com/relaydb/dbshift/internal/providers/common"
	"github.com/relaydb/dbshift/internal/schema"
)

// RowCount is used only for progress/logging, per spec.md §4.7.
func (p *Provider) RowCount(ctx context.Context, table schema.TableSchema) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", common.QuoteQualified(schema.Oracle, table.SchemaName, table.TableName))
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
		quoted[i] = common.Quote(schema.Oracle, c)
	}
	return strings.Join(quoted, ", ")
}

// FetchBatch pages through the table deterministically ordered by primary
// key (or first column), using OFFSET/FETCH NEXT like SQL Server's pattern
// since Oracle 12c supports the same row-limiting clause.
func (p *Provider) FetchBatch(ctx context.Context, table schema.TableSchema, offset, batchSize int) ([]providers.Row, error) {
	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		common.QuoteQualified(schema.Oracle, table.SchemaName, table.TableName), orderByClause(table), offset, batchSize)
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

// BulkInsert has no native bulk-copy API on this driver, so it batches a
// parameterized INSERT inside a single transaction per row set, same as the
// MySQL provider.
func (p *Provider) BulkInsert(ctx context.Context, targetSchema string, table schema.TableSchema, rows []providers.Row) error {
	if p.db == nil {
		return p.collectBulkInsert(targetSchema, table, rows)
	}
	if len(rows) == 0 {
		return nil
	}
	colNames := make([]string, len(table.Columns))
	quotedCols := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		colNames[i] = c.Name
		quotedCols[i] = common.Quote(schema.Oracle, c.Name)
		placeholders[i] = ":" + strconv.Itoa(i+1)
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		common.QuoteQualified(schema.Oracle, targetSchema, table.TableName),
		strings.Join(quotedCols, ", "), strings.Join(placeholders, ", "))

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "begin transaction", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		tx.Rollback()
		return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "prepare insert", err)
	}
	for _, row := range rows {
		vals := make([]any, len(colNames))
		for i, name := range colNames {
			vals[i] = row[name]
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			stmt.Close()
			tx.Rollback()
			return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "insert row", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "commit insert batch", err)
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
			common.QuoteQualified(schema.Oracle, targetSchema, table.TableName),
			strings.Join(colNames, ", "), strings.Join(vals, ", "))
		p.sink.Collector.Add("Data", table.QualifiedName(), stmt)
	}
	return nil
}

// ResetSequences advances each IDENTITY column's generator past the
// current max value. Oracle has no standalone RESEED statement for
// identity columns; restarting the generator is done by redeclaring it.
func (p *Provider) ResetSequences(ctx context.Context, targetSchema string, table schema.TableSchema) error {
	qualified := common.QuoteQualified(schema.Oracle, targetSchema, table.TableName)
	for _, c := range table.Columns {
		if !c.Identity {
			continue
		}
		if p.db == nil {
			stmt := fmt.Sprintf("ALTER TABLE %s MODIFY %s GENERATED BY DEFAULT AS IDENTITY (START WITH LIMIT VALUE)",
				qualified, common.Quote(schema.Oracle, c.Name))
			p.sink.Exec(ctx, "Data", table.QualifiedName(), stmt)
			continue
		}
		var next int64
		q := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s", common.Quote(schema.Oracle, c.Name), qualified)
		if err := p.db.QueryRowContext(ctx, q).Scan(&next); err != nil {
			return migerr.NewForObject(migerr.SequenceResetFailed, table.QualifiedName(), "compute next identity value", err)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s MODIFY %s GENERATED BY DEFAULT AS IDENTITY (START WITH %d)",
			qualified, common.Quote(schema.Oracle, c.Name), next)
		if err := p.sink.Exec(ctx, "Data", table.QualifiedName(), stmt); err != nil {
			return migerr.NewForObject(migerr.SequenceResetFailed, table.QualifiedName(), "reset identity generator", err)
		}
	}
	return nil
}

// DisableConstraints disables every R-type (foreign key) constraint owned
// by the target schema's user, per spec.md §4.5.
func (p *Provider) DisableConstraints(ctx context.Context, targetSchema string) error {
	return p.toggleConstraints(ctx, targetSchema, "DISABLE")
}

// EnableConstraints re-enables every R-type constraint, validating existing
// data against it.
func (p *Provider) EnableConstraints(ctx context.Context, targetSchema string) error {
	return p.toggleConstraints(ctx, targetSchema, "ENABLE")
}

func (p *Provider) toggleConstraints(ctx context.Context, targetSchema, action string) error {
	if p.db == nil {
		stmt := fmt.Sprintf("-- %s all foreign key constraints for %s", action, targetSchema)
		p.sink.Exec(ctx, "Data", targetSchema, stmt)
		return nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT TABLE_NAME, CONSTRAINT_NAME
		FROM ALL_CONSTRAINTS
		WHERE OWNER = :1 AND CONSTRAINT_TYPE = 'R'`, targetSchema)
	if err != nil {
		return migerr.New(migerr.ConstraintToggleFailed, "list oracle foreign key constraints", err)
	}
	type ref struct{ table, name string }
	var refs []ref
	for rows.Next() {
		var r ref
		if err := rows.Scan(&r.table, &r.name); err != nil {
			rows.Close()
			return migerr.New(migerr.ConstraintToggleFailed, "scan oracle constraint row", err)
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return migerr.New(migerr.ConstraintToggleFailed, "iterate oracle constraints", err)
	}

	for _, r := range refs {
		stmt := fmt.Sprintf("ALTER TABLE %s %s CONSTRAINT %s",
			common.QuoteQualified(schema.Oracle, targetSchema, r.table), action, common.Quote(schema.Oracle, r.name))
		if err := p.sink.Exec(ctx, "Data", targetSchema+"."+r.table, stmt); err != nil {
			return migerr.New(migerr.ConstraintToggleFailed, fmt.Sprintf("%s constraint %s", strings.ToLower(action), r.name), err)
		}
	}
	return nil
}
