package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/providers"
	"github.com/relaydb/dbshift/internal/providers/common"
	"github.com/relaydb/dbshift/internal/schema"
)

// RowCount is used only for progress/logging, per spec.md §4.7.
func (p *Provider) RowCount(ctx context.Context, table schema.TableSchema) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", common.QuoteQualified(schema.MySQL, table.SchemaName, table.TableName))
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
		quoted[i] = common.Quote(schema.MySQL, c)
	}
	return strings.Join(quoted, ", ")
}

// FetchBatch pages through the table deterministically ordered by primary
// key (or first column) using LIMIT/OFFSET.
func (p *Provider) FetchBatch(ctx context.Context, table schema.TableSchema, offset, batchSize int) ([]providers.Row, error) {
	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT %d OFFSET %d",
		common.QuoteQualified(schema.MySQL, table.SchemaName, table.TableName), orderByClause(table), batchSize, offset)
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

// BulkInsert has no native bulk-copy API to reach for on this driver, so it
// batches a parameterized INSERT inside a single transaction per row set.
func (p *Provider) BulkInsert(ctx context.Context, targetSchema string, table schema.TableSchema, rows []providers.Row) error {
	if p.db == nil {
		return p.collectBulkInsert(targetSchema, table, rows)
	}
	if len(rows) == 0 {
		return nil
	}
	colNames := make([]string, len(table.Columns))
	quotedCols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		colNames[i] = c.Name
		quotedCols[i] = common.Quote(schema.MySQL, c.Name)
	}
	placeholders := make([]string, len(colNames))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		common.QuoteQualified(schema.MySQL, targetSchema, table.TableName),
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
			common.QuoteQualified(schema.MySQL, targetSchema, table.TableName),
			strings.Join(colNames, ", "), strings.Join(vals, ", "))
		p.sink.Collector.Add("Data", table.QualifiedName(), stmt)
	}
	return nil
}

// ResetSequences advances each AUTO_INCREMENT column past the current max
// value, MySQL having no separate sequence object to reseed. ALTER TABLE ...
// AUTO_INCREMENT takes a literal, so the next value is computed first.
func (p *Provider) ResetSequences(ctx context.Context, targetSchema string, table schema.TableSchema) error {
	qualified := common.QuoteQualified(schema.MySQL, targetSchema, table.TableName)
	for _, c := range table.Columns {
		if !c.Identity {
			continue
		}
		if p.db == nil {
			stmt := fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = (SELECT COALESCE(MAX(%s), 0) + 1 FROM %s)",
				qualified, common.Quote(schema.MySQL, c.Name), qualified)
			p.sink.Exec(ctx, "Data", table.QualifiedName(), stmt)
			continue
		}
		var next int64
		q := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s", common.Quote(schema.MySQL, c.Name), qualified)
		if err := p.db.QueryRowContext(ctx, q).Scan(&next); err != nil {
			return migerr.NewForObject(migerr.SequenceResetFailed, table.QualifiedName(), "compute next auto_increment", err)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", qualified, next)
		if err := p.sink.Exec(ctx, "Data", table.QualifiedName(), stmt); err != nil {
			return migerr.NewForObject(migerr.SequenceResetFailed, table.QualifiedName(), "reset auto_increment", err)
		}
	}
	return nil
}

// DisableConstraints turns off foreign key checks for the current session.
func (p *Provider) DisableConstraints(ctx context.Context, targetSchema string) error {
	if err := p.sink.Exec(ctx, "Data", targetSchema, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return migerr.New(migerr.ConstraintToggleFailed, "disable mysql constraints", err)
	}
	return nil
}

// EnableConstraints re-enables foreign key checks.
func (p *Provider) EnableConstraints(ctx context.Context, targetSchema string) error {
	if err := p.sink.Exec(ctx, "Data", targetSchema, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
		return migerr.New(migerr.ConstraintToggleFailed, "enable mysql constraints", err)
	}
	return nil
}
