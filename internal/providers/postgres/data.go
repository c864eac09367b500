package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/providers"
	"github.com/relaydb/dbshift/internal/providers/common"
	"github.com/relaydb/dbshift/internal/schema"
)

func (p *Provider) RowCount(ctx context.Context, table schema.TableSchema) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", common.QuoteQualified(schema.Postgres, table.SchemaName, table.TableName))
	if err := p.pool.QueryRow(ctx, q).Scan(&n); err != nil {
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
		quoted[i] = common.Quote(schema.Postgres, c)
	}
	return strings.Join(quoted, ", ")
}

// FetchBatch pages through the table deterministically ordered by primary
// key (or first column) using LIMIT/OFFSET.
func (p *Provider) FetchBatch(ctx context.Context, table schema.TableSchema, offset, batchSize int) ([]providers.Row, error) {
	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT %d OFFSET %d",
		common.QuoteQualified(schema.Postgres, table.SchemaName, table.TableName), orderByClause(table), batchSize, offset)
	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, migerr.NewForObject(migerr.SchemaReadFailed, table.QualifiedName(), "fetch batch", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []providers.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, table.QualifiedName(), "scan batch row", err)
		}
		row := make(providers.Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// BulkInsert uses pgx's native binary COPY fast path.
func (p *Provider) BulkInsert(ctx context.Context, targetSchema string, table schema.TableSchema, rows []providers.Row) error {
	if p.pool == nil {
		return p.collectBulkInsert(targetSchema, table, rows)
	}
	if len(rows) == 0 {
		return nil
	}
	colNames := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		colNames[i] = c.Name
	}
	source := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(colNames))
		for j, name := range colNames {
			vals[j] = row[name]
		}
		source[i] = vals
	}
	_, err := p.pool.CopyFrom(ctx, pgx.Identifier{targetSchema, table.TableName}, colNames, pgx.CopyFromRows(source))
	if err != nil {
		return migerr.NewForObject(migerr.BulkInsertFailed, table.QualifiedName(), "copy from", err)
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
			common.QuoteQualified(schema.Postgres, targetSchema, table.TableName),
			strings.Join(colNames, ", "), strings.Join(vals, ", "))
		p.sink.collector.Add("Data", table.QualifiedName(), stmt)
	}
	return nil
}

// ResetSequences resolves each identity column's backing sequence via
// pg_get_serial_sequence (falling back to the conventional
// table_column_seq name) and advances it to MAX(col).
func (p *Provider) ResetSequences(ctx context.Context, targetSchema string, table schema.TableSchema) error {
	for _, c := range table.Columns {
		if !c.Identity {
			continue
		}
		qualifiedTable := common.QuoteQualified(schema.Postgres, targetSchema, table.TableName)
		stmt := fmt.Sprintf(
			`SELECT setval(COALESCE(pg_get_serial_sequence('%s.%s', '%s'), '%s_%s_seq'), COALESCE((SELECT MAX(%s) FROM %s), 1))`,
			targetSchema, table.TableName, c.Name, table.TableName, c.Name, common.Quote(schema.Postgres, c.Name), qualifiedTable)
		if err := p.sink.exec(ctx, "Data", table.QualifiedName(), stmt); err != nil {
			return migerr.NewForObject(migerr.SequenceResetFailed, table.QualifiedName(), "reset sequence", err)
		}
	}
	return nil
}

// DisableConstraints sets session_replication_role to 'replica', which
// suppresses all foreign key trigger checks for the current session.
func (p *Provider) DisableConstraints(ctx context.Context, targetSchema string) error {
	if err := p.sink.exec(ctx, "Data", targetSchema, "SET session_replication_role = 'replica'"); err != nil {
		return migerr.New(migerr.ConstraintToggleFailed, "disable postgres constraints", err)
	}
	return nil
}

func (p *Provider) EnableConstraints(ctx context.Context, targetSchema string) error {
	if err := p.sink.exec(ctx, "Data", targetSchema, "SET session_replication_role = 'origin'"); err != nil {
		return migerr.New(migerr.ConstraintToggleFailed, "enable postgres constraints", err)
	}
	return nil
}
