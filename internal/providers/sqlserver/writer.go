package sqlserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaydb/dbshift/internal/dialect"
	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/providers/common"
	"github.com/relaydb/dbshift/internal/schema"
	"github.com/relaydb/dbshift/internal/sqlcollector"
)

// CreateSchema emits CREATE TABLE for every table in the supplied order,
// columns plus primary key plus IDENTITY, deferring foreign keys to
// CreateForeignKeys.
func (p *Provider) CreateSchema(ctx context.Context, targetSchema string, tables []schema.TableSchema, continueOnError bool) (int, []error) {
	var count int
	var errs []error
	for _, t := range tables {
		var lines []string
		for _, c := range t.Columns {
			line := common.ColumnDefinition(schema.SQLServer, c)
			if c.Identity {
				line += " IDENTITY(1,1)"
			}
			lines = append(lines, line)
		}
		if len(t.PrimaryKey) > 0 {
			quoted := make([]string, len(t.PrimaryKey))
			for i, col := range t.PrimaryKey {
				quoted[i] = common.Quote(schema.SQLServer, col)
			}
			lines = append(lines, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)",
				common.Quote(schema.SQLServer, "pk_"+t.TableName), strings.Join(quoted, ", ")))
		}
		stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)",
			common.QuoteQualified(schema.SQLServer, targetSchema, t.TableName), strings.Join(lines, ",\n  "))
		if err := p.sink.Exec(ctx, sqlcollector.CategoryTables, t.QualifiedName(), stmt); err != nil {
			errs = append(errs, migerr.NewForObject(migerr.DDLFailed, t.QualifiedName(), "create table", err))
			if !continueOnError {
				return count, errs
			}
			continue
		}
		count++
	}
	return count, errs
}

// CreateViews translates each view body against the source-table name map
// and creates it under targetSchema.
func (p *Provider) CreateViews(ctx context.Context, targetSchema string, views []schema.ViewSchema, sourceTables []schema.TableSchema, sourceVendor schema.Vendor, continueOnError bool) (int, []error) {
	names := dialect.NameMap{}
	var sourceSchema string
	for _, t := range sourceTables {
		names[t.TableName] = t.TableName
		sourceSchema = t.SchemaName
	}
	var count int
	var errs []error
	for _, v := range views {
		body := dialect.TranslateViewBody(v.SelectSQL, sourceVendor, schema.SQLServer, names, sourceSchema, targetSchema)
		stmt := fmt.Sprintf("CREATE VIEW %s AS\n%s", common.QuoteQualified(schema.SQLServer, targetSchema, v.Name), body)
		object := targetSchema + "." + v.Name
		if err := p.sink.Exec(ctx, sqlcollector.CategoryViews, object, stmt); err != nil {
			errs = append(errs, migerr.NewForObject(migerr.DDLFailed, object, "create view", err))
			if !continueOnError {
				return count, errs
			}
			continue
		}
		count++
	}
	return count, errs
}

// CreateIndexes emits CREATE INDEX for every non-primary-key-backing index.
func (p *Provider) CreateIndexes(ctx context.Context, targetSchema string, indexes []schema.IndexSchema, continueOnError bool) (int, []error) {
	var count int
	var errs []error
	for _, idx := range indexes {
		if idx.IsPrimaryKey {
			continue
		}
		var b strings.Builder
		b.WriteString("CREATE ")
		if idx.Unique {
			b.WriteString("UNIQUE ")
		}
		if idx.Clustered {
			b.WriteString("CLUSTERED ")
		} else {
			b.WriteString("NONCLUSTERED ")
		}
		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			cols[i] = common.Quote(schema.SQLServer, c)
		}
		fmt.Fprintf(&b, "INDEX %s ON %s (%s)",
			common.Quote(schema.SQLServer, idx.Name),
			common.QuoteQualified(schema.SQLServer, targetSchema, idx.Table),
			strings.Join(cols, ", "))
		if len(idx.Included) > 0 {
			inc := make([]string, len(idx.Included))
			for i, c := range idx.Included {
				inc[i] = common.Quote(schema.SQLServer, c)
			}
			fmt.Fprintf(&b, " INCLUDE (%s)", strings.Join(inc, ", "))
		}
		if idx.Filter != "" {
			fmt.Fprintf(&b, " WHERE %s", dialect.TranslateFilterExpression(idx.Filter, schema.SQLServer))
		}
		object := targetSchema + "." + idx.Table + "." + idx.Name
		if err := p.sink.Exec(ctx, sqlcollector.CategoryIndexes, object, b.String()); err != nil {
			errs = append(errs, migerr.NewForObject(migerr.DDLFailed, object, "create index", err))
			if !continueOnError {
				return count, errs
			}
			continue
		}
		count++
	}
	return count, errs
}

// CreateConstraints emits CHECK, UNIQUE, and DEFAULT constraints.
func (p *Provider) CreateConstraints(ctx context.Context, targetSchema string, constraints []schema.ConstraintSchema, continueOnError bool) (int, []error) {
	var count int
	var errs []error
	for _, c := range constraints {
		object := targetSchema + "." + c.Table + "." + c.Name
		table := common.QuoteQualified(schema.SQLServer, targetSchema, c.Table)
		var stmt string
		switch c.Kind {
		case schema.ConstraintCheck:
			expr := dialect.TranslateCheckExpression(c.Check, schema.SQLServer)
			stmt = fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", table, common.Quote(schema.SQLServer, c.Name), expr)
		case schema.ConstraintUnique:
			cols := make([]string, len(c.Columns))
			for i, col := range c.Columns {
				cols[i] = common.Quote(schema.SQLServer, col)
			}
			stmt = fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", table, common.Quote(schema.SQLServer, c.Name), strings.Join(cols, ", "))
		case schema.ConstraintDefault:
			isBool := strings.EqualFold(c.ColumnType, "bit")
			expr := dialect.TranslateDefaultExpression(c.Default, schema.SQLServer, isBool)
			if expr == "" {
				continue
			}
			stmt = fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT %s FOR %s",
				table, common.Quote(schema.SQLServer, c.Name), expr, common.Quote(schema.SQLServer, c.Columns[0]))
		default:
			errs = append(errs, migerr.NewForObject(migerr.DDLFailed, object, "unknown constraint kind", fmt.Errorf("%q", c.Kind)))
			if !continueOnError {
				return count, errs
			}
			continue
		}
		if err := p.sink.Exec(ctx, sqlcollector.CategoryConstraints, object, stmt); err != nil {
			errs = append(errs, migerr.NewForObject(migerr.DDLFailed, object, "create constraint", err))
			if !continueOnError {
				return count, errs
			}
			continue
		}
		count++
	}
	return count, errs
}

// CreateForeignKeys emits one (possibly multi-column) ADD CONSTRAINT ...
// FOREIGN KEY per already-grouped ForeignKeyGroup (see
// schema.GroupForeignKeys), issued last so cycle members and data-dependent constraints can
// reference rows already in place.
func (p *Provider) CreateForeignKeys(ctx context.Context, targetSchema string, groups []schema.ForeignKeyGroup, continueOnError bool) (int, []error) {
	var count int
	var errs []error
	for _, g := range groups {
		object := targetSchema + "." + g.Table + "." + g.ConstraintName
		cols := make([]string, len(g.Columns))
		for i, c := range g.Columns {
			cols[i] = common.Quote(schema.SQLServer, c)
		}
		refCols := make([]string, len(g.RefColumns))
		for i, c := range g.RefColumns {
			refCols[i] = common.Quote(schema.SQLServer, c)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			common.QuoteQualified(schema.SQLServer, targetSchema, g.Table),
			common.Quote(schema.SQLServer, g.ConstraintName),
			strings.Join(cols, ", "),
			common.QuoteQualified(schema.SQLServer, targetSchema, g.RefTable),
			strings.Join(refCols, ", "))
		if err := p.sink.Exec(ctx, sqlcollector.CategoryForeignKeys, object, stmt); err != nil {
			errs = append(errs, migerr.NewForObject(migerr.DDLFailed, object, "create foreign key", err))
			if !continueOnError {
				return count, errs
			}
			continue
		}
		count++
	}
	return count, errs
}
