package postgres

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

// CreateSchema emits CREATE TABLE for every table in the supplied order;
// identity columns use GENERATED ALWAYS AS IDENTITY, foreign keys deferred
// to CreateForeignKeys.
func (p *Provider) CreateSchema(ctx context.Context, targetSchema string, tables []schema.TableSchema, continueOnError bool) (int, []error) {
	var count int
	var errs []error
	for _, t := range tables {
		var lines []string
		for _, c := range t.Columns {
			line := common.ColumnDefinition(schema.Postgres, c)
			if c.Identity {
				line += " GENERATED ALWAYS AS IDENTITY"
			}
			lines = append(lines, line)
		}
		if len(t.PrimaryKey) > 0 {
			quoted := make([]string, len(t.PrimaryKey))
			for i, col := range t.PrimaryKey {
				quoted[i] = common.Quote(schema.Postgres, col)
			}
			lines = append(lines, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)",
				common.Quote(schema.Postgres, "pk_"+t.TableName), strings.Join(quoted, ", ")))
		}
		stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)",
			common.QuoteQualified(schema.Postgres, targetSchema, t.TableName), strings.Join(lines, ",\n  "))
		if err := p.sink.exec(ctx, sqlcollector.CategoryTables, t.QualifiedName(), stmt); err != nil {
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
		body := dialect.TranslateViewBody(v.SelectSQL, sourceVendor, schema.Postgres, names, sourceSchema, targetSchema)
		stmt := fmt.Sprintf("CREATE VIEW %s AS\n%s", common.QuoteQualified(schema.Postgres, targetSchema, v.Name), body)
		object := targetSchema + "." + v.Name
		if err := p.sink.exec(ctx, sqlcollector.CategoryViews, object, stmt); err != nil {
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
		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			cols[i] = common.Quote(schema.Postgres, c)
		}
		fmt.Fprintf(&b, "INDEX %s ON %s (%s)",
			common.Quote(schema.Postgres, idx.Name),
			common.QuoteQualified(schema.Postgres, targetSchema, idx.Table),
			strings.Join(cols, ", "))
		if len(idx.Included) > 0 {
			inc := make([]string, len(idx.Included))
			for i, c := range idx.Included {
				inc[i] = common.Quote(schema.Postgres, c)
			}
			fmt.Fprintf(&b, " INCLUDE (%s)", strings.Join(inc, ", "))
		}
		if idx.Filter != "" {
			fmt.Fprintf(&b, " WHERE %s", dialect.TranslateFilterExpression(idx.Filter, schema.Postgres))
		}
		object := targetSchema + "." + idx.Table + "." + idx.Name
		if err := p.sink.exec(ctx, sqlcollector.CategoryIndexes, object, b.String()); err != nil {
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

func (p *Provider) CreateConstraints(ctx context.Context, targetSchema string, constraints []schema.ConstraintSchema, continueOnError bool) (int, []error) {
	var count int
	var errs []error
	for _, c := range constraints {
		object := targetSchema + "." + c.Table + "." + c.Name
		table := common.QuoteQualified(schema.Postgres, targetSchema, c.Table)
		var stmt string
		switch c.Kind {
		case schema.ConstraintCheck:
			expr := dialect.TranslateCheckExpression(c.Check, schema.Postgres)
			stmt = fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", table, common.Quote(schema.Postgres, c.Name), expr)
		case schema.ConstraintUnique:
			cols := make([]string, len(c.Columns))
			for i, col := range c.Columns {
				cols[i] = common.Quote(schema.Postgres, col)
			}
			stmt = fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", table, common.Quote(schema.Postgres, c.Name), strings.Join(cols, ", "))
		case schema.ConstraintDefault:
			isBool := strings.EqualFold(c.ColumnType, "boolean")
			expr := dialect.TranslateDefaultExpression(c.Default, schema.Postgres, isBool)
			if expr == "" {
				continue
			}
			stmt = fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, common.Quote(schema.Postgres, c.Columns[0]), expr)
		default:
			errs = append(errs, migerr.NewForObject(migerr.DDLFailed, object, "unknown constraint kind", fmt.Errorf("%q", c.Kind)))
			if !continueOnError {
				return count, errs
			}
			continue
		}
		if err := p.sink.exec(ctx, sqlcollector.CategoryConstraints, object, stmt); err != nil {
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

func (p *Provider) CreateForeignKeys(ctx context.Context, targetSchema string, groups []schema.ForeignKeyGroup, continueOnError bool) (int, []error) {
	var count int
	var errs []error
	for _, g := range groups {
		object := targetSchema + "." + g.Table + "." + g.ConstraintName
		cols := make([]string, len(g.Columns))
		for i, c := range g.Columns {
			cols[i] = common.Quote(schema.Postgres, c)
		}
		refCols := make([]string, len(g.RefColumns))
		for i, c := range g.RefColumns {
			refCols[i] = common.Quote(schema.Postgres, c)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			common.QuoteQualified(schema.Postgres, targetSchema, g.Table),
			common.Quote(schema.Postgres, g.ConstraintName),
			strings.Join(cols, ", "),
			common.QuoteQualified(schema.Postgres, targetSchema, g.RefTable),
			strings.Join(refCols, ", "))
		if err := p.sink.exec(ctx, sqlcollector.CategoryForeignKeys, object, stmt); err != nil {
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
