package postgres

import (
	"context"
	"strings"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/schema"
)

var systemSchemas = map[string]bool{"pg_catalog": true, "information_schema": true, "pg_toast": true}

func matchesFilter(name string, include, exclude []string) bool {
	lname := strings.ToLower(name)
	if len(include) > 0 {
		found := false
		for _, n := range include {
			if strings.ToLower(n) == lname {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, n := range exclude {
		if strings.ToLower(n) == lname {
			return false
		}
	}
	return true
}

// ReadTables queries pg_catalog/information_schema to populate the full
// schema model for every user table.
func (p *Provider) ReadTables(ctx context.Context, include, exclude []string) ([]schema.TableSchema, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT c.oid, n.nspname, c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r' AND n.nspname NOT LIKE 'pg_%' AND n.nspname <> 'information_schema'
		ORDER BY n.nspname, c.relname`)
	if err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "list postgres tables", err)
	}

	type tableRef struct {
		oid        uint32
		schemaName string
		tableName  string
	}
	var refs []tableRef
	for rows.Next() {
		var r tableRef
		if err := rows.Scan(&r.oid, &r.schemaName, &r.tableName); err != nil {
			rows.Close()
			return nil, migerr.New(migerr.SchemaReadFailed, "scan postgres table row", err)
		}
		if systemSchemas[r.schemaName] || !matchesFilter(r.tableName, include, exclude) {
			continue
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "iterate postgres tables", err)
	}

	tables := make([]schema.TableSchema, 0, len(refs))
	for _, r := range refs {
		t := schema.TableSchema{SchemaName: r.schemaName, TableName: r.tableName}
		var err error
		if t.Columns, err = p.readColumns(ctx, r.oid); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read columns", err)
		}
		if t.PrimaryKey, err = p.readPrimaryKey(ctx, r.oid); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read primary key", err)
		}
		if t.ForeignKeys, err = p.readForeignKeys(ctx, r.oid); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read foreign keys", err)
		}
		if t.Indexes, err = p.readIndexes(ctx, r.oid, r.schemaName, r.tableName); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read indexes", err)
		}
		if t.Constraints, err = p.readConstraints(ctx, r.oid, r.schemaName, r.tableName); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read constraints", err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (p *Provider) readColumns(ctx context.Context, oid uint32) ([]schema.ColumnSchema, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.attname, format_type(a.atttypid, a.atttypmod), NOT a.attnotnull,
		       COALESCE(a.attidentity <> '', false),
		       CASE WHEN a.atttypmod > 0 THEN a.atttypmod - 4 ELSE -1 END,
		       COALESCE(i.numeric_precision, 0), COALESCE(i.numeric_scale, 0),
		       COALESCE(pg_get_expr(d.adbin, d.adrelid), '')
		FROM pg_attribute a
		LEFT JOIN information_schema.columns i ON i.table_name = (SELECT relname FROM pg_class WHERE oid = a.attrelid) AND i.column_name = a.attname
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE a.attrelid = $1 AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`, oid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []schema.ColumnSchema
	for rows.Next() {
		var name, typeName, defaultSQL string
		var nullable, identity bool
		var maxLength, precision, scale int
		if err := rows.Scan(&name, &typeName, &nullable, &identity, &maxLength, &precision, &scale, &defaultSQL); err != nil {
			return nil, err
		}
		c := schema.ColumnSchema{Name: name, DataType: typeName, Nullable: nullable, Identity: identity, DefaultSQL: defaultSQL}
		switch {
		case strings.Contains(typeName, "char") || strings.Contains(typeName, "bytea"):
			ml := maxLength
			if ml <= 0 {
				ml = schema.UnboundedLength
			}
			c.MaxLength = &ml
		case typeName == "numeric" && precision > 0:
			pr, sc := precision, scale
			c.Precision = &pr
			c.Scale = &sc
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (p *Provider) readPrimaryKey(ctx context.Context, oid uint32) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.attname
		FROM pg_index idx
		JOIN pg_attribute a ON a.attrelid = idx.indrelid AND a.attnum = ANY(idx.indkey)
		WHERE idx.indrelid = $1 AND idx.indisprimary
		ORDER BY array_position(idx.indkey, a.attnum)`, oid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (p *Provider) readForeignKeys(ctx context.Context, oid uint32) ([]schema.ForeignKeySchema, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT con.conname, att.attname, fns.nspname, fcl.relname, fatt.attname
		FROM pg_constraint con
		JOIN pg_class fcl ON fcl.oid = con.confrelid
		JOIN pg_namespace fns ON fns.oid = fcl.relnamespace
		JOIN unnest(con.conkey) WITH ORDINALITY AS ck(attnum, ord) ON true
		JOIN unnest(con.confkey) WITH ORDINALITY AS fck(attnum, ord) ON fck.ord = ck.ord
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = ck.attnum
		JOIN pg_attribute fatt ON fatt.attrelid = con.confrelid AND fatt.attnum = fck.attnum
		WHERE con.conrelid = $1 AND con.contype = 'f'
		ORDER BY con.conname, ck.ord`, oid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schema.ForeignKeySchema
	for rows.Next() {
		var fk schema.ForeignKeySchema
		if err := rows.Scan(&fk.ConstraintName, &fk.Column, &fk.RefSchema, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		out = append(out, fk)
	}
	return out, rows.Err()
}

func (p *Provider) readIndexes(ctx context.Context, oid uint32, schemaName, tableName string) ([]schema.IndexSchema, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT i.relname, idx.indisunique, idx.indisprimary, COALESCE(pg_get_expr(idx.indpred, idx.indrelid), '')
		FROM pg_index idx
		JOIN pg_class i ON i.oid = idx.indexrelid
		WHERE idx.indrelid = $1`, oid)
	if err != nil {
		return nil, err
	}
	type idxRow struct {
		name     string
		unique   bool
		isPK     bool
		filter   string
	}
	var refs []idxRow
	for rows.Next() {
		var r idxRow
		if err := rows.Scan(&r.name, &r.unique, &r.isPK, &r.filter); err != nil {
			rows.Close()
			return nil, err
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]schema.IndexSchema, 0, len(refs))
	for _, r := range refs {
		cols, err := p.readIndexColumns(ctx, r.name)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.IndexSchema{
			Name: r.name, Table: tableName, Schema: schemaName,
			Unique: r.unique, IsPrimaryKey: r.isPK, Filter: r.filter, Columns: cols,
		})
	}
	return out, nil
}

func (p *Provider) readIndexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.attname
		FROM pg_index idx
		JOIN pg_class i ON i.oid = idx.indexrelid
		JOIN pg_attribute a ON a.attrelid = idx.indrelid AND a.attnum = ANY(idx.indkey)
		WHERE i.relname = $1
		ORDER BY array_position(idx.indkey, a.attnum)`, indexName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (p *Provider) readConstraints(ctx context.Context, oid uint32, schemaName, tableName string) ([]schema.ConstraintSchema, error) {
	var out []schema.ConstraintSchema

	rows, err := p.pool.Query(ctx, `
		SELECT con.conname, con.contype, COALESCE(pg_get_expr(con.conbin, con.conrelid), '')
		FROM pg_constraint con
		WHERE con.conrelid = $1 AND con.contype IN ('c', 'u')`, oid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name, kind, expr string
		if err := rows.Scan(&name, &kind, &expr); err != nil {
			return nil, err
		}
		if kind == "c" {
			out = append(out, schema.ConstraintSchema{Name: name, Table: tableName, Schema: schemaName, Kind: schema.ConstraintCheck, Check: expr})
		} else {
			out = append(out, schema.ConstraintSchema{Name: name, Table: tableName, Schema: schemaName, Kind: schema.ConstraintUnique})
		}
	}
	return out, rows.Err()
}

// ReadViews queries pg_views for every non-system view's raw definition.
func (p *Provider) ReadViews(ctx context.Context) ([]schema.ViewSchema, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT schemaname, viewname, definition FROM pg_views
		WHERE schemaname NOT LIKE 'pg_%' AND schemaname <> 'information_schema'
		ORDER BY schemaname, viewname`)
	if err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "list postgres views", err)
	}
	defer rows.Close()
	var out []schema.ViewSchema
	for rows.Next() {
		var schemaName, name, def string
		if err := rows.Scan(&schemaName, &name, &def); err != nil {
			return nil, migerr.New(migerr.SchemaReadFailed, "scan postgres view row", err)
		}
		out = append(out, schema.ViewSchema{Name: name, Schema: schemaName, SelectSQL: def})
	}
	return out, rows.Err()
}
