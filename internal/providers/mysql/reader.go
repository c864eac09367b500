package mysql

import (
	"context"
	"strings"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/schema"
)

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

// ReadTables queries information_schema to populate the full schema model
// for every user table in the current database.
func (p *Provider) ReadTables(ctx context.Context, include, exclude []string) ([]schema.TableSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT TABLE_SCHEMA, TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_SCHEMA, TABLE_NAME`)
	if err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "list mysql tables", err)
	}

	type tableRef struct{ schemaName, tableName string }
	var refs []tableRef
	for rows.Next() {
		var r tableRef
		if err := rows.Scan(&r.schemaName, &r.tableName); err != nil {
			rows.Close()
			return nil, migerr.New(migerr.SchemaReadFailed, "scan mysql table row", err)
		}
		if matchesFilter(r.tableName, include, exclude) {
			refs = append(refs, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "iterate mysql tables", err)
	}

	tables := make([]schema.TableSchema, 0, len(refs))
	for _, r := range refs {
		t := schema.TableSchema{SchemaName: r.schemaName, TableName: r.tableName}
		var err error
		if t.Columns, err = p.readColumns(ctx, r.schemaName, r.tableName); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read columns", err)
		}
		if t.PrimaryKey, t.ForeignKeys, err = p.readKeys(ctx, r.schemaName, r.tableName); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read keys", err)
		}
		if t.Indexes, err = p.readIndexes(ctx, r.schemaName, r.tableName); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read indexes", err)
		}
		if t.Constraints, err = p.readConstraints(ctx, r.schemaName, r.tableName); err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read constraints", err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (p *Provider) readColumns(ctx context.Context, schemaName, tableName string) ([]schema.ColumnSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE = 'YES', EXTRA LIKE '%auto_increment%',
		       COALESCE(CHARACTER_MAXIMUM_LENGTH, -1), COALESCE(NUMERIC_PRECISION, 0), COALESCE(NUMERIC_SCALE, 0),
		       COALESCE(COLUMN_DEFAULT, '')
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schemaName, tableName)
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
		switch typeName {
		case "varchar", "char", "binary", "varbinary":
			ml := maxLength
			c.MaxLength = &ml
		case "text", "blob", "mediumtext", "longtext", "mediumblob", "longblob":
			ml := schema.UnboundedLength
			c.MaxLength = &ml
		case "decimal", "numeric":
			pr, sc := precision, scale
			c.Precision = &pr
			c.Scale = &sc
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (p *Provider) readKeys(ctx context.Context, schemaName, tableName string) ([]string, []schema.ForeignKeySchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT k.CONSTRAINT_NAME, k.COLUMN_NAME, k.REFERENCED_TABLE_SCHEMA, k.REFERENCED_TABLE_NAME, k.REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE k
		WHERE k.TABLE_SCHEMA = ? AND k.TABLE_NAME = ?
		ORDER BY k.CONSTRAINT_NAME, k.ORDINAL_POSITION`, schemaName, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var pk []string
	var fks []schema.ForeignKeySchema
	for rows.Next() {
		var constraintName, column string
		var refSchema, refTable, refColumn *string
		if err := rows.Scan(&constraintName, &column, &refSchema, &refTable, &refColumn); err != nil {
			return nil, nil, err
		}
		if constraintName == "PRIMARY" {
			pk = append(pk, column)
			continue
		}
		if refTable != nil {
			fks = append(fks, schema.ForeignKeySchema{
				ConstraintName: constraintName, Column: column,
				RefSchema: *refSchema, RefTable: *refTable, RefColumn: *refColumn,
			})
		}
	}
	return pk, fks, rows.Err()
}

func (p *Provider) readIndexes(ctx context.Context, schemaName, tableName string) ([]schema.IndexSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT INDEX_NAME, NON_UNIQUE = 0, INDEX_NAME = 'PRIMARY', COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byName := map[string]*schema.IndexSchema{}
	var order []string
	for rows.Next() {
		var name, column string
		var unique, isPK bool
		if err := rows.Scan(&name, &unique, &isPK, &column); err != nil {
			return nil, err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &schema.IndexSchema{Name: name, Table: tableName, Schema: schemaName, Unique: unique, IsPrimaryKey: isPK}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]schema.IndexSchema, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

func (p *Provider) readConstraints(ctx context.Context, schemaName, tableName string) ([]schema.ConstraintSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT cc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
		FROM information_schema.CHECK_CONSTRAINTS cc
		JOIN information_schema.TABLE_CONSTRAINTS tc
		  ON tc.CONSTRAINT_SCHEMA = cc.CONSTRAINT_SCHEMA AND tc.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
		WHERE tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schema.ConstraintSchema
	for rows.Next() {
		var name, expr string
		if err := rows.Scan(&name, &expr); err != nil {
			return nil, err
		}
		out = append(out, schema.ConstraintSchema{Name: name, Table: tableName, Schema: schemaName, Kind: schema.ConstraintCheck, Check: expr})
	}
	return out, rows.Err()
}

// ReadViews queries information_schema.VIEWS for the current database.
func (p *Provider) ReadViews(ctx context.Context) ([]schema.ViewSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT TABLE_SCHEMA, TABLE_NAME, VIEW_DEFINITION
		FROM information_schema.VIEWS
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_SCHEMA, TABLE_NAME`)
	if err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "list mysql views", err)
	}
	defer rows.Close()
	var out []schema.ViewSchema
	for rows.Next() {
		var schemaName, name, def string
		if err := rows.Scan(&schemaName, &name, &def); err != nil {
			return nil, migerr.New(migerr.SchemaReadFailed, "scan mysql view row", err)
		}
		out = append(out, schema.ViewSchema{Name: name, Schema: schemaName, SelectSQL: def})
	}
	return out, rows.Err()
}
