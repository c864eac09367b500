package oracle

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

// ReadTables queries the ALL_* data dictionary views for every table owned
// by the connecting user's current schema.
func (p *Provider) ReadTables(ctx context.Context, include, exclude []string) ([]schema.TableSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT OWNER, TABLE_NAME
		FROM ALL_TABLES
		WHERE OWNER = SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA')
		ORDER BY OWNER, TABLE_NAME`)
	if err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "list oracle tables", err)
	}

	type tableRef struct{ schemaName, tableName string }
	var refs []tableRef
	for rows.Next() {
		var r tableRef
		if err := rows.Scan(&r.schemaName, &r.tableName); err != nil {
			rows.Close()
			return nil, migerr.New(migerr.SchemaReadFailed, "scan oracle table row", err)
		}
		if matchesFilter(r.tableName, include, exclude) {
			refs = append(refs, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "iterate oracle tables", err)
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

// readColumns identifies identity columns via ALL_TAB_IDENTITY_COLS, which
// holds one row per IDENTITY column (Oracle 12c+'s GENERATED ... AS IDENTITY).
func (p *Provider) readColumns(ctx context.Context, schemaName, tableName string) ([]schema.ColumnSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.COLUMN_NAME, c.DATA_TYPE, c.NULLABLE = 'Y',
		       CASE WHEN ic.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END,
		       NVL(c.CHAR_LENGTH, -1), NVL(c.DATA_PRECISION, 0), NVL(c.DATA_SCALE, 0),
		       NVL(c.DATA_DEFAULT, '')
		FROM ALL_TAB_COLUMNS c
		LEFT JOIN ALL_TAB_IDENTITY_COLS ic
		  ON ic.OWNER = c.OWNER AND ic.TABLE_NAME = c.TABLE_NAME AND ic.COLUMN_NAME = c.COLUMN_NAME
		WHERE c.OWNER = :1 AND c.TABLE_NAME = :2
		ORDER BY c.COLUMN_ID`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []schema.ColumnSchema
	for rows.Next() {
		var name, typeName, defaultSQL string
		var nullable, identity bool
		var charLength, precision, scale int
		if err := rows.Scan(&name, &typeName, &nullable, &identity, &charLength, &precision, &scale, &defaultSQL); err != nil {
			return nil, err
		}
		c := schema.ColumnSchema{
			Name: name, DataType: typeName, Nullable: nullable, Identity: identity,
			DefaultSQL: strings.TrimSpace(defaultSQL),
		}
		switch typeName {
		case "VARCHAR2", "NVARCHAR2", "CHAR", "NCHAR", "RAW":
			ml := charLength
			c.MaxLength = &ml
		case "CLOB", "NCLOB", "BLOB", "LONG":
			ml := schema.UnboundedLength
			c.MaxLength = &ml
		case "NUMBER":
			if precision > 0 {
				pr, sc := precision, scale
				c.Precision = &pr
				c.Scale = &sc
			}
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (p *Provider) readKeys(ctx context.Context, schemaName, tableName string) ([]string, []schema.ForeignKeySchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT con.CONSTRAINT_TYPE, cc.COLUMN_NAME, con.CONSTRAINT_NAME,
		       rcon.OWNER, rcon.TABLE_NAME, rcc.COLUMN_NAME
		FROM ALL_CONSTRAINTS con
		JOIN ALL_CONS_COLUMNS cc
		  ON cc.OWNER = con.OWNER AND cc.CONSTRAINT_NAME = con.CONSTRAINT_NAME AND cc.TABLE_NAME = con.TABLE_NAME
		LEFT JOIN ALL_CONSTRAINTS rcon ON rcon.OWNER = con.R_OWNER AND rcon.CONSTRAINT_NAME = con.R_CONSTRAINT_NAME
		LEFT JOIN ALL_CONS_COLUMNS rcc
		  ON rcc.OWNER = rcon.OWNER AND rcc.CONSTRAINT_NAME = rcon.CONSTRAINT_NAME AND rcc.POSITION = cc.POSITION
		WHERE con.OWNER = :1 AND con.TABLE_NAME = :2 AND con.CONSTRAINT_TYPE IN ('P', 'R')
		ORDER BY con.CONSTRAINT_NAME, cc.POSITION`, schemaName, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var pk []string
	var fks []schema.ForeignKeySchema
	for rows.Next() {
		var kind, column, constraintName string
		var refSchema, refTable, refColumn *string
		if err := rows.Scan(&kind, &column, &constraintName, &refSchema, &refTable, &refColumn); err != nil {
			return nil, nil, err
		}
		if kind == "P" {
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
		SELECT i.INDEX_NAME, i.UNIQUENESS = 'UNIQUE',
		       CASE WHEN EXISTS (
		         SELECT 1 FROM ALL_CONSTRAINTS pk
		         WHERE pk.OWNER = i.TABLE_OWNER AND pk.TABLE_NAME = i.TABLE_NAME
		           AND pk.CONSTRAINT_TYPE = 'P' AND pk.INDEX_NAME = i.INDEX_NAME
		       ) THEN 1 ELSE 0 END
		FROM ALL_INDEXES i
		WHERE i.TABLE_OWNER = :1 AND i.TABLE_NAME = :2`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	type idxRow struct {
		name   string
		unique bool
		isPK   bool
	}
	var refs []idxRow
	for rows.Next() {
		var r idxRow
		if err := rows.Scan(&r.name, &r.unique, &r.isPK); err != nil {
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
		cols, err := p.readIndexColumns(ctx, schemaName, r.name)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.IndexSchema{
			Name: r.name, Table: tableName, Schema: schemaName,
			Unique: r.unique, IsPrimaryKey: r.isPK, Columns: cols,
		})
	}
	return out, nil
}

func (p *Provider) readIndexColumns(ctx context.Context, schemaName, indexName string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT COLUMN_NAME
		FROM ALL_IND_COLUMNS
		WHERE INDEX_OWNER = :1 AND INDEX_NAME = :2
		ORDER BY COLUMN_POSITION`, schemaName, indexName)
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

func (p *Provider) readConstraints(ctx context.Context, schemaName, tableName string) ([]schema.ConstraintSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT con.CONSTRAINT_NAME, con.CONSTRAINT_TYPE, NVL(con.SEARCH_CONDITION, '')
		FROM ALL_CONSTRAINTS con
		WHERE con.OWNER = :1 AND con.TABLE_NAME = :2 AND con.CONSTRAINT_TYPE IN ('C', 'U')
		  AND con.GENERATED = 'USER NAME'`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schema.ConstraintSchema
	for rows.Next() {
		var name, kind, check string
		if err := rows.Scan(&name, &kind, &check); err != nil {
			return nil, err
		}
		if kind == "C" {
			out = append(out, schema.ConstraintSchema{Name: name, Table: tableName, Schema: schemaName, Kind: schema.ConstraintCheck, Check: check})
		} else {
			out = append(out, schema.ConstraintSchema{Name: name, Table: tableName, Schema: schemaName, Kind: schema.ConstraintUnique})
		}
	}
	return out, rows.Err()
}

// ReadViews queries ALL_VIEWS for every view owned by the current schema.
func (p *Provider) ReadViews(ctx context.Context) ([]schema.ViewSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT OWNER, VIEW_NAME, TEXT
		FROM ALL_VIEWS
		WHERE OWNER = SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA')
		ORDER BY OWNER, VIEW_NAME`)
	if err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "list oracle views", err)
	}
	defer rows.Close()
	var out []schema.ViewSchema
	for rows.Next() {
		var schemaName, name, def string
		if err := rows.Scan(&schemaName, &name, &def); err != nil {
			return nil, migerr.New(migerr.SchemaReadFailed, "scan oracle view row", err)
		}
		out = append(out, schema.ViewSchema{Name: name, Schema: schemaName, SelectSQL: def})
	}
	return out, rows.Err()
}
