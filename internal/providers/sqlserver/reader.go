package sqlserver

import (
	"context"
	"strings"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/schema"
)

var systemSchemas = map[string]bool{
	"sys": true, "INFORMATION_SCHEMA": true, "guest": true,
	"db_owner": true, "db_accessadmin": true, "db_backupoperator": true,
	"db_datareader": true, "db_datawriter": true, "db_ddladmin": true,
	"db_denydatareader": true, "db_denydatawriter": true, "db_securityadmin": true,
}

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

// ReadTables queries sys.tables/sys.columns/sys.key_constraints/sys.foreign_keys/sys.indexes
// to populate the full schema model.
func (p *Provider) ReadTables(ctx context.Context, include, exclude []string) ([]schema.TableSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT t.object_id, s.name, t.name
		FROM sys.tables t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		ORDER BY s.name, t.name`)
	if err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "list sqlserver tables", err)
	}
	defer rows.Close()

	type tableRef struct {
		oid        int64
		schemaName string
		tableName  string
	}
	var refs []tableRef
	for rows.Next() {
		var r tableRef
		if err := rows.Scan(&r.oid, &r.schemaName, &r.tableName); err != nil {
			return nil, migerr.New(migerr.SchemaReadFailed, "scan sqlserver table row", err)
		}
		if systemSchemas[r.schemaName] {
			continue
		}
		if !matchesFilter(r.tableName, include, exclude) {
			continue
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "iterate sqlserver tables", err)
	}

	tables := make([]schema.TableSchema, 0, len(refs))
	for _, r := range refs {
		t := schema.TableSchema{SchemaName: r.schemaName, TableName: r.tableName}

		cols, err := p.readColumns(ctx, r.oid)
		if err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read columns", err)
		}
		t.Columns = cols

		pk, err := p.readPrimaryKey(ctx, r.oid)
		if err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read primary key", err)
		}
		t.PrimaryKey = pk

		fks, err := p.readForeignKeys(ctx, r.oid)
		if err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read foreign keys", err)
		}
		t.ForeignKeys = fks

		idx, err := p.readIndexes(ctx, r.oid, r.schemaName, r.tableName)
		if err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read indexes", err)
		}
		t.Indexes = idx

		cons, err := p.readConstraints(ctx, r.oid, r.schemaName, r.tableName)
		if err != nil {
			return nil, migerr.NewForObject(migerr.SchemaReadFailed, t.QualifiedName(), "read constraints", err)
		}
		t.Constraints = cons

		tables = append(tables, t)
	}
	return tables, nil
}

func (p *Provider) readColumns(ctx context.Context, oid int64) ([]schema.ColumnSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.name, ty.name, c.is_nullable, c.is_identity, c.max_length, c.precision, c.scale,
		       ISNULL(dc.definition, '')
		FROM sys.columns c
		JOIN sys.types ty ON c.user_type_id = ty.user_type_id
		LEFT JOIN sys.default_constraints dc ON dc.parent_object_id = c.object_id AND dc.parent_column_id = c.column_id
		WHERE c.object_id = @p1
		ORDER BY c.column_id`, oid)
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
		c := schema.ColumnSchema{
			Name:       name,
			DataType:   typeName,
			Nullable:   nullable,
			Identity:   identity,
			DefaultSQL: defaultSQL,
		}
		switch strings.ToLower(typeName) {
		case "nvarchar", "varchar", "nchar", "char", "varbinary", "binary":
			ml := maxLength
			if strings.HasPrefix(strings.ToLower(typeName), "n") && maxLength > 0 {
				ml = maxLength / 2
			}
			if maxLength == -1 {
				ml = schema.UnboundedLength
			}
			c.MaxLength = &ml
		case "decimal", "numeric":
			p, s := precision, scale
			c.Precision = &p
			c.Scale = &s
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (p *Provider) readPrimaryKey(ctx context.Context, oid int64) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT col.name
		FROM sys.key_constraints kc
		JOIN sys.index_columns ic ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE kc.parent_object_id = @p1 AND kc.type = 'PK'
		ORDER BY ic.key_ordinal`, oid)
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

func (p *Provider) readForeignKeys(ctx context.Context, oid int64) ([]schema.ForeignKeySchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT fk.name, pc.name, rs.name, rt.name, rc.name
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
		WHERE fk.parent_object_id = @p1
		ORDER BY fk.name, fkc.constraint_column_id`, oid)
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

func (p *Provider) readIndexes(ctx context.Context, oid int64, schemaName, tableName string) ([]schema.IndexSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT i.index_id, i.name, i.is_unique, i.type_desc, i.is_primary_key, ISNULL(i.filter_definition, '')
		FROM sys.indexes i
		WHERE i.object_id = @p1 AND i.name IS NOT NULL AND i.type <> 0
		ORDER BY i.index_id`, oid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type idxRef struct {
		id     int
		idx    schema.IndexSchema
	}
	var refs []idxRef
	for rows.Next() {
		var id int
		var name, typeDesc, filter string
		var unique, isPK bool
		if err := rows.Scan(&id, &name, &unique, &typeDesc, &isPK, &filter); err != nil {
			return nil, err
		}
		refs = append(refs, idxRef{id: id, idx: schema.IndexSchema{
			Name: name, Table: tableName, Schema: schemaName,
			Unique: unique, Clustered: typeDesc == "CLUSTERED", IsPrimaryKey: isPK, Filter: filter,
		}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]schema.IndexSchema, 0, len(refs))
	for _, r := range refs {
		cols, included, err := p.readIndexColumns(ctx, oid, r.id)
		if err != nil {
			return nil, err
		}
		idx := r.idx
		idx.Columns = cols
		idx.Included = included
		out = append(out, idx)
	}
	return out, nil
}

func (p *Provider) readIndexColumns(ctx context.Context, oid int64, indexID int) (cols, included []string, err error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT col.name, ic.is_included_column
		FROM sys.index_columns ic
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE ic.object_id = @p1 AND ic.index_id = @p2
		ORDER BY ic.key_ordinal, ic.index_column_id`, oid, indexID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var isIncluded bool
		if err := rows.Scan(&name, &isIncluded); err != nil {
			return nil, nil, err
		}
		if isIncluded {
			included = append(included, name)
		} else {
			cols = append(cols, name)
		}
	}
	return cols, included, rows.Err()
}

func (p *Provider) readConstraints(ctx context.Context, oid int64, schemaName, tableName string) ([]schema.ConstraintSchema, error) {
	var out []schema.ConstraintSchema

	checkRows, err := p.db.QueryContext(ctx, `
		SELECT cc.name, cc.definition
		FROM sys.check_constraints cc WHERE cc.parent_object_id = @p1`, oid)
	if err != nil {
		return nil, err
	}
	defer checkRows.Close()
	for checkRows.Next() {
		var name, def string
		if err := checkRows.Scan(&name, &def); err != nil {
			return nil, err
		}
		out = append(out, schema.ConstraintSchema{Name: name, Table: tableName, Schema: schemaName, Kind: schema.ConstraintCheck, Check: def})
	}
	if err := checkRows.Err(); err != nil {
		return nil, err
	}

	uqRows, err := p.db.QueryContext(ctx, `
		SELECT kc.name, col.name
		FROM sys.key_constraints kc
		JOIN sys.index_columns ic ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE kc.parent_object_id = @p1 AND kc.type = 'UQ'
		ORDER BY kc.name, ic.key_ordinal`, oid)
	if err != nil {
		return nil, err
	}
	defer uqRows.Close()
	byName := map[string]*schema.ConstraintSchema{}
	var order []string
	for uqRows.Next() {
		var name, col string
		if err := uqRows.Scan(&name, &col); err != nil {
			return nil, err
		}
		c, ok := byName[name]
		if !ok {
			c = &schema.ConstraintSchema{Name: name, Table: tableName, Schema: schemaName, Kind: schema.ConstraintUnique}
			byName[name] = c
			order = append(order, name)
		}
		c.Columns = append(c.Columns, col)
	}
	if err := uqRows.Err(); err != nil {
		return nil, err
	}
	for _, n := range order {
		out = append(out, *byName[n])
	}

	defRows, err := p.db.QueryContext(ctx, `
		SELECT dc.name, col.name, dc.definition, ty.name
		FROM sys.default_constraints dc
		JOIN sys.columns col ON col.object_id = dc.parent_object_id AND col.column_id = dc.parent_column_id
		JOIN sys.types ty ON ty.user_type_id = col.user_type_id
		WHERE dc.parent_object_id = @p1`, oid)
	if err != nil {
		return nil, err
	}
	defer defRows.Close()
	for defRows.Next() {
		var name, col, def, colType string
		if err := defRows.Scan(&name, &col, &def, &colType); err != nil {
			return nil, err
		}
		out = append(out, schema.ConstraintSchema{
			Name: name, Table: tableName, Schema: schemaName, Kind: schema.ConstraintDefault,
			Columns: []string{col}, Default: def, ColumnType: colType,
		})
	}
	return out, defRows.Err()
}

// ReadViews queries sys.views for every user view's raw SELECT body.
func (p *Provider) ReadViews(ctx context.Context) ([]schema.ViewSchema, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT s.name, v.name, m.definition
		FROM sys.views v
		JOIN sys.schemas s ON s.schema_id = v.schema_id
		JOIN sys.sql_modules m ON m.object_id = v.object_id
		ORDER BY s.name, v.name`)
	if err != nil {
		return nil, migerr.New(migerr.SchemaReadFailed, "list sqlserver views", err)
	}
	defer rows.Close()

	var out []schema.ViewSchema
	for rows.Next() {
		var schemaName, name, def string
		if err := rows.Scan(&schemaName, &name, &def); err != nil {
			return nil, migerr.New(migerr.SchemaReadFailed, "scan sqlserver view row", err)
		}
		if systemSchemas[schemaName] {
			continue
		}
		out = append(out, schema.ViewSchema{Name: name, Schema: schemaName, SelectSQL: def})
	}
	return out, rows.Err()
}
