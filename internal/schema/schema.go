package schema

import "fmt"

// UnboundedLength is the sentinel ColumnSchema.MaxLength value meaning
// "unbounded" (e.g. TEXT, CLOB, NVARCHAR(MAX)).
const UnboundedLength = -1

// ColumnSchema describes one column of a source or target table.
type ColumnSchema struct {
	Name       string
	DataType   string // source dialect's raw type name, e.g. "varchar", "NUMBER"
	Nullable   bool
	Identity   bool // auto-increment / IDENTITY / SERIAL
	MaxLength  *int // nil = not applicable (e.g. numeric types); UnboundedLength = unbounded text/binary
	Precision  *int
	Scale      *int
	DefaultSQL string // raw default expression text, empty if none
}

// Validate enforces the invariant that an identity column cannot be nullable.
func (c ColumnSchema) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column has empty name")
	}
	if c.Identity && c.Nullable {
		return fmt.Errorf("column %q: identity columns cannot be nullable", c.Name)
	}
	return nil
}

// ForeignKeySchema is a single-column foreign key edge. Multi-column foreign
// keys are represented as repeated entries sharing ConstraintName; group by
// (SchemaName, TableName, ConstraintName) before emitting DDL — see
// GroupForeignKeys.
type ForeignKeySchema struct {
	ConstraintName  string
	Column          string
	RefSchema       string
	RefTable        string
	RefColumn       string
}

// IndexSchema describes one index. A primary-key-backing index is skipped at
// creation time; it is materialized by the table's PRIMARY KEY clause.
type IndexSchema struct {
	Name         string
	Table        string
	Schema       string
	Columns      []string
	Unique       bool
	Clustered    bool
	IsPrimaryKey bool
	Filter       string   // optional filter predicate for partial/filtered indexes
	Included     []string // covering columns, ordered
}

// ConstraintKind enumerates the non-key constraint kinds.
type ConstraintKind string

const (
	ConstraintCheck   ConstraintKind = "check"
	ConstraintUnique  ConstraintKind = "unique"
	ConstraintDefault ConstraintKind = "default"
)

// ConstraintSchema describes one non-key constraint.
type ConstraintSchema struct {
	Name       string
	Table      string
	Schema     string
	Kind       ConstraintKind
	Columns    []string
	Check      string // required when Kind == ConstraintCheck
	Default    string // required when Kind == ConstraintDefault
	ColumnType string // source data type of the defaulted column, optional
}

// Validate enforces the per-kind invariants from spec.md §3.
func (c ConstraintSchema) Validate() error {
	switch c.Kind {
	case ConstraintCheck:
		if c.Check == "" {
			return fmt.Errorf("constraint %q: check constraints require a check expression", c.Name)
		}
	case ConstraintDefault:
		if len(c.Columns) != 1 {
			return fmt.Errorf("constraint %q: default constraints require exactly one column", c.Name)
		}
		if c.Default == "" {
			return fmt.Errorf("constraint %q: default constraints require a default expression", c.Name)
		}
	case ConstraintUnique:
		if len(c.Columns) < 1 {
			return fmt.Errorf("constraint %q: unique constraints require at least one column", c.Name)
		}
	default:
		return fmt.Errorf("constraint %q: unknown kind %q", c.Name, c.Kind)
	}
	return nil
}

// ViewSchema describes one view's raw SELECT text.
type ViewSchema struct {
	Name            string
	Schema          string
	SelectSQL       string
	DeclaredColumns []string // optional
}

// TableSchema is the full structural description of one table.
type TableSchema struct {
	SchemaName  string
	TableName   string
	Columns     []ColumnSchema
	PrimaryKey  []string
	ForeignKeys []ForeignKeySchema
	Indexes     []IndexSchema
	Constraints []ConstraintSchema
}

// QualifiedName returns "schema.table", the sorter and logger's canonical key.
func (t TableSchema) QualifiedName() string {
	return t.SchemaName + "." + t.TableName
}

// ColumnNames returns the table's columns in declaration order.
func (t TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (t TableSchema) hasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Validate checks the invariants from spec.md §3: every primary/foreign key
// column resolves to a declared column.
func (t TableSchema) Validate() error {
	if t.TableName == "" {
		return fmt.Errorf("table has empty name")
	}
	for _, c := range t.Columns {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.QualifiedName(), err)
		}
	}
	for _, pk := range t.PrimaryKey {
		if !t.hasColumn(pk) {
			return fmt.Errorf("table %s: primary key column %q not found", t.QualifiedName(), pk)
		}
	}
	for _, fk := range t.ForeignKeys {
		if !t.hasColumn(fk.Column) {
			return fmt.Errorf("table %s: foreign key column %q not found", t.QualifiedName(), fk.Column)
		}
	}
	return nil
}

// ForeignKeyGroup is a grouped, possibly multi-column, foreign key ready for
// DDL emission.
type ForeignKeyGroup struct {
	ConstraintName string
	Schema         string
	Table          string
	Columns        []string
	RefSchema      string
	RefTable       string
	RefColumns     []string
}

// GroupForeignKeys resolves spec.md §9's open question: multi-column foreign
// keys are represented upstream as repeated single-column entries sharing a
// constraint name. Group by (schema, table, constraint name), preserving
// first-seen column order, before emitting DDL.
func GroupForeignKeys(schemaName, tableName string, fks []ForeignKeySchema) []ForeignKeyGroup {
	order := make([]string, 0, len(fks))
	groups := make(map[string]*ForeignKeyGroup, len(fks))
	for _, fk := range fks {
		g, ok := groups[fk.ConstraintName]
		if !ok {
			g = &ForeignKeyGroup{
				ConstraintName: fk.ConstraintName,
				Schema:         schemaName,
				Table:          tableName,
				RefSchema:      fk.RefSchema,
				RefTable:       fk.RefTable,
			}
			groups[fk.ConstraintName] = g
			order = append(order, fk.ConstraintName)
		}
		g.Columns = append(g.Columns, fk.Column)
		g.RefColumns = append(g.RefColumns, fk.RefColumn)
	}
	out := make([]ForeignKeyGroup, 0, len(order))
	for _, name := range order {
		out = append(out, *groups[name])
	}
	return out
}
