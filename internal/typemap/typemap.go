// Package typemap maps a source column's data type to a target vendor's SQL
// type string, preserving precision/scale/length fidelity where the target
// dialect supports it.
package typemap

import (
	"fmt"
	"strings"

	"github.com/relaydb/dbshift/internal/schema"
)

// mapFunc renders a target type string for a given column, for one vendor.
type mapFunc func(col schema.ColumnSchema) string

// category groups a normalized source type name with a per-vendor renderer.
type category struct {
	byVendor map[schema.Vendor]mapFunc
}

var registry = map[string]category{}

func register(sourceTypes []string, byVendor map[schema.Vendor]mapFunc) {
	c := category{byVendor: byVendor}
	for _, t := range sourceTypes {
		registry[strings.ToLower(t)] = c
	}
}

func init() {
	// Variable-length character strings.
	register([]string{"varchar", "nvarchar", "character varying", "varchar2", "nvarchar2"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "nvarchar", "nvarchar(max)") },
		schema.Postgres:  func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "character varying", "text") },
		schema.MySQL:     func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "varchar", "longtext") },
		schema.Oracle:    func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "VARCHAR2", "CLOB") },
	})

	// Fixed-length character strings.
	register([]string{"char", "nchar"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "nchar", "nvarchar(max)") },
		schema.Postgres:  func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "character", "text") },
		schema.MySQL:     func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "char", "longtext") },
		schema.Oracle:    func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "CHAR", "CLOB") },
	})

	// Unbounded text.
	register([]string{"text", "ntext", "clob", "longtext"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(schema.ColumnSchema) string { return "nvarchar(max)" },
		schema.Postgres:  func(schema.ColumnSchema) string { return "text" },
		schema.MySQL:     func(schema.ColumnSchema) string { return "longtext" },
		schema.Oracle:    func(schema.ColumnSchema) string { return "CLOB" },
	})

	// Booleans (spec.md §4.2: bit <-> boolean <-> TINYINT(1) <-> NUMBER(3)).
	register([]string{"bit", "boolean", "bool"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(schema.ColumnSchema) string { return "bit" },
		schema.Postgres:  func(schema.ColumnSchema) string { return "boolean" },
		schema.MySQL:     func(schema.ColumnSchema) string { return "tinyint(1)" },
		schema.Oracle:    func(schema.ColumnSchema) string { return "NUMBER(3)" },
	})

	// UUID/GUID.
	register([]string{"uniqueidentifier", "uuid", "guid"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(schema.ColumnSchema) string { return "uniqueidentifier" },
		schema.Postgres:  func(schema.ColumnSchema) string { return "uuid" },
		schema.MySQL:     func(schema.ColumnSchema) string { return "char(36)" },
		schema.Oracle:    func(schema.ColumnSchema) string { return "RAW(16)" },
	})

	// Binary large objects.
	register([]string{"varbinary", "binary", "image", "bytea", "blob", "raw", "longblob"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(c schema.ColumnSchema) string { return lenOrUnboundedWith(c, "varbinary", "varbinary(max)") },
		schema.Postgres:  func(schema.ColumnSchema) string { return "bytea" },
		schema.MySQL:     func(schema.ColumnSchema) string { return "longblob" },
		schema.Oracle: func(c schema.ColumnSchema) string {
			if c.MaxLength != nil && *c.MaxLength != schema.UnboundedLength && *c.MaxLength <= 2000 {
				return fmt.Sprintf("RAW(%d)", *c.MaxLength)
			}
			return "BLOB"
		},
	})

	// Exact integers.
	register([]string{"tinyint"}, integerFamily(1))
	register([]string{"smallint"}, integerFamily(2))
	register([]string{"int", "integer"}, integerFamily(4))
	register([]string{"bigint"}, integerFamily(8))

	// Floating point.
	register([]string{"float", "double", "double precision", "real", "binary_double", "binary_float"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(schema.ColumnSchema) string { return "float" },
		schema.Postgres:  func(schema.ColumnSchema) string { return "double precision" },
		schema.MySQL:     func(schema.ColumnSchema) string { return "double" },
		schema.Oracle:    func(schema.ColumnSchema) string { return "BINARY_DOUBLE" },
	})

	// Date/time.
	register([]string{"date"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(schema.ColumnSchema) string { return "date" },
		schema.Postgres:  func(schema.ColumnSchema) string { return "date" },
		schema.MySQL:     func(schema.ColumnSchema) string { return "date" },
		schema.Oracle:    func(schema.ColumnSchema) string { return "DATE" },
	})
	register([]string{"datetime", "datetime2", "timestamp", "smalldatetime"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: func(schema.ColumnSchema) string { return "datetime2" },
		schema.Postgres:  func(schema.ColumnSchema) string { return "timestamp" },
		schema.MySQL:     func(schema.ColumnSchema) string { return "datetime" },
		schema.Oracle:    func(schema.ColumnSchema) string { return "TIMESTAMP" },
	})

	// Numeric/decimal. Oracle's scale-sensitive "number" source type is
	// special-cased in Map and never reaches this table.
	register([]string{"decimal", "numeric"}, map[schema.Vendor]mapFunc{
		schema.SQLServer: numericType("numeric"),
		schema.Postgres:  numericType("numeric"),
		schema.MySQL:     numericType("decimal"),
		schema.Oracle:    numericType("NUMBER"),
	})
}

func lenOrUnboundedWith(col schema.ColumnSchema, bounded, unbounded string) string {
	if col.MaxLength == nil || *col.MaxLength == schema.UnboundedLength {
		return unbounded
	}
	return fmt.Sprintf("%s(%d)", bounded, *col.MaxLength)
}

func integerFamily(sourceBytes int) map[schema.Vendor]mapFunc {
	return map[schema.Vendor]mapFunc{
		schema.SQLServer: func(schema.ColumnSchema) string { return sqlServerIntByBytes(sourceBytes) },
		schema.Postgres:  func(schema.ColumnSchema) string { return postgresIntByBytes(sourceBytes) },
		schema.MySQL:     func(schema.ColumnSchema) string { return mysqlIntByBytes(sourceBytes) },
		schema.Oracle:    func(schema.ColumnSchema) string { return "NUMBER(19)" },
	}
}

func sqlServerIntByBytes(n int) string {
	switch {
	case n <= 1:
		return "tinyint"
	case n <= 2:
		return "smallint"
	case n <= 4:
		return "int"
	default:
		return "bigint"
	}
}

func postgresIntByBytes(n int) string {
	switch {
	case n <= 2:
		return "smallint"
	case n <= 4:
		return "integer"
	default:
		return "bigint"
	}
}

func mysqlIntByBytes(n int) string {
	switch {
	case n <= 1:
		return "tinyint"
	case n <= 2:
		return "smallint"
	case n <= 4:
		return "int"
	default:
		return "bigint"
	}
}

func numericType(name string) mapFunc {
	return func(c schema.ColumnSchema) string {
		p, s := 18, 0
		if c.Precision != nil {
			p = *c.Precision
		}
		if c.Scale != nil {
			s = *c.Scale
		}
		return fmt.Sprintf("%s(%d,%d)", name, p, s)
	}
}

// Map returns the target SQL type string for col, mapping from col's
// normalized source type name to the target vendor. Map is total: every
// (source type, target) pair returns a non-empty string, falling back to
// the target's generic text type for unrecognized source types.
func Map(col schema.ColumnSchema, target schema.Vendor) string {
	key := strings.ToLower(strings.TrimSpace(col.DataType))

	// Oracle NUMBER is scale-sensitive per spec.md §4.2 and needs the
	// column's own precision/scale regardless of target, so it is special
	// cased ahead of the generic registry lookup.
	if key == "number" {
		return mapOracleNumber(col, target)
	}

	if c, ok := registry[key]; ok {
		if fn, ok := c.byVendor[target]; ok {
			return fn(col)
		}
	}

	return genericText(target)
}

// mapOracleNumber implements the precision/scale rule from spec.md §4.2 for
// an Oracle NUMBER source column being migrated to any target vendor.
func mapOracleNumber(col schema.ColumnSchema, target schema.Vendor) string {
	var precision, scale int
	hasPrecision := col.Precision != nil
	if hasPrecision {
		precision = *col.Precision
	}
	if col.Scale != nil {
		scale = *col.Scale
	}

	if scale > 0 {
		p := precision
		if p == 0 {
			p = 38
		}
		switch target {
		case schema.SQLServer, schema.Postgres:
			return fmt.Sprintf("numeric(%d,%d)", p, scale)
		case schema.MySQL:
			return fmt.Sprintf("decimal(%d,%d)", p, scale)
		case schema.Oracle:
			return fmt.Sprintf("NUMBER(%d,%d)", p, scale)
		}
	}

	// scale == 0 or unset: narrowest integer that holds the declared precision.
	bytes := 8
	switch {
	case !hasPrecision || precision == 0:
		bytes = 8
	case precision <= 2:
		bytes = 1
	case precision <= 4:
		bytes = 2
	case precision <= 9:
		bytes = 4
	default:
		bytes = 8
	}
	switch target {
	case schema.SQLServer:
		return sqlServerIntByBytes(bytes)
	case schema.Postgres:
		return postgresIntByBytes(bytes)
	case schema.MySQL:
		return mysqlIntByBytes(bytes)
	case schema.Oracle:
		return "NUMBER(19)"
	}
	return genericText(target)
}

func genericText(target schema.Vendor) string {
	switch target {
	case schema.SQLServer:
		return "nvarchar(max)"
	case schema.Postgres:
		return "text"
	case schema.MySQL:
		return "longtext"
	case schema.Oracle:
		return "CLOB"
	default:
		return "text"
	}
}
