// Package common holds the SQL-rendering logic shared by all four vendor
// providers: identifier quoting, column DDL, and the routing between a live
// *sql.DB and the dry-run sqlcollector that spec.md §4.6 requires ("when the
// collector is active, writers must not open target connections").
package common

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/relaydb/dbshift/internal/identifier"
	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/schema"
	"github.com/relaydb/dbshift/internal/sqlcollector"
	"github.com/relaydb/dbshift/internal/typemap"
)

// Quote wraps name in the target vendor's identifier quote characters.
func Quote(target schema.Vendor, name string) string {
	switch target {
	case schema.SQLServer:
		return "[" + name + "]"
	case schema.MySQL:
		return "`" + name + "`"
	default: // PostgreSQL, Oracle
		return `"` + name + `"`
	}
}

// QuoteQualified quotes and joins a schema-qualified name.
func QuoteQualified(target schema.Vendor, schemaName, objectName string) string {
	return Quote(target, schemaName) + "." + Quote(target, objectName)
}

// Sink is where a writer sends its DDL/DML: either a live *sql.DB or a
// dry-run sqlcollector. Exactly one of DB or Collector is non-nil.
type Sink struct {
	DB        *sql.DB
	Collector *sqlcollector.Collector
}

// Exec runs sql against the live connection, or captures it under category
// if the sink is in collector mode.
func (s Sink) Exec(ctx context.Context, category sqlcollector.Category, object, stmt string) error {
	if s.Collector != nil {
		s.Collector.Add(category, object, stmt)
		return nil
	}
	_, err := s.DB.ExecContext(ctx, stmt)
	return err
}

// ColumnDefinition renders "quotedName type [NOT NULL]" for a CREATE TABLE
// column line. No DEFAULT clause is written here; defaults are emitted by
// the writers' CreateConstraints. Identity/auto-increment clauses are
// vendor-specific and are appended by the caller.
func ColumnDefinition(target schema.Vendor, col schema.ColumnSchema) string {
	var b strings.Builder
	b.WriteString(Quote(target, col.Name))
	b.WriteString(" ")
	b.WriteString(typemap.Map(col, target))
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	return b.String()
}

// ConvertedTableName returns a table name converted through conv. Column
// names and index/constraint/FK column references are converted separately
// by the caller.
func ConvertedTableName(conv identifier.Converter, name string) (string, error) {
	return conv.Convert(name)
}

// ConvertColumns returns a copy of cols with each Name run through conv,
// preserving all other fields.
func ConvertColumns(conv identifier.Converter, cols []schema.ColumnSchema) ([]schema.ColumnSchema, error) {
	out := make([]schema.ColumnSchema, len(cols))
	for i, c := range cols {
		name, err := conv.Convert(c.Name)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		out[i] = c
		out[i].Name = name
	}
	return out, nil
}

// IdentifierPattern is the per-vendor regex DataReader/DataWriter validate a
// dynamically-used identifier against before interpolating it into SQL, per
// spec.md §4.5's "identifiers used in queries are validated against a
// per-vendor regex and then quoted."
func IdentifierPattern(target schema.Vendor) string {
	switch target {
	case schema.Oracle:
		return `^[A-Za-z][A-Za-z0-9_$#]*$`
	default:
		return `^[A-Za-z_][A-Za-z0-9_]*$`
	}
}

var identifierPatterns = map[schema.Vendor]*regexp.Regexp{
	schema.SQLServer: regexp.MustCompile(IdentifierPattern(schema.SQLServer)),
	schema.Postgres:  regexp.MustCompile(IdentifierPattern(schema.Postgres)),
	schema.MySQL:      regexp.MustCompile(IdentifierPattern(schema.MySQL)),
	schema.Oracle:     regexp.MustCompile(IdentifierPattern(schema.Oracle)),
}

// ValidateIdentifier checks name against the target vendor's safe-identifier
// regex before it is interpolated (rather than bound) into a query, failing
// with UnsafeIdentifier per spec.md §4.5.
func ValidateIdentifier(target schema.Vendor, name string) error {
	re, ok := identifierPatterns[target]
	if !ok || !re.MatchString(name) {
		return migerr.NewForObject(migerr.UnsafeIdentifier, name, "identifier failed vendor safety validation", nil)
	}
	return nil
}
