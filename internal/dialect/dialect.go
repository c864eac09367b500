// Package dialect rewrites SQL fragments — view bodies, CHECK predicates,
// DEFAULT expressions, and filtered-index predicates — between the four
// supported vendor dialects.
package dialect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/relaydb/dbshift/internal/schema"
)

// NameMap maps a source-qualified object name (table or column) to its
// target name, used to rewrite references inside a view body.
type NameMap map[string]string

var funcRenames = map[string][4]string{
	// function key (lowercase) -> [sqlserver, postgres, mysql, oracle]
	"getdate":   {"GETDATE()", "NOW()", "NOW()", "SYSDATE"},
	"now":       {"GETDATE()", "NOW()", "NOW()", "SYSDATE"},
	"sysdate":   {"GETDATE()", "NOW()", "NOW()", "SYSDATE"},
	"newid":     {"NEWID()", "gen_random_uuid()", "UUID()", "SYS_GUID()"},
	"uuid":      {"NEWID()", "gen_random_uuid()", "UUID()", "SYS_GUID()"},
	"sys_guid":  {"NEWID()", "gen_random_uuid()", "UUID()", "SYS_GUID()"},
}

func vendorIndex(v schema.Vendor) int {
	switch v {
	case schema.SQLServer:
		return 0
	case schema.Postgres:
		return 1
	case schema.MySQL:
		return 2
	case schema.Oracle:
		return 3
	default:
		return 1
	}
}

var funcPattern = regexp.MustCompile(`(?i)\b(getdate|now|sysdate|newid|uuid|sys_guid)\s*\(\s*\)`)

// rewriteFunctions replaces current-date/now/new-guid function calls with
// the target vendor's equivalent.
func rewriteFunctions(sql string, target schema.Vendor) string {
	idx := vendorIndex(target)
	return funcPattern.ReplaceAllStringFunc(sql, func(m string) string {
		name := strings.ToLower(funcPattern.FindStringSubmatch(m)[1])
		if variants, ok := funcRenames[name]; ok {
			return variants[idx]
		}
		return m
	})
}

var isnullPattern = regexp.MustCompile(`(?i)\bISNULL\s*\(`)

// rewriteISNULL maps SQL Server's ISNULL(a,b) to the portable COALESCE(a,b),
// which every target vendor accepts.
func rewriteISNULL(sql string) string {
	return isnullPattern.ReplaceAllString(sql, "COALESCE(")
}

var boolLiteralPattern = regexp.MustCompile(`(?i)\b(true|false)\b`)

// rewriteBoolLiterals normalizes boolean literal spelling for vendors
// without a native boolean keyword (SQL Server and Oracle use 1/0).
func rewriteBoolLiterals(sql string, target schema.Vendor) string {
	if target != schema.SQLServer && target != schema.Oracle {
		return sql
	}
	return boolLiteralPattern.ReplaceAllStringFunc(sql, func(m string) string {
		if strings.EqualFold(m, "true") {
			return "1"
		}
		return "0"
	})
}

// rewriteConcat converts the three forms of string concatenation between
// dialects: SQL Server/Oracle's `+`/`||`, PostgreSQL/Oracle's `||`, and
// MySQL's CONCAT(...). Because a source-specific rewrite needs to know the
// SOURCE operator, rewriteConcat only normalizes `||` <-> CONCAT for MySQL
// targets/sources; `+` is not rewritten here since it is ambiguous with
// arithmetic addition outside a known source dialect.
func rewriteConcat(sql string, source, target schema.Vendor) string {
	if source == schema.MySQL && target != schema.MySQL {
		// CONCAT(a, b, c) -> a || b || c
		return concatCallPattern.ReplaceAllStringFunc(sql, func(m string) string {
			args := splitArgs(m[len("CONCAT(") : len(m)-1])
			return strings.Join(args, " || ")
		})
	}
	if target == schema.MySQL && source != schema.MySQL {
		parts := strings.Split(sql, "||")
		if len(parts) > 1 {
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return "CONCAT(" + strings.Join(parts, ", ") + ")"
		}
	}
	return sql
}

var concatCallPattern = regexp.MustCompile(`(?i)CONCAT\s*\([^()]*\)`)

func splitArgs(s string) []string {
	var args []string
	for _, p := range strings.Split(s, ",") {
		args = append(args, strings.TrimSpace(p))
	}
	return args
}

// rewritePagination converts TOP n / LIMIT n / FETCH FIRST n ROWS ONLY
// between dialects.
var (
	topPattern   = regexp.MustCompile(`(?i)\bTOP\s*\(?\s*(\d+)\s*\)?`)
	limitPattern = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`)
	fetchPattern = regexp.MustCompile(`(?i)\bFETCH\s+FIRST\s+(\d+)\s+ROWS\s+ONLY\b`)
)

func rewritePagination(sql string, source, target schema.Vendor) string {
	var n string
	var found bool
	switch source {
	case schema.SQLServer:
		if m := topPattern.FindStringSubmatch(sql); m != nil {
			n, found = m[1], true
			sql = topPattern.ReplaceAllString(sql, "")
		}
	case schema.Postgres, schema.MySQL:
		if m := limitPattern.FindStringSubmatch(sql); m != nil {
			n, found = m[1], true
			sql = limitPattern.ReplaceAllString(sql, "")
		}
	case schema.Oracle:
		if m := fetchPattern.FindStringSubmatch(sql); m != nil {
			n, found = m[1], true
			sql = fetchPattern.ReplaceAllString(sql, "")
		}
	}
	if !found {
		return sql
	}
	sql = strings.TrimSpace(sql)
	switch target {
	case schema.SQLServer:
		return reinsertTop(sql, n)
	case schema.Postgres, schema.MySQL:
		return sql + " LIMIT " + n
	case schema.Oracle:
		return sql + " FETCH FIRST " + n + " ROWS ONLY"
	}
	return sql
}

var selectPattern = regexp.MustCompile(`(?i)^SELECT\s+(DISTINCT\s+)?`)

func reinsertTop(sql, n string) string {
	loc := selectPattern.FindStringIndex(sql)
	if loc == nil {
		return sql
	}
	return sql[:loc[1]] + "TOP " + n + " " + sql[loc[1]:]
}

// rewriteQuoting converts identifier quoting: [x] <-> "x" <-> `x`.
var (
	bracketQuote = regexp.MustCompile(`\[([A-Za-z_][A-Za-z0-9_]*)\]`)
	dquote       = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"`)
	backtick     = regexp.MustCompile(`` + "`" + `([A-Za-z_][A-Za-z0-9_]*)` + "`" + ``)
)

func rewriteQuoting(sql string, target schema.Vendor) string {
	sql = bracketQuote.ReplaceAllString(sql, quoteFormat(target))
	sql = dquote.ReplaceAllString(sql, quoteFormat(target))
	sql = backtick.ReplaceAllString(sql, quoteFormat(target))
	return sql
}

func quoteFormat(target schema.Vendor) string {
	switch target {
	case schema.SQLServer:
		return "[$1]"
	case schema.MySQL:
		return "`$1`"
	default:
		return `"$1"`
	}
}

// rewriteNames substitutes source object names for target names inside a
// view body using names, applied as whole-word matches.
func rewriteNames(sql string, names NameMap) string {
	if len(names) == 0 {
		return sql
	}
	for src, tgt := range names {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(src) + `\b`)
		sql = pattern.ReplaceAllString(sql, tgt)
	}
	return sql
}

// TranslateViewBody rewrites a view's SELECT text from source to target
// dialect: name substitutions, function renames, concatenation operator,
// boolean literals, ISNULL/COALESCE, pagination clauses, identifier
// quoting, and schema prefix substitution.
func TranslateViewBody(sql string, source, target schema.Vendor, names NameMap, sourceSchema, targetSchema string) string {
	sql = rewriteNames(sql, names)
	sql = rewriteFunctions(sql, target)
	sql = rewriteISNULL(sql)
	sql = rewriteConcat(sql, source, target)
	sql = rewriteBoolLiterals(sql, target)
	sql = rewritePagination(sql, source, target)
	sql = rewriteQuoting(sql, target)
	if sourceSchema != "" && targetSchema != "" && sourceSchema != targetSchema {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(sourceSchema) + `\.`)
		sql = pattern.ReplaceAllString(sql, targetSchema+".")
	}
	return sql
}

// TranslateCheckExpression rewrites a CHECK predicate: function,
// boolean-literal, and identifier-quoting rewrites. Identifier names
// themselves are assumed already substituted by the caller if renamed; only
// the quote characters around them convert to the target's dialect.
func TranslateCheckExpression(sql string, target schema.Vendor) string {
	sql = rewriteFunctions(sql, target)
	sql = rewriteISNULL(sql)
	sql = rewriteBoolLiterals(sql, target)
	sql = rewriteQuoting(sql, target)
	return sql
}

// TranslateFilterExpression applies the same rules as TranslateCheckExpression,
// for partial/filtered index predicates.
func TranslateFilterExpression(sql string, target schema.Vendor) string {
	return TranslateCheckExpression(sql, target)
}

var bitLiteralPattern = regexp.MustCompile(`^\s*(0|1)\s*$`)

// TranslateDefaultExpression maps current-date/current-timestamp/new-GUID
// functions to the target's equivalents, converts bit-typed 0/1 defaults to
// FALSE/TRUE when the target column is boolean, and leaves constant
// literals untouched. If the result is empty or unrecognizable on the
// target, it returns "" and the caller must skip the DEFAULT clause.
func TranslateDefaultExpression(sql string, target schema.Vendor, targetIsBoolean bool) string {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ""
	}
	if targetIsBoolean {
		if m := bitLiteralPattern.FindStringSubmatch(trimmed); m != nil {
			if m[1] == "1" {
				return "TRUE"
			}
			return "FALSE"
		}
	}
	out := rewriteFunctions(trimmed, target)
	out = rewriteISNULL(out)
	out = rewriteBoolLiterals(out, target)
	return out
}

// fingerprint describes a vendor's distinguishing quoting/function markers,
// used by DetectSourceDatabase for best-effort dialect sniffing.
type fingerprint struct {
	vendor  schema.Vendor
	markers []*regexp.Regexp
}

var fingerprints = []fingerprint{
	{schema.SQLServer, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bGETDATE\s*\(\s*\)`),
		regexp.MustCompile(`(?i)\bTOP\s*\(?\s*\d+\s*\)?`),
		bracketQuote,
		regexp.MustCompile(`(?i)\bNEWID\s*\(\s*\)`),
	}},
	{schema.MySQL, []*regexp.Regexp{
		backtick,
		regexp.MustCompile(`(?i)\bAUTO_INCREMENT\b`),
		regexp.MustCompile(`(?i)\bUUID\s*\(\s*\)`),
	}},
	{schema.Oracle, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bSYSDATE\b`),
		regexp.MustCompile(`(?i)\bFETCH\s+FIRST\s+\d+\s+ROWS\s+ONLY\b`),
		regexp.MustCompile(`(?i)\bSYS_GUID\s*\(\s*\)`),
		regexp.MustCompile(`(?i)\bDUAL\b`),
	}},
	{schema.Postgres, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bNOW\s*\(\s*\)`),
		regexp.MustCompile(`(?i)\bLIMIT\s+\d+\b`),
		regexp.MustCompile(`(?i)\bgen_random_uuid\s*\(\s*\)`),
		dquote,
	}},
}

// DetectSourceDatabase returns a best-effort guess at the vendor whose
// quoting/function fingerprints best match sql. Detection is advisory;
// callers should supply an explicit source when known. Ties go to the
// vendor checked first (SQL Server, then MySQL, Oracle, PostgreSQL).
func DetectSourceDatabase(sql string) (schema.Vendor, int) {
	bestVendor := schema.Postgres
	bestScore := -1
	for _, fp := range fingerprints {
		score := 0
		for _, m := range fp.markers {
			if m.MatchString(sql) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestVendor = fp.vendor
		}
	}
	return bestVendor, bestScore
}

// ParsePlaceholderInt parses a LIMIT/TOP/FETCH clause count supplied as a
// literal, reporting false when it is not an integer.
func ParsePlaceholderInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
