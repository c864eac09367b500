package dialect_test

import (
	"strings"
	"testing"

	"github.com/relaydb/dbshift/internal/dialect"
	"github.com/relaydb/dbshift/internal/schema"
)

func TestTranslateDefaultExpressionGetdateToNow(t *testing.T) {
	got := dialect.TranslateDefaultExpression("GETDATE()", schema.Postgres, false)
	if got != "NOW()" {
		t.Errorf("got %q, want NOW()", got)
	}
}

func TestTranslateDefaultExpressionBitToBoolean(t *testing.T) {
	got := dialect.TranslateDefaultExpression("1", schema.Postgres, true)
	if got != "TRUE" {
		t.Errorf("got %q, want TRUE", got)
	}
	got = dialect.TranslateDefaultExpression("0", schema.Postgres, true)
	if got != "FALSE" {
		t.Errorf("got %q, want FALSE", got)
	}
}

func TestTranslateDefaultExpressionEmptyStaysEmpty(t *testing.T) {
	if got := dialect.TranslateDefaultExpression("", schema.Postgres, false); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := dialect.TranslateDefaultExpression("   ", schema.MySQL, false); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestTranslateDefaultExpressionConstantUntouched(t *testing.T) {
	got := dialect.TranslateDefaultExpression("42", schema.Postgres, false)
	if got != "42" {
		t.Errorf("got %q, want 42", got)
	}
}

func TestTranslateCheckExpressionConvertsQuotingNotNames(t *testing.T) {
	got := dialect.TranslateCheckExpression("([age] >= 0)", schema.Postgres)
	if got != `("age" >= 0)` {
		t.Errorf("got %q, want bracket quoting converted to double-quoting for postgres", got)
	}
}

func TestTranslateViewBodyPagination(t *testing.T) {
	got := dialect.TranslateViewBody("SELECT TOP 10 * FROM [dbo].[Users]", schema.SQLServer, schema.Postgres, nil, "dbo", "public")
	if !strings.Contains(got, "LIMIT 10") {
		t.Errorf("expected LIMIT 10 in %q", got)
	}
	if strings.Contains(got, "TOP") {
		t.Errorf("TOP clause should have been removed: %q", got)
	}
}

func TestTranslateViewBodyQuoting(t *testing.T) {
	got := dialect.TranslateViewBody(`SELECT "id" FROM "public"."users"`, schema.Postgres, schema.MySQL, nil, "", "")
	if !strings.Contains(got, "`id`") {
		t.Errorf("expected backtick quoting in %q", got)
	}
}

func TestTranslateViewBodyISNULL(t *testing.T) {
	got := dialect.TranslateViewBody("SELECT ISNULL(a, b) FROM t", schema.SQLServer, schema.Postgres, nil, "", "")
	if !strings.Contains(got, "COALESCE(a, b)") {
		t.Errorf("expected COALESCE rewrite in %q", got)
	}
}

func TestTranslateViewBodyNameSubstitution(t *testing.T) {
	names := dialect.NameMap{"Users": "users", "Email": "email"}
	got := dialect.TranslateViewBody("SELECT Email FROM Users", schema.SQLServer, schema.Postgres, names, "", "")
	if !strings.Contains(got, "users") || !strings.Contains(got, "email") {
		t.Errorf("expected name substitution in %q", got)
	}
}

func TestTranslateViewBodySchemaPrefix(t *testing.T) {
	got := dialect.TranslateViewBody("SELECT * FROM dbo.orders", schema.SQLServer, schema.Postgres, nil, "dbo", "public")
	if !strings.Contains(got, "public.orders") {
		t.Errorf("expected schema prefix rewrite in %q", got)
	}
}

func TestDetectSourceDatabase(t *testing.T) {
	tcs := []struct {
		sql  string
		want schema.Vendor
	}{
		{"SELECT TOP 10 * FROM [dbo].[Users] WHERE GETDATE() > 0", schema.SQLServer},
		{"SELECT * FROM `users` LIMIT 10", schema.MySQL},
		{"SELECT * FROM users WHERE ROWNUM < 10 AND SYSDATE > created_at", schema.Oracle},
		{`SELECT * FROM "users" LIMIT 10`, schema.Postgres},
	}
	for _, tc := range tcs {
		got, _ := dialect.DetectSourceDatabase(tc.sql)
		if got != tc.want {
			t.Errorf("DetectSourceDatabase(%q) = %s, want %s", tc.sql, got, tc.want)
		}
	}
}
