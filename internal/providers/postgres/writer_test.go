package postgres_test

import (
	"context"
	"strings"
	"testing"

	"github.com/relaydb/dbshift/internal/log"
	"github.com/relaydb/dbshift/internal/providers/postgres"
	"github.com/relaydb/dbshift/internal/schema"
	"github.com/relaydb/dbshift/internal/sqlcollector"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func noopLogger(t *testing.T) log.Logger {
	t.Helper()
	l, err := log.NewStdLogger(discardWriter{}, discardWriter{}, log.Error)
	if err != nil {
		t.Fatalf("NewStdLogger: %v", err)
	}
	return l
}

func TestCreateViewsTranslatesFromTheActualSourceDialect(t *testing.T) {
	c := sqlcollector.New()
	p := postgres.NewDryRun(c, noopLogger(t))

	views := []schema.ViewSchema{{Name: "recent_orders", Schema: "dbo", SelectSQL: "SELECT TOP 10 id FROM dbo.orders WHERE created_at > GETDATE()"}}
	sourceTables := []schema.TableSchema{{SchemaName: "dbo", TableName: "orders"}}

	if _, errs := p.CreateViews(context.Background(), "public", views, sourceTables, schema.SQLServer, false); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	script := c.GetScript()
	if strings.Contains(script, "GETDATE()") {
		t.Errorf("expected GETDATE() translated away, got script %q", script)
	}
	if !strings.Contains(script, "NOW()") {
		t.Errorf("expected GETDATE() rewritten to NOW() for a postgres target, got script %q", script)
	}
	if strings.Contains(script, "TOP 10") {
		t.Errorf("expected SQL Server TOP pagination rewritten for postgres, got script %q", script)
	}
	if !strings.Contains(script, "LIMIT 10") {
		t.Errorf("expected TOP 10 rewritten to LIMIT 10, got script %q", script)
	}
}
