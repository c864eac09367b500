package cmd

import (
	"os"
	"testing"

	"github.com/relaydb/dbshift/internal/identifier"
)

func TestToMigrationRequestMapsFlagsAndInvertsSkipFlags(t *testing.T) {
	c := NewCommand()
	c.cfg = cliConfig{
		sourceVendor: "sqlserver",
		sourceConn:   "sqlserver://source",
		targetVendor: "postgres",
		targetConn:   "postgres://target",
		targetSchema: "public",

		includeTables: []string{"dbo.Users"},
		excludeTables: []string{"dbo.AuditLog"},

		batchSize:           500,
		naming:              "snake_case",
		maxIdentifierLength: 63,
		workers:             4,

		skipIndexes: true,

		continueOnError: true,

		dryRun:         true,
		dryRunOutPath:  "out.sql",
		sampleRows:     true,
		sampleRowCount: 5,
	}

	req, err := c.toMigrationRequest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.SourceVendor != "sqlserver" || req.SourceConnectionString != "sqlserver://source" {
		t.Errorf("source fields not mapped: %+v", req)
	}
	if req.TargetVendor != "postgres" || req.TargetConnectionString != "postgres://target" {
		t.Errorf("target fields not mapped: %+v", req)
	}
	if req.TargetSchema != "public" {
		t.Errorf("TargetSchema = %q, want public", req.TargetSchema)
	}
	if len(req.IncludeTables) != 1 || req.IncludeTables[0] != "dbo.Users" {
		t.Errorf("IncludeTables = %v", req.IncludeTables)
	}
	if len(req.ExcludeTables) != 1 || req.ExcludeTables[0] != "dbo.AuditLog" {
		t.Errorf("ExcludeTables = %v", req.ExcludeTables)
	}
	if req.BatchSize != 500 || req.Workers != 4 || req.MaxIdentifierLength != 63 {
		t.Errorf("numeric fields not mapped: %+v", req)
	}
	if req.Naming != identifier.SnakeCase {
		t.Errorf("Naming = %v, want snake_case", req.Naming)
	}

	if !req.MigrateSchema || !req.MigrateData || !req.MigrateConstraints || !req.MigrateViews || !req.MigrateForeignKeys {
		t.Errorf("expected all non-skipped phases enabled: %+v", req)
	}
	if req.MigrateIndexes {
		t.Error("expected MigrateIndexes false when skip-indexes is set")
	}

	if !req.ContinueOnError || !req.DryRun || req.DryRunOutputPath != "out.sql" || !req.SampleRows || req.SampleRowCount != 5 {
		t.Errorf("dry-run/continue-on-error fields not mapped: %+v", req)
	}
}

func TestToMigrationRequestDefaultsAllPhasesOn(t *testing.T) {
	c := NewCommand()
	req, err := c.toMigrationRequest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.MigrateSchema || !req.MigrateData || !req.MigrateIndexes || !req.MigrateConstraints || !req.MigrateViews || !req.MigrateForeignKeys {
		t.Errorf("expected every phase enabled when no skip flag is set: %+v", req)
	}
}

func TestParseEnvExpandsSetVariable(t *testing.T) {
	t.Setenv("DBSHIFT_TEST_HOST", "db.internal")
	got, err := parseEnv("postgres://${DBSHIFT_TEST_HOST}:5432/app")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "postgres://db.internal:5432/app"; got != want {
		t.Errorf("parseEnv() = %q, want %q", got, want)
	}
}

func TestParseEnvUsesDefaultWhenUnset(t *testing.T) {
	os.Unsetenv("DBSHIFT_TEST_UNSET")
	got, err := parseEnv("postgres://${DBSHIFT_TEST_UNSET:localhost}:5432/app")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "postgres://localhost:5432/app"; got != want {
		t.Errorf("parseEnv() = %q, want %q", got, want)
	}
}

func TestParseEnvEmptyDefaultResolvesToEmptyString(t *testing.T) {
	os.Unsetenv("DBSHIFT_TEST_UNSET")
	got, err := parseEnv("prefix-${DBSHIFT_TEST_UNSET:}-suffix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "prefix--suffix"; got != want {
		t.Errorf("parseEnv() = %q, want %q", got, want)
	}
}

func TestParseEnvErrorsWithoutDefaultAndUnset(t *testing.T) {
	os.Unsetenv("DBSHIFT_TEST_UNSET")
	if _, err := parseEnv("${DBSHIFT_TEST_UNSET}"); err == nil {
		t.Error("expected error for unset variable with no default")
	}
}

func TestToMigrationRequestPropagatesEnvExpansionError(t *testing.T) {
	os.Unsetenv("DBSHIFT_TEST_UNSET")
	c := NewCommand()
	c.cfg.sourceConn = "${DBSHIFT_TEST_UNSET}"
	if _, err := c.toMigrationRequest(); err == nil {
		t.Error("expected error when source-conn references an unset variable with no default")
	}
}

func TestNewCommandBindsVersionAndUse(t *testing.T) {
	c := NewCommand()
	if c.Use != "dbshift" {
		t.Errorf("Use = %q, want dbshift", c.Use)
	}
	if c.Version != versionString {
		t.Errorf("Version = %q, want %q", c.Version, versionString)
	}
}
