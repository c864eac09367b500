// Package cmd implements the dbshift command-line front-end: flag parsing,
// environment-variable expansion, and dispatch into internal/orchestrator.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/relaydb/dbshift/internal/identifier"
	"github.com/relaydb/dbshift/internal/log"
	"github.com/relaydb/dbshift/internal/orchestrator"
	"github.com/relaydb/dbshift/internal/request"
)

var versionString = "dev"

// Command wraps cobra.Command with the parsed flag values, so tests can
// assert on the bound struct without re-parsing os.Args.
type Command struct {
	*cobra.Command
	cfg cliConfig
}

// cliConfig is the flat set of flag-bound values; toMigrationRequest expands
// env vars and maps this onto request.MigrationRequest.
type cliConfig struct {
	sourceVendor string
	sourceConn   string
	targetVendor string
	targetConn   string
	targetSchema string

	includeTables []string
	excludeTables []string

	batchSize           int
	naming              string
	maxIdentifierLength int
	workers             int

	skipSchema      bool
	skipData        bool
	skipIndexes     bool
	skipConstraints bool
	skipViews       bool
	skipForeignKeys bool

	continueOnError bool

	dryRun         bool
	dryRunOutPath  string
	sampleRows     bool
	sampleRowCount int

	logLevel  string
	logFormat string
}

// NewCommand builds the migrate command tree.
func NewCommand() *Command {
	cfg := cliConfig{}
	cmd := &Command{cfg: cfg}

	root := &cobra.Command{
		Use:          "dbshift",
		Version:      versionString,
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.run(c)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cmd.cfg.sourceVendor, "source-vendor", "", "source database vendor: sqlserver, postgres, mysql, or oracle")
	flags.StringVar(&cmd.cfg.sourceConn, "source-conn", "", "source connection string (supports ${VAR} / ${VAR:default} expansion)")
	flags.StringVar(&cmd.cfg.targetVendor, "target-vendor", "", "target database vendor: sqlserver, postgres, mysql, or oracle")
	flags.StringVar(&cmd.cfg.targetConn, "target-conn", "", "target connection string (supports ${VAR} / ${VAR:default} expansion)")
	flags.StringVar(&cmd.cfg.targetSchema, "target-schema", "", "target schema name")

	flags.StringSliceVar(&cmd.cfg.includeTables, "include-tables", nil, "only migrate these tables (comma-separated, unqualified names, case-insensitive)")
	flags.StringSliceVar(&cmd.cfg.excludeTables, "exclude-tables", nil, "skip these tables (comma-separated, unqualified names, case-insensitive)")

	flags.IntVar(&cmd.cfg.batchSize, "batch-size", 0, "rows fetched and inserted per batch (default 1000)")
	flags.StringVar(&cmd.cfg.naming, "naming", "", "identifier naming convention: auto, snake_case, PascalCase, lowercase, UPPERCASE, preserve")
	flags.IntVar(&cmd.cfg.maxIdentifierLength, "max-identifier-length", 0, "override the target vendor's identifier length limit")
	flags.IntVar(&cmd.cfg.workers, "workers", 0, "tables migrated concurrently (default 1)")

	flags.BoolVar(&cmd.cfg.skipSchema, "skip-schema", false, "skip the create-schema phase")
	flags.BoolVar(&cmd.cfg.skipData, "skip-data", false, "skip the migrate-data phase")
	flags.BoolVar(&cmd.cfg.skipIndexes, "skip-indexes", false, "skip the create-indexes phase")
	flags.BoolVar(&cmd.cfg.skipConstraints, "skip-constraints", false, "skip the create-constraints phase")
	flags.BoolVar(&cmd.cfg.skipViews, "skip-views", false, "skip the create-views phase")
	flags.BoolVar(&cmd.cfg.skipForeignKeys, "skip-foreign-keys", false, "skip the create-foreign-keys phase")

	flags.BoolVar(&cmd.cfg.continueOnError, "continue-on-error", false, "keep migrating remaining objects after a per-object failure")

	flags.BoolVar(&cmd.cfg.dryRun, "dry-run", false, "capture generated SQL instead of executing it against the target")
	flags.StringVar(&cmd.cfg.dryRunOutPath, "dry-run-out", "", "write the dry run script to this path")
	flags.BoolVar(&cmd.cfg.sampleRows, "sample-rows", false, "capture a handful of representative rows per table in dry-run output")
	flags.IntVar(&cmd.cfg.sampleRowCount, "sample-row-count", 0, "rows per table to capture when --sample-rows is set (default 10)")

	flags.StringVar(&cmd.cfg.logLevel, "log-level", log.Info, "log level: DEBUG, INFO, WARN, or ERROR")
	flags.StringVar(&cmd.cfg.logFormat, "log-format", "standard", "log format: standard or json")

	cmd.Command = root
	return cmd
}

func (c *Command) run(cobraCmd *cobra.Command) error {
	logger, err := log.NewLogger(c.cfg.logFormat, c.cfg.logLevel, cobraCmd.OutOrStdout(), cobraCmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("invalid logging flags: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req, err := c.toMigrationRequest()
	if err != nil {
		return err
	}

	tracer := otel.Tracer("github.com/relaydb/dbshift")
	result, runErr := orchestrator.Execute(ctx, req, logger, tracer)
	if result != nil {
		for _, p := range result.Report.Phases {
			logger.InfoContext(ctx, "phase complete", "phase", p.Phase, "objects", p.ObjectCount, "duration", p.Duration, "errors", len(p.Errors))
		}
		if result.DryRun != nil {
			logger.InfoContext(ctx, "dry run complete", "statements", len(result.DryRun.Statements), "output", result.DryRun.OutputPath)
		}
	}
	return runErr
}

// toMigrationRequest expands env vars in the two connection strings and
// maps the flat flag set onto request.MigrationRequest.
func (c *Command) toMigrationRequest() (request.MigrationRequest, error) {
	sourceConn, err := parseEnv(c.cfg.sourceConn)
	if err != nil {
		return request.MigrationRequest{}, fmt.Errorf("source-conn: %w", err)
	}
	targetConn, err := parseEnv(c.cfg.targetConn)
	if err != nil {
		return request.MigrationRequest{}, fmt.Errorf("target-conn: %w", err)
	}

	return request.MigrationRequest{
		SourceVendor:           c.cfg.sourceVendor,
		SourceConnectionString: sourceConn,
		TargetVendor:           c.cfg.targetVendor,
		TargetConnectionString: targetConn,
		TargetSchema:           c.cfg.targetSchema,

		IncludeTables: c.cfg.includeTables,
		ExcludeTables: c.cfg.excludeTables,

		BatchSize:           c.cfg.batchSize,
		Naming:              identifier.Style(c.cfg.naming),
		MaxIdentifierLength: c.cfg.maxIdentifierLength,
		Workers:             c.cfg.workers,

		MigrateSchema:      !c.cfg.skipSchema,
		MigrateData:        !c.cfg.skipData,
		MigrateIndexes:     !c.cfg.skipIndexes,
		MigrateConstraints: !c.cfg.skipConstraints,
		MigrateViews:       !c.cfg.skipViews,
		MigrateForeignKeys: !c.cfg.skipForeignKeys,

		ContinueOnError: c.cfg.continueOnError,

		DryRun:           c.cfg.dryRun,
		DryRunOutputPath: c.cfg.dryRunOutPath,
		SampleRows:       c.cfg.sampleRows,
		SampleRowCount:   c.cfg.sampleRowCount,
	}, nil
}

var envPattern = regexp.MustCompile(`\$\{(\w+)(:([^}]*))?\}`)

// parseEnv expands ${VAR} and ${VAR:default} references in s. ${VAR} with no
// default and no set environment variable is an error; ${VAR:} (empty
// default) resolves to the empty string rather than erroring.
func parseEnv(s string) (string, error) {
	var firstErr error
	result := envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasDefault {
			return def
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("environment variable not found: %q", name)
		}
		return ""
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
