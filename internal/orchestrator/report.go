package orchestrator

import (
	"time"

	"github.com/relaydb/dbshift/internal/sqlcollector"
)

// Phase names one of the six(+one) pipeline stages, per spec.md §4.8.
type Phase string

const (
	PhaseRead               Phase = "Read"
	PhaseCreateSchema       Phase = "CreateSchema"
	PhaseMigrateData        Phase = "MigrateData"
	PhaseCreateIndexes      Phase = "CreateIndexes"
	PhaseCreateConstraints  Phase = "CreateConstraints"
	PhaseCreateViews        Phase = "CreateViews"
	PhaseCreateForeignKeys  Phase = "CreateForeignKeys"
)

// RunState is the orchestrator's state machine, per spec.md §4.8: "NotStarted
// -> Running -> Succeeded | Failed | Cancelled". No resumability: a new run
// always starts from phase 1.
type RunState string

const (
	NotStarted RunState = "NotStarted"
	Running    RunState = "Running"
	Succeeded  RunState = "Succeeded"
	Failed     RunState = "Failed"
	Cancelled  RunState = "Cancelled"
)

// maxReportedErrors bounds how many non-fatal continue-on-error failures a
// PhaseSummary retains text for; the rest are still logged, just not kept
// in the report.
const maxReportedErrors = 20

// PhaseSummary is one phase's contribution to a MigrationReport.
type PhaseSummary struct {
	Phase       Phase
	ObjectCount int
	Duration    time.Duration
	Errors      []string
}

// MigrationReport is the structured form of the per-phase summary spec.md
// §7 requires a live run to log; Execute returns it alongside (or instead
// of) a DryRunResult so a caller can assert on outcomes without scraping
// logs.
type MigrationReport struct {
	State  RunState
	Phases []PhaseSummary
}

func (r *MigrationReport) record(phase Phase, count int, dur time.Duration, errs []error) {
	s := PhaseSummary{Phase: phase, ObjectCount: count, Duration: dur}
	for i, e := range errs {
		if i >= maxReportedErrors {
			break
		}
		s.Errors = append(s.Errors, e.Error())
	}
	r.Phases = append(r.Phases, s)
}

// DryRunResult is the dry-run mode's output: the full captured script plus
// per-category statement counts, per spec.md §3/§4.6.
type DryRunResult struct {
	Statements []sqlcollector.Entry
	Script     string
	Counts     map[sqlcollector.Category]int
	OutputPath string
}

func newDryRunResult(c *sqlcollector.Collector, outputPath string) *DryRunResult {
	return &DryRunResult{
		Statements: c.Entries(),
		Script:     c.GetScript(),
		Counts:     c.CategoryCounts(),
		OutputPath: outputPath,
	}
}

// Result is what Execute returns: DryRun is non-nil only when the request
// asked for dry-run mode, per spec.md §6's "Execute(request) -> DryRunResult?".
type Result struct {
	DryRun *DryRunResult
	Report MigrationReport
}
