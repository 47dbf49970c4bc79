package retake

import (
	"time"

	"github.com/agentstation/utc"

	"github.com/retakehq/retake/internal/report"
	"github.com/retakehq/retake/pkg/media"
	"github.com/retakehq/retake/pkg/plan"
	"github.com/retakehq/retake/pkg/reconcile"
)

// FileOutcome is the result of reconciling one media file.
type FileOutcome struct {
	File       media.File    `json:"file" yaml:"file"`
	Decision   plan.Decision `json:"decision" yaml:"decision"`
	Sidecar    string        `json:"sidecar,omitempty" yaml:"sidecar,omitempty"`
	Plan       *plan.Plan    `json:"plan,omitempty" yaml:"plan,omitempty"`
	Reason     string        `json:"reason,omitempty" yaml:"reason,omitempty"` // why the file was skipped
	Written    bool          `json:"written,omitempty" yaml:"written,omitempty"`
	TimeSynced bool          `json:"time_synced,omitempty" yaml:"time_synced,omitempty"`
	Backup     string        `json:"backup,omitempty" yaml:"backup,omitempty"`
}

// Skipped reports whether the file was deliberately left alone, either
// for its format or because a write-stage check ruled it out.
func (o FileOutcome) Skipped() bool {
	return o.Reason != "" || o.Decision == plan.DecisionUnsupported
}

// Counts tallies file outcomes for the run summary.
type Counts struct {
	Total     int `json:"total" yaml:"total"`
	Injected  int `json:"injected" yaml:"injected"`
	Complete  int `json:"already_complete" yaml:"already_complete"`
	Conflicts int `json:"conflicts" yaml:"conflicts"`
	NoSidecar int `json:"no_sidecar" yaml:"no_sidecar"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Errors    int `json:"errors" yaml:"errors"`
}

// add assigns the outcome to exactly one bucket.
func (c *Counts) add(o FileOutcome) {
	c.Total++
	switch {
	case o.Skipped():
		c.Skipped++
	case o.Decision == plan.DecisionError:
		c.Errors++
	case o.Decision == plan.DecisionConflict:
		c.Conflicts++
	case o.Decision == plan.DecisionInject:
		c.Injected++
	case o.Decision == plan.DecisionNoOp:
		c.Complete++
	case o.Decision == plan.DecisionNoSidecar:
		c.NoSidecar++
	}
}

// ReportPaths lists the CSV logs a run wrote. Empty paths mean the run
// had no rows of that kind.
type ReportPaths struct {
	Conflicts string `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Errors    string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Skipped   string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Result aggregates the outcomes of one run. Files are ordered by path.
type Result struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Target    string        `json:"target" yaml:"target"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`
	StartedAt utc.Time      `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Counts    Counts        `json:"counts" yaml:"counts"`
	Files     []FileOutcome `json:"files" yaml:"files"`
	Reports   ReportPaths   `json:"reports,omitempty" yaml:"reports,omitempty"`
}

// recount rebuilds the summary counts from the file outcomes.
func (r *Result) recount() {
	counts := Counts{}
	for _, o := range r.Files {
		counts.add(o)
	}
	r.Counts = counts
}

// conflictRows flattens every conflicting check into report rows.
func (r *Result) conflictRows() []report.ConflictRow {
	var rows []report.ConflictRow
	for _, o := range r.Files {
		if o.Plan == nil {
			continue
		}
		for _, c := range o.Plan.Conflicts() {
			rows = append(rows, report.ConflictRow{
				File:     o.File.Path,
				Field:    c.Field.String(),
				Embedded: orNA(c.Embedded),
				Sidecar:  orNA(c.Sidecar),
				Note:     c.Note,
			})
		}
	}
	return rows
}

// errorRows collects per-file failures.
func (r *Result) errorRows() []report.ErrorRow {
	var rows []report.ErrorRow
	for _, o := range r.Files {
		if o.Decision != plan.DecisionError || o.Plan == nil {
			continue
		}
		rows = append(rows, report.ErrorRow{File: o.File.Path, Error: o.Plan.Err})
	}
	return rows
}

// skipRows collects files the run left alone: deliberate skips plus
// sidecar-less files, so the log accounts for every untouched path.
func (r *Result) skipRows() []report.SkipRow {
	var rows []report.SkipRow
	for _, o := range r.Files {
		switch {
		case o.Decision == plan.DecisionNoSidecar:
			rows = append(rows, report.SkipRow{File: o.File.Path, Reason: "no sidecar found"})
		case o.Skipped():
			rows = append(rows, report.SkipRow{File: o.File.Path, Reason: o.Reason})
		}
	}
	return rows
}

// Checks returns the outcome's reconciliation checks, if any.
func (o FileOutcome) Checks() []reconcile.Check {
	if o.Plan == nil {
		return nil
	}
	return o.Plan.Checks
}

// orNA substitutes the placeholder the CSV logs use for absent values.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
