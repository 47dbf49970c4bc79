// Package plan turns per-field reconciliation verdicts into a concrete
// injection plan: a file-level decision plus the ordered tag writes and
// the filesystem-time target the engine should apply.
package plan

import (
	"github.com/agentstation/utc"

	"github.com/retakehq/retake/pkg/media"
	"github.com/retakehq/retake/pkg/metadata"
	"github.com/retakehq/retake/pkg/reconcile"
)

// Decision is the file-level outcome aggregated from field verdicts.
type Decision string

// String returns the string representation of a decision.
func (d Decision) String() string {
	return string(d)
}

const (
	// DecisionInject means at least one field is missing and no field
	// conflicts; the writes will be applied.
	DecisionInject Decision = "inject"

	// DecisionNoOp means every applicable field is already equal or has
	// nothing to reconcile.
	DecisionNoOp Decision = "no_op"

	// DecisionConflict means at least one field disagrees beyond
	// tolerance. Conflicts are isolated per field: writes for the
	// remaining missing fields still proceed, so one disputed field
	// never blocks recovering the others.
	DecisionConflict Decision = "conflict"

	// DecisionNoSidecar means no sidecar file was found; the file is
	// skipped.
	DecisionNoSidecar Decision = "no_sidecar"

	// DecisionUnsupported means the format is not reconciled; the file
	// is skipped without consulting the metadata tool.
	DecisionUnsupported Decision = "unsupported_format"

	// DecisionError means processing failed; the file is untouched.
	DecisionError Decision = "error"
)

// Plan is the complete, executable outcome for one media file. Writes
// is ordered and deterministic for a given input state; executing it
// twice yields a NO_OP second pass.
type Plan struct {
	Decision Decision          `json:"decision" yaml:"decision"`
	Writes   []metadata.Tag    `json:"writes,omitempty" yaml:"writes,omitempty"`
	ModTime  *utc.Time         `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
	Checks   []reconcile.Check `json:"checks,omitempty" yaml:"checks,omitempty"`
	Err      string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// HasWrites reports whether the plan carries tag writes to apply.
func (p *Plan) HasWrites() bool {
	return p != nil && len(p.Writes) > 0
}

// Conflicts returns the conflicting checks, if any.
func (p *Plan) Conflicts() []reconcile.Check {
	if p == nil {
		return nil
	}
	var out []reconcile.Check
	for _, c := range p.Checks {
		if c.Verdict == reconcile.VerdictConflict {
			out = append(out, c)
		}
	}
	return out
}

// Build assembles the plan for one file from its reconciliation checks.
// sc and emb are the records the checks were derived from; emb is
// consulted so multi-valued fields are written as unions rather than
// clobbering values already on disk.
func Build(sc, emb *metadata.Record, format media.Format, checks []reconcile.Check) *Plan {
	p := &Plan{Checks: checks}

	var conflicts, missing int
	for _, c := range checks {
		switch c.Verdict {
		case reconcile.VerdictConflict:
			conflicts++
		case reconcile.VerdictMissing:
			missing++
			p.Writes = append(p.Writes, fieldWrites(c.Field, sc, emb, format)...)
		}
	}

	switch {
	case conflicts > 0:
		p.Decision = DecisionConflict
	case missing > 0:
		p.Decision = DecisionInject
	default:
		p.Decision = DecisionNoOp
	}

	// The filesystem timestamp is corrected whenever a capture date is
	// known, even when no tag write happens, so sort order recovers for
	// files whose embedded date was already right. A disputed date
	// leaves the timestamp alone.
	if sc.HasCapturedAt() && !dateConflicted(checks) {
		p.ModTime = sc.CapturedAt
	}

	return p
}

func dateConflicted(checks []reconcile.Check) bool {
	for _, c := range checks {
		if c.Field == reconcile.FieldDate {
			return c.Verdict == reconcile.VerdictConflict
		}
	}
	return false
}
