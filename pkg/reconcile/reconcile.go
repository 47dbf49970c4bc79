// Package reconcile classifies, field by field, how a sidecar record
// relates to the metadata already embedded in a media file. Verdicts
// drive the injection plan: only missing fields are written, conflicts
// are reported and left untouched.
package reconcile

import (
	"github.com/retakehq/retake/pkg/media"
	"github.com/retakehq/retake/pkg/metadata"
)

// Field names a logical metadata field under reconciliation.
type Field string

// String returns the string representation of a field.
func (f Field) String() string {
	return string(f)
}

// Reconciled fields.
const (
	FieldDate        Field = "date"
	FieldGPS         Field = "gps"
	FieldPeople      Field = "people"
	FieldFavorite    Field = "favorite"
	FieldDescription Field = "description"
)

// fields is the fixed reconciliation order.
var fields = []Field{FieldDate, FieldGPS, FieldPeople, FieldFavorite, FieldDescription}

// Fields returns the reconciled fields in their fixed order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Verdict classifies one field's relation between sidecar and embedded
// metadata.
type Verdict string

// String returns the string representation of a verdict.
func (v Verdict) String() string {
	return string(v)
}

const (
	// VerdictAbsent means the sidecar carries no value, so there is
	// nothing to reconcile regardless of the embedded state.
	VerdictAbsent Verdict = "absent"

	// VerdictMissing means the sidecar has a value the file lacks; the
	// field will be injected.
	VerdictMissing Verdict = "missing"

	// VerdictEqual means both sides agree within tolerance; no write.
	VerdictEqual Verdict = "equal"

	// VerdictConflict means both sides have values that disagree beyond
	// tolerance; the field is reported and never overwritten.
	VerdictConflict Verdict = "conflict"

	// VerdictNotApplicable means the media format cannot carry the
	// field, regardless of sidecar content.
	VerdictNotApplicable Verdict = "not_applicable"
)

// Check is the outcome of reconciling one field. Sidecar and Embedded
// hold display renderings of each side's value for reports; empty means
// that side has no value.
type Check struct {
	Field    Field   `json:"field" yaml:"field"`
	Verdict  Verdict `json:"verdict" yaml:"verdict"`
	Sidecar  string  `json:"sidecar,omitempty" yaml:"sidecar,omitempty"`
	Embedded string  `json:"embedded,omitempty" yaml:"embedded,omitempty"`
	Note     string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// Reconciler compares canonical records field by field.
type Reconciler struct {
	strictAltitude bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithStrictAltitude makes altitude disagreement beyond tolerance a
// conflict instead of an informational note.
func WithStrictAltitude(strict bool) Option {
	return func(r *Reconciler) {
		r.strictAltitude = strict
	}
}

// New creates a Reconciler with options.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile classifies every field for the given media format. The
// result always contains one Check per field, in the fixed field order,
// so downstream consumers can rely on position and coverage.
func (r *Reconciler) Reconcile(sc, emb *metadata.Record, format media.Format) []Check {
	checks := make([]Check, 0, len(fields))
	for _, field := range fields {
		checks = append(checks, r.check(field, sc, emb, format))
	}
	return checks
}

func (r *Reconciler) check(field Field, sc, emb *metadata.Record, format media.Format) Check {
	if !applicable(field, format) {
		return Check{Field: field, Verdict: VerdictNotApplicable}
	}

	switch field {
	case FieldDate:
		return r.dateCheck(sc, emb)
	case FieldGPS:
		return r.gpsCheck(sc, emb)
	case FieldPeople:
		return r.peopleCheck(sc, emb)
	case FieldFavorite:
		return r.favoriteCheck(sc, emb)
	case FieldDescription:
		return r.descriptionCheck(sc, emb)
	default:
		return Check{Field: field, Verdict: VerdictNotApplicable}
	}
}

func applicable(field Field, format media.Format) bool {
	switch field {
	case FieldDate:
		return format.SupportsDate()
	case FieldGPS:
		return format.SupportsGPS()
	case FieldPeople:
		return format.SupportsPeople()
	case FieldFavorite:
		return format.SupportsRating()
	case FieldDescription:
		return format.SupportsDescription()
	default:
		return false
	}
}
