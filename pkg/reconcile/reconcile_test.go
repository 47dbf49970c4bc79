package reconcile

import (
	"testing"
	"time"

	"github.com/agentstation/utc"

	"github.com/retakehq/retake/pkg/media"
	"github.com/retakehq/retake/pkg/metadata"
)

func at(epoch int64) *utc.Time {
	t := utc.Time{Time: time.Unix(epoch, 0).UTC()}
	return &t
}

func verdictOf(t *testing.T, checks []Check, field Field) Check {
	t.Helper()
	for _, c := range checks {
		if c.Field == field {
			return c
		}
	}
	t.Fatalf("no check produced for field %s", field)
	return Check{}
}

func TestReconcileDate(t *testing.T) {
	const base = int64(1563100282)

	tests := []struct {
		name     string
		sidecar  *utc.Time
		embedded *utc.Time
		want     Verdict
	}{
		{"identical", at(base), at(base), VerdictEqual},
		{"one day apart", at(base), at(base - 86400), VerdictEqual},
		{"exactly at tolerance", at(base), at(base - 90000), VerdictEqual},
		{"one second past tolerance", at(base), at(base - 90001), VerdictConflict},
		{"55 hours apart", at(base), at(base - 55*3600), VerdictConflict},
		{"embedded newer within tolerance", at(base), at(base + 90000), VerdictEqual},
		{"embedded missing", at(base), nil, VerdictMissing},
		{"sidecar missing", nil, at(base), VerdictAbsent},
		{"both missing", nil, nil, VerdictAbsent},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &metadata.Record{CapturedAt: tt.sidecar}
			emb := &metadata.Record{CapturedAt: tt.embedded}

			checks := r.Reconcile(sc, emb, media.FormatJPEG)
			got := verdictOf(t, checks, FieldDate)
			if got.Verdict != tt.want {
				t.Errorf("date verdict = %s, want %s (note: %s)", got.Verdict, tt.want, got.Note)
			}
		})
	}
}

func TestReconcileGPS(t *testing.T) {
	rio := &metadata.GPS{Latitude: -22.906847, Longitude: -43.172896, Altitude: 11.5}

	tests := []struct {
		name     string
		opts     []Option
		sidecar  *metadata.GPS
		embedded *metadata.GPS
		want     Verdict
		wantNote bool
	}{
		{
			name:     "identical",
			sidecar:  rio,
			embedded: &metadata.GPS{Latitude: -22.906847, Longitude: -43.172896, Altitude: 11.5},
			want:     VerdictEqual,
		},
		{
			name:     "within epsilon",
			sidecar:  rio,
			embedded: &metadata.GPS{Latitude: -22.906838, Longitude: -43.172890, Altitude: 11.5},
			want:     VerdictEqual,
		},
		{
			name:     "latitude beyond epsilon",
			sidecar:  rio,
			embedded: &metadata.GPS{Latitude: -22.906647, Longitude: -43.172896},
			want:     VerdictConflict,
			wantNote: true,
		},
		{
			name:     "different city",
			sidecar:  rio,
			embedded: &metadata.GPS{Latitude: 48.856614, Longitude: 2.352222},
			want:     VerdictConflict,
			wantNote: true,
		},
		{
			name:     "altitude differs is a note not a conflict",
			sidecar:  rio,
			embedded: &metadata.GPS{Latitude: -22.906847, Longitude: -43.172896, Altitude: 40},
			want:     VerdictEqual,
			wantNote: true,
		},
		{
			name:     "altitude differs under strict policy",
			opts:     []Option{WithStrictAltitude(true)},
			sidecar:  rio,
			embedded: &metadata.GPS{Latitude: -22.906847, Longitude: -43.172896, Altitude: 40},
			want:     VerdictConflict,
			wantNote: true,
		},
		{
			name:     "altitude within a meter",
			sidecar:  rio,
			embedded: &metadata.GPS{Latitude: -22.906847, Longitude: -43.172896, Altitude: 12.2},
			want:     VerdictEqual,
		},
		{
			name:    "embedded missing",
			sidecar: rio,
			want:    VerdictMissing,
		},
		{
			name:     "sidecar missing",
			embedded: rio,
			want:     VerdictAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.opts...)
			sc := &metadata.Record{GPS: tt.sidecar}
			emb := &metadata.Record{GPS: tt.embedded}

			got := verdictOf(t, r.Reconcile(sc, emb, media.FormatJPEG), FieldGPS)
			if got.Verdict != tt.want {
				t.Errorf("gps verdict = %s, want %s (note: %s)", got.Verdict, tt.want, got.Note)
			}
			if tt.wantNote && got.Note == "" {
				t.Error("expected an explanatory note")
			}
			if !tt.wantNote && got.Note != "" {
				t.Errorf("unexpected note: %s", got.Note)
			}
		})
	}
}

func TestReconcilePeople(t *testing.T) {
	tests := []struct {
		name     string
		sidecar  []string
		embedded []string
		want     Verdict
	}{
		{
			name:     "exact match",
			sidecar:  []string{"John Doe", "Maria Silva"},
			embedded: []string{"John Doe", "Maria Silva"},
			want:     VerdictEqual,
		},
		{
			name:     "embedded superset",
			sidecar:  []string{"Maria Silva"},
			embedded: []string{"John Doe", "Maria Silva"},
			want:     VerdictEqual,
		},
		{
			name:    "embedded empty",
			sidecar: []string{"Maria Silva"},
			want:    VerdictMissing,
		},
		{
			name:     "partial coverage injects the difference",
			sidecar:  []string{"John Doe", "Maria Silva"},
			embedded: []string{"Maria Silva"},
			want:     VerdictMissing,
		},
		{
			name:     "disjoint sets",
			sidecar:  []string{"Maria Silva"},
			embedded: []string{"Family"},
			want:     VerdictConflict,
		},
		{
			name:     "sidecar empty",
			embedded: []string{"Family"},
			want:     VerdictAbsent,
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &metadata.Record{People: tt.sidecar}
			emb := &metadata.Record{People: tt.embedded}

			got := verdictOf(t, r.Reconcile(sc, emb, media.FormatHEIC), FieldPeople)
			if got.Verdict != tt.want {
				t.Errorf("people verdict = %s, want %s (note: %s)", got.Verdict, tt.want, got.Note)
			}
		})
	}
}

func TestReconcileFavorite(t *testing.T) {
	tests := []struct {
		name     string
		sidecar  bool
		embedded bool
		want     Verdict
	}{
		{"neither favorited", false, false, VerdictAbsent},
		{"both favorited", true, true, VerdictEqual},
		{"sidecar only", true, false, VerdictMissing},
		{"embedded rating without sidecar flag", false, true, VerdictConflict},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &metadata.Record{Favorited: tt.sidecar}
			emb := &metadata.Record{Favorited: tt.embedded}

			got := verdictOf(t, r.Reconcile(sc, emb, media.FormatJPEG), FieldFavorite)
			if got.Verdict != tt.want {
				t.Errorf("favorite verdict = %s, want %s", got.Verdict, tt.want)
			}
		})
	}
}

func TestReconcileDescription(t *testing.T) {
	tests := []struct {
		name     string
		sidecar  string
		embedded string
		want     Verdict
	}{
		{"equal", "beach day", "beach day", VerdictEqual},
		{"equal after trimming", "beach day", "  beach day  ", VerdictEqual},
		{"differs", "beach day", "mountain trip", VerdictConflict},
		{"embedded empty", "beach day", "", VerdictMissing},
		{"sidecar empty", "", "mountain trip", VerdictAbsent},
		{"both empty", "", "", VerdictAbsent},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &metadata.Record{Description: tt.sidecar}
			emb := &metadata.Record{Description: tt.embedded}

			got := verdictOf(t, r.Reconcile(sc, emb, media.FormatMP4), FieldDescription)
			if got.Verdict != tt.want {
				t.Errorf("description verdict = %s, want %s", got.Verdict, tt.want)
			}
		})
	}
}

func TestReconcileApplicability(t *testing.T) {
	// A fully-populated sidecar cannot make a field applicable on a
	// format that does not carry it.
	now := at(1563100282)
	sc := &metadata.Record{
		CapturedAt:  now,
		GPS:         &metadata.GPS{Latitude: 1, Longitude: 2},
		People:      []string{"Maria Silva"},
		Favorited:   true,
		Description: "x",
	}
	emb := &metadata.Record{}

	tests := []struct {
		format media.Format
		na     []Field
		active []Field
	}{
		{
			format: media.FormatJPEG,
			active: []Field{FieldDate, FieldGPS, FieldPeople, FieldFavorite, FieldDescription},
		},
		{
			format: media.FormatMP4,
			na:     []Field{FieldPeople, FieldFavorite},
			active: []Field{FieldDate, FieldGPS, FieldDescription},
		},
		{
			format: media.FormatPNG,
			na:     []Field{FieldGPS, FieldPeople, FieldFavorite},
			active: []Field{FieldDate, FieldDescription},
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			checks := r.Reconcile(sc, emb, tt.format)
			for _, field := range tt.na {
				if got := verdictOf(t, checks, field); got.Verdict != VerdictNotApplicable {
					t.Errorf("%s verdict = %s, want %s", field, got.Verdict, VerdictNotApplicable)
				}
			}
			for _, field := range tt.active {
				if got := verdictOf(t, checks, field); got.Verdict == VerdictNotApplicable {
					t.Errorf("%s unexpectedly not applicable", field)
				}
			}
		})
	}
}

func TestReconcileOrder(t *testing.T) {
	r := New()
	checks := r.Reconcile(&metadata.Record{}, &metadata.Record{}, media.FormatJPEG)

	want := Fields()
	if len(checks) != len(want) {
		t.Fatalf("got %d checks, want %d", len(checks), len(want))
	}
	for i, field := range want {
		if checks[i].Field != field {
			t.Errorf("checks[%d].Field = %s, want %s", i, checks[i].Field, field)
		}
	}
}
