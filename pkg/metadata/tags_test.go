package metadata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTagsString(t *testing.T) {
	tags := Tags{
		"Description": "beach day",
		"Rating":      float64(5),
		"Empty":       "",
		"Nil":         nil,
	}

	if got, ok := tags.String("Description"); !ok || got != "beach day" {
		t.Errorf("String(Description) = %q, %v", got, ok)
	}
	if got, ok := tags.String("Rating"); !ok || got != "5" {
		t.Errorf("String(Rating) = %q, %v, want \"5\"", got, ok)
	}
	if got, ok := tags.String("Empty"); !ok || got != "" {
		t.Errorf("String(Empty) = %q, %v", got, ok)
	}
	if _, ok := tags.String("Nil"); ok {
		t.Error("String(Nil) reported present")
	}
	if _, ok := tags.String("Missing"); ok {
		t.Error("String(Missing) reported present")
	}
}

func TestTagsFloat(t *testing.T) {
	tags := Tags{
		"GPSLatitude":  -22.906847,
		"Rating":       "5",
		"Description":  "not a number",
		"GPSLongitude": float64(0),
	}

	if got, ok := tags.Float("GPSLatitude"); !ok || got != -22.906847 {
		t.Errorf("Float(GPSLatitude) = %v, %v", got, ok)
	}
	if got, ok := tags.Float("Rating"); !ok || got != 5 {
		t.Errorf("Float(Rating) = %v, %v, want 5", got, ok)
	}
	if got, ok := tags.Float("GPSLongitude"); !ok || got != 0 {
		t.Errorf("Float(GPSLongitude) = %v, %v, want 0", got, ok)
	}
	if _, ok := tags.Float("Description"); ok {
		t.Error("Float(Description) parsed a non-number")
	}
	if _, ok := tags.Float("Missing"); ok {
		t.Error("Float(Missing) reported present")
	}
}

func TestTagsStrings(t *testing.T) {
	tests := []struct {
		name   string
		tags   Tags
		tag    string
		want   []string
		wantOK bool
	}{
		{
			name:   "list value",
			tags:   Tags{"Keywords": []any{"Maria Silva", "John Doe"}},
			tag:    "Keywords",
			want:   []string{"Maria Silva", "John Doe"},
			wantOK: true,
		},
		{
			name:   "scalar collapses to single element",
			tags:   Tags{"Keywords": "Maria Silva"},
			tag:    "Keywords",
			want:   []string{"Maria Silva"},
			wantOK: true,
		},
		{
			name:   "empty list",
			tags:   Tags{"Keywords": []any{}},
			tag:    "Keywords",
			wantOK: false,
		},
		{
			name:   "missing",
			tags:   Tags{},
			tag:    "Keywords",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.tags.Strings(tt.tag)
			if ok != tt.wantOK {
				t.Fatalf("Strings(%s) ok = %v, want %v", tt.tag, ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Strings(%s) mismatch (-want +got):\n%s", tt.tag, diff)
			}
		})
	}
}

func TestTagsHas(t *testing.T) {
	tags := Tags{
		"Description": "x",
		"Blank":       "   ",
		"Zero":        float64(0),
	}

	if !tags.Has("Description") {
		t.Error("Has(Description) = false")
	}
	if tags.Has("Blank") {
		t.Error("Has(Blank) = true for whitespace value")
	}
	if !tags.Has("Zero") {
		t.Error("Has(Zero) = false for numeric zero")
	}
	if tags.Has("Missing") {
		t.Error("Has(Missing) = true")
	}
}

func TestDateTags(t *testing.T) {
	// Order decides which embedded date wins.
	want := map[string][]string{
		"photo": {"DateTimeOriginal", "CreateDate"},
		"video": {"CreateDate", "MediaCreateDate", "TrackCreateDate"},
		"image": {"DateCreated", "CreateDate"},
	}
	for category, tags := range dateTagsByCategory {
		if diff := cmp.Diff(want[category.String()], tags); diff != "" {
			t.Errorf("DateTags(%s) mismatch (-want +got):\n%s", category, diff)
		}
	}
}
