// Package metadata defines the canonical metadata record shared by the
// sidecar parser and the embedded-tag reader. Both sources normalize into
// a Record so the reconciler compares like with like.
package metadata

import (
	"strings"

	"github.com/agentstation/utc"
)

// GPS is a WGS84 position. Altitude is meters relative to sea level and
// may be negative.
type GPS struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Altitude  float64 `json:"altitude,omitempty" yaml:"altitude,omitempty"`
}

// Record is one source's view of a media file's descriptive metadata,
// independent of whether it came from a Takeout sidecar or from tags
// embedded in the file itself. Nil pointers mean the source carries no
// value for that field.
type Record struct {
	CapturedAt  *utc.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty"` // Original capture instant
	GPS         *GPS      `json:"gps,omitempty" yaml:"gps,omitempty"`                 // Capture position
	People      []string  `json:"people,omitempty" yaml:"people,omitempty"`           // Tagged person names, sorted
	Favorited   bool      `json:"favorited,omitempty" yaml:"favorited,omitempty"`     // Starred in Google Photos
	Description string    `json:"description,omitempty" yaml:"description,omitempty"` // Free-form caption, trimmed
}

// HasCapturedAt reports whether the record carries a capture time.
func (r *Record) HasCapturedAt() bool {
	return r != nil && r.CapturedAt != nil
}

// HasGPS reports whether the record carries a position.
func (r *Record) HasGPS() bool {
	return r != nil && r.GPS != nil
}

// HasPeople reports whether the record carries at least one person name.
func (r *Record) HasPeople() bool {
	return r != nil && len(r.People) > 0
}

// HasDescription reports whether the record carries a non-blank description.
func (r *Record) HasDescription() bool {
	return r != nil && strings.TrimSpace(r.Description) != ""
}

// Empty reports whether the record carries no metadata at all.
func (r *Record) Empty() bool {
	return !r.HasCapturedAt() && !r.HasGPS() && !r.HasPeople() &&
		!r.HasDescription() && (r == nil || !r.Favorited)
}
