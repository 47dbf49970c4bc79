// Package sidecar locates and parses the JSON companion files the
// Takeout export writes next to each media file. Lookup tolerates the
// export tool's naming quirks (suffix truncation, numbered duplicates,
// lowercased names) and parsing normalizes the loose JSON shape into
// the canonical metadata record.
package sidecar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/errors"
	"github.com/retakehq/retake/pkg/metadata"
)

// document mirrors the Takeout sidecar JSON shape. Unknown keys are
// ignored; the export format carries far more than is reconciled.
type document struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Favorited      bool       `json:"favorited"`
	PhotoTakenTime *timeEntry `json:"photoTakenTime"`
	GeoData        *geoData   `json:"geoData"`
	People         []person   `json:"people"`
}

type timeEntry struct {
	Timestamp epoch  `json:"timestamp"`
	Formatted string `json:"formatted"`
}

type geoData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

type person struct {
	Name string `json:"name"`
}

// epoch is a Unix timestamp that the export serializes sometimes as a
// JSON string and sometimes as a number.
type epoch int64

func (e *epoch) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*e = 0
		return nil
	}
	// Some exports render the epoch as a float.
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*e = epoch(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*e = epoch(int64(f))
	return nil
}

// Load reads and parses the sidecar file at path.
func Load(path string) (*metadata.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, path)
}

// Parse decodes sidecar JSON into the canonical record. name is used
// for error reporting only. Malformed JSON or a missing outer object is
// a ParseError; out-of-range coordinates are a ValidationError. Invalid
// epochs are placeholders the export writes routinely, so they are
// dropped rather than failing the whole sidecar.
func Parse(data []byte, name string) (*metadata.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.NewParseError("json", name, "sidecar has no outer object", nil)
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, errors.WrapParse("json", name, err)
	}
	return doc.record()
}

// record normalizes the raw document. Zeroed coordinates mean "no GPS"
// in the export format, and epochs outside (0, 2100) are placeholders.
func (d *document) record() (*metadata.Record, error) {
	rec := &metadata.Record{
		Favorited:   d.Favorited,
		Description: metadata.NormalizeText(d.Description),
	}

	if d.PhotoTakenTime != nil && ValidEpoch(int64(d.PhotoTakenTime.Timestamp)) {
		t := utc.Time{Time: time.Unix(int64(d.PhotoTakenTime.Timestamp), 0).UTC()}
		rec.CapturedAt = &t
	}

	if d.GeoData != nil {
		gps, err := d.GeoData.gps()
		if err != nil {
			return nil, err
		}
		rec.GPS = gps
	}

	if len(d.People) > 0 {
		names := make([]string, 0, len(d.People))
		for _, p := range d.People {
			names = append(names, p.Name)
		}
		rec.People = metadata.NormalizePeople(names)
	}

	return rec, nil
}

func (g *geoData) gps() (*metadata.GPS, error) {
	if g.Latitude == 0 && g.Longitude == 0 {
		return nil, nil
	}
	if g.Latitude < -90 || g.Latitude > 90 || g.Longitude < -180 || g.Longitude > 180 {
		return nil, errors.NewValidationError("geoData",
			fmt.Sprintf("%v, %v", g.Latitude, g.Longitude), "coordinates out of range")
	}
	return &metadata.GPS{
		Latitude:  g.Latitude,
		Longitude: g.Longitude,
		Altitude:  g.Altitude,
	}, nil
}

// ValidEpoch reports whether ts is a plausible capture time: positive
// and before the year 2100. Zero and negative epochs are export
// placeholders.
func ValidEpoch(ts int64) bool {
	return ts > constants.MinValidEpoch && ts < constants.MaxValidEpoch
}
