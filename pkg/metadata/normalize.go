package metadata

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"golang.org/x/text/unicode/norm"

	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/media"
)

// dmsPattern matches exiftool's print-converted coordinate form,
// e.g. `41 deg 4' 30.85" S`.
var dmsPattern = regexp.MustCompile(`(\d+) deg (\d+)' ([\d.]+)" ([NSEW])`)

// decimalPattern extracts signed decimal numbers from composite
// coordinate strings such as `-41.075236, -71.146703` or ISO 6709
// `+41.0752-071.1467/`.
var decimalPattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// NormalizeEmbedded converts raw exiftool output into the canonical
// record for the file's media category. Tags that are absent, blank, or
// unparseable simply leave their field unset.
func NormalizeEmbedded(tags Tags, format media.Format) *Record {
	category := format.Category()
	rec := &Record{}

	if t, ok := embeddedDate(tags, category); ok {
		rec.CapturedAt = &t
	}
	rec.GPS = embeddedGPS(tags)
	if people, ok := tags.Strings(TagKeywords); ok {
		rec.People = NormalizePeople(people)
	}
	if rating, ok := tags.Float(TagRating); ok && rating > 0 {
		rec.Favorited = true
	}
	rec.Description = embeddedDescription(tags, category)

	return rec
}

// embeddedDate walks the category's date tags and parses the first one
// present. exiftool renders dates as "2006:01:02 15:04:05" with an
// optional subsecond or timezone suffix, which is ignored.
func embeddedDate(tags Tags, category media.Category) (utc.Time, bool) {
	for _, name := range DateTags(category) {
		raw, ok := tags.String(name)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, err := ParseEXIFDate(raw); err == nil {
			return t, true
		}
	}
	return utc.Time{}, false
}

// ParseEXIFDate parses an EXIF-style date string. Only the leading
// "YYYY:MM:DD HH:MM:SS" portion is considered; EXIF stores local wall
// time without an offset, so the value is fixed to UTC the same way
// sidecar timestamps are.
func ParseEXIFDate(s string) (utc.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(constants.TimeFormatExif) {
		s = s[:len(constants.TimeFormatExif)]
	}
	t, err := time.Parse(constants.TimeFormatExif, s)
	if err != nil {
		return utc.Time{}, err
	}
	return utc.Time{Time: t}, nil
}

// FormatEXIFDate renders a capture time in the form exiftool expects
// for date tag writes.
func FormatEXIFDate(t utc.Time) string {
	return t.UTC().Format(constants.TimeFormatExif)
}

// embeddedGPS assembles a position from whichever coordinate tags the
// file carries. Photos expose GPSLatitude/GPSLongitude, QuickTime files
// usually surface the same pair through exiftool's composite tags, and
// the Keys GPSCoordinates string covers the rest.
func embeddedGPS(tags Tags) *GPS {
	lat, latOK := coordinate(tags, TagGPSLatitude, TagGPSLatitudeRef)
	lon, lonOK := coordinate(tags, TagGPSLongitude, TagGPSLongitudeRef)

	if !latOK || !lonOK {
		for _, name := range []string{TagGPSCoordinates, TagGPSPosition} {
			raw, ok := tags.String(name)
			if !ok {
				continue
			}
			if pLat, pLon, pOK := parseCoordinatePair(raw); pOK {
				lat, lon, latOK, lonOK = pLat, pLon, true, true
				break
			}
		}
	}

	if !latOK || !lonOK {
		return nil
	}
	// A zeroed pair is a placeholder, not a position on the equator.
	if lat == 0 && lon == 0 {
		return nil
	}

	gps := &GPS{Latitude: lat, Longitude: lon}
	if alt, ok := tags.Float(TagGPSAltitude); ok {
		if ref, refOK := tags.String(TagGPSAltitudeRef); refOK && belowSeaLevel(ref) {
			alt = -alt
		}
		gps.Altitude = alt
	}
	return gps
}

// coordinate reads one axis, accepting both numeric output and the
// print-converted DMS string, and applies the hemisphere reference tag
// when present.
func coordinate(tags Tags, name, refName string) (float64, bool) {
	var value float64
	if f, ok := tags.Float(name); ok {
		value = f
	} else if raw, ok := tags.String(name); ok {
		dms, err := parseDMS(raw)
		if err != nil {
			return 0, false
		}
		value = dms
	} else {
		return 0, false
	}

	if ref, ok := tags.String(refName); ok {
		ref = strings.ToUpper(strings.TrimSpace(ref))
		if strings.HasPrefix(ref, "S") || strings.HasPrefix(ref, "W") {
			if value > 0 {
				value = -value
			}
		}
	}
	return value, true
}

// parseDMS converts a degrees-minutes-seconds coordinate string to a
// signed decimal. Southern and western hemispheres are negative.
func parseDMS(s string) (float64, error) {
	m := dmsPattern.FindStringSubmatch(s)
	if m == nil {
		// Some writers emit plain decimals in string form.
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	return dmsValue(m)
}

// parseCoordinatePair extracts latitude and longitude from a combined
// coordinate string. DMS pairs are tried first so their embedded
// degree and minute numbers are not mistaken for decimals.
func parseCoordinatePair(s string) (lat, lon float64, ok bool) {
	if matches := dmsPattern.FindAllStringSubmatch(s, 2); len(matches) >= 2 {
		var err error
		if lat, err = dmsValue(matches[0]); err != nil {
			return 0, 0, false
		}
		if lon, err = dmsValue(matches[1]); err != nil {
			return 0, 0, false
		}
		return lat, lon, true
	}

	numbers := decimalPattern.FindAllString(s, 2)
	if len(numbers) < 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(numbers[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(numbers[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func dmsValue(match []string) (float64, error) {
	deg, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, err
	}
	value := deg + min/60 + sec/3600
	if match[4] == "S" || match[4] == "W" {
		value = -value
	}
	return value, nil
}

func belowSeaLevel(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref == "1" || strings.HasPrefix(strings.ToLower(ref), "below")
}

// embeddedDescription returns the first non-blank caption tag for the
// category, trimmed.
func embeddedDescription(tags Tags, category media.Category) string {
	for _, name := range descriptionTagsByCategory[category] {
		if raw, ok := tags.String(name); ok {
			if desc := NormalizeText(raw); desc != "" {
				return desc
			}
		}
	}
	return ""
}

// NormalizeText trims the string and fixes its Unicode normalization
// form. Sidecar JSON and embedded tags can disagree on composed versus
// decomposed accents (macOS tooling emits NFD), which would otherwise
// read as a conflict between identical strings.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizePeople cleans, deduplicates, and sorts person names so lists
// from different sources compare deterministically.
func NormalizePeople(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = NormalizeText(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
