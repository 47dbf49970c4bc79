package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/retakehq/retake/pkg/media"
)

// Tag names as exiftool reports them in JSON output without group
// prefixes. Reads stay un-grouped so the same name matches whichever
// directory (EXIF, XMP, IPTC, QuickTime Keys) the file actually uses.
const (
	TagDateTimeOriginal = "DateTimeOriginal"
	TagCreateDate       = "CreateDate"
	TagMediaCreateDate  = "MediaCreateDate"
	TagTrackCreateDate  = "TrackCreateDate"
	TagDateCreated      = "DateCreated"

	TagGPSLatitude     = "GPSLatitude"
	TagGPSLatitudeRef  = "GPSLatitudeRef"
	TagGPSLongitude    = "GPSLongitude"
	TagGPSLongitudeRef = "GPSLongitudeRef"
	TagGPSAltitude     = "GPSAltitude"
	TagGPSAltitudeRef  = "GPSAltitudeRef"
	TagGPSPosition     = "GPSPosition"
	TagGPSCoordinates  = "GPSCoordinates"

	TagKeywords        = "Keywords"
	TagRating          = "Rating"
	TagCaptionAbstract = "Caption-Abstract"
	TagDescription     = "Description"
)

// dateTagsByCategory orders the capture-date tags consulted per media
// category. The first present, non-empty tag wins.
var dateTagsByCategory = map[media.Category][]string{
	media.CategoryPhoto: {TagDateTimeOriginal, TagCreateDate},
	media.CategoryVideo: {TagCreateDate, TagMediaCreateDate, TagTrackCreateDate},
	media.CategoryImage: {TagDateCreated, TagCreateDate},
}

// DateTags returns the ordered capture-date tag names for a category.
func DateTags(category media.Category) []string {
	return dateTagsByCategory[category]
}

// descriptionTagsByCategory orders the caption tags consulted per media
// category. Photos prefer the IPTC caption the injector writes; videos
// and web images carry a plain Description.
var descriptionTagsByCategory = map[media.Category][]string{
	media.CategoryPhoto: {TagCaptionAbstract, TagDescription},
	media.CategoryVideo: {TagDescription},
	media.CategoryImage: {TagDescription},
}

// Tag is one write instruction for the metadata tool. A name repeated
// across consecutive tags writes a multi-valued tag.
type Tag struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Tags is the raw tag set for one file as decoded from exiftool's JSON
// output. Values keep exiftool's loose typing: numbers arrive as
// float64, repeated tags as []any.
type Tags map[string]any

// Has reports whether the named tag is present with a non-empty value.
func (t Tags) Has(name string) bool {
	v, ok := t[name]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns the named tag rendered as a string. Numeric values are
// formatted without trailing zeros so "5" and 5.0 compare equal.
func (t Tags) String(name string) (string, bool) {
	v, ok := t[name]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// Float returns the named tag as a float64, parsing string values when
// necessary.
func (t Tags) Float(name string) (float64, bool) {
	v, ok := t[name]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Strings returns the named tag as a list. exiftool collapses a
// single-valued list tag to a scalar, so both shapes are accepted.
func (t Tags) Strings(name string) ([]string, bool) {
	v, ok := t[name]
	if !ok || v == nil {
		return nil, false
	}
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case []string:
		if len(val) == 0 {
			return nil, false
		}
		return val, true
	default:
		if s := toString(val); s != "" {
			return []string{s}, true
		}
		return nil, false
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
