package plan

import (
	"fmt"
	"strconv"

	"github.com/retakehq/retake/pkg/media"
	"github.com/retakehq/retake/pkg/metadata"
	"github.com/retakehq/retake/pkg/reconcile"
)

// Write targets carry explicit group prefixes where the destination
// directory matters, so exiftool routes each value to the standard the
// reader expects.
const (
	WriteDateTimeOriginal = "DateTimeOriginal"
	WriteCreateDate       = "CreateDate"
	WriteMediaCreateDate  = "MediaCreateDate"
	WriteTrackCreateDate  = "TrackCreateDate"
	WriteDateCreated      = "DateCreated"
	WriteXMPDateCreated   = "XMP:DateCreated"

	WriteGPSLatitude     = "GPSLatitude"
	WriteGPSLatitudeRef  = "GPSLatitudeRef"
	WriteGPSLongitude    = "GPSLongitude"
	WriteGPSLongitudeRef = "GPSLongitudeRef"
	WriteGPSAltitude     = "GPSAltitude"
	WriteGPSAltitudeRef  = "GPSAltitudeRef"
	WriteGPSCoordinates  = "Keys:GPSCoordinates"

	WriteKeywords        = "IPTC:Keywords"
	WriteRating          = "XMP:Rating"
	WriteCaptionAbstract = "IPTC:Caption-Abstract"
	WriteDescription     = "Description"

	// FavoriteRating is the rating value a favorited file receives.
	FavoriteRating = "5"
)

// dateWritesByCategory orders the date tags written per category.
// Videos receive the container, media, and track dates together so
// players agree on the capture time.
var dateWritesByCategory = map[media.Category][]string{
	media.CategoryPhoto: {WriteDateTimeOriginal, WriteCreateDate},
	media.CategoryVideo: {WriteCreateDate, WriteMediaCreateDate, WriteTrackCreateDate},
	media.CategoryImage: {WriteDateCreated, WriteXMPDateCreated},
}

func fieldWrites(field reconcile.Field, sc, emb *metadata.Record, format media.Format) []metadata.Tag {
	category := format.Category()

	switch field {
	case reconcile.FieldDate:
		return dateWrites(category, sc)
	case reconcile.FieldGPS:
		return gpsWrites(category, sc.GPS)
	case reconcile.FieldPeople:
		return peopleWrites(sc, emb)
	case reconcile.FieldFavorite:
		return []metadata.Tag{{Name: WriteRating, Value: FavoriteRating}}
	case reconcile.FieldDescription:
		return descriptionWrites(category, sc.Description)
	default:
		return nil
	}
}

func dateWrites(category media.Category, sc *metadata.Record) []metadata.Tag {
	if !sc.HasCapturedAt() {
		return nil
	}
	value := metadata.FormatEXIFDate(*sc.CapturedAt)

	names := dateWritesByCategory[category]
	tags := make([]metadata.Tag, 0, len(names))
	for _, name := range names {
		tags = append(tags, metadata.Tag{Name: name, Value: value})
	}
	return tags
}

// gpsWrites emits the category's coordinate dialect: EXIF value/ref
// pairs for photos, a single QuickTime Keys coordinate string for
// videos. Web image formats carry no native GPS and get nothing.
func gpsWrites(category media.Category, gps *metadata.GPS) []metadata.Tag {
	if gps == nil {
		return nil
	}

	switch category {
	case media.CategoryPhoto:
		latRef, lonRef := "N", "E"
		if gps.Latitude < 0 {
			latRef = "S"
		}
		if gps.Longitude < 0 {
			lonRef = "W"
		}
		// GPSAltitudeRef raw values: 0 above sea level, 1 below.
		altRef := "0"
		if gps.Altitude < 0 {
			altRef = "1"
		}
		return []metadata.Tag{
			{Name: WriteGPSLatitude, Value: formatCoord(abs(gps.Latitude))},
			{Name: WriteGPSLatitudeRef, Value: latRef},
			{Name: WriteGPSLongitude, Value: formatCoord(abs(gps.Longitude))},
			{Name: WriteGPSLongitudeRef, Value: lonRef},
			{Name: WriteGPSAltitude, Value: formatCoord(abs(gps.Altitude))},
			{Name: WriteGPSAltitudeRef, Value: altRef},
		}
	case media.CategoryVideo:
		value := fmt.Sprintf("%s, %s", formatCoord(gps.Latitude), formatCoord(gps.Longitude))
		return []metadata.Tag{{Name: WriteGPSCoordinates, Value: value}}
	default:
		return nil
	}
}

// peopleWrites replaces the keyword list with the union of both sides.
// exiftool keyword assignment overwrites the whole list, so writing
// only the missing names would drop tags already on disk.
func peopleWrites(sc, emb *metadata.Record) []metadata.Tag {
	union := metadata.NormalizePeople(append(append([]string{}, emb.People...), sc.People...))
	tags := make([]metadata.Tag, 0, len(union))
	for _, name := range union {
		tags = append(tags, metadata.Tag{Name: WriteKeywords, Value: name})
	}
	return tags
}

func descriptionWrites(category media.Category, desc string) []metadata.Tag {
	if desc == "" {
		return nil
	}
	name := WriteDescription
	if category == media.CategoryPhoto {
		name = WriteCaptionAbstract
	}
	return []metadata.Tag{{Name: name, Value: desc}}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
