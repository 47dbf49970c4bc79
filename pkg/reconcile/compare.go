package reconcile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/metadata"
)

// dateCheck compares capture times. Equality tolerates up to 25 hours
// of drift, because exports frequently hold UTC while embedded tags
// hold camera-local wall time with no offset.
func (r *Reconciler) dateCheck(sc, emb *metadata.Record) Check {
	check := Check{
		Field:    FieldDate,
		Sidecar:  displayDate(sc),
		Embedded: displayDate(emb),
	}

	switch {
	case !sc.HasCapturedAt():
		check.Verdict = VerdictAbsent
	case !emb.HasCapturedAt():
		check.Verdict = VerdictMissing
	default:
		diff := sc.CapturedAt.Sub(*emb.CapturedAt)
		if diff < 0 {
			diff = -diff
		}
		if diff <= constants.DateTolerance {
			check.Verdict = VerdictEqual
		} else {
			check.Verdict = VerdictConflict
			check.Note = fmt.Sprintf("capture times differ by %s", diff.Round(time.Second))
		}
	}
	return check
}

// gpsCheck compares positions on latitude and longitude. Altitude
// disagreement never blocks a match unless strict-altitude is set; it
// is surfaced as a note instead.
func (r *Reconciler) gpsCheck(sc, emb *metadata.Record) Check {
	check := Check{
		Field:    FieldGPS,
		Sidecar:  displayGPS(sc),
		Embedded: displayGPS(emb),
	}

	switch {
	case !sc.HasGPS():
		check.Verdict = VerdictAbsent
		return check
	case !emb.HasGPS():
		check.Verdict = VerdictMissing
		return check
	}

	a, b := sc.GPS, emb.GPS
	if math.Abs(a.Latitude-b.Latitude) > constants.CoordinateEpsilon ||
		math.Abs(a.Longitude-b.Longitude) > constants.CoordinateEpsilon {
		check.Verdict = VerdictConflict
		check.Note = "coordinates differ beyond tolerance"
		return check
	}

	if delta := math.Abs(a.Altitude - b.Altitude); delta > constants.AltitudeTolerance {
		if r.strictAltitude {
			check.Verdict = VerdictConflict
		} else {
			check.Verdict = VerdictEqual
		}
		check.Note = fmt.Sprintf("altitude differs by %.1f m", delta)
		return check
	}

	check.Verdict = VerdictEqual
	return check
}

// peopleCheck compares name-tag sets. The embedded side covering every
// sidecar name is equal even with extra names; partial coverage injects
// only the difference; zero overlap between non-empty sets is a
// conflict worth human review.
func (r *Reconciler) peopleCheck(sc, emb *metadata.Record) Check {
	check := Check{
		Field:    FieldPeople,
		Sidecar:  strings.Join(sc.People, ", "),
		Embedded: strings.Join(emb.People, ", "),
	}

	switch {
	case !sc.HasPeople():
		check.Verdict = VerdictAbsent
	case !emb.HasPeople():
		check.Verdict = VerdictMissing
	default:
		missing := difference(sc.People, emb.People)
		switch {
		case len(missing) == 0:
			check.Verdict = VerdictEqual
		case len(missing) == len(sc.People):
			check.Verdict = VerdictConflict
			check.Note = "existing name tags share no names with the sidecar"
		default:
			check.Verdict = VerdictMissing
			check.Note = fmt.Sprintf("missing %d of %d names", len(missing), len(sc.People))
		}
	}
	return check
}

// favoriteCheck maps the sidecar's favorited flag against the embedded
// rating. A rating on disk that the sidecar does not confirm is a
// conflict; the tool never clears ratings.
func (r *Reconciler) favoriteCheck(sc, emb *metadata.Record) Check {
	check := Check{
		Field:    FieldFavorite,
		Sidecar:  displayFavorite(sc),
		Embedded: displayFavorite(emb),
	}

	switch {
	case !sc.Favorited && !emb.Favorited:
		check.Verdict = VerdictAbsent
	case sc.Favorited && emb.Favorited:
		check.Verdict = VerdictEqual
	case sc.Favorited:
		check.Verdict = VerdictMissing
	default:
		check.Verdict = VerdictConflict
		check.Note = "embedded rating set but sidecar is not favorited"
	}
	return check
}

// descriptionCheck compares captions after trimming.
func (r *Reconciler) descriptionCheck(sc, emb *metadata.Record) Check {
	scDesc := strings.TrimSpace(sc.Description)
	embDesc := strings.TrimSpace(emb.Description)

	check := Check{
		Field:    FieldDescription,
		Sidecar:  scDesc,
		Embedded: embDesc,
	}

	switch {
	case scDesc == "":
		check.Verdict = VerdictAbsent
	case embDesc == "":
		check.Verdict = VerdictMissing
	case scDesc == embDesc:
		check.Verdict = VerdictEqual
	default:
		check.Verdict = VerdictConflict
	}
	return check
}

// difference returns the names in want that are not in have, preserving
// want's order.
func difference(want, have []string) []string {
	haveSet := make(map[string]struct{}, len(have))
	for _, name := range have {
		haveSet[name] = struct{}{}
	}
	var missing []string
	for _, name := range want {
		if _, ok := haveSet[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func displayDate(rec *metadata.Record) string {
	if !rec.HasCapturedAt() {
		return ""
	}
	return metadata.FormatEXIFDate(*rec.CapturedAt)
}

func displayGPS(rec *metadata.Record) string {
	if !rec.HasGPS() {
		return ""
	}
	g := rec.GPS
	if g.Altitude != 0 {
		return fmt.Sprintf("%.6f, %.6f (%.1f m)", g.Latitude, g.Longitude, g.Altitude)
	}
	return fmt.Sprintf("%.6f, %.6f", g.Latitude, g.Longitude)
}

func displayFavorite(rec *metadata.Record) string {
	if rec == nil || !rec.Favorited {
		return ""
	}
	return "favorited"
}
