package sidecar

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/errors"
)

// numberedName captures a collision counter before the extension,
// e.g. IMG_0001(1).JPG.
var numberedName = regexp.MustCompile(`^(.+)\((\d+)\)(\.[^.]+)$`)

// trailingCounter matches a collision counter at the end of a sidecar
// stem, e.g. the "(1)" in IMG_0001.JPG.supplemental-metadata(1).json.
var trailingCounter = regexp.MustCompile(`\(\d+\)$`)

// Suffix stems without the .json tail, used to build numbered variants
// and truncation targets.
var (
	suffixStem      = strings.TrimSuffix(constants.SidecarSuffix, ".json")
	suffixStemShort = strings.TrimSuffix(constants.SidecarSuffixShort, ".json")
)

// Locator resolves the sidecar path for a media file. Directory
// listings are cached with a short TTL so the truncated-prefix fallback
// does not re-read the same directory for every file in it.
type Locator struct {
	dirs *gocache.Cache
}

// NewLocator returns a Locator with a fresh directory cache.
func NewLocator() *Locator {
	return &Locator{
		dirs: gocache.New(constants.DirCacheTTL, constants.DirCacheCleanupInterval),
	}
}

// Locate returns the sidecar path for mediaPath. Matching is
// case-insensitive but the returned path preserves the sidecar's
// on-disk casing. ErrNoSidecar means no candidate exists; callers treat
// that as a skip, not a failure.
func (l *Locator) Locate(mediaPath string) (string, error) {
	dir := filepath.Dir(mediaPath)
	base := strings.ToLower(filepath.Base(mediaPath))

	entries, err := l.entries(dir)
	if err != nil {
		return "", errors.NewSidecarError(mediaPath, "", err)
	}

	for _, name := range candidates(base) {
		if actual, ok := entries[name]; ok {
			return filepath.Join(dir, actual), nil
		}
	}

	if actual, ok := prefixMatch(base, entries); ok {
		return filepath.Join(dir, actual), nil
	}

	return "", errors.ErrNoSidecar
}

// entries lists the .json files in dir keyed by lowercase name.
func (l *Locator) entries(dir string) (map[string]string, error) {
	if cached, ok := l.dirs.Get(dir); ok {
		if m, ok := cached.(map[string]string); ok {
			return m, nil
		}
	}

	list, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapIO("list", dir, err)
	}

	m := make(map[string]string, len(list))
	for _, entry := range list {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".json") {
			continue
		}
		if _, exists := m[lower]; !exists {
			m[lower] = name
		}
	}

	l.dirs.Set(dir, m, gocache.DefaultExpiration)
	return m, nil
}

// candidates builds the ordered lowercase sidecar names to try for a
// lowercase media filename. Plain <name>.json covers older exports.
func candidates(base string) []string {
	names := []string{
		base + constants.SidecarSuffix,
		base + constants.SidecarSuffixShort,
		base + ".json",
	}

	// Collision-numbered media keep the counter on the sidecar side of
	// the extension: IMG_0001(1).JPG pairs with
	// IMG_0001.JPG.supplemental-metadata(1).json.
	if m := numberedName.FindStringSubmatch(base); m != nil {
		stem, counter, ext := m[1], m[2], m[3]
		names = append(names,
			stem+ext+suffixStem+"("+counter+").json",
			stem+ext+suffixStemShort+"("+counter+").json",
			stem+ext+"("+counter+").json",
		)
	}

	// Some exports append an underscore to the media name but not to
	// its sidecar.
	if ext := filepath.Ext(base); ext != "" {
		stem := strings.TrimSuffix(base, ext)
		if trimmed := strings.TrimRight(stem, "_"); trimmed != stem && trimmed != "" {
			names = append(names,
				trimmed+ext+constants.SidecarSuffix,
				trimmed+ext+constants.SidecarSuffixShort,
				trimmed+ext+".json",
			)
		}
	}

	return names
}

// prefixMatch finds sidecars whose name was cut by the export tool's
// filename-length limit. A candidate stem must be a strict truncation
// of "<base>.supplemental-metadata" and long enough to be unambiguous.
func prefixMatch(base string, entries map[string]string) (string, bool) {
	target := base + suffixStem

	// Only names longer than the cut length can have truncated
	// sidecars; anything shorter matching by prefix is a different file.
	if len(target) <= constants.SidecarMaxBase {
		return "", false
	}

	type match struct {
		lower   string
		actual  string
		stemLen int
	}
	var matches []match

	for lower, actual := range entries {
		stem := trailingCounter.ReplaceAllString(strings.TrimSuffix(lower, ".json"), "")
		if len(stem) < constants.SidecarMinPrefix || len(stem) >= len(target) {
			continue
		}
		if !strings.HasPrefix(target, stem) {
			continue
		}
		matches = append(matches, match{lower: lower, actual: actual, stemLen: len(stem)})
	}
	if len(matches) == 0 {
		return "", false
	}

	// Longest stem is the least ambiguous candidate.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].stemLen != matches[j].stemLen {
			return matches[i].stemLen > matches[j].stemLen
		}
		return matches[i].lower < matches[j].lower
	})
	return matches[0].actual, true
}
