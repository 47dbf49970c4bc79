package retake

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retakehq/retake/pkg/errors"
	"github.com/retakehq/retake/pkg/exiftool"
	"github.com/retakehq/retake/pkg/metadata"
	"github.com/retakehq/retake/pkg/plan"
	"github.com/retakehq/retake/pkg/reconcile"
)

// fullSidecar carries every reconciled field. Its timestamp decodes to
// 2019-07-14T10:31:22Z.
const fullSidecar = `{
  "title": "IMG_0001.HEIC",
  "description": "Um dia no Rio",
  "favorited": true,
  "photoTakenTime": {"timestamp": "1563100282", "formatted": "14 Jul 2019, 10:31:22 UTC"},
  "geoData": {"latitude": -22.906847, "longitude": -43.172896, "altitude": 11.5},
  "people": [{"name": "John Doe"}]
}`

var captureTime = time.Date(2019, 7, 14, 10, 31, 22, 0, time.UTC)

// fullSidecarWrites is the exact write sequence the full sidecar plans
// against a photo with no embedded metadata.
var fullSidecarWrites = []metadata.Tag{
	{Name: "DateTimeOriginal", Value: "2019:07:14 10:31:22"},
	{Name: "CreateDate", Value: "2019:07:14 10:31:22"},
	{Name: "GPSLatitude", Value: "22.906847"},
	{Name: "GPSLatitudeRef", Value: "S"},
	{Name: "GPSLongitude", Value: "43.172896"},
	{Name: "GPSLongitudeRef", Value: "W"},
	{Name: "GPSAltitude", Value: "11.5"},
	{Name: "GPSAltitudeRef", Value: "0"},
	{Name: "IPTC:Keywords", Value: "John Doe"},
	{Name: "XMP:Rating", Value: "5"},
	{Name: "IPTC:Caption-Abstract", Value: "Um dia no Rio"},
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newPhotoFixture lays out a photo and its sidecar in a fresh directory
// and returns the directory, the photo path, and a fake client seeded
// with the given embedded tags.
func newPhotoFixture(t *testing.T, sidecarJSON string, tags metadata.Tags) (string, string, *exiftool.Fake) {
	t.Helper()
	dir := t.TempDir()
	photo := filepath.Join(dir, "IMG_0001.HEIC")
	writeFile(t, photo, "heic")
	writeFile(t, filepath.Join(dir, "IMG_0001.HEIC.supplemental-metadata.json"), sidecarJSON)
	return dir, photo, exiftool.NewFake(map[string]metadata.Tags{photo: tags})
}

func newEngine(t *testing.T, fake *exiftool.Fake, reportDir string, opts ...Option) Retake {
	t.Helper()
	base := []Option{WithClient(fake), WithReportDir(reportDir)}
	eng, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	fake := exiftool.NewFake(nil)

	_, err := New(WithClient(fake), WithWorkers(0))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = New(WithClient(fake), WithWorkers(17))
	require.Error(t, err)

	_, err = New(WithClient(fake), WithToolTimeout(-time.Second))
	require.Error(t, err)
}

func TestCloseLeavesSuppliedClientOpen(t *testing.T) {
	fake := exiftool.NewFake(nil)
	eng, err := New(WithClient(fake))
	require.NoError(t, err)

	require.NoError(t, eng.Close())
	assert.False(t, fake.Closed())
}

func TestInjectDryRunPlansWithoutWriting(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"), WithDryRun(true))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Counts.Total)
	assert.Equal(t, 1, result.Counts.Injected)
	require.Len(t, result.Files, 1)

	outcome := result.Files[0]
	assert.Equal(t, plan.DecisionInject, outcome.Decision)
	assert.Equal(t, fullSidecarWrites, outcome.Plan.Writes)
	assert.False(t, outcome.Written)

	assert.Zero(t, fake.WriteCount(photo))

	info, err := os.Stat(photo)
	require.NoError(t, err)
	assert.False(t, info.ModTime().UTC().Equal(captureTime), "dry run must not touch file times")
}

func TestInjectAppliesPlannedWrites(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	logDir := filepath.Join(dir, "logs")
	eng := newEngine(t, fake, logDir)

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.False(t, result.DryRun)
	assert.Equal(t, 1, result.Counts.Injected)
	require.Len(t, result.Files, 1)

	outcome := result.Files[0]
	assert.True(t, outcome.Written)
	assert.True(t, outcome.TimeSynced)

	require.Equal(t, 1, fake.WriteCount(photo))
	assert.Equal(t, fullSidecarWrites, fake.Written[photo][0])

	// One read for analysis, one for the pre-write snapshot.
	assert.Equal(t, 2, fake.ReadCount(photo))

	backup := filepath.Join(logDir, "backups", "IMG_0001.HEIC.exif.backup")
	assert.Equal(t, backup, outcome.Backup)
	assert.FileExists(t, backup)

	info, err := os.Stat(photo)
	require.NoError(t, err)
	assert.True(t, info.ModTime().UTC().Equal(captureTime),
		"file time should match the capture time, got %s", info.ModTime().UTC())
}

func TestInjectIsIdempotent(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	_, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 1, fake.WriteCount(photo))

	second, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, second.Counts.Total)
	assert.Equal(t, 1, second.Counts.Complete)
	assert.Zero(t, second.Counts.Injected)
	require.Len(t, second.Files, 1)
	assert.Equal(t, plan.DecisionNoOp, second.Files[0].Decision)

	// The first pass satisfied every field; nothing is written again.
	assert.Equal(t, 1, fake.WriteCount(photo))
	assert.True(t, second.Files[0].TimeSynced, "time sync repeats even on a no-op pass")
}

func TestInjectIsolatesConflictedFields(t *testing.T) {
	embedded := metadata.Tags{"DateTimeOriginal": "2015:01:01 00:00:00"}
	dir, photo, fake := newPhotoFixture(t, fullSidecar, embedded)
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts.Conflicts)
	require.Len(t, result.Files, 1)

	outcome := result.Files[0]
	assert.Equal(t, plan.DecisionConflict, outcome.Decision)
	assert.True(t, outcome.Written, "clean fields are written despite the conflict")

	names := make([]string, 0, len(outcome.Plan.Writes))
	for _, w := range outcome.Plan.Writes {
		names = append(names, w.Name)
	}
	assert.NotContains(t, names, "DateTimeOriginal")
	assert.NotContains(t, names, "CreateDate")
	assert.Contains(t, names, "GPSLatitude")
	assert.Contains(t, names, "XMP:Rating")

	// A disputed date leaves the filesystem timestamp alone.
	assert.False(t, outcome.TimeSynced)
	assert.Nil(t, outcome.Plan.ModTime)

	require.NotEmpty(t, result.Reports.Conflicts)
	data, err := os.ReadFile(result.Reports.Conflicts)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "file,field,embedded_value,sidecar_value,note")
	assert.Contains(t, content, photo)
	assert.Contains(t, content, "date")
	assert.Contains(t, content, "capture times differ by")
}

func TestInjectDryRunWritesConflictReport(t *testing.T) {
	embedded := metadata.Tags{"DateTimeOriginal": "2015:01:01 00:00:00"}
	dir, photo, fake := newPhotoFixture(t, fullSidecar, embedded)
	eng := newEngine(t, fake, filepath.Join(dir, "logs"), WithDryRun(true))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.Zero(t, fake.WriteCount(photo))
	require.NotEmpty(t, result.Reports.Conflicts)
	assert.FileExists(t, result.Reports.Conflicts)
}

func TestInjectWithoutSidecar(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "IMG_0002.HEIC")
	writeFile(t, photo, "heic")
	fake := exiftool.NewFake(map[string]metadata.Tags{photo: {}})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts.NoSidecar)
	require.Len(t, result.Files, 1)
	assert.Equal(t, plan.DecisionNoSidecar, result.Files[0].Decision)

	// The tool is never consulted when there is nothing to reconcile.
	assert.Zero(t, fake.ReadCount(photo))
	assert.Zero(t, fake.WriteCount(photo))

	// Sidecar-less files still land in the skipped log.
	require.NotEmpty(t, result.Reports.Skipped)
	data, err := os.ReadFile(result.Reports.Skipped)
	require.NoError(t, err)
	assert.Contains(t, string(data), photo)
	assert.Contains(t, string(data), "no sidecar found")
}

func TestInjectSkipsRawFormats(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	raw := filepath.Join(dir, "IMG_0003.CR2")
	clip := filepath.Join(dir, "GL010042.LRV")
	writeFile(t, raw, "raw")
	writeFile(t, clip, "lrv")
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Counts.Total, "the sidecar itself is not an outcome")
	assert.Equal(t, 2, result.Counts.Skipped)
	assert.Equal(t, 1, result.Counts.Injected)

	byPath := outcomesByPath(result)
	assert.Equal(t, plan.DecisionUnsupported, byPath[raw].Decision)
	assert.Equal(t, "RAW/LRV format (.cr2)", byPath[raw].Reason)
	assert.Equal(t, "RAW/LRV format (.lrv)", byPath[clip].Reason)

	assert.Zero(t, fake.ReadCount(raw))
	assert.Zero(t, fake.ReadCount(clip))
	require.Equal(t, 1, fake.WriteCount(photo))

	require.NotEmpty(t, result.Reports.Skipped)
	data, err := os.ReadFile(result.Reports.Skipped)
	require.NoError(t, err)
	assert.Contains(t, string(data), "RAW/LRV format (.cr2)")
}

func TestInjectRecordsSidecarParseErrors(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, `{not json`, metadata.Tags{})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err, "per-file failures never abort the run")

	assert.Equal(t, 1, result.Counts.Errors)
	require.Len(t, result.Files, 1)
	assert.Equal(t, plan.DecisionError, result.Files[0].Decision)
	assert.NotEmpty(t, result.Files[0].Plan.Err)
	assert.Zero(t, fake.WriteCount(photo))

	require.NotEmpty(t, result.Reports.Errors)
	data, err := os.ReadFile(result.Reports.Errors)
	require.NoError(t, err)
	assert.Contains(t, string(data), photo)
}

func TestInjectIsolatesPerFileErrors(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	broken := filepath.Join(dir, "IMG_0004.JPG")
	writeFile(t, broken, "jpg")
	writeFile(t, filepath.Join(dir, "IMG_0004.JPG.supplemental-metadata.json"), fullSidecar)
	fake.Files[broken] = metadata.Tags{}
	fake.ReadErr[broken] = errors.NewProcessError("read", "exiftool", "truncated file", nil)

	eng := newEngine(t, fake, filepath.Join(dir, "logs"), WithWorkers(2))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Counts.Total)
	assert.Equal(t, 1, result.Counts.Errors)
	assert.Equal(t, 1, result.Counts.Injected)

	byPath := outcomesByPath(result)
	assert.Equal(t, plan.DecisionError, byPath[broken].Decision)
	assert.True(t, byPath[photo].Written)
	require.Equal(t, 1, fake.WriteCount(photo))
	assert.Zero(t, fake.WriteCount(broken))
}

func TestInjectSkipsReadOnlyFiles(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	require.NoError(t, os.Chmod(photo, 0o444))
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	outcome := result.Files[0]
	assert.Equal(t, "read-only file", outcome.Reason)
	assert.False(t, outcome.Written)
	assert.False(t, outcome.TimeSynced)
	assert.Equal(t, 1, result.Counts.Skipped)
	assert.Zero(t, fake.WriteCount(photo))

	require.NotEmpty(t, result.Reports.Skipped)
	data, err := os.ReadFile(result.Reports.Skipped)
	require.NoError(t, err)
	assert.Contains(t, string(data), "read-only file")
}

func TestInjectEmptySidecarIsNoOp(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, `{"title": "IMG_0001.HEIC"}`, metadata.Tags{})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts.Complete)
	require.Len(t, result.Files, 1)

	outcome := result.Files[0]
	assert.Equal(t, plan.DecisionNoOp, outcome.Decision)
	assert.False(t, outcome.TimeSynced, "no capture time, no time sync")
	assert.Zero(t, fake.WriteCount(photo))

	for _, check := range outcome.Checks() {
		assert.Equal(t, reconcile.VerdictAbsent, check.Verdict, "field %s", check.Field)
	}
}

func TestAnalyzeWritesNothing(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	logDir := filepath.Join(dir, "logs")
	eng := newEngine(t, fake, logDir)

	result, err := eng.Analyze(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Counts.Injected)
	assert.Zero(t, fake.WriteCount(photo))
	assert.Empty(t, result.Reports.Conflicts)
	assert.NoDirExists(t, logDir)
}

func TestApplyExecutesPriorAnalysis(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Analyze(context.Background(), dir)
	require.NoError(t, err)

	// Apply executes the already-computed plans; it does not re-analyze.
	require.NoError(t, os.Remove(filepath.Join(dir, "IMG_0001.HEIC.supplemental-metadata.json")))

	applied, err := eng.Apply(context.Background(), result)
	require.NoError(t, err)

	assert.False(t, applied.DryRun)
	assert.Equal(t, 1, applied.Counts.Injected)
	require.Equal(t, 1, fake.WriteCount(photo))
	assert.Equal(t, fullSidecarWrites, fake.Written[photo][0])
}

func TestInjectSingleFileTarget(t *testing.T) {
	dir, photo, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Inject(context.Background(), photo)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts.Total)
	assert.Equal(t, 1, result.Counts.Injected)
	require.Equal(t, 1, fake.WriteCount(photo))
}

func TestInjectVideoWritesQuickTimeTags(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "MVI_0005.MP4")
	writeFile(t, video, "mp4")
	writeFile(t, filepath.Join(dir, "MVI_0005.MP4.supplemental-metadata.json"), fullSidecar)
	fake := exiftool.NewFake(map[string]metadata.Tags{video: {}})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	names := make([]string, 0, len(result.Files[0].Plan.Writes))
	for _, w := range result.Files[0].Plan.Writes {
		names = append(names, w.Name)
	}
	assert.Equal(t, []string{
		"CreateDate", "MediaCreateDate", "TrackCreateDate",
		"Keys:GPSCoordinates",
		"Description",
	}, names)
}

func TestOnFileProcessedSeesEveryOutcome(t *testing.T) {
	dir, _, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	writeFile(t, filepath.Join(dir, "IMG_0003.CR2"), "raw")
	orphan := filepath.Join(dir, "IMG_0006.PNG")
	writeFile(t, orphan, "png")
	fake.Files[orphan] = metadata.Tags{}

	eng := newEngine(t, fake, filepath.Join(dir, "logs"), WithWorkers(4))

	var mu sync.Mutex
	var seen []plan.Decision
	eng.OnFileProcessed(func(outcome FileOutcome) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, outcome.Decision)
	})

	result, err := eng.Inject(context.Background(), dir)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, result.Counts.Total)
	assert.Contains(t, seen, plan.DecisionUnsupported)
	assert.Contains(t, seen, plan.DecisionNoSidecar)
	assert.Contains(t, seen, plan.DecisionInject)
}

func TestInjectCanceledContext(t *testing.T) {
	dir, _, fake := newPhotoFixture(t, fullSidecar, metadata.Tags{})
	eng := newEngine(t, fake, filepath.Join(dir, "logs"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Inject(ctx, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func outcomesByPath(result *Result) map[string]FileOutcome {
	byPath := make(map[string]FileOutcome, len(result.Files))
	for _, o := range result.Files {
		byPath[o.File.Path] = o
	}
	return byPath
}
