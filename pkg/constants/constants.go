// Package constants provides shared constants used throughout the retake codebase.
// This includes reconciliation tolerances, timeouts, file permissions, and naming
// patterns that should be consistent across the application.
package constants

import "time"

// Reconciliation tolerance constants define how far two metadata values may
// drift while still being considered equal.
const (
	// DateTolerance is the maximum difference between a sidecar capture time
	// and an embedded capture time that still counts as equal. A full day
	// covers any timezone offset; the extra hour absorbs DST shifts.
	DateTolerance = 25 * time.Hour

	// CoordinateEpsilon is the tolerance in decimal degrees for comparing
	// latitude and longitude values (1e-5 degrees is roughly one meter).
	CoordinateEpsilon = 1e-5

	// AltitudeTolerance is the tolerance in meters for comparing altitudes.
	// Altitude disagreement alone never blocks coordinate injection.
	AltitudeTolerance = 1.0
)

// Timestamp validity bounds for sidecar epoch values
const (
	// MinValidEpoch is the exclusive lower bound for sidecar timestamps.
	MinValidEpoch = 0

	// MaxValidEpoch is the exclusive upper bound for sidecar timestamps
	// (2100-01-01T00:00:00Z). Anything beyond it is treated as corrupt.
	MaxValidEpoch = 4102444800
)

// Timeout constants define various timeout durations used in the application
const (
	// DefaultTimeout bounds quick external probes such as dependency
	// version checks.
	DefaultTimeout = 10 * time.Second

	// MetadataReadTimeout bounds a single embedded-metadata read.
	MetadataReadTimeout = 30 * time.Second

	// MetadataWriteTimeout bounds a single embedded-metadata write. Writes
	// rewrite the whole file, so large videos need more headroom than reads.
	MetadataWriteTimeout = 2 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Concurrency and capacity constants
const (
	// DefaultWorkers is the default number of files reconciled concurrently.
	// Processing is sequential unless the caller raises it.
	DefaultWorkers = 1

	// MaxWorkers caps the per-run worker pool.
	MaxWorkers = 16

	// OutputBufferSize is the buffer size for external tool output in bytes.
	// Large videos can carry sizable embedded previews in their tag dumps.
	OutputBufferSize = 1 << 20
)

// Sidecar naming constants describe the export tool's conventions.
const (
	// SidecarSuffix is the canonical sidecar filename suffix.
	SidecarSuffix = ".supplemental-metadata.json"

	// SidecarSuffixShort is the abbreviated suffix some exports emit.
	SidecarSuffixShort = ".suppl.json"

	// SidecarMinPrefix is the minimum shared prefix length required before a
	// truncated sidecar name is accepted as a match.
	SidecarMinPrefix = 10

	// SidecarMaxBase is the length at which the export tool truncates the
	// media portion of sidecar filenames.
	SidecarMaxBase = 46
)

// Cache constants
const (
	// DirCacheTTL is the time-to-live for cached directory listings used by
	// the sidecar locator's fallback matching.
	DirCacheTTL = 5 * time.Minute

	// DirCacheCleanupInterval is how often expired listings are evicted.
	DirCacheCleanupInterval = 10 * time.Minute
)

// Report naming constants
const (
	// DefaultReportDir is where run logs and backups land unless overridden.
	DefaultReportDir = "retake-logs"

	// ConflictsLogPattern names the per-run conflicts CSV.
	ConflictsLogPattern = "conflicts_%s.csv"

	// ErrorsLogPattern names the per-run errors CSV.
	ErrorsLogPattern = "errors_%s.csv"

	// SkippedLogPattern names the per-run skipped CSV.
	SkippedLogPattern = "skipped_%s.csv"

	// BackupDirName is the subdirectory holding pre-write metadata snapshots.
	BackupDirName = "backups"

	// BackupSuffix is appended to a media filename for its snapshot file.
	BackupSuffix = ".exif.backup"
)

// Format constants
const (
	// TimeFormatExif is the date-time layout used by embedded metadata tags.
	TimeFormatExif = "2006:01:02 15:04:05"

	// TimeFormatFilename is the format used in generated filenames
	TimeFormatFilename = "20060102-150405"
)
