package retake

import (
	"time"

	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/errors"
	"github.com/retakehq/retake/pkg/exiftool"
)

// Option is a function that configures a Retake instance.
type Option func(*config) error

// config holds the assembled engine configuration.
type config struct {
	dryRun         bool
	workers        int
	reportDir      string
	backup         bool
	modTimeSync    bool
	strictAltitude bool
	exiftoolPath   string
	toolTimeout    time.Duration
	client         exiftool.Client
}

// defaultConfig returns the baseline configuration.
func defaultConfig() *config {
	return &config{
		workers:     constants.DefaultWorkers,
		reportDir:   constants.DefaultReportDir,
		backup:      true,
		modTimeSync: true,
	}
}

// WithDryRun configures whether Inject stops after analysis instead of
// writing.
func WithDryRun(enabled bool) Option {
	return func(c *config) error {
		c.dryRun = enabled
		return nil
	}
}

// WithWorkers configures how many files are processed concurrently.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n < 1 || n > constants.MaxWorkers {
			return errors.NewValidationError("workers", n,
				"must be between 1 and 16")
		}
		c.workers = n
		return nil
	}
}

// WithReportDir configures where CSV logs and backups are written.
func WithReportDir(dir string) Option {
	return func(c *config) error {
		if dir != "" {
			c.reportDir = dir
		}
		return nil
	}
}

// WithBackup configures whether embedded tags are snapshotted before the
// first write to each file.
func WithBackup(enabled bool) Option {
	return func(c *config) error {
		c.backup = enabled
		return nil
	}
}

// WithModTimeSync configures whether file modification times are set to
// the reconciled capture time.
func WithModTimeSync(enabled bool) Option {
	return func(c *config) error {
		c.modTimeSync = enabled
		return nil
	}
}

// WithStrictAltitude configures whether altitude disagreement beyond
// tolerance is a conflict instead of a note.
func WithStrictAltitude(enabled bool) Option {
	return func(c *config) error {
		c.strictAltitude = enabled
		return nil
	}
}

// WithExiftoolPath configures an explicit ExifTool binary path instead
// of consulting PATH.
func WithExiftoolPath(path string) Option {
	return func(c *config) error {
		c.exiftoolPath = path
		return nil
	}
}

// WithToolTimeout bounds each per-file metadata read and write.
func WithToolTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.NewValidationError("timeout", d.String(),
				"must not be negative")
		}
		c.toolTimeout = d
		return nil
	}
}

// WithClient supplies a metadata tool client, replacing the managed
// ExifTool pool. The caller keeps ownership; Close will not touch it.
func WithClient(client exiftool.Client) Option {
	return func(c *config) error {
		c.client = client
		return nil
	}
}
