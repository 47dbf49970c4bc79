// Package exiftool wraps the external exiftool binary behind a small
// read/write interface. A pool of long-running exiftool processes (via
// github.com/barasher/go-exiftool's stay_open mode) avoids paying
// process startup for every file.
package exiftool

import (
	"context"
	"fmt"
	"time"

	exif "github.com/barasher/go-exiftool"

	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/errors"
	"github.com/retakehq/retake/pkg/metadata"
)

// Client reads and writes embedded metadata tags. Implementations must
// be safe for concurrent use.
type Client interface {
	// ReadTags extracts the file's tags as exiftool reports them.
	ReadTags(ctx context.Context, path string) (metadata.Tags, error)

	// WriteTags applies tag writes to the file. Repeated names write a
	// multi-valued tag. The operation is all-or-nothing per file.
	WriteTags(ctx context.Context, path string, tags []metadata.Tag) error

	// Close terminates the underlying exiftool processes.
	Close() error
}

type options struct {
	binaryPath   string
	instances    int
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Option configures the client.
type Option func(*options)

// WithBinaryPath points the client at a specific exiftool binary
// instead of the one on PATH.
func WithBinaryPath(path string) Option {
	return func(o *options) {
		o.binaryPath = path
	}
}

// WithInstances sets how many exiftool processes back the client.
// Matching the worker count lets tool calls overlap.
func WithInstances(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.instances = n
		}
	}
}

// WithReadTimeout bounds a single tag extraction.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// WithWriteTimeout bounds a single tag write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// pool is the production Client. Each instance owns one stay_open
// exiftool process; instances are leased per operation.
type pool struct {
	idle chan *exif.Exiftool
	all  []*exif.Exiftool
	opts options
}

// New starts the exiftool process pool. Numeric output is enabled so
// coordinates and ratings come back as raw values rather than
// print-converted strings.
func New(opts ...Option) (Client, error) {
	o := options{
		instances:    1,
		readTimeout:  constants.MetadataReadTimeout,
		writeTimeout: constants.MetadataWriteTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &pool{
		idle: make(chan *exif.Exiftool, o.instances),
		opts: o,
	}
	for i := 0; i < o.instances; i++ {
		tool, err := newInstance(o)
		if err != nil {
			_ = p.Close()
			return nil, &errors.DependencyError{
				Dependency: "exiftool",
				Message:    fmt.Sprintf("starting exiftool: %v", err),
			}
		}
		p.all = append(p.all, tool)
		p.idle <- tool
	}
	return p, nil
}

func newInstance(o options) (*exif.Exiftool, error) {
	initOpts := []func(*exif.Exiftool) error{
		exif.NoPrintConversion(),
		exif.Buffer(make([]byte, 0, constants.OutputBufferSize), constants.OutputBufferSize),
	}
	if o.binaryPath != "" {
		initOpts = append(initOpts, exif.SetExiftoolBinaryPath(o.binaryPath))
	}
	return exif.NewExiftool(initOpts...)
}

// ReadTags extracts the file's tags.
func (p *pool) ReadTags(ctx context.Context, path string) (metadata.Tags, error) {
	var tags metadata.Tags
	err := p.withInstance(ctx, "read", p.opts.readTimeout, func(tool *exif.Exiftool) error {
		fms := tool.ExtractMetadata(path)
		if len(fms) == 0 {
			return errors.NewProcessError("read", "exiftool", "no metadata returned", nil)
		}
		if fms[0].Err != nil {
			return errors.WrapProcess("read", "exiftool", fms[0].Err)
		}
		tags = metadata.Tags(fms[0].Fields)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// WriteTags applies the writes in a single exiftool invocation, which
// keeps the per-file write atomic from the engine's point of view.
func (p *pool) WriteTags(ctx context.Context, path string, tags []metadata.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	return p.withInstance(ctx, "write", p.opts.writeTimeout, func(tool *exif.Exiftool) error {
		fm := exif.EmptyFileMetadata()
		fm.File = path

		for name, values := range groupValues(tags) {
			if len(values) == 1 {
				fm.SetString(name, values[0])
			} else {
				fm.SetStrings(name, values)
			}
		}

		fms := []exif.FileMetadata{fm}
		tool.WriteMetadata(fms)
		if fms[0].Err != nil {
			return errors.WrapProcess("write", "exiftool", fms[0].Err)
		}
		return nil
	})
}

// Close shuts down every pooled process and reports the first failure.
func (p *pool) Close() error {
	var firstErr error
	for _, tool := range p.all {
		if err := tool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.all = nil
	return firstErr
}

// withInstance leases a process, runs op against it with a deadline,
// and returns the lease once op completes. A timed-out op keeps its
// instance out of the pool until it actually finishes, so a wedged
// process never serves another file.
func (p *pool) withInstance(ctx context.Context, operation string, timeout time.Duration, op func(*exif.Exiftool) error) error {
	var tool *exif.Exiftool
	select {
	case tool = <-p.idle:
	case <-ctx.Done():
		return mapContextErr(ctx.Err(), operation, timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() { p.idle <- tool }()
		done <- op(tool)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return mapContextErr(ctx.Err(), operation, timeout)
	}
}

func mapContextErr(err error, operation string, timeout time.Duration) error {
	if err == context.DeadlineExceeded {
		return errors.NewTimeoutError(operation, timeout.String(), "exiftool did not respond")
	}
	return errors.ErrCanceled
}

// groupValues collects values by tag name, preserving the order values
// appear for each name.
func groupValues(tags []metadata.Tag) map[string][]string {
	grouped := make(map[string][]string, len(tags))
	for _, t := range tags {
		grouped[t.Name] = append(grouped[t.Name], t.Value)
	}
	return grouped
}
