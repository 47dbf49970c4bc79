// Package retake reconciles Google Takeout sidecar metadata with the
// metadata embedded in the exported media files. It locates each file's
// JSON sidecar, compares capture time, location, people, favorite and
// description field by field, and injects whatever the embedded tags
// are missing while refusing to overwrite values that disagree.
package retake

import (
	"context"
	"fmt"

	"github.com/retakehq/retake/pkg/exiftool"
	"github.com/retakehq/retake/pkg/reconcile"
	"github.com/retakehq/retake/pkg/sidecar"
)

// Retake plans and applies metadata injection runs.
type Retake interface {
	// Analyze walks target and builds an injection plan for every media
	// file without writing anything.
	Analyze(ctx context.Context, target string) (*Result, error)

	// Apply executes the planned writes from a prior analysis and
	// returns the updated result.
	Apply(ctx context.Context, result *Result) (*Result, error)

	// Inject analyzes target and, unless dry-run is configured, applies
	// the resulting plans.
	Inject(ctx context.Context, target string) (*Result, error)

	// OnFileProcessed registers a callback invoked after each file's
	// outcome is known.
	OnFileProcessed(FileHook)

	// Close releases the metadata tool instances.
	Close() error
}

// retake is the internal implementation of the Retake interface.
type retake struct {
	config     *config
	client     exiftool.Client
	locator    *sidecar.Locator
	reconciler *reconcile.Reconciler
	hooks      *hooks

	// ownsClient is true when New started the tool pool itself and
	// Close should shut it down.
	ownsClient bool
}

// New creates a new Retake instance with the given options. Unless a
// client is supplied, it starts an ExifTool pool sized to the worker
// count, which fails fast when the binary is not installed.
func New(opts ...Option) (Retake, error) {
	r := &retake{
		config: defaultConfig(),
		hooks:  newHooks(),
	}

	if err := r.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	if r.config.client != nil {
		r.client = r.config.client
	} else {
		client, err := exiftool.New(r.toolOptions()...)
		if err != nil {
			return nil, err
		}
		r.client = client
		r.ownsClient = true
	}

	r.locator = sidecar.NewLocator()
	r.reconciler = reconcile.New(reconcile.WithStrictAltitude(r.config.strictAltitude))

	return r, nil
}

// options applies the given options to the configuration.
func (r *retake) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(r.config); err != nil {
			return err
		}
	}
	return nil
}

// toolOptions translates the engine configuration into ExifTool pool
// options.
func (r *retake) toolOptions() []exiftool.Option {
	opts := []exiftool.Option{
		exiftool.WithInstances(r.config.workers),
	}
	if r.config.exiftoolPath != "" {
		opts = append(opts, exiftool.WithBinaryPath(r.config.exiftoolPath))
	}
	if r.config.toolTimeout > 0 {
		opts = append(opts,
			exiftool.WithReadTimeout(r.config.toolTimeout),
			exiftool.WithWriteTimeout(r.config.toolTimeout),
		)
	}
	return opts
}

// OnFileProcessed registers a callback invoked after each file's outcome
// is known. Callbacks run on worker goroutines and must be safe for
// concurrent use.
func (r *retake) OnFileProcessed(fn FileHook) {
	r.hooks.OnFileProcessed(fn)
}

// Close shuts down the tool pool when this instance owns it.
func (r *retake) Close() error {
	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}
