package retake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"golang.org/x/sync/errgroup"

	"github.com/retakehq/retake/internal/report"
	"github.com/retakehq/retake/pkg/errors"
	"github.com/retakehq/retake/pkg/logging"
	"github.com/retakehq/retake/pkg/media"
	"github.com/retakehq/retake/pkg/metadata"
	"github.com/retakehq/retake/pkg/plan"
	"github.com/retakehq/retake/pkg/sidecar"
)

// Inject runs the full pipeline against target: analyze every media
// file, then apply the resulting plans unless the engine is in dry-run
// mode. Reports are written either way.
func (r *retake) Inject(ctx context.Context, target string) (*Result, error) {
	result, err := r.Analyze(ctx, target)
	if err != nil {
		return nil, err
	}

	if r.config.dryRun {
		if err := r.writeReports(ctx, result); err != nil {
			return result, err
		}
		return result, nil
	}

	return r.Apply(ctx, result)
}

// Analyze walks target and computes an injection plan for every media
// file found. Nothing is modified: no tags are written, no file times
// change, and no reports are produced. The returned result can be
// inspected and then handed to Apply.
func (r *retake) Analyze(ctx context.Context, target string) (*Result, error) {
	runID := uuid.NewString()
	startedAt := utc.Now()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	files, preDecided, err := discover(target)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("target", target).
		Int("files", len(files)).
		Int("workers", r.config.workers).
		Msg("Analyzing media files")

	acc := newAccumulator(len(files) + len(preDecided))
	for _, outcome := range preDecided {
		acc.record(outcome)
		r.hooks.fireFileProcessed(outcome)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.workers)
	for _, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome := r.processFile(gctx, file)
			acc.record(outcome)
			r.hooks.fireFileProcessed(outcome)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Target:    target,
		DryRun:    true,
		StartedAt: startedAt,
		Files:     acc.sorted(),
	}
	result.Duration = time.Since(startedAt.Time)
	result.recount()

	logger.Info().
		Int("total", result.Counts.Total).
		Int("inject", result.Counts.Injected).
		Int("complete", result.Counts.Complete).
		Int("conflicts", result.Counts.Conflicts).
		Int("no_sidecar", result.Counts.NoSidecar).
		Int("skipped", result.Counts.Skipped).
		Int("errors", result.Counts.Errors).
		Dur("duration", result.Duration).
		Msg("Analysis complete")

	return result, nil
}

// Apply executes the plans in result: backs up and writes tags for
// files with pending writes, syncs filesystem times, and writes the CSV
// reports. The result is updated in place and returned. Per-file
// failures downgrade that file to an error outcome; only context
// cancellation or report I/O aborts the run.
func (r *retake) Apply(ctx context.Context, result *Result) (*Result, error) {
	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.FromContext(ctx)

	reporter := report.NewWriter(r.config.reportDir, result.StartedAt)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.workers)
	for i := range result.Files {
		if gctx.Err() != nil {
			break
		}
		outcome := &result.Files[i]
		if !r.needsApply(outcome) {
			continue
		}
		g.Go(func() error {
			r.applyFile(gctx, reporter, outcome)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.DryRun = false
	result.Duration = time.Since(result.StartedAt.Time)
	result.recount()

	if err := r.writeReports(ctx, result); err != nil {
		return result, err
	}

	logger.Info().
		Int("total", result.Counts.Total).
		Int("injected", result.Counts.Injected).
		Int("conflicts", result.Counts.Conflicts).
		Int("errors", result.Counts.Errors).
		Dur("duration", result.Duration).
		Msg("Injection complete")

	return result, nil
}

// processFile runs the read-only pipeline for one file: locate and
// parse the sidecar, read the embedded tags, reconcile field by field,
// and build the plan. Every failure is contained in the outcome.
func (r *retake) processFile(ctx context.Context, file media.File) FileOutcome {
	logger := logging.FromContext(ctx)
	outcome := FileOutcome{File: file}

	sidecarPath, err := r.locator.Locate(file.Path)
	if err != nil {
		if errors.IsNoSidecar(err) {
			outcome.Decision = plan.DecisionNoSidecar
			logger.Debug().Str("path", file.Path).Msg("No sidecar found")
			return outcome
		}
		return errorOutcome(outcome, err)
	}
	outcome.Sidecar = sidecarPath

	sc, err := sidecar.Load(sidecarPath)
	if err != nil {
		return errorOutcome(outcome, err)
	}

	tags, err := r.client.ReadTags(ctx, file.Path)
	if err != nil {
		return errorOutcome(outcome, err)
	}

	emb := metadata.NormalizeEmbedded(tags, file.Format)
	checks := r.reconciler.Reconcile(sc, emb, file.Format)
	outcome.Plan = plan.Build(sc, emb, file.Format, checks)
	outcome.Decision = outcome.Plan.Decision

	logger.Debug().
		Str("path", file.Path).
		Str("decision", outcome.Decision.String()).
		Int("writes", len(outcome.Plan.Writes)).
		Msg("Planned file")

	return outcome
}

// needsApply reports whether Apply has any work for the outcome: tag
// writes, or a filesystem-time sync when that is enabled. Conflicted
// files still qualify so their clean fields get written.
func (r *retake) needsApply(outcome *FileOutcome) bool {
	p := outcome.Plan
	if p == nil || outcome.Skipped() {
		return false
	}
	switch outcome.Decision {
	case plan.DecisionInject, plan.DecisionConflict, plan.DecisionNoOp:
	default:
		return false
	}
	return p.HasWrites() || (r.config.modTimeSync && p.ModTime != nil)
}

// applyFile executes one plan against the filesystem. The write order
// is fixed: refuse read-only files, snapshot the current tags, write
// the planned tags, then sync the file times. A failure at any stage
// downgrades the outcome to an error and leaves later stages undone.
func (r *retake) applyFile(ctx context.Context, reporter *report.Writer, outcome *FileOutcome) {
	logger := logging.FromContext(ctx)
	p := outcome.Plan

	if readOnly(outcome.File.Path) {
		outcome.Reason = "read-only file"
		logger.Warn().Str("path", outcome.File.Path).Msg("Skipping read-only file")
		return
	}

	if p.HasWrites() {
		if r.config.backup {
			tags, err := r.client.ReadTags(ctx, outcome.File.Path)
			if err != nil {
				failOutcome(outcome, err)
				return
			}
			backupPath, err := reporter.Backup(outcome.File.Path, tags)
			if err != nil {
				failOutcome(outcome, err)
				return
			}
			outcome.Backup = backupPath
		}

		if err := r.client.WriteTags(ctx, outcome.File.Path, p.Writes); err != nil {
			failOutcome(outcome, err)
			return
		}
		outcome.Written = true
	}

	if r.config.modTimeSync && p.ModTime != nil {
		if err := os.Chtimes(outcome.File.Path, p.ModTime.Time, p.ModTime.Time); err != nil {
			logger.Warn().Err(err).Str("path", outcome.File.Path).Msg("Could not set file times")
		} else {
			outcome.TimeSynced = true
		}
	}

	if outcome.Written {
		logger.Info().
			Str("path", outcome.File.Path).
			Int("tags", len(p.Writes)).
			Msg("Metadata injected")
	}
}

// writeReports persists the conflict, error, and skip CSVs and records
// their paths on the result. Files with no rows produce no CSV.
func (r *retake) writeReports(ctx context.Context, result *Result) error {
	logger := logging.FromContext(ctx)
	reporter := report.NewWriter(r.config.reportDir, result.StartedAt)

	conflictsPath, err := reporter.WriteConflicts(result.conflictRows())
	if err != nil {
		return err
	}
	errorsPath, err := reporter.WriteErrors(result.errorRows())
	if err != nil {
		return err
	}
	skippedPath, err := reporter.WriteSkipped(result.skipRows())
	if err != nil {
		return err
	}

	result.Reports = ReportPaths{
		Conflicts: conflictsPath,
		Errors:    errorsPath,
		Skipped:   skippedPath,
	}

	for name, path := range map[string]string{
		"conflicts": conflictsPath,
		"errors":    errorsPath,
		"skipped":   skippedPath,
	} {
		if path != "" {
			logger.Info().Str("report", name).Str("path", path).Msg("Report written")
		}
	}

	return nil
}

// discover resolves target into the list of media files to process. A
// directory is walked recursively; a single file is taken as-is. RAW
// and low-resolution companion files become pre-decided unsupported
// outcomes so the summary accounts for them, and unreadable entries
// become error outcomes. Sidecars and other non-media files are
// ignored.
func discover(target string) ([]media.File, []FileOutcome, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, nil, errors.WrapIO("stat", target, err)
	}

	if !info.IsDir() {
		file := media.NewFile(target)
		if !file.Supported() {
			return nil, []FileOutcome{unsupportedOutcome(file)}, nil
		}
		return []media.File{file}, nil, nil
	}

	var files []media.File
	var preDecided []FileOutcome

	walkErr := godirwalk.Walk(target, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsRegular() {
				return nil
			}
			file := media.NewFile(path)
			switch {
			case file.Supported():
				files = append(files, file)
			case media.SkippedExtension(path):
				preDecided = append(preDecided, unsupportedOutcome(file))
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			preDecided = append(preDecided, errorOutcome(FileOutcome{File: media.NewFile(path)}, err))
			return godirwalk.SkipNode
		},
	})
	if walkErr != nil {
		return nil, nil, errors.WrapIO("walk", target, walkErr)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, preDecided, nil
}

// unsupportedOutcome records a file the engine refuses to touch.
func unsupportedOutcome(file media.File) FileOutcome {
	return FileOutcome{
		File:     file,
		Decision: plan.DecisionUnsupported,
		Reason:   skipReason(file.Path),
	}
}

// skipReason names why a file was skipped, using the extension the
// user sees on disk.
func skipReason(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if media.SkippedExtension(path) {
		return fmt.Sprintf("RAW/LRV format (%s)", ext)
	}
	return fmt.Sprintf("unsupported extension (%s)", ext)
}

// errorOutcome finalizes an outcome whose pipeline failed.
func errorOutcome(outcome FileOutcome, err error) FileOutcome {
	outcome.Decision = plan.DecisionError
	outcome.Plan = &plan.Plan{Decision: plan.DecisionError, Err: err.Error()}
	return outcome
}

// failOutcome downgrades an analyzed outcome whose apply stage failed.
func failOutcome(outcome *FileOutcome, err error) {
	outcome.Decision = plan.DecisionError
	if outcome.Plan == nil {
		outcome.Plan = &plan.Plan{}
	}
	outcome.Plan.Decision = plan.DecisionError
	outcome.Plan.Err = err.Error()
}

// readOnly reports whether the current user lacks write permission on
// the file. Permission bits only; exotic ACL denials surface later as
// write errors.
func readOnly(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0o200 == 0
}

// accumulator collects outcomes from worker goroutines.
type accumulator struct {
	mu       sync.Mutex
	outcomes []FileOutcome
}

func newAccumulator(capacity int) *accumulator {
	return &accumulator{outcomes: make([]FileOutcome, 0, capacity)}
}

func (a *accumulator) record(outcome FileOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, outcome)
}

// sorted returns the outcomes ordered by path so results are
// deterministic regardless of worker scheduling.
func (a *accumulator) sorted() []FileOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	sort.Slice(a.outcomes, func(i, j int) bool {
		return a.outcomes[i].File.Path < a.outcomes[j].File.Path
	})
	return a.outcomes
}
