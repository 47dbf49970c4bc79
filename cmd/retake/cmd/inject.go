package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/retakehq/retake"
	"github.com/retakehq/retake/internal/cmd/alerts"
	"github.com/retakehq/retake/internal/cmd/emoji"
	"github.com/retakehq/retake/internal/cmd/globals"
	"github.com/retakehq/retake/internal/cmd/output"
	"github.com/retakehq/retake/internal/deps"
	"github.com/retakehq/retake/pkg/plan"
)

// injectCmd represents the inject command.
var injectCmd = &cobra.Command{
	Use:     "inject <path>",
	GroupID: "core",
	Short:   "Inject sidecar metadata into media files",
	Long: `Reconcile each media file under <path> against its Takeout JSON sidecar
and inject the metadata the file is missing: capture time, GPS position,
people tags, favorite rating, and description.

Fields already present and matching are left untouched. Fields that
disagree between the file and its sidecar are reported as conflicts and
never overwritten; the remaining clean fields of the same file are still
injected. Per-file CSV reports (conflicts, errors, skipped files) are
written to the report directory, along with a plain-text snapshot of
each file's tags taken before its first write.

A dry run performs the exact same analysis and reporting without
modifying anything. Without --yes, apply mode previews the analysis
first and asks for confirmation; the confirmed run applies the plans
computed during the preview.`,
	Example: `  retake inject ~/Takeout/Google\ Photos   # preview, confirm, apply
  retake inject --dry-run ~/Takeout         # analyze and report only
  retake inject -y --workers 4 ~/Takeout    # apply without confirmation
  retake inject --no-mtime IMG_0001.HEIC    # single file, keep file times`,
	Args: cobra.ExactArgs(1),
	RunE: runInject,
}

func init() {
	rootCmd.AddCommand(injectCmd)

	injectCmd.Flags().Bool("dry-run", false, "Analyze and report without writing anything")
	injectCmd.Flags().BoolP("yes", "y", false, "Apply without asking for confirmation")
	injectCmd.Flags().Int("workers", 0, "Number of files processed concurrently")
	injectCmd.Flags().String("report-dir", "", "Directory for CSV reports and tag backups")
	injectCmd.Flags().Bool("no-backup", false, "Skip pre-write tag snapshots")
	injectCmd.Flags().Bool("no-mtime", false, "Leave file modification times alone")
	injectCmd.Flags().Bool("strict-altitude", false, "Treat altitude disagreement as a conflict")
}

// runInject executes the inject command.
func runInject(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	target := args[0]

	flags, err := globals.Parse(cmd)
	if err != nil {
		return err
	}
	format := output.DetectFormat(flags.Output)

	// Verdicts come from reading embedded tags, so ExifTool is required
	// even for a dry run. A configured binary path bypasses the PATH
	// probe; pool startup validates it instead.
	if viper.GetString("exiftool.path") == "" {
		if _, err := deps.Require(ctx, deps.Exiftool()); err != nil {
			printInstallHint(cmd.ErrOrStderr(), deps.Exiftool())
			return err
		}
	}

	opts, dryRun, yes, err := injectOptions(cmd)
	if err != nil {
		return err
	}

	engine, err := retake.New(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	// Per-file progress lines for humans; machine formats stay clean.
	if format == output.FormatTable && !flags.Quiet {
		out := cmd.OutOrStdout()
		verbose := flags.Verbose
		engine.OnFileProcessed(func(outcome retake.FileOutcome) {
			printOutcome(out, outcome, verbose)
		})
	}

	var result *retake.Result
	if dryRun || yes {
		result, err = engine.Inject(ctx, target)
	} else {
		result, err = confirmAndApply(ctx, cmd, engine, target)
	}
	if err != nil {
		return err
	}
	if result == nil {
		// Confirmation declined; nothing was modified.
		return nil
	}

	return printResult(cmd.OutOrStdout(), format, result)
}

// injectOptions assembles engine options from flags and configuration.
// Flags win over config file values, which win over environment defaults.
func injectOptions(cmd *cobra.Command) ([]retake.Option, bool, bool, error) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")

	workers := viper.GetInt("inject.workers")
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}

	reportDir := viper.GetString("report.dir")
	if cmd.Flags().Changed("report-dir") {
		reportDir, _ = cmd.Flags().GetString("report-dir")
	}

	backup := viper.GetBool("report.backup")
	if noBackup, _ := cmd.Flags().GetBool("no-backup"); noBackup {
		backup = false
	}

	mtime := viper.GetBool("inject.mtime")
	if noMtime, _ := cmd.Flags().GetBool("no-mtime"); noMtime {
		mtime = false
	}

	strictAltitude := viper.GetBool("reconcile.strict_altitude")
	if cmd.Flags().Changed("strict-altitude") {
		strictAltitude, _ = cmd.Flags().GetBool("strict-altitude")
	}

	opts := []retake.Option{
		retake.WithDryRun(dryRun),
		retake.WithWorkers(workers),
		retake.WithReportDir(reportDir),
		retake.WithBackup(backup),
		retake.WithModTimeSync(mtime),
		retake.WithStrictAltitude(strictAltitude),
	}
	if path := viper.GetString("exiftool.path"); path != "" {
		opts = append(opts, retake.WithExiftoolPath(path))
	}
	if timeout := viper.GetDuration("exiftool.timeout"); timeout > 0 {
		opts = append(opts, retake.WithToolTimeout(timeout))
	}

	return opts, dryRun, yes, nil
}

// confirmAndApply previews the analysis, asks for confirmation, and then
// applies the plans computed during the preview, so what was shown is
// exactly what is written. A declined confirmation returns a nil result.
func confirmAndApply(ctx context.Context, cmd *cobra.Command, engine retake.Retake, target string) (*retake.Result, error) {
	result, err := engine.Analyze(ctx, target)
	if err != nil {
		return nil, err
	}

	pending := 0
	for _, outcome := range result.Files {
		if !outcome.Skipped() && outcome.Plan.HasWrites() {
			pending++
		}
	}
	if pending == 0 {
		// Nothing to write; apply anyway to sync file times and flush
		// the CSV reports.
		return engine.Apply(ctx, result)
	}

	// The prompt goes to stderr so stdout stays clean for redirection.
	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "\n%d file(s) will receive metadata writes.\n", pending)
	fmt.Fprint(errOut, "Proceed with injection? (y/N): ")

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return engine.Apply(ctx, result)
	default:
		fmt.Fprintln(errOut, "Aborted. Nothing was modified.")
		return nil, nil
	}
}

// printOutcome renders one analyzed file as a status line. Files with
// nothing to report only appear in verbose mode.
func printOutcome(w io.Writer, outcome retake.FileOutcome, verbose bool) {
	path := outcome.File.Path

	switch {
	case outcome.Decision == plan.DecisionError:
		fmt.Fprintf(w, "%s %s: %s\n", emoji.Error, path, outcome.Plan.Err)
	case outcome.Skipped():
		if verbose {
			fmt.Fprintf(w, "%s %s: %s\n", emoji.Skipped, path, outcome.Reason)
		}
	case outcome.Decision == plan.DecisionConflict:
		fmt.Fprintf(w, "%s %s: %s\n", emoji.Warning, path, conflictSummary(outcome))
	case outcome.Decision == plan.DecisionInject:
		fmt.Fprintf(w, "%s %s: %d tag(s) to inject\n", emoji.Success, path, len(outcome.Plan.Writes))
	case outcome.Decision == plan.DecisionNoSidecar:
		if verbose {
			fmt.Fprintf(w, "%s %s: no sidecar\n", emoji.Skipped, path)
		}
	case outcome.Decision == plan.DecisionNoOp:
		if verbose {
			fmt.Fprintf(w, "%s %s: up to date\n", emoji.Info, path)
		}
	}
}

// conflictSummary names the disputed fields and what remains writable.
func conflictSummary(outcome retake.FileOutcome) string {
	fields := make([]string, 0, 2)
	for _, check := range outcome.Plan.Conflicts() {
		fields = append(fields, check.Field.String())
	}

	summary := "conflict on " + strings.Join(fields, ", ")
	if n := len(outcome.Plan.Writes); n > 0 {
		summary += fmt.Sprintf(" (%d clean tag(s) still injected)", n)
	}
	return summary
}

// printResult renders the run summary in the requested format.
func printResult(w io.Writer, format output.Format, result *retake.Result) error {
	if format == output.FormatJSON || format == output.FormatYAML {
		return output.NewFormatter(format).Format(w, result)
	}
	return printSummaryTable(w, result)
}

// printSummaryTable renders the human-readable run summary.
func printSummaryTable(w io.Writer, result *retake.Result) error {
	fmt.Fprintln(w)
	if result.DryRun {
		fmt.Fprintln(w, "Dry run: nothing was modified.")
	}

	injectedLabel := "Injected"
	if result.DryRun {
		injectedLabel = "To inject"
	}

	data := output.Data{
		Headers: []string{"Outcome", "Files"},
		Rows: [][]string{
			{injectedLabel, strconv.Itoa(result.Counts.Injected)},
			{"Conflicts", strconv.Itoa(result.Counts.Conflicts)},
			{"Already complete", strconv.Itoa(result.Counts.Complete)},
			{"No sidecar", strconv.Itoa(result.Counts.NoSidecar)},
			{"Skipped", strconv.Itoa(result.Counts.Skipped)},
			{"Errors", strconv.Itoa(result.Counts.Errors)},
			{"Total", strconv.Itoa(result.Counts.Total)},
		},
		ColumnAlignment: []output.Align{output.AlignLeft, output.AlignRight},
	}
	if err := output.NewFormatter(output.FormatTable).Format(w, data); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nCompleted in %s\n", result.Duration.Round(time.Millisecond))

	reports := []struct{ label, path string }{
		{"Conflicts report", result.Reports.Conflicts},
		{"Errors report", result.Reports.Errors},
		{"Skipped report", result.Reports.Skipped},
	}
	for _, r := range reports {
		if r.path != "" {
			fmt.Fprintf(w, "%s: %s\n", r.label, r.path)
		}
	}

	return nil
}

// printInstallHint shows per-OS install instructions for a missing tool.
func printInstallHint(w io.Writer, dep deps.Dependency) {
	alert := alerts.NewError(dep.DisplayName + " is required but was not found.")
	if hint, ok := dep.InstallHints[runtime.GOOS]; ok {
		alert.WithDetails("Install: " + hint)
	}
	if dep.InstallURL != "" {
		alert.WithDetails("See: " + dep.InstallURL)
	}

	fmt.Fprintln(w)
	_ = alert.Write(w)
}
