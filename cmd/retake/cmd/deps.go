package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/retakehq/retake/internal/cmd/alerts"
	"github.com/retakehq/retake/internal/cmd/emoji"
	"github.com/retakehq/retake/internal/cmd/globals"
	"github.com/retakehq/retake/internal/cmd/output"
	"github.com/retakehq/retake/internal/deps"
	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/errors"
)

// depsCmd represents the deps command.
var depsCmd = &cobra.Command{
	Use:     "deps",
	GroupID: "management",
	Short:   "Manage external dependencies",
	Long: `Check the external tools retake shells out to.

Every metadata read and write runs through ExifTool. This command helps
you verify it is installed, new enough, and reachable in your PATH.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// depsCheckCmd represents the deps check subcommand.
var depsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check dependency status",
	Long: `Check the availability of the external tools retake requires.

For each dependency, it shows:

  - Whether it's installed
  - The installed version (if detectable)
  - Installation path
  - Installation instructions if missing`,
	Example: `  retake deps check                # Check all dependencies
  retake deps check --output json  # JSON output`,
	RunE: runDepsCheck,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.AddCommand(depsCheckCmd)
}

// DependencyDetail combines a dependency definition with its probe result.
type DependencyDetail struct {
	Dependency deps.Dependency `json:"dependency" yaml:"dependency"`
	Status     deps.Status     `json:"status" yaml:"status"`
}

// CheckResults aggregates all dependency statuses.
type CheckResults struct {
	Dependencies []DependencyDetail `json:"dependencies" yaml:"dependencies"`
	Total        int                `json:"total" yaml:"total"`
	Available    int                `json:"available" yaml:"available"`
	Missing      int                `json:"missing" yaml:"missing"`
}

// runDepsCheck executes the dependency check command.
func runDepsCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	results := collectDependencyStatuses(ctx)

	flags, err := globals.Parse(cmd)
	if err != nil {
		return err
	}

	if err := displayResults(results, flags); err != nil {
		return err
	}

	if results.Missing > 0 {
		return &errors.ValidationError{
			Field:   "dependencies",
			Message: "required dependencies are missing",
		}
	}

	return nil
}

// collectDependencyStatuses probes every dependency and tallies the results.
func collectDependencyStatuses(ctx context.Context) *CheckResults {
	all := deps.All()
	results := &CheckResults{
		Dependencies: make([]DependencyDetail, 0, len(all)),
	}

	for _, dep := range all {
		probeCtx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
		status := deps.Check(probeCtx, dep)
		cancel()
		results.Dependencies = append(results.Dependencies, DependencyDetail{
			Dependency: dep,
			Status:     status,
		})

		results.Total++
		if status.Available {
			results.Available++
		} else {
			results.Missing++
		}
	}

	return results
}

// displayResults shows dependency check results in the requested format.
func displayResults(results *CheckResults, flags *globals.Flags) error {
	format := output.DetectFormat(flags.Output)
	formatter := output.NewFormatter(format)

	// Structured output carries the entire results object.
	if format == output.FormatJSON || format == output.FormatYAML {
		return formatter.Format(os.Stdout, results)
	}

	return displayTableResults(results)
}

// displayTableResults shows results as a status line plus a detail table.
func displayTableResults(results *CheckResults) error {
	status := alerts.NewSuccess("All required dependencies are available.")
	if results.Missing > 0 {
		status = alerts.NewError("Required dependencies are missing. Install them or injection will fail.")
	}

	fmt.Println()
	if err := status.Write(os.Stdout); err != nil {
		return err
	}
	fmt.Println()

	tableData := output.Data{
		Headers: []string{"Dependency", "Status", "Version", "Path", "Purpose"},
		Rows:    buildDependencyRows(results),
	}

	formatter := output.NewFormatter(output.FormatTable)
	if err := formatter.Format(os.Stdout, tableData); err != nil {
		return err
	}

	displayMissingDependencyInfo(results)

	return nil
}

// buildDependencyRows creates one table row per dependency.
func buildDependencyRows(results *CheckResults) [][]string {
	rows := make([][]string, 0, len(results.Dependencies))

	for _, dep := range results.Dependencies {
		statusIcon := emoji.Success
		statusText := "Available"
		if !dep.Status.Available {
			statusIcon = emoji.Error
			statusText = "Missing"
		}

		version := "-"
		if dep.Status.Version != "" {
			version = dep.Status.Version
		}

		path := "-"
		if dep.Status.Path != "" {
			path = dep.Status.Path
		}

		purpose := "-"
		if dep.Dependency.Description != "" {
			purpose = dep.Dependency.Description
		}

		rows = append(rows, []string{
			dep.Dependency.DisplayName,
			statusIcon + " " + statusText,
			version,
			path,
			purpose,
		})
	}

	return rows
}

// displayMissingDependencyInfo shows installation instructions for missing
// dependencies.
func displayMissingDependencyInfo(results *CheckResults) {
	for _, dep := range results.Dependencies {
		if dep.Status.Available {
			continue
		}

		alert := alerts.NewWarning("Missing Dependency: " + dep.Dependency.DisplayName)
		if dep.Status.Error != "" {
			alert.WithDetails("Detail: " + dep.Status.Error)
		}
		if hint, ok := dep.Dependency.InstallHints[runtime.GOOS]; ok {
			alert.WithDetails("Install: " + hint)
		}
		if dep.Dependency.InstallURL != "" {
			alert.WithDetails("See: " + dep.Dependency.InstallURL)
		}

		fmt.Println()
		_ = alert.Write(os.Stdout)
	}
}
