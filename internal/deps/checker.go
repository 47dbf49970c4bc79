// Package deps verifies the external tools retake shells out to.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/retakehq/retake/pkg/errors"
)

// Dependency describes an external tool required at runtime.
type Dependency struct {
	Name         string            `json:"name" yaml:"name"`
	DisplayName  string            `json:"display_name" yaml:"display_name"`
	Commands     []string          `json:"-" yaml:"-"` // binary names probed in PATH order
	VersionArgs  []string          `json:"-" yaml:"-"` // arguments that print the version
	MinVersion   string            `json:"min_version,omitempty" yaml:"min_version,omitempty"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	InstallURL   string            `json:"install_url,omitempty" yaml:"install_url,omitempty"`
	InstallHints map[string]string `json:"-" yaml:"-"` // per-GOOS install commands
}

// Status reports the outcome of probing for a dependency.
type Status struct {
	Available bool   `json:"available" yaml:"available"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Exiftool describes the ExifTool binary every metadata read and write
// runs through.
func Exiftool() Dependency {
	return Dependency{
		Name:        "exiftool",
		DisplayName: "ExifTool",
		Commands:    []string{"exiftool"},
		VersionArgs: []string{"-ver"},
		MinVersion:  "8.36", // first release with -stay_open
		Description: "Reads and writes EXIF, IPTC, XMP and QuickTime metadata",
		InstallURL:  "https://exiftool.org/install.html",
		InstallHints: map[string]string{
			"darwin":  "brew install exiftool",
			"linux":   "apt install libimage-exiftool-perl",
			"windows": "winget install exiftool",
		},
	}
}

// All returns every dependency retake relies on.
func All() []Dependency {
	return []Dependency{Exiftool()}
}

// Check probes PATH for the dependency and verifies its version.
// It tries each command in order and reports on the first one found.
func Check(ctx context.Context, dep Dependency) Status {
	var status Status

	for _, name := range dep.Commands {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}

		status.Available = true
		status.Path = path

		version, err := probeVersion(ctx, name, dep.VersionArgs)
		if err != nil {
			status.Error = fmt.Sprintf("found %s but could not detect version: %v", name, err)
			return status
		}
		status.Version = version

		if dep.MinVersion != "" && !meetsMinVersion(version, dep.MinVersion) {
			status.Error = fmt.Sprintf("found %s %s but %s or later is required", name, version, dep.MinVersion)
		}
		return status
	}

	if len(dep.Commands) > 0 {
		status.Error = fmt.Sprintf("%s not found in PATH (tried: %s)", dep.DisplayName, strings.Join(dep.Commands, ", "))
	}
	return status
}

// Require checks the dependency and converts an unavailable result into an
// error suitable for aborting a run.
func Require(ctx context.Context, dep Dependency) (Status, error) {
	status := Check(ctx, dep)
	if !status.Available {
		return status, &errors.DependencyError{
			Dependency: dep.Name,
			Message:    status.Error,
		}
	}
	return status, nil
}

// probeVersion runs the tool's version command and extracts a version number
// from its output.
func probeVersion(ctx context.Context, name string, args []string) (string, error) {
	if len(args) == 0 {
		args = []string{"--version"}
	}

	//nolint:gosec // name comes from Dependency.Commands, not user input
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}

	version := extractVersion(string(out))
	if version == "" {
		return "", fmt.Errorf("no version number in output %q", strings.TrimSpace(string(out)))
	}
	return version, nil
}

var versionPattern = regexp.MustCompile(`v?(\d+(?:\.\d+)+)`)

// extractVersion pulls the first dotted version number out of command output.
func extractVersion(output string) string {
	matches := versionPattern.FindStringSubmatch(output)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// meetsMinVersion compares dotted version strings component by component.
func meetsMinVersion(detected, required string) bool {
	detectedParts := strings.Split(strings.TrimPrefix(detected, "v"), ".")
	requiredParts := strings.Split(strings.TrimPrefix(required, "v"), ".")

	for i := 0; i < len(requiredParts); i++ {
		if i >= len(detectedParts) {
			// Shorter version with equal leading parts, e.g. 12 vs 12.1.
			return false
		}

		d, derr := strconv.Atoi(detectedParts[i])
		r, rerr := strconv.Atoi(requiredParts[i])
		if derr != nil || rerr != nil {
			// Non-numeric component, fall back to string comparison.
			if detectedParts[i] != requiredParts[i] {
				return detectedParts[i] > requiredParts[i]
			}
			continue
		}

		if d != r {
			return d > r
		}
	}
	return true
}
