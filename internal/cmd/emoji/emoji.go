// Package emoji provides symbol constants for CLI output.
// These symbols keep status indicators consistent across commands.
package emoji

const (
	// Success marks completed operations: files updated, checks passed.
	Success = "✓"

	// Error marks failures: unreadable files, failed writes, missing tools.
	Error = "✗"

	// Warning marks non-fatal findings such as metadata conflicts.
	Warning = "!"

	// Skipped marks files deliberately left alone (RAW formats, read-only).
	Skipped = "-"

	// Info marks neutral informational lines.
	Info = "i"
)
