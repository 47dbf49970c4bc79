// Package main provides the entry point for the retake CLI tool.
package main

import (
	"github.com/retakehq/retake/cmd/retake/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cmd.Execute(version, commit, date, builtBy)
}
