package constants_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/retakehq/retake/pkg/constants"
)

// Example demonstrates using constants for common file operations
func Example() {
	// Create directory with standard permissions
	dir := filepath.Join(os.TempDir(), "retake-example")
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	// Create file with standard permissions
	file := filepath.Join(dir, "report.csv")
	if err := os.WriteFile(file, []byte("file,reason\n"), constants.FilePermissions); err != nil {
		panic(err)
	}

	fmt.Printf("Created dir with %o permissions\n", constants.DirPermissions)
	fmt.Printf("Created file with %o permissions\n", constants.FilePermissions)
	// Output:
	// Created dir with 755 permissions
	// Created file with 644 permissions
}

// Example_tolerances demonstrates the reconciliation tolerance constants
func Example_tolerances() {
	sidecar := time.Unix(1650000000, 0).UTC()
	embedded := sidecar.Add(-24 * time.Hour) // full-day timezone shift

	diff := sidecar.Sub(embedded)
	if diff < 0 {
		diff = -diff
	}

	fmt.Printf("Date tolerance: %v\n", constants.DateTolerance)
	fmt.Printf("24h shift within tolerance: %v\n", diff <= constants.DateTolerance)
	fmt.Printf("Coordinate epsilon: %v degrees\n", constants.CoordinateEpsilon)
	// Output:
	// Date tolerance: 25h0m0s
	// 24h shift within tolerance: true
	// Coordinate epsilon: 1e-05 degrees
}

// Example_sidecarNaming shows the export tool's sidecar naming conventions
func Example_sidecarNaming() {
	media := "IMG_0001.HEIC"

	fmt.Println(media + constants.SidecarSuffix)
	fmt.Println(media + constants.SidecarSuffixShort)
	// Output:
	// IMG_0001.HEIC.supplemental-metadata.json
	// IMG_0001.HEIC.suppl.json
}
