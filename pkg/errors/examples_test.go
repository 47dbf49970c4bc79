package errors_test

import (
	"fmt"

	"github.com/retakehq/retake/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	// A missing sidecar is a skip, not a failure
	err := errors.NewSidecarError("/photos/IMG_0001.HEIC", "", errors.ErrNoSidecar)

	if errors.IsNoSidecar(err) {
		fmt.Println("No sidecar - skipping file")
	}

	// Output: No sidecar - skipping file
}

// Example_parseError demonstrates sidecar parse error handling.
func Example_parseError() {
	err := &errors.ParseError{
		Format:  "json",
		File:    "IMG_0001.HEIC.supplemental-metadata.json",
		Message: "unexpected end of JSON input",
	}

	fmt.Println(err.Error())

	// Output: parse error in json file IMG_0001.HEIC.supplemental-metadata.json: unexpected end of JSON input
}

// Example_processError shows external tool error handling.
func Example_processError() {
	err := &errors.ProcessError{
		Operation: "write metadata",
		Command:   "exiftool",
		ExitCode:  1,
		Err:       fmt.Errorf("exit status 1"),
	}

	fmt.Println(err.Error())

	// Output: process error during write metadata (command: exiftool): exit status 1
}

// Example_errorWrapping demonstrates error wrapping patterns.
func Example_errorWrapping() {
	originalErr := fmt.Errorf("permission denied")

	// Wrap with IO error for the failing path
	ioErr := errors.WrapIO("chtimes", "/photos/IMG_0001.HEIC", originalErr)

	fmt.Println(ioErr.Error())

	// Output: IO error during chtimes of /photos/IMG_0001.HEIC: permission denied
}

// Example_validationError shows input validation errors.
func Example_validationError() {
	latitude := 120.5
	if latitude > 90 {
		err := &errors.ValidationError{
			Field:   "latitude",
			Value:   latitude,
			Message: "must be between -90 and 90",
		}
		fmt.Println(err.Error())
	}

	// Output: validation failed for field latitude: must be between -90 and 90
}
