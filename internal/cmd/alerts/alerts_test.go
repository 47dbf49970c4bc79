package alerts

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestAlertString(t *testing.T) {
	alert := NewError("ExifTool is required but was not found")
	if got := alert.String(); !strings.Contains(got, "ExifTool is required") {
		t.Errorf("String() = %q, want it to carry the message", got)
	}

	withErr := NewWarning("could not set file times").WithError(errors.New("permission denied"))
	if got := withErr.String(); !strings.Contains(got, "permission denied") {
		t.Errorf("String() = %q, want it to include the wrapped error", got)
	}
}

func TestAlertWriteDetails(t *testing.T) {
	alert := NewError("ExifTool is required but was not found").
		WithDetails("Install: apt install libimage-exiftool-perl", "See: https://exiftool.org")

	var buf bytes.Buffer
	if err := alert.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Install: apt install") {
		t.Errorf("Write() output missing detail line:\n%s", out)
	}
	if !strings.HasPrefix(out, LevelError.Icon()) {
		t.Errorf("Write() output should start with the level icon:\n%s", out)
	}
	if got := strings.Count(out, "\n"); got != 3 {
		t.Errorf("Write() produced %d lines, want 3", got)
	}
}

func TestLevelStrings(t *testing.T) {
	cases := map[Level]string{
		LevelError:   "error",
		LevelWarning: "warning",
		LevelInfo:    "info",
		LevelSuccess: "success",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
		if level.Icon() == "" {
			t.Errorf("Level(%d).Icon() is empty", level)
		}
	}
}
