// Package report persists run outcomes: CSV logs of conflicts, errors and
// skipped files, plus pre-write snapshots of embedded metadata.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/utc"

	"github.com/retakehq/retake/pkg/constants"
	"github.com/retakehq/retake/pkg/errors"
	"github.com/retakehq/retake/pkg/metadata"
)

// ConflictRow is one conflicting field on one file.
type ConflictRow struct {
	File     string `json:"file" yaml:"file"`
	Field    string `json:"field" yaml:"field"`
	Embedded string `json:"embedded_value" yaml:"embedded_value"`
	Sidecar  string `json:"sidecar_value" yaml:"sidecar_value"`
	Note     string `json:"note,omitempty" yaml:"note,omitempty"`
}

// ErrorRow is one file that failed processing.
type ErrorRow struct {
	File  string `json:"file" yaml:"file"`
	Error string `json:"error" yaml:"error"`
}

// SkipRow is one file deliberately left alone.
type SkipRow struct {
	File   string `json:"file" yaml:"file"`
	Reason string `json:"reason" yaml:"reason"`
}

// Writer persists run outcomes under a report directory. Log files carry the
// run's start time in their names so consecutive runs never overwrite each
// other. Logs are written once, at the end of a run; writes are not
// concurrency-safe.
type Writer struct {
	dir   string
	stamp string
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string, startedAt utc.Time) *Writer {
	return &Writer{
		dir:   dir,
		stamp: startedAt.Format(constants.TimeFormatFilename),
	}
}

// Dir returns the report directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteConflicts writes the conflicts CSV and returns its path.
// No rows means no file and an empty path.
func (w *Writer) WriteConflicts(rows []ConflictRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{row.File, row.Field, row.Embedded, row.Sidecar, row.Note})
	}

	name := fmt.Sprintf(constants.ConflictsLogPattern, w.stamp)
	return w.writeCSV(name, []string{"file", "field", "embedded_value", "sidecar_value", "note"}, records)
}

// WriteErrors writes the errors CSV and returns its path.
func (w *Writer) WriteErrors(rows []ErrorRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{row.File, row.Error})
	}

	name := fmt.Sprintf(constants.ErrorsLogPattern, w.stamp)
	return w.writeCSV(name, []string{"file", "error"}, records)
}

// WriteSkipped writes the skipped-files CSV and returns its path.
func (w *Writer) WriteSkipped(rows []SkipRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{row.File, row.Reason})
	}

	name := fmt.Sprintf(constants.SkippedLogPattern, w.stamp)
	return w.writeCSV(name, []string{"file", "reason"}, records)
}

// Backup snapshots a file's embedded tags before the first write touches it.
// The snapshot is a plain-text dump of sorted "Tag: value" lines under the
// backups subdirectory, named after the media file.
func (w *Writer) Backup(path string, tags metadata.Tags) (string, error) {
	backupDir := filepath.Join(w.dir, constants.BackupDirName)
	if err := os.MkdirAll(backupDir, constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", backupDir, err)
	}

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s: %v\n", name, tags[name])
	}

	backupPath := filepath.Join(backupDir, filepath.Base(path)+constants.BackupSuffix)
	if err := os.WriteFile(backupPath, []byte(sb.String()), constants.FilePermissions); err != nil {
		return "", errors.WrapIO("write", backupPath, err)
	}
	return backupPath, nil
}

// writeCSV writes header and records to a new CSV file under the report
// directory, creating the directory on first use.
func (w *Writer) writeCSV(name string, header []string, records [][]string) (string, error) {
	if err := os.MkdirAll(w.dir, constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", w.dir, err)
	}

	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.WrapIO("create", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return "", errors.WrapIO("write", path, err)
	}
	if err := cw.WriteAll(records); err != nil {
		return "", errors.WrapIO("write", path, err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", errors.WrapIO("write", path, err)
	}
	return path, nil
}
