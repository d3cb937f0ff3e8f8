/*
PURPOSE:
  Writes a folder's reconciled result rows to a CSV report.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Output to CSV, one report per folder per run.
  - Report name carries the folder and the run timestamp so the latest
    report sorts last lexicographically.

  Implementation-discovered:
  - Rows are written in reconciliation order, which is server-determined
    across batches; do not re-sort.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Consumes: model.ResultRow

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).
  - Use Mutex in case writes ever become concurrent.

USAGE:
  w, err := output.NewReportWriter(path)
  w.WriteAll(rows)
  w.Close()

RELATED FILES:
  - internal/model/types.go
  - internal/output/combine.go

MAINTENANCE:
  - Update header and record mapping when ResultRow changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/avallverdu/eval-runner/internal/model"
)

// ReportHeader is the column order of per-folder and combined reports.
var ReportHeader = []string{
	"folder", "student_id", "filename", "grade_level",
	"prompt_text", "score", "feedback",
}

// ReportFilename builds the per-folder report name for a run timestamp.
// Timestamps are formatted so lexicographic order matches chronological.
func ReportFilename(folder, timestamp string) string {
	return fmt.Sprintf("results_%s_%s.csv", folder, timestamp)
}

// CombinedFilename builds the cross-folder report name.
func CombinedFilename(timestamp string) string {
	return fmt.Sprintf("results_all_folders_%s.csv", timestamp)
}

// ReportWriter handles writing result rows to a CSV report.
type ReportWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewReportWriter creates a new ReportWriter and writes the header.
// It overwrites the file if it exists.
func NewReportWriter(path string) (*ReportWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(ReportHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &ReportWriter{file: f, writer: w}, nil
}

// Write writes a single row. It is thread-safe.
func (rw *ReportWriter) Write(r model.ResultRow) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	record := []string{
		r.Folder,
		r.StudentID,
		r.Filename,
		r.GradeLevel,
		r.PromptText,
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		r.Feedback,
	}

	if err := rw.writer.Write(record); err != nil {
		return err
	}
	rw.writer.Flush()
	return rw.writer.Error()
}

// WriteAll writes the full accumulated sequence for a folder.
func (rw *ReportWriter) WriteAll(rows []model.ResultRow) error {
	for _, r := range rows {
		if err := rw.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file.
func (rw *ReportWriter) Close() error {
	rw.writer.Flush()
	return rw.file.Close()
}
