/*
PURPOSE:
  Enumerates a folder's normalized text files (*_NOR.txt), extracts a
  stable student ID from each filename and derives the grade level from
  the ID.

REQUIREMENTS:
  User-specified:
  - Files sorted by name for deterministic batch ordering.
  - Filenames like POS1_11410001_NOR.txt -> ID 11410001.
  - Grade level from the third character of the ID (1-6), default 4th.

  Implementation-discovered:
  - Non-matching filenames are skipped with a warning, never records.
  - Unreadable files become empty-content records; the batch builder
    drops those later with its own warning.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Produces: model.FileRecord for the batch builder.

ERROR HANDLING:
  - Missing folder -> *model.ConfigError. Everything else is per-file.

USAGE:
  files, err := corpus.ScanFolder(folderPath)

RELATED FILES:
  - internal/corpus/batch.go

MAINTENANCE:
  - Update the suffix pattern if the normalization step changes it.
*/

package corpus

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/avallverdu/eval-runner/internal/model"
	"github.com/avallverdu/eval-runner/internal/output"
)

// idPattern matches the trailing digit group immediately before the
// normalized-file suffix: <prefix>_<digits>_NOR.txt
var idPattern = regexp.MustCompile(`_(\d+)_NOR\.txt$`)

// gradeOrdinals maps the third character of a student ID to a grade label.
var gradeOrdinals = map[byte]string{
	'1': "1st Grade",
	'2': "2nd Grade",
	'3': "3rd Grade",
	'4': "4th Grade",
	'5': "5th Grade",
	'6': "6th Grade",
}

// DefaultGrade is used whenever the grade cannot be derived from the ID.
const DefaultGrade = "4th Grade"

// ExtractID pulls the student ID out of a normalized filename.
// Returns "" when the filename does not match the expected pattern.
func ExtractID(filename string) string {
	m := idPattern.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	return m[1]
}

// GradeFromID derives the grade label from a student ID.
// Total: any ID that is too short or whose third character is not a
// digit in 1-6 yields the default.
func GradeFromID(studentID string) string {
	if len(studentID) < 3 {
		return DefaultGrade
	}
	if label, ok := gradeOrdinals[studentID[2]]; ok {
		return label
	}
	return DefaultGrade
}

// ScanFolder lists the folder's normalized files sorted by name and
// turns each into a FileRecord. Files whose name yields no ID are
// skipped with a warning.
func ScanFolder(folderPath string) ([]model.FileRecord, error) {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, &model.ConfigError{Path: folderPath, Err: err}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_NOR.txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var files []model.FileRecord
	for _, name := range names {
		id := ExtractID(name)
		if id == "" {
			output.Logger.Warn("Could not extract ID from filename, skipping", "file", name)
			continue
		}

		content, err := os.ReadFile(filepath.Join(folderPath, name))
		if err != nil {
			output.Logger.Warn("Failed to read file", "file", name, "error", err)
			content = nil // treated as empty downstream
		}

		files = append(files, model.FileRecord{
			StudentID:  id,
			Filename:   name,
			GradeLevel: GradeFromID(id),
			Content:    strings.TrimSpace(string(content)),
		})
	}

	return files, nil
}
