/*
PURPOSE:
  Loads a folder's prompt table (prompts.csv) into records keyed by
  student ID. Tolerates the two historical column-naming schemes and
  normalizes both at load time.

REQUIREMENTS:
  User-specified:
  - Identifier column accepted as "student_id" or "id".
  - Prompt column accepted as "prompt_text" or "prompt".
  - Missing table is recoverable: the folder is skipped, not the run.

  Implementation-discovered:
  - Tables may carry arbitrary extra columns; ignore them.
  - Duplicate IDs: first row wins.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Produces: model.PromptRecord lookups for the batch builder.

ERROR HANDLING:
  - Missing file or unusable header -> *model.ConfigError.

IMPLEMENTATION RULES:
  - The alias ambiguity must not survive past this boundary.

USAGE:
  repo, err := corpus.LoadPrompts(folderPath)
  prompt, ok := repo.Lookup("11410001")

RELATED FILES:
  - internal/corpus/batch.go

MAINTENANCE:
  - Update alias lists if another naming scheme shows up in the data.
*/

package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/avallverdu/eval-runner/internal/model"
)

// PromptTableName is the per-folder prompt table filename.
const PromptTableName = "prompts.csv"

// Accepted header names for the two logical columns, first match wins.
var (
	idAliases     = []string{"student_id", "id"}
	promptAliases = []string{"prompt_text", "prompt"}
)

// PromptRepository exposes prompt lookup by student ID for one folder.
type PromptRepository struct {
	records map[string]model.PromptRecord
}

// LoadPrompts reads and normalizes a folder's prompt table.
func LoadPrompts(folderPath string) (*PromptRepository, error) {
	path := filepath.Join(folderPath, PromptTableName)

	f, err := os.Open(path)
	if err != nil {
		return nil, &model.ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tables in the wild have ragged rows

	header, err := r.Read()
	if err != nil {
		return nil, &model.ConfigError{Path: path, Err: fmt.Errorf("reading header: %w", err)}
	}

	idCol := findColumn(header, idAliases)
	promptCol := findColumn(header, promptAliases)
	if idCol < 0 || promptCol < 0 {
		return nil, &model.ConfigError{
			Path: path,
			Err:  fmt.Errorf("header %v has no identifier/prompt column", header),
		}
	}

	records := make(map[string]model.PromptRecord)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &model.ConfigError{Path: path, Err: err}
		}
		if idCol >= len(row) || promptCol >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idCol])
		if id == "" {
			continue
		}
		if _, dup := records[id]; dup {
			continue // first row wins
		}
		records[id] = model.PromptRecord{
			StudentID:  id,
			PromptText: row[promptCol],
		}
	}

	return &PromptRepository{records: records}, nil
}

func findColumn(header, aliases []string) int {
	for _, alias := range aliases {
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), alias) {
				return i
			}
		}
	}
	return -1
}

// Lookup returns the prompt text for a student ID.
func (p *PromptRepository) Lookup(studentID string) (string, bool) {
	rec, ok := p.records[studentID]
	return rec.PromptText, ok
}

// Len returns the number of loaded prompt records.
func (p *PromptRepository) Len() int { return len(p.records) }
