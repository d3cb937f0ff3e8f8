/*
PURPOSE:
  Partitions the scanned corpus into fixed-size batches and joins each
  file with its prompt to produce the wire-ready batch items.

REQUIREMENTS:
  User-specified:
  - Consecutive chunks of size B over the sorted scan; last may be short.
  - Missing prompt never drops an item: prompt_text becomes "N/A".
  - Empty response content drops the item from its batch with a warning.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Uses: internal/corpus/prompts.go

ERROR HANDLING:
  - None escalated; per-item defects are warnings.

IMPLEMENTATION RULES:
  - Partition before filtering, so batch count is ceil(N/B) over the
    scan regardless of how many items survive the join.
  - No state across batches beyond sequence position.

USAGE:
  b := corpus.NewBatchBuilder(repo, 10)
  for _, chunk := range b.Partition(files) {
      items := b.Build(chunk)
  }
*/

package corpus

import (
	"github.com/avallverdu/eval-runner/internal/model"
	"github.com/avallverdu/eval-runner/internal/output"
)

// MissingPrompt is the sentinel submitted when no prompt record matches.
const MissingPrompt = "N/A"

// BatchBuilder turns scanned file records into submission batches.
type BatchBuilder struct {
	prompts *PromptRepository
	size    int
}

// NewBatchBuilder creates a builder for the given prompt repository and
// batch size.
func NewBatchBuilder(prompts *PromptRepository, size int) *BatchBuilder {
	return &BatchBuilder{prompts: prompts, size: size}
}

// Partition splits the sorted file records into consecutive chunks of
// the configured size. Order-preserving and lossless.
func (b *BatchBuilder) Partition(files []model.FileRecord) [][]model.FileRecord {
	var chunks [][]model.FileRecord
	for start := 0; start < len(files); start += b.size {
		end := start + b.size
		if end > len(files) {
			end = len(files)
		}
		chunks = append(chunks, files[start:end])
	}
	return chunks
}

// Build joins one chunk with its prompts and drops unsubmittable entries.
func (b *BatchBuilder) Build(chunk []model.FileRecord) []model.BatchItem {
	items := make([]model.BatchItem, 0, len(chunk))
	for _, file := range chunk {
		if file.Content == "" {
			output.Logger.Warn("Empty response file, skipping", "file", file.Filename)
			continue
		}

		prompt, ok := b.prompts.Lookup(file.StudentID)
		if !ok {
			output.Logger.Warn("No prompt found for ID", "id", file.StudentID)
			prompt = MissingPrompt
		}

		items = append(items, model.BatchItem{
			StudentID:    file.StudentID,
			GradeLevel:   file.GradeLevel,
			PromptText:   prompt,
			ResponseText: file.Content,
			Filename:     file.Filename,
		})
	}
	return items
}
