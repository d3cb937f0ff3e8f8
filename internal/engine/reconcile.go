package engine

import (
	"github.com/avallverdu/eval-runner/internal/model"
	"github.com/avallverdu/eval-runner/internal/output"
)

// Reconciler matches streamed results back to the batch metadata they
// were submitted with. Results whose student ID is not in the in-flight
// batch are discarded, never reported as rows.
type Reconciler struct {
	folder string
	items  []model.BatchItem
	seen   map[string]bool
}

// NewReconciler creates a reconciler scoped to one job's batch.
func NewReconciler(folder string, items []model.BatchItem) *Reconciler {
	return &Reconciler{
		folder: folder,
		items:  items,
		seen:   make(map[string]bool, len(items)),
	}
}

// Match emits one ResultRow per result that belongs to the batch.
// A repeated student ID within the job keeps its first result; later
// re-sends are dropped with a warning.
func (r *Reconciler) Match(results []model.EvalResult) []model.ResultRow {
	var rows []model.ResultRow
	for _, res := range results {
		item, ok := r.find(res.StudentID)
		if !ok {
			output.Logger.Warn("Result for unknown ID, discarding",
				"folder", r.folder, "id", res.StudentID)
			continue
		}
		if r.seen[res.StudentID] {
			output.Logger.Warn("Duplicate result for ID, keeping first",
				"folder", r.folder, "id", res.StudentID)
			continue
		}
		r.seen[res.StudentID] = true

		rows = append(rows, model.ResultRow{
			Folder:     r.folder,
			StudentID:  res.StudentID,
			Filename:   item.Filename,
			GradeLevel: item.GradeLevel,
			PromptText: item.PromptText,
			Score:      res.Score,
			Feedback:   res.Feedback,
		})
	}
	return rows
}

// Linear scan is fine while batches stay small; switch to a map keyed
// by student ID if batch size is ever raised substantially.
func (r *Reconciler) find(studentID string) (model.BatchItem, bool) {
	for _, item := range r.items {
		if item.StudentID == studentID {
			return item, true
		}
	}
	return model.BatchItem{}, false
}
