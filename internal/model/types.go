/*
PURPOSE:
  Defines the core data structures used throughout eval-runner.
  These models represent the corpus, the wire payloads, and report rows.

REQUIREMENTS:
  User-specified:
  - Carry student ID, grade level, prompt and response per batch item.
  - Report rows tagged with source folder and filename.

  Implementation-discovered:
  - JSON tags must match the evaluation service wire format exactly.
  - Filename is client-side metadata only; must not leak onto the wire.

ARCHITECTURE INTEGRATION:
  - Used by: internal/corpus, internal/engine, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs). Error variants live in errors.go.

IMPLEMENTATION RULES:
  - Keep structs simple and public.

USAGE:
  item := model.BatchItem{StudentID: "11410001", ...}

RELATED FILES:
  - internal/model/errors.go
  - internal/output/report.go

MAINTENANCE:
  - Update when the service wire format changes.
*/

package model

// PromptRecord is one row of a folder's prompt table, already normalized
// to the canonical column shape.
type PromptRecord struct {
	StudentID  string
	PromptText string
}

// FileRecord is a normalized response file found on disk.
type FileRecord struct {
	StudentID  string
	Filename   string
	GradeLevel string
	Content    string
}

// BatchItem is one unit of work submitted to the evaluation service.
// Filename is kept for reconciling streamed results back to local files
// and never goes on the wire.
type BatchItem struct {
	StudentID    string `json:"student_id"`
	GradeLevel   string `json:"grade_level"`
	PromptText   string `json:"prompt_text"`
	ResponseText string `json:"response_text"`

	Filename string `json:"-"`
}

// Job identifies one submitted batch on the service side.
type Job struct {
	ID               string  `json:"job_id"`
	EstimatedSeconds float64 `json:"estimated_time_seconds"`
}

// EvalResult is a single scored response carried by a batch_complete frame.
type EvalResult struct {
	StudentID string  `json:"student_id"`
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
}

// Progress reports how far along a job is. Observability only.
type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ResultRow is one reconciled output row of a folder report.
type ResultRow struct {
	Folder     string
	StudentID  string
	Filename   string
	GradeLevel string
	PromptText string
	Score      float64
	Feedback   string
}

// Health is the service readiness report from GET /health.
type Health struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	GPUAvailable bool   `json:"gpu_available"`
}
