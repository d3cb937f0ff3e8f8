/*
PURPOSE:
  High-level runner that orchestrates the evaluation pipeline.
  Loops through folders -> batches, submits each batch, consumes its
  stream, reconciles results and persists per-folder reports.

REQUIREMENTS:
  User-specified:
  - Strictly sequential: one batch fully streamed before the next is
    built, with a mandatory pause between batches in a folder.
  - Every per-item/per-frame/per-batch failure is contained at its own
    level; only cancellation aborts the run.

  Implementation-discovered:
  - Needs a per-run timestamp shared by all reports so the combiner can
    pick the reports of the same run.
  - Error tallies per kind make the end-of-run summary meaningful.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/corpus, internal/engine, internal/output

ERROR HANDLING:
  - Logs and continues on folder/batch/frame failures (resilience).
  - Returns an error only on cancellation.

USAGE:
  summary, err := engine.Run(ctx, cfg)

RELATED FILES:
  - internal/engine/client.go
  - internal/output/combine.go

MAINTENANCE:
  - Update iteration logic if parallel folder processing is introduced.
*/

package engine

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/avallverdu/eval-runner/internal/config"
	"github.com/avallverdu/eval-runner/internal/corpus"
	"github.com/avallverdu/eval-runner/internal/model"
	"github.com/avallverdu/eval-runner/internal/output"
)

// RunTimestampFormat names report files; lexicographic order of the
// formatted value matches chronological order.
const RunTimestampFormat = "20060102_150405"

// RunSummary tallies what happened across the whole run.
type RunSummary struct {
	FoldersProcessed int
	FoldersSkipped   int
	Rows             int
	TransportErrors  int
	ProtocolErrors   int
}

// Runner drives the full pipeline for one invocation.
type Runner struct {
	client  *Client
	cfg     *config.Config
	summary RunSummary
}

// NewRunner creates a runner over a fresh client.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{client: New(cfg), cfg: cfg}
}

// Run executes the full evaluation pipeline: optional health probe,
// sequential folder processing, then the cross-folder combination.
func Run(ctx context.Context, cfg *config.Config) (*RunSummary, error) {
	return NewRunner(cfg).Run(ctx)
}

// Run processes all configured folders and returns the run summary.
// The only error it returns is cancellation; everything else is
// contained, logged and tallied.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	output.Logger.Info("Starting evaluation run",
		"api", r.cfg.BaseURL(),
		"folders", r.cfg.Folders,
		"data_dir", r.cfg.DataDir,
		"batch_size", r.cfg.BatchSize,
	)

	if r.cfg.HealthCheck {
		r.probe(ctx)
	}

	timestamp := time.Now().Format(RunTimestampFormat)

	for _, folder := range r.cfg.Folders {
		if err := ctx.Err(); err != nil {
			return &r.summary, err
		}
		if err := r.processFolder(ctx, folder, timestamp); err != nil {
			if ctx.Err() != nil {
				return &r.summary, ctx.Err()
			}
			var cerr *model.ConfigError
			if errors.As(err, &cerr) {
				output.Logger.Warn("Skipping folder", "folder", folder, "error", err)
				r.summary.FoldersSkipped++
				continue
			}
			output.Logger.Error("Folder processing failed", "folder", folder, "error", err)
			r.summary.FoldersSkipped++
			continue
		}
		r.summary.FoldersProcessed++
	}

	if r.cfg.Combine {
		if err := output.Combine(r.cfg.Folders, r.cfg.DataDir, timestamp); err != nil {
			output.Logger.Error("Combination failed", "error", err)
		}
	}

	output.Logger.Info("Run complete",
		"folders_processed", r.summary.FoldersProcessed,
		"folders_skipped", r.summary.FoldersSkipped,
		"rows", r.summary.Rows,
		"transport_errors", r.summary.TransportErrors,
		"protocol_errors", r.summary.ProtocolErrors,
	)
	return &r.summary, ctx.Err()
}

// probe runs the pre-flight readiness check. Failure is a warning;
// the run proceeds regardless.
func (r *Runner) probe(ctx context.Context) {
	output.Logger.Info("Checking service health...")
	h, err := r.client.Health(ctx)
	if err != nil {
		output.Logger.Warn("Could not check service health, continuing anyway", "error", err)
		return
	}
	output.Logger.Info("Service is ready",
		"status", h.Status,
		"model_loaded", h.ModelLoaded,
		"gpu_available", h.GPUAvailable,
	)
}

// processFolder runs the submit/stream/reconcile loop for one folder
// and persists its report.
func (r *Runner) processFolder(ctx context.Context, folder, timestamp string) error {
	output.Logger.Info("Processing folder", "folder", folder)
	folderPath := filepath.Join(r.cfg.DataDir, folder)

	prompts, err := corpus.LoadPrompts(folderPath)
	if err != nil {
		return err
	}
	output.Logger.Info("Loaded prompts", "folder", folder, "count", prompts.Len())

	files, err := corpus.ScanFolder(folderPath)
	if err != nil {
		return err
	}
	output.Logger.Info("Found normalized files", "folder", folder, "count", len(files))
	if len(files) == 0 {
		output.Logger.Info("No normalized files in folder, nothing to do", "folder", folder)
		return nil
	}

	builder := corpus.NewBatchBuilder(prompts, r.cfg.BatchSize)
	chunks := builder.Partition(files)

	var rows []model.ResultRow
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		output.Logger.Info("Processing batch",
			"folder", folder, "batch", i+1, "of", len(chunks), "files", len(chunk))

		items := builder.Build(chunk)
		if len(items) == 0 {
			output.Logger.Warn("No valid items in batch, skipping", "folder", folder, "batch", i+1)
			continue
		}

		rows = append(rows, r.evaluateBatch(ctx, folder, items)...)

		// Pause between batches; crude backpressure for the service.
		if i < len(chunks)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.BatchPause):
			}
		}
	}

	if len(rows) == 0 {
		output.Logger.Info("No results for folder, skipping report", "folder", folder)
		return nil
	}

	reportPath := filepath.Join(folderPath, output.ReportFilename(folder, timestamp))
	writer, err := output.NewReportWriter(reportPath)
	if err != nil {
		return err
	}
	defer writer.Close()
	if err := writer.WriteAll(rows); err != nil {
		return err
	}

	r.summary.Rows += len(rows)
	stats := output.Summarize(rows)
	output.Logger.Info("Results saved", "folder", folder, "path", reportPath, "stats", stats.String())
	return nil
}

// evaluateBatch submits one batch and consumes its stream to a terminal
// event, timeout or transport failure. Partial results are kept.
func (r *Runner) evaluateBatch(ctx context.Context, folder string, items []model.BatchItem) []model.ResultRow {
	job, err := r.client.Submit(ctx, items)
	if err != nil {
		output.Logger.Error("Failed to submit evaluation job, skipping batch",
			"folder", folder, "error", err)
		r.summary.TransportErrors++
		return nil
	}
	output.Logger.Info("Job submitted",
		"job_id", job.ID, "estimated_seconds", job.EstimatedSeconds)

	stream, err := r.client.Stream(ctx, job.ID)
	if err != nil {
		output.Logger.Error("Failed to open result stream, skipping batch",
			"job_id", job.ID, "error", err)
		r.summary.TransportErrors++
		return nil
	}
	defer stream.Close()

	rec := NewReconciler(folder, items)
	var rows []model.ResultRow

	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		if err != nil {
			var perr *model.ProtocolError
			if errors.As(err, &perr) {
				output.Logger.Warn("Dropping malformed frame", "job_id", job.ID, "error", err)
				r.summary.ProtocolErrors++
				continue
			}
			// Stream-level failure (timeout, connection loss). Keep
			// whatever was already reconciled.
			output.Logger.Error("Stream failed, keeping partial results",
				"job_id", job.ID, "rows", len(rows), "error", err)
			r.summary.TransportErrors++
			return rows
		}

		switch ev.Type {
		case EventBatchComplete:
			rows = append(rows, rec.Match(ev.Results)...)
			output.Logger.Info("Progress",
				"job_id", job.ID,
				"completed", ev.Progress.Completed,
				"total", ev.Progress.Total,
				"percentage", ev.Progress.Percentage,
			)
		case EventComplete:
			output.Logger.Info("Job completed successfully", "job_id", job.ID)
			return rows
		case EventError:
			output.Logger.Error("Service reported job error", "job_id", job.ID, "message", ev.Message)
			return rows
		}
	}
}
