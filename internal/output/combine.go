/*
PURPOSE:
  Merges the most recent per-folder reports into one combined CSV and
  computes per-folder aggregate statistics over the merged set.

REQUIREMENTS:
  User-specified:
  - Per folder, select the newest persisted report by the timestamp in
    its name (lexicographic order == chronological order).
  - A folder with no persisted report is reported and omitted, not fatal.
  - Per-folder grouping is preserved in the combined output.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/cli/combine.go
  - Uses: internal/output/report.go for naming and writing.

ERROR HANDLING:
  - Unreadable report -> folder omitted with a warning.
  - Unparseable row -> row skipped with a warning (DataError scope).

USAGE:
  err := output.Combine(folders, dataDir, timestamp)

RELATED FILES:
  - internal/output/report.go

MAINTENANCE:
  - Keep the glob in sync with ReportFilename.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/avallverdu/eval-runner/internal/model"
)

// LatestReport finds the most recent persisted report for a folder.
func LatestReport(dataDir, folder string) (string, bool) {
	pattern := filepath.Join(dataDir, folder, fmt.Sprintf("results_%s_*.csv", folder))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[len(matches)-1], true
}

// LoadReport reads a persisted report back into result rows.
func LoadReport(path string) ([]model.ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Header-driven column mapping; column order is not significant.
	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[name] = i
	}
	for _, required := range ReportHeader {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("report %s is missing column %q", path, required)
		}
	}

	var rows []model.ResultRow
	for _, rec := range records[1:] {
		score, err := strconv.ParseFloat(rec[cols["score"]], 64)
		if err != nil {
			Logger.Warn("Skipping row with unparseable score",
				"report", path, "id", rec[cols["student_id"]], "error", err)
			continue
		}
		rows = append(rows, model.ResultRow{
			Folder:     rec[cols["folder"]],
			StudentID:  rec[cols["student_id"]],
			Filename:   rec[cols["filename"]],
			GradeLevel: rec[cols["grade_level"]],
			PromptText: rec[cols["prompt_text"]],
			Score:      score,
			Feedback:   rec[cols["feedback"]],
		})
	}
	return rows, nil
}

// CombineRows concatenates per-folder report rows preserving grouping.
// Pure; idempotent over re-combination.
func CombineRows(reports [][]model.ResultRow) []model.ResultRow {
	var all []model.ResultRow
	for _, rows := range reports {
		all = append(all, rows...)
	}
	return all
}

// GroupStats computes per-folder score statistics over a combined set.
// Folder order follows first appearance in rows.
func GroupStats(rows []model.ResultRow) ([]string, map[string]ScoreStats) {
	var order []string
	grouped := make(map[string][]model.ResultRow)
	for _, r := range rows {
		if _, seen := grouped[r.Folder]; !seen {
			order = append(order, r.Folder)
		}
		grouped[r.Folder] = append(grouped[r.Folder], r)
	}

	stats := make(map[string]ScoreStats, len(grouped))
	for folder, group := range grouped {
		stats[folder] = Summarize(group)
	}
	return order, stats
}

// Combine loads the latest report of each folder, writes the combined
// CSV under the data directory, and logs per-folder aggregates.
func Combine(folders []string, dataDir, timestamp string) error {
	var reports [][]model.ResultRow

	for _, folder := range folders {
		path, ok := LatestReport(dataDir, folder)
		if !ok {
			Logger.Info("No persisted report for folder, omitting", "folder", folder)
			continue
		}
		rows, err := LoadReport(path)
		if err != nil {
			Logger.Warn("Failed to load report, omitting folder", "path", path, "error", err)
			continue
		}
		Logger.Info("Loaded report", "path", path, "rows", len(rows))
		reports = append(reports, rows)
	}

	all := CombineRows(reports)
	if len(all) == 0 {
		Logger.Info("No results files found to combine")
		return nil
	}

	outPath := filepath.Join(dataDir, CombinedFilename(timestamp))
	w, err := NewReportWriter(outPath)
	if err != nil {
		return fmt.Errorf("failed to init combined report at %s: %w", outPath, err)
	}
	defer w.Close()

	if err := w.WriteAll(all); err != nil {
		return fmt.Errorf("failed to write combined report: %w", err)
	}

	Logger.Info("Combined results saved", "path", outPath, "total", len(all))
	order, stats := GroupStats(all)
	for _, folder := range order {
		Logger.Info("Folder statistics", "folder", folder, "stats", stats[folder].String())
	}
	return nil
}
