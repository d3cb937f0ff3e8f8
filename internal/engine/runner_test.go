package engine

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avallverdu/eval-runner/internal/model"
	"github.com/avallverdu/eval-runner/internal/output"
)

// evalService is a minimal in-process stand-in for the evaluation API.
type evalService struct {
	t       *testing.T
	submits int
}

func (s *evalService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.Health{Status: "ok", ModelLoaded: true, GPUAvailable: true})
	})

	mux.HandleFunc("/evaluate", func(w http.ResponseWriter, r *http.Request) {
		s.submits++
		var req struct {
			Items []model.BatchItem `json:"items"`
		}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(s.t, req.Items, 2)
		json.NewEncoder(w).Encode(model.Job{ID: "J1", EstimatedSeconds: 3})
	})

	mux.HandleFunc("/stream/J1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		results := `{"results":[` +
			`{"student_id":"11410001","score":8,"feedback":"solid"},` +
			`{"student_id":"11510002","score":6,"feedback":"fine"}],` +
			`"progress":{"completed":2,"total":2,"percentage":100.0}}`
		fmt.Fprintf(w, "event: batch_complete\ndata: %s\n\n", results)
		fmt.Fprint(w, "event: complete\ndata: {}\n\n")
	})

	return mux
}

func setupFolder(t *testing.T, dataDir, folder string) {
	t.Helper()
	dir := filepath.Join(dataDir, folder)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, fmt.Sprintf("%s_11410001_NOR.txt", folder)), []byte("Hello"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, fmt.Sprintf("%s_11510002_NOR.txt", folder)), []byte("World"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "prompts.csv"),
		[]byte("student_id,prompt_text\n11410001,Describe X\n"), 0644))
}

func readReport(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunEndToEnd(t *testing.T) {
	svc := &evalService{t: t}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	dataDir := t.TempDir()
	setupFolder(t, dataDir, "POS1")

	cfg := testConfig(srv.URL)
	cfg.DataDir = dataDir
	cfg.Folders = []string{"POS1"}
	cfg.BatchSize = 10
	cfg.BatchPause = time.Millisecond

	summary, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.submits, "two files, batch size 10: one batch")
	assert.Equal(t, 1, summary.FoldersProcessed)
	assert.Equal(t, 0, summary.FoldersSkipped)
	assert.Equal(t, 2, summary.Rows)
	assert.Zero(t, summary.TransportErrors)
	assert.Zero(t, summary.ProtocolErrors)

	// One per-folder report plus the combined one.
	reports, err := filepath.Glob(filepath.Join(dataDir, "POS1", "results_POS1_*.csv"))
	require.NoError(t, err)
	require.Len(t, reports, 1)

	records := readReport(t, reports[0])
	require.Len(t, records, 3)
	assert.Equal(t, output.ReportHeader, records[0])

	assert.Equal(t, []string{"POS1", "11410001", "POS1_11410001_NOR.txt", "4th Grade", "Describe X", "8", "solid"}, records[1])
	assert.Equal(t, []string{"POS1", "11510002", "POS1_11510002_NOR.txt", "5th Grade", "N/A", "6", "fine"}, records[2])

	combined, err := filepath.Glob(filepath.Join(dataDir, "results_all_folders_*.csv"))
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Len(t, readReport(t, combined[0]), 3)
}

func TestRunSkipsFolderWithoutPromptTable(t *testing.T) {
	svc := &evalService{t: t}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	dataDir := t.TempDir()
	setupFolder(t, dataDir, "POS1")
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "PRE"), 0755)) // no prompts.csv

	cfg := testConfig(srv.URL)
	cfg.DataDir = dataDir
	cfg.Folders = []string{"PRE", "POS1"}
	cfg.BatchPause = time.Millisecond
	cfg.Combine = false
	cfg.HealthCheck = false

	summary, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FoldersProcessed)
	assert.Equal(t, 1, summary.FoldersSkipped)
	assert.Equal(t, 2, summary.Rows)
}

func TestRunSkipsBatchOnSubmitFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/evaluate", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dataDir := t.TempDir()
	setupFolder(t, dataDir, "POS1")

	cfg := testConfig(srv.URL)
	cfg.DataDir = dataDir
	cfg.Folders = []string{"POS1"}
	cfg.BatchPause = time.Millisecond
	cfg.Combine = false
	cfg.HealthCheck = false

	summary, err := Run(context.Background(), cfg)
	require.NoError(t, err, "a failed batch never fails the run")

	assert.Equal(t, 1, summary.TransportErrors)
	assert.Zero(t, summary.Rows)

	reports, _ := filepath.Glob(filepath.Join(dataDir, "POS1", "results_POS1_*.csv"))
	assert.Empty(t, reports, "no rows, no report")
}

func TestRunCancelled(t *testing.T) {
	dataDir := t.TempDir()
	setupFolder(t, dataDir, "POS1")

	cfg := testConfig("http://127.0.0.1:0")
	cfg.DataDir = dataDir
	cfg.Folders = []string{"POS1"}
	cfg.Combine = false
	cfg.HealthCheck = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}
