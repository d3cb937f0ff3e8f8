package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avallverdu/eval-runner/internal/config"
	"github.com/avallverdu/eval-runner/internal/model"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIHost = baseURL
	cfg.SubmitTimeout = 2 * time.Second
	cfg.StreamTimeout = 2 * time.Second
	cfg.HealthTimeout = 2 * time.Second
	return cfg
}

func TestSubmit(t *testing.T) {
	var gotItems struct {
		Items []model.BatchItem `json:"items"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/evaluate", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotItems))

		json.NewEncoder(w).Encode(model.Job{ID: "J1", EstimatedSeconds: 12})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	job, err := c.Submit(context.Background(), []model.BatchItem{
		{StudentID: "11410001", GradeLevel: "4th Grade", PromptText: "Describe X", ResponseText: "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "J1", job.ID)
	assert.Equal(t, 12.0, job.EstimatedSeconds)

	require.Len(t, gotItems.Items, 1)
	assert.Equal(t, "11410001", gotItems.Items[0].StudentID)
	assert.Empty(t, gotItems.Items[0].Filename, "filename must not go on the wire")
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Submit(context.Background(), nil)
	require.Error(t, err)

	var terr *model.TransportError
	assert.True(t, errors.As(err, &terr))
}

func TestSubmitConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens any more

	c := New(testConfig(srv.URL))
	_, err := c.Submit(context.Background(), nil)
	require.Error(t, err)

	var terr *model.TransportError
	assert.True(t, errors.As(err, &terr))
}

func streamServer(t *testing.T, jobID, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stream/"+jobID, r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		// Deliver in small chunks to split frames mid-frame.
		for i := 0; i < len(payload); i += 7 {
			end := i + 7
			if end > len(payload) {
				end = len(payload)
			}
			io.WriteString(w, payload[i:end])
			flusher.Flush()
		}
	}))
}

func TestStreamConsumesToTerminal(t *testing.T) {
	srv := streamServer(t, "J1", samplePayload)
	defer srv.Close()

	c := New(testConfig(srv.URL))
	stream, err := c.Stream(context.Background(), "J1")
	require.NoError(t, err)
	defer stream.Close()

	var types []EventType
	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		types = append(types, ev.Type)
		if ev.Terminal() {
			break
		}
	}
	assert.Equal(t, []EventType{EventBatchComplete, EventBatchComplete, EventComplete}, types)

	// Terminal event closed the stream; further reads are EOF.
	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamStopsAtTerminalEvent(t *testing.T) {
	// Frames after the terminal one must never be surfaced.
	payload := "event: complete\ndata: {}\n\n" +
		"event: batch_complete\ndata: {\"results\":[{\"student_id\":\"x\",\"score\":1}]}\n\n"
	srv := streamServer(t, "J1", payload)
	defer srv.Close()

	c := New(testConfig(srv.URL))
	stream, err := c.Stream(context.Background(), "J1")
	require.NoError(t, err)

	ev, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventComplete, ev.Type)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamMalformedFrameDoesNotAbort(t *testing.T) {
	payload := "event: batch_complete\ndata: {garbage\n\n" + samplePayload
	srv := streamServer(t, "J1", payload)
	defer srv.Close()

	c := New(testConfig(srv.URL))
	stream, err := c.Stream(context.Background(), "J1")
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	var perr *model.ProtocolError
	require.True(t, errors.As(err, &perr))

	// The stream keeps going after the dropped frame.
	ev, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventBatchComplete, ev.Type)
}

func TestStreamTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done() // hang until the client gives up
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.StreamTimeout = 100 * time.Millisecond

	c := New(cfg)
	stream, err := c.Stream(context.Background(), "J1")
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.Error(t, err)

	var terr *model.TransportError
	assert.True(t, errors.As(err, &terr))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(model.Health{Status: "ok", ModelLoaded: true, GPUAvailable: true})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.ModelLoaded)
	assert.True(t, h.GPUAvailable)
}
