/*
PURPOSE:
  HTTP client for the remote text-evaluation service.
  Handles batch submission, result streaming, and the readiness probe.

REQUIREMENTS:
  User-specified:
  - Submit a batch as one job; transport failure means no job, caller
    skips the batch. No automatic retry.
  - Stream frames for a job with a generous bounded timeout; close the
    connection the moment a terminal event arrives.
  - Optional pre-flight health probe.

  Implementation-discovered:
  - Needs per-request context timeouts (submit short, stream long);
    a client-wide Timeout would kill long streams.
  - Correlation IDs on submissions make service-side job records
    traceable from client logs.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/cli/health.go
  - Uses: internal/config, internal/model, internal/engine/stream.go

ERROR HANDLING:
  - Any network/decode failure on submit -> *model.TransportError.
  - Stream read/timeout failures -> *model.TransportError.
  - Per-frame decode failures -> *model.ProtocolError from Next().

IMPLEMENTATION RULES:
  - Use net/http.
  - Enforce timeouts via context, not client state.

USAGE:
  c := engine.New(cfg)
  job, err := c.Submit(ctx, items)
  stream, err := c.Stream(ctx, job.ID)

RELATED FILES:
  - internal/engine/stream.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update endpoints if the service API changes
    (/evaluate, /stream/{job_id}, /health).
*/

package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/avallverdu/eval-runner/internal/config"
	"github.com/avallverdu/eval-runner/internal/model"
	"github.com/avallverdu/eval-runner/internal/output"
)

// Client handles evaluation service interactions.
type Client struct {
	Config *config.Config
	HTTP   *http.Client
}

// New creates a new Client.
func New(cfg *config.Config) *Client {
	// No client-wide Timeout: the stream must stay open for minutes.
	// Each request carries its own context deadline instead.
	return &Client{
		Config: cfg,
		HTTP:   &http.Client{},
	}
}

// Submit sends a batch as a single evaluation job.
func (c *Client) Submit(ctx context.Context, items []model.BatchItem) (model.Job, error) {
	reqBody, err := json.Marshal(struct {
		Items []model.BatchItem `json:"items"`
	}{Items: items})
	if err != nil {
		return model.Job{}, &model.TransportError{Op: "submit", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.Config.SubmitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.Config.BaseURL()+"/evaluate", bytes.NewReader(reqBody))
	if err != nil {
		return model.Job{}, &model.TransportError{Op: "submit", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	output.Logger.Info("Submitting batch", "items", len(items), "request_id", requestID)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return model.Job{}, &model.TransportError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.Job{}, &model.TransportError{
			Op:  "submit",
			Err: fmt.Errorf("bad status %s: %s", resp.Status, body),
		}
	}

	var job model.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return model.Job{}, &model.TransportError{Op: "submit", Err: err}
	}
	return job, nil
}

// EventStream is a live read connection to a job's result feed.
// Next decodes frames one at a time; the connection is closed as soon
// as a terminal event is observed, never later.
type EventStream struct {
	frames *bufio.Scanner
	body   io.ReadCloser
	cancel context.CancelFunc
	done   bool
}

// Stream opens the long-lived read connection for a job.
func (c *Client) Stream(ctx context.Context, jobID string) (*EventStream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Config.StreamTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.Config.BaseURL()+"/stream/"+jobID, nil)
	if err != nil {
		cancel()
		return nil, &model.TransportError{Op: "stream", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		cancel()
		return nil, &model.TransportError{Op: "stream", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &model.TransportError{
			Op:  "stream",
			Err: fmt.Errorf("bad status: %s", resp.Status),
		}
	}

	return &EventStream{
		frames: newFrameScanner(resp.Body),
		body:   resp.Body,
		cancel: cancel,
	}, nil
}

// Next returns the next decoded event.
// io.EOF means the stream is over (terminal event already delivered, or
// the server closed the connection). A *model.ProtocolError covers one
// frame only; the caller may keep calling Next. Any other error is a
// stream-level failure and the connection is already closed.
func (s *EventStream) Next() (StreamEvent, error) {
	if s.done {
		return StreamEvent{}, io.EOF
	}

	if !s.frames.Scan() {
		s.Close()
		if err := s.frames.Err(); err != nil {
			return StreamEvent{}, &model.TransportError{Op: "stream read", Err: err}
		}
		return StreamEvent{}, io.EOF
	}

	ev, err := parseFrame(s.frames.Bytes())
	if err != nil {
		return StreamEvent{}, err
	}

	if ev.Terminal() {
		// Stop reading immediately: the connection must not stay open
		// past a terminal event.
		s.Close()
	}
	return ev, nil
}

// Close cancels the request context and closes the response body.
// Safe to call multiple times.
func (s *EventStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	s.cancel()
	return s.body.Close()
}

// Health probes the service readiness endpoint.
func (c *Client) Health(ctx context.Context) (model.Health, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Config.BaseURL()+"/health", nil)
	if err != nil {
		return model.Health{}, &model.TransportError{Op: "health", Err: err}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return model.Health{}, &model.TransportError{Op: "health", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Health{}, &model.TransportError{
			Op:  "health",
			Err: fmt.Errorf("bad status: %s", resp.Status),
		}
	}

	var h model.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return model.Health{}, &model.TransportError{Op: "health", Err: err}
	}
	return h, nil
}
