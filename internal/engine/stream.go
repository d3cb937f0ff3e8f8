/*
PURPOSE:
  Decodes the service's streaming wire format: frames delimited by a
  blank line, each carrying an event-type line and a data line with a
  JSON payload.

REQUIREMENTS:
  User-specified:
  - Chunk-boundary independence: the server may split frames at any
    byte offset; only complete frames produce events.
  - A single corrupt frame must never abort the stream.

  Implementation-discovered:
  - Unknown event types are treated like corrupt frames: dropped.
  - A trailing unterminated fragment at connection close is discarded.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine/client.go (EventStream)

ERROR HANDLING:
  - Decode failures -> *model.ProtocolError for that frame only.

IMPLEMENTATION RULES:
  - bufio.Scanner with a custom split function; no hand-rolled buffers.

USAGE:
  sc := newFrameScanner(resp.Body)
  for sc.Scan() { ev, err := parseFrame(sc.Bytes()) ... }

RELATED FILES:
  - internal/engine/client.go
*/

package engine

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/avallverdu/eval-runner/internal/model"
)

// EventType tags a decoded stream event.
type EventType string

const (
	EventBatchComplete EventType = "batch_complete"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// StreamEvent is one decoded frame from a job's result stream.
type StreamEvent struct {
	Type     EventType
	Results  []model.EvalResult
	Progress model.Progress
	Message  string
}

// Terminal reports whether no further events may follow this one.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// frameDelim separates frames on the wire.
var frameDelim = []byte("\n\n")

// splitFrames is a bufio.SplitFunc yielding one frame per token.
// Incomplete frames stay buffered until their terminating blank line
// arrives; an unterminated tail at EOF is dropped.
func splitFrames(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.Index(data, frameDelim); i >= 0 {
		return i + len(frameDelim), data[:i], nil
	}
	if atEOF {
		// Discard the partial tail, if any.
		return len(data), nil, nil
	}
	return 0, nil, nil
}

func newFrameScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Split(splitFrames)
	// Frames carry whole batch payloads; allow well past the default 64K.
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return sc
}

// parseFrame decodes one complete frame into a StreamEvent.
func parseFrame(frame []byte) (StreamEvent, error) {
	var eventType string
	var payload []byte

	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			payload = []byte(strings.TrimSpace(line[len("data:"):]))
		}
	}

	if eventType == "" {
		return StreamEvent{}, &model.ProtocolError{
			Frame: string(frame),
			Err:   fmt.Errorf("frame has no event line"),
		}
	}

	switch EventType(eventType) {
	case EventBatchComplete:
		var data struct {
			Results  []model.EvalResult `json:"results"`
			Progress model.Progress     `json:"progress"`
		}
		if err := json.Unmarshal(payload, &data); err != nil {
			return StreamEvent{}, &model.ProtocolError{Frame: string(frame), Err: err}
		}
		return StreamEvent{
			Type:     EventBatchComplete,
			Results:  data.Results,
			Progress: data.Progress,
		}, nil

	case EventComplete:
		return StreamEvent{Type: EventComplete}, nil

	case EventError:
		var data struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &data); err != nil {
			return StreamEvent{}, &model.ProtocolError{Frame: string(frame), Err: err}
		}
		return StreamEvent{Type: EventError, Message: data.Message}, nil

	default:
		return StreamEvent{}, &model.ProtocolError{
			Frame: string(frame),
			Err:   fmt.Errorf("unknown event type %q", eventType),
		}
	}
}
