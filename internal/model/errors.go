/*
PURPOSE:
  Error variants for the failure taxonomy: configuration, transport,
  protocol and data errors are distinct types so callers can pick a
  skip/continue policy per kind instead of one blanket catch.

ARCHITECTURE INTEGRATION:
  - Produced by: internal/corpus, internal/engine
  - Consumed by: internal/engine/runner.go (errors.As dispatch)

IMPLEMENTATION RULES:
  - Every variant wraps an underlying error where one exists (Unwrap).
  - No variant is ever fatal on its own; the runner decides scope.

USAGE:
  var terr *model.TransportError
  if errors.As(err, &terr) { ... skip batch ... }
*/

package model

import "fmt"

// ConfigError marks a missing or unusable local input (folder, prompt
// table). The affected folder is skipped; the run continues.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError marks a failed submission or stream connection/read.
// The affected batch is skipped; partial results already emitted are kept.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError marks a single stream frame that failed to decode.
// The frame is dropped; the stream continues.
type ProtocolError struct {
	Frame string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: bad frame: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// DataError marks a per-item defect (empty response, unparseable report
// row). The item is skipped or defaulted; nothing aborts.
type DataError struct {
	Subject string
	Reason  string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data: %s: %s", e.Subject, e.Reason)
}
