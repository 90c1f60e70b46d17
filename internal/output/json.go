/*
PURPOSE:
  Writes trial records as JSON Lines (NDJSON).
  Optimized for machine parsing (`jq`, log shippers).

REQUIREMENTS:
  Implementation-discovered:
  - JSON Lines is better for streaming than a single large array: each trial
    is visible as soon as it finishes, and an interrupted run still leaves
    valid output.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/run.go (as engine.Suite.Emit)
  - Consumes: internal/model.Trial

ERROR HANDLING:
  - Returns the underlying write error.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.

USAGE:
  w, _ := output.NewRecordWriter("json", os.Stdout)
  w.Write(trial)

RELATED FILES:
  - internal/output/writer.go
  - internal/model/types.go
*/

package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/daryltucker/llamabench/internal/model"
)

// JSONWriter writes one JSON object per trial.
type JSONWriter struct {
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter creates a JSONWriter on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{encoder: json.NewEncoder(w)}
}

// Write writes a single trial as a JSON line.
func (jw *JSONWriter) Write(t model.Trial) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(t)
}

// Close is a no-op; the caller owns the underlying writer.
func (jw *JSONWriter) Close() error {
	return nil
}
