package output

import (
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/llamabench/internal/model"
)

// YAMLWriter writes trials as a multi-document YAML stream ("---" separated).
type YAMLWriter struct {
	encoder *yaml.Encoder
	mu      sync.Mutex
}

// NewYAMLWriter creates a YAMLWriter on w.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAMLWriter{encoder: enc}
}

func (yw *YAMLWriter) Write(t model.Trial) error {
	yw.mu.Lock()
	defer yw.mu.Unlock()

	return yw.encoder.Encode(t)
}

// Close flushes the encoder.
func (yw *YAMLWriter) Close() error {
	yw.mu.Lock()
	defer yw.mu.Unlock()

	return yw.encoder.Close()
}
