package output

import (
	"fmt"
	"io"

	"github.com/daryltucker/llamabench/internal/model"
)

// Formats lists the accepted record formats.
var Formats = []string{"json", "yaml", "csv"}

// RecordWriter emits trial records. Implementations are safe for concurrent use.
type RecordWriter interface {
	Write(model.Trial) error
	Close() error
}

// NewRecordWriter returns the writer for format on w.
func NewRecordWriter(format string, w io.Writer) (RecordWriter, error) {
	switch format {
	case "", "json":
		return NewJSONWriter(w), nil
	case "yaml":
		return NewYAMLWriter(w), nil
	case "csv":
		return NewCSVWriter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
