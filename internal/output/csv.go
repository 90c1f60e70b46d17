/*
PURPOSE:
  Writes trial records as CSV, one row per trial, for spreadsheets.

REQUIREMENTS:
  Implementation-discovered:
  - The header is written before the first row, not at construction, so an
    empty run produces empty output.
  - errors_by_type is a map; it is flattened to `label=count;...` sorted by label.
  - system_info is flattened to its scalar columns; empty when not collected.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/run.go via NewRecordWriter("csv", ...)
  - Consumes: internal/model.Trial

ERROR HANDLING:
  - Returns csv.Writer errors after every flush.

IMPLEMENTATION RULES:
  - Thread-safe.
  - Flush after every row so interrupted runs keep their rows.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update csvHeader and record() together when Trial or RunResult changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/daryltucker/llamabench/internal/model"
)

var csvHeader = []string{
	"run_id", "engine", "base_url", "model", "concurrency",
	"duration_s", "elapsed_s", "started_at", "partial",
	"successful_requests", "failed_requests",
	"ttft_p50", "ttft_p95", "ttft_p99",
	"tokens_per_sec", "total_tokens", "error_rate", "errors_by_type",
	"error", "preset",
	"cpu_count", "memory_gb", "gpu_available",
}

// CSVWriter writes trials as CSV rows.
type CSVWriter struct {
	writer        *csv.Writer
	mu            sync.Mutex
	headerWritten bool
}

// NewCSVWriter creates a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w)}
}

// Write writes a single trial row, preceded by the header on first use.
func (cw *CSVWriter) Write(t model.Trial) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.headerWritten {
		if err := cw.writer.Write(csvHeader); err != nil {
			return err
		}
		cw.headerWritten = true
	}

	if err := cw.writer.Write(record(t)); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close flushes pending rows.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	return cw.writer.Error()
}

func record(t model.Trial) []string {
	r := t.Result
	row := []string{
		t.RunID,
		t.Engine,
		t.BaseURL,
		t.Model,
		strconv.Itoa(t.Concurrency),
		fmt.Sprintf("%.3f", t.Duration),
		fmt.Sprintf("%.3f", t.Elapsed),
		t.StartedAt.Format(time.RFC3339),
		strconv.FormatBool(t.Partial),
		strconv.Itoa(r.SuccessfulCount),
		strconv.Itoa(r.FailedCount),
		fmt.Sprintf("%.3f", r.TTFTP50),
		fmt.Sprintf("%.3f", r.TTFTP95),
		fmt.Sprintf("%.3f", r.TTFTP99),
		fmt.Sprintf("%.1f", r.TokensPerSec),
		strconv.Itoa(r.TotalTokens),
		fmt.Sprintf("%.4f", r.ErrorRate),
		flattenErrors(r.ErrorsByType),
		t.Error,
		t.Preset,
	}
	if si := t.SystemInfo; si != nil {
		return append(row, strconv.Itoa(si.CPUCount), fmt.Sprintf("%.1f", si.MemoryGB), strconv.FormatBool(si.GPUAvailable))
	}
	return append(row, "", "", "")
}

func flattenErrors(m map[string]int) string {
	labels := make([]string, 0, len(m))
	for label := range m {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = fmt.Sprintf("%s=%d", label, m[label])
	}
	return strings.Join(parts, ";")
}
