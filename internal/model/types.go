/*
PURPOSE:
  Defines the core data structures used throughout llamabench.
  A Sample is one measured request; a RunResult is the reduction of all
  Samples from one trial; a Trial is the record emitted per trial.

REQUIREMENTS:
  User-specified:
  - Record TTFT, total time, token count and outcome per request.
  - Aggregate into p50/p95/p99 TTFT, tokens/sec, error rate.

  Implementation-discovered:
  - Outcome is a closed set; failures carry a status code or a message.
  - TTFT is optional: failed requests never observed a first token.
  - Need JSON and YAML tags for machine-readable output.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/metrics, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Samples are values; never mutate one after it was produced.
  - Use time.Duration for per-request timings, float seconds for summaries.

USAGE:
  s := model.Sample{Outcome: model.Success(), TTFT: &ttft, TotalTime: total, TokenCount: n}

RELATED FILES:
  - internal/metrics/aggregate.go
  - internal/engine/prober.go

MAINTENANCE:
  - Update the output writers when adding fields to Trial.
*/

package model

import (
	"fmt"
	"time"
)

// OutcomeKind classifies how a single request ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeHTTPError
	OutcomeTimeout
	OutcomeProtocolError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeProtocolError:
		return "protocol_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result classification of one request attempt.
// StatusCode is set only for OutcomeHTTPError, Message only for OutcomeProtocolError.
type Outcome struct {
	Kind       OutcomeKind `json:"kind" yaml:"kind"`
	StatusCode int         `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Message    string      `json:"message,omitempty" yaml:"message,omitempty"`
}

func Success() Outcome { return Outcome{Kind: OutcomeSuccess} }

func HTTPError(status int) Outcome { return Outcome{Kind: OutcomeHTTPError, StatusCode: status} }

func Timeout() Outcome { return Outcome{Kind: OutcomeTimeout} }

func ProtocolError(msg string) Outcome { return Outcome{Kind: OutcomeProtocolError, Message: msg} }

// OK reports whether the request succeeded.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// Label is the key used in error distributions (e.g. "http_503", "timeout").
func (o Outcome) Label() string {
	if o.Kind == OutcomeHTTPError {
		return fmt.Sprintf("http_%d", o.StatusCode)
	}
	return o.Kind.String()
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeHTTPError:
		return fmt.Sprintf("HTTP %d", o.StatusCode)
	case OutcomeProtocolError:
		return "protocol error: " + o.Message
	default:
		return o.Kind.String()
	}
}

// Sample is the measurement of a single request attempt.
type Sample struct {
	TTFT       *time.Duration `json:"ttft,omitempty"` // nil unless the request succeeded
	TotalTime  time.Duration  `json:"total_time"`
	TokenCount int            `json:"token_count"`
	Outcome    Outcome        `json:"outcome"`
}

// WorkerConfig is the read-only input of one load generator worker.
type WorkerConfig struct {
	WorkerID int
	Prompts  []string
	Deadline time.Time
}

// RunResult aggregates all Samples of one (engine, concurrency, duration) trial.
// When SuccessfulCount is zero every rate and percentile field is zero.
type RunResult struct {
	SuccessfulCount int            `json:"successful_requests" yaml:"successful_requests"`
	FailedCount     int            `json:"failed_requests" yaml:"failed_requests"`
	TTFTP50         float64        `json:"ttft_p50" yaml:"ttft_p50"` // seconds
	TTFTP95         float64        `json:"ttft_p95" yaml:"ttft_p95"`
	TTFTP99         float64        `json:"ttft_p99" yaml:"ttft_p99"`
	TokensPerSec    float64        `json:"tokens_per_sec" yaml:"tokens_per_sec"`
	TotalTokens     int            `json:"total_tokens" yaml:"total_tokens"`
	ErrorRate       float64        `json:"error_rate" yaml:"error_rate"`
	ErrorsByType    map[string]int `json:"errors_by_type,omitempty" yaml:"errors_by_type,omitempty"`
}

// Trial is the record emitted for every benchmark trial.
type Trial struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Engine      string    `json:"engine" yaml:"engine"`
	BaseURL     string    `json:"base_url" yaml:"base_url"`
	Model       string    `json:"model" yaml:"model"`
	Concurrency int       `json:"concurrency" yaml:"concurrency"`
	Duration    float64   `json:"duration_s" yaml:"duration_s"`
	Elapsed     float64   `json:"elapsed_s" yaml:"elapsed_s"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	Partial     bool      `json:"partial,omitempty" yaml:"partial,omitempty"`
	Preset      string    `json:"preset,omitempty" yaml:"preset,omitempty"`
	Result      RunResult `json:"result" yaml:"result"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`

	SystemInfo *SystemInfo `json:"system_info,omitempty" yaml:"system_info,omitempty"`
}

// SystemInfo describes the machine that generated the load.
// It is collected once per run and shared by every trial of that run.
type SystemInfo struct {
	CPUCount     int     `json:"cpu_count" yaml:"cpu_count"`
	MemoryGB     float64 `json:"memory_gb" yaml:"memory_gb"` // 0 when unknown
	GPUAvailable bool    `json:"gpu_available" yaml:"gpu_available"`
	GPUName      string  `json:"gpu_name,omitempty" yaml:"gpu_name,omitempty"`
	OS           string  `json:"os" yaml:"os"`
	Arch         string  `json:"arch" yaml:"arch"`
}
