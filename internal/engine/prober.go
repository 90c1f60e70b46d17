/*
PURPOSE:
  Issues one generation request and measures it: time to first token,
  total time, generated token count, and outcome.

REQUIREMENTS:
  User-specified:
  - Exactly one Sample per request; never return an error past this boundary.
  - Non-200 -> HttpError(status); timeout -> Timeout; anything else -> ProtocolError.
  - Streaming: TTFT is stamped when the first content-bearing chunk arrives.
  - Non-streaming: TTFT equals total time (known approximation).
  - Zero parsed tokens on a successful request -> fallback estimate of 50.

  Implementation-discovered:
  - Malformed stream lines are expected noise ("garbage resilience"); they are
    skipped and logged at debug level only.
  - A body read can hit the deadline after headers arrived; that is still a Timeout.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/loadgen.go (workers)
  - Uses: internal/engine/adapter.go, internal/model, internal/output

ERROR HANDLING:
  - All failures are folded into Sample.Outcome.

IMPLEMENTATION RULES:
  - Monotonic clock only (time.Now/time.Since).
  - No shared mutable state; one HTTPProber may serve many goroutines.

USAGE:
  p := engine.NewHTTPProber(client, adapter, baseURL, "llama3.1", 30*time.Second)
  sample := p.Probe(ctx, "Explain Python in simple terms.")

RELATED FILES:
  - internal/engine/adapter.go
  - internal/engine/client.go
*/

package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"time"

	"github.com/daryltucker/llamabench/internal/model"
	"github.com/daryltucker/llamabench/internal/output"
)

const (
	// DefaultRequestTimeout bounds a single request, body included.
	DefaultRequestTimeout = 30 * time.Second

	// FallbackTokenEstimate replaces a zero token count on successful requests.
	// It conflates "parser under-counted" with "short answer"; kept on purpose.
	FallbackTokenEstimate = 50

	maxChunkSize = 1 << 20
)

// Prober produces one Sample per call.
type Prober interface {
	Probe(ctx context.Context, prompt string) model.Sample
}

// HTTPProber measures requests against one target over HTTP.
type HTTPProber struct {
	client    *http.Client
	adapter   Adapter
	baseURL   string
	modelName string
	timeout   time.Duration
}

// NewHTTPProber creates a prober. A non-positive timeout selects DefaultRequestTimeout.
func NewHTTPProber(client *http.Client, adapter Adapter, baseURL, modelName string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPProber{
		client:    client,
		adapter:   adapter,
		baseURL:   baseURL,
		modelName: modelName,
		timeout:   timeout,
	}
}

// Probe executes one request/response cycle.
func (p *HTTPProber) Probe(ctx context.Context, prompt string) model.Sample {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fail := func(err error) model.Sample {
		return model.Sample{TotalTime: time.Since(start), Outcome: classify(ctx, err)}
	}

	req, err := p.adapter.BuildRequest(p.baseURL, prompt, p.modelName)
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(traced(ctx, req.URL), http.MethodPost, req.URL, bytes.NewReader(req.Payload))
	if err != nil {
		return fail(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxChunkSize))
		return model.Sample{TotalTime: time.Since(start), Outcome: model.HTTPError(resp.StatusCode)}
	}

	var (
		ttft   time.Duration
		seen   bool
		tokens int
	)

	if req.Streaming {
		for line, err := range chunks(resp.Body) {
			if err != nil {
				return fail(err)
			}
			events, perr := p.adapter.ParseChunk(line)
			if perr != nil {
				output.Logger.Debug("Skipping invalid stream chunk", "engine", p.adapter.Kind(), "chunk", string(line))
				continue
			}
			if len(events) == 0 {
				continue
			}
			if !seen {
				ttft = time.Since(start)
				seen = true
			}
			tokens += len(events)
		}
	} else {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fail(err)
		}
		events, err := p.adapter.ParseChunk(body)
		if err != nil {
			return fail(fmt.Errorf("invalid response body: %w", err))
		}
		tokens = len(events)
	}

	total := time.Since(start)
	if !seen {
		ttft = total
	}
	if tokens == 0 {
		tokens = FallbackTokenEstimate
	}

	return model.Sample{
		TTFT:       &ttft,
		TotalTime:  total,
		TokenCount: tokens,
		Outcome:    model.Success(),
	}
}

// chunks yields the non-empty lines of a streamed body until the connection closes.
// The yielded slice is only valid until the next iteration.
func chunks(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxChunkSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			if !yield(line, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// classify maps a transport or parse failure onto an outcome.
func classify(ctx context.Context, err error) model.Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return model.Timeout()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.Timeout()
	}
	return model.ProtocolError(err.Error())
}
