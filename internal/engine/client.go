/*
PURPOSE:
  HTTP plumbing shared by every benchmark trial: the client and transport,
  the pre-run health check, and model discovery on a target.

REQUIREMENTS:
  User-specified:
  - Health check: GET /health (llama.cpp, vLLM) or /api/tags (ollama), expect 200.
  - A failed health check means the target is unavailable; no run is attempted.

  Implementation-discovered:
  - One shared http.Client is safe for concurrent use; the idle pool must be
    sized to the worker count so workers do not churn connections.
  - No MaxConnsPerHost: a worker must never wait on another worker's connection.
  - httptrace is handy to see connection reuse at debug level.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/cli (health, list-engines)
  - Uses: internal/output

ERROR HANDLING:
  - HealthCheck returns a wrapped ErrUnavailable.
  - ListModels returns plain errors; callers treat discovery as best effort.

USAGE:
  client := engine.NewHTTPClient(8)
  err := engine.HealthCheck(ctx, client, adapter, "http://localhost:8080", 5*time.Second)

RELATED FILES:
  - internal/engine/adapter.go
  - internal/engine/runner.go
*/

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/daryltucker/llamabench/internal/output"
)

// DefaultHealthTimeout bounds the pre-run health check.
const DefaultHealthTimeout = 5 * time.Second

// ErrUnavailable reports that a target failed its health check.
var ErrUnavailable = errors.New("target unavailable")

// NewHTTPClient returns a client whose idle pool fits the given worker count.
// Per-request deadlines come from contexts, not from Client.Timeout.
func NewHTTPClient(concurrency int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if concurrency > transport.MaxIdleConnsPerHost {
		transport.MaxIdleConnsPerHost = concurrency
	}
	if concurrency > transport.MaxIdleConns {
		transport.MaxIdleConns = concurrency
	}
	return &http.Client{Transport: transport}
}

// HealthCheck verifies the target answers its health endpoint with 200.
func HealthCheck(ctx context.Context, client *http.Client, adapter Adapter, baseURL string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := joinURL(baseURL, adapter.HealthPath())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxChunkSize))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: bad status: %s", ErrUnavailable, url, resp.Status)
	}
	return nil
}

// ListModels returns the model names a target reports.
// Ollama answers on /api/tags; llama.cpp and vLLM on the OpenAI /v1/models route.
func ListModels(ctx context.Context, client *http.Client, kind Kind, baseURL string) ([]string, error) {
	path := "/v1/models"
	if kind == KindOllama {
		path = "/api/tags"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(baseURL, path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var names []string
	if kind == KindOllama {
		var payload struct {
			Models []struct {
				Name string `json:"name"`
			} `json:"models"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, err
		}
		for _, m := range payload.Models {
			names = append(names, m.Name)
		}
		return names, nil
	}

	var list openai.ModelsList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

// traced attaches connection-level debug logging to ctx.
func traced(ctx context.Context, url string) context.Context {
	return httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			output.Logger.Debug("Network: Connected", "url", url, "reused", info.Reused)
		},
		GotFirstResponseByte: func() {
			output.Logger.Debug("Network: First Byte Received", "url", url)
		},
	})
}
