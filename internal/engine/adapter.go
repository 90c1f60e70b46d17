/*
PURPOSE:
  Protocol adapters for the supported inference engines.
  Each adapter knows how to build a generation request and how to turn
  one raw response chunk into token events.

REQUIREMENTS:
  User-specified:
  - llama.cpp: POST /completion, NDJSON stream, one token per `content` object.
  - ollama: POST /api/generate, NDJSON stream, one token per word of `response`.
  - vLLM: POST /v1/completions (OpenAI), single JSON body, words of choices[0].text.

  Implementation-discovered:
  - llama.cpp servers may frame stream lines as SSE ("data: {...}"); the
    prefix is stripped before decoding.
  - Word counting is an approximation, not tokenization.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/prober.go, internal/engine/client.go (health path)
  - The engine set is closed: adding an engine means a new Kind constant,
    a new adapter type, and a new case in AdapterFor.

ERROR HANDLING:
  - ParseChunk returns an error for undecodable input; streaming callers
    skip the chunk, non-streaming callers fail the request.

IMPLEMENTATION RULES:
  - Adapters are stateless and safe for concurrent use.

USAGE:
  a, err := engine.AdapterFor(engine.KindOllama)
  req, err := a.BuildRequest("http://localhost:11434", prompt, "llama3.1")

RELATED FILES:
  - internal/engine/prober.go
*/

package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	maxGeneratedTokens = 512
	temperature        = 0.7
)

// Kind identifies an inference engine wire protocol.
type Kind string

const (
	KindLlamaCpp Kind = "llama.cpp"
	KindOllama   Kind = "ollama"
	KindVLLM     Kind = "vllm"
)

// Kinds lists every supported engine kind.
var Kinds = []Kind{KindLlamaCpp, KindOllama, KindVLLM}

// ErrUnknownEngine is returned for engine names outside the supported set.
var ErrUnknownEngine = errors.New("unknown engine")

// ParseKind converts a user-supplied engine name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindLlamaCpp, KindOllama, KindVLLM:
		return k, nil
	case "llamacpp", "llama-cpp":
		return KindLlamaCpp, nil
	}
	return "", fmt.Errorf("%w: %q (supported: llama.cpp, ollama, vllm)", ErrUnknownEngine, s)
}

// Request is a fully built generation request.
type Request struct {
	URL       string
	Payload   []byte
	Streaming bool
}

// TokenEvent is one generated token (or word, for word-counting protocols).
type TokenEvent struct {
	Text string
}

// Adapter encapsulates the wire differences of one engine kind.
type Adapter interface {
	Kind() Kind
	HealthPath() string
	BuildRequest(baseURL, prompt, modelName string) (Request, error)
	ParseChunk(raw []byte) ([]TokenEvent, error)
}

// AdapterFor returns the adapter for kind.
func AdapterFor(kind Kind) (Adapter, error) {
	switch kind {
	case KindLlamaCpp:
		return llamaCppAdapter{}, nil
	case KindOllama:
		return ollamaAdapter{}, nil
	case KindVLLM:
		return openAIAdapter{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, kind)
}

func joinURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

func words(text string) []TokenEvent {
	fields := strings.Fields(text)
	events := make([]TokenEvent, len(fields))
	for i, f := range fields {
		events[i] = TokenEvent{Text: f}
	}
	return events
}

// --- llama.cpp ---

type llamaCppAdapter struct{}

type llamaCppRequest struct {
	Prompt      string  `json:"prompt"`
	NPredict    int     `json:"n_predict"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

func (llamaCppAdapter) Kind() Kind         { return KindLlamaCpp }
func (llamaCppAdapter) HealthPath() string { return "/health" }

func (llamaCppAdapter) BuildRequest(baseURL, prompt, _ string) (Request, error) {
	payload, err := json.Marshal(llamaCppRequest{
		Prompt:      prompt,
		NPredict:    maxGeneratedTokens,
		Temperature: temperature,
		Stream:      true,
	})
	if err != nil {
		return Request{}, err
	}
	return Request{URL: joinURL(baseURL, "/completion"), Payload: payload, Streaming: true}, nil
}

func (llamaCppAdapter) ParseChunk(raw []byte) ([]TokenEvent, error) {
	raw = bytes.TrimPrefix(bytes.TrimSpace(raw), []byte("data:"))
	var chunk struct {
		Content *string `json:"content"`
		Stop    bool    `json:"stop"`
	}
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, err
	}
	// stop:true does not end the stream; the connection closing does.
	if chunk.Content == nil {
		return nil, nil
	}
	return []TokenEvent{{Text: *chunk.Content}}, nil
}

// --- ollama ---

type ollamaAdapter struct{}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

func (ollamaAdapter) Kind() Kind         { return KindOllama }
func (ollamaAdapter) HealthPath() string { return "/api/tags" }

func (ollamaAdapter) BuildRequest(baseURL, prompt, modelName string) (Request, error) {
	payload, err := json.Marshal(ollamaRequest{Model: modelName, Prompt: prompt, Stream: true})
	if err != nil {
		return Request{}, err
	}
	return Request{URL: joinURL(baseURL, "/api/generate"), Payload: payload, Streaming: true}, nil
}

func (ollamaAdapter) ParseChunk(raw []byte) ([]TokenEvent, error) {
	var chunk struct {
		Response *string `json:"response"`
		Done     bool    `json:"done"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), &chunk); err != nil {
		return nil, err
	}
	if chunk.Response == nil {
		return nil, nil
	}
	return words(*chunk.Response), nil
}

// --- OpenAI completions (vLLM) ---

type openAIAdapter struct{}

func (openAIAdapter) Kind() Kind         { return KindVLLM }
func (openAIAdapter) HealthPath() string { return "/health" }

func (openAIAdapter) BuildRequest(baseURL, prompt, modelName string) (Request, error) {
	payload, err := json.Marshal(openai.CompletionRequest{
		Model:       modelName,
		Prompt:      prompt,
		MaxTokens:   maxGeneratedTokens,
		Temperature: temperature,
	})
	if err != nil {
		return Request{}, err
	}
	return Request{URL: joinURL(baseURL, "/v1/completions"), Payload: payload}, nil
}

// ParseChunk decodes the whole (non-streamed) completion body.
func (openAIAdapter) ParseChunk(raw []byte) ([]TokenEvent, error) {
	var resp openai.CompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return words(resp.Choices[0].Text), nil
}
