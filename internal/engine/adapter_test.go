package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"llama.cpp", KindLlamaCpp},
		{"LlamaCpp", KindLlamaCpp},
		{"llama-cpp", KindLlamaCpp},
		{" ollama ", KindOllama},
		{"vllm", KindVLLM},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseKind("tgi")
	require.ErrorIs(t, err, ErrUnknownEngine)
}

func TestAdapterFor_CoversAllKinds(t *testing.T) {
	for _, k := range Kinds {
		a, err := AdapterFor(k)
		require.NoError(t, err)
		assert.Equal(t, k, a.Kind())
	}
	_, err := AdapterFor("tgi")
	require.ErrorIs(t, err, ErrUnknownEngine)
}

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		kind      Kind
		url       string
		streaming bool
		health    string
		fields    map[string]any
	}{
		{
			kind: KindLlamaCpp, url: "http://h:8080/completion", streaming: true, health: "/health",
			fields: map[string]any{"prompt": "hi", "n_predict": 512.0, "temperature": 0.7, "stream": true},
		},
		{
			kind: KindOllama, url: "http://h:8080/api/generate", streaming: true, health: "/api/tags",
			fields: map[string]any{"model": "m", "prompt": "hi", "stream": true},
		},
		{
			kind: KindVLLM, url: "http://h:8080/v1/completions", streaming: false, health: "/health",
			fields: map[string]any{"model": "m", "prompt": "hi", "max_tokens": 512.0},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			a, err := AdapterFor(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.health, a.HealthPath())

			req, err := a.BuildRequest("http://h:8080/", "hi", "m")
			require.NoError(t, err)
			assert.Equal(t, tt.url, req.URL)
			assert.Equal(t, tt.streaming, req.Streaming)

			var payload map[string]any
			require.NoError(t, json.Unmarshal(req.Payload, &payload))
			for k, v := range tt.fields {
				if f, ok := v.(float64); ok {
					assert.InDelta(t, f, payload[k], 1e-6, k)
					continue
				}
				assert.Equal(t, v, payload[k], k)
			}
		})
	}
}

func TestParseChunk_LlamaCpp(t *testing.T) {
	a := llamaCppAdapter{}

	events, err := a.ParseChunk([]byte(`{"content":"Hello","stop":false}`))
	require.NoError(t, err)
	assert.Equal(t, []TokenEvent{{Text: "Hello"}}, events)

	events, err = a.ParseChunk([]byte(`data: {"content":" world"}`))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	// Empty content is still one token event.
	events, err = a.ParseChunk([]byte(`{"content":""}`))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = a.ParseChunk([]byte(`{"stop":true,"timings":{}}`))
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = a.ParseChunk([]byte(`garbage`))
	assert.Error(t, err)
}

func TestParseChunk_Ollama(t *testing.T) {
	a := ollamaAdapter{}

	events, err := a.ParseChunk([]byte(`{"response":"two words","done":false}`))
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = a.ParseChunk([]byte(`{"response":"   ","done":false}`))
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = a.ParseChunk([]byte(`{"done":true}`))
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = a.ParseChunk([]byte(`{"response":`))
	assert.Error(t, err)
}

func TestParseChunk_OpenAI(t *testing.T) {
	a := openAIAdapter{}

	events, err := a.ParseChunk([]byte(`{"choices":[{"text":"one two three","finish_reason":"stop"}]}`))
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = a.ParseChunk([]byte(`{"choices":[]}`))
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = a.ParseChunk([]byte(`<html>`))
	assert.Error(t, err)
}
