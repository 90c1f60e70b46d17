package config

import (
	"sort"

	"github.com/daryltucker/llamabench/internal/engine"
)

// ModelInfo is a benchmarkable model and where each engine finds it.
type ModelInfo struct {
	ID                  string  `yaml:"id" json:"id"`
	Name                string  `yaml:"name" json:"name"`
	Size                string  `yaml:"size" json:"size"`
	HFRepo              string  `yaml:"hf_repo" json:"hf_repo"`
	GGUFRepo            string  `yaml:"gguf_repo" json:"gguf_repo"`
	GGUFFile            string  `yaml:"gguf_file" json:"gguf_file"`
	OllamaName          string  `yaml:"ollama_name" json:"ollama_name"`
	ContextLength       int     `yaml:"context_length" json:"context_length"`
	RecommendedMemoryGB float64 `yaml:"recommended_memory_gb" json:"recommended_memory_gb"`
}

var models = []ModelInfo{
	{
		ID:                  "llama-3.1-8b",
		Name:                "Llama 3.1 8B",
		Size:                "8B",
		HFRepo:              "meta-llama/Meta-Llama-3.1-8B-Instruct",
		GGUFRepo:            "bartowski/Meta-Llama-3.1-8B-Instruct-GGUF",
		GGUFFile:            "Meta-Llama-3.1-8B-Instruct-Q4_K_M.gguf",
		OllamaName:          "llama3.1",
		ContextLength:       8192,
		RecommendedMemoryGB: 6,
	},
	{
		ID:                  "mistral-7b",
		Name:                "Mistral 7B v0.3",
		Size:                "7B",
		HFRepo:              "mistralai/Mistral-7B-Instruct-v0.3",
		GGUFRepo:            "bartowski/Mistral-7B-Instruct-v0.3-GGUF",
		GGUFFile:            "Mistral-7B-Instruct-v0.3-Q4_K_M.gguf",
		OllamaName:          "mistral",
		ContextLength:       8192,
		RecommendedMemoryGB: 5,
	},
	{
		ID:                  "qwen-2.5-7b",
		Name:                "Qwen 2.5 7B",
		Size:                "7B",
		HFRepo:              "Qwen/Qwen2.5-7B-Instruct",
		GGUFRepo:            "bartowski/Qwen2.5-7B-Instruct-GGUF",
		GGUFFile:            "Qwen2.5-7B-Instruct-Q4_K_M.gguf",
		OllamaName:          "qwen2.5:7b",
		ContextLength:       32768,
		RecommendedMemoryGB: 5,
	},
}

// Models returns the supported models in declaration order.
func Models() []ModelInfo {
	return append([]ModelInfo(nil), models...)
}

// LookupModel finds a supported model by id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// ModelIDs lists supported model ids, sorted.
func ModelIDs() []string {
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

// EngineModel is the name an engine of the given kind serves this model under.
// llama.cpp serves whatever GGUF it was started with and ignores the field.
func (m ModelInfo) EngineModel(kind engine.Kind) string {
	switch kind {
	case engine.KindOllama:
		return m.OllamaName
	case engine.KindVLLM:
		return m.HFRepo
	}
	return m.ID
}
