/*
PURPOSE:
  A stand-in inference server that speaks all three engine protocols, so
  llamabench can be exercised without a GPU or a real engine.

REQUIREMENTS:
  User-specified:
  - Simulated TTFT (latency before the first token) and generation speed.
  - GET /health, GET /api/tags, POST /completion, POST /api/generate,
    POST /v1/completions, GET /stats.

  Implementation-discovered:
  - Streams must be flushed per chunk or the client sees one burst and TTFT
    collapses into total time.
  - GET /v1/models and a populated /api/tags let `health` list models.
  - FailEvery injects deterministic 500s so error accounting can be tested.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/mock_server.go, engine and cli tests
  - Uses: gin, go-openai (completion and model list types)

ERROR HANDLING:
  - Malformed request bodies get 400 with a JSON error.
  - A client that disconnects mid-stream stops generation.

USAGE:
  srv := mockserver.New(mockserver.DefaultConfig())
  ts := httptest.NewServer(srv.Handler())

RELATED FILES:
  - internal/engine/adapter.go
*/

package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"github.com/daryltucker/llamabench/internal/output"
)

// Config shapes the simulated engine.
type Config struct {
	Latency      time.Duration
	TokensPerSec float64
	// Tokens caps tokens per response; requests asking for fewer get fewer.
	Tokens int
	Model  string
	// FailEvery > 0 makes every Nth generation request return 500.
	FailEvery int
}

// DefaultConfig returns the defaults of the mock-server command.
func DefaultConfig() Config {
	return Config{
		Latency:      150 * time.Millisecond,
		TokensPerSec: 40,
		Tokens:       100,
		Model:        "mock-model",
	}
}

// Server is the mock inference engine.
type Server struct {
	cfg      Config
	router   *gin.Engine
	requests atomic.Int64
	started  time.Time
}

// New builds a Server with all routes registered.
func New(cfg Config) *Server {
	if cfg.Tokens <= 0 {
		cfg.Tokens = DefaultConfig().Tokens
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}

	s := &Server{cfg: cfg, router: gin.New(), started: time.Now()}
	s.router.Use(gin.Recovery(), requestLogger())

	s.router.GET("/health", s.health)
	s.router.GET("/api/tags", s.tags)
	s.router.GET("/v1/models", s.models)
	s.router.GET("/stats", s.stats)

	gen := s.router.Group("/", s.countAndFail())
	{
		gen.POST("/completion", s.completion)
		gen.POST("/api/generate", s.generate)
		gen.POST("/v1/completions", s.openAICompletion)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Requests returns the number of generation requests received.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		output.Logger.Info("Mock inference server listening",
			"addr", addr,
			"latency", s.cfg.Latency,
			"tokens_per_sec", s.cfg.TokensPerSec,
			"tokens", s.cfg.Tokens,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	output.Logger.Info("Shutting down mock server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		output.Logger.Debug("Mock request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) countAndFail() gin.HandlerFunc {
	return func(c *gin.Context) {
		n := s.requests.Add(1)
		if s.cfg.FailEvery > 0 && n%int64(s.cfg.FailEvery) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
			return
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) tags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models": []gin.H{{"name": s.cfg.Model, "model": s.cfg.Model}},
	})
}

func (s *Server) models(c *gin.Context) {
	c.JSON(http.StatusOK, openai.ModelsList{
		Models: []openai.Model{{
			ID:        s.cfg.Model,
			Object:    "model",
			CreatedAt: s.started.Unix(),
			OwnedBy:   "llamabench",
		}},
	})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"requests_served": s.Requests(),
		"latency_ms":      s.cfg.Latency.Milliseconds(),
		"tokens_per_sec":  s.cfg.TokensPerSec,
	})
}

// tokenCount clips a requested count to the configured cap.
func (s *Server) tokenCount(requested int) int {
	if requested > 0 && requested < s.cfg.Tokens {
		return requested
	}
	return s.cfg.Tokens
}

// pause sleeps for d or until the client goes away. It reports whether to continue.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) tokenInterval() time.Duration {
	if s.cfg.TokensPerSec <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / s.cfg.TokensPerSec)
}

// streamNDJSON writes one JSON object per line, flushing each, with the
// configured latency before the first and the token interval between the rest.
func (s *Server) streamNDJSON(c *gin.Context, n int, chunk func(i int, last bool) any) {
	ctx := c.Request.Context()
	if !pause(ctx, s.cfg.Latency) {
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	interval := s.tokenInterval()
	for i := 0; i < n; i++ {
		if i > 0 && !pause(ctx, interval) {
			return
		}
		if err := enc.Encode(chunk(i, i == n-1)); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

type completionRequest struct {
	Prompt   string `json:"prompt"`
	NPredict int    `json:"n_predict"`
	Stream   bool   `json:"stream"`
}

// completion mimics the llama.cpp server.
func (s *Server) completion(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n := s.tokenCount(req.NPredict)

	if !req.Stream {
		if !pause(c.Request.Context(), s.cfg.Latency+time.Duration(n)*s.tokenInterval()) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"content": tokenText("token", n), "tokens_predicted": n, "stop": true})
		return
	}

	s.streamNDJSON(c, n, func(i int, last bool) any {
		return gin.H{"content": fmt.Sprintf("token_%d ", i), "stop": last}
	})
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream *bool  `json:"stream"`
}

// generate mimics ollama. Ollama streams unless told otherwise.
func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n := s.cfg.Tokens

	if req.Stream != nil && !*req.Stream {
		if !pause(c.Request.Context(), s.cfg.Latency+time.Duration(n)*s.tokenInterval()) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"model": s.cfg.Model, "response": tokenText("word", n), "done": true})
		return
	}

	s.streamNDJSON(c, n, func(i int, last bool) any {
		return gin.H{"model": s.cfg.Model, "response": fmt.Sprintf("word_%d ", i), "done": last}
	})
}

// openAICompletion mimics vLLM's OpenAI-compatible completions endpoint (non-streaming).
func (s *Server) openAICompletion(c *gin.Context) {
	var req openai.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n := s.tokenCount(req.MaxTokens)

	if !pause(c.Request.Context(), s.cfg.Latency+time.Duration(n)*s.tokenInterval()) {
		return
	}

	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}
	c.JSON(http.StatusOK, openai.CompletionResponse{
		ID:      fmt.Sprintf("cmpl-%d", s.Requests()),
		Object:  "text_completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.CompletionChoice{{
			Text:         tokenText("token", n),
			Index:        0,
			FinishReason: "stop",
		}},
	})
}

func tokenText(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s_%d", prefix, i)
	}
	return strings.Join(parts, " ")
}
