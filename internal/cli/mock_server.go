package cli

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/daryltucker/llamabench/internal/mockserver"
)

var (
	mockPort      int
	mockLatencyMS int
	mockSpeed     float64
	mockTokens    int
	mockModel     string
	mockFailEvery int
)

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Serve a simulated inference engine speaking all three protocols",
	Long: `Starts a local HTTP server that imitates llama.cpp (/completion), ollama
(/api/generate) and vLLM (/v1/completions), with a configurable delay before the
first token and a fixed generation speed. Useful to try llamabench without a GPU.`,
	Example: `  llamabench mock-server --port 8080 --latency 150 --speed 40
  llamabench run --engines llama.cpp --base-url http://localhost:8080 --duration 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := mockserver.New(mockserver.Config{
			Latency:      time.Duration(mockLatencyMS) * time.Millisecond,
			TokensPerSec: mockSpeed,
			Tokens:       mockTokens,
			Model:        mockModel,
			FailEvery:    mockFailEvery,
		})
		return srv.ListenAndServe(cmd.Context(), fmt.Sprintf(":%d", mockPort))
	},
}

func init() {
	rootCmd.AddCommand(mockServerCmd)

	def := mockserver.DefaultConfig()
	f := mockServerCmd.Flags()
	f.IntVar(&mockPort, "port", 8080, "Port to listen on")
	f.IntVar(&mockLatencyMS, "latency", int(def.Latency.Milliseconds()), "Simulated time to first token in ms")
	f.Float64Var(&mockSpeed, "speed", def.TokensPerSec, "Tokens per second")
	f.IntVar(&mockTokens, "tokens", def.Tokens, "Maximum tokens per response")
	f.StringVar(&mockModel, "model", def.Model, "Model name reported by the server")
	f.IntVar(&mockFailEvery, "fail-every", 0, "Return HTTP 500 for every Nth generation request (0 = never)")
}
