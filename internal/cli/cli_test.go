package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/llamabench/internal/mockserver"
	"github.com/daryltucker/llamabench/internal/model"
)

// resetFlags restores every flag to its default; cobra keeps flag state
// between Execute calls on the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute(ctx)
	return stdout.String(), stderr.String(), err
}

func mockURL(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := mockserver.New(mockserver.Config{Latency: 10 * time.Millisecond, TokensPerSec: 2000, Tokens: 8})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestRunCommand_WritesOneRecordPerLevel(t *testing.T) {
	t.Chdir(t.TempDir())
	url := mockURL(t)

	stdout, stderr, err := execute(t, "run",
		"--engines", "ollama",
		"--base-url", url,
		"--concurrency", "1,2",
		"--duration", "200ms",
		"--prompt", "hello",
		"--no-progress",
		"--format", "json",
	)
	require.NoError(t, err, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	for i, line := range lines {
		var trial model.Trial
		require.NoError(t, json.Unmarshal([]byte(line), &trial))
		assert.Equal(t, "ollama", trial.Engine)
		assert.Equal(t, i+1, trial.Concurrency)
		assert.Positive(t, trial.Result.SuccessfulCount)
		assert.NotEmpty(t, trial.RunID)
		assert.Equal(t, "llama3.1", trial.Model, "registry id is translated for ollama")
		require.NotNil(t, trial.SystemInfo)
		assert.Positive(t, trial.SystemInfo.CPUCount)
	}
	assert.Contains(t, stderr, "Trial finished")
	assert.NotContains(t, stderr, "not a supported model id")
}

func TestRunCommand_PresetAndUnsupportedModel(t *testing.T) {
	t.Chdir(t.TempDir())
	url := mockURL(t)

	stdout, stderr, err := execute(t, "run",
		"--engines", "vllm",
		"--base-url", url,
		"--preset", "edge-device",
		"--duration", "100ms",
		"--model", "my-finetune",
		"--no-progress",
	)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "not a supported model id")
	assert.Contains(t, stderr, "my-finetune")

	var trial model.Trial
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stdout)), &trial))
	assert.Equal(t, "edge-device", trial.Preset)
	assert.Equal(t, "my-finetune", trial.Model)
}

func TestRunCommand_InterruptDuringHealthCheck(t *testing.T) {
	t.Chdir(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { time.AfterFunc(50*time.Millisecond, cancel) })
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)

	stdout, stderr, err := executeContext(t, ctx, "run",
		"--engines", "llama.cpp",
		"--base-url", slow.URL,
		"--concurrency", "1",
		"--duration", "1s",
		"--prompt", "hello",
		"--no-progress",
	)
	require.NoError(t, err, stderr)
	assert.NotContains(t, stderr, "Target is not responding")

	var trial model.Trial
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stdout)), &trial))
	assert.True(t, trial.Partial)
	assert.Empty(t, trial.Error)
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := execute(t, "run", "--engines", "ollama", "--concurrency", "0", "--no-progress")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency_levels[0] must be >= 1")
}

func TestRunCommand_BaseURLNeedsOneEngine(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := execute(t, "run", "--engines", "ollama,vllm", "--base-url", "http://x", "--no-progress")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--base-url needs exactly one engine")
}

func TestHealthCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	url := mockURL(t)

	stdout, _, err := execute(t, "health", "--engines", "vllm", "--base-url", url)
	require.NoError(t, err)
	assert.Contains(t, stdout, "OK")
	assert.Contains(t, stdout, "models: mock-model")

	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	stdout, _, err = execute(t, "health", "--engines", "llama.cpp", "--base-url", deadURL)
	require.Error(t, err)
	assert.Contains(t, stdout, "UNAVAILABLE")
}

func TestListCommands(t *testing.T) {
	stdout, _, err := execute(t, "list-engines")
	require.NoError(t, err)
	assert.Contains(t, stdout, "http://localhost:11434")
	assert.Contains(t, stdout, "/api/tags")

	stdout, _, err = execute(t, "list-presets")
	require.NoError(t, err)
	assert.Contains(t, stdout, "batch-processing")
	assert.Contains(t, stdout, "10,25,50")
	assert.Contains(t, stdout, "conversational, mixed, short")

	stdout, _, err = execute(t, "list-models")
	require.NoError(t, err)
	assert.Contains(t, stdout, "MODEL")
	assert.Contains(t, stdout, "llama-3.1-8b")
	assert.Contains(t, stdout, "Mistral 7B v0.3")
	assert.Contains(t, stdout, "Qwen/Qwen2.5-7B-Instruct")
	assert.Contains(t, stdout, "32768")
	assert.Contains(t, stdout, "qwen2.5:7b")
}
