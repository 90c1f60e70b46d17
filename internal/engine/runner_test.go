package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/llamabench/internal/mockserver"
	"github.com/daryltucker/llamabench/internal/model"
)

func startMock(t *testing.T, cfg mockserver.Config) (*mockserver.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := mockserver.New(cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL
}

func quickMock() mockserver.Config {
	return mockserver.Config{Latency: 20 * time.Millisecond, TokensPerSec: 1000, Tokens: 10}
}

func TestRunBenchmark_AllProtocols(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			srv, url := startMock(t, quickMock())

			res, err := RunBenchmark(context.Background(), kind, url, "m", []string{"hi"}, 2, 300*time.Millisecond)
			require.NoError(t, err)

			assert.Positive(t, res.SuccessfulCount)
			assert.Zero(t, res.FailedCount)
			assert.Equal(t, res.SuccessfulCount*10, res.TotalTokens)
			assert.GreaterOrEqual(t, res.TTFTP50, 0.02)
			assert.LessOrEqual(t, res.TTFTP50, res.TTFTP95)
			assert.LessOrEqual(t, res.TTFTP95, res.TTFTP99)
			assert.Positive(t, res.TokensPerSec)
			assert.EqualValues(t, res.SuccessfulCount, srv.Requests())
		})
	}
}

func TestRunBenchmark_Unavailable(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	_, err := RunBenchmark(context.Background(), KindOllama, url, "m", []string{"hi"}, 1, time.Second)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRunBenchmark_UnknownEngine(t *testing.T) {
	_, err := RunBenchmark(context.Background(), Kind("tgi"), "http://x", "m", []string{"hi"}, 1, time.Second)
	require.ErrorIs(t, err, ErrUnknownEngine)
}

func TestRunBenchmark_CountsFailures(t *testing.T) {
	cfg := quickMock()
	cfg.FailEvery = 2
	_, url := startMock(t, cfg)

	res, err := RunBenchmark(context.Background(), KindVLLM, url, "m", []string{"hi"}, 1, 300*time.Millisecond)
	require.NoError(t, err)

	assert.Positive(t, res.FailedCount)
	assert.Equal(t, res.FailedCount, res.ErrorsByType["http_500"])
	assert.InDelta(t, 0.5, res.ErrorRate, 0.2)
}

func TestRun_Suite(t *testing.T) {
	_, good := startMock(t, quickMock())
	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	var emitted []model.Trial
	var started atomic.Int32
	suite := Suite{
		Targets: []Target{
			{Kind: KindLlamaCpp, BaseURL: deadURL, Model: "m"},
			{Kind: KindOllama, BaseURL: good, Model: "m"},
		},
		ConcurrencyLevels: []int{1, 2},
		Duration:          150 * time.Millisecond,
		Prompts:           []string{"hi"},
		Emit: func(tr model.Trial) error {
			emitted = append(emitted, tr)
			return nil
		},
		OnTrialStart: func(Target, int) (SampleObserver, func()) {
			started.Add(1)
			return nil, nil
		},
	}

	trials, err := Run(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, trials, emitted)

	// Dead engine: one record, then skipped. Live engine: one per level.
	require.Len(t, trials, 3)
	assert.Equal(t, "llama.cpp", trials[0].Engine)
	assert.Contains(t, trials[0].Error, "target unavailable")

	assert.Equal(t, "ollama", trials[1].Engine)
	assert.Equal(t, 1, trials[1].Concurrency)
	assert.Equal(t, 2, trials[2].Concurrency)
	assert.NotEqual(t, trials[1].RunID, trials[2].RunID)
	assert.Positive(t, trials[2].Result.SuccessfulCount)
	assert.Empty(t, trials[2].Error)
	assert.EqualValues(t, 3, started.Load())
}

func TestRun_EmitErrorStops(t *testing.T) {
	_, url := startMock(t, quickMock())
	boom := errors.New("disk full")

	trials, err := Run(context.Background(), Suite{
		Targets:           []Target{{Kind: KindVLLM, BaseURL: url, Model: "m"}},
		ConcurrencyLevels: []int{1, 1},
		Duration:          50 * time.Millisecond,
		Prompts:           []string{"hi"},
		Emit:              func(model.Trial) error { return boom },
	})
	require.ErrorIs(t, err, boom)
	assert.Len(t, trials, 1)
}

func TestRun_InterruptMarksPartial(t *testing.T) {
	_, url := startMock(t, quickMock())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	trials, err := Run(ctx, Suite{
		Targets:           []Target{{Kind: KindOllama, BaseURL: url, Model: "m"}},
		ConcurrencyLevels: []int{1, 2},
		Duration:          10 * time.Second,
		Prompts:           []string{"hi"},
	})
	require.NoError(t, err)

	require.Len(t, trials, 1, "no further trials after interrupt")
	assert.True(t, trials[0].Partial)
	assert.Positive(t, trials[0].Result.SuccessfulCount)
	assert.Less(t, trials[0].Elapsed, 2.0)
}

func TestRun_InterruptDuringHealthCheck(t *testing.T) {
	adapter, err := AdapterFor(KindLlamaCpp)
	require.NoError(t, err)

	var generated atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(adapter.HealthPath(), func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		generated.Add(1)
		http.Error(w, "unexpected", http.StatusTeapot)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	trials, err := Run(ctx, Suite{
		Targets: []Target{
			{Kind: KindLlamaCpp, BaseURL: ts.URL, Model: "m"},
			{Kind: KindLlamaCpp, BaseURL: ts.URL, Model: "m"},
		},
		ConcurrencyLevels: []int{1, 5},
		Duration:          time.Second,
		Prompts:           []string{"hi"},
	})
	require.NoError(t, err)

	require.Len(t, trials, 1)
	assert.True(t, trials[0].Partial)
	assert.Empty(t, trials[0].Error, "a healthy target must not be reported unavailable")
	assert.Zero(t, trials[0].Result.SuccessfulCount)
	assert.Zero(t, trials[0].Result.FailedCount)
	assert.Zero(t, generated.Load())
}

func TestRun_StampsPresetAndSystemInfo(t *testing.T) {
	_, url := startMock(t, quickMock())
	info := &model.SystemInfo{CPUCount: 8, MemoryGB: 31.3, GPUAvailable: true, OS: "linux", Arch: "amd64"}

	trials, err := Run(context.Background(), Suite{
		Targets:           []Target{{Kind: KindVLLM, BaseURL: url, Model: "m"}},
		ConcurrencyLevels: []int{1, 2},
		Duration:          50 * time.Millisecond,
		Prompts:           []string{"hi"},
		Preset:            "quick-test",
		SystemInfo:        info,
	})
	require.NoError(t, err)
	require.Len(t, trials, 2)
	for _, tr := range trials {
		assert.Equal(t, "quick-test", tr.Preset)
		assert.Equal(t, info, tr.SystemInfo)
	}
}
